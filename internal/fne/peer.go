// SPDX-License-Identifier: AGPL-3.0-or-later
// ZelloFNEGateway - Bridge a Zello PTT channel to a P25/DMR FNE peer
// Copyright (C) 2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/USA-RedDragon/ZelloFNEGateway>

// Package fne implements the peer side of the FNE (Fixed Network
// Equipment) master/peer UDP protocol: the login/challenge/configure
// handshake, keepalive pings, and framed P25 data send/receive. It plays
// the same role for this gateway that the Homebrew master/repeater
// protocol client plays for a DMR repeater.
package fne

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/keepalive"
)

type authState uint8

const (
	authNone authState = iota
	authSentLogin
	authSentKey
	authSentConfig
	authDone
	authFailed
)

// command is a raw FNE master/peer protocol tag, analogous to a Homebrew
// command string.
type command string

const (
	cmdRPTL    command = "RPTL"    // peer login
	cmdRPTK    command = "RPTK"    // login challenge response
	cmdRPTC    command = "RPTC"    // peer sends its configuration
	cmdRPTPING command = "RPTPING" // peer -> master ping
	cmdRPTACK  command = "RPTACK"  // master -> peer ack
	cmdMSTNAK  command = "MSTNAK"  // master -> peer nak
	cmdMSTCL   command = "MSTCL"   // master is closing the connection
	cmdMSTPONG command = "MSTPONG" // RPTPING response
	cmdDMRD    command = "DMRD"    // framed voice/data payload
)

const (
	// DefaultPort is the conventional FNE peer UDP port.
	DefaultPort = 62031
	// DefaultKeepAliveInterval is the conventional FNE peer ping cadence.
	DefaultKeepAliveInterval = 10 * time.Second
	// DefaultTimeout is how long the peer waits for master traffic before
	// declaring the link dead.
	DefaultTimeout = 15 * time.Second
)

var (
	ErrMasterRefusedLogin    = errors.New("fne: master refused login")
	ErrMasterRefusedPassword = errors.New("fne: master refused password")
	ErrMasterClosed          = errors.New("fne: master closed the connection")
	ErrShortNonce            = errors.New("fne: master sent a short nonce")
	ErrTimeout               = errors.New("fne: master connection timed out")
)

// VoiceData is the decoded payload CallBridge receives for every inbound
// P25/DMR frame via the P25DataReceived callback.
type VoiceData struct {
	PeerID    uint32
	SrcID     uint32
	DstID     uint32
	CallType  byte
	DUID      byte
	FrameType byte
	StreamID  uint32
	Data      []byte
}

// Config describes how to reach and authenticate to an FNE master.
type Config struct {
	Address  string
	PeerID   uint32
	Password string
	Callsign string
}

// Peer is a UDP client speaking the FNE peer login/keepalive/data protocol.
type Peer struct {
	cfg Config

	KeepAlive time.Duration
	Timeout   time.Duration

	conn net.Conn
	data chan []byte
	errs chan error
	quit chan struct{}

	mu       sync.Mutex
	auth     authState
	nonce    [4]byte
	peerIDBE [4]byte

	pktSeq atomic.Uint32

	// P25DataReceived is invoked from the receive loop for every inbound
	// voice/data frame. PeerConnected fires once after the final RPTC ACK.
	P25DataReceived func(VoiceData)
	PeerConnected   func()

	keepaliveTimer *keepalive.Timer

	log *slog.Logger
}

// NewPeer dials a UDP socket to cfg.Address (host, or host:port) and
// prepares a Peer. The login handshake itself is driven by Run.
func NewPeer(cfg Config, log *slog.Logger) (*Peer, error) {
	addr := cfg.Address
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, DefaultPort)
	}

	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("fne: dialing master: %w", err)
	}

	p := &Peer{
		cfg:       cfg,
		KeepAlive: DefaultKeepAliveInterval,
		Timeout:   DefaultTimeout,
		conn:      conn,
		log:       log,
	}
	binary.BigEndian.PutUint32(p.peerIDBE[:], cfg.PeerID)
	p.keepaliveTimer = keepalive.NewTimer(p.KeepAlive)
	return p, nil
}

// PktSeq returns the next packet-sequence value, resetting the counter to
// zero first when reset is true (the first LDU of a new stream).
func (p *Peer) PktSeq(reset bool) uint16 {
	if reset {
		p.pktSeq.Store(0)
	}
	return uint16(p.pktSeq.Add(1) - 1)
}

// SendMaster writes a DMRD-tagged frame to the master: the tag, the 2-byte
// big-endian packet sequence, the 4-byte stream ID, then the payload (no
// length field).
func (p *Peer) SendMaster(payload []byte, pktSeq uint16, streamID uint32) error {
	frame := make([]byte, 0, len(cmdDMRD)+7+len(payload))
	frame = append(frame, []byte(cmdDMRD)...)
	frame = append(frame, byte(pktSeq>>8), byte(pktSeq))
	var streamBuf [4]byte
	binary.BigEndian.PutUint32(streamBuf[:], streamID)
	frame = append(frame, streamBuf[:]...)
	frame = append(frame, payload...)
	if _, err := p.conn.Write(frame); err != nil {
		return fmt.Errorf("fne: send master: %w", err)
	}
	return nil
}

// Run starts the receive loop, performs the login handshake, and blocks
// servicing keepalive/timeout/receive events until Close is called or an
// unrecoverable error occurs.
func (p *Peer) Run() error {
	p.quit = make(chan struct{}, 2)
	p.data = make(chan []byte)
	p.errs = make(chan error, 1)

	go p.receive()

	if err := p.sendLogin(); err != nil {
		return err
	}
	p.keepaliveTimer.Start()
	defer p.keepaliveTimer.Stop()

	timeout := time.NewTicker(p.Timeout)
	defer timeout.Stop()

	for {
		select {
		case raw := <-p.data:
			if err := p.handle(raw); err != nil {
				p.signalQuit()
				return err
			}
			timeout.Reset(p.Timeout)

		case <-p.keepaliveTimer.Pings():
			if p.authState() == authDone {
				if err := p.sendPing(); err != nil {
					p.signalQuit()
					return err
				}
			}

		case <-timeout.C:
			p.signalQuit()
			return ErrTimeout

		case <-p.quit:
			return nil

		case err := <-p.errs:
			return err
		}
	}
}

// Close stops the receive loop and releases the socket.
func (p *Peer) Close() error {
	p.signalQuit()
	return p.conn.Close()
}

func (p *Peer) signalQuit() {
	if p.quit == nil {
		return
	}
	select {
	case p.quit <- struct{}{}:
	default:
	}
}

func (p *Peer) authState() authState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.auth
}

func (p *Peer) setAuthState(s authState) {
	p.mu.Lock()
	p.auth = s
	p.mu.Unlock()
}

func (p *Peer) receive() {
	const bufferSize = 2048
	for {
		buf := make([]byte, bufferSize)
		n, err := p.conn.Read(buf)
		if err != nil {
			p.errs <- err
			return
		}
		p.data <- buf[:n]
	}
}

func (p *Peer) handle(b []byte) error {
	switch p.authState() {
	case authSentLogin:
		switch {
		case hasTag(b, cmdMSTNAK):
			p.setAuthState(authFailed)
			return ErrMasterRefusedLogin
		case hasTag(b, cmdRPTACK):
			nonce := b[len(cmdRPTACK):]
			if n := copy(p.nonce[:], nonce); n != len(p.nonce) {
				p.setAuthState(authFailed)
				return ErrShortNonce
			}
			p.log.Debug("fne: received login nonce, sending key")
			return p.sendKey()
		}
		p.log.Debug("fne: ignored frame during login", "frame", string(b))
		return nil

	case authSentKey:
		switch {
		case hasTag(b, cmdMSTNAK):
			p.setAuthState(authFailed)
			return ErrMasterRefusedPassword
		case hasTag(b, cmdRPTACK):
			p.log.Debug("fne: key accepted, sending configuration")
			return p.sendConfiguration()
		}
		p.log.Debug("fne: ignored frame during key exchange", "frame", string(b))
		return nil
	}

	switch {
	case hasTag(b, cmdDMRD):
		vd, ok := decodeVoiceData(b)
		if !ok {
			p.log.Warn("fne: failed to decode inbound voice frame")
			return nil
		}
		if p.P25DataReceived != nil {
			p.P25DataReceived(vd)
		}
		return nil

	case hasTag(b, cmdMSTCL):
		return ErrMasterClosed

	case hasTag(b, cmdRPTACK):
		p.log.Info("fne: configuration accepted, peer connected")
		p.setAuthState(authDone)
		if p.PeerConnected != nil {
			p.PeerConnected()
		}
		return nil

	case hasTag(b, cmdMSTNAK):
		p.log.Warn("fne: master dropped the connection, logging in again")
		return p.sendLogin()

	case hasTag(b, cmdMSTPONG):
		p.keepaliveTimer.MarkPongReceived()
		return nil
	}

	p.log.Debug("fne: unrecognized frame", "frame", string(b))
	return nil
}

func hasTag(b []byte, c command) bool {
	return len(b) >= len(c) && bytes.Equal(b[:len(c)], []byte(c))
}

func (p *Peer) sendLogin() error {
	data := append([]byte(cmdRPTL), p.peerIDBE[:]...)
	p.setAuthState(authSentLogin)
	_, err := p.conn.Write(data)
	return err
}

func (p *Peer) sendKey() error {
	hash := sha256.Sum256(append(p.nonce[:], []byte(p.cfg.Password)...))
	data := append([]byte(cmdRPTK), p.peerIDBE[:]...)
	data = append(data, hash[:4]...)
	p.setAuthState(authSentKey)
	_, err := p.conn.Write(data)
	return err
}

func (p *Peer) sendConfiguration() error {
	data := append([]byte(cmdRPTC), p.peerIDBE[:]...)
	data = append(data, []byte(fmt.Sprintf("%-8s", p.cfg.Callsign))...)
	p.setAuthState(authSentConfig)
	_, err := p.conn.Write(data)
	return err
}

func (p *Peer) sendPing() error {
	data := append([]byte(cmdRPTPING), p.peerIDBE[:]...)
	_, err := p.conn.Write(data)
	if err != nil {
		return err
	}
	p.keepaliveTimer.MarkPingSent()
	return nil
}

func decodeVoiceData(b []byte) (VoiceData, bool) {
	const headerLen = len(cmdDMRD) + 2 + 4
	if len(b) < headerLen+13 {
		return VoiceData{}, false
	}
	body := b[len(cmdDMRD):]
	streamID := binary.BigEndian.Uint32(body[2:6])
	payload := b[headerLen:]

	var vd VoiceData
	vd.StreamID = streamID
	vd.DUID = payload[0]
	vd.PeerID = binary.BigEndian.Uint32(payload[1:5])
	vd.SrcID = binary.BigEndian.Uint32(payload[5:9])
	vd.DstID = binary.BigEndian.Uint32(payload[9:13])
	vd.Data = payload
	return vd, true
}
