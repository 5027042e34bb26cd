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

// Package zello speaks Zello's push-to-talk WebSocket protocol: a JSON
// control plane carrying logon/stream/alert commands, alongside binary
// frames carrying Opus voice. Session owns the WebSocket handle, the
// Opus codecs, and the reconnect/re-auth state machine.
package zello

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/codecheader"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/jwtsigner"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/keepalive"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/opuscodec"
	"github.com/gorilla/websocket"
)

// State is a ZelloSession lifecycle stage.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingLogon
	StateAuthenticated
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingLogon:
		return "awaiting_logon"
	case StateAuthenticated:
		return "authenticated"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

const (
	// DefaultURL is the production Zello channel API endpoint.
	DefaultURL = "wss://zello.io/ws"

	maxReconnectAttempts = 3
	reconnectDelay       = 5 * time.Second

	outboundSampleRate = 16000
	outboundChunk      = 960 // 60ms @ 16kHz

	jwtTTLSeconds = 3000
)

var (
	ErrStopReconnect = errors.New("zello: reconnect disabled after exhausting retries")
	ErrNotConnected  = errors.New("zello: not connected")
)

// PCMHandler receives 8kHz PCM decoded from an inbound Zello audio stream.
type PCMHandler func(samples []int16, from string)

// StreamEndHandler fires when the remote side ends its stream.
type StreamEndHandler func()

// RadioCommandHandler fires for page/alert-derived radio commands.
type RadioCommandHandler func(cmd string, src, dst uint32)

// Config configures a Session's endpoint, credentials, and JWT signing.
type Config struct {
	URL          string
	Username     string
	Password     string
	Channel      string
	AuthToken    string
	Issuer       string
	PemFilePath  string
	PingInterval time.Duration
	SourceID     uint32
}

// Session is a single Zello WebSocket connection and its protocol state.
type Session struct {
	cfg    Config
	signer *jwtsigner.Signer
	log    *slog.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	stateMu sync.Mutex
	state   State

	seq           atomic.Uint64
	txStreamID    atomic.Uint32
	stopReconnect atomic.Bool

	refreshMu    sync.Mutex
	refreshToken string
	lastFrom     string

	headerMu     sync.Mutex
	codecHeaders map[uint32]codecheader.Attributes
	decoders     map[uint32]opuscodec.Decoder

	playbackMu  sync.Mutex
	playbackAcc []int16

	sendMu  sync.Mutex
	sendAcc []int16
	encoder opuscodec.Encoder

	keepaliveTimer *keepalive.Timer

	PCMReceived  PCMHandler
	StreamEnded  StreamEndHandler
	RadioCommand RadioCommandHandler
}

// NewSession builds a Session from cfg. If Issuer/PemFilePath are set a
// JwtSigner is prepared for minting logon tokens; pem is the raw PEM text,
// not a path, so callers read the file themselves (consistent with
// jwtsigner.New's signature).
func NewSession(cfg Config, pem string, log *slog.Logger) (*Session, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("zello: invalid URL: %w", err)
	}

	s := &Session{
		cfg:          cfg,
		log:          log,
		codecHeaders: make(map[uint32]codecheader.Attributes),
		decoders:     make(map[uint32]opuscodec.Decoder),
	}
	s.seq.Store(1)
	s.keepaliveTimer = keepalive.NewTimer(cfg.PingInterval)

	if cfg.Issuer != "" && pem != "" {
		signer, err := jwtsigner.New(cfg.Issuer, pem)
		if err != nil {
			return nil, fmt.Errorf("zello: preparing JWT signer: %w", err)
		}
		s.signer = signer
	}

	enc, err := opuscodec.NewEncoder(outboundSampleRate)
	if err != nil {
		return nil, fmt.Errorf("zello: preparing outbound encoder: %w", err)
	}
	s.encoder = enc

	return s, nil
}

func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// Connect opens the WebSocket to the configured URL.
func (s *Session) Connect() error {
	s.setState(StateConnecting)
	conn, _, err := websocket.DefaultDialer.Dial(s.cfg.URL, nil)
	if err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("zello: dial: %w", err)
	}
	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()
	s.setState(StateAwaitingLogon)
	return nil
}

// Close tears down the WebSocket and stops the keepalive timer.
func (s *Session) Close() error {
	s.keepaliveTimer.Stop()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return nil
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := s.conn.Close()
	s.conn = nil
	s.setState(StateDisconnected)
	return err
}

func (s *Session) nextSeq() uint64 {
	return s.seq.Add(1) - 1
}

func (s *Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	if err := s.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("zello: write control message: %w", err)
	}
	return nil
}

func (s *Session) writeBinary(b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("zello: write audio frame: %w", err)
	}
	return nil
}

// Run is the single driver task: it connects, authenticates, then loops
// the receive task, reconnecting (but never recursing into itself from
// the receive loop) whenever the connection drops and reconnects remain
// available.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Connect(); err != nil {
		return err
	}
	if err := s.Authenticate(); err != nil {
		return err
	}
	s.keepaliveTimer.Start()
	defer s.keepaliveTimer.Stop()

	for {
		err := s.receiveLoop(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}
		s.log.Warn("zello: connection lost, attempting reconnect", "error", err)
		if rerr := s.Reconnect(); rerr != nil {
			return rerr
		}
	}
}
