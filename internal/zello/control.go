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

package zello

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/codecheader"
)

// outboundMessage is the union of every JSON control frame this session
// sends. Fields unused by a given command are left at their zero value
// and omitted.
type outboundMessage struct {
	Command        string `json:"command"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	Channel        string `json:"channel,omitempty"`
	AuthToken      string `json:"auth_token,omitempty"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	Seq            uint64 `json:"seq"`
	Type           string `json:"type,omitempty"`
	Codec          string `json:"codec,omitempty"`
	CodecHeader    string `json:"codec_header,omitempty"`
	PacketDuration int    `json:"packet_duration,omitempty"`
	StreamID       uint32 `json:"stream_id,omitempty"`
	Text           string `json:"text,omitempty"`
	For            string `json:"for,omitempty"`
}

// inboundMessage is the superset of fields that can appear on any Zello
// control frame this session receives.
type inboundMessage struct {
	Command      string  `json:"command"`
	StreamID     *uint32 `json:"stream_id"`
	From         string  `json:"from"`
	CodecHeader  string  `json:"codec_header"`
	RefreshToken string  `json:"refresh_token"`
	Success      *bool   `json:"success"`
	Seq          uint64  `json:"seq"`
	Text         string  `json:"text"`
	Error        string  `json:"error"`
}

// Authenticate sends the logon command. The first attempt carries the
// configured static auth token, or a freshly minted JWT when none is
// configured; later attempts (once a refresh_token has been cached from
// an on_channel_status frame) carry that refresh token instead.
func (s *Session) Authenticate() error {
	msg := outboundMessage{
		Command:  "logon",
		Username: s.cfg.Username,
		Password: s.cfg.Password,
		Channel:  s.cfg.Channel,
		Seq:      s.nextSeq(),
	}

	s.refreshMu.Lock()
	refresh := s.refreshToken
	s.refreshMu.Unlock()

	if refresh != "" {
		msg.RefreshToken = refresh
	} else {
		token := s.cfg.AuthToken
		if token == "" && s.signer != nil {
			minted, err := s.signer.Create()
			if err != nil {
				return fmt.Errorf("zello: minting logon JWT: %w", err)
			}
			token = minted
		}
		msg.AuthToken = token
	}

	return s.writeJSON(msg)
}

// StartStream requests a new outbound audio stream and returns once the
// request has been sent; the server-assigned stream ID is picked up by
// the receive loop's handleStartStreamReply path when the reply arrives.
func (s *Session) StartStream() error {
	return s.writeJSON(outboundMessage{
		Command:        "start_stream",
		Channel:        s.cfg.Channel,
		Seq:            s.nextSeq(),
		Type:           "audio",
		Codec:          "opus",
		CodecHeader:    base64.StdEncoding.EncodeToString(codecheader.OutboundHeader[:]),
		PacketDuration: 60,
	})
}

// StopStream ends the current outbound stream.
func (s *Session) StopStream() error {
	return s.writeJSON(outboundMessage{
		Command:  "stop_stream",
		Seq:      s.nextSeq(),
		StreamID: s.txStreamID.Load(),
	})
}

// SendAlert sends a text message to the channel, used to translate a
// radio-side page/call-alert into something a Zello listener can see.
func (s *Session) SendAlert(text string) error {
	return s.writeJSON(outboundMessage{
		Command: "send_text_message",
		Channel: s.cfg.Channel,
		Text:    text,
		Seq:     s.nextSeq(),
	})
}

// SendPing is invoked by the KeepAlive timer to send a text ping.
func (s *Session) SendPing() error {
	err := s.writeJSON(outboundMessage{
		Command: "send_text_message",
		Channel: s.cfg.Channel,
		Text:    "ping",
		For:     s.cfg.Username,
		Seq:     s.nextSeq(),
	})
	if err == nil {
		s.keepaliveTimer.MarkPingSent()
	}
	return err
}

// handleStartStreamReply records the stream ID the server assigned to an
// outbound start_stream request.
func (s *Session) handleStartStreamReply(msg inboundMessage) {
	if msg.StreamID != nil {
		s.txStreamID.Store(*msg.StreamID)
	}
}

func (s *Session) handleText(msg inboundMessage) {
	if msg.StreamID != nil && msg.CodecHeader != "" {
		if attrs, err := codecheader.Decode(msg.CodecHeader); err == nil {
			s.headerMu.Lock()
			s.codecHeaders[*msg.StreamID] = attrs
			s.headerMu.Unlock()
		} else {
			s.log.Warn("zello: ignoring malformed codec header", "error", err)
		}
	}

	if msg.RefreshToken != "" {
		s.refreshMu.Lock()
		s.refreshToken = msg.RefreshToken
		s.refreshMu.Unlock()
	}

	if msg.From != "" {
		s.refreshMu.Lock()
		s.lastFrom = msg.From
		s.refreshMu.Unlock()
	}

	switch msg.Command {
	case "on_channel_status":
		s.setState(StateAuthenticated)

	case "on_alert":
		if dst, ok := parsePageCommand(msg.Text); ok {
			if s.RadioCommand != nil {
				s.RadioCommand("page", s.cfg.SourceID, dst)
			}
		}

	case "on_stream_stop":
		if msg.StreamID != nil {
			s.headerMu.Lock()
			delete(s.codecHeaders, *msg.StreamID)
			delete(s.decoders, *msg.StreamID)
			s.headerMu.Unlock()
		}
		if s.StreamEnded != nil {
			s.StreamEnded()
		}

	case "start_stream":
		s.handleStartStreamReply(msg)

	default:
		if msg.StreamID != nil {
			// Unrecognized command but a stream_id is present: still worth
			// tracking as the most recently seen inbound stream.
			s.handleStartStreamReply(msg)
		}
	}
}

// parsePageCommand tolerates both "page <id>" and "page<id>" forms.
func parsePageCommand(text string) (dst uint32, ok bool) {
	if len(text) < 4 || !strings.EqualFold(text[:4], "page") {
		return 0, false
	}
	rest := strings.TrimSpace(text[4:])
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}
