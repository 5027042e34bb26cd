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
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/codecheader"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/opuscodec"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/resampler"
	"github.com/gorilla/websocket"
)

const (
	audioFrameType  = 0x01
	audioHeaderLen  = 9
	radioSampleRate = 8000
)

// SendAudio upsamples 8kHz radio PCM to 16kHz, accumulates it, and emits
// one or more 60ms Opus binary frames once enough samples have collected.
func (s *Session) SendAudio(pcm8k []int16) error {
	up := resampler.Resample(pcm8k, radioSampleRate, outboundSampleRate)

	s.sendMu.Lock()
	s.sendAcc = append(s.sendAcc, up...)
	var chunks [][]int16
	for len(s.sendAcc) >= outboundChunk {
		chunks = append(chunks, append([]int16(nil), s.sendAcc[:outboundChunk]...))
		s.sendAcc = s.sendAcc[outboundChunk:]
	}
	s.sendMu.Unlock()

	for _, chunk := range chunks {
		if err := s.sendOpusFrame(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) sendOpusFrame(chunk []int16) error {
	encoded, err := s.encoder.Encode(chunk)
	if err != nil {
		return fmt.Errorf("zello: encoding outbound audio: %w", err)
	}

	frame := make([]byte, audioHeaderLen+len(encoded))
	frame[0] = audioFrameType
	binary.BigEndian.PutUint32(frame[1:5], s.txStreamID.Load())
	// bytes 5..9 stay zero: the reserved region the source leaves unused.
	copy(frame[audioHeaderLen:], encoded)

	return s.writeBinary(frame)
}

// receiveLoop reads frames until the socket closes or ctx is canceled,
// dispatching binary audio and JSON control frames. gorilla/websocket
// reassembles fragmented frames into one ReadMessage call, so this loop
// never needs a fixed-size raw buffer that could truncate a large frame.
func (s *Session) receiveLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		s.writeMu.Lock()
		conn := s.conn
		s.writeMu.Unlock()
		if conn == nil {
			return ErrNotConnected
		}

		stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
		msgType, data, err := conn.ReadMessage()
		stop()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("zello: receive loop read: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.handleBinary(data)
		case websocket.TextMessage:
			var msg inboundMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				s.log.Warn("zello: malformed control frame", "error", err)
				continue
			}
			s.handleText(msg)
		case websocket.CloseMessage:
			return nil
		}
	}
}

func (s *Session) handleBinary(data []byte) {
	if len(data) <= audioHeaderLen || data[0] != audioFrameType {
		return
	}
	streamID := binary.BigEndian.Uint32(data[1:5])
	opusPayload := data[audioHeaderLen:]

	attrs := s.codecHeaderFor(streamID)
	dec := s.decoderFor(streamID, attrs)

	pcm, err := dec.Decode(opusPayload)
	if err != nil {
		s.log.Warn("zello: dropping undecodable audio frame", "stream_id", streamID, "error", err)
		return
	}

	down := resampler.Resample(pcm, int(attrs.SampleRateHz), radioSampleRate)

	chunk := radioSampleRate * int(attrs.FrameSizeMs) / 1000
	if chunk <= 0 {
		chunk = radioSampleRate * int(codecheader.Default.FrameSizeMs) / 1000
	}

	s.playbackMu.Lock()
	s.playbackAcc = append(s.playbackAcc, down...)
	var flushed [][]int16
	for len(s.playbackAcc) >= chunk {
		flushed = append(flushed, append([]int16(nil), s.playbackAcc[:chunk]...))
		s.playbackAcc = s.playbackAcc[chunk:]
	}
	s.playbackMu.Unlock()

	s.refreshMu.Lock()
	from := s.lastFrom
	s.refreshMu.Unlock()

	if s.PCMReceived == nil {
		return
	}
	for _, samples := range flushed {
		s.PCMReceived(samples, from)
	}
}

func (s *Session) codecHeaderFor(streamID uint32) codecheader.Attributes {
	s.headerMu.Lock()
	defer s.headerMu.Unlock()
	if attrs, ok := s.codecHeaders[streamID]; ok {
		return attrs
	}
	return codecheader.Default
}

func (s *Session) decoderFor(streamID uint32, attrs codecheader.Attributes) opuscodec.Decoder {
	s.headerMu.Lock()
	defer s.headerMu.Unlock()

	if dec, ok := s.decoders[streamID]; ok && dec.SampleRate() == int(attrs.SampleRateHz) {
		return dec
	}
	dec, err := opuscodec.NewDecoder(int(attrs.SampleRateHz))
	if err != nil {
		s.log.Error("zello: failed to build decoder, falling back to default rate", "error", err)
		dec, _ = opuscodec.NewDecoder(int(codecheader.Default.SampleRateHz))
	}
	s.decoders[streamID] = dec
	return dec
}
