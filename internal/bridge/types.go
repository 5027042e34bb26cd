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

// Package bridge implements CallBridge, the bidirectional voice state
// machine that vocodes PCM to/from IMBE or AMBE, tracks call-in-progress
// on each leg, emits grant/terminator framing, and translates page
// alerts between the Zello and radio legs.
package bridge

import (
	"time"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/p25frame"
	"go.opentelemetry.io/otel/trace"
)

// TxMode selects which radio technology's framing the ingress (Zello to
// radio) path packs voice into.
type TxMode uint8

const (
	TxModeDMR TxMode = 1
	TxModeP25 TxMode = 2
)

// Slot indexes the three concurrently tracked radio-egress call slots.
type Slot int

const (
	SlotDMR1 Slot = 0
	SlotDMR2 Slot = 1
	SlotP25  Slot = 2
)

// Config carries every tunable CallBridge needs, passed by value at
// construction rather than read from process-wide mutable state.
type Config struct {
	SourceID                uint32
	DestinationID           uint32
	TxMode                  TxMode
	OverrideSourceIDFromUDP bool
	GrantDemand             bool
	RxAudioGain             float64
	TxAudioGain             float64
	VocoderDecoderAudioGain float64
	VocoderEncoderAudioGain float64
	VocoderDecoderAutoGain  bool
	DropTimeMs              int
}

// CallSlot tracks one radio-egress (FNE to Zello) call's lifecycle.
// LastActive is read by the gateway's janitor to time out a call whose
// terminator frame never arrived.
type CallSlot struct {
	InCall     bool
	IgnoreCall bool
	RXStart    time.Time
	RXStreamID uint32
	RXSrc      uint32
	RXDst      uint32
	RXType     p25frame.DUID
	LastActive time.Time
	span       trace.Span

	// pcmAccumulator batches decoded 8 kHz PCM until egressBlockSamples is
	// reached before handing it to ZelloSession.SendAudio.
	pcmAccumulator []int16
}

// txState tracks the Zello-to-radio ingress call: vocoding, LDU assembly,
// and the monotonic counters the FNE peer protocol requires.
type txState struct {
	inCall         bool
	streamID       uint32
	p25N           uint8 // 0..17
	dmrN           uint8 // 0..2
	pcmAccumulator []int16
	srcOverride    uint32
	netLDU1        p25frame.LDUBuffer
	netLDU2        p25frame.LDUBuffer
	dmrCodewords   [3][p25frame.AMBELen]byte
	startedAt      time.Time
	span           trace.Span
}
