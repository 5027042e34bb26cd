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

package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/fne"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/metrics"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/p25frame"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// dmrSlotMarker identifies the non-DUID byte 0 PackDMRVoice writes; it
// never collides with a real P25 DUID value.
const (
	dmrSlotMarker1 = byte(p25frame.Timeslot1)
	dmrSlotMarker2 = byte(p25frame.Timeslot2)
)

// egressBlockSamples is the 8 kHz PCM batch size drained from each rx
// slot's accumulator and handed to ZelloSession.SendAudio: 120 ms at 8 kHz,
// which the Zello leg upsamples to 1920 samples and Opus-encodes as two
// 60 ms frames.
const egressBlockSamples = 960

// onFNEVoice is the radio-to-Zello (egress) path: it classifies an
// inbound FNE frame by its leading marker byte, rejects encrypted or
// malformed traffic, and accumulates voice codewords into PCM that gets
// forwarded to the Zello leg once a call is confirmed in progress.
func (b *CallBridge) onFNEVoice(vd fne.VoiceData) {
	switch vd.DUID {
	case dmrSlotMarker1, dmrSlotMarker2:
		b.handleDMRVoice(vd)
	case byte(p25frame.DUIDLDU1):
		b.handleLDU1(vd)
	case byte(p25frame.DUIDLDU2):
		b.handleLDU2(vd)
	case byte(p25frame.DUIDTDU):
		b.endRxCall(SlotP25)
	case byte(p25frame.DUIDTSDU):
		b.handleTSDU(vd)
	default:
		// HDU and PDU carry no voice payload this bridge forwards.
	}
}

func (b *CallBridge) handleLDU1(vd fne.VoiceData) {
	if algID, ok := p25frame.HDUAlgID(vd.Data); ok && algID != p25frame.AlgIDUnencrypted {
		b.log.Warn("bridge: dropping encrypted P25 call", "alg_id", algID)
		b.metrics.RecordEncryptedCallDropped()
		return
	}

	var scratch p25frame.LDUBuffer
	call, err := p25frame.UnpackLDU1(vd.Data, &scratch)
	if err != nil {
		b.log.Warn("bridge: unpacking LDU1 failed", "error", err)
		return
	}

	b.rxMu.Lock()
	slot := &b.rx[SlotP25]
	if !slot.InCall {
		if call.DstID != b.cfg.DestinationID {
			slot.IgnoreCall = true
			b.rxMu.Unlock()
			return
		}
		b.startRxCall(SlotP25, vd, call.SrcID, call.DstID, p25frame.DUIDLDU1)
	}
	ignore := slot.IgnoreCall
	b.rxMu.Unlock()
	if ignore {
		return
	}
	b.touchRxSlot(SlotP25)

	for i := 0; i < 9; i++ {
		cw := scratch.Voice(i)
		b.decodeAndForward(SlotP25, cw[:])
	}
}

func (b *CallBridge) handleLDU2(vd fne.VoiceData) {
	b.rxMu.Lock()
	slot := &b.rx[SlotP25]
	ignore := !slot.InCall || slot.IgnoreCall
	b.rxMu.Unlock()
	if ignore {
		return
	}

	var scratch p25frame.LDUBuffer
	call, err := p25frame.UnpackLDU2(vd.Data, &scratch)
	if err != nil {
		b.log.Warn("bridge: unpacking LDU2 failed", "error", err)
		return
	}
	if call.AlgID != 0 && call.AlgID != p25frame.AlgIDUnencrypted {
		b.log.Warn("bridge: dropping encrypted P25 call", "alg_id", call.AlgID)
		b.metrics.RecordEncryptedCallDropped()
		b.endRxCall(SlotP25)
		return
	}
	b.touchRxSlot(SlotP25)

	for i := 0; i < 9; i++ {
		cw := scratch.Voice(i)
		b.decodeAndForward(SlotP25, cw[:])
	}
}

func (b *CallBridge) handleDMRVoice(vd fne.VoiceData) {
	burst, codewords, err := p25frame.UnpackDMRVoice(vd.Data)
	if err != nil {
		b.log.Warn("bridge: unpacking DMR voice burst failed", "error", err)
		return
	}

	slotIdx := SlotDMR1
	if burst.Slot == p25frame.Timeslot2 {
		slotIdx = SlotDMR2
	}

	b.rxMu.Lock()
	slot := &b.rx[slotIdx]
	if !slot.InCall {
		if burst.DstID != b.cfg.DestinationID {
			slot.IgnoreCall = true
			b.rxMu.Unlock()
			return
		}
		b.startRxCall(slotIdx, vd, burst.SrcID, burst.DstID, 0)
	}
	ignore := slot.IgnoreCall
	b.rxMu.Unlock()
	if ignore {
		return
	}
	b.touchRxSlot(slotIdx)

	for _, cw := range codewords {
		b.decodeAndForward(slotIdx, cw[:])
	}
}

func (b *CallBridge) touchRxSlot(slotIdx Slot) {
	b.rxMu.Lock()
	b.rx[slotIdx].LastActive = time.Now()
	b.rxMu.Unlock()
}

// DropStaleCalls ends any in-progress egress call slot whose last voice
// frame arrived longer than Config.DropTimeMs ago, for when a terminator
// frame is lost. The gateway's janitor calls this on a periodic tick.
func (b *CallBridge) DropStaleCalls() {
	if b.cfg.DropTimeMs <= 0 {
		return
	}
	deadline := time.Duration(b.cfg.DropTimeMs) * time.Millisecond
	for slotIdx := range b.rx {
		b.rxMu.Lock()
		slot := b.rx[slotIdx]
		stale := slot.InCall && time.Since(slot.LastActive) > deadline
		b.rxMu.Unlock()
		if stale {
			b.log.Warn("bridge: dropping stale radio call", "slot", slotIdx)
			b.endRxCall(Slot(slotIdx))
		}
	}
}

func (b *CallBridge) handleTSDU(vd fne.VoiceData) {
	srcID, dstID, ok := p25frame.IsCallAlert(vd.Data)
	if !ok {
		return
	}
	if err := b.session.SendAlert(fmt.Sprintf("page %d", dstID)); err != nil {
		b.log.Warn("bridge: forwarding radio page to zello failed", "error", err)
		return
	}
	b.log.Info("bridge: radio page forwarded to zello", "src", srcID, "dst", dstID)
}

// startRxCall marks slotIdx as in-call and opens the outbound Zello
// stream; it must be called with rxMu held.
func (b *CallBridge) startRxCall(slotIdx Slot, vd fne.VoiceData, srcID, dstID uint32, duid p25frame.DUID) {
	_, span := otel.Tracer(tracerName).Start(context.Background(), "CallBridge.RxCall")
	span.SetAttributes(
		attribute.Int("bridge.slot", int(slotIdx)),
		attribute.Int64("radio.src_id", int64(srcID)),
		attribute.Int64("radio.dst_id", int64(dstID)),
	)

	slot := &b.rx[slotIdx]
	*slot = CallSlot{
		InCall:     true,
		RXStart:    time.Now(),
		RXStreamID: vd.StreamID,
		RXSrc:      srcID,
		RXDst:      dstID,
		RXType:     duid,
		LastActive: time.Now(),
		span:       span,
	}
	if err := b.session.StartStream(); err != nil {
		b.log.Warn("bridge: starting zello stream failed", "error", err)
	}
	b.metrics.RecordCallStarted(metrics.DirectionRadioToZello)
	b.log.Info("bridge: radio call started", "slot", slotIdx, "src", srcID, "dst", dstID)
}

func (b *CallBridge) endRxCall(slotIdx Slot) {
	b.rxMu.Lock()
	slot := &b.rx[slotIdx]
	wasInCall := slot.InCall
	started := slot.RXStart
	span := slot.span
	*slot = CallSlot{}
	b.rxMu.Unlock()

	if !wasInCall {
		return
	}
	if span != nil {
		span.End()
	}
	if err := b.session.StopStream(); err != nil {
		b.log.Warn("bridge: stopping zello stream failed", "error", err)
	}
	duration := time.Since(started)
	b.metrics.RecordCallEnded(metrics.DirectionRadioToZello, duration.Seconds())
	b.log.Info("bridge: radio call ended", "slot", slotIdx, "duration", duration)
}

// decodeAndForward decodes one voice codeword for slotIdx and appends it to
// that slot's PCM accumulator, draining and forwarding complete
// egressBlockSamples blocks to the Zello leg as they fill.
func (b *CallBridge) decodeAndForward(slotIdx Slot, codeword []byte) {
	samples, err := b.coder.Decode(codeword)
	if err != nil {
		b.log.Warn("bridge: decoding voice codeword failed", "error", err)
		b.metrics.RecordCodecError(metrics.DirectionRadioToZello, "decode")
		return
	}
	gained := applyGain(samples, b.cfg.RxAudioGain)

	b.rxMu.Lock()
	slot := &b.rx[slotIdx]
	slot.pcmAccumulator = append(slot.pcmAccumulator, gained...)
	var blocks [][]int16
	for len(slot.pcmAccumulator) >= egressBlockSamples {
		blocks = append(blocks, append([]int16(nil), slot.pcmAccumulator[:egressBlockSamples]...))
		slot.pcmAccumulator = append([]int16(nil), slot.pcmAccumulator[egressBlockSamples:]...)
	}
	b.rxMu.Unlock()

	for _, block := range blocks {
		if err := b.session.SendAudio(block); err != nil {
			b.log.Warn("bridge: forwarding decoded audio to zello failed", "error", err)
		}
	}
}
