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
	"log/slog"
	"sync"
	"time"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/aliasmap"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/fne"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/metrics"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/p25frame"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/vocoder"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/zello"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "ZelloFNEGateway"

// frameSamples is the PCM sample count one voice codeword covers.
const frameSamples = vocoder.FrameSamples

// silenceThreshold is the peak absolute sample value below which an
// incoming PCM chunk is treated as silence and does not open a new call.
const silenceThreshold = 80

// CallBridge owns the Zello leg, the FNE peer leg, and the vocoder, and
// drives PCM in both directions between them.
type CallBridge struct {
	cfg Config

	peer    *fne.Peer
	session *zello.Session
	coder   vocoder.Capability
	aliases *aliasmap.Map
	metrics *metrics.Metrics

	log *slog.Logger

	txMu sync.Mutex
	tx   txState

	rxMu sync.Mutex
	rx   [3]CallSlot
}

// New wires a CallBridge to an already-constructed FNE peer and Zello
// session, registering the callbacks that drive both directions. It does
// not start either leg's network I/O; call Run on the peer and session
// separately.
func New(cfg Config, peer *fne.Peer, session *zello.Session, coder vocoder.Capability, aliases *aliasmap.Map, m *metrics.Metrics, log *slog.Logger) *CallBridge {
	b := &CallBridge{
		cfg:     cfg,
		peer:    peer,
		session: session,
		coder:   coder,
		aliases: aliases,
		metrics: m,
		log:     log,
	}
	session.PCMReceived = b.ingestZelloAudio
	session.RadioCommand = b.onRadioCommand
	session.StreamEnded = b.EndTxCall
	peer.P25DataReceived = b.onFNEVoice
	return b
}

// ingestZelloAudio is the Zello-to-radio (ingress) path: it vocodes 8kHz
// PCM from the Zello leg into IMBE or AMBE codewords and forwards them to
// the FNE peer once a full voice superframe (or DMR burst) has
// accumulated.
func (b *CallBridge) ingestZelloAudio(samples []int16, from string) {
	b.txMu.Lock()
	defer b.txMu.Unlock()

	if !isSilent(samples) && !b.tx.inCall {
		b.startTxCall(from)
	}
	if !b.tx.inCall {
		return
	}

	b.tx.pcmAccumulator = append(b.tx.pcmAccumulator, samples...)
	for len(b.tx.pcmAccumulator) >= frameSamples {
		frame := b.tx.pcmAccumulator[:frameSamples]
		b.tx.pcmAccumulator = append([]int16(nil), b.tx.pcmAccumulator[frameSamples:]...)

		gained := applyGain(frame, b.cfg.TxAudioGain)
		codeword, err := b.coder.Encode(gained)
		if err != nil {
			b.log.Warn("bridge: encoding voice codeword failed", "error", err)
			b.metrics.RecordCodecError(metrics.DirectionZelloToRadio, "encode")
			continue
		}

		switch b.cfg.TxMode {
		case TxModeDMR:
			b.accumulateDMRFrame(codeword)
		default:
			b.accumulateP25Frame(codeword)
		}
	}
}

func (b *CallBridge) startTxCall(from string) {
	_, span := otel.Tracer(tracerName).Start(context.Background(), "CallBridge.TxCall")
	span.SetAttributes(attribute.String("zello.from", from))

	b.tx = txState{
		inCall:      true,
		streamID:    randomStreamID(),
		startedAt:   time.Now(),
		srcOverride: b.resolveSrcOverride(from),
		span:        span,
	}
	seq := b.peer.PktSeq(true)
	if b.cfg.GrantDemand {
		grant := p25frame.PackGrantDemand(b.cfg.SourceID, b.effectiveSrcID(), b.cfg.DestinationID)
		if err := b.peer.SendMaster(grant, seq, b.tx.streamID); err != nil {
			b.log.Warn("bridge: sending grant demand to master failed", "error", err)
		}
	}
	b.metrics.RecordCallStarted(metrics.DirectionZelloToRadio)
	b.log.Info("bridge: zello call started", "from", from, "stream_id", b.tx.streamID)
}

func (b *CallBridge) resolveSrcOverride(from string) uint32 {
	if !b.cfg.OverrideSourceIDFromUDP {
		return 0
	}
	return b.aliases.Lookup(from)
}

func (b *CallBridge) effectiveSrcID() uint32 {
	if b.tx.srcOverride != 0 {
		return b.tx.srcOverride
	}
	return b.cfg.SourceID
}

func (b *CallBridge) accumulateP25Frame(codeword []byte) {
	var cw [p25frame.IMBELen]byte
	copy(cw[:], codeword)

	n := int(b.tx.p25N)
	if n < 9 {
		b.tx.netLDU1.SetVoice(n, cw)
	} else {
		b.tx.netLDU2.SetVoice(n-9, cw)
	}
	b.tx.p25N++

	switch b.tx.p25N {
	case 9:
		call := p25frame.LDU1CallData{
			PeerID:         b.cfg.SourceID,
			SrcID:          b.effectiveSrcID(),
			DstID:          b.cfg.DestinationID,
			ServiceOptions: 0,
		}
		payload := p25frame.PackLDU1(&b.tx.netLDU1, call)
		b.sendToMaster(payload)
	case 18:
		call := p25frame.LDU2CallData{PeerID: b.cfg.SourceID, AlgID: p25frame.AlgIDUnencrypted}
		payload := p25frame.PackLDU2(&b.tx.netLDU2, call)
		b.sendToMaster(payload)
		b.tx.p25N = 0
	}
}

func (b *CallBridge) accumulateDMRFrame(codeword []byte) {
	var cw [p25frame.AMBELen]byte
	copy(cw[:], codeword)

	b.tx.dmrCodewords[b.tx.dmrN] = cw
	b.tx.dmrN++
	if b.tx.dmrN < 3 {
		return
	}
	b.tx.dmrN = 0

	burst := p25frame.DMRVoiceBurst{
		Slot:  p25frame.Timeslot1,
		SrcID: b.effectiveSrcID(),
		DstID: b.cfg.DestinationID,
	}
	payload := p25frame.PackDMRVoice(burst, b.tx.dmrCodewords)
	b.sendToMaster(payload)
}

func (b *CallBridge) sendToMaster(payload []byte) {
	seq := b.peer.PktSeq(false)
	if err := b.peer.SendMaster(payload, seq, b.tx.streamID); err != nil {
		b.log.Warn("bridge: sending voice frame to master failed", "error", err)
	}
}

// EndTxCall closes out the ingress call, e.g. when Zello's stream stops.
func (b *CallBridge) EndTxCall() {
	b.txMu.Lock()
	defer b.txMu.Unlock()
	if !b.tx.inCall {
		return
	}
	term := p25frame.PackTerminator(b.cfg.SourceID, b.effectiveSrcID(), b.cfg.DestinationID)
	seq := b.peer.PktSeq(false)
	if err := b.peer.SendMaster(term, seq, b.tx.streamID); err != nil {
		b.log.Warn("bridge: sending terminator to master failed", "error", err)
	}
	duration := time.Since(b.tx.startedAt)
	b.metrics.RecordCallEnded(metrics.DirectionZelloToRadio, duration.Seconds())
	b.log.Info("bridge: zello call ended", "duration", duration)
	if b.tx.span != nil {
		b.tx.span.End()
	}
	b.tx = txState{}
}

// Status is a point-in-time snapshot of call activity on both legs, for
// the gateway's status endpoint.
type Status struct {
	TxInCall bool `json:"txInCall"`
	RxDMR1   bool `json:"rxDmr1InCall"`
	RxDMR2   bool `json:"rxDmr2InCall"`
	RxP25    bool `json:"rxP25InCall"`
}

// Status reports whether each of the ingress and the three egress call
// slots currently has a call in progress.
func (b *CallBridge) Status() Status {
	b.txMu.Lock()
	txInCall := b.tx.inCall
	b.txMu.Unlock()

	b.rxMu.Lock()
	defer b.rxMu.Unlock()
	return Status{
		TxInCall: txInCall,
		RxDMR1:   b.rx[SlotDMR1].InCall,
		RxDMR2:   b.rx[SlotDMR2].InCall,
		RxP25:    b.rx[SlotP25].InCall,
	}
}

func isSilent(samples []int16) bool {
	for _, s := range samples {
		if s > silenceThreshold || s < -silenceThreshold {
			return false
		}
	}
	return true
}

func applyGain(samples []int16, gain float64) []int16 {
	if gain <= 0 || gain == 1 {
		return samples
	}
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s) * gain
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

func randomStreamID() uint32 {
	return uint32(time.Now().UnixNano())
}
