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
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/fne"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/metrics"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/p25frame"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/zello"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCoder is a vocoder.Capability stand-in that returns fixed-length
// codewords and silent PCM, so tests can drive CallBridge without a real
// MBE vocoder.
type fakeCoder struct {
	codewordLen int
}

func (f *fakeCoder) Encode(samples []int16) ([]byte, error) {
	return make([]byte, f.codewordLen), nil
}

func (f *fakeCoder) Decode(codeword []byte) ([]int16, error) {
	return make([]int16, frameSamples), nil
}

func (f *fakeCoder) Gain() float64  { return 1 }
func (f *fakeCoder) AutoGain() bool { return false }

// newTestBridge wires a CallBridge to a real (but unconnected-peer) UDP
// socket so SendMaster can be exercised, and a Zello session that never
// dials out.
func newTestBridge(t *testing.T, mode TxMode, codewordLen int) (*CallBridge, net.PacketConn) {
	t.Helper()
	b, conn, _ := newTestBridgeWithConfig(t, Config{
		SourceID:      100,
		DestinationID: 200,
		TxMode:        mode,
	}, codewordLen)
	return b, conn
}

// newTestBridgeWithConfig is like newTestBridge but lets the caller supply
// a full Config (e.g. to set GrantDemand) and also returns the *metrics.Metrics
// instance so tests can assert on recorded counters.
func newTestBridgeWithConfig(t *testing.T, cfg Config, codewordLen int) (*CallBridge, net.PacketConn, *metrics.Metrics) {
	t.Helper()

	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	peer, err := fne.NewPeer(fne.Config{
		Address:  listener.LocalAddr().String(),
		PeerID:   1,
		Password: "secret",
		Callsign: "TEST",
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	session, err := zello.NewSession(zello.Config{SourceID: 100}, "", discardLogger())
	require.NoError(t, err)

	coder := &fakeCoder{codewordLen: codewordLen}
	m := metrics.NewMetrics()
	b := New(cfg, peer, session, coder, nil, m, discardLogger())
	return b, listener, m
}

func readDatagram(t *testing.T, conn net.PacketConn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestIsSilentDetectsQuietAndLoudSamples(t *testing.T) {
	t.Parallel()
	assert.True(t, isSilent(make([]int16, 160)))
	loud := make([]int16, 160)
	loud[50] = 5000
	assert.False(t, isSilent(loud))
}

func TestIngestZelloAudioOpensCallOnFirstLoudFrame(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t, TxModeP25, p25frame.IMBELen)

	assert.False(t, b.tx.inCall)
	loud := make([]int16, frameSamples)
	loud[0] = 5000
	b.ingestZelloAudio(loud, "alice")
	assert.True(t, b.tx.inCall)
}

func TestIngestZelloAudioIgnoresSilenceBeforeCallStarts(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t, TxModeP25, p25frame.IMBELen)

	b.ingestZelloAudio(make([]int16, frameSamples), "alice")
	assert.False(t, b.tx.inCall)
}

func TestP25IngressSendsLDU1AfterNineCodewords(t *testing.T) {
	t.Parallel()
	b, conn := newTestBridge(t, TxModeP25, p25frame.IMBELen)

	loud := make([]int16, frameSamples)
	loud[0] = 5000
	b.ingestZelloAudio(loud, "alice")

	for i := 0; i < 8; i++ {
		b.ingestZelloAudio(make([]int16, frameSamples), "alice")
	}

	frame := readDatagram(t, conn)
	require.Equal(t, "DMRD", string(frame[:4]))
	payload := frame[10:]
	assert.Equal(t, byte(p25frame.DUIDLDU1), payload[0])
	assert.Equal(t, uint8(9), b.tx.p25N)
}

func TestP25IngressWrapsBackToZeroAfterLDU2(t *testing.T) {
	t.Parallel()
	b, conn := newTestBridge(t, TxModeP25, p25frame.IMBELen)

	loud := make([]int16, frameSamples)
	loud[0] = 5000
	b.ingestZelloAudio(loud, "alice")
	for i := 0; i < 17; i++ {
		b.ingestZelloAudio(make([]int16, frameSamples), "alice")
	}

	readDatagram(t, conn) // LDU1
	readDatagram(t, conn) // LDU2
	assert.Equal(t, uint8(0), b.tx.p25N)
}

func TestDMRIngressSendsBurstEveryThreeCodewords(t *testing.T) {
	t.Parallel()
	b, conn := newTestBridge(t, TxModeDMR, p25frame.AMBELen)

	loud := make([]int16, frameSamples)
	loud[0] = 5000
	b.ingestZelloAudio(loud, "bob")
	for i := 0; i < 2; i++ {
		b.ingestZelloAudio(make([]int16, frameSamples), "bob")
	}

	frame := readDatagram(t, conn)
	require.Equal(t, "DMRD", string(frame[:4]))
	payload := frame[10:]
	burst, _, err := p25frame.UnpackDMRVoice(payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), burst.DstID)
	assert.Equal(t, uint8(0), b.tx.dmrN)
}

func TestEndTxCallResetsState(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t, TxModeP25, p25frame.IMBELen)

	loud := make([]int16, frameSamples)
	loud[0] = 5000
	b.ingestZelloAudio(loud, "alice")
	require.True(t, b.tx.inCall)

	b.EndTxCall()
	assert.False(t, b.tx.inCall)
}

func TestStartTxCallSendsGrantDemandWhenConfigured(t *testing.T) {
	t.Parallel()
	b, conn, _ := newTestBridgeWithConfig(t, Config{
		SourceID:      100,
		DestinationID: 200,
		TxMode:        TxModeP25,
		GrantDemand:   true,
	}, p25frame.IMBELen)

	loud := make([]int16, frameSamples)
	loud[0] = 5000
	b.ingestZelloAudio(loud, "alice")

	frame := readDatagram(t, conn)
	require.Equal(t, "DMRD", string(frame[:4]))
	payload := frame[10:]
	assert.Equal(t, byte(p25frame.DUIDTDU), payload[0])
}

func TestStartTxCallSendsNoGrantDemandWhenDisabled(t *testing.T) {
	t.Parallel()
	b, conn := newTestBridge(t, TxModeP25, p25frame.IMBELen)

	loud := make([]int16, frameSamples)
	loud[0] = 5000
	b.ingestZelloAudio(loud, "alice")
	for i := 0; i < 8; i++ {
		b.ingestZelloAudio(make([]int16, frameSamples), "alice")
	}

	// With no grant demand, the first (and only) datagram by now is the
	// LDU1 superframe, not a TDU.
	frame := readDatagram(t, conn)
	payload := frame[10:]
	assert.Equal(t, byte(p25frame.DUIDLDU1), payload[0])
}

func TestEndTxCallSendsTerminator(t *testing.T) {
	t.Parallel()
	b, conn := newTestBridge(t, TxModeP25, p25frame.IMBELen)

	loud := make([]int16, frameSamples)
	loud[0] = 5000
	b.ingestZelloAudio(loud, "alice")
	require.True(t, b.tx.inCall)

	b.EndTxCall()

	frame := readDatagram(t, conn)
	require.Equal(t, "DMRD", string(frame[:4]))
	payload := frame[10:]
	assert.Equal(t, byte(p25frame.DUIDTDU), payload[0])
}

func TestStartAndEndTxCallRecordMetrics(t *testing.T) {
	t.Parallel()
	b, _, m := newTestBridgeWithConfig(t, Config{
		SourceID:      100,
		DestinationID: 200,
		TxMode:        TxModeP25,
	}, p25frame.IMBELen)

	loud := make([]int16, frameSamples)
	loud[0] = 5000
	b.ingestZelloAudio(loud, "alice")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CallsStartedTotal.WithLabelValues(metrics.DirectionZelloToRadio)))

	b.EndTxCall()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CallsEndedTotal.WithLabelValues(metrics.DirectionZelloToRadio)))
}

func TestHandleDMRVoiceStartsAndEndsRxCall(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t, TxModeDMR, p25frame.AMBELen)

	var codewords [3][p25frame.AMBELen]byte
	burst := p25frame.DMRVoiceBurst{Slot: p25frame.Timeslot1, SrcID: 10, DstID: 200}
	payload := p25frame.PackDMRVoice(burst, codewords)

	b.onFNEVoice(fne.VoiceData{DUID: byte(p25frame.Timeslot1), Data: payload})
	assert.True(t, b.rx[SlotDMR1].InCall)

	b.endRxCall(SlotDMR1)
	assert.False(t, b.rx[SlotDMR1].InCall)
}

func TestHandleDMRVoiceRecordsRxCallMetrics(t *testing.T) {
	t.Parallel()
	b, _, m := newTestBridgeWithConfig(t, Config{
		SourceID:      100,
		DestinationID: 200,
		TxMode:        TxModeDMR,
	}, p25frame.AMBELen)

	var codewords [3][p25frame.AMBELen]byte
	burst := p25frame.DMRVoiceBurst{Slot: p25frame.Timeslot1, SrcID: 10, DstID: 200}
	payload := p25frame.PackDMRVoice(burst, codewords)

	b.onFNEVoice(fne.VoiceData{DUID: byte(p25frame.Timeslot1), Data: payload})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CallsStartedTotal.WithLabelValues(metrics.DirectionRadioToZello)))

	b.endRxCall(SlotDMR1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CallsEndedTotal.WithLabelValues(metrics.DirectionRadioToZello)))
}

func TestDecodeAndForwardBatchesEgressBlockSamples(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t, TxModeDMR, p25frame.AMBELen)

	// fakeCoder.Decode always returns frameSamples (160) samples; six
	// codewords accumulate 960 samples, exactly one egressBlockSamples
	// block, leaving the per-slot accumulator empty.
	for i := 0; i < 6; i++ {
		b.decodeAndForward(SlotDMR1, make([]byte, p25frame.AMBELen))
	}
	assert.Empty(t, b.rx[SlotDMR1].pcmAccumulator)

	b.decodeAndForward(SlotDMR1, make([]byte, p25frame.AMBELen))
	assert.Len(t, b.rx[SlotDMR1].pcmAccumulator, frameSamples)
}

func TestHandleDMRVoiceIgnoresCallToOtherTalkgroup(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t, TxModeDMR, p25frame.AMBELen)

	var codewords [3][p25frame.AMBELen]byte
	burst := p25frame.DMRVoiceBurst{Slot: p25frame.Timeslot1, SrcID: 10, DstID: 9999}
	payload := p25frame.PackDMRVoice(burst, codewords)

	b.onFNEVoice(fne.VoiceData{DUID: byte(p25frame.Timeslot1), Data: payload})
	assert.False(t, b.rx[SlotDMR1].InCall)
	assert.True(t, b.rx[SlotDMR1].IgnoreCall)
}

func TestOnRadioCommandPageSendsCallAlert(t *testing.T) {
	t.Parallel()
	b, conn := newTestBridge(t, TxModeP25, p25frame.IMBELen)

	b.onRadioCommand("page", 10, 200)

	frame := readDatagram(t, conn)
	payload := frame[10:]
	src, dst, ok := p25frame.IsCallAlert(payload)
	require.True(t, ok)
	assert.Equal(t, uint32(10), src)
	assert.Equal(t, uint32(200), dst)
}

func TestDropStaleCallsEndsSlotPastDeadline(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t, TxModeDMR, p25frame.AMBELen)
	b.cfg.DropTimeMs = 10

	var codewords [3][p25frame.AMBELen]byte
	burst := p25frame.DMRVoiceBurst{Slot: p25frame.Timeslot1, SrcID: 10, DstID: 200}
	payload := p25frame.PackDMRVoice(burst, codewords)
	b.onFNEVoice(fne.VoiceData{DUID: byte(p25frame.Timeslot1), Data: payload})
	require.True(t, b.rx[SlotDMR1].InCall)

	time.Sleep(20 * time.Millisecond)
	b.DropStaleCalls()
	assert.False(t, b.rx[SlotDMR1].InCall)
}

func TestDropStaleCallsNoopWhenDisabled(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t, TxModeDMR, p25frame.AMBELen)

	var codewords [3][p25frame.AMBELen]byte
	burst := p25frame.DMRVoiceBurst{Slot: p25frame.Timeslot1, SrcID: 10, DstID: 200}
	payload := p25frame.PackDMRVoice(burst, codewords)
	b.onFNEVoice(fne.VoiceData{DUID: byte(p25frame.Timeslot1), Data: payload})

	b.DropStaleCalls()
	assert.True(t, b.rx[SlotDMR1].InCall)
}

func TestOnRadioCommandIgnoresNonPageCommands(t *testing.T) {
	t.Parallel()
	b, conn := newTestBridge(t, TxModeP25, p25frame.IMBELen)

	b.onRadioCommand("talk", 10, 200)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 64)
	_, _, err := conn.ReadFrom(buf)
	assert.Error(t, err)
}

func TestStatusReflectsInProgressCalls(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t, TxModeDMR, p25frame.AMBELen)

	assert.Equal(t, Status{}, b.Status())

	var codewords [3][p25frame.AMBELen]byte
	burst := p25frame.DMRVoiceBurst{Slot: p25frame.Timeslot1, SrcID: 10, DstID: 200}
	payload := p25frame.PackDMRVoice(burst, codewords)
	b.onFNEVoice(fne.VoiceData{DUID: byte(p25frame.Timeslot1), Data: payload})

	assert.True(t, b.Status().RxDMR1)
	assert.False(t, b.Status().RxP25)
}
