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

package p25frame_test

import (
	"testing"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/p25frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillCodewords(buf *p25frame.LDUBuffer, seed byte) [9][11]byte {
	var codewords [9][11]byte
	for n := range 9 {
		var cw [11]byte
		for i := range cw {
			cw[i] = seed + byte(n*11+i)
		}
		codewords[n] = cw
		buf.SetVoice(n, cw)
	}
	return codewords
}

func TestLDU1PackUnpackRoundTrip(t *testing.T) {
	t.Parallel()
	var buf p25frame.LDUBuffer
	codewords := fillCodewords(&buf, 1)

	call := p25frame.LDU1CallData{
		PeerID: 111, SrcID: 2001, DstID: 3001,
		LCO: 0x3C, MFID: 0x90, ServiceOptions: 0x01,
		LSD: [2]byte{0xAA, 0xBB},
	}
	payload := p25frame.PackLDU1(&buf, call)

	var unpacked p25frame.LDUBuffer
	got, err := p25frame.UnpackLDU1(payload, &unpacked)
	require.NoError(t, err)
	assert.Equal(t, call, got)

	for n := range 9 {
		assert.Equal(t, codewords[n], unpacked.Voice(n), "codeword %d", n)
	}
}

func TestLDU2PackUnpackRoundTrip(t *testing.T) {
	t.Parallel()
	var buf p25frame.LDUBuffer
	codewords := fillCodewords(&buf, 50)

	call := p25frame.LDU2CallData{
		PeerID: 111,
		MI:     [9]byte{1, 2, 3, 4, 5, 6, 7, 8, 9},
		AlgID:  p25frame.AlgIDUnencrypted,
		KeyID:  0x00,
		LSD:    [2]byte{0xCC, 0xDD},
	}
	payload := p25frame.PackLDU2(&buf, call)

	var unpacked p25frame.LDUBuffer
	got, err := p25frame.UnpackLDU2(payload, &unpacked)
	require.NoError(t, err)
	assert.Equal(t, call, got)

	for n := range 9 {
		assert.Equal(t, codewords[n], unpacked.Voice(n), "codeword %d", n)
	}
}

func TestLDU1FrameTypeMismatchIsRejected(t *testing.T) {
	t.Parallel()
	var buf p25frame.LDUBuffer
	fillCodewords(&buf, 1)
	payload := p25frame.PackLDU1(&buf, p25frame.LDU1CallData{})
	payload[p25frame.HeaderLen] = 0xFF // corrupt V1's frame-type marker

	var unpacked p25frame.LDUBuffer
	_, err := p25frame.UnpackLDU1(payload, &unpacked)
	require.ErrorIs(t, err, p25frame.ErrFrameTypeMismatch)
}

func TestLDU1ShortPayloadRejected(t *testing.T) {
	t.Parallel()
	var buf p25frame.LDUBuffer
	_, err := p25frame.UnpackLDU1(make([]byte, 10), &buf)
	require.ErrorIs(t, err, p25frame.ErrShortPayload)
}

func TestLDU1TotalLengthByteMatchesPayload(t *testing.T) {
	t.Parallel()
	var buf p25frame.LDUBuffer
	payload := p25frame.PackLDU1(&buf, p25frame.LDU1CallData{})
	assert.Equal(t, byte(len(payload)), payload[23])
	assert.Equal(t, p25frame.HeaderLen+p25frame.DataSegmentLen, len(payload))
}

func TestHDUAlgIDUnencrypted(t *testing.T) {
	t.Parallel()
	raw := make([]byte, 182)
	raw[180] = 0x01
	raw[181] = p25frame.AlgIDUnencrypted
	algID, ok := p25frame.HDUAlgID(raw)
	require.True(t, ok)
	assert.Equal(t, byte(p25frame.AlgIDUnencrypted), algID)
}

func TestHDUAlgIDNotPresent(t *testing.T) {
	t.Parallel()
	raw := make([]byte, 182)
	_, ok := p25frame.HDUAlgID(raw)
	assert.False(t, ok)
}

func TestDMRVoicePackUnpackRoundTrip(t *testing.T) {
	t.Parallel()
	burst := p25frame.DMRVoiceBurst{Slot: p25frame.Timeslot1, SrcID: 100, DstID: 200}
	var codewords [3][p25frame.AMBELen]byte
	for i := range codewords {
		for j := range codewords[i] {
			codewords[i][j] = byte(i*10 + j)
		}
	}

	payload := p25frame.PackDMRVoice(burst, codewords)
	gotBurst, gotCodewords, err := p25frame.UnpackDMRVoice(payload)
	require.NoError(t, err)
	assert.Equal(t, burst, gotBurst)
	assert.Equal(t, codewords, gotCodewords)
}

func TestDMRVoiceShortPayloadRejected(t *testing.T) {
	t.Parallel()
	_, _, err := p25frame.UnpackDMRVoice(make([]byte, 5))
	require.ErrorIs(t, err, p25frame.ErrShortPayload)
}
