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

package vocoder_test

import (
	"testing"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/vocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRawCoder struct{}

func (fakeRawCoder) CodewordLen() int { return 11 }

func (fakeRawCoder) Encode(samples []int16) ([]byte, error) {
	out := make([]byte, 11)
	for i := range out {
		if i < len(samples) {
			out[i] = byte(samples[i])
		}
	}
	return out, nil
}

func (fakeRawCoder) Decode(codeword []byte) ([]int16, error) {
	samples := make([]int16, vocoder.FrameSamples)
	for i := range samples {
		if i < len(codeword) {
			samples[i] = int16(codeword[i])
		}
	}
	return samples, nil
}

func TestIMBECodecRoundTripsThroughRawCoder(t *testing.T) {
	t.Parallel()
	c := vocoder.New(vocoder.KindIMBE, fakeRawCoder{}, 1, false)
	samples := make([]int16, vocoder.FrameSamples)
	samples[0] = 42

	codeword, err := c.Encode(samples)
	require.NoError(t, err)
	assert.Len(t, codeword, 11)

	decoded, err := c.Decode(codeword)
	require.NoError(t, err)
	assert.Equal(t, int16(42), decoded[0])
}

func TestCodecWithoutRawCoderReturnsError(t *testing.T) {
	t.Parallel()
	c := vocoder.New(vocoder.KindDMRAMBE, nil, 1, false)
	_, err := c.Encode(make([]int16, vocoder.FrameSamples))
	require.ErrorIs(t, err, vocoder.ErrNotConfigured)
}

func TestGainScalesAndSaturates(t *testing.T) {
	t.Parallel()
	c := vocoder.New(vocoder.KindIMBE, fakeRawCoder{}, 2.0, false)
	samples := []int16{100, 30000}
	codeword, err := c.Encode(samples)
	require.NoError(t, err)
	decoded, err := c.Decode(codeword)
	require.NoError(t, err)
	assert.Equal(t, int16(200), decoded[0])
	// 30000*2 saturates int16 but also truncates through the byte-sized
	// codeword in this fake coder, so just assert no panic/overflow crash
	// occurred and gain defaults are respected elsewhere.
	_ = decoded
}

func TestGainOfOneIsNoOp(t *testing.T) {
	t.Parallel()
	c := vocoder.New(vocoder.KindIMBE, fakeRawCoder{}, 1, false)
	samples := []int16{7, 8, 9}
	codeword, err := c.Encode(samples)
	require.NoError(t, err)
	assert.Equal(t, byte(7), codeword[0])
}

func TestPassthroughCodecRoundTrip(t *testing.T) {
	t.Parallel()
	c := vocoder.New(vocoder.KindPassthrough, nil, 1, false)
	samples := []int16{1, -1, 1000, -1000}
	encoded, err := c.Encode(samples)
	require.NoError(t, err)
	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, samples, decoded)
}

func TestAutoGainFlagIsExposed(t *testing.T) {
	t.Parallel()
	c := vocoder.New(vocoder.KindIMBE, fakeRawCoder{}, 1, true)
	assert.True(t, c.AutoGain())
	assert.Equal(t, float64(1), c.Gain())
}
