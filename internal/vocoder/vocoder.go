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

// Package vocoder defines the capability trait CallBridge uses to encode
// and decode the radio leg's voice codewords, selected once at
// construction time per the IMBE/DMR-AMBE/external-passthrough choice.
// The bit-exact MBE codec math stays outside this module's scope; these
// implementations wrap a RawCoder the host process supplies and apply the
// gain policy around it.
package vocoder

import (
	"errors"
	"math"
)

// FrameSamples is the number of 8kHz PCM samples one voice codeword covers.
const FrameSamples = 160

// ErrNotConfigured is returned when a codec is used before a RawCoder has
// been wired to it (no vocoder library available in this build).
var ErrNotConfigured = errors.New("vocoder: no raw coder configured")

// RawCoder is the bit-exact MBE vocoder boundary: encode 160 int16 samples
// into a fixed-size codeword, or decode one back into 160 samples. A real
// deployment wires this to a cgo binding or an external USB vocoder
// process; it is treated as a black box here.
type RawCoder interface {
	Encode(samples []int16) ([]byte, error)
	Decode(codeword []byte) ([]int16, error)
	CodewordLen() int
}

// Capability is the trait CallBridge drives: encode/decode plus the gain
// policy applied around the raw codec.
type Capability interface {
	Encode(samples []int16) ([]byte, error)
	Decode(codeword []byte) ([]int16, error)
	Gain() float64
	AutoGain() bool
}

// Kind selects which concrete Capability New constructs.
type Kind int

const (
	KindIMBE Kind = iota
	KindDMRAMBE
	KindPassthrough
)

type codec struct {
	raw      RawCoder
	gain     float64
	autoGain bool
}

// New builds a Capability of the given kind, wired to raw. For the IMBE and
// DMR-AMBE kinds nil is accepted and produces a Capability that always
// returns ErrNotConfigured, useful when a build has no MBE vocoder
// available; KindPassthrough ignores raw.
func New(kind Kind, raw RawCoder, gain float64, autoGain bool) Capability {
	switch kind {
	case KindPassthrough:
		return &passthroughCodec{gain: gain, autoGain: autoGain}
	case KindIMBE, KindDMRAMBE:
		return &codec{raw: raw, gain: gain, autoGain: autoGain}
	default:
		return &codec{raw: raw, gain: gain, autoGain: autoGain}
	}
}

func (c *codec) Encode(samples []int16) ([]byte, error) {
	if c.raw == nil {
		return nil, ErrNotConfigured
	}
	return c.raw.Encode(applyGain(samples, c.gain))
}

func (c *codec) Decode(codeword []byte) ([]int16, error) {
	if c.raw == nil {
		return nil, ErrNotConfigured
	}
	return c.raw.Decode(codeword)
}

func (c *codec) Gain() float64     { return c.gain }
func (c *codec) AutoGain() bool    { return c.autoGain }

// passthroughCodec represents an external USB hardware vocoder: the host
// process hands raw codewords to/from a serial device rather than a
// software codec, so Encode/Decode here just apply gain around samples
// that are assumed to already be codeword-shaped bytes reinterpreted as
// PCM-equivalent (the real conversion happens on the USB device).
type passthroughCodec struct {
	gain     float64
	autoGain bool
}

func (p *passthroughCodec) Encode(samples []int16) ([]byte, error) {
	scaled := applyGain(samples, p.gain)
	out := make([]byte, len(scaled)*2)
	for i, s := range scaled {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out, nil
}

func (p *passthroughCodec) Decode(codeword []byte) ([]int16, error) {
	samples := make([]int16, len(codeword)/2)
	for i := range samples {
		samples[i] = int16(codeword[i*2]) | int16(codeword[i*2+1])<<8
	}
	return applyGain(samples, p.gain), nil
}

func (p *passthroughCodec) Gain() float64 { return p.gain }
func (p *passthroughCodec) AutoGain() bool { return p.autoGain }

// applyGain int16-saturates a volume scale over samples. gain <= 0 or == 1
// is a no-op.
func applyGain(samples []int16, gain float64) []int16 {
	if gain <= 0 || gain == 1 {
		return samples
	}
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s) * gain
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}
