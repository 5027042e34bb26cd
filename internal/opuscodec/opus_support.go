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

//go:build opus

package opuscodec

import (
	"fmt"

	opus "gopkg.in/hraban/opus.v2"
)

type encoder struct {
	enc *opus.Encoder
}

// NewEncoder builds a mono Opus encoder tuned for voice at sampleRate.
func NewEncoder(sampleRate int) (Encoder, error) {
	enc, err := opus.NewEncoder(sampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("opuscodec: creating encoder: %w", err)
	}
	return &encoder{enc: enc}, nil
}

func (e *encoder) Encode(pcm []int16) ([]byte, error) {
	buf := make([]byte, MaxFrameBytes)
	n, err := e.enc.Encode(pcm, buf)
	if err != nil {
		return nil, fmt.Errorf("opuscodec: encode: %w", err)
	}
	return buf[:n], nil
}

type decoder struct {
	dec  *opus.Decoder
	rate int
}

// NewDecoder builds a mono Opus decoder at sampleRate.
func NewDecoder(sampleRate int) (Decoder, error) {
	dec, err := opus.NewDecoder(sampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("opuscodec: creating decoder: %w", err)
	}
	return &decoder{dec: dec, rate: sampleRate}, nil
}

func (d *decoder) Decode(data []byte) ([]int16, error) {
	const maxFrameMs = 60
	pcm := make([]int16, d.rate/1000*maxFrameMs)
	n, err := d.dec.Decode(data, pcm)
	if err != nil {
		return nil, fmt.Errorf("opuscodec: decode: %w", err)
	}
	return pcm[:n], nil
}

func (d *decoder) SampleRate() int {
	return d.rate
}
