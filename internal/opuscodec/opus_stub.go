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

//go:build !opus

package opuscodec

type stubEncoder struct{}

// NewEncoder returns a stub encoder when built without -tags opus; its
// Encode method always fails with ErrNotCompiled.
func NewEncoder(_ int) (Encoder, error) {
	return stubEncoder{}, nil
}

func (stubEncoder) Encode(_ []int16) ([]byte, error) {
	return nil, ErrNotCompiled
}

type stubDecoder struct {
	rate int
}

// NewDecoder returns a stub decoder when built without -tags opus; its
// Decode method always fails with ErrNotCompiled.
func NewDecoder(sampleRate int) (Decoder, error) {
	return stubDecoder{rate: sampleRate}, nil
}

func (stubDecoder) Decode(_ []byte) ([]int16, error) {
	return nil, ErrNotCompiled
}

func (d stubDecoder) SampleRate() int {
	return d.rate
}
