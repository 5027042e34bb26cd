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

// Package opuscodec wraps the Zello leg's Opus encode/decode behind a
// cgo-gated binding, with a pure-Go stub fallback when built without the
// "opus" build tag (no libopus development headers available).
package opuscodec

import "errors"

// MaxFrameBytes bounds an encoded Opus frame, matching Zello's packet size.
const MaxFrameBytes = 1275

// ErrNotCompiled is returned by the stub build when Opus support wasn't
// compiled in (build without -tags opus).
var ErrNotCompiled = errors.New("opuscodec: opus support not compiled in, rebuild with -tags opus")

// Encoder encodes 20ms-multiple PCM frames to Opus.
type Encoder interface {
	Encode(pcm []int16) ([]byte, error)
}

// Decoder decodes Opus frames back to PCM at its configured sample rate.
type Decoder interface {
	Decode(data []byte) ([]int16, error)
	SampleRate() int
}
