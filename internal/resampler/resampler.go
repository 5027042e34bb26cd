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

// Package resampler converts signed 16-bit PCM between sample rates by
// linear interpolation.
package resampler

// Resample converts input, sampled at inRate, to outRate using linear
// interpolation. It is not anti-aliased: for the 8kHz/16kHz ratio this
// gateway bridges, that is acceptable for voice intelligibility.
func Resample(input []int16, inRate, outRate int) []int16 {
	if inRate <= 0 || outRate <= 0 || len(input) == 0 {
		if inRate == outRate && len(input) > 0 {
			out := make([]int16, len(input))
			copy(out, input)
			return out
		}
		return nil
	}

	if inRate == outRate {
		out := make([]int16, len(input))
		copy(out, input)
		return out
	}

	outLen := len(input) * outRate / inRate
	out := make([]int16, outLen)
	for i := range out {
		p := float64(i) * float64(inRate) / float64(outRate)
		floor := int(p)
		frac := p - float64(floor)

		if floor+1 >= len(input) {
			out[i] = input[floor]
			continue
		}
		out[i] = int16((1-frac)*float64(input[floor]) + frac*float64(input[floor+1]))
	}
	return out
}
