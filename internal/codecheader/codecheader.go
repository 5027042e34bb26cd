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

// Package codecheader decodes and encodes Zello's 4-byte codec descriptor.
package codecheader

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
)

// ErrInvalidHeader is returned when a codec header does not decode to
// exactly 4 bytes.
var ErrInvalidHeader = errors.New("codecheader: invalid header length")

const headerLen = 4

// Attributes describes a Zello Opus stream's framing.
type Attributes struct {
	SampleRateHz    uint16
	FramesPerPacket uint8
	FrameSizeMs     uint8
}

// Default is the attribute set assumed when a stream has no codec header
// bound to it.
var Default = Attributes{SampleRateHz: 16000, FramesPerPacket: 1, FrameSizeMs: 60}

// OutboundHeader is the constant codec header this gateway advertises on
// start_stream: 16000 Hz, 1 frame/packet, 60 ms.
var OutboundHeader = [headerLen]byte{0x80, 0x3E, 0x01, 0x3C}

// FrameLength returns the number of samples carried by one packet at these
// attributes, using integer arithmetic with no rounding.
func (a Attributes) FrameLength() int {
	return int(a.SampleRateHz) * int(a.FrameSizeMs) / 1000 * int(a.FramesPerPacket)
}

// Encode renders attributes as the base64 codec header Zello expects.
func Encode(a Attributes) string {
	b := make([]byte, headerLen)
	binary.LittleEndian.PutUint16(b[0:2], a.SampleRateHz)
	b[2] = a.FramesPerPacket
	b[3] = a.FrameSizeMs
	return base64.StdEncoding.EncodeToString(b)
}

// Decode parses a base64-encoded 4-byte codec header.
func Decode(b64 string) (Attributes, error) {
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Attributes{}, errors.Join(ErrInvalidHeader, err)
	}
	if len(b) != headerLen {
		return Attributes{}, ErrInvalidHeader
	}
	return Attributes{
		SampleRateHz:    binary.LittleEndian.Uint16(b[0:2]),
		FramesPerPacket: b[2],
		FrameSizeMs:     b[3],
	}, nil
}
