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

package p25frame

import "encoding/binary"

// AMBELen is the size in bytes of one DMR AMBE voice codeword (AMBE+2,
// 49 bits packed to a 9-byte frame with padding).
const AMBELen = 9

// DMRVoiceBurst carries the three AMBE codewords of one DMR voice superframe
// (the parity DMR analogue of an LDU), plus the slot and call data needed
// to frame it for the FNE peer.
type DMRVoiceBurst struct {
	Slot  Timeslot
	SrcID uint32
	DstID uint32
}

// Timeslot identifies which of the two DMR logical timeslots a burst belongs to.
type Timeslot uint8

const (
	Timeslot1 Timeslot = 1
	Timeslot2 Timeslot = 2
)

// dmrHeaderLen mirrors the P25 header's role: slot + src + dst.
const dmrHeaderLen = 9

// PackDMRVoice builds a DMR voice-burst payload from three AMBE codewords.
func PackDMRVoice(burst DMRVoiceBurst, codewords [3][AMBELen]byte) []byte {
	payload := make([]byte, dmrHeaderLen+3*AMBELen)
	payload[0] = byte(burst.Slot)
	binary.BigEndian.PutUint32(payload[1:5], burst.SrcID)
	binary.BigEndian.PutUint32(payload[5:9], burst.DstID)
	for i, cw := range codewords {
		off := dmrHeaderLen + i*AMBELen
		copy(payload[off:off+AMBELen], cw[:])
	}
	return payload
}

// UnpackDMRVoice reverses PackDMRVoice.
func UnpackDMRVoice(payload []byte) (DMRVoiceBurst, [3][AMBELen]byte, error) {
	var codewords [3][AMBELen]byte
	if len(payload) < dmrHeaderLen+3*AMBELen {
		return DMRVoiceBurst{}, codewords, ErrShortPayload
	}
	burst := DMRVoiceBurst{
		Slot:  Timeslot(payload[0]),
		SrcID: binary.BigEndian.Uint32(payload[1:5]),
		DstID: binary.BigEndian.Uint32(payload[5:9]),
	}
	for i := range codewords {
		off := dmrHeaderLen + i*AMBELen
		copy(codewords[i][:], payload[off:off+AMBELen])
	}
	return burst, codewords, nil
}
