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

// LCOCallAlert is the trunking signaling opcode for a page/call-alert TSBK.
const LCOCallAlert = 0x8F

// tsbkLen is the size of a single TSBK payload carried after the DFSI
// header: LCO + MFID + two reserved bytes + dst + src.
const tsbkLen = 1 + 1 + 2 + 4 + 4

// PackCallAlert builds a TSDU payload carrying a single CALL_ALRT TSBK, the
// page translation CallBridge sends to the radio side when Zello's text
// channel asks to page a talkgroup or unit.
func PackCallAlert(peerID, srcID, dstID uint32) []byte {
	payload := make([]byte, HeaderLen+tsbkLen)
	payload[0] = byte(DUIDTSDU)
	binary.BigEndian.PutUint32(payload[1:5], peerID)
	binary.BigEndian.PutUint32(payload[5:9], srcID)
	binary.BigEndian.PutUint32(payload[9:13], dstID)
	payload[totalLenOffset] = byte(len(payload))

	tsbk := payload[HeaderLen:]
	tsbk[0] = LCOCallAlert
	tsbk[1] = 0 // MFID: standard
	binary.BigEndian.PutUint32(tsbk[4:8], dstID)
	binary.BigEndian.PutUint32(tsbk[8:12], srcID)
	return payload
}

// IsCallAlert reports whether payload is a TSDU carrying a CALL_ALRT TSBK,
// returning the source and destination IDs it names.
func IsCallAlert(payload []byte) (srcID, dstID uint32, ok bool) {
	if len(payload) < HeaderLen+tsbkLen {
		return 0, 0, false
	}
	if DUID(payload[0]) != DUIDTSDU {
		return 0, 0, false
	}
	tsbk := payload[HeaderLen:]
	if tsbk[0] != LCOCallAlert {
		return 0, 0, false
	}
	dstID = binary.BigEndian.Uint32(tsbk[4:8])
	srcID = binary.BigEndian.Uint32(tsbk[8:12])
	return srcID, dstID, true
}
