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

// Package p25frame packs and unpacks P25 DFSI LDU1/LDU2 voice super-frames,
// and the DMR voice-burst analogue, between a scratch codeword buffer and
// the wire payload the FNE peer carries.
package p25frame

import (
	"encoding/binary"
	"errors"
)

// ScratchLen is the size of the net LDU scratch buffer: 9 IMBE codewords of
// 11 bytes each plus interleaved control fragments.
const ScratchLen = 225

// ScratchVoiceOffsets are the fixed byte offsets of the nine IMBE codewords
// inside the scratch buffer. These MUST match on pack and unpack.
var ScratchVoiceOffsets = [9]int{10, 26, 55, 80, 105, 130, 155, 180, 204}

// IMBELen is the size in bytes of one IMBE voice codeword (DMR AMBE
// codewords use AMBELen).
const IMBELen = 11

// LDUBuffer is the 225-byte net LDU scratch buffer CallBridge accumulates
// nine voice codewords into before packing, or unpacks them into on receipt.
type LDUBuffer [ScratchLen]byte

// SetVoice stores codeword n (0..8) at its fixed scratch offset.
func (b *LDUBuffer) SetVoice(n int, codeword [IMBELen]byte) {
	off := ScratchVoiceOffsets[n]
	copy(b[off:off+IMBELen], codeword[:])
}

// Voice returns codeword n (0..8) from its fixed scratch offset.
func (b *LDUBuffer) Voice(n int) [IMBELen]byte {
	off := ScratchVoiceOffsets[n]
	var cw [IMBELen]byte
	copy(cw[:], b[off:off+IMBELen])
	return cw
}

// DUID identifies a P25 message's data unit type.
type DUID byte

const (
	DUIDHDU  DUID = 0x0
	DUIDTDU  DUID = 0x3
	DUIDLDU1 DUID = 0x5
	DUIDTSDU DUID = 0x7
	DUIDLDU2 DUID = 0xA
	DUIDPDU  DUID = 0xC
)

// AlgIDUnencrypted is the P25 algorithm ID meaning "not encrypted".
const AlgIDUnencrypted = 0x80

// HeaderLen is the size of the fixed DFSI message header preceding the nine
// voice frames (DUID, call data, peer IDs, and the total-length byte).
const HeaderLen = 24

// totalLenOffset is the header byte holding the total payload length.
const totalLenOffset = 23

// frameOffsets are the byte offsets, within the data segment (i.e. after
// HeaderLen), of each of the nine voice frames' frame-type marker.
var frameOffsets = [9]int{0, 22, 36, 53, 70, 87, 104, 121, 138}

// frameIMBEOffset is the offset of the IMBE codeword within each voice
// frame, measured from that frame's own frame-type byte.
var frameIMBEOffset = [9]int{10, 1, 5, 5, 5, 5, 5, 5, 4}

// lastFrameLen is the length of the ninth voice frame (frame-type byte,
// 3 content bytes, 11 IMBE bytes, 1 trailing byte).
const lastFrameLen = 16

// DataSegmentLen is the length of the nine-voice-frame data segment that
// follows the header.
var DataSegmentLen = frameOffsets[8] + lastFrameLen

var ldu1FrameTypes = [9]byte{0x62, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6A}
var ldu2FrameTypes = [9]byte{0x6B, 0x6C, 0x6D, 0x6E, 0x6F, 0x70, 0x71, 0x72, 0x73}

var (
	// ErrShortPayload is returned when a wire payload is too short to hold a full LDU.
	ErrShortPayload = errors.New("p25frame: payload too short for LDU")
	// ErrFrameTypeMismatch is returned when a voice frame's type byte doesn't match the expected marker.
	ErrFrameTypeMismatch = errors.New("p25frame: frame-type marker mismatch")
)

// LDU1CallData carries the Link Control fields packed into an LDU1 frame.
type LDU1CallData struct {
	PeerID         uint32
	SrcID          uint32
	DstID          uint32
	LCO            byte
	MFID           byte
	ServiceOptions byte
	LSD            [2]byte
}

// PackLDU1 builds a DFSI LDU1 payload from the scratch buffer's nine voice
// codewords and the supplied call data.
func PackLDU1(buf *LDUBuffer, call LDU1CallData) []byte {
	payload := make([]byte, HeaderLen+DataSegmentLen)
	payload[0] = byte(DUIDLDU1)
	binary.BigEndian.PutUint32(payload[1:5], call.PeerID)
	binary.BigEndian.PutUint32(payload[5:9], call.SrcID)
	binary.BigEndian.PutUint32(payload[9:13], call.DstID)
	payload[totalLenOffset] = byte(len(payload))

	data := payload[HeaderLen:]
	for i := range 9 {
		writeVoiceFrame(data, ldu1FrameTypes[i], frameOffsets[i], frameIMBEOffset[i], buf.Voice(i))
	}

	put24(data[frameOffsets[2]+1:], uint32(call.LCO)<<16|uint32(call.MFID)<<8|uint32(call.ServiceOptions))
	put24(data[frameOffsets[3]+1:], call.DstID)
	put24(data[frameOffsets[4]+1:], call.SrcID)
	data[frameOffsets[8]+1] = call.LSD[0]
	data[frameOffsets[8]+2] = call.LSD[1]

	return payload
}

// UnpackLDU1 verifies the LDU1 frame-type markers and extracts the nine
// voice codewords into buf, returning the decoded call data. On a
// frame-type mismatch the LDU is dropped silently by the caller; this
// function reports that condition as ErrFrameTypeMismatch.
func UnpackLDU1(payload []byte, buf *LDUBuffer) (LDU1CallData, error) {
	if len(payload) < HeaderLen+DataSegmentLen {
		return LDU1CallData{}, ErrShortPayload
	}
	data := payload[HeaderLen:]
	for i := range 9 {
		if err := readVoiceFrame(data, ldu1FrameTypes[i], frameOffsets[i], frameIMBEOffset[i], buf, i); err != nil {
			return LDU1CallData{}, err
		}
	}

	var call LDU1CallData
	call.PeerID = binary.BigEndian.Uint32(payload[1:5])
	call.SrcID = binary.BigEndian.Uint32(payload[5:9])
	call.DstID = binary.BigEndian.Uint32(payload[9:13])
	lco := get24(data[frameOffsets[2]+1:])
	call.LCO = byte(lco >> 16)
	call.MFID = byte(lco >> 8)
	call.ServiceOptions = byte(lco)
	call.LSD[0] = data[frameOffsets[8]+1]
	call.LSD[1] = data[frameOffsets[8]+2]
	return call, nil
}

// LDU2CallData carries the Encryption Sync fields packed into an LDU2 frame.
type LDU2CallData struct {
	PeerID uint32
	MI     [9]byte // message indicator, spread across V12-V14
	AlgID  byte
	KeyID  byte
	LSD    [2]byte
}

// PackLDU2 builds a DFSI LDU2 payload from the scratch buffer's nine voice
// codewords and the supplied encryption-sync data.
func PackLDU2(buf *LDUBuffer, call LDU2CallData) []byte {
	payload := make([]byte, HeaderLen+DataSegmentLen)
	payload[0] = byte(DUIDLDU2)
	binary.BigEndian.PutUint32(payload[1:5], call.PeerID)
	payload[totalLenOffset] = byte(len(payload))

	data := payload[HeaderLen:]
	for i := range 9 {
		writeVoiceFrame(data, ldu2FrameTypes[i], frameOffsets[i], frameIMBEOffset[i], buf.Voice(i))
	}

	// MI spread across V12, V13, V14 (frame indices 2, 3, 4): 3 bytes each.
	copy(data[frameOffsets[2]+1:frameOffsets[2]+4], call.MI[0:3])
	copy(data[frameOffsets[3]+1:frameOffsets[3]+4], call.MI[3:6])
	copy(data[frameOffsets[4]+1:frameOffsets[4]+4], call.MI[6:9])
	// Algorithm ID + key ID in V15 (frame index 5).
	data[frameOffsets[5]+1] = call.AlgID
	data[frameOffsets[5]+2] = call.KeyID
	// LSD in V18 (frame index 8).
	data[frameOffsets[8]+1] = call.LSD[0]
	data[frameOffsets[8]+2] = call.LSD[1]

	return payload
}

// UnpackLDU2 verifies the LDU2 frame-type markers and extracts the nine
// voice codewords into buf, returning the decoded encryption-sync data.
func UnpackLDU2(payload []byte, buf *LDUBuffer) (LDU2CallData, error) {
	if len(payload) < HeaderLen+DataSegmentLen {
		return LDU2CallData{}, ErrShortPayload
	}
	data := payload[HeaderLen:]
	for i := range 9 {
		if err := readVoiceFrame(data, ldu2FrameTypes[i], frameOffsets[i], frameIMBEOffset[i], buf, i); err != nil {
			return LDU2CallData{}, err
		}
	}

	var call LDU2CallData
	call.PeerID = binary.BigEndian.Uint32(payload[1:5])
	copy(call.MI[0:3], data[frameOffsets[2]+1:frameOffsets[2]+4])
	copy(call.MI[3:6], data[frameOffsets[3]+1:frameOffsets[3]+4])
	copy(call.MI[6:9], data[frameOffsets[4]+1:frameOffsets[4]+4])
	call.AlgID = data[frameOffsets[5]+1]
	call.KeyID = data[frameOffsets[5]+2]
	call.LSD[0] = data[frameOffsets[8]+1]
	call.LSD[1] = data[frameOffsets[8]+2]
	return call, nil
}

// tduFlagOffset is the header's reserved byte carrying tduFlagGrant or
// tduFlagTerminator; it never overlaps the peer/src/dst fields or the
// length byte.
const tduFlagOffset = 13

const (
	tduFlagTerminator byte = 0x00
	tduFlagGrant      byte = 0x01
)

func packTDU(flag byte, peerID, srcID, dstID uint32) []byte {
	payload := make([]byte, HeaderLen)
	payload[0] = byte(DUIDTDU)
	binary.BigEndian.PutUint32(payload[1:5], peerID)
	binary.BigEndian.PutUint32(payload[5:9], srcID)
	binary.BigEndian.PutUint32(payload[9:13], dstID)
	payload[tduFlagOffset] = flag
	payload[totalLenOffset] = byte(len(payload))
	return payload
}

// PackGrantDemand builds a TDU carrying the grant-request flag. CallBridge
// sends this ahead of the first voice frame of an ingress call when
// GrantDemand is configured, asking the master to allocate a channel
// before audio starts flowing. The same framing serves a DMR ingress call
// too: the FNE data channel this bridge speaks carries both technologies'
// call control over the identical peer/src/dst header.
func PackGrantDemand(peerID, srcID, dstID uint32) []byte {
	return packTDU(tduFlagGrant, peerID, srcID, dstID)
}

// PackTerminator builds a plain end-of-call TDU, sent when an ingress
// call's source stream stops so the master (and any DMR peer on the far
// side) knows the channel is free again.
func PackTerminator(peerID, srcID, dstID uint32) []byte {
	return packTDU(tduFlagTerminator, peerID, srcID, dstID)
}

// HDUAlgID extracts the encryption algorithm ID an egress LDU1 carries, if
// its V1 frame-type byte (offset 180 in the raw payload) indicates a valid
// HDU header. ok is false when the marker isn't present, in which case the
// caller should fall back to the LDU2 byte-88 check instead.
func HDUAlgID(rawPayload []byte) (algID byte, ok bool) {
	const hduFlagOffset = 180
	const algIDOffset = 181
	if len(rawPayload) <= algIDOffset {
		return 0, false
	}
	if rawPayload[hduFlagOffset] != 0x01 {
		return 0, false
	}
	return rawPayload[algIDOffset], true
}

// LDU2AlgID reads the algorithm ID from an unpacked LDU2's byte 88, as the
// fallback path when an LDU1 doesn't carry HDU-valid framing.
func LDU2AlgID(unpackedPayload []byte) (algID byte, ok bool) {
	const offset = 88
	if len(unpackedPayload) <= offset {
		return 0, false
	}
	return unpackedPayload[offset], true
}

func writeVoiceFrame(data []byte, frameType byte, frameOffset, imbeOffsetInFrame int, cw [IMBELen]byte) {
	data[frameOffset] = frameType
	imbeOff := frameOffset + imbeOffsetInFrame
	copy(data[imbeOff:imbeOff+IMBELen], cw[:])
}

func readVoiceFrame(data []byte, expectedFrameType byte, frameOffset, imbeOffsetInFrame int, buf *LDUBuffer, voiceIndex int) error {
	if data[frameOffset] != expectedFrameType {
		return ErrFrameTypeMismatch
	}
	imbeOff := frameOffset + imbeOffsetInFrame
	var cw [IMBELen]byte
	copy(cw[:], data[imbeOff:imbeOff+IMBELen])
	buf.SetVoice(voiceIndex, cw)
	return nil
}

func put24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func get24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
