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

package bridge

import "github.com/USA-RedDragon/ZelloFNEGateway/internal/p25frame"

// onRadioCommand is the Zello-to-radio page translation: a "page <dst>"
// text alert on the Zello channel becomes a TSBK CALL_ALRT sent to the
// FNE master.
func (b *CallBridge) onRadioCommand(cmd string, src, dst uint32) {
	if cmd != "page" {
		return
	}

	srcID := src
	if srcID == 0 {
		srcID = b.cfg.SourceID
	}

	payload := p25frame.PackCallAlert(b.cfg.SourceID, srcID, dst)
	seq := b.peer.PktSeq(false)
	if err := b.peer.SendMaster(payload, seq, 0); err != nil {
		b.log.Warn("bridge: sending page to master failed", "error", err)
		return
	}
	b.log.Info("bridge: zello page forwarded to radio", "src", srcID, "dst", dst)
}
