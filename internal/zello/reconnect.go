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

package zello

import (
	"fmt"
	"time"
)

// Reconnect disposes the old socket and retries connect+authenticate up
// to maxReconnectAttempts times, reconnectDelay apart. It is idempotent:
// once stopReconnect is set, it short-circuits until something external
// clears it via ResetReconnect.
func (s *Session) Reconnect() error {
	if s.stopReconnect.Load() {
		return ErrStopReconnect
	}
	s.setState(StateReconnecting)

	s.writeMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.writeMu.Unlock()

	var lastErr error
	for attempt := range maxReconnectAttempts {
		if attempt > 0 {
			time.Sleep(reconnectDelay)
		}
		if err := s.Connect(); err != nil {
			lastErr = err
			continue
		}
		if err := s.Authenticate(); err != nil {
			lastErr = err
			continue
		}
		s.stopReconnect.Store(false)
		return nil
	}

	s.stopReconnect.Store(true)
	return fmt.Errorf("zello: %w: %w", ErrStopReconnect, lastErr)
}

// ResetReconnect clears the sticky stop_reconnect flag, allowing a future
// Reconnect call to retry after an external intervention.
func (s *Session) ResetReconnect() {
	s.stopReconnect.Store(false)
}

// StopReconnectActive reports whether reconnects are currently disabled.
func (s *Session) StopReconnectActive() bool {
	return s.stopReconnect.Load()
}
