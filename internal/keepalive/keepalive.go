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

// Package keepalive runs the periodic ping timer shared by the Zello
// session and the FNE peer connection. It only ever raises an event; it
// never touches a socket itself.
package keepalive

import (
	"sync"
	"time"
)

// Timer fires a Ping event on every tick of interval and tracks outstanding
// pongs for advisory telemetry. AwaitingPong is never observed to force a
// disconnect — it is kept for visibility only, matching the behavior of the
// system this gateway replaces.
type Timer struct {
	interval time.Duration
	pings    chan struct{}
	done     chan struct{}

	mu           sync.Mutex
	pingCount    uint64
	awaitingPong bool
	wg           sync.WaitGroup
}

// NewTimer constructs a Timer that has not yet been started.
func NewTimer(interval time.Duration) *Timer {
	return &Timer{
		interval: interval,
		pings:    make(chan struct{}, 1),
	}
}

// Pings is the channel the owner drains to learn a ping should be sent.
func (t *Timer) Pings() <-chan struct{} {
	return t.pings
}

// Start begins the ticking goroutine. Safe to call once per session; call
// Stop before Start-ing again.
func (t *Timer) Start() {
	t.done = make(chan struct{})
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case t.pings <- struct{}{}:
				default:
					// Previous ping event hasn't been drained yet; skip this tick
					// rather than block the timer goroutine.
				}
			case <-t.done:
				return
			}
		}
	}()
}

// Stop halts the ticking goroutine. Called on Dispose or before reconnect.
func (t *Timer) Stop() {
	if t.done == nil {
		return
	}
	close(t.done)
	t.wg.Wait()
	t.done = nil
}

// MarkPingSent records that a ping was just sent.
func (t *Timer) MarkPingSent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pingCount++
	t.awaitingPong = true
}

// MarkPongReceived clears the advisory awaiting-pong flag.
func (t *Timer) MarkPongReceived() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.awaitingPong = false
}

// PingCount returns the number of pings sent so far.
func (t *Timer) PingCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pingCount
}

// AwaitingPong reports whether a pong is outstanding. Advisory only.
func (t *Timer) AwaitingPong() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.awaitingPong
}
