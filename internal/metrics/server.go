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

package metrics

import (
	"fmt"
	"net/http"
	"time"
)

const readTimeout = 3 * time.Second

// ServerConfig is the subset of gateway configuration CreateMetricsServer
// needs, kept local to this package so it has no dependency on internal/config.
type ServerConfig struct {
	Enabled bool
	Bind    string
	Port    int
}

// CreateMetricsServer blocks serving m's collectors at /metrics until the
// listener fails. It returns nil immediately if metrics are disabled, and
// returns (rather than panics on) a bind error so the caller can report it
// cleanly.
func CreateMetricsServer(cfg ServerConfig, m *Metrics) error {
	if !cfg.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}
	if err := server.ListenAndServe(); err != nil {
		return fmt.Errorf("metrics server on %s: %w", server.Addr, err)
	}
	return nil
}
