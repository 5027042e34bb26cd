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

package metrics_test

import (
	"net"
	"strconv"
	"testing"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMetricsServer_DisabledReturnsNil(t *testing.T) {
	t.Parallel()
	err := metrics.CreateMetricsServer(metrics.ServerConfig{Enabled: false}, metrics.NewMetrics())
	assert.NoError(t, err)
}

func TestCreateMetricsServer_PortInUseReturnsError(t *testing.T) {
	t.Parallel()

	// Occupy a port so the metrics server can't bind to it.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port

	err = metrics.CreateMetricsServer(metrics.ServerConfig{
		Enabled: true,
		Bind:    "127.0.0.1",
		Port:    port,
	}, metrics.NewMetrics())
	require.Error(t, err)

	expectedAddr := "127.0.0.1:" + strconv.Itoa(port)
	assert.Contains(t, err.Error(), expectedAddr)
}
