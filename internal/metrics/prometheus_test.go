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
	"testing"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCallStartedIncrementsCounter(t *testing.T) {
	m := metrics.NewMetrics()
	m.RecordCallStarted(metrics.DirectionZelloToRadio)
	m.RecordCallStarted(metrics.DirectionZelloToRadio)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CallsStartedTotal.WithLabelValues(metrics.DirectionZelloToRadio)))
}

func TestRecordCallEndedRecordsDurationAndCount(t *testing.T) {
	m := metrics.NewMetrics()
	m.RecordCallEnded(metrics.DirectionRadioToZello, 2.5)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CallsEndedTotal.WithLabelValues(metrics.DirectionRadioToZello)))
}

func TestRecordReconnectIncrementsPerLeg(t *testing.T) {
	m := metrics.NewMetrics()
	m.RecordReconnect("zello")
	m.RecordReconnect("zello")
	m.RecordReconnect("fne")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ReconnectsTotal.WithLabelValues("zello")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReconnectsTotal.WithLabelValues("fne")))
}

func TestRecordCodecErrorIncrementsByDirectionAndKind(t *testing.T) {
	m := metrics.NewMetrics()
	m.RecordCodecError(metrics.DirectionZelloToRadio, "encode")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CodecErrorsTotal.WithLabelValues(metrics.DirectionZelloToRadio, "encode")))
}

func TestRecordEncryptedCallDroppedIncrementsCounter(t *testing.T) {
	m := metrics.NewMetrics()
	m.RecordEncryptedCallDropped()
	m.RecordEncryptedCallDropped()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.EncryptedCallsDroppedTotal))
}
