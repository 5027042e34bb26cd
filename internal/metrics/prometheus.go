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
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's call-lifecycle collectors against their own
// registry, rather than the global default, so a test or a second gateway
// instance in the same process can build one without colliding.
type Metrics struct {
	registry *prometheus.Registry

	CallsStartedTotal          *prometheus.CounterVec
	CallsEndedTotal            *prometheus.CounterVec
	CallDurationSeconds        *prometheus.HistogramVec
	ReconnectsTotal            *prometheus.CounterVec
	CodecErrorsTotal           *prometheus.CounterVec
	EncryptedCallsDroppedTotal prometheus.Counter
}

// direction label values for CallsStartedTotal/CallsEndedTotal/CallDurationSeconds.
const (
	DirectionZelloToRadio = "zello_to_radio"
	DirectionRadioToZello = "radio_to_zello"
)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CallsStartedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_calls_started_total",
			Help: "The total number of calls that began on either leg",
		}, []string{"direction"}),
		CallsEndedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_calls_ended_total",
			Help: "The total number of calls that ended on either leg",
		}, []string{"direction"}),
		CallDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_call_duration_seconds",
			Help:    "Duration of a bridged call from start to end",
			Buckets: prometheus.DefBuckets,
		}, []string{"direction"}),
		ReconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_reconnects_total",
			Help: "The total number of reconnect attempts per leg",
		}, []string{"leg"}),
		CodecErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_codec_errors_total",
			Help: "The total number of vocoder encode/decode failures",
		}, []string{"direction", "kind"}),
		EncryptedCallsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_encrypted_calls_dropped_total",
			Help: "The total number of radio calls dropped because they carried encryption",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	m.registry.MustRegister(m.CallsStartedTotal)
	m.registry.MustRegister(m.CallsEndedTotal)
	m.registry.MustRegister(m.CallDurationSeconds)
	m.registry.MustRegister(m.ReconnectsTotal)
	m.registry.MustRegister(m.CodecErrorsTotal)
	m.registry.MustRegister(m.EncryptedCallsDroppedTotal)
}

// Handler serves this Metrics instance's collectors in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordCallStarted(direction string) {
	m.CallsStartedTotal.WithLabelValues(direction).Inc()
}

func (m *Metrics) RecordCallEnded(direction string, durationSeconds float64) {
	m.CallsEndedTotal.WithLabelValues(direction).Inc()
	m.CallDurationSeconds.WithLabelValues(direction).Observe(durationSeconds)
}

func (m *Metrics) RecordReconnect(leg string) {
	m.ReconnectsTotal.WithLabelValues(leg).Inc()
}

func (m *Metrics) RecordCodecError(direction, kind string) {
	m.CodecErrorsTotal.WithLabelValues(direction, kind).Inc()
}

func (m *Metrics) RecordEncryptedCallDropped() {
	m.EncryptedCallsDroppedTotal.Inc()
}
