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

// Package config holds the gateway's immutable, once-loaded configuration.
package config

import "time"

// Config stores the full gateway configuration, loaded once at startup via
// configulator and passed by pointer rather than read from package-global
// mutable state.
type Config struct {
	LogLevel LogLevel
	Zello    ZelloConfig
	FNE      FNEConfig
	Bridge   BridgeConfig
	Metrics  MetricsConfig
	Status   StatusConfig
}

// ZelloConfig carries everything internal/zello needs to dial and
// authenticate a channel session.
type ZelloConfig struct {
	ServerURL    string        `yaml:"serverUrl"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Channel      string        `yaml:"channel"`
	AuthIssuer   string        `yaml:"authIssuer"`
	AuthKeyPath  string        `yaml:"authKeyPath"`
	PingInterval time.Duration `yaml:"pingInterval"`
	SourceID     uint32        `yaml:"sourceId"`
	AliasFile    string        `yaml:"aliasFile"`
}

// FNEConfig carries everything internal/fne needs to log into an FNE master.
type FNEConfig struct {
	Address  string `yaml:"address"`
	PeerID   uint32 `yaml:"peerId"`
	Password string `yaml:"password"`
	Callsign string `yaml:"callsign"`
}

// BridgeConfig carries internal/bridge.Config's fields (except SourceID,
// which comes from ZelloConfig) plus the janitor interval, in the shape a
// human edits a config file with rather than the package's internal types.
// There is no separate vocoder field: the vocoder kind follows TxMode.
type BridgeConfig struct {
	DestinationID           uint32  `yaml:"destinationId"`
	TxMode                  string  `yaml:"txMode"` // "dmr" or "p25"
	OverrideSourceIDFromUDP bool    `yaml:"overrideSourceIdFromUdp"`
	GrantDemand             bool    `yaml:"grantDemand"`
	RxAudioGain             float64 `yaml:"rxAudioGain"`
	TxAudioGain             float64 `yaml:"txAudioGain"`
	VocoderDecoderAudioGain float64 `yaml:"vocoderDecoderAudioGain"`
	VocoderEncoderAudioGain float64 `yaml:"vocoderEncoderAudioGain"`
	VocoderDecoderAutoGain  bool    `yaml:"vocoderDecoderAutoGain"`
	DropTimeMs              int     `yaml:"dropTimeMs"`
	JanitorIntervalMs       int     `yaml:"janitorIntervalMs"`
}

// MetricsConfig configures the Prometheus exposition server and, when
// OTLPEndpoint is set, OpenTelemetry trace export.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Bind         string `yaml:"bind"`
	Port         int    `yaml:"port"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
}

// StatusConfig configures the /healthz and /status HTTP routes.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}
