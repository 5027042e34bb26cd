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

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrZelloServerURLRequired indicates the Zello WebSocket URL is missing.
	ErrZelloServerURLRequired = errors.New("zello server URL is required")
	// ErrZelloChannelRequired indicates the Zello channel name is missing.
	ErrZelloChannelRequired = errors.New("zello channel is required")
	// ErrZelloUsernameRequired indicates the Zello username is missing.
	ErrZelloUsernameRequired = errors.New("zello username is required")
	// ErrFNEAddressRequired indicates the FNE master address is missing.
	ErrFNEAddressRequired = errors.New("FNE master address is required")
	// ErrFNEPeerIDRequired indicates the FNE peer ID is unset.
	ErrFNEPeerIDRequired = errors.New("FNE peer ID is required")
	// ErrInvalidTxMode indicates BridgeConfig.TxMode is neither "dmr" nor "p25".
	ErrInvalidTxMode = errors.New("bridge txMode must be \"dmr\" or \"p25\"")
	// ErrInvalidDestinationID indicates BridgeConfig.DestinationID is unset.
	ErrInvalidDestinationID = errors.New("bridge destinationId is required")
	// ErrInvalidMetricsBindAddress indicates the metrics server bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates the metrics server port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrInvalidStatusBindAddress indicates the status server bind address is not valid.
	ErrInvalidStatusBindAddress = errors.New("invalid status server bind address provided")
	// ErrInvalidStatusPort indicates the status server port is not valid.
	ErrInvalidStatusPort = errors.New("invalid status server port provided")
)

// Validate checks the loaded configuration for the fields every gateway
// deployment must set, returning the first problem found.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
	default:
		return ErrInvalidLogLevel
	}

	if c.Zello.ServerURL == "" {
		return ErrZelloServerURLRequired
	}
	if c.Zello.Channel == "" {
		return ErrZelloChannelRequired
	}
	if c.Zello.Username == "" {
		return ErrZelloUsernameRequired
	}

	if c.FNE.Address == "" {
		return ErrFNEAddressRequired
	}
	if c.FNE.PeerID == 0 {
		return ErrFNEPeerIDRequired
	}

	switch c.Bridge.TxMode {
	case TxModeDMR, TxModeP25:
	default:
		return ErrInvalidTxMode
	}
	if c.Bridge.DestinationID == 0 {
		return ErrInvalidDestinationID
	}

	if c.Metrics.Enabled {
		if c.Metrics.Bind == "" {
			return ErrInvalidMetricsBindAddress
		}
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return ErrInvalidMetricsPort
		}
	}

	if c.Status.Enabled {
		if c.Status.Bind == "" {
			return ErrInvalidStatusBindAddress
		}
		if c.Status.Port <= 0 || c.Status.Port > 65535 {
			return ErrInvalidStatusPort
		}
	}

	return nil
}
