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

// Package gateway wires the FNE peer leg, the Zello session leg, and the
// call bridge between them into a single supervised process, the way
// cmd/root.go's serverManager supervises DMRHub's protocol servers.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/aliasmap"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/bridge"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/config"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/fne"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/httpstatus"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/metrics"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/vocoder"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/zello"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"
)

// reconnectBackoff is how long the supervising loops wait after a leg's
// Run returns before redialing.
const reconnectBackoff = 5 * time.Second

// Host owns the FNE peer, the Zello session, the CallBridge joining them,
// the janitor job that times out stale egress calls, and the status HTTP
// server. The metrics HTTP server is started by cmd/root.go, not by Host.
// It does not itself touch the network until Run is called.
type Host struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	peer    *fne.Peer
	session *zello.Session
	bridge  *bridge.CallBridge

	scheduler    gocron.Scheduler
	statusServer *httpstatus.Server
}

// New constructs every leg of the gateway from cfg but starts no network
// I/O; call Run to start serving.
func New(cfg *config.Config, log *slog.Logger) (*Host, error) {
	peer, err := fne.NewPeer(fne.Config{
		Address:  cfg.FNE.Address,
		PeerID:   cfg.FNE.PeerID,
		Password: cfg.FNE.Password,
		Callsign: cfg.FNE.Callsign,
	}, log.With("component", "fne"))
	if err != nil {
		return nil, fmt.Errorf("gateway: creating FNE peer: %w", err)
	}

	pem, err := readIfSet(cfg.Zello.AuthKeyPath)
	if err != nil {
		return nil, fmt.Errorf("gateway: reading zello auth key: %w", err)
	}
	session, err := zello.NewSession(zello.Config{
		URL:          cfg.Zello.ServerURL,
		Username:     cfg.Zello.Username,
		Password:     cfg.Zello.Password,
		Channel:      cfg.Zello.Channel,
		Issuer:       cfg.Zello.AuthIssuer,
		PemFilePath:  cfg.Zello.AuthKeyPath,
		PingInterval: cfg.Zello.PingInterval,
		SourceID:     cfg.Zello.SourceID,
	}, pem, log.With("component", "zello"))
	if err != nil {
		return nil, fmt.Errorf("gateway: creating zello session: %w", err)
	}

	aliases, err := loadAliases(cfg.Zello.AliasFile)
	if err != nil {
		return nil, fmt.Errorf("gateway: loading alias file: %w", err)
	}

	kind := vocoder.KindIMBE
	txMode := bridge.TxModeP25
	if cfg.Bridge.TxMode == config.TxModeDMR {
		kind = vocoder.KindDMRAMBE
		txMode = bridge.TxModeDMR
	}
	coder := vocoder.New(kind, nil, cfg.Bridge.VocoderEncoderAudioGain, cfg.Bridge.VocoderDecoderAutoGain)

	m := metrics.NewMetrics()

	b := bridge.New(bridge.Config{
		SourceID:                cfg.Zello.SourceID,
		DestinationID:           cfg.Bridge.DestinationID,
		TxMode:                  txMode,
		OverrideSourceIDFromUDP: cfg.Bridge.OverrideSourceIDFromUDP,
		GrantDemand:             cfg.Bridge.GrantDemand,
		RxAudioGain:             cfg.Bridge.RxAudioGain,
		TxAudioGain:             cfg.Bridge.TxAudioGain,
		VocoderDecoderAudioGain: cfg.Bridge.VocoderDecoderAudioGain,
		VocoderEncoderAudioGain: cfg.Bridge.VocoderEncoderAudioGain,
		VocoderDecoderAutoGain:  cfg.Bridge.VocoderDecoderAutoGain,
		DropTimeMs:              cfg.Bridge.DropTimeMs,
	}, peer, session, coder, aliases, m, log.With("component", "bridge"))

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("gateway: creating scheduler: %w", err)
	}

	var statusServer *httpstatus.Server
	if cfg.Status.Enabled {
		statusServer = httpstatus.New(cfg.Status.Bind, cfg.Status.Port, b)
	}

	return &Host{
		cfg:          cfg,
		log:          log,
		metrics:      m,
		peer:         peer,
		session:      session,
		bridge:       b,
		scheduler:    scheduler,
		statusServer: statusServer,
	}, nil
}

func readIfSet(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func loadAliases(path string) (*aliasmap.Map, error) {
	if path == "" {
		return aliasmap.New(nil), nil
	}
	return aliasmap.Load(path)
}

// Metrics exposes the collectors the bridge records into, so the caller
// (cmd/root.go) can start CreateMetricsServer against them.
func (h *Host) Metrics() *metrics.Metrics {
	return h.metrics
}

// Run starts the janitor job and both network legs, and blocks until ctx
// is cancelled. Each leg runs under its own supervising loop that redials
// after a backoff when the leg's Run call returns, incrementing the
// matching reconnect counter.
func (h *Host) Run(ctx context.Context) error {
	if err := h.scheduleJanitor(); err != nil {
		return fmt.Errorf("gateway: scheduling janitor: %w", err)
	}
	h.scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.superviseFNE(gctx)
		return nil
	})
	g.Go(func() error {
		h.superviseZello(gctx)
		return nil
	})

	if h.statusServer != nil {
		go func() {
			if err := h.statusServer.Start(); err != nil {
				h.log.Warn("gateway: status server stopped", "error", err)
			}
		}()
	}

	// Peer.Run takes no ctx and blocks until Close is called, so close both
	// legs here rather than waiting on the supervising loops to notice
	// cancellation.
	<-ctx.Done()
	if err := h.peer.Close(); err != nil {
		h.log.Warn("gateway: closing FNE peer", "error", err)
	}
	if err := h.session.Close(); err != nil {
		h.log.Warn("gateway: closing zello session", "error", err)
	}
	return g.Wait()
}

// Shutdown tears down the janitor, both legs (idempotent if Run already
// closed them on context cancellation), and the status server.
func (h *Host) Shutdown(context.Context) {
	if err := h.scheduler.Shutdown(); err != nil {
		h.log.Warn("gateway: stopping scheduler", "error", err)
	}
	if err := h.peer.Close(); err != nil {
		h.log.Warn("gateway: closing FNE peer", "error", err)
	}
	if err := h.session.Close(); err != nil {
		h.log.Warn("gateway: closing zello session", "error", err)
	}
	if h.statusServer != nil {
		if err := h.statusServer.Stop(); err != nil {
			h.log.Warn("gateway: stopping status server", "error", err)
		}
	}
}

func (h *Host) scheduleJanitor() error {
	interval := time.Duration(h.cfg.Bridge.JanitorIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	_, err := h.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(h.bridge.DropStaleCalls),
	)
	return err
}

// superviseFNE keeps the FNE peer logged in: Peer.Run blocks servicing the
// login/keepalive/receive loop and only returns on an unrecoverable error
// or a clean Close, so this redials with a backoff whenever it returns
// while ctx is still live.
func (h *Host) superviseFNE(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := h.peer.Run()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			h.log.Error("gateway: FNE peer run exited", "error", err)
		}
		h.metrics.RecordReconnect("fne")
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectBackoff):
		}
	}
}

// superviseZello restarts Session.Run after it returns. Run already
// retries transient receive errors internally via its own reconnect logic;
// it only returns when the first connect or logon fails, ctx is cancelled,
// the connection closes cleanly, or its own reconnect budget is exhausted,
// so a restart here still needs a
// backoff to avoid hot-looping against a server that is still refusing
// connections.
func (h *Host) superviseZello(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := h.session.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			h.log.Error("gateway: zello session run exited", "error", err)
		}
		h.metrics.RecordReconnect("zello")
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectBackoff):
		}
	}
}
