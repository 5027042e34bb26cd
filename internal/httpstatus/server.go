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

// Package httpstatus serves the gateway's two read-only HTTP routes:
// /healthz for an orchestrator liveness probe, and /status for a snapshot
// of in-progress calls on both legs.
package httpstatus

import (
	"fmt"
	"net/http"
	"time"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/bridge"
	"github.com/gin-gonic/gin"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// StatusSource is anything that can report the current call-in-progress
// snapshot; internal/bridge.CallBridge satisfies this.
type StatusSource interface {
	Status() bridge.Status
}

// Server wraps the underlying http.Server so the caller can Start and Stop
// it the same way it does the metrics server.
type Server struct {
	inner *http.Server
}

// CreateRouter builds the gin engine serving /healthz and /status, split
// out from New so tests can drive it with httptest without binding a port.
func CreateRouter(source StatusSource) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, source.Status())
	})
	return r
}

// New builds the gin router and HTTP server, but does not start listening.
func New(bind string, port int, source StatusSource) *Server {
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", bind, port),
			Handler:           CreateRouter(source),
			ReadHeaderTimeout: readTimeout,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
		},
	}
}

// Start blocks serving HTTP until the listener fails or Stop is called, in
// which case it returns http.ErrServerClosed.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	return s.inner.Close()
}
