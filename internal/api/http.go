// Copyright 2024 The mqttd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api exposes the admin HTTP API of the broker.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bdelacey/mqttd/internal/build"
	"github.com/bdelacey/mqttd/internal/logger"
	"github.com/bdelacey/mqttd/internal/mqtt"
)

// Configuration holds the admin API configuration.
type Configuration struct {
	// Address is the TCP address (<IP>:<port>) the server binds to.
	Address string
}

// HTTPServer represents the admin HTTP server.
type HTTPServer struct {
	echo  *echo.Echo
	conf  Configuration
	log   *logger.Logger
	stats *mqtt.Stats
}

// NewHTTPServer creates a HTTPServer.
func NewHTTPServer(c Configuration, st *mqtt.Stats, log *logger.Logger) (*HTTPServer, error) {
	if log == nil {
		return nil, errors.New("api missing logger")
	}
	if c.Address == "" {
		return nil, errors.New("api missing address")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 5 * time.Second
	e.Server.WriteTimeout = 5 * time.Second
	e.Use(middleware.RequestID())

	s := &HTTPServer{
		echo:  e,
		conf:  c,
		log:   log.WithPrefix("api"),
		stats: st,
	}

	v1 := e.Group("/api/v1")
	v1.GET("/health", s.handleHealth)
	v1.GET("/stats", s.handleStats)

	return s, nil
}

// Start starts the execution of the HTTPServer.
func (s *HTTPServer) Start() error {
	lsn, err := net.Listen("tcp", s.conf.Address)
	if err != nil {
		s.log.Error().Err(err).
			Str("Address", s.conf.Address).
			Msg("Failed to start listener")
		return err
	}

	s.log.Info().Msg("API listening on " + lsn.Addr().String())
	s.echo.Listener = lsn

	go func() {
		serveErr := s.echo.StartServer(s.echo.Server)
		if serveErr != nil && serveErr != http.ErrServerClosed {
			s.log.Error().Err(serveErr).Msg("API server stopped with error")
		}
	}()

	return nil
}

// Stop stops the HTTPServer gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.log.Info().Msg("API server stopped")
	return err
}

func (s *HTTPServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": build.GetInfo().Version,
	})
}

func (s *HTTPServer) handleStats(c echo.Context) error {
	type statsResponse struct {
		Uptime   int64            `json:"uptime_seconds"`
		Counters map[string]int64 `json:"counters"`
	}

	return c.JSON(http.StatusOK, statsResponse{
		Uptime:   int64(s.stats.Uptime().Seconds()),
		Counters: s.stats.Snapshot(),
	})
}
