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

// Package server orchestrates the lifecycle of the broker components.
package server

import (
	"context"
	"errors"

	"go.uber.org/multierr"

	"github.com/bdelacey/mqttd/internal/logger"
)

// Component is a long-running part of the server, started once and stopped
// gracefully on shutdown.
type Component interface {
	// Start launches the component. It must not block.
	Start(ctx context.Context) error

	// Stop shuts the component down, honoring the context deadline.
	Stop(ctx context.Context) error
}

// Server runs a set of components.
type Server struct {
	log        *logger.Logger
	components []Component
	started    int
}

// New creates a new server.
func New(l *logger.Logger) *Server {
	return &Server{log: l.WithPrefix("server")}
}

// AddComponent adds a component to the server. Components are started in
// the order they were added and stopped in reverse order.
func (s *Server) AddComponent(c Component) {
	s.components = append(s.components, c)
}

// Start starts all components. When a component fails to start, the ones
// already started are stopped and the error is returned.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info().Msg("Starting server")

	if len(s.components) == 0 {
		return errors.New("no component to run")
	}

	for i, c := range s.components {
		if err := c.Start(ctx); err != nil {
			s.started = i
			_ = s.Stop(ctx)
			return err
		}
	}

	s.started = len(s.components)
	s.log.Info().Msg("Server started with success")
	return nil
}

// Stop stops the started components in reverse order, aggregating their
// errors.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("Stopping server")

	var err error
	for i := s.started - 1; i >= 0; i-- {
		err = multierr.Append(err, s.components[i].Stop(ctx))
	}

	if err == nil {
		s.log.Info().Msg("Server stopped with success")
	}
	return err
}

// ComponentFunc adapts a pair of start and stop functions to the Component
// interface.
type ComponentFunc struct {
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Start implements the Component interface.
func (c ComponentFunc) Start(ctx context.Context) error {
	if c.OnStart == nil {
		return nil
	}
	return c.OnStart(ctx)
}

// Stop implements the Component interface.
func (c ComponentFunc) Stop(ctx context.Context) error {
	if c.OnStop == nil {
		return nil
	}
	return c.OnStop(ctx)
}
