// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes asset resolution, headless viewer sessions and the
// viewport store over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/artstor-viewer/internal/config"
	"github.com/ManuGH/artstor-viewer/internal/health"
	"github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/viewer"
	"github.com/ManuGH/artstor-viewer/internal/viewport"
)

// ErrShuttingDown is returned by viewer sessions requested after Shutdown.
var ErrShuttingDown = errors.New("api: shutting down")

// ConfigSource returns the current configuration. *config.ConfigHolder
// implements it.
type ConfigSource interface {
	Get() config.AppConfig
}

// StaticConfig is a ConfigSource that never changes.
type StaticConfig config.AppConfig

// Get implements ConfigSource.
func (c StaticConfig) Get() config.AppConfig { return config.AppConfig(c) }

// Deps are the collaborators of the server.
type Deps struct {
	Config    ConfigSource
	Resolver  viewer.AssetResolver
	Backends  viewer.BackendFactory
	Prober    viewer.DescriptorProber
	Viewports viewport.Store
	Health    *health.Manager
}

func (d Deps) validate() error {
	switch {
	case d.Config == nil:
		return fmt.Errorf("api: config source is required")
	case d.Resolver == nil:
		return fmt.Errorf("api: resolver is required")
	case d.Backends == nil:
		return fmt.Errorf("api: backend factory is required")
	case d.Viewports == nil:
		return fmt.Errorf("api: viewport store is required")
	case d.Health == nil:
		return fmt.Errorf("api: health manager is required")
	}
	return nil
}

// Server serves the HTTP API.
type Server struct {
	deps Deps

	mu       sync.Mutex
	sessions sync.WaitGroup
	closing  atomic.Bool
}

// New validates deps and returns a server.
func New(deps Deps) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Prober == nil {
		if p, ok := deps.Backends.(viewer.DescriptorProber); ok {
			deps.Prober = p
		}
	}
	return &Server{deps: deps}, nil
}

// Handler returns the configured HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// beginSession registers a running viewer session unless shutdown started.
func (s *Server) beginSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.sessions.Add(1)
	return true
}

// Shutdown refuses new viewer sessions and waits for running ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}
	log.L().Info().Str(log.FieldEvent, "api.shutdown").Msg("shutting down api server")

	s.mu.Lock()
	s.closing.Store(true)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("api: viewer sessions still running: %w", ctx.Err())
	}
}
