// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/artstor-viewer/internal/api/middleware"
)

// TracingService names the spans of inbound requests.
const TracingService = "artstor-viewer-api"

func (s *Server) routes() http.Handler {
	cfg := s.deps.Config.Get()

	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            len(cfg.API.AllowedOrigins) > 0,
		AllowedOrigins:        cfg.API.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        tracingService(cfg.Telemetry.Enabled),
		EnableLogging:         true,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.API.RateLimit > 0 {
			r.Use(middleware.APIRateLimit(cfg.API.RateLimit))
		}
		r.Get("/openapi.yaml", handleOpenAPI)
		r.Route("/assets/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAsset)
			r.Get("/viewer", s.handleViewer)
			r.Get("/viewport", s.handleGetViewport)
			r.Put("/viewport", s.handlePutViewport)
			r.Delete("/viewport", s.handleDeleteViewport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteProblem(w, r, http.StatusNotFound, "route_not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteProblem(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed on this route")
	})
	return r
}

func tracingService(enabled bool) string {
	if !enabled {
		return ""
	}
	return TracingService
}
