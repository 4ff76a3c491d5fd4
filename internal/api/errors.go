// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/ManuGH/artstor-viewer/internal/api/middleware"
	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/resolver"
	"github.com/ManuGH/artstor-viewer/internal/telemetry"
	"github.com/ManuGH/artstor-viewer/internal/viewport"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Debug().Err(err).Str(log.FieldEvent, "api.encode_failed").Msg("failed to encode response")
	}
}

// problemFor maps domain errors onto HTTP status and problem code.
func problemFor(err error) (int, string) {
	switch {
	case errors.Is(err, asset.ErrValidation), errors.Is(err, viewport.ErrInvalidID):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, resolver.ErrAuthorization):
		return http.StatusForbidden, "not_authorized"
	case errors.Is(err, resolver.ErrNotFound), errors.Is(err, viewport.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, resolver.ErrNetwork):
		return http.StatusBadGateway, "upstream_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable, "shutting_down"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError logs err and writes the matching problem document. 5xx
// details are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := problemFor(err)
	logger := log.WithComponentFromContext(r.Context(), "api")
	detail := err.Error()
	middleware.AddSpanAttributes(r, telemetry.ErrorAttributes(err, code)...)
	if status >= http.StatusInternalServerError {
		logger.Warn().Err(err).Str(log.FieldEvent, "api.request_failed").Int(log.FieldStatus, status).Msg("request failed")
		if status == http.StatusInternalServerError {
			detail = "An unexpected error occurred."
		}
	} else {
		logger.Debug().Err(err).Str(log.FieldEvent, "api.request_rejected").Int(log.FieldStatus, status).Msg("request rejected")
	}
	middleware.WriteProblem(w, r, status, code, detail)
}
