// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/artstor-viewer/internal/log"
)

// AccessLog writes one structured line per request. Probe endpoints log
// at debug level.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)
		next.ServeHTTP(sw, r)

		logger := log.WithComponentFromContext(r.Context(), "http")
		var ev *zerolog.Event
		switch {
		case sw.status >= http.StatusInternalServerError:
			ev = logger.Error()
		case sw.status >= http.StatusBadRequest:
			ev = logger.Warn()
		case shouldTrace(r):
			ev = logger.Info()
		default:
			ev = logger.Debug()
		}
		if traceID, _ := ExtractTraceContext(r); traceID != "" {
			ev = ev.Str("trace_id", traceID)
		}
		ev.Str(log.FieldEvent, "http.request").
			Str("method", r.Method).
			Str("route", routePattern(r)).
			Str("path", r.URL.Path).
			Int(log.FieldStatus, sw.status).
			Int("bytes", sw.bytes).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request handled")
	})
}
