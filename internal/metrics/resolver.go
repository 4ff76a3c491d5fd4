// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artstor_resolve_total",
		Help: "Asset resolutions by lookup path, media kind and result",
	}, []string{"path", "media_kind", "result"})

	playbackLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artstor_playback_lookups_total",
		Help: "Secondary media-playback lookups issued for time-based media",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artstor_resolve_cache_lookups_total",
		Help: "Resolved asset cache lookups by result (hit|miss)",
	}, []string{"result"})
)

// RecordResolve records one resolve outcome.
func RecordResolve(path, mediaKind, result string) {
	resolveTotal.WithLabelValues(
		normalizeResolvePath(path),
		mediaKindLabel(mediaKind),
		normalizeResolveResult(result),
	).Inc()
}

// RecordPlaybackLookup counts a secondary playback-info fetch.
func RecordPlaybackLookup() {
	playbackLookups.Inc()
}

// RecordCacheLookup records a resolve cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func normalizeResolvePath(path string) string {
	switch strings.ToLower(strings.TrimSpace(path)) {
	case "direct", "group", "encrypted":
		return strings.ToLower(strings.TrimSpace(path))
	default:
		return "unknown"
	}
}

func normalizeResolveResult(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "success", "not_found", "unauthorized", "network", "invalid", "canceled":
		return strings.ToLower(strings.TrimSpace(result))
	default:
		return "unknown"
	}
}

func mediaKindLabel(kind string) string {
	if strings.TrimSpace(kind) == "" {
		return "none"
	}
	return kind
}
