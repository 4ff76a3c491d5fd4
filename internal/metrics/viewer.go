// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	viewerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artstor_viewer_transitions_total",
		Help: "Viewer state machine transitions",
	}, []string{"from", "to", "event"})

	viewerFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artstor_viewer_fallbacks_total",
		Help: "Transitions into thumbnail fallback by reason",
	}, []string{"reason"})

	liveBackends = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artstor_viewer_live_backends",
		Help: "Rendering backends currently initialised across all viewers",
	})

	staleResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artstor_viewer_stale_results_total",
		Help: "Resolve results discarded because the asset identifier changed",
	})
)

// RecordViewerTransition counts one state machine edge.
func RecordViewerTransition(from, to, event string) {
	viewerTransitions.WithLabelValues(from, to, event).Inc()
}

// RecordViewerFallback counts a transition into thumbnail fallback.
func RecordViewerFallback(reason string) {
	viewerFallbacks.WithLabelValues(reason).Inc()
}

// BackendStarted and BackendStopped track live backend instances.
func BackendStarted() { liveBackends.Inc() }

func BackendStopped() { liveBackends.Dec() }

// RecordStaleResult counts a discarded out-of-date pipeline result.
func RecordStaleResult() {
	staleResults.Inc()
}
