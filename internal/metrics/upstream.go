// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artstor_upstream_requests_total",
		Help: "Upstream metadata API requests by operation and HTTP status class",
	}, []string{"operation", "status"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artstor_upstream_request_duration_seconds",
		Help:    "Latency of upstream metadata API requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})
)

// ObserveUpstreamRequest records one upstream call. status 0 means the
// transport failed before a response was received.
func ObserveUpstreamRequest(operation string, status int, elapsed time.Duration) {
	upstreamRequests.WithLabelValues(operation, statusClass(status)).Inc()
	upstreamDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
