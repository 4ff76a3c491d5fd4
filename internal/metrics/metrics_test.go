// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCircuitBreakerState_OneHot(t *testing.T) {
	SetCircuitBreakerState("artstor-test", "open")

	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("artstor-test", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("artstor-test", "closed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("artstor-test", "half-open")))
}

func TestRecordResolve_NormalizesLabels(t *testing.T) {
	before := testutil.ToFloat64(resolveTotal.WithLabelValues("unknown", "none", "unknown"))
	RecordResolve("weird", "", "exploded")
	after := testutil.ToFloat64(resolveTotal.WithLabelValues("unknown", "none", "unknown"))
	assert.Equal(t, before+1, after)
}

func TestObserveUpstreamRequest_StatusClass(t *testing.T) {
	before := testutil.ToFloat64(upstreamRequests.WithLabelValues("metadata", "4xx"))
	ObserveUpstreamRequest("metadata", 404, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(upstreamRequests.WithLabelValues("metadata", "4xx")))

	assert.Equal(t, "error", statusClass(0))
	assert.Equal(t, "2xx", statusClass(204))
}

func TestBackendGauge(t *testing.T) {
	var m dto.Metric
	BackendStarted()
	require.NoError(t, liveBackends.Write(&m))
	started := m.GetGauge().GetValue()

	BackendStopped()
	require.NoError(t, liveBackends.Write(&m))
	assert.Equal(t, started-1, m.GetGauge().GetValue())
}
