// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ManuGH/artstor-viewer/internal/hosts"
)

func resourceValue(t *testing.T, res *resource.Resource, key string) string {
	t.Helper()
	v, ok := res.Set().Value(attribute.Key(key))
	require.True(t, ok, "missing resource attribute %s", key)
	return v.AsString()
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, Exporter: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, Exporter: "invalid"})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: invalid (supported: grpc, http)", err.Error())
}

func TestResource_DescribesUpstream(t *testing.T) {
	tests := []struct {
		name     string
		upstream hosts.Resolver
		env      string
		apiHost  string
		tileHost string
	}{
		{"production", hosts.New(false), "production", "library.artstor.org", "tsprod.artstor.org"},
		{"staging", hosts.New(true), "staging", "stage.artstor.org", "tsstage.artstor.org"},
		{"defaults to production", nil, "production", "library.artstor.org", "tsprod.artstor.org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resource(context.Background(), Config{
				ServiceName:    "artstor-viewer",
				ServiceVersion: "1.2.3",
				Upstream:       tt.upstream,
			})
			require.NoError(t, err)
			assert.Equal(t, "artstor-viewer", resourceValue(t, res, "service.name"))
			assert.Equal(t, "1.2.3", resourceValue(t, res, "service.version"))
			assert.Equal(t, tt.env, resourceValue(t, res, "deployment.environment"))
			assert.Equal(t, tt.env, resourceValue(t, res, UpstreamEnvironmentKey))
			assert.Equal(t, tt.apiHost, resourceValue(t, res, UpstreamAPIHostKey))
			assert.Equal(t, tt.tileHost, resourceValue(t, res, UpstreamTileHostKey))
		})
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		root string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		desc := Sampler(tt.rate).Description()
		assert.Contains(t, desc, "ParentBased")
		assert.Contains(t, desc, "root:"+tt.root, "rate %v", tt.rate)
	}
}

func TestProvider_ExportsSpansWithUpstreamResource(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	exporter := tracetest.NewInMemoryExporter()
	provider, err := newProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "artstor-viewer",
		Upstream:     hosts.New(true),
		SamplingRate: 1,
	}, exporter)
	require.NoError(t, err)

	_, span := Tracer("artstor.client").Start(context.Background(), "artstor.metadata")
	span.SetAttributes(AssetAttributes("a1", "", false)...)
	span.End()
	require.NoError(t, provider.tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "artstor.metadata", spans[0].Name)
	assert.Equal(t, "staging", resourceValue(t, spans[0].Resource, UpstreamEnvironmentKey))
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_ShutdownNilSafe(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, (&Provider{}).Shutdown(ctx))
}
