// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHelpers_RoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithAssetID(ctx, "SS7731421_7731421_11403788")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "SS7731421_7731421_11403788", AssetIDFromContext(ctx))
}

func TestContextHelpers_NilContext(t *testing.T) {
	var nilCtx context.Context
	assert.Equal(t, "", RequestIDFromContext(nilCtx))
	assert.Equal(t, "", AssetIDFromContext(nilCtx))

	ctx := ContextWithRequestID(nilCtx, "x")
	assert.Equal(t, "x", RequestIDFromContext(ctx))
}

func TestWithContext_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	ctx = ContextWithAssetID(ctx, "asset-9")

	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry[FieldRequestID])
	assert.Equal(t, "asset-9", entry[FieldAssetID])
}

func TestWithContext_NoFieldsLeavesLoggerUntouched(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	l := WithContext(context.Background(), logger)
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasReq := entry[FieldRequestID]
	assert.False(t, hasReq)
}
