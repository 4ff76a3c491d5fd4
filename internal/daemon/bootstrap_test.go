// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/artstor-viewer/internal/config"
	"github.com/ManuGH/artstor-viewer/internal/health"
)

func readiness(t *testing.T, h http.Handler) health.ReadinessResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var body health.ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestBuild_MemoryDefaults(t *testing.T) {
	cfg := config.Defaults()
	rt, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close(context.Background())) }()

	body := readiness(t, rt.Handler)
	assert.True(t, body.Ready)
	assert.Contains(t, body.Checks, "upstream")
}

func TestBuild_SQLiteAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Defaults()
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisAddr = mr.Addr()
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "viewports.db")

	rt, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)

	body := readiness(t, rt.Handler)
	assert.True(t, body.Ready)
	assert.Equal(t, health.StatusHealthy, body.Checks["redis"].Status)
	assert.Equal(t, health.StatusHealthy, body.Checks["viewport_store"].Status)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/assets/a1/viewport", strings.NewReader(`{"zoom":2}`))
	rt.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, rt.Close(context.Background()))

	// Reopening runs the integrity check on the existing file.
	rt, err = Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	entry, err := rt.Store.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, *entry.State.Zoom)
	require.NoError(t, rt.Close(context.Background()))
}

func TestBuild_RedisDownFails(t *testing.T) {
	cfg := config.Defaults()
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisAddr = "127.0.0.1:1"

	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestBuild_CorruptStoreFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewports.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not sqlite"), 0o600))

	cfg := config.Defaults()
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = path

	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}
