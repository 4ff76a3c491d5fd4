// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, 15*time.Second, cfg.Viewer.DeepZoomTimeout)
	assert.Equal(t, 5*time.Second, cfg.Viewer.PanoramaProbeTimeout)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.False(t, cfg.TestEnvironment)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
testEnvironment: true
upstream:
  timeout: 3s
  stagingBase: https://stage.example.org/
viewer:
  deepZoomTimeout: 20s
cache:
  backend: none
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.TestEnvironment)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 20*time.Second, cfg.Viewer.DeepZoomTimeout)
	assert.Equal(t, "none", cfg.Cache.Backend)
	// Untouched keys keep their defaults.
	assert.Equal(t, Defaults().Upstream.ProductionBase, cfg.Upstream.ProductionBase)

	env := cfg.Hosts()
	assert.True(t, env.IsTest())
	assert.Equal(t, "https://stage.example.org/", env.APIBase())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "logLevel: debug\napi:\n  listenAddr: \":9000\"\n")
	t.Setenv("ARTSTOR_LOG_LEVEL", "warn")
	t.Setenv("ARTSTOR_LEGACY", "true")
	t.Setenv("ARTSTOR_API_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ARTSTOR_CACHE_TTL", "not-a-duration")

	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Legacy)
	assert.Equal(t, ":9000", cfg.API.ListenAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)
	assert.Equal(t, Defaults().Cache.TTL, cfg.Cache.TTL)
	assert.Contains(t, l.ConsumedEnvKeys, "ARTSTOR_LOG_LEVEL")
}

func TestLoad_UnknownFieldIsRejected(t *testing.T) {
	path := writeConfig(t, "viewer:\n  deepZoomTimeot: 5s\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), err.Error())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"), "").Load()
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, ""), "").Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().API.ListenAddr, cfg.API.ListenAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }},
		{"bad cache backend", func(c *AppConfig) { c.Cache.Backend = "memcached" }},
		{"redis without addr", func(c *AppConfig) { c.Cache.Backend = "redis" }},
		{"sqlite without path", func(c *AppConfig) { c.Store.Backend = "sqlite" }},
		{"zero timeout", func(c *AppConfig) { c.Upstream.Timeout = 0 }},
		{"bad base url", func(c *AppConfig) { c.Upstream.ProductionBase = "not a url" }},
		{"bad listen addr", func(c *AppConfig) { c.API.ListenAddr = "localhost" }},
		{"sampling above one", func(c *AppConfig) { c.Telemetry.SamplingRate = 1.5 }},
		{"telemetry without endpoint", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}},
		{"origin without scheme", func(c *AppConfig) { c.API.AllowedOrigins = []string{"example.org"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}

	cfg := Defaults()
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisAddr = "localhost:6379"
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = "/var/lib/artstor/viewport.db"
	cfg.API.AllowedOrigins = []string{"*", "https://library.artstor.org"}
	assert.NoError(t, Validate(cfg))
}
