// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// ConfigPath is the file the loader reads, or "" for ENV-only operation.
func (l *Loader) ConfigPath() string { return l.configPath }

func (l *Loader) envKey(name string) string {
	key := EnvPrefix + name
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Parse File (strict) -> Apply Env -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path on top of cfg. Keys absent from the file keep
// their current values.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return err
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = ParseString(l.envKey("LOG_LEVEL"), cfg.LogLevel)
	cfg.TestEnvironment = ParseBool(l.envKey("TEST_ENVIRONMENT"), cfg.TestEnvironment)
	cfg.Legacy = ParseBool(l.envKey("LEGACY"), cfg.Legacy)

	up := &cfg.Upstream
	up.ProductionBase = ParseString(l.envKey("UPSTREAM_PRODUCTION_BASE"), up.ProductionBase)
	up.StagingBase = ParseString(l.envKey("UPSTREAM_STAGING_BASE"), up.StagingBase)
	up.ProductionTiles = ParseString(l.envKey("UPSTREAM_PRODUCTION_TILES"), up.ProductionTiles)
	up.StagingTiles = ParseString(l.envKey("UPSTREAM_STAGING_TILES"), up.StagingTiles)
	up.ProductionThumbnails = ParseString(l.envKey("UPSTREAM_PRODUCTION_THUMBNAILS"), up.ProductionThumbnails)
	up.StagingThumbnails = ParseString(l.envKey("UPSTREAM_STAGING_THUMBNAILS"), up.StagingThumbnails)
	up.ImageServer = ParseString(l.envKey("UPSTREAM_IMAGE_SERVER"), up.ImageServer)
	up.Timeout = ParseDuration(l.envKey("UPSTREAM_TIMEOUT"), up.Timeout)
	up.RateLimit = ParseFloat(l.envKey("UPSTREAM_RATE_LIMIT"), up.RateLimit)
	up.RateBurst = ParseInt(l.envKey("UPSTREAM_RATE_BURST"), up.RateBurst)
	up.BreakerThreshold = ParseInt(l.envKey("UPSTREAM_BREAKER_THRESHOLD"), up.BreakerThreshold)
	up.BreakerReset = ParseDuration(l.envKey("UPSTREAM_BREAKER_RESET"), up.BreakerReset)
	up.UserAgent = ParseString(l.envKey("UPSTREAM_USER_AGENT"), up.UserAgent)

	vw := &cfg.Viewer
	vw.DeepZoomTimeout = ParseDuration(l.envKey("VIEWER_DEEP_ZOOM_TIMEOUT"), vw.DeepZoomTimeout)
	vw.PanoramaProbeTimeout = ParseDuration(l.envKey("VIEWER_PANORAMA_PROBE_TIMEOUT"), vw.PanoramaProbeTimeout)
	vw.PanoramaCheckDelay = ParseDuration(l.envKey("VIEWER_PANORAMA_CHECK_DELAY"), vw.PanoramaCheckDelay)
	vw.SettleTimeout = ParseDuration(l.envKey("VIEWER_SETTLE_TIMEOUT"), vw.SettleTimeout)

	c := &cfg.Cache
	c.Backend = ParseString(l.envKey("CACHE_BACKEND"), c.Backend)
	c.TTL = ParseDuration(l.envKey("CACHE_TTL"), c.TTL)
	c.RedisAddr = ParseString(l.envKey("CACHE_REDIS_ADDR"), c.RedisAddr)
	c.RedisDB = ParseInt(l.envKey("CACHE_REDIS_DB"), c.RedisDB)
	c.RedisPassword = ParseString(l.envKey("CACHE_REDIS_PASSWORD"), c.RedisPassword)

	cfg.Store.Backend = ParseString(l.envKey("STORE_BACKEND"), cfg.Store.Backend)
	cfg.Store.Path = ParseString(l.envKey("STORE_PATH"), cfg.Store.Path)

	api := &cfg.API
	api.ListenAddr = ParseString(l.envKey("API_LISTEN_ADDR"), api.ListenAddr)
	api.RateLimit = ParseInt(l.envKey("API_RATE_LIMIT"), api.RateLimit)
	api.AllowedOrigins = ParseList(l.envKey("API_ALLOWED_ORIGINS"), api.AllowedOrigins)
	api.ReadTimeout = ParseDuration(l.envKey("API_READ_TIMEOUT"), api.ReadTimeout)
	api.WriteTimeout = ParseDuration(l.envKey("API_WRITE_TIMEOUT"), api.WriteTimeout)
	api.ShutdownGrace = ParseDuration(l.envKey("API_SHUTDOWN_GRACE"), api.ShutdownGrace)

	tel := &cfg.Telemetry
	tel.Enabled = ParseBool(l.envKey("TELEMETRY_ENABLED"), tel.Enabled)
	tel.Exporter = ParseString(l.envKey("TELEMETRY_EXPORTER"), tel.Exporter)
	tel.Endpoint = ParseString(l.envKey("TELEMETRY_ENDPOINT"), tel.Endpoint)
	tel.SamplingRate = ParseFloat(l.envKey("TELEMETRY_SAMPLING_RATE"), tel.SamplingRate)
}
