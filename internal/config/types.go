// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/artstor-viewer/internal/hosts"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	LogLevel        string `yaml:"logLevel" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	TestEnvironment bool   `yaml:"testEnvironment"`
	Legacy          bool   `yaml:"legacy"`

	Upstream  UpstreamConfig  `yaml:"upstream"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Cache     CacheConfig     `yaml:"cache"`
	Store     StoreConfig     `yaml:"store"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// UpstreamConfig holds the metadata API hosts and client limits.
type UpstreamConfig struct {
	ProductionBase       string        `yaml:"productionBase" validate:"required,url"`
	StagingBase          string        `yaml:"stagingBase" validate:"required,url"`
	ProductionTiles      string        `yaml:"productionTiles" validate:"required,url"`
	StagingTiles         string        `yaml:"stagingTiles" validate:"required,url"`
	ProductionThumbnails string        `yaml:"productionThumbnails" validate:"required,url"`
	StagingThumbnails    string        `yaml:"stagingThumbnails" validate:"required,url"`
	ImageServer          string        `yaml:"imageServer" validate:"required,url"`
	Timeout              time.Duration `yaml:"timeout" validate:"gt=0"`
	RateLimit            float64       `yaml:"rateLimit" validate:"gt=0"`
	RateBurst            int           `yaml:"rateBurst" validate:"min=1"`
	BreakerThreshold     int           `yaml:"breakerThreshold" validate:"min=1"`
	BreakerReset         time.Duration `yaml:"breakerReset" validate:"gt=0"`
	UserAgent            string        `yaml:"userAgent"`
}

// ViewerConfig holds the viewer state machine timeouts.
type ViewerConfig struct {
	DeepZoomTimeout      time.Duration `yaml:"deepZoomTimeout" validate:"gt=0"`
	PanoramaProbeTimeout time.Duration `yaml:"panoramaProbeTimeout" validate:"gt=0"`
	PanoramaCheckDelay   time.Duration `yaml:"panoramaCheckDelay" validate:"gte=0"`
	SettleTimeout        time.Duration `yaml:"settleTimeout" validate:"gt=0"`
}

// CacheConfig selects the resolved-record cache.
type CacheConfig struct {
	Backend   string        `yaml:"backend" validate:"oneof=none memory redis"`
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`
	RedisAddr string        `yaml:"redisAddr"`
	RedisDB   int           `yaml:"redisDB" validate:"min=0,max=15"`
	// RedisPassword is only read from the environment.
	RedisPassword string `yaml:"-"`
}

// StoreConfig selects the viewport store.
type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory sqlite"`
	Path    string `yaml:"path"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	ListenAddr     string        `yaml:"listenAddr" validate:"required,hostname_port"`
	RateLimit      int           `yaml:"rateLimit" validate:"min=0"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	ReadTimeout    time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" validate:"gt=0"`
	ShutdownGrace  time.Duration `yaml:"shutdownGrace" validate:"gt=0"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter" validate:"oneof=grpc http"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate" validate:"gte=0,lte=1"`
}

// Hosts builds the upstream host resolver from the configuration.
func (c AppConfig) Hosts() hosts.Environment {
	return hosts.Environment{
		Production: hosts.Set{
			API:        c.Upstream.ProductionBase,
			Tiles:      c.Upstream.ProductionTiles,
			Thumbnails: c.Upstream.ProductionThumbnails,
		},
		Staging: hosts.Set{
			API:        c.Upstream.StagingBase,
			Tiles:      c.Upstream.StagingTiles,
			Thumbnails: c.Upstream.StagingThumbnails,
		},
		Images: c.Upstream.ImageServer,
		Test:   c.TestEnvironment,
	}
}

// Defaults returns the configuration used when neither a file nor the
// environment say otherwise.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Upstream: UpstreamConfig{
			ProductionBase:       hosts.DefaultProduction.API,
			StagingBase:          hosts.DefaultStaging.API,
			ProductionTiles:      hosts.DefaultProduction.Tiles,
			StagingTiles:         hosts.DefaultStaging.Tiles,
			ProductionThumbnails: hosts.DefaultProduction.Thumbnails,
			StagingThumbnails:    hosts.DefaultStaging.Thumbnails,
			ImageServer:          hosts.DefaultImageServer,
			Timeout:              10 * time.Second,
			RateLimit:            20,
			RateBurst:            40,
			BreakerThreshold:     5,
			BreakerReset:         30 * time.Second,
			UserAgent:            "artstor-viewer",
		},
		Viewer: ViewerConfig{
			DeepZoomTimeout:      15 * time.Second,
			PanoramaProbeTimeout: 5 * time.Second,
			PanoramaCheckDelay:   time.Second,
			SettleTimeout:        30 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     10 * time.Minute,
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		API: APIConfig{
			ListenAddr:    ":8088",
			RateLimit:     120,
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  60 * time.Second,
			ShutdownGrace: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
