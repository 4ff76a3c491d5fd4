// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the configured components together and owns the
// server lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/artstor-viewer/internal/api"
	"github.com/ManuGH/artstor-viewer/internal/artstor"
	"github.com/ManuGH/artstor-viewer/internal/cache"
	"github.com/ManuGH/artstor-viewer/internal/config"
	"github.com/ManuGH/artstor-viewer/internal/health"
	"github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/persistence/sqlite"
	"github.com/ManuGH/artstor-viewer/internal/resolver"
	"github.com/ManuGH/artstor-viewer/internal/telemetry"
	"github.com/ManuGH/artstor-viewer/internal/viewer/headless"
	"github.com/ManuGH/artstor-viewer/internal/viewport"
)

// ErrStoreCorrupt is returned when the viewport database fails its
// integrity check at startup.
var ErrStoreCorrupt = errors.New("viewport store failed integrity check")

// Runtime is the assembled component graph.
type Runtime struct {
	Client   *artstor.Client
	Resolver *resolver.Resolver
	Store    viewport.Store
	Health   *health.Manager
	API      *api.Server
	Handler  http.Handler

	hooks  []namedHook
	logger zerolog.Logger
}

func (rt *Runtime) onShutdown(name string, hook ShutdownHook) {
	rt.hooks = append(rt.hooks, namedHook{name: name, hook: hook})
}

// RegisterHooks hands the cleanup of every component to m. Hooks run in
// reverse order, so the API drains before the stores close.
func (rt *Runtime) RegisterHooks(m Manager) {
	for _, h := range rt.hooks {
		m.RegisterShutdownHook(h.name, h.hook)
	}
}

// Close runs the cleanup hooks directly, for callers without a Manager.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.hooks) - 1; i >= 0; i-- {
		if err := rt.hooks[i].hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.hooks[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// Build assembles the runtime from cfg. src serves the live configuration
// to the API; it may be nil to pin cfg. On error everything opened so far
// is released.
func Build(ctx context.Context, cfg config.AppConfig, src api.ConfigSource) (*Runtime, error) {
	rt := &Runtime{logger: log.WithComponent("bootstrap")}
	if src == nil {
		src = api.StaticConfig(cfg)
	}
	if err := rt.build(ctx, cfg, src); err != nil {
		_ = rt.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) build(ctx context.Context, cfg config.AppConfig, src api.ConfigSource) error {
	if err := rt.initTelemetry(ctx, cfg); err != nil {
		return err
	}

	env := cfg.Hosts()
	rt.Client = artstor.New(env, artstor.Options{
		Timeout:          cfg.Upstream.Timeout,
		RateLimit:        rate.Limit(cfg.Upstream.RateLimit),
		RateLimitBurst:   cfg.Upstream.RateBurst,
		BreakerThreshold: cfg.Upstream.BreakerThreshold,
		BreakerReset:     cfg.Upstream.BreakerReset,
		UserAgent:        cfg.Upstream.UserAgent,
	})

	rt.Health = health.NewManager(cfg.Version)
	rt.Health.RegisterChecker(health.NewBreakerChecker("upstream", rt.Client.BreakerState))

	var opts []resolver.Option
	c, err := rt.openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	if c != nil {
		opts = append(opts, resolver.WithCache(c, cfg.Cache.TTL))
	}
	rt.Resolver = resolver.New(rt.Client, env, opts...)

	if rt.Store, err = rt.openStore(ctx, cfg.Store); err != nil {
		return err
	}

	factory := headless.NewFactory(rt.Client)
	rt.onShutdown("headless_backends", func(context.Context) error {
		factory.Wait()
		return nil
	})

	rt.API, err = api.New(api.Deps{
		Config:    src,
		Resolver:  rt.Resolver,
		Backends:  factory,
		Prober:    factory,
		Viewports: rt.Store,
		Health:    rt.Health,
	})
	if err != nil {
		return err
	}
	rt.onShutdown("api_sessions", rt.API.Shutdown)
	rt.Handler = rt.API.Handler()

	rt.logger.Info().
		Str(log.FieldEvent, "bootstrap.complete").
		Bool("test_environment", cfg.TestEnvironment).
		Str("api_base", env.APIBase()).
		Str("cache", cfg.Cache.Backend).
		Str("store", cfg.Store.Backend).
		Msg("runtime assembled")
	return nil
}

func (rt *Runtime) initTelemetry(ctx context.Context, cfg config.AppConfig) error {
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "artstor-viewer",
		ServiceVersion: cfg.Version,
		Upstream:       cfg.Hosts(),
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry init failed: %w", err)
	}
	rt.onShutdown("telemetry", provider.Shutdown)
	if cfg.Telemetry.Enabled {
		rt.logger.Info().
			Str("endpoint", cfg.Telemetry.Endpoint).
			Str("environment", telemetry.EnvironmentName(cfg.Hosts())).
			Float64("sampling_rate", cfg.Telemetry.SamplingRate).
			Msg("Telemetry initialized")
	}
	return nil
}

// openCache returns nil when caching is disabled.
func (rt *Runtime) openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log.WithComponent("cache"))
		if err != nil {
			return nil, err
		}
		rt.onShutdown("redis_cache", func(context.Context) error { return rc.Close() })
		rt.Health.RegisterChecker(health.NewPingChecker("redis", false, rc.HealthCheck))
		return rc, nil
	case "memory":
		mc := cache.NewMemoryCache(cfg.TTL)
		rt.onShutdown("memory_cache", func(context.Context) error {
			mc.Stop()
			return nil
		})
		return mc, nil
	default:
		return nil, nil
	}
}

func (rt *Runtime) openStore(ctx context.Context, cfg config.StoreConfig) (viewport.Store, error) {
	if cfg.Backend != "sqlite" {
		return viewport.NewMemoryStore(), nil
	}

	if _, err := os.Stat(cfg.Path); err == nil {
		issues, err := sqlite.VerifyIntegrity(cfg.Path, "quick")
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", cfg.Path, err)
		}
		if len(issues) > 0 {
			return nil, fmt.Errorf("%w: %s: %v", ErrStoreCorrupt, cfg.Path, issues)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	store, err := viewport.OpenSQLite(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	rt.onShutdown("viewport_store", func(context.Context) error { return store.Close() })
	rt.Health.RegisterChecker(health.NewPingChecker("viewport_store", true, store.Ping))
	return store, nil
}
