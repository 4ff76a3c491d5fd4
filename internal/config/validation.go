// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags first, then the cross-field rules tags
// cannot express.
func Validate(cfg AppConfig) error {
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cfg.Cache.Backend == "redis" && strings.TrimSpace(cfg.Cache.RedisAddr) == "" {
		return fmt.Errorf("%w: cache.redisAddr is required when cache.backend=redis", ErrInvalidConfig)
	}
	if cfg.Store.Backend == "sqlite" && strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("%w: store.path is required when store.backend=sqlite", ErrInvalidConfig)
	}
	if cfg.Telemetry.Enabled && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		return fmt.Errorf("%w: telemetry.endpoint is required when telemetry is enabled", ErrInvalidConfig)
	}
	for _, origin := range cfg.API.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin); err != nil {
			return fmt.Errorf("%w: api.allowedOrigins %q: %w", ErrInvalidConfig, origin, err)
		}
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
