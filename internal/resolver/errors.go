// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/artstor-viewer/internal/artstor"
	"github.com/ManuGH/artstor-viewer/internal/asset"
)

var (
	// ErrNotFound means the upstream returned no metadata record.
	ErrNotFound = errors.New("resolver: asset not found")
	// ErrAuthorization means the upstream refused access (401/403).
	ErrAuthorization = errors.New("resolver: not authorized")
	// ErrNetwork covers transport failures, timeouts, 5xx and bad payloads.
	ErrNetwork = errors.New("resolver: network failure")
)

// IsNotFoundLike treats an authorization failure the same as a missing
// record, for hosts that do not want to reveal the difference.
func IsNotFoundLike(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuthorization)
}

// classify maps a client error onto the resolver taxonomy. The original
// error stays in the chain.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, artstor.ErrCanceled):
		return err
	case errors.Is(err, asset.ErrValidation):
		return err
	case errors.Is(err, artstor.ErrInvalidRequest):
		return fmt.Errorf("%w: %w", asset.ErrValidation, err)
	case errors.Is(err, artstor.ErrAuthorization):
		return fmt.Errorf("%w: %w", ErrAuthorization, err)
	case errors.Is(err, artstor.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
}

// resultLabel is the metrics label for a resolve outcome.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuthorization):
		return "unauthorized"
	case errors.Is(err, asset.ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "canceled"
	}
}
