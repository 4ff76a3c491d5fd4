// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package artstor

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound       = errors.New("upstream: asset not found")
	ErrAuthorization  = errors.New("upstream: not authorized for asset")
	ErrUnavailable    = errors.New("upstream: host unreachable or transport failure")
	ErrUpstreamError  = errors.New("upstream: internal error (5xx)")
	ErrBadResponse    = errors.New("upstream: invalid response format or malformed data")
	ErrTimeout        = errors.New("upstream: request timed out")
	ErrCircuitOpen    = errors.New("upstream: circuit breaker open")
	ErrCanceled       = errors.New("upstream: request canceled")
	ErrInvalidRequest = errors.New("upstream: invalid request")
)

// Error wraps one of the sentinel errors with request context.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("artstor: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

// IsNetwork reports whether err is a transport-level failure: no response,
// a timeout, a 5xx, an unreadable payload, or an open breaker.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrUpstreamError) ||
		errors.Is(err, ErrBadResponse) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrCircuitOpen)
}
