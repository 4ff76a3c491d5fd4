// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package headless

import (
	"context"
	"errors"

	"github.com/ManuGH/artstor-viewer/internal/viewer"
)

var errNoPlaybackURL = errors.New("headless: no playback url")

// media stands in for the player. It does not download the stream; the
// playback URL was already validated by the resolver.
type media struct {
	base
	cfg viewer.MediaConfig
}

func (m *media) Init(ctx context.Context, sink viewer.Sink) error {
	if m.cfg.PlaybackURL == "" {
		return errNoPlaybackURL
	}
	m.start(ctx, sink)
	m.goFn(func() {
		m.emit(viewer.BackendEvent{Type: viewer.BackendReady})
	})
	return nil
}
