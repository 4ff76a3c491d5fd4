// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package headless implements the viewer backends without a display. Each
// backend fetches the document its real engine would open (IIIF info.json,
// panorama descriptor, playback URL) and reports the same events, which is
// enough for the server-side viewer session and for probing assets.
package headless

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/viewer"
)

// Fetcher downloads an absolute URL. *artstor.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Factory builds headless backends. Call Wait after the owning viewers are
// closed to join any in-flight fetches.
type Factory struct {
	fetcher Fetcher
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

var _ viewer.BackendFactory = (*Factory)(nil)

// NewFactory returns a Factory that loads documents through f.
func NewFactory(f Fetcher) *Factory {
	return &Factory{fetcher: f, logger: xglog.WithComponent("headless")}
}

func (f *Factory) DeepZoom(cfg viewer.DeepZoomConfig) viewer.Backend {
	return &deepZoom{base: f.newBase(viewer.BackendDeepZoom, cfg.ID), cfg: cfg}
}

func (f *Factory) Media(cfg viewer.MediaConfig) viewer.Backend {
	return &media{base: f.newBase(viewer.BackendMedia, cfg.ID), cfg: cfg}
}

func (f *Factory) Panorama(cfg viewer.PanoramaConfig) viewer.Backend {
	return &panorama{base: f.newBase(viewer.BackendPanorama, cfg.ID), cfg: cfg}
}

// ProbeDescriptor fetches a panorama descriptor and discards it.
func (f *Factory) ProbeDescriptor(ctx context.Context, url string) error {
	_, err := f.fetcher.Fetch(ctx, url)
	return err
}

// Wait blocks until every backend goroutine has returned.
func (f *Factory) Wait() { f.wg.Wait() }

func (f *Factory) newBase(kind viewer.BackendKind, id string) base {
	return base{
		factory: f,
		kind:    kind,
		logger:  f.logger.With().Str(xglog.FieldBackend, string(kind)).Str("element_id", id).Logger(),
	}
}

// base carries the lifecycle shared by all backends: one cancelable context
// per instance and an emit that goes quiet after Destroy.
type base struct {
	factory *Factory
	kind    viewer.BackendKind
	logger  zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	sink   viewer.Sink
}

func (b *base) Kind() viewer.BackendKind { return b.kind }

func (b *base) start(ctx context.Context, sink viewer.Sink) context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	b.sink = sink
	return b.ctx
}

func (b *base) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
}

// goFn runs fn on a goroutine tracked by the factory.
func (b *base) goFn(fn func()) {
	b.factory.wg.Add(1)
	go func() {
		defer b.factory.wg.Done()
		fn()
	}()
}

func (b *base) emit(ev viewer.BackendEvent) {
	b.mu.Lock()
	ctx, sink := b.ctx, b.sink
	b.mu.Unlock()
	if ctx == nil || ctx.Err() != nil || sink == nil {
		return
	}
	sink.Emit(ev)
}

func (b *base) fetch(ctx context.Context, url string) ([]byte, error) {
	return b.factory.fetcher.Fetch(ctx, url)
}
