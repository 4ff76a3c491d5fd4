// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package viewer

import (
	"context"

	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/resolver"
)

// BackendKind tags a rendering backend variant.
type BackendKind string

const (
	BackendDeepZoom BackendKind = "deep_zoom"
	BackendMedia    BackendKind = "media"
	BackendPanorama BackendKind = "panorama"
)

// Backend is one rendering engine instance. Init and Destroy are called on
// the viewer's loop goroutine; Init must not block. The backend reports
// progress by calling the Sink from any goroutine, including synchronously
// from Init or GoToPage.
type Backend interface {
	Kind() BackendKind
	Init(ctx context.Context, sink Sink) error
	Destroy()
}

// Pager is implemented by backends that can switch pages in sequence mode.
type Pager interface {
	GoToPage(page int) error
}

// RenderInspector exposes a backend's rendered markup for the post-ready
// failure scan.
type RenderInspector interface {
	RenderedOutput() string
}

// BackendEventType is the closed set of signals a backend can raise.
type BackendEventType string

const (
	BackendOpenFailed     BackendEventType = "open_failed"
	BackendTileLoadFailed BackendEventType = "tile_load_failed"
	BackendReady          BackendEventType = "ready"
	BackendTileLoaded     BackendEventType = "tile_loaded"
	BackendViewport       BackendEventType = "viewport"
	BackendPageChanged    BackendEventType = "page_changed"
	BackendLoaded         BackendEventType = "loaded"
	BackendError          BackendEventType = "error"
)

// BackendEvent is a single backend signal. Only the fields relevant to the
// type are set.
type BackendEvent struct {
	Type     BackendEventType
	Viewport asset.ViewportPatch
	Page     int
	Err      error
}

// Sink receives backend events. It is bound to one backend instance;
// events from a destroyed backend are dropped.
type Sink interface {
	Emit(ev BackendEvent)
}

// DeepZoomConfig initialises the tiled image engine.
type DeepZoomConfig struct {
	ID           string
	TileSources  []string
	SequenceMode bool
	PageCount    int
	InitialPage  int
}

// MediaConfig initialises the media player.
type MediaConfig struct {
	ID          string
	PlaybackURL string
}

// PanoramaConfig initialises the panorama engine.
type PanoramaConfig struct {
	ID            string
	DescriptorURL string
}

// BackendFactory builds the backend variants.
type BackendFactory interface {
	DeepZoom(cfg DeepZoomConfig) Backend
	Media(cfg MediaConfig) Backend
	Panorama(cfg PanoramaConfig) Backend
}

// AssetResolver resolves identifiers. *resolver.Resolver implements it.
type AssetResolver interface {
	Resolve(ctx context.Context, assetID string, opts resolver.Options) (*asset.Record, error)
}

// DescriptorProber checks that a panorama descriptor is reachable. A nil
// error means reachable.
type DescriptorProber interface {
	ProbeDescriptor(ctx context.Context, url string) error
}
