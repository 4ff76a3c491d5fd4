// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package viewer

import (
	"github.com/ManuGH/artstor-viewer/internal/fsm"
)

// State is the viewer's rendering state.
type State string

const (
	StateLoading           State = "loading"
	StateDeepZoomReady     State = "deep_zoom_ready"
	StateMediaReady        State = "media_ready"
	StatePanoramaReady     State = "panorama_ready"
	StateThumbnailFallback State = "thumbnail_fallback"
)

// Event drives the state machine.
type Event string

const (
	EvResolvedDeepZoom  Event = "resolved_deep_zoom"
	EvResolvedMedia     Event = "resolved_media"
	EvResolvedThumbnail Event = "resolved_thumbnail"
	EvPanoramaReachable Event = "panorama_reachable"
	EvOpenFailed        Event = "open_failed"
	EvTileLoadFailed    Event = "tile_load_failed"
	EvLoadTimeout       Event = "load_timeout"
	EvReady             Event = "ready"
	EvTileLoaded        Event = "tile_loaded"
	EvPanoramaFatal     Event = "panorama_fatal"
	EvPanoramaError     Event = "panorama_error"
	EvMediaError        Event = "media_error"
	EvIdentifierChanged Event = "identifier_changed"
)

// NavSource tells the host which control moved the page.
type NavSource string

const (
	// NavArrow is a previous/next button.
	NavArrow NavSource = "arrow"
	// NavStrip is the deep-zoom engine's reference strip.
	NavStrip NavSource = "strip"
)

// transitions is the full edge list. Anything else is a bug in the loop.
func transitions() []fsm.Transition[State, Event] {
	return []fsm.Transition[State, Event]{
		{From: StateLoading, Event: EvResolvedDeepZoom, To: StateDeepZoomReady},
		{From: StateLoading, Event: EvResolvedMedia, To: StateMediaReady},
		{From: StateLoading, Event: EvResolvedThumbnail, To: StateThumbnailFallback},
		{From: StateLoading, Event: EvPanoramaReachable, To: StatePanoramaReady},

		{From: StateDeepZoomReady, Event: EvOpenFailed, To: StateThumbnailFallback},
		{From: StateDeepZoomReady, Event: EvTileLoadFailed, To: StateThumbnailFallback},
		{From: StateDeepZoomReady, Event: EvLoadTimeout, To: StateThumbnailFallback},
		{From: StateDeepZoomReady, Event: EvReady, To: StateDeepZoomReady},
		{From: StateDeepZoomReady, Event: EvTileLoaded, To: StateDeepZoomReady},

		{From: StatePanoramaReady, Event: EvPanoramaFatal, To: StateThumbnailFallback},
		{From: StatePanoramaReady, Event: EvPanoramaError, To: StateThumbnailFallback},

		{From: StateMediaReady, Event: EvMediaError, To: StateThumbnailFallback},

		{FromAny: true, Event: EvIdentifierChanged, To: StateLoading},
	}
}

func newMachine() *fsm.Machine[State, Event] {
	m, err := fsm.New(StateLoading, transitions())
	if err != nil {
		// The table is static; a duplicate edge is a programming error.
		panic(err)
	}
	return m
}
