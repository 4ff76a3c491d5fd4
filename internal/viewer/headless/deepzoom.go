// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/ManuGH/artstor-viewer/internal/asset"
	xglog "github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/viewer"
)

// ErrPageOutOfRange is returned by GoToPage for pages outside the sequence.
var ErrPageOutOfRange = errors.New("headless: page out of range")

// ImageInfo is the subset of a IIIF Image API info.json the viewer uses.
type ImageInfo struct {
	Context  string     `json:"@context"`
	ID       string     `json:"@id"`
	Protocol string     `json:"protocol"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	Tiles    []TileInfo `json:"tiles"`
}

// TileInfo is one entry of the info.json tiles array.
type TileInfo struct {
	Width        int   `json:"width"`
	Height       int   `json:"height,omitempty"`
	ScaleFactors []int `json:"scaleFactors"`
}

// ParseImageInfo decodes and sanity-checks an info.json document.
func ParseImageInfo(body []byte) (*ImageInfo, error) {
	var info ImageInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode info.json: %w", err)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("info.json: invalid dimensions %dx%d", info.Width, info.Height)
	}
	return &info, nil
}

// HomeViewport is the view the engine opens with: the whole image fitted,
// in coordinates where the image width is 1.
func (i *ImageInfo) HomeViewport() asset.ViewportPatch {
	zoom := 1.0
	return asset.ViewportPatch{
		Center:      &asset.Point{X: 0.5, Y: 0.5 * float64(i.Height) / float64(i.Width)},
		Zoom:        &zoom,
		ContentSize: &asset.Size{X: float64(i.Width), Y: float64(i.Height)},
	}
}

type deepZoom struct {
	base
	cfg viewer.DeepZoomConfig

	pageMu sync.Mutex
	page   int
	info   *ImageInfo
}

var _ viewer.Pager = (*deepZoom)(nil)

func (d *deepZoom) Init(ctx context.Context, sink viewer.Sink) error {
	if len(d.cfg.TileSources) == 0 {
		return errors.New("headless: no tile sources")
	}
	page := d.cfg.InitialPage
	if page < 0 || page >= len(d.cfg.TileSources) {
		page = 0
	}
	d.page = page

	runCtx := d.start(ctx, sink)
	d.goFn(func() {
		info, err := d.open(runCtx, page)
		if err != nil {
			d.logger.Warn().
				Str(xglog.FieldEvent, "headless.open_failed").
				Str(xglog.FieldURL, d.cfg.TileSources[page]).
				Err(err).
				Msg("tile source could not be opened")
			d.emit(viewer.BackendEvent{Type: viewer.BackendOpenFailed, Err: err})
			return
		}
		d.emit(viewer.BackendEvent{Type: viewer.BackendViewport, Viewport: info.HomeViewport()})
		d.emit(viewer.BackendEvent{Type: viewer.BackendReady})
	})
	return nil
}

// GoToPage opens another page of the sequence. The page_changed event
// follows once its tile source answered.
func (d *deepZoom) GoToPage(page int) error {
	if page < 0 || page >= len(d.cfg.TileSources) {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, len(d.cfg.TileSources))
	}
	d.mu.Lock()
	runCtx := d.ctx
	d.mu.Unlock()
	if runCtx == nil {
		return errors.New("headless: backend not initialised")
	}

	d.goFn(func() {
		info, err := d.open(runCtx, page)
		if err != nil {
			d.emit(viewer.BackendEvent{Type: viewer.BackendTileLoadFailed, Err: err})
			return
		}
		d.emit(viewer.BackendEvent{Type: viewer.BackendPageChanged, Page: page})
		d.emit(viewer.BackendEvent{Type: viewer.BackendViewport, Viewport: info.HomeViewport()})
		d.emit(viewer.BackendEvent{Type: viewer.BackendTileLoaded})
	})
	return nil
}

func (d *deepZoom) open(ctx context.Context, page int) (*ImageInfo, error) {
	body, err := d.fetch(ctx, d.cfg.TileSources[page])
	if err != nil {
		return nil, err
	}
	info, err := ParseImageInfo(body)
	if err != nil {
		return nil, err
	}
	d.pageMu.Lock()
	d.page, d.info = page, info
	d.pageMu.Unlock()
	return info, nil
}
