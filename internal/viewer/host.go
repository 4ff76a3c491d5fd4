// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package viewer

import (
	"github.com/ManuGH/artstor-viewer/internal/asset"
)

// Host receives viewer notifications. All methods are called on the
// viewer's loop goroutine and must not block.
type Host interface {
	// AssetResolved fires once per identifier with the resolved record.
	AssetResolved(rec *asset.Record)
	// AssetFailed fires once per identifier when resolution failed.
	AssetFailed(assetID string, err error)
	StateChanged(from, to State)
	PageChanged(page int, source NavSource)
	ThumbnailChanged(url string, size int)
}

// HostFuncs adapts optional callbacks to Host. Nil fields are skipped.
type HostFuncs struct {
	OnAssetResolved    func(rec *asset.Record)
	OnAssetFailed      func(assetID string, err error)
	OnStateChanged     func(from, to State)
	OnPageChanged      func(page int, source NavSource)
	OnThumbnailChanged func(url string, size int)
}

var _ Host = HostFuncs{}

func (h HostFuncs) AssetResolved(rec *asset.Record) {
	if h.OnAssetResolved != nil {
		h.OnAssetResolved(rec)
	}
}

func (h HostFuncs) AssetFailed(assetID string, err error) {
	if h.OnAssetFailed != nil {
		h.OnAssetFailed(assetID, err)
	}
}

func (h HostFuncs) StateChanged(from, to State) {
	if h.OnStateChanged != nil {
		h.OnStateChanged(from, to)
	}
}

func (h HostFuncs) PageChanged(page int, source NavSource) {
	if h.OnPageChanged != nil {
		h.OnPageChanged(page, source)
	}
}

func (h HostFuncs) ThumbnailChanged(url string, size int) {
	if h.OnThumbnailChanged != nil {
		h.OnThumbnailChanged(url, size)
	}
}

// Snapshot is a consistent copy of the viewer's observable state.
type Snapshot struct {
	AssetID       string              `json:"asset_id"`
	Generation    uint64              `json:"generation"`
	State         State               `json:"state"`
	Backend       BackendKind         `json:"backend,omitempty"`
	Record        *asset.Record       `json:"record,omitempty"`
	Err           error               `json:"-"`
	Page          int                 `json:"page"`
	PageCount     int                 `json:"page_count"`
	ThumbnailURL  string              `json:"thumbnail_url,omitempty"`
	ThumbnailSize int                 `json:"thumbnail_size"`
	Viewport      asset.ViewportState `json:"viewport"`
	Settled       bool                `json:"settled"`
}
