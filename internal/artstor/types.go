// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package artstor

import "github.com/ManuGH/artstor-viewer/internal/asset"

// MetadataResponse is the envelope shared by the direct, group and
// encrypted lookups.
type MetadataResponse struct {
	Success  bool              `json:"success"`
	Total    int               `json:"total"`
	Metadata []asset.RawRecord `json:"metadata"`
}

// PlaybackInfo is the media playback lookup payload.
type PlaybackInfo struct {
	ImageID     string        `json:"imageId"`
	ImageURL    string        `json:"imageUrl"`
	Width       asset.FlexInt `json:"width"`
	Height      asset.FlexInt `json:"height"`
	ResolutionX asset.FlexInt `json:"resolutionX"`
	ResolutionY asset.FlexInt `json:"resolutionY"`
	ID          struct {
		FileName   string        `json:"fileName"`
		Resolution asset.FlexInt `json:"resolution"`
	} `json:"id"`
}

// RequestOptions carries per-call flags.
type RequestOptions struct {
	// Legacy is forwarded verbatim as the legacy query parameter.
	Legacy bool
}
