// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hosts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvironment_SelectsHostPair(t *testing.T) {
	prod := New(false)
	assert.False(t, prod.IsTest())
	assert.Equal(t, "https://library.artstor.org/", prod.APIBase())
	assert.Equal(t, "https://tsprod.artstor.org", prod.TileHost())
	assert.Equal(t, "https://mdxdv.artstor.org", prod.ThumbnailHost())

	stage := New(true)
	assert.True(t, stage.IsTest())
	assert.Equal(t, "https://stage.artstor.org/", stage.APIBase())
	assert.Equal(t, "https://tsstage.artstor.org", stage.TileHost())
	assert.Equal(t, "https://mdxstage.artstor.org", stage.ThumbnailHost())
}

func TestEnvironment_NormalizesSlashes(t *testing.T) {
	e := Environment{
		Production: Set{API: "http://api.local", Tiles: "http://tiles.local/", Thumbnails: "http://thumbs.local//"},
		Images:     "http://img.local",
	}
	assert.Equal(t, "http://api.local/", e.APIBase())
	assert.Equal(t, "http://tiles.local", e.TileHost())
	assert.Equal(t, "http://thumbs.local", e.ThumbnailHost())
	assert.Equal(t, "http://img.local/", e.ImageServer())
}

func TestEnvironment_ImageServerDefault(t *testing.T) {
	assert.Equal(t, DefaultImageServer, Environment{}.ImageServer())
}

func TestRewritePlaybackURL(t *testing.T) {
	raw := "https://library.artstor.org/kaltura/p/101/sp/10100/embedIframeJs?entry_id=0_abc"

	assert.Equal(t, raw, New(false).RewritePlaybackURL(raw))
	assert.Equal(t,
		"https://stage.artstor.org/kaltura/p/101/sp/10100/embedIframeJs?entry_id=0_abc",
		New(true).RewritePlaybackURL(raw))
	assert.Equal(t, "", New(true).RewritePlaybackURL(""))
}
