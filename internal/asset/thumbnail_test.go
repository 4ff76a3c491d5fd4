// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThumbnailURL(t *testing.T) {
	const host = "https://mdxdv.artstor.org"
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"relative", "imgstor/size2/a.jpg", host + "/thumb/imgstor/size2/a.jpg"},
		{"rooted", "/imgstor/size2/a.jpg", host + "/thumb/imgstor/size2/a.jpg"},
		{"already thumb", "/thumb/imgstor/a.jpg", host + "/thumb/imgstor/a.jpg"},
		{"artstor host", "https://mdxdv.artstor.org/thumb/x.jpg", host + "/thumb/x.jpg"},
		{"protocol relative", "//mdxstage.artstor.org/thumb/x.jpg", host + "/thumb/x.jpg"},
		{"foreign host", "http://cdn.example.com/img/x.jpg", host + "/thumb/img/x.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ThumbnailURL(host+"/", tt.in))
		})
	}
}

func TestReplaceThumbnailSize(t *testing.T) {
	assert.Equal(t, "/thumb/size3/a/size3.jpg", ReplaceThumbnailSize("/thumb/size1/a/size0.jpg", 3))
	assert.Equal(t, "/thumb/a.jpg", ReplaceThumbnailSize("/thumb/a.jpg", 3))
}

func TestFallbackThumbnail_StepsDownToZero(t *testing.T) {
	url, size := "/thumb/size3/a.jpg", 3
	var seen []string
	for {
		next, nextSize, ok := FallbackThumbnail(url, size)
		if !ok {
			break
		}
		url, size = next, nextSize
		seen = append(seen, url)
	}
	assert.Equal(t, []string{"/thumb/size2/a.jpg", "/thumb/size1/a.jpg", "/thumb/size0/a.jpg"}, seen)
	assert.Equal(t, 0, size)
}
