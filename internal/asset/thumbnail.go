// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultThumbnailSize is the size token a freshly mapped record carries.
const DefaultThumbnailSize = 3

var sizeToken = regexp.MustCompile(`size[0-9]`)

// ReplaceThumbnailSize rewrites every sizeN token in url to the given size.
func ReplaceThumbnailSize(url string, size int) string {
	return sizeToken.ReplaceAllLiteralString(url, "size"+strconv.Itoa(size))
}

// ThumbnailURL makes path absolute against the thumbnail host. Any scheme
// and host already present on path are dropped, and paths that do not live
// under a thumb directory get a /thumb prefix. An empty path stays empty.
func ThumbnailURL(host, path string) string {
	if path == "" {
		return ""
	}
	path = stripHost(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.Contains(path, "thumb") {
		path = "/thumb" + path
	}
	return strings.TrimRight(host, "/") + path
}

// FallbackThumbnail steps the size token down by one. It returns the new
// URL and size, and ok=false once size 0 has already been reached.
func FallbackThumbnail(url string, size int) (string, int, bool) {
	if size <= 0 {
		return url, 0, false
	}
	size--
	return ReplaceThumbnailSize(url, size), size, true
}

func stripHost(s string) string {
	rest := s
	switch {
	case strings.HasPrefix(rest, "//"):
		rest = rest[2:]
	case strings.Contains(rest, "://"):
		rest = rest[strings.Index(rest, "://")+3:]
	default:
		return s
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i:]
	}
	return ""
}
