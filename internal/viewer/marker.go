// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package viewer

import (
	"strings"

	"golang.org/x/net/html"
)

// The panorama engine reports descriptor load failures only as text in its
// rendered output, never through its error callback.
const (
	fatalMarker   = "FATAL ERROR"
	loadingMarker = "loading failed"
)

// ContainsFatalMarker reports whether the rendered panorama markup shows
// the engine's fatal load error. Both markers must be present in the text
// content; attribute values and comments are ignored.
func ContainsFatalMarker(markup string) bool {
	if markup == "" {
		return false
	}
	text := visibleText(markup)
	return strings.Contains(text, fatalMarker) && strings.Contains(text, loadingMarker)
}

func visibleText(markup string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way the text so far is all there is.
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}
}
