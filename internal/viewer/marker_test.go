// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsFatalMarker(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   bool
	}{
		{"empty", "", false},
		{"healthy", `<div id="pano"><canvas></canvas></div>`, false},
		{"fatal", `<div class="err">FATAL ERROR: pano.xml - loading failed! (404)</div>`, true},
		{"nested", `<div><span>FATAL ERROR</span> <b>tiles loading failed</b></div>`, true},
		{"only first half", `<div>FATAL ERROR: out of memory</div>`, false},
		{"only second half", `<div>preview loading failed</div>`, false},
		{"marker in attribute", `<div title="FATAL ERROR loading failed"></div>`, false},
		{"marker in script", `<script>var s = "FATAL ERROR loading failed";</script>`, true},
		{"unterminated", `<div>FATAL ERROR loading failed`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsFatalMarker(tt.markup))
		})
	}
}
