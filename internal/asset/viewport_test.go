// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportState_ApplyMergesSetFields(t *testing.T) {
	zoom := 2.5
	var v ViewportState
	assert.True(t, v.IsZero())

	v = v.Apply(ViewportPatch{Center: &Point{X: 0.5, Y: 0.25}, Zoom: &zoom})
	require.NotNil(t, v.Center)
	require.NotNil(t, v.Zoom)
	assert.Nil(t, v.ContainerSize)

	zoom = 9
	assert.Equal(t, 2.5, *v.Zoom, "patch pointers must not alias the state")

	w := v.Apply(ViewportPatch{ContainerSize: &Size{X: 800, Y: 600}})
	assert.Equal(t, Point{X: 0.5, Y: 0.25}, *w.Center)
	assert.Equal(t, Size{X: 800, Y: 600}, *w.ContainerSize)

	w.Center.X = 1
	assert.Equal(t, 0.5, v.Center.X, "apply must return an independent copy")
}
