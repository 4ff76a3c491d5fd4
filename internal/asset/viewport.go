// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

// Point is a viewport coordinate in the deep-zoom engine's units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair.
type Size struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewportState is the user's view into a deep-zoom image. It is a plain
// value; updates are merged explicitly with Apply.
type ViewportState struct {
	Center        *Point   `json:"center,omitempty"`
	Zoom          *float64 `json:"zoom,omitempty"`
	ContainerSize *Size    `json:"container_size,omitempty"`
	ContentSize   *Size    `json:"content_size,omitempty"`
}

// ViewportPatch carries the fields a single backend event touched.
type ViewportPatch struct {
	Center        *Point
	Zoom          *float64
	ContainerSize *Size
	ContentSize   *Size
}

// Apply returns a copy of v with the set fields of p merged in. The result
// never aliases p's pointers.
func (v ViewportState) Apply(p ViewportPatch) ViewportState {
	out := v.Clone()
	if p.Center != nil {
		c := *p.Center
		out.Center = &c
	}
	if p.Zoom != nil {
		z := *p.Zoom
		out.Zoom = &z
	}
	if p.ContainerSize != nil {
		s := *p.ContainerSize
		out.ContainerSize = &s
	}
	if p.ContentSize != nil {
		s := *p.ContentSize
		out.ContentSize = &s
	}
	return out
}

// Clone deep-copies the state.
func (v ViewportState) Clone() ViewportState {
	var out ViewportState
	if v.Center != nil {
		c := *v.Center
		out.Center = &c
	}
	if v.Zoom != nil {
		z := *v.Zoom
		out.Zoom = &z
	}
	if v.ContainerSize != nil {
		s := *v.ContainerSize
		out.ContainerSize = &s
	}
	if v.ContentSize != nil {
		s := *v.ContentSize
		out.ContentSize = &s
	}
	return out
}

// IsZero reports whether no viewport data has been recorded.
func (v ViewportState) IsZero() bool {
	return v.Center == nil && v.Zoom == nil && v.ContainerSize == nil && v.ContentSize == nil
}
