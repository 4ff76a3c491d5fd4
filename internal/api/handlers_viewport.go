// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/artstor-viewer/internal/asset"
)

const maxViewportBody = 16 << 10

// patchOf turns the set fields of a state into a patch.
func patchOf(v asset.ViewportState) asset.ViewportPatch {
	return asset.ViewportPatch{
		Center:        v.Center,
		Zoom:          v.Zoom,
		ContainerSize: v.ContainerSize,
		ContentSize:   v.ContentSize,
	}
}

func validateViewport(v asset.ViewportState) error {
	if v.IsZero() {
		return fmt.Errorf("%w: viewport patch sets no field", asset.ErrValidation)
	}
	if v.Zoom != nil && *v.Zoom <= 0 {
		return fmt.Errorf("%w: zoom must be positive", asset.ErrValidation)
	}
	for name, s := range map[string]*asset.Size{"container_size": v.ContainerSize, "content_size": v.ContentSize} {
		if s != nil && (s.X < 0 || s.Y < 0) {
			return fmt.Errorf("%w: %s must not be negative", asset.ErrValidation, name)
		}
	}
	return nil
}

func (s *Server) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	entry, err := s.deps.Viewports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}

// handlePutViewport merges the body into the stored viewport.
func (s *Server) handlePutViewport(w http.ResponseWriter, r *http.Request) {
	var body asset.ViewportState
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxViewportBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, r, fmt.Errorf("%w: %s", asset.ErrValidation, strings.TrimSpace(err.Error())))
		return
	}
	if err := validateViewport(body); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.deps.Viewports.Put(r.Context(), chi.URLParam(r, "id"), patchOf(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}

func (s *Server) handleDeleteViewport(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Viewports.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
