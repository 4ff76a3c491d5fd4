// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/artstor-viewer/internal/api/middleware"
	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/resolver"
	"github.com/ManuGH/artstor-viewer/internal/telemetry"
	"github.com/ManuGH/artstor-viewer/internal/viewer"
	"github.com/ManuGH/artstor-viewer/internal/viewport"
)

// assetRequest is the parsed identifier and lookup options of a request.
type assetRequest struct {
	id   string
	opts resolver.Options
}

func parseBoolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: query parameter %q must be a boolean", asset.ErrValidation, name)
	}
	return v, nil
}

func (s *Server) parseAssetRequest(r *http.Request) (assetRequest, error) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return assetRequest{}, fmt.Errorf("%w: empty asset id", asset.ErrValidation)
	}
	q := r.URL.Query()
	encrypted, err := parseBoolParam(r, "encrypted", false)
	if err != nil {
		return assetRequest{}, err
	}
	legacy, err := parseBoolParam(r, "legacy", s.deps.Config.Get().Legacy)
	if err != nil {
		return assetRequest{}, err
	}
	return assetRequest{
		id: id,
		opts: resolver.Options{
			GroupID:   strings.TrimSpace(q.Get("group_id")),
			Encrypted: encrypted,
			Referrer:  q.Get("ref"),
			Legacy:    legacy,
		},
	}, nil
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseAssetRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := log.ContextWithAssetID(r.Context(), req.id)
	middleware.AddSpanAttributes(r, telemetry.AssetAttributes(req.id, req.opts.GroupID, req.opts.Encrypted)...)

	rec, err := s.deps.Resolver.Resolve(ctx, req.id, req.opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.AddSpanAttributes(r, telemetry.RecordAttributes(string(rec.MediaKind), rec.ObjectTypeCode)...)
	writeJSON(w, r, http.StatusOK, rec)
}

// viewerResponse is the settled state of a headless viewer session.
type viewerResponse struct {
	AssetID       string              `json:"asset_id"`
	State         viewer.State        `json:"state"`
	Backend       viewer.BackendKind  `json:"backend,omitempty"`
	Record        *asset.Record       `json:"record,omitempty"`
	Page          int                 `json:"page"`
	PageCount     int                 `json:"page_count"`
	ThumbnailURL  string              `json:"thumbnail_url,omitempty"`
	ThumbnailSize int                 `json:"thumbnail_size"`
	Viewport      asset.ViewportState `json:"viewport"`
	Settled       bool                `json:"settled"`
	Transitions   []transition        `json:"transitions"`
}

type transition struct {
	From viewer.State `json:"from"`
	To   viewer.State `json:"to"`
}

// handleViewer runs one viewer against headless backends until it settles.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseAssetRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	thumbOnly, err := parseBoolParam(r, "thumbnail", false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !s.beginSession() {
		writeError(w, r, ErrShuttingDown)
		return
	}
	defer s.sessions.Done()

	cfg := s.deps.Config.Get()
	ctx := log.ContextWithAssetID(r.Context(), req.id)
	logger := log.WithContext(ctx, log.WithComponent("api.viewer"))
	middleware.AddSpanAttributes(r, telemetry.AssetAttributes(req.id, req.opts.GroupID, req.opts.Encrypted)...)

	var transitions []transition
	host := viewer.HostFuncs{
		OnStateChanged: func(from, to viewer.State) {
			if from != to {
				transitions = append(transitions, transition{From: from, To: to})
			}
		},
	}

	v := viewer.New(viewer.Config{
		Resolver:             s.deps.Resolver,
		Backends:             s.deps.Backends,
		Prober:               s.deps.Prober,
		Host:                 host,
		ThumbnailOnly:        thumbOnly,
		DeepZoomTimeout:      cfg.Viewer.DeepZoomTimeout,
		PanoramaProbeTimeout: cfg.Viewer.PanoramaProbeTimeout,
		PanoramaCheckDelay:   cfg.Viewer.PanoramaCheckDelay,
		Logger:               &logger,
	})
	defer v.Close()
	v.SetAsset(req.id, req.opts)

	settleCtx, cancel := context.WithTimeout(ctx, cfg.Viewer.SettleTimeout)
	defer cancel()
	snap, err := v.AwaitSettled(settleCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		// Report where the viewer got stuck rather than failing outright.
		snapCtx, snapCancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		snap, err = v.Snapshot(snapCtx)
		snapCancel()
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snap.Err != nil {
		writeError(w, r, snap.Err)
		return
	}
	middleware.AddSpanAttributes(r, telemetry.ViewerAttributes(string(snap.State), string(snap.Backend), snap.Generation, snap.PageCount)...)

	resp := viewerResponse{
		AssetID:       snap.AssetID,
		State:         snap.State,
		Backend:       snap.Backend,
		Record:        snap.Record,
		Page:          snap.Page,
		PageCount:     snap.PageCount,
		ThumbnailURL:  snap.ThumbnailURL,
		ThumbnailSize: snap.ThumbnailSize,
		Viewport:      snap.Viewport,
		Settled:       snap.Settled,
	}
	// The transitions slice is written by the loop goroutine; Close joins it.
	v.Close()
	resp.Transitions = transitions
	if resp.Transitions == nil {
		resp.Transitions = []transition{}
	}

	if !resp.Viewport.IsZero() {
		if _, err := s.deps.Viewports.Put(ctx, req.id, patchOf(resp.Viewport)); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "viewport.persist_failed").Msg("failed to persist viewport")
		}
	} else if stored, err := s.deps.Viewports.Get(ctx, req.id); err == nil {
		resp.Viewport = stored.State
	} else if !errors.Is(err, viewport.ErrNotFound) {
		logger.Warn().Err(err).Str(log.FieldEvent, "viewport.load_failed").Msg("failed to load viewport")
	}

	logger.Info().
		Str(log.FieldEvent, "viewer.session").
		Str(log.FieldNewState, string(resp.State)).
		Str(log.FieldBackend, string(resp.Backend)).
		Bool("settled", resp.Settled).
		Msg("viewer session finished")
	writeJSON(w, r, http.StatusOK, resp)
}
