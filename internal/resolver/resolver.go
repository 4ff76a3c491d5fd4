// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resolver turns an asset identifier into a normalized asset
// record: one primary metadata lookup, mapping, and for time-based media a
// second lookup for the playback URL.
package resolver

import (
	"context"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/artstor-viewer/internal/artstor"
	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/cache"
	"github.com/ManuGH/artstor-viewer/internal/hosts"
	xglog "github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/metrics"
)

// DefaultCacheTTL bounds how long a resolved record is reused.
const DefaultCacheTTL = 5 * time.Minute

// MetadataSource is the upstream surface the resolver needs.
// *artstor.Client implements it.
type MetadataSource interface {
	Metadata(ctx context.Context, assetID string, opts artstor.RequestOptions) (*asset.RawRecord, error)
	GroupMetadata(ctx context.Context, groupID, assetID string, opts artstor.RequestOptions) (*asset.RawRecord, error)
	ResolveEncrypted(ctx context.Context, token, referrer string, opts artstor.RequestOptions) (*asset.RawRecord, error)
	PlaybackInfo(ctx context.Context, assetID string) (*artstor.PlaybackInfo, error)
}

// Options selects the lookup path.
type Options struct {
	// GroupID switches to the group-scoped endpoint.
	GroupID string
	// Encrypted treats the identifier as an encrypted token.
	Encrypted bool
	// Referrer is sent with encrypted lookups.
	Referrer string
	// Legacy is forwarded to the upstream as is.
	Legacy bool
}

func (o Options) path() string {
	switch {
	case o.Encrypted:
		return "encrypted"
	case o.GroupID != "":
		return "group"
	default:
		return "direct"
	}
}

// Resolver resolves identifiers to records. It is safe for concurrent use.
type Resolver struct {
	source MetadataSource
	env    hosts.Resolver
	cache  cache.Cache
	ttl    time.Duration
	flight singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables result caching. Encrypted lookups are never cached.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = c
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// New builds a resolver over source. env supplies the hostnames for the
// mapper and the playback URL rewrite.
func New(source MetadataSource, env hosts.Resolver, opts ...Option) *Resolver {
	if env == nil {
		env = hosts.New(false)
	}
	r := &Resolver{
		source: source,
		env:    env,
		cache:  cache.NewNoOpCache(),
		ttl:    DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches and normalizes one asset. Errors wrap ErrNotFound,
// ErrAuthorization, ErrNetwork or asset.ErrValidation; a canceled ctx
// returns ctx.Err().
//
// Identical concurrent calls share one upstream round trip. A caller whose
// ctx ends stops waiting; the shared lookup finishes for the others.
func (r *Resolver) Resolve(ctx context.Context, assetID string, opts Options) (*asset.Record, error) {
	assetID = strings.TrimSpace(assetID)
	logger := xglog.WithComponentFromContext(xglog.ContextWithAssetID(ctx, assetID), "resolver")

	if assetID == "" {
		err := classify(&artstor.Error{Sentinel: artstor.ErrInvalidRequest, Operation: "resolve", Body: "empty asset id"})
		metrics.RecordResolve(opts.path(), "", resultLabel(err))
		return nil, err
	}

	key := r.cacheKey(assetID, opts)
	if !opts.Encrypted {
		if rec, ok := r.fromCache(ctx, key); ok {
			metrics.RecordCacheLookup(true)
			metrics.RecordResolve(opts.path(), rec.MediaKind.String(), "success")
			return rec, nil
		}
		metrics.RecordCacheLookup(false)
	}

	ch := r.flight.DoChan(key, func() (any, error) {
		return r.resolve(context.WithoutCancel(ctx), assetID, opts, key)
	})

	select {
	case <-ctx.Done():
		metrics.RecordResolve(opts.path(), "", "canceled")
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			logger.Info().
				Str(xglog.FieldEvent, "resolve.failed").
				Str("path", opts.path()).
				Err(res.Err).
				Msg("asset resolution failed")
			metrics.RecordResolve(opts.path(), "", resultLabel(res.Err))
			return nil, res.Err
		}
		shared := res.Val.(*asset.Record)
		rec := *shared
		metrics.RecordResolve(opts.path(), rec.MediaKind.String(), "success")
		return &rec, nil
	}
}

func (r *Resolver) resolve(ctx context.Context, assetID string, opts Options, key string) (*asset.Record, error) {
	logger := xglog.WithComponentFromContext(xglog.ContextWithAssetID(ctx, assetID), "resolver")

	raw, err := r.fetchPrimary(ctx, assetID, opts)
	if err != nil {
		return nil, classify(err)
	}

	rec, err := asset.Map(raw, r.env)
	if err != nil {
		return nil, classify(err)
	}

	complete := true
	if rec.MediaKind.IsTimeBased() {
		metrics.RecordPlaybackLookup()
		info, err := r.source.PlaybackInfo(ctx, rec.ID)
		switch {
		case err != nil:
			// The record is still usable; the viewer degrades to a thumbnail.
			complete = false
			logger.Warn().
				Str(xglog.FieldEvent, "resolve.playback_lookup_failed").
				Str(xglog.FieldMediaKind, rec.MediaKind.String()).
				Err(err).
				Msg("media playback lookup failed")
		case info.ImageURL != "":
			rec = rec.WithPlayback(r.env.RewritePlaybackURL(info.ImageURL))
		}
	}

	logger.Debug().
		Str(xglog.FieldEvent, "resolve.completed").
		Str(xglog.FieldMediaKind, rec.MediaKind.String()).
		Int(xglog.FieldTypeCode, rec.ObjectTypeCode).
		Int("tile_sources", len(rec.TileSource)).
		Msg("asset resolved")

	if complete && !opts.Encrypted {
		r.toCache(ctx, key, rec)
	}
	return rec, nil
}

func (r *Resolver) fetchPrimary(ctx context.Context, assetID string, opts Options) (*asset.RawRecord, error) {
	ro := artstor.RequestOptions{Legacy: opts.Legacy}
	switch {
	case opts.Encrypted:
		return r.source.ResolveEncrypted(ctx, assetID, opts.Referrer, ro)
	case opts.GroupID != "":
		return r.source.GroupMetadata(ctx, opts.GroupID, assetID, ro)
	default:
		return r.source.Metadata(ctx, assetID, ro)
	}
}

func (r *Resolver) cacheKey(assetID string, opts Options) string {
	return strings.Join([]string{
		"resolve",
		opts.path(),
		strconv.FormatBool(r.env.IsTest()),
		strconv.FormatBool(opts.Legacy),
		opts.GroupID,
		opts.Referrer,
		assetID,
	}, "|")
}

func (r *Resolver) fromCache(ctx context.Context, key string) (*asset.Record, bool) {
	b, ok := r.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var rec asset.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		r.cache.Delete(ctx, key)
		return nil, false
	}
	return &rec, true
}

func (r *Resolver) toCache(ctx context.Context, key string, rec *asset.Record) {
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	r.cache.Set(ctx, key, b, r.ttl)
}
