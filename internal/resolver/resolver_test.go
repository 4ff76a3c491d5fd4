// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/artstor-viewer/internal/artstor"
	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/cache"
	"github.com/ManuGH/artstor-viewer/internal/hosts"
)

type fakeSource struct {
	mu        sync.Mutex
	records   map[string]*asset.RawRecord
	primary   error
	playback  error
	playURL   string
	gate      chan struct{}
	calls     atomic.Int32
	playCalls []string
	lastPath  string
	lastGroup string
	lastRef   string
	lastOpts  artstor.RequestOptions
}

func (f *fakeSource) lookup(id string) (*asset.RawRecord, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.primary != nil {
		return nil, f.primary
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, &artstor.Error{Sentinel: artstor.ErrNotFound, Operation: "metadata", Body: "unable to load metadata"}
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeSource) Metadata(_ context.Context, id string, opts artstor.RequestOptions) (*asset.RawRecord, error) {
	f.mu.Lock()
	f.lastPath, f.lastOpts = "direct", opts
	f.mu.Unlock()
	return f.lookup(id)
}

func (f *fakeSource) GroupMetadata(_ context.Context, group, id string, opts artstor.RequestOptions) (*asset.RawRecord, error) {
	f.mu.Lock()
	f.lastPath, f.lastGroup, f.lastOpts = "group", group, opts
	f.mu.Unlock()
	return f.lookup(id)
}

func (f *fakeSource) ResolveEncrypted(_ context.Context, token, ref string, opts artstor.RequestOptions) (*asset.RawRecord, error) {
	f.mu.Lock()
	f.lastPath, f.lastRef, f.lastOpts = "encrypted", ref, opts
	f.mu.Unlock()
	return f.lookup(token)
}

func (f *fakeSource) PlaybackInfo(_ context.Context, id string) (*artstor.PlaybackInfo, error) {
	f.mu.Lock()
	f.playCalls = append(f.playCalls, id)
	f.mu.Unlock()
	if f.playback != nil {
		return nil, f.playback
	}
	return &artstor.PlaybackInfo{ImageURL: f.playURL}, nil
}

func newSource(records ...*asset.RawRecord) *fakeSource {
	f := &fakeSource{records: map[string]*asset.RawRecord{}, playURL: "https://library.artstor.org/media/play.mp4"}
	for _, r := range records {
		f.records[r.ObjectID] = r
	}
	return f
}

func TestResolve_SecondaryFetchOnlyForTimeBased(t *testing.T) {
	for code := 0; code <= 30; code++ {
		src := newSource(&asset.RawRecord{ObjectID: "a1", ObjectTypeID: asset.FlexInt(code)})
		r := New(src, hosts.New(false))

		rec, err := r.Resolve(context.Background(), "a1", Options{})
		require.NoError(t, err, "code %d", code)

		if asset.Classify(code).IsTimeBased() {
			assert.Equal(t, []string{"a1"}, src.playCalls, "code %d", code)
			assert.Equal(t, "https://library.artstor.org/media/play.mp4", rec.MediaPlaybackURL)
		} else {
			assert.Empty(t, src.playCalls, "code %d", code)
			assert.Empty(t, rec.MediaPlaybackURL, "code %d", code)
		}
	}
}

func TestResolve_PlaybackRewrittenForTestEnvironment(t *testing.T) {
	src := newSource(&asset.RawRecord{ObjectID: "m1", ObjectTypeID: asset.TypeCodeMediaPlayback})
	r := New(src, hosts.New(true))

	rec, err := r.Resolve(context.Background(), "m1", Options{})
	require.NoError(t, err)
	assert.Equal(t, "https://stage.artstor.org/media/play.mp4", rec.MediaPlaybackURL)
}

func TestResolve_PlaybackFailureDegrades(t *testing.T) {
	src := newSource(&asset.RawRecord{ObjectID: "m1", ObjectTypeID: asset.TypeCodeAudio})
	src.playback = &artstor.Error{Sentinel: artstor.ErrUpstreamError, Operation: "playback_info", Status: 502}
	mem := cache.NewMemoryCache(0)
	r := New(src, hosts.New(false), WithCache(mem, time.Minute))

	rec, err := r.Resolve(context.Background(), "m1", Options{})
	require.NoError(t, err)
	assert.Empty(t, rec.MediaPlaybackURL)
	assert.Equal(t, int64(0), mem.Stats().Sets, "incomplete records are not cached")
}

func TestResolve_Paths(t *testing.T) {
	src := newSource(&asset.RawRecord{ObjectID: "a1", ObjectTypeID: 10})
	r := New(src, hosts.New(false))
	ctx := context.Background()

	_, err := r.Resolve(ctx, "a1", Options{GroupID: "g1", Legacy: true})
	require.NoError(t, err)
	assert.Equal(t, "group", src.lastPath)
	assert.Equal(t, "g1", src.lastGroup)
	assert.True(t, src.lastOpts.Legacy)

	_, err = r.Resolve(ctx, "a1", Options{Encrypted: true, Referrer: "https://ref", GroupID: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "encrypted", src.lastPath)
	assert.Equal(t, "https://ref", src.lastRef)

	_, err = r.Resolve(ctx, "a1", Options{})
	require.NoError(t, err)
	assert.Equal(t, "direct", src.lastPath)
}

func TestResolve_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		upstream error
		want     error
		notFound bool
	}{
		{"empty metadata", &artstor.Error{Sentinel: artstor.ErrNotFound}, ErrNotFound, true},
		{"forbidden", &artstor.Error{Sentinel: artstor.ErrAuthorization, Status: 403}, ErrAuthorization, true},
		{"server error", &artstor.Error{Sentinel: artstor.ErrUpstreamError, Status: 500}, ErrNetwork, false},
		{"timeout", &artstor.Error{Sentinel: artstor.ErrTimeout}, ErrNetwork, false},
		{"bad payload", &artstor.Error{Sentinel: artstor.ErrBadResponse}, ErrNetwork, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource()
			src.primary = tt.upstream
			r := New(src, hosts.New(false))

			_, err := r.Resolve(context.Background(), "a1", Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, errors.Is(err, tt.upstream), "upstream error stays in the chain")
			assert.Equal(t, tt.notFound, IsNotFoundLike(err))
		})
	}
}

func TestResolve_MissingRecordIsNotFound(t *testing.T) {
	r := New(newSource(), hosts.New(false))
	_, err := r.Resolve(context.Background(), "missing", Options{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolve_EmptyIdentifier(t *testing.T) {
	src := newSource()
	r := New(src, hosts.New(false))
	_, err := r.Resolve(context.Background(), "  ", Options{})
	assert.True(t, errors.Is(err, asset.ErrValidation))
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestResolve_CollapsesConcurrentCalls(t *testing.T) {
	src := newSource(&asset.RawRecord{ObjectID: "a1", ObjectTypeID: 10})
	src.gate = make(chan struct{})
	r := New(src, hosts.New(false))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*asset.Record, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := r.Resolve(context.Background(), "a1", Options{})
			assert.NoError(t, err)
			results[i] = rec
		}(i)
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, rec := range results {
		require.NotNil(t, rec)
		assert.Equal(t, "a1", rec.ID)
	}
}

func TestResolve_CanceledCallerReturnsEarly(t *testing.T) {
	src := newSource(&asset.RawRecord{ObjectID: "a1", ObjectTypeID: 10})
	src.gate = make(chan struct{})
	defer close(src.gate)
	r := New(src, hosts.New(false))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "a1", Options{})
		done <- err
	}()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Resolve did not return after cancel")
	}
}

func TestResolve_UsesCache(t *testing.T) {
	src := newSource(&asset.RawRecord{ObjectID: "a1", ObjectTypeID: 10, Title: "Cached", ImageURL: "x.fpx"})
	mem := cache.NewMemoryCache(0)
	r := New(src, hosts.New(false), WithCache(mem, time.Minute))
	ctx := context.Background()

	first, err := r.Resolve(ctx, "a1", Options{})
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "a1", Options{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.TileSource, second.TileSource)
	assert.Equal(t, int64(1), mem.Stats().Hits)

	_, err = r.Resolve(ctx, "a1", Options{GroupID: "g"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load(), "group lookups use their own key")
}

func TestResolve_EncryptedNotCached(t *testing.T) {
	src := newSource(&asset.RawRecord{ObjectID: "tok", ObjectTypeID: 10})
	mem := cache.NewMemoryCache(0)
	r := New(src, hosts.New(false), WithCache(mem, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), "tok", Options{Encrypted: true})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, int64(0), mem.Stats().Sets)
}
