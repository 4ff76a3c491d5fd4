// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package viewer selects and drives exactly one rendering backend for a
// resolved asset and degrades to a static thumbnail when the backend fails.
//
// Each Viewer owns one goroutine. Resolve results, probe results, timers and
// backend events are posted to its mailbox and handled in order, so the
// state machine itself needs no locking. Every message carries the
// generation it was produced for; a new asset identifier bumps the
// generation and anything older is dropped.
package viewer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/fsm"
	xglog "github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/metrics"
	"github.com/ManuGH/artstor-viewer/internal/resolver"
)

// Defaults for Config.
const (
	DefaultDeepZoomTimeout      = 15 * time.Second
	DefaultPanoramaProbeTimeout = 5 * time.Second
	DefaultPanoramaCheckDelay   = time.Second
	mailboxSize                 = 64
)

// ErrClosed is returned by calls on a closed Viewer.
var ErrClosed = errors.New("viewer: closed")

// Config wires a Viewer to its collaborators.
type Config struct {
	Resolver AssetResolver
	Backends BackendFactory
	Prober   DescriptorProber
	Host     Host

	// ThumbnailOnly skips every rendering backend.
	ThumbnailOnly bool
	// Index distinguishes several viewers on one page (compare mode).
	Index int

	DeepZoomTimeout      time.Duration
	PanoramaProbeTimeout time.Duration
	PanoramaCheckDelay   time.Duration

	Logger *zerolog.Logger
}

// Viewer is one viewer instance.
type Viewer struct {
	cfg    Config
	logger zerolog.Logger

	mailbox chan message
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	workers sync.WaitGroup

	// Loop-owned state. Only the loop goroutine touches these.
	machine    *fsm.Machine[State, Event]
	gen        uint64
	cancel     context.CancelFunc
	assetID    string
	opts       resolver.Options
	record     *asset.Record
	resolveErr error
	backend    Backend
	sink       *boundSink
	backendSeq uint64
	dzReady    bool
	page       int
	pageCount  int
	thumbURL   string
	thumbSize  int
	viewport   asset.ViewportState
	settled    bool
	timers     []*time.Timer
	waiters    []chan Snapshot
}

// New starts a viewer. Close must be called to release it.
func New(cfg Config) *Viewer {
	if cfg.DeepZoomTimeout <= 0 {
		cfg.DeepZoomTimeout = DefaultDeepZoomTimeout
	}
	if cfg.PanoramaProbeTimeout <= 0 {
		cfg.PanoramaProbeTimeout = DefaultPanoramaProbeTimeout
	}
	if cfg.PanoramaCheckDelay <= 0 {
		cfg.PanoramaCheckDelay = DefaultPanoramaCheckDelay
	}
	if cfg.Host == nil {
		cfg.Host = HostFuncs{}
	}

	logger := xglog.WithComponent("viewer")
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str(xglog.FieldComponent, "viewer").Logger()
	}
	logger = logger.With().Int("index", cfg.Index).Logger()

	v := &Viewer{
		cfg:     cfg,
		logger:  logger,
		mailbox: make(chan message, mailboxSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		machine: newMachine(),
	}
	v.machine.OnTransition(v.onTransition)

	go v.loop()
	return v
}

// SetAsset switches the viewer to a new identifier. Setting the identifier
// the viewer already shows is a no-op.
func (v *Viewer) SetAsset(assetID string, opts resolver.Options) {
	v.post(setAssetMsg{id: assetID, opts: opts})
}

// SetThumbnailOnly toggles thumbnail-only mode. It applies from the next
// identifier change on.
func (v *Viewer) SetThumbnailOnly(on bool) {
	v.post(thumbOnlyMsg{on: on})
}

// NextPage and PrevPage are the arrow controls of a paged asset.
func (v *Viewer) NextPage() { v.post(navMsg{delta: 1, source: NavArrow}) }

func (v *Viewer) PrevPage() { v.post(navMsg{delta: -1, source: NavArrow}) }

// GoToPage jumps to a page, as the reference strip does.
func (v *Viewer) GoToPage(page int) { v.post(navMsg{page: page, absolute: true, source: NavStrip}) }

// ThumbnailError reports that the current thumbnail URL failed to load.
func (v *Viewer) ThumbnailError() { v.post(thumbErrorMsg{}) }

// Snapshot returns the current observable state.
func (v *Viewer) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !v.post(snapshotMsg{reply: reply}) {
		return Snapshot{}, ErrClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-v.done:
		return Snapshot{}, ErrClosed
	}
}

// AwaitSettled blocks until the current identifier reached a resting
// state: a backend confirmed it rendered, the thumbnail fallback was
// chosen, or resolution failed.
func (v *Viewer) AwaitSettled(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !v.post(awaitMsg{reply: reply}) {
		return Snapshot{}, ErrClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-v.done:
		return Snapshot{}, ErrClosed
	}
}

// Close destroys the live backend, stops the loop and waits for every
// goroutine the viewer started.
func (v *Viewer) Close() {
	v.once.Do(func() { close(v.stop) })
	<-v.done
	v.workers.Wait()
}

// post delivers msg unless the viewer is closed.
func (v *Viewer) post(msg message) bool {
	select {
	case <-v.done:
		return false
	default:
	}
	select {
	case v.mailbox <- msg:
		return true
	case <-v.done:
		return false
	}
}

// spawn runs fn on a tracked goroutine.
func (v *Viewer) spawn(fn func()) {
	v.workers.Add(1)
	go func() {
		defer v.workers.Done()
		fn()
	}()
}

func (v *Viewer) loop() {
	defer close(v.done)
	defer v.shutdown()

	for {
		select {
		case <-v.stop:
			return
		case msg := <-v.mailbox:
			v.handle(msg)
		}
	}
}

func (v *Viewer) shutdown() {
	if v.cancel != nil {
		v.cancel()
	}
	v.destroyBackend()
	v.stopTimers()
}

func (v *Viewer) handle(msg message) {
	switch m := msg.(type) {
	case setAssetMsg:
		v.onSetAsset(m)
	case thumbOnlyMsg:
		v.cfg.ThumbnailOnly = m.on
	case resolvedMsg:
		if v.stale(m.gen) {
			return
		}
		v.onResolved(m)
	case probeMsg:
		if v.stale(m.gen) {
			return
		}
		v.onProbe(m)
	case backendMsg:
		if v.stale(m.gen) || m.seq != v.backendSeq {
			return
		}
		v.onBackendEvent(m.ev)
	case timerMsg:
		if v.stale(m.gen) || m.seq != v.backendSeq {
			return
		}
		v.onTimer(m)
	case navMsg:
		v.onNav(m)
	case thumbErrorMsg:
		v.onThumbnailError()
	case snapshotMsg:
		m.reply <- v.snapshot()
	case awaitMsg:
		if v.settled {
			m.reply <- v.snapshot()
			return
		}
		v.waiters = append(v.waiters, m.reply)
	}
}

// stale drops results produced for an earlier identifier.
func (v *Viewer) stale(gen uint64) bool {
	if gen == v.gen {
		return false
	}
	metrics.RecordStaleResult()
	v.logger.Debug().
		Str(xglog.FieldEvent, "viewer.stale_result").
		Uint64(xglog.FieldGeneration, gen).
		Uint64("current_generation", v.gen).
		Msg("dropping result for previous asset")
	return true
}

func (v *Viewer) onSetAsset(m setAssetMsg) {
	if m.id == v.assetID && m.opts == v.opts && v.gen > 0 {
		return
	}

	if v.cancel != nil {
		v.cancel()
	}
	v.destroyBackend()
	v.stopTimers()

	v.gen++
	v.assetID = m.id
	v.opts = m.opts
	v.record = nil
	v.resolveErr = nil
	v.page, v.pageCount = 0, 0
	v.thumbURL, v.thumbSize = "", 0
	v.viewport = asset.ViewportState{}
	v.settled = false

	v.fire(EvIdentifierChanged)

	ctx, cancel := context.WithCancel(context.Background())
	ctx = xglog.ContextWithAssetID(ctx, m.id)
	v.cancel = cancel

	gen := v.gen
	resolve := v.cfg.Resolver
	v.spawn(func() {
		rec, err := resolve.Resolve(ctx, m.id, m.opts)
		v.post(resolvedMsg{gen: gen, rec: rec, err: err})
	})
}

func (v *Viewer) onResolved(m resolvedMsg) {
	if m.err != nil {
		v.resolveErr = m.err
		v.logger.Warn().
			Str(xglog.FieldEvent, "viewer.resolve_failed").
			Str(xglog.FieldAssetID, v.assetID).
			Err(m.err).
			Msg("asset resolution failed")
		v.cfg.Host.AssetFailed(v.assetID, m.err)
		v.settle()
		return
	}

	// The loop keeps its own copy; the host gets another one so neither
	// sees the other's viewport.
	own := *m.rec
	own.Viewport = m.rec.Viewport.Clone()
	v.record = &own
	v.thumbURL = own.ThumbnailURL
	v.thumbSize = own.ThumbnailSize
	v.viewport = own.Viewport.Clone()
	hostRec := own
	hostRec.Viewport = own.Viewport.Clone()
	v.cfg.Host.AssetResolved(&hostRec)

	kind := m.rec.MediaKind
	switch {
	case v.cfg.ThumbnailOnly:
		v.fallback(EvResolvedThumbnail, "thumbnail_only")
	case !kind.IsSupported():
		v.fallback(EvResolvedThumbnail, "unsupported")
	case kind.IsTimeBased():
		v.loadMedia()
	case kind.IsPanorama():
		v.loadPanorama()
	default:
		v.loadImage()
	}
}

func (v *Viewer) loadImage() {
	rec := v.record
	if len(rec.TileSource) == 0 {
		v.fallback(EvResolvedThumbnail, "no_tiles")
		return
	}
	v.pageCount = len(rec.TileSource)
	v.page = 0
	v.fire(EvResolvedDeepZoom)
	v.startBackend(v.cfg.Backends.DeepZoom(DeepZoomConfig{
		ID:           v.backendID(),
		TileSources:  append([]string(nil), rec.TileSource...),
		SequenceMode: rec.IsCompound(),
		PageCount:    v.pageCount,
		InitialPage:  0,
	}))
	v.startTimer(timerDeepZoom, v.cfg.DeepZoomTimeout)
}

func (v *Viewer) loadMedia() {
	if v.record.MediaPlaybackURL == "" {
		v.fallback(EvResolvedThumbnail, "no_playback_url")
		return
	}
	v.fire(EvResolvedMedia)
	v.startBackend(v.cfg.Backends.Media(MediaConfig{
		ID:          v.backendID(),
		PlaybackURL: v.record.MediaPlaybackURL,
	}))
}

func (v *Viewer) loadPanorama() {
	descriptor := v.record.PanoramaDescriptorURL
	if descriptor == "" || v.cfg.Prober == nil {
		v.loadImage()
		return
	}

	gen := v.gen
	timeout := v.cfg.PanoramaProbeTimeout
	prober := v.cfg.Prober
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	parent := v.cancel
	v.cancel = func() {
		cancel()
		parent()
	}
	v.spawn(func() {
		defer cancel()
		err := prober.ProbeDescriptor(ctx, descriptor)
		v.post(probeMsg{gen: gen, err: err})
	})
}

func (v *Viewer) onProbe(m probeMsg) {
	if m.err != nil {
		// Not an error for the host: the image viewer takes over.
		v.logger.Info().
			Str(xglog.FieldEvent, "viewer.panorama_unreachable").
			Str(xglog.FieldAssetID, v.assetID).
			Err(m.err).
			Msg("panorama descriptor not reachable, using image viewer")
		metrics.RecordViewerFallback("panorama_unreachable")
		v.loadImage()
		return
	}
	v.fire(EvPanoramaReachable)
	v.startBackend(v.cfg.Backends.Panorama(PanoramaConfig{
		ID:            v.backendID(),
		DescriptorURL: v.record.PanoramaDescriptorURL,
	}))
}

func (v *Viewer) onBackendEvent(ev BackendEvent) {
	state := v.machine.State()
	switch ev.Type {
	case BackendOpenFailed:
		v.backendFailed(EvOpenFailed, ev.Err)
	case BackendTileLoadFailed:
		v.backendFailed(EvTileLoadFailed, ev.Err)
	case BackendReady, BackendTileLoaded:
		switch state {
		case StateDeepZoomReady:
			v.dzReady = true
			if ev.Type == BackendReady {
				v.fire(EvReady)
			} else {
				v.fire(EvTileLoaded)
			}
			v.settle()
		case StateMediaReady:
			v.settle()
		}
	case BackendViewport:
		v.viewport = v.viewport.Apply(ev.Viewport)
	case BackendPageChanged:
		if state != StateDeepZoomReady || ev.Page == v.page {
			return
		}
		v.page = ev.Page
		v.cfg.Host.PageChanged(v.page, NavStrip)
	case BackendLoaded:
		if state == StatePanoramaReady {
			v.startTimer(timerPanoramaCheck, v.cfg.PanoramaCheckDelay)
		}
	case BackendError:
		switch state {
		case StatePanoramaReady:
			v.backendFailed(EvPanoramaError, ev.Err)
		case StateMediaReady:
			v.backendFailed(EvMediaError, ev.Err)
		case StateDeepZoomReady:
			v.backendFailed(EvOpenFailed, ev.Err)
		}
	}
}

func (v *Viewer) onTimer(m timerMsg) {
	switch m.kind {
	case timerDeepZoom:
		if v.machine.State() == StateDeepZoomReady && !v.dzReady {
			v.backendFailed(EvLoadTimeout, context.DeadlineExceeded)
		}
	case timerPanoramaCheck:
		if v.machine.State() != StatePanoramaReady {
			return
		}
		if ri, ok := v.backend.(RenderInspector); ok && ContainsFatalMarker(ri.RenderedOutput()) {
			v.backendFailed(EvPanoramaFatal, errors.New("panorama reported a fatal load error"))
			return
		}
		v.settle()
	}
}

func (v *Viewer) onNav(m navMsg) {
	if v.machine.State() != StateDeepZoomReady || v.pageCount < 2 {
		return
	}
	target := v.page + m.delta
	if m.absolute {
		target = m.page
	}
	if target < 0 || target >= v.pageCount || target == v.page {
		return
	}
	if p, ok := v.backend.(Pager); ok {
		held := v.sink
		held.hold()
		err := p.GoToPage(target)
		defer v.replay(held)
		if err != nil {
			v.logger.Warn().
				Str(xglog.FieldEvent, "viewer.page_change_failed").
				Int(xglog.FieldPage, target).
				Err(err).
				Msg("page change failed")
			return
		}
	}
	v.page = target
	v.cfg.Host.PageChanged(v.page, m.source)
}

func (v *Viewer) onThumbnailError() {
	if v.record == nil {
		return
	}
	url, size, ok := asset.FallbackThumbnail(v.thumbURL, v.thumbSize)
	if !ok {
		return
	}
	v.thumbURL, v.thumbSize = url, size
	v.cfg.Host.ThumbnailChanged(url, size)
}

func (v *Viewer) backendFailed(ev Event, err error) {
	if !v.machine.Can(ev) {
		return
	}
	v.logger.Info().
		Str(xglog.FieldEvent, "viewer.backend_failed").
		Str(xglog.FieldAssetID, v.assetID).
		Str(xglog.FieldBackend, string(v.backendKind())).
		Str("reason", string(ev)).
		AnErr("cause", err).
		Msg("backend failed, falling back to thumbnail")
	v.destroyBackend()
	v.stopTimers()
	v.fallback(ev, string(ev))
}

func (v *Viewer) fallback(ev Event, reason string) {
	metrics.RecordViewerFallback(reason)
	v.fire(ev)
	v.settle()
}

func (v *Viewer) fire(ev Event) {
	if _, err := v.machine.Fire(context.Background(), ev); err != nil {
		v.logger.Error().
			Str(xglog.FieldEvent, "viewer.invalid_transition").
			Err(err).
			Msg("state machine rejected event")
	}
}

func (v *Viewer) onTransition(from, to State, ev Event) {
	metrics.RecordViewerTransition(string(from), string(to), string(ev))
	v.logger.Debug().
		Str(xglog.FieldEvent, "viewer.transition").
		Str(xglog.FieldOldState, string(from)).
		Str(xglog.FieldNewState, string(to)).
		Str("trigger", string(ev)).
		Uint64(xglog.FieldGeneration, v.gen).
		Msg("viewer state changed")
	v.cfg.Host.StateChanged(from, to)
}

func (v *Viewer) startBackend(b Backend) {
	v.backendSeq++
	v.backend = b
	v.dzReady = false
	metrics.BackendStarted()

	sink := &boundSink{v: v, gen: v.gen, seq: v.backendSeq}
	v.sink = sink
	ctx := xglog.ContextWithAssetID(context.Background(), v.assetID)
	sink.hold()
	err := b.Init(ctx, sink)
	v.replay(sink)
	if err != nil && sink.seq == v.backendSeq {
		v.onBackendEvent(BackendEvent{Type: BackendError, Err: err})
	}
}

// replay handles events a backend emitted while the loop was calling into
// it. Posting them would block on a full mailbox the loop itself drains.
func (v *Viewer) replay(sink *boundSink) {
	for _, ev := range sink.release() {
		v.handle(backendMsg{gen: sink.gen, seq: sink.seq, ev: ev})
	}
}

func (v *Viewer) destroyBackend() {
	if v.backend == nil {
		return
	}
	v.backend.Destroy()
	v.backend = nil
	v.sink = nil
	v.backendSeq++
	metrics.BackendStopped()
}

func (v *Viewer) backendKind() BackendKind {
	if v.backend == nil {
		return ""
	}
	return v.backend.Kind()
}

func (v *Viewer) backendID() string {
	return v.assetID + "-" + strconv.Itoa(v.cfg.Index)
}

func (v *Viewer) startTimer(kind timerKind, d time.Duration) {
	msg := timerMsg{gen: v.gen, seq: v.backendSeq, kind: kind}
	v.timers = append(v.timers, time.AfterFunc(d, func() { v.post(msg) }))
}

func (v *Viewer) stopTimers() {
	for _, t := range v.timers {
		t.Stop()
	}
	v.timers = nil
}

func (v *Viewer) settle() {
	v.settled = true
	if len(v.waiters) == 0 {
		return
	}
	snap := v.snapshot()
	for _, w := range v.waiters {
		w <- snap
	}
	v.waiters = nil
}

func (v *Viewer) snapshot() Snapshot {
	s := Snapshot{
		AssetID:       v.assetID,
		Generation:    v.gen,
		State:         v.machine.State(),
		Backend:       v.backendKind(),
		Err:           v.resolveErr,
		Page:          v.page,
		PageCount:     v.pageCount,
		ThumbnailURL:  v.thumbURL,
		ThumbnailSize: v.thumbSize,
		Viewport:      v.viewport.Clone(),
		Settled:       v.settled,
	}
	if v.record != nil {
		rec := *v.record
		rec.Viewport = v.viewport.Clone()
		s.Record = &rec
	}
	return s
}

// boundSink tags backend events with the generation and backend instance
// they belong to.
type boundSink struct {
	v   *Viewer
	gen uint64
	seq uint64

	mu      sync.Mutex
	held    bool
	pending []BackendEvent
}

// hold queues events instead of posting them until release.
func (s *boundSink) hold() {
	s.mu.Lock()
	s.held = true
	s.mu.Unlock()
}

func (s *boundSink) release() []BackendEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.pending
	s.pending = nil
	s.held = false
	return pending
}

func (s *boundSink) Emit(ev BackendEvent) {
	s.mu.Lock()
	if s.held {
		s.pending = append(s.pending, ev)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.v.post(backendMsg{gen: s.gen, seq: s.seq, ev: ev})
}
