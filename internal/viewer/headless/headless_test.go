// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package headless

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/artstor-viewer/internal/artstor"
	"github.com/ManuGH/artstor-viewer/internal/hosts"
	"github.com/ManuGH/artstor-viewer/internal/viewer"
)

const infoJSON = `{
  "@context": "http://iiif.io/api/image/2/context.json",
  "@id": "https://tsprod.artstor.org/fpx/a.fpx",
  "protocol": "http://iiif.io/api/image",
  "width": 4000,
  "height": 3000,
  "tiles": [{"width": 512, "scaleFactors": [1, 2, 4, 8]}]
}`

const panoXML = `<krpano version="1.19">
  <preview url="preview.jpg" />
  <scene name="scene_1" title="Nave"><image><cube url="%SWFPATH%/a_%s.jpg" /></image></scene>
  <scene name="scene_2" title="Apse" />
</krpano>`

type chanSink chan viewer.BackendEvent

func (c chanSink) Emit(ev viewer.BackendEvent) { c <- ev }

func (c chanSink) next(t *testing.T) viewer.BackendEvent {
	t.Helper()
	select {
	case ev := <-c:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no backend event")
		return viewer.BackendEvent{}
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok/info.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(infoJSON))
	})
	mux.HandleFunc("/broken/info.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"width":0}`))
	})
	mux.HandleFunc("/pano.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(panoXML))
	})
	mux.HandleFunc("/empty.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<krpano />`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFactory(t *testing.T) (*Factory, *httptest.Server) {
	t.Helper()
	srv := newServer(t)
	client := artstor.New(hosts.New(false), artstor.Options{HTTPClient: srv.Client()})
	f := NewFactory(client)
	t.Cleanup(f.Wait)
	return f, srv
}

func TestParseImageInfo(t *testing.T) {
	info, err := ParseImageInfo([]byte(infoJSON))
	require.NoError(t, err)
	assert.Equal(t, 4000, info.Width)
	assert.Equal(t, 3000, info.Height)
	require.Len(t, info.Tiles, 1)
	assert.Equal(t, []int{1, 2, 4, 8}, info.Tiles[0].ScaleFactors)

	home := info.HomeViewport()
	assert.Equal(t, 0.5, home.Center.X)
	assert.Equal(t, 0.375, home.Center.Y)
	assert.Equal(t, 1.0, *home.Zoom)

	_, err = ParseImageInfo([]byte(`{"width":10}`))
	assert.Error(t, err)
	_, err = ParseImageInfo([]byte(`not json`))
	assert.Error(t, err)
}

func TestCountScenes(t *testing.T) {
	assert.Equal(t, 2, CountScenes([]byte(panoXML)))
	assert.Equal(t, 0, CountScenes([]byte(`<krpano />`)))
	assert.Equal(t, 0, CountScenes(nil))
}

func TestDeepZoom_OpensAndPages(t *testing.T) {
	f, srv := newFactory(t)
	b := f.DeepZoom(viewer.DeepZoomConfig{
		ID:           "dz",
		TileSources:  []string{srv.URL + "/ok/info.json", srv.URL + "/broken/info.json", srv.URL + "/ok/info.json"},
		SequenceMode: true,
		PageCount:    3,
	})
	defer b.Destroy()

	sink := make(chanSink, 16)
	require.NoError(t, b.Init(context.Background(), sink))

	ev := sink.next(t)
	assert.Equal(t, viewer.BackendViewport, ev.Type)
	assert.Equal(t, 4000.0, ev.Viewport.ContentSize.X)
	assert.Equal(t, viewer.BackendReady, sink.next(t).Type)

	pager, ok := b.(viewer.Pager)
	require.True(t, ok)

	require.NoError(t, pager.GoToPage(2))
	ev = sink.next(t)
	assert.Equal(t, viewer.BackendPageChanged, ev.Type)
	assert.Equal(t, 2, ev.Page)
	assert.Equal(t, viewer.BackendViewport, sink.next(t).Type)
	assert.Equal(t, viewer.BackendTileLoaded, sink.next(t).Type)

	require.NoError(t, pager.GoToPage(1))
	assert.Equal(t, viewer.BackendTileLoadFailed, sink.next(t).Type)

	assert.ErrorIs(t, pager.GoToPage(3), ErrPageOutOfRange)
}

func TestDeepZoom_OpenFailed(t *testing.T) {
	f, srv := newFactory(t)
	b := f.DeepZoom(viewer.DeepZoomConfig{TileSources: []string{srv.URL + "/missing/info.json"}})
	defer b.Destroy()

	sink := make(chanSink, 4)
	require.NoError(t, b.Init(context.Background(), sink))

	ev := sink.next(t)
	assert.Equal(t, viewer.BackendOpenFailed, ev.Type)
	assert.True(t, errors.Is(ev.Err, artstor.ErrNotFound))
}

func TestDeepZoom_NoTileSources(t *testing.T) {
	f, _ := newFactory(t)
	b := f.DeepZoom(viewer.DeepZoomConfig{})
	assert.Error(t, b.Init(context.Background(), make(chanSink, 1)))
}

func TestPanorama_RendersOrReportsFatal(t *testing.T) {
	f, srv := newFactory(t)

	tests := []struct {
		path  string
		fatal bool
	}{
		{"/pano.xml", false},
		{"/empty.xml", true},
		{"/gone.xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			b := f.Panorama(viewer.PanoramaConfig{ID: "pano-0", DescriptorURL: srv.URL + tt.path})
			defer b.Destroy()

			sink := make(chanSink, 4)
			require.NoError(t, b.Init(context.Background(), sink))
			assert.Equal(t, viewer.BackendLoaded, sink.next(t).Type)

			out := b.(viewer.RenderInspector).RenderedOutput()
			assert.Equal(t, tt.fatal, viewer.ContainsFatalMarker(out), out)
		})
	}
}

func TestMedia(t *testing.T) {
	f, _ := newFactory(t)

	b := f.Media(viewer.MediaConfig{ID: "m", PlaybackURL: "https://stor/a.mp3"})
	sink := make(chanSink, 1)
	require.NoError(t, b.Init(context.Background(), sink))
	assert.Equal(t, viewer.BackendReady, sink.next(t).Type)
	b.Destroy()

	empty := f.Media(viewer.MediaConfig{ID: "m"})
	assert.Error(t, empty.Init(context.Background(), sink))
}

func TestProbeDescriptor(t *testing.T) {
	f, srv := newFactory(t)
	assert.NoError(t, f.ProbeDescriptor(context.Background(), srv.URL+"/pano.xml"))
	assert.Error(t, f.ProbeDescriptor(context.Background(), srv.URL+"/nope.xml"))
}

func TestDestroySilencesEvents(t *testing.T) {
	f, srv := newFactory(t)
	b := f.DeepZoom(viewer.DeepZoomConfig{TileSources: []string{srv.URL + "/ok/info.json"}})

	sink := make(chanSink, 4)
	require.NoError(t, b.Init(context.Background(), sink))
	b.Destroy()
	f.Wait()

	select {
	case ev := <-sink:
		// The fetch may have finished before Destroy; nothing may follow it.
		assert.NotEqual(t, viewer.BackendOpenFailed, ev.Type)
	default:
	}
}
