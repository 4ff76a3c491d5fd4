// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package headless

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	xhtml "golang.org/x/net/html"

	xglog "github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/viewer"
)

var errNoScenes = errors.New("descriptor has no scenes")

// CountScenes returns the number of <scene> elements in a panorama
// descriptor.
func CountScenes(descriptor []byte) int {
	n := 0
	z := xhtml.NewTokenizer(bytes.NewReader(descriptor))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return n
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "scene" {
				n++
			}
		}
	}
}

type panorama struct {
	base
	cfg viewer.PanoramaConfig

	output string
}

var _ viewer.RenderInspector = (*panorama)(nil)

// Init loads the descriptor and renders. Like the real engine, a broken
// descriptor is reported only through the rendered markup.
func (p *panorama) Init(ctx context.Context, sink viewer.Sink) error {
	runCtx := p.start(ctx, sink)
	p.goFn(func() {
		out, err := p.render(runCtx)
		if err != nil {
			p.logger.Info().
				Str(xglog.FieldEvent, "headless.panorama_failed").
				Str(xglog.FieldURL, p.cfg.DescriptorURL).
				Err(err).
				Msg("panorama descriptor failed to load")
		}
		p.mu.Lock()
		p.output = out
		p.mu.Unlock()
		p.emit(viewer.BackendEvent{Type: viewer.BackendLoaded})
	})
	return nil
}

func (p *panorama) RenderedOutput() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output
}

func (p *panorama) render(ctx context.Context) (string, error) {
	body, err := p.fetch(ctx, p.cfg.DescriptorURL)
	if err == nil && CountScenes(body) == 0 {
		err = errNoScenes
	}
	if err != nil {
		return fmt.Sprintf(`<div id="%s" class="pano-error">FATAL ERROR: %s - loading failed!</div>`,
			html.EscapeString(p.cfg.ID), html.EscapeString(p.cfg.DescriptorURL)), err
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div id="%s" class="pano" data-scenes="%d">`, html.EscapeString(p.cfg.ID), CountScenes(body))
	b.WriteString(`<canvas></canvas></div>`)
	return b.String(), nil
}
