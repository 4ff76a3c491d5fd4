// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package presentation implements presentation (fullscreen) mode: one
// boolean flag, the vendor fallback order for entering and leaving the
// platform fullscreen, and the cleanup that runs when the user leaves
// fullscreen from outside the viewer.
package presentation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/artstor-viewer/internal/log"
)

// Method names one vendor flavour of the fullscreen API.
type Method string

const (
	MethodStandard Method = "standard"
	MethodWebkit   Method = "webkit"
	MethodMoz      Method = "moz"
	MethodMS       Method = "ms"
)

var (
	requestOrder = []Method{MethodStandard, MethodWebkit, MethodMoz, MethodMS}
	exitOrder    = []Method{MethodMoz, MethodWebkit, MethodStandard}
)

// ErrUnsupported is returned by a Platform for methods it does not have.
var ErrUnsupported = errors.New("presentation: method not supported")

// Platform is the host's fullscreen API.
type Platform interface {
	// RequestFullscreen puts the root element into fullscreen.
	RequestFullscreen(m Method) error
	// ExitFullscreen leaves fullscreen.
	ExitFullscreen(m Method) error
	// SendLegacyKey emulates the fullscreen key for platforms without any
	// fullscreen API.
	SendLegacyKey() error
	// IsFullscreen reports the platform's current fullscreen state.
	IsFullscreen() bool
	// Subscribe registers fn for fullscreen change notifications and
	// returns the function that removes it.
	Subscribe(fn func()) (unsubscribe func())
}

// Thumbnail is one selectable entry of the caller's results list.
type Thumbnail struct {
	ID       string
	Selected bool
}

// Options configures a Controller.
type Options struct {
	// Index of the viewer on the page. Viewers after the first only exist
	// in presentation mode and start with the flag set.
	Index int
	// OnChange receives every flag change.
	OnChange func(fullscreen bool)
	Logger   *zerolog.Logger
}

// Controller owns the presentation flag. It is safe for concurrent use;
// platform notifications may arrive on any goroutine.
type Controller struct {
	platform Platform
	onChange func(bool)
	logger   zerolog.Logger

	mu          sync.Mutex
	fullscreen  bool
	assets      []string
	results     []*Thumbnail
	unsubscribe func()
}

// New returns a controller. Start must be called to follow external
// fullscreen changes.
func New(p Platform, opts Options) *Controller {
	logger := xglog.WithComponent("presentation")
	if opts.Logger != nil {
		logger = opts.Logger.With().Str(xglog.FieldComponent, "presentation").Logger()
	}
	return &Controller{
		platform:   p,
		onChange:   opts.OnChange,
		logger:     logger,
		fullscreen: opts.Index > 0,
	}
}

// Start installs the single platform subscription. Calling it again is a
// no-op.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		return
	}
	c.unsubscribe = c.platform.Subscribe(c.onPlatformChange)
}

// Close removes the platform subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// IsFullscreen reports the flag.
func (c *Controller) IsFullscreen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fullscreen
}

// SetAssets replaces the compare list. The first entry is the primary
// asset.
func (c *Controller) SetAssets(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets = append([]string(nil), ids...)
}

// Assets returns a copy of the compare list.
func (c *Controller) Assets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.assets...)
}

// SetResults hands the controller the caller's results list. The entries
// are shared; leaving fullscreen externally deselects them in place.
func (c *Controller) SetResults(results []*Thumbnail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = results
}

// Toggle enters or leaves presentation mode and returns the new flag. The
// flag flips even when the platform refused; the returned error says so.
func (c *Controller) Toggle() (bool, error) {
	c.mu.Lock()
	entering := !c.fullscreen
	c.fullscreen = entering
	c.mu.Unlock()

	var err error
	if entering {
		err = c.enter()
	} else {
		err = c.exit()
	}
	if err != nil {
		c.logger.Warn().
			Str(xglog.FieldEvent, "presentation.platform_failed").
			Bool("entering", entering).
			Err(err).
			Msg("platform fullscreen call failed")
	}
	c.notify(entering)
	return entering, err
}

func (c *Controller) enter() error {
	for _, m := range requestOrder {
		err := c.platform.RequestFullscreen(m)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if err != nil {
			return fmt.Errorf("request fullscreen (%s): %w", m, err)
		}
		return nil
	}
	if err := c.platform.SendLegacyKey(); err != nil {
		return fmt.Errorf("legacy fullscreen key: %w", err)
	}
	return nil
}

func (c *Controller) exit() error {
	for _, m := range exitOrder {
		err := c.platform.ExitFullscreen(m)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if err != nil {
			return fmt.Errorf("exit fullscreen (%s): %w", m, err)
		}
		return nil
	}
	return fmt.Errorf("exit fullscreen: %w", ErrUnsupported)
}

// onPlatformChange runs for every platform notification, including the
// ones caused by Toggle itself.
func (c *Controller) onPlatformChange() {
	active := c.platform.IsFullscreen()

	c.mu.Lock()
	if !active {
		if len(c.assets) > 1 {
			c.assets = c.assets[:1]
		}
		for _, t := range c.results {
			if t != nil {
				t.Selected = false
			}
		}
	}
	c.fullscreen = active
	c.mu.Unlock()

	c.logger.Debug().
		Str(xglog.FieldEvent, "presentation.platform_change").
		Bool("fullscreen", active).
		Msg("platform fullscreen changed")
	c.notify(active)
}

func (c *Controller) notify(fullscreen bool) {
	if c.onChange != nil {
		c.onChange(fullscreen)
	}
}
