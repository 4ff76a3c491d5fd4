// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package viewer

import (
	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/resolver"
)

// message is anything the loop accepts on its mailbox.
type message interface{ isMessage() }

type setAssetMsg struct {
	id   string
	opts resolver.Options
}

type thumbOnlyMsg struct{ on bool }

type resolvedMsg struct {
	gen uint64
	rec *asset.Record
	err error
}

type probeMsg struct {
	gen uint64
	err error
}

type backendMsg struct {
	gen uint64
	seq uint64
	ev  BackendEvent
}

type timerKind int

const (
	timerDeepZoom timerKind = iota
	timerPanoramaCheck
)

type timerMsg struct {
	gen  uint64
	seq  uint64
	kind timerKind
}

type navMsg struct {
	delta    int
	page     int
	absolute bool
	source   NavSource
}

type thumbErrorMsg struct{}

type snapshotMsg struct{ reply chan<- Snapshot }

type awaitMsg struct{ reply chan Snapshot }

func (setAssetMsg) isMessage()   {}
func (thumbOnlyMsg) isMessage()  {}
func (resolvedMsg) isMessage()   {}
func (probeMsg) isMessage()      {}
func (backendMsg) isMessage()    {}
func (timerMsg) isMessage()      {}
func (navMsg) isMessage()        {}
func (thumbErrorMsg) isMessage() {}
func (snapshotMsg) isMessage()   {}
func (awaitMsg) isMessage()      {}
