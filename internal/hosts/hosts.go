// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package hosts selects the upstream hostnames (metadata API, tile server,
// thumbnail server, image server) for the production or staging environment.
package hosts

import (
	"strings"
)

// Resolver is the base URL capability consumed by the mapper, the metadata
// client and the resolver.
type Resolver interface {
	// IsTest reports whether the staging hosts are selected.
	IsTest() bool
	// APIBase is the metadata API root, always with a trailing slash.
	APIBase() string
	// TileHost is the IIIF tile server root without a trailing slash.
	TileHost() string
	// ThumbnailHost is the thumbnail server root without a trailing slash.
	ThumbnailHost() string
	// ImageServer is the proxied image server root with a trailing slash.
	ImageServer() string
	// RewritePlaybackURL moves a media playback URL onto the selected environment.
	RewritePlaybackURL(raw string) string
}

// Set is one environment's hostnames.
type Set struct {
	API        string `yaml:"api"`
	Tiles      string `yaml:"tiles"`
	Thumbnails string `yaml:"thumbnails"`
}

// Defaults observed on the upstream service.
var (
	DefaultProduction = Set{
		API:        "https://library.artstor.org/",
		Tiles:      "https://tsprod.artstor.org",
		Thumbnails: "https://mdxdv.artstor.org",
	}
	DefaultStaging = Set{
		API:        "https://stage.artstor.org/",
		Tiles:      "https://tsstage.artstor.org",
		Thumbnails: "https://mdxstage.artstor.org",
	}
	DefaultImageServer = "http://imgserver.artstor.net/"
)

const (
	productionPlaybackHost = "library.artstor.org"
	stagingPlaybackHost    = "stage.artstor.org"
)

// Environment is the concrete Resolver built from configuration.
type Environment struct {
	Production Set
	Staging    Set
	Images     string
	Test       bool
}

var _ Resolver = Environment{}

// New returns an Environment using the default host pairs.
func New(test bool) Environment {
	return Environment{
		Production: DefaultProduction,
		Staging:    DefaultStaging,
		Images:     DefaultImageServer,
		Test:       test,
	}
}

func (e Environment) active() Set {
	if e.Test {
		return e.Staging
	}
	return e.Production
}

func (e Environment) IsTest() bool { return e.Test }

func (e Environment) APIBase() string {
	return strings.TrimRight(e.active().API, "/") + "/"
}

func (e Environment) TileHost() string {
	return strings.TrimRight(e.active().Tiles, "/")
}

func (e Environment) ThumbnailHost() string {
	return strings.TrimRight(e.active().Thumbnails, "/")
}

func (e Environment) ImageServer() string {
	images := e.Images
	if images == "" {
		images = DefaultImageServer
	}
	return strings.TrimRight(images, "/") + "/"
}

// RewritePlaybackURL substitutes the production host segment with the
// staging one when the test environment is selected. Production leaves the
// URL untouched.
func (e Environment) RewritePlaybackURL(raw string) string {
	if !e.Test || raw == "" {
		return raw
	}
	return strings.Replace(raw, productionPlaybackHost, stagingPlaybackHost, 1)
}
