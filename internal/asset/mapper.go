// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/artstor-viewer/internal/hosts"
)

// notDownloadable is the download_size sentinel for restricted assets.
const notDownloadable = "0,0"

const iiifEndpoint = "/rosa-iiif-endpoint-1.0-SNAPSHOT/fpx"

// Map normalizes one upstream record. It is pure: the same raw record and
// environment always produce an equal Record.
func Map(raw *RawRecord, env hosts.Resolver) (*Record, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil record", ErrValidation)
	}
	if strings.TrimSpace(raw.ObjectID) == "" {
		return nil, fmt.Errorf("%w: missing object_id", ErrValidation)
	}
	if env == nil {
		env = hosts.New(false)
	}

	code := int(raw.ObjectTypeID)
	kind := Classify(code)

	rec := &Record{
		ID:             raw.ObjectID,
		ObjectTypeCode: code,
		MediaKind:      kind,
		Title:          raw.Title,
		Downloadable:   raw.DownloadSize != notDownloadable,
		ThumbnailSize:  DefaultThumbnailSize,
		MetadataFields: groupFields(raw.MetadataJSON),
		Width:          int(raw.Width),
		Height:         int(raw.Height),
		SSID:           string(raw.SSID),
		CategoryID:     string(raw.CategoryID),
		CategoryName:   raw.CategoryName,
		CollectionID:   string(raw.CollectionID),
		CollectionName: raw.CollectionName,
		CollectionType: int(raw.CollectionType),
		raw:            *raw,
	}
	if rec.Title == "" {
		rec.Title = DefaultTitle
	}

	rec.ThumbnailURL = ThumbnailURL(env.ThumbnailHost(), ReplaceThumbnailSize(raw.ThumbnailURL, DefaultThumbnailSize))
	rec.FileName = fileName(raw.FileProperties)
	rec.DownloadName = downloadName(rec.Title, rec.FileName)
	if rec.Downloadable {
		rec.DownloadLink = downloadLink(raw, env)
	}
	rec.TileSource = tileSources(raw, env.TileHost())
	if kind.IsPanorama() && raw.ViewerData != nil {
		rec.PanoramaDescriptorURL = raw.ViewerData.PanoramaXML
	}

	return rec, nil
}

func groupFields(entries []RawField) Fields {
	var f Fields
	for _, e := range entries {
		v := e.FieldValue
		if e.Link != "" {
			v = e.Link
		}
		f.Add(e.FieldName, v)
	}
	return f
}

func fileName(props []FileProperty) string {
	for _, p := range props {
		if name := p["fileName"]; name != "" {
			return name
		}
	}
	return ""
}

// downloadName is the title with dots replaced by dashes plus the file's
// extension, NFC normalized so filesystems agree on the bytes.
func downloadName(title, file string) string {
	i := strings.LastIndexByte(file, '.')
	if i < 0 || i == len(file)-1 {
		return ""
	}
	name := strings.ReplaceAll(title, ".", "-") + file[i:]
	return norm.NFC.String(name)
}

func downloadLink(raw *RawRecord, env hosts.Resolver) string {
	base := env.APIBase()
	code := int(raw.ObjectTypeID)
	switch code {
	case 20, 21, 22, 23:
		return base + "media/" + raw.ObjectID + "/" + strconv.Itoa(code)
	}
	if raw.ImageURL == "" {
		return ""
	}
	target := env.ImageServer() + raw.ImageURL + "?cell=" + raw.DownloadSize + "&rgnn=0,0,1,1&cvt=JPEG"
	return base + "api/download?imgid=" + raw.ObjectID + "&url=" + encodeURIComponent(target)
}

func tileSources(raw *RawRecord, tileHost string) []string {
	paths := raw.ImageCompoundURLs
	if len(paths) == 0 {
		if raw.ImageURL == "" {
			return nil
		}
		paths = []string{raw.ImageURL}
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		out = append(out, TileSourceURL(tileHost, p))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TileSourceURL builds the IIIF info.json address for one image path. The
// path is cut right after its last ".fpx"; paths without one are used as is.
func TileSourceURL(tileHost, imagePath string) string {
	if i := strings.LastIndex(imagePath, ".fpx"); i >= 0 {
		imagePath = imagePath[:i+len(".fpx")]
	}
	return tileHost + iiifEndpoint + encodeURIComponent("/"+imagePath) + "/info.json"
}

// encodeURIComponent escapes everything outside the unreserved set
// A-Z a-z 0-9 - _ . ! ~ * ' ( ), which is what browsers send for query
// components. url.QueryEscape differs on spaces and on !'()*.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
