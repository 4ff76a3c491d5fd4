// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package asset holds the canonical Asset Record, the object type
// classifier and the mapper that normalizes upstream metadata records.
package asset

// DefaultTitle replaces an empty upstream title.
const DefaultTitle = "Untitled"

// Record is the normalized view of one asset. It is built once per asset
// identifier; only the viewport is expected to change afterwards, and that
// is carried as a separate value by the viewer.
type Record struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"group_id,omitempty"`
	ObjectTypeCode int       `json:"object_type_id"`
	MediaKind      MediaKind `json:"media_kind"`
	Title          string    `json:"title"`

	Downloadable bool   `json:"downloadable"`
	DownloadLink string `json:"download_link,omitempty"`
	DownloadName string `json:"download_name,omitempty"`
	FileName     string `json:"file_name,omitempty"`

	// TileSource has more than one entry only for compound objects.
	TileSource            []string `json:"tile_source,omitempty"`
	ThumbnailURL          string   `json:"thumbnail_url"`
	ThumbnailSize         int      `json:"thumbnail_size"`
	MediaPlaybackURL      string   `json:"media_playback_url,omitempty"`
	PanoramaDescriptorURL string   `json:"panorama_descriptor_url,omitempty"`

	MetadataFields Fields        `json:"metadata_fields"`
	Viewport       ViewportState `json:"viewport"`

	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	SSID           string `json:"ssid,omitempty"`
	CategoryID     string `json:"category_id,omitempty"`
	CategoryName   string `json:"category_name,omitempty"`
	CollectionID   string `json:"collection_id,omitempty"`
	CollectionName string `json:"collection_name,omitempty"`
	CollectionType int    `json:"collection_type,omitempty"`

	// raw keeps the upstream inputs the derived URLs were computed from.
	raw RawRecord
}

// IsCompound reports whether the asset is paged.
func (r *Record) IsCompound() bool {
	return len(r.TileSource) > 1
}

// PageCount is the number of deep-zoom pages, zero when there are no tiles.
func (r *Record) PageCount() int {
	return len(r.TileSource)
}

// Creator is the first Creator metadata value, if any.
func (r *Record) Creator() string { return r.MetadataFields.First("Creator") }

// Date is the first Date metadata value, if any.
func (r *Record) Date() string { return r.MetadataFields.First("Date") }

// Description is the first Description metadata value, if any.
func (r *Record) Description() string { return r.MetadataFields.First("Description") }

// WithPlayback returns a copy of r with the playback URL merged in.
func (r Record) WithPlayback(url string) *Record {
	r.MediaPlaybackURL = url
	return &r
}

// Raw re-wraps the record in the upstream shape. Mapping the result again
// yields an equal record.
func (r *Record) Raw() RawRecord {
	raw := r.raw
	raw.ObjectID = r.ID
	raw.ObjectTypeID = FlexInt(r.ObjectTypeCode)
	raw.Title = r.Title
	raw.ThumbnailURL = r.ThumbnailURL
	raw.MetadataJSON = r.MetadataFields.RawFields()
	return raw
}

// Fields is an ordered multimap of metadata field name to values. Values
// keep upstream order and duplicates.
type Fields struct {
	Names  []string            `json:"names"`
	Values map[string][]string `json:"values"`
}

// Add appends a value, registering the field name on first sight.
func (f *Fields) Add(name, value string) {
	if f.Values == nil {
		f.Values = make(map[string][]string)
	}
	if _, ok := f.Values[name]; !ok {
		f.Names = append(f.Names, name)
	}
	f.Values[name] = append(f.Values[name], value)
}

// Get returns the values for name.
func (f Fields) Get(name string) []string {
	return f.Values[name]
}

// First returns the first value for name or "".
func (f Fields) First(name string) string {
	if v := f.Values[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Len is the number of distinct field names.
func (f Fields) Len() int { return len(f.Names) }

// RawFields flattens the multimap back into upstream entries.
func (f Fields) RawFields() []RawField {
	var out []RawField
	for _, name := range f.Names {
		values := f.Values[name]
		for i, v := range values {
			out = append(out, RawField{
				Count:      len(values),
				FieldName:  name,
				FieldValue: v,
				Index:      i,
			})
		}
	}
	return out
}
