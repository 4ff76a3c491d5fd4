// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// RawRecord is one element of the upstream metadata envelope. Several
// revisions of the upstream service disagree on which of these fields are
// present; everything except object_id is treated as optional.
type RawRecord struct {
	ObjectID          string         `json:"object_id"`
	ObjectTypeID      FlexInt        `json:"object_type_id"`
	Title             string         `json:"title"`
	SSID              FlexString     `json:"SSID,omitempty"`
	CategoryID        FlexString     `json:"category_id,omitempty"`
	CategoryName      string         `json:"category_name,omitempty"`
	CollectionID      FlexString     `json:"collection_id,omitempty"`
	CollectionName    string         `json:"collection_name,omitempty"`
	CollectionType    FlexInt        `json:"collection_type,omitempty"`
	DownloadSize      string         `json:"download_size"`
	FileProperties    []FileProperty `json:"fileProperties,omitempty"`
	Width             FlexInt        `json:"width,omitempty"`
	Height            FlexInt        `json:"height,omitempty"`
	ImageURL          string         `json:"image_url"`
	ImageCompoundURLs []string       `json:"image_compound_urls,omitempty"`
	MetadataJSON      []RawField     `json:"metadata_json"`
	ThumbnailURL      string         `json:"thumbnail_url"`
	ViewerData        *RawViewerData `json:"viewer_data,omitempty"`
}

// RawField is one metadata entry. Repeated field names are legal.
type RawField struct {
	Count      int    `json:"count,omitempty"`
	FieldName  string `json:"fieldName"`
	FieldValue string `json:"fieldValue"`
	Index      int    `json:"index,omitempty"`
	Link       string `json:"link,omitempty"`
}

// FileProperty is a single key/value pair object, e.g. {"fileName": "x.fpx"}.
type FileProperty map[string]string

// RawViewerData is the media resolver block attached to panoramas.
type RawViewerData struct {
	BaseAssetURL string `json:"base_asset_url,omitempty"`
	PanoramaXML  string `json:"panorama_xml,omitempty"`
}

// FlexInt handles JSON fields that can be "123" or 123.
type FlexInt int

func (v *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*v = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("flexint: invalid string %q", s)
		}
		*v = FlexInt(i)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("flexint: invalid json value: %s", string(b))
	}
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("flexint: not a number: %s", n.String())
		}
		i = int64(f)
	}
	*v = FlexInt(i)
	return nil
}

// FlexString handles identifier fields that can be "123" or 123.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("flexstring: invalid json value: %s", string(b))
	}
	*s = FlexString(n.String())
	return nil
}
