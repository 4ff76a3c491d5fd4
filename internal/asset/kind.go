// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

// MediaKind is the semantic media type derived from an object type code.
// It drives which viewer backend is selected.
type MediaKind string

const (
	KindSpecimen      MediaKind = "specimen"
	KindVisual        MediaKind = "visual"
	KindUse           MediaKind = "use"
	KindPublication   MediaKind = "publication"
	KindSynonyms      MediaKind = "synonyms"
	KindPeople        MediaKind = "people"
	KindRepository    MediaKind = "repository"
	KindImage         MediaKind = "image"
	KindPanorama      MediaKind = "panorama"
	KindAudio         MediaKind = "audio"
	Kind3D            MediaKind = "3d"
	KindPowerpoint    MediaKind = "powerpoint"
	KindDocument      MediaKind = "document"
	KindExcel         MediaKind = "excel"
	KindMediaPlayback MediaKind = "mediaPlayback"
	KindUnsupported   MediaKind = "unsupported"
)

// Object type codes with behaviour attached to them.
const (
	TypeCodeImage         = 10
	TypeCodePanorama      = 11
	TypeCodeAudio         = 12
	TypeCodeMediaPlayback = 24
)

var kindByCode = map[int]MediaKind{
	1:  KindSpecimen,
	2:  KindVisual,
	3:  KindUse,
	6:  KindPublication,
	7:  KindSynonyms,
	8:  KindPeople,
	9:  KindRepository,
	10: KindImage,
	11: KindPanorama,
	12: KindAudio,
	13: Kind3D,
	21: KindPowerpoint,
	22: KindDocument,
	23: KindExcel,
	24: KindMediaPlayback,
}

// Classify maps an object type code to its media kind. Unknown codes yield
// KindUnsupported.
func Classify(code int) MediaKind {
	if k, ok := kindByCode[code]; ok {
		return k
	}
	return KindUnsupported
}

// IsTimeBased reports whether the kind needs a playback URL lookup.
func (k MediaKind) IsTimeBased() bool {
	return k == KindAudio || k == KindMediaPlayback
}

// IsPanorama reports whether the kind is a panoramic image.
func (k MediaKind) IsPanorama() bool {
	return k == KindPanorama
}

// IsSupported is false only for codes missing from the type table.
func (k MediaKind) IsSupported() bool {
	return k != KindUnsupported && k != ""
}

func (k MediaKind) String() string { return string(k) }
