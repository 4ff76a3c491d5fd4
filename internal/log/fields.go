// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID  = "request_id"
	FieldAssetID    = "asset_id"
	FieldGroupID    = "group_id"
	FieldGeneration = "generation"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "operation"

	// Media fields
	FieldMediaKind = "media_kind"
	FieldTypeCode  = "object_type_id"
	FieldBackend   = "backend"
	FieldPage      = "page"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldURL     = "url"
	FieldBaseURL = "base_url"
	FieldStatus  = "status"
)
