// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPUserAgentKey  = "http.user_agent"

	// Asset attributes
	AssetIDKey        = "asset.id"
	AssetGroupIDKey   = "asset.group_id"
	AssetEncryptedKey = "asset.encrypted"
	AssetKindKey      = "asset.media_kind"
	AssetTypeCodeKey  = "asset.object_type_id"

	// Viewer attributes
	ViewerStateKey      = "viewer.state"
	ViewerBackendKey    = "viewer.backend"
	ViewerGenerationKey = "viewer.generation"
	ViewerPageCountKey  = "viewer.page_count"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// AssetAttributes creates asset lookup span attributes. Empty group ids are
// omitted.
func AssetAttributes(assetID, groupID string, encrypted bool) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if assetID != "" {
		attrs = append(attrs, attribute.String(AssetIDKey, assetID))
	}
	if groupID != "" {
		attrs = append(attrs, attribute.String(AssetGroupIDKey, groupID))
	}
	attrs = append(attrs, attribute.Bool(AssetEncryptedKey, encrypted))
	return attrs
}

// RecordAttributes describes a resolved asset.
func RecordAttributes(mediaKind string, typeCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AssetKindKey, mediaKind),
		attribute.Int(AssetTypeCodeKey, typeCode),
	}
}

// ViewerAttributes creates viewer session span attributes.
func ViewerAttributes(state, backend string, generation uint64, pageCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(ViewerStateKey, state),
		attribute.Int64(ViewerGenerationKey, int64(generation)),
	}
	if backend != "" {
		attrs = append(attrs, attribute.String(ViewerBackendKey, backend))
	}
	if pageCount > 0 {
		attrs = append(attrs, attribute.Int(ViewerPageCountKey, pageCount))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(ErrorKey, err.Error()),
		attribute.String(ErrorTypeKey, errorType),
	}
}
