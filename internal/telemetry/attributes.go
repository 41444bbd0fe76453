// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared across spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	StreamURLKey    = "stream.url"
	StreamTypeKey   = "stream.type"
	StreamEngineKey = "stream.engine"

	RelayOutcomeKey = "relay.outcome"
	ProbeResultKey  = "probe.result"

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

// StreamAttributes describes a normalized stream. Empty values are omitted.
func StreamAttributes(url, streamType, engine string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if url != "" {
		attrs = append(attrs, attribute.String(StreamURLKey, url))
	}
	if streamType != "" {
		attrs = append(attrs, attribute.String(StreamTypeKey, streamType))
	}
	if engine != "" {
		attrs = append(attrs, attribute.String(StreamEngineKey, engine))
	}
	return attrs
}

// ErrorAttributes records err and a coarse classification.
func ErrorAttributes(err error, errType string) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(ErrorKey, err.Error()),
		attribute.String(ErrorTypeKey, errType),
	}
}
