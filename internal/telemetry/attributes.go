// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the proxy.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the proxy.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPUserAgentKey  = "http.user_agent"

	// Proxy-request attributes
	ProxyModeKey       = "proxy.mode"
	ProxyDatasourceKey = "proxy.datasource"
	ProxyCacheHitKey   = "proxy.cache_hit"

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

// RequestAttributes creates span attributes describing how the dispatch
// engine handled one request: its configured mode, which cached datasource
// it consulted, and whether that lookup hit.
func RequestAttributes(mode, datasource string, cacheHit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ProxyModeKey, mode),
		attribute.String(ProxyDatasourceKey, datasource),
		attribute.Bool(ProxyCacheHitKey, cacheHit),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
