// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package server

import (
	"github.com/ManuGH/adlu-proxy/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-type/outcome counters, an ambient observability surface in the
// same spirit as the original's CLI forwarding summary ("Forwarding
// produced N successes and M failures").
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adlu_proxy_requests_total",
		Help: "Total inbound requests by classified type and response status.",
	}, []string{"type", "status"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adlu_proxy_cache_lookups_total",
		Help: "Total cache lookups by outcome (hit/miss) during response reuse.",
	}, []string{"outcome"})

	replayTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adlu_proxy_replay_total",
		Help: "Total batch-replay attempts by outcome (success/failure).",
	}, []string{"outcome"})
)

// observeRequest records one handled request by its classified type and
// the status code of the response actually sent to the client.
func observeRequest(typ protocol.Type, status int) {
	requestsTotal.WithLabelValues(typ.String(), statusBucket(status)).Inc()
}

func statusBucket(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}

// observeCacheHit records whether a fallback cache lookup served a response.
func observeCacheHit(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}

// ObserveReplay records one batch-replay attempt's outcome. Called by the
// `forward` CLI command after a replay.Run summary comes back, so C8
// itself stays free of any metrics dependency.
func ObserveReplay(success bool) {
	if success {
		replayTotal.WithLabelValues("success").Inc()
		return
	}
	replayTotal.WithLabelValues("failure").Inc()
}
