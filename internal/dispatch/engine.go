package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ManuGH/adlu-proxy/internal/base"
	"github.com/ManuGH/adlu-proxy/internal/cache"
	"github.com/ManuGH/adlu-proxy/internal/forward"
	"github.com/ManuGH/adlu-proxy/internal/protocol"
	"github.com/rs/zerolog"
)

// Engine applies one configured Mode to every inbound request, coordinating
// C4 (cache) and C5 (forward) the way the original's send_request/
// process_adobe_request pair did, but as a single table lookup rather than
// a branching match.
type Engine struct {
	mode    Mode
	cache   *cache.Cache
	fwd     *forward.Config
	log     zerolog.Logger
	onCache func(hit bool)
}

// New builds a dispatch Engine bound to a fixed mode, cache, and forward
// configuration. The mode is fixed for the engine's lifetime; changing it
// means building a new Engine (mirroring the original's --mode flag being
// read once at startup, not reloadable mid-run).
func New(mode Mode, c *cache.Cache, fwd *forward.Config, log zerolog.Logger) *Engine {
	return &Engine{mode: mode, cache: c, fwd: fwd, log: log}
}

// Mode reports the engine's configured policy.
func (e *Engine) Mode() Mode { return e.mode }

// OnCacheLookup registers a callback invoked every time the engine
// consults the cache for a fallback or cache-only response, reporting
// whether that lookup found one. The server wires this to its Prometheus
// cache-lookup counters; nil is a valid no-op default.
func (e *Engine) OnCacheLookup(fn func(hit bool)) {
	e.onCache = fn
}

func (e *Engine) fetchResponse(req *protocol.Request) *protocol.Response {
	resp := e.cache.FetchResponse(req)
	if e.onCache != nil {
		e.onCache(resp != nil)
	}
	return resp
}

// Handle applies the mode table to req and returns the Response the server
// should emit to the client. The returned Response is always non-nil: on
// any failure path without a cache hit, it's a synthesized 502 (or, for
// Store mode, a distinct "stored for later replay" message) carrying a
// JSON body in the shape the original's proxy_reply produced.
func (e *Engine) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	switch e.mode {
	case Connected:
		e.cache.StoreRequest(req)
		return e.sendAndFinish(ctx, req)

	case Store:
		e.cache.StoreRequest(req)
		if cached := e.fetchResponse(req); cached != nil {
			return cached
		}
		return jsonError(502, "Proxy is operating offline: request stored for later replay")

	case Isolated:
		if cached := e.fetchResponse(req); cached != nil {
			return cached
		}
		return jsonError(502, "Proxy is operating in isolated mode and has no cached response")

	case Forward:
		// No pre-storage step ("On request: n/a") — a successful send
		// still stores the response, which retires any matching queued
		// request for the same device.
		return e.sendAndFinish(ctx, req)

	default:
		return jsonError(500, fmt.Sprintf("unrecognized mode %v", e.mode))
	}
}

// sendAndFinish forwards req to Adobe and applies the uniform
// response-reuse rule: any outcome other than Success falls back to a
// cache lookup by request key before giving up.
func (e *Engine) sendAndFinish(ctx context.Context, req *protocol.Request) *protocol.Response {
	outcome := forward.Send(ctx, e.fwd, req)

	if outcome.Kind == forward.Success {
		e.cache.StoreResponse(req, outcome.Response)
		return outcome.Response
	}

	if cached := e.fetchResponse(req); cached != nil {
		e.log.Info().Stringer("mode", e.mode).Msgf("using cached response for %s after failed upstream attempt", req)
		return cached
	}

	switch outcome.Kind {
	case forward.Unreachable:
		e.log.Error().Err(outcome.Err).Msgf("could not reach Adobe for %s", req)
		return jsonError(502, fmt.Sprintf("Could not reach Adobe: %v", outcome.Err))
	case forward.ParseFailure:
		e.log.Error().Err(outcome.Err).Msgf("malformed Adobe response for %s", req)
		return jsonError(500, fmt.Sprintf("Malformed Adobe response: %v", outcome.Err))
	case forward.ErrorStatus:
		e.log.Error().Int("status", outcome.Upstream.StatusCode).Msgf("Adobe returned failure status for %s", req)
		return jsonError(502, fmt.Sprintf("Adobe returned status %d", outcome.Upstream.StatusCode))
	default:
		return jsonError(502, "upstream request failed")
	}
}

// jsonError builds the {"statusCode":..,"message":..} body the original's
// proxy_reply produced for every non-passthrough error path.
func jsonError(status int, message string) *protocol.Response {
	body, _ := json.Marshal(struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}{status, message})
	return &protocol.Response{
		Timestamp:   base.Now(),
		Status:      status,
		Body:        body,
		ContentType: "application/json",
	}
}
