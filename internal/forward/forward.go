package forward

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ManuGH/adlu-proxy/internal/base"
	"github.com/ManuGH/adlu-proxy/internal/protocol"
)

// Send builds the outbound request for req, executes it against the
// appropriate Adobe endpoint, and reports what happened. It never looks at
// the cache and never checks the proxy's mode — both are the policy
// engine's responsibility; Send only knows how to talk to Adobe.
func Send(ctx context.Context, cfg *Config, req *protocol.Request) Outcome {
	if cfg.Limiter != nil {
		if err := cfg.Limiter.Wait(ctx); err != nil {
			return unreachable(fmt.Errorf("forward: rate limiter: %w", err))
		}
	}

	httpReq, err := buildRequest(ctx, cfg, req)
	if err != nil {
		return unreachable(err)
	}

	resp, err := cfg.Client.Do(httpReq)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Preserve the response for the caller to relay; the body has
		// already been read into memory so it survives past this Close.
		body, readErr := io.ReadAll(resp.Body)
		if readErr == nil {
			resp.Body = io.NopCloser(bytes.NewReader(body))
		}
		return errorStatus(resp)
	}

	parsed, err := responseFromNetwork(req, resp)
	if err != nil {
		return parseFailure(err)
	}
	return success(parsed)
}

// buildRequest mirrors send_to_adobe: same endpoint selection, same header
// set, same query passthrough.
func buildRequest(ctx context.Context, cfg *Config, req *protocol.Request) (*http.Request, error) {
	server := cfg.FrlServer
	if req.Type == protocol.LogUpload {
		server = cfg.LogServer
	}
	endpoint := strings.TrimSuffix(server, "/") + "/" + strings.TrimPrefix(req.Path, "/")
	if req.Query != "" {
		endpoint += "?" + req.Query
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("forward: building request for %s: %w", req, err)
	}

	httpReq.Header.Set("User-Agent", Agent(cfg.ProxyID, cfg.Version))
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	httpReq.Header.Set("Accept-Language", "en-us")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	httpReq.Header.Set("X-Api-Key", req.APIKey)
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-Id", req.RequestID)
	}
	if req.SessionID != "" {
		httpReq.Header.Set("X-Session-Id", req.SessionID)
	}
	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}
	return httpReq, nil
}

// responseFromNetwork turns a successful upstream HTTP response into the
// proxy's internal Response shape.
func responseFromNetwork(req *protocol.Request, resp *http.Response) (*protocol.Response, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("forward: reading response body for %s: %w", req, err)
	}
	return &protocol.Response{
		Timestamp:   base.Now(),
		Type:        req.Type,
		Status:      resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Server:      resp.Header.Get("Server"),
		Via:         resp.Header.Get("Via"),
		RequestID:   req.RequestID,
		SessionID:   req.SessionID,
	}, nil
}
