// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package server is the proxy's HTTP surface (C7): a chi router wiring the
// four classified Adobe routes to the policy engine, a /status endpoint,
// Prometheus /metrics, TLS material loading, and graceful shutdown of both
// the plain and TLS listeners. Each listener's handler is wrapped in
// otelhttp so every request carries a span before it reaches the chi
// router; log.Middleware reads that span's trace/span IDs into the
// structured log line.
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/adlu-proxy/internal/cache"
	"github.com/ManuGH/adlu-proxy/internal/config"
	"github.com/ManuGH/adlu-proxy/internal/dispatch"
	"github.com/ManuGH/adlu-proxy/internal/forward"
	"github.com/ManuGH/adlu-proxy/internal/log"
	"github.com/ManuGH/adlu-proxy/internal/protocol"
	"github.com/ManuGH/adlu-proxy/internal/tlsutil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// readTimeout and writeTimeout bound how long a connection may take to send
// its request or receive its response; idleTimeout bounds a keep-alive
// connection's time between requests.
const (
	readTimeout     = 60 * time.Second
	writeTimeout    = 60 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second

	// perKeyRateLimit and perKeyRateWindow bound how often a single
	// X-Api-Key may call the public endpoints, an ambient hardening concern
	// absent from the original but applied here to every public route.
	perKeyRateLimit  = 120
	perKeyRateWindow = time.Minute
)

// Server owns the proxy's HTTP surface: the chi router plus the plain and
// TLS *http.Server instances built from it.
type Server struct {
	cfg        *config.Config
	engine     *dispatch.Engine
	log        zerolog.Logger
	proxyID    string
	sslEnabled bool

	plain *http.Server
	tls   *http.Server
}

// SetSSLEnabled controls whether Run starts the HTTPS listener alongside
// the plain one, the `serve --ssl` flag. Enabled by default.
func (s *Server) SetSSLEnabled(enabled bool) {
	s.sslEnabled = enabled
}

// New builds a Server bound to the given mode, wiring its dispatch.Engine
// to the already-open cache and outbound forward configuration. proxyID is
// the self-identifying string ("adlu-proxy-<version>") stamped in the
// /status response and the forward package's User-Agent/Via headers.
func New(cfg *config.Config, mode dispatch.Mode, c *cache.Cache, fwd *forward.Config, proxyID string, logger zerolog.Logger) *Server {
	engine := dispatch.New(mode, c, fwd, logger)
	engine.OnCacheLookup(observeCacheHit)

	s := &Server{
		cfg:        cfg,
		engine:     engine,
		log:        logger,
		proxyID:    proxyID,
		sslEnabled: true,
	}
	s.plain = &http.Server{
		Handler:           otelhttp.NewHandler(s.routes(), "adlu-proxy-http"),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout / 2,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	s.tls = &http.Server{
		Handler:           otelhttp.NewHandler(s.routes(), "adlu-proxy-https"),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout / 2,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// routes builds the chi router: request-id + structured logging on every
// route, per-API-key rate limiting on the four Adobe routes, and the
// status/metrics endpoints left unlimited (operational tooling, not public
// client traffic).
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(log.Middleware())

	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(
			perKeyRateLimit,
			perKeyRateWindow,
			httprate.WithKeyFuncs(apiKeyOrIP),
			httprate.WithLimitHandler(handleRateLimited),
		))
		r.HandleFunc("/asnp/frl_connected/values/v2", s.handleAdobe)
		r.HandleFunc("/asnp/frl_connected/v1", s.handleAdobe)
		r.HandleFunc("/asnp/nud/*", s.handleAdobe)
		r.HandleFunc("/asnp/nud", s.handleAdobe)
		r.HandleFunc("/ulecs/v1", s.handleAdobe)
	})

	r.NotFound(s.handleAdobe)
	return r
}

// apiKeyOrIP keys the rate limiter on X-Api-Key when present, falling back
// to the classified client address so unauthenticated traffic is still
// bounded rather than exempt.
func apiKeyOrIP(r *http.Request) (string, error) {
	if key := r.Header.Get("X-Api-Key"); key != "" {
		return key, nil
	}
	return protocol.ProxiedRemoteAddr(r), nil
}

// handleRateLimited writes the proxy's standard JSON error shape for a
// request rejected by the per-API-key limiter.
func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}{http.StatusTooManyRequests, "rate limit exceeded"})
}

// handleStatus reports the proxy's identity and configured mode, matching
// the original's {"statusCode": 200, "status": "<id> running in <mode>
// mode"} body exactly.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := fmt.Sprintf("%s running in %s mode", s.proxyID, s.engine.Mode())
	s.log.Info().Msgf("status request received, issuing status: %s", status)
	writeJSON(w, http.StatusOK, struct {
		StatusCode int    `json:"statusCode"`
		Status     string `json:"status"`
	}{http.StatusOK, status})
}

// handleAdobe classifies the inbound request, reads its body under the
// classified size limit, and hands it to the dispatch engine. Requests
// that match no recognized route are rejected with 404 without ever
// reaching the engine, mirroring the original's unknown_filter fallback.
func (s *Server) handleAdobe(w http.ResponseWriter, r *http.Request) {
	typ, maxBody := protocol.Classify(r)
	if typ == protocol.Unknown {
		observeRequest(protocol.Unknown, http.StatusNotFound)
		http.NotFound(w, r)
		return
	}

	body, err := readLimited(r.Body, maxBody)
	if err != nil {
		observeRequest(typ, http.StatusRequestEntityTooLarge)
		writeJSON(w, http.StatusRequestEntityTooLarge, struct {
			StatusCode int    `json:"statusCode"`
			Message    string `json:"message"`
		}{http.StatusRequestEntityTooLarge, err.Error()})
		return
	}

	req := protocol.NewRequest(r, typ, body)
	s.log.Info().Msgf("received %s", req)

	resp := s.engine.Handle(r.Context(), req)
	observeRequest(typ, resp.Status)

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("Via", s.engine.Mode().String())
	if resp.RequestID != "" {
		w.Header().Set("X-Request-Id", resp.RequestID)
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// readLimited reads r fully, rejecting it with an error if it exceeds
// limit bytes. One extra byte is requested so an exactly-at-limit body
// isn't mistaken for an oversized one.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("request body exceeds %d byte limit", limit)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Run starts the plain and, when TLS material is configured or can be
// self-signed, the HTTPS listener, blocking until ctx is canceled and then
// gracefully draining both within shutdownTimeout. Mirrors the original's
// serve_incoming_http_requests/serve_incoming_https_requests pair running
// concurrently against the same route table.
func (s *Server) Run(ctx context.Context) error {
	plainAddr, err := s.cfg.BindAddr()
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	s.plain.Addr = plainAddr

	errCh := make(chan error, 2)

	go func() {
		s.log.Info().Str("addr", s.plain.Addr).Msg("adlu-proxy serving HTTP requests")
		if err := s.plain.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("plain listener: %w", err)
		}
	}()

	if s.sslEnabled {
		tlsAddr, err := s.cfg.BindAddrSSL()
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		s.tls.Addr = tlsAddr

		cert, err := s.loadCertificate()
		if err != nil {
			return fmt.Errorf("server: loading TLS certificate: %w", err)
		}
		s.tls.TLSConfig = &tls.Config{Certificates: []tls.Certificate{*cert}}

		go func() {
			s.log.Info().Str("addr", s.tls.Addr).Msg("adlu-proxy serving HTTPS requests")
			if err := s.tls.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("tls listener: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		_ = s.shutdown()
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutdown signal received")
		return s.shutdown()
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.plain.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("plain listener shutdown: %w", err))
	}
	if err := s.tls.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tls listener shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// loadCertificate dispatches between PFX, PEM, and self-signed material
// per the SSLConfig fields, mirroring the original's load_cert_data.
func (s *Server) loadCertificate() (*tls.Certificate, error) {
	ssl := s.cfg.SSL
	switch {
	case ssl.UsePFX && ssl.CertPath != "":
		return tlsutil.LoadPFX(ssl.CertPath, ssl.CertPassword)
	case ssl.CertPath != "" && ssl.KeyPath != "":
		return tlsutil.LoadPEM(ssl.KeyPath, ssl.CertPath, ssl.CertPassword)
	default:
		certPath, keyPath, err := tlsutil.EnsureSelfSigned(tlsutil.SelfSignedConfig{Logger: s.log})
		if err != nil {
			return nil, err
		}
		return tlsutil.LoadPEM(keyPath, certPath, "")
	}
}
