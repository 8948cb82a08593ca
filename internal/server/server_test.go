package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/adlu-proxy/internal/cache"
	"github.com/ManuGH/adlu-proxy/internal/config"
	"github.com/ManuGH/adlu-proxy/internal/dispatch"
	"github.com/ManuGH/adlu-proxy/internal/forward"
	"github.com/ManuGH/adlu-proxy/internal/tlsutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testServer(t *testing.T, mode dispatch.Mode) *Server {
	t.Helper()
	c, err := cache.OpenCache(filepath.Join(t.TempDir(), "cache.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	fwd, err := forward.NewConfig("https://lcs-cops.adobe.io", "https://lcs-cops.adobe.io", forward.ProxyConfig{}, "1.0.0-test")
	require.NoError(t, err)

	cfg, err := config.Defaults()
	require.NoError(t, err)

	return New(cfg, mode, c, fwd, "adlu-proxy-1.0.0-test", zerolog.Nop())
}

func TestHandleStatusReportsModeAndIdentity(t *testing.T) {
	s := testServer(t, dispatch.Isolated)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body struct {
		StatusCode int    `json:"statusCode"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, 200, body.StatusCode)
	require.Equal(t, "adlu-proxy-1.0.0-test running in Isolated mode", body.Status)
}

func TestHandleAdobeRejectsUnrecognizedRoute(t *testing.T) {
	s := testServer(t, dispatch.Isolated)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleAdobeIsolatedModeServesOnlyFromCache(t *testing.T) {
	s := testServer(t, dispatch.Isolated)

	req := httptest.NewRequest(http.MethodPost, "/asnp/frl_connected/values/v2", bytes.NewReader([]byte(`{"dummy":true}`)))
	req.Header.Set("X-Api-Key", "test-key")
	req.Header.Set("X-Request-Id", "req-1")

	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadGateway, rr.Code)
	var resp struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Contains(t, resp.Message, "isolated mode")
}

func TestHandleAdobeRejectsOversizedBody(t *testing.T) {
	s := testServer(t, dispatch.Isolated)

	oversized := make([]byte, 64*1024)
	req := httptest.NewRequest(http.MethodPost, "/asnp/frl_connected/values/v2", bytes.NewReader(oversized))
	req.Header.Set("X-Api-Key", "test-key")
	req.Header.Set("X-Request-Id", "req-1")

	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestRunShutsDownOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := testServer(t, dispatch.Isolated)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "test.crt")
	keyPath := filepath.Join(dir, "test.key")
	require.NoError(t, tlsutil.GenerateSelfSignedWithIPs(certPath, keyPath, 1, nil, nil))

	s.cfg.Proxy.Host = "127.0.0.1"
	s.cfg.Proxy.Port = 0
	s.cfg.Proxy.SSLPort = 0
	s.cfg.SSL.CertPath = certPath
	s.cfg.SSL.KeyPath = keyPath

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
