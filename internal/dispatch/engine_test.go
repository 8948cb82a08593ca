package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ManuGH/adlu-proxy/internal/base"
	"github.com/ManuGH/adlu-proxy/internal/cache"
	"github.com/ManuGH/adlu-proxy/internal/forward"
	"github.com/ManuGH/adlu-proxy/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.OpenCache(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newTestForward(t *testing.T, handler http.HandlerFunc) *forward.Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg, err := forward.NewConfig(srv.URL, srv.URL, forward.ProxyConfig{}, "1.0.0-test")
	require.NoError(t, err)
	return cfg
}

func sampleActivationRequest() *protocol.Request {
	body := []byte(`{"appDetails":{"nglAppId":"Photoshop1","nglAppVersion":"23.0","nglLibVersion":"1.30.0.1"},"asnpTemplateId":"YzQ5MGUz","deviceDetails":{"deviceId":"dev1","osName":"Mac OS","osVersion":"12.4"},"npdId":"2c93c879c2fa"}`)
	return &protocol.Request{
		Timestamp: base.FromMillis(1000), Type: protocol.FrlActivation,
		Method: http.MethodPost, Path: "/asnp/frl_connected/values/v2",
		APIKey: "key1", RequestID: "R1", Body: body, ContentType: "application/json",
	}
}

func TestConnectedModeStoresAndForwardsOnSuccess(t *testing.T) {
	c := newTestCache(t)
	fwd := newTestForward(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	e := New(Connected, c, fwd, zerolog.Nop())
	resp := e.Handle(context.Background(), sampleActivationRequest())
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, `{"ok":true}`, string(resp.Body))
}

func TestConnectedModeFallsBackToCacheOnUpstreamFailure(t *testing.T) {
	c := newTestCache(t)
	req := sampleActivationRequest()

	// Pre-seed a cached response for this request's key.
	seedFwd := newTestForward(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"cached":true}`))
	})
	seed := New(Connected, c, seedFwd, zerolog.Nop())
	seed.Handle(context.Background(), req)

	failingFwd := newTestForward(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	e := New(Connected, c, failingFwd, zerolog.Nop())
	resp := e.Handle(context.Background(), req)
	require.Equal(t, `{"cached":true}`, string(resp.Body))
}

func TestConnectedModeReturns502WithoutCacheHit(t *testing.T) {
	c := newTestCache(t)
	fwd := newTestForward(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	e := New(Connected, c, fwd, zerolog.Nop())
	resp := e.Handle(context.Background(), sampleActivationRequest())
	require.Equal(t, 502, resp.Status)
	require.Contains(t, string(resp.Body), "Adobe returned status 500")
}

func TestStoreModeNeverForwards(t *testing.T) {
	c := newTestCache(t)
	called := false
	fwd := newTestForward(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	e := New(Store, c, fwd, zerolog.Nop())
	resp := e.Handle(context.Background(), sampleActivationRequest())
	require.False(t, called, "store mode must never contact upstream")
	require.Equal(t, 502, resp.Status)
	require.Contains(t, string(resp.Body), "stored for later replay")
}

func TestIsolatedModeServesOnlyFromCache(t *testing.T) {
	c := newTestCache(t)
	e := New(Isolated, c, nil, zerolog.Nop())
	resp := e.Handle(context.Background(), sampleActivationRequest())
	require.Equal(t, 502, resp.Status)
}

func TestForwardModeStoresResponseOnSuccessWithoutPreStorage(t *testing.T) {
	c := newTestCache(t)
	fwd := newTestForward(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	e := New(Forward, c, fwd, zerolog.Nop())
	req := sampleActivationRequest()
	resp := e.Handle(context.Background(), req)
	require.Equal(t, http.StatusOK, resp.Status)

	pending, err := c.FetchUnansweredRequests()
	require.NoError(t, err)
	require.Empty(t, pending, "a forwarded-and-answered request leaves nothing queued")
	require.NotNil(t, c.FetchResponse(req), "the successful response is stored")
}
