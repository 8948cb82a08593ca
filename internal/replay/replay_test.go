package replay

import (
	"context"
	"io"
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

func TestRunReportsNoRequestsWhenCacheIsEmpty(t *testing.T) {
	c := newTestCache(t)
	fwd, err := forward.NewConfig("http://unused", "http://unused", forward.ProxyConfig{}, "1.0.0-test")
	require.NoError(t, err)

	summary, err := Run(context.Background(), c, fwd, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 0, summary.Found)
}

func TestRunForwardsQueuedRequestAndRetiresIt(t *testing.T) {
	c := newTestCache(t)
	req := &protocol.Request{
		Timestamp: base.FromMillis(1000), Type: protocol.FrlActivation,
		Method: http.MethodPost, Path: "/asnp/frl_connected/values/v2",
		APIKey: "key1", RequestID: "R1",
		Body: []byte(`{"appDetails":{"nglAppId":"Photoshop1","nglAppVersion":"23.0","nglLibVersion":"1.30.0.1"},"asnpTemplateId":"YzQ5MGUz","deviceDetails":{"deviceId":"dev1","osName":"Mac OS","osVersion":"12.4"},"npdId":"2c93c879c2fa"}`),
	}
	c.StoreRequest(req)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/asnp/frl_connected/values/v2", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"nglAppId":"Photoshop1"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()
	fwd, err := forward.NewConfig(srv.URL, srv.URL, forward.ProxyConfig{}, "1.0.0-test")
	require.NoError(t, err)

	summary, err := Run(context.Background(), c, fwd, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Found)
	require.Equal(t, 1, summary.Successes)
	require.Equal(t, 0, summary.Failures)

	pending, err := c.FetchUnansweredRequests()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRunForwardsQueuedDeactivationWithCorrectMethodAndPath(t *testing.T) {
	c := newTestCache(t)
	req := &protocol.Request{
		Timestamp: base.FromMillis(1000), Type: protocol.FrlDeactivation,
		Method: http.MethodDelete, Path: "/asnp/frl_connected/v1",
		APIKey: "key1", RequestID: "R1",
		Query: "npdId=YzQ5MGUz&deviceId=2c93c879c2fa&osUserId=b6deadbeef4d&enableVdiMarkerExists=0&isVirtualEnvironment=0&isOsUserAccountInDomain=0",
	}
	c.StoreRequest(req)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/asnp/frl_connected/v1", r.URL.Path)
		require.Equal(t, "2c93c879c2fa", r.URL.Query().Get("deviceId"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"invalidationSuccessful":true}`))
	}))
	defer srv.Close()
	fwd, err := forward.NewConfig(srv.URL, srv.URL, forward.ProxyConfig{}, "1.0.0-test")
	require.NoError(t, err)

	summary, err := Run(context.Background(), c, fwd, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Successes)

	pending, err := c.FetchUnansweredRequests()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRunLeavesFailedRequestQueuedForRetry(t *testing.T) {
	c := newTestCache(t)
	req := &protocol.Request{
		Timestamp: base.FromMillis(1000), Type: protocol.FrlActivation,
		Method: http.MethodPost, Path: "/asnp/frl_connected/values/v2",
		APIKey: "key1", RequestID: "R1",
		Body: []byte(`{"appDetails":{"nglAppId":"Photoshop1","nglAppVersion":"23.0","nglLibVersion":"1.30.0.1"},"asnpTemplateId":"YzQ5MGUz","deviceDetails":{"deviceId":"dev1","osName":"Mac OS","osVersion":"12.4"},"npdId":"2c93c879c2fa"}`),
	}
	c.StoreRequest(req)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	fwd, err := forward.NewConfig(srv.URL, srv.URL, forward.ProxyConfig{}, "1.0.0-test")
	require.NoError(t, err)

	summary, err := Run(context.Background(), c, fwd, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failures)

	pending, err := c.FetchUnansweredRequests()
	require.NoError(t, err)
	require.Len(t, pending, 1)
}
