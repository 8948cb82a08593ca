package cache

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ManuGH/adlu-proxy/internal/base"
	"github.com/ManuGH/adlu-proxy/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	db := newTestDB(t)
	return &Cache{db: db, log: zerolog.Nop()}
}

func TestStoreRequestThenFetchResponseRoundTripsActivation(t *testing.T) {
	c := newTestCache(t)
	body, err := json.Marshal(sampleActivation(base.Now(), "dev1").Body)
	require.NoError(t, err)

	req := &protocol.Request{
		Timestamp: base.FromMillis(1000), Type: protocol.FrlActivation,
		APIKey: "key1", RequestID: "R1", SessionID: "S1", Body: body,
	}
	c.StoreRequest(req)

	require.Nil(t, c.FetchResponse(req), "no response cached yet")

	resp := &protocol.Response{
		Timestamp: base.FromMillis(1100), Type: protocol.FrlActivation,
		Status: http.StatusOK, RequestID: "R1", Body: []byte(`{"ok":true}`),
	}
	c.StoreResponse(req, resp)

	cached := c.FetchResponse(req)
	require.NotNil(t, cached)
	require.True(t, bytes.Equal(resp.Body, cached.Body))
}

func TestStoreLogUploadMergesAcrossFragments(t *testing.T) {
	c := newTestCache(t)
	frag1 := []byte(`SessionID=S1 Timestamp=2022-08-06T12:09:50:834-0700 Module=Core Level=Info Description="Initializing session logs"` + "\n")
	frag2 := []byte(`SessionID=S1 Timestamp=2022-08-06T12:09:51:000-0700 Module=Core Level=Info Description="SetConfig: OS Name=Mac OS, OS Version=12.4"` + "\n")

	c.StoreRequest(&protocol.Request{Type: protocol.LogUpload, SourceAddr: "1.2.3.4", Body: frag1})
	c.StoreRequest(&protocol.Request{Type: protocol.LogUpload, SourceAddr: "1.2.3.4", Body: frag2})

	sessions, err := FetchLogSessions(c.db, true)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].OsName)
	require.Equal(t, "Mac OS", *sessions[0].OsName)
}

func TestClearRemovesAllFamilies(t *testing.T) {
	c := newTestCache(t)
	c.StoreRequest(&protocol.Request{
		Type: protocol.LogUpload, SourceAddr: "1.2.3.4",
		Body: []byte(`SessionID=S1 Timestamp=2022-08-06T12:09:50:834-0700 Module=Core Level=Info Description="Initializing session logs"` + "\n"),
	})
	require.NoError(t, c.Clear())

	sessions, err := FetchLogSessions(c.db, false)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestReportRejectsFRLSource(t *testing.T) {
	c := newTestCache(t)
	var buf bytes.Buffer
	err := c.Report(DatasourceFRL, &buf, false, false, false)
	require.Error(t, err)
}
