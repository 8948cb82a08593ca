package protocol

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFrlActivation(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/asnp/frl_connected/values/v2", nil)
	r.Header.Set("X-Api-Key", "key")
	r.Header.Set("X-Request-Id", "R1")

	typ, max := Classify(r)
	assert.Equal(t, FrlActivation, typ)
	assert.Equal(t, int64(MaxJSONBodyBytes), max)
}

func TestClassifyMissingHeaderIsUnknown(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/asnp/frl_connected/values/v2", nil)
	r.Header.Set("X-Api-Key", "key")
	// missing X-Request-Id

	typ, _ := Classify(r)
	assert.Equal(t, Unknown, typ)
}

func TestClassifyFrlDeactivationRequiresNonEmptyQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodDelete, "/asnp/frl_connected/v1", nil)
	r.Header.Set("X-Api-Key", "key")
	r.Header.Set("X-Request-Id", "R1")

	typ, _ := Classify(r)
	assert.Equal(t, Unknown, typ)

	r.URL.RawQuery = "npdId=x"
	typ, _ = Classify(r)
	assert.Equal(t, FrlDeactivation, typ)
}

func TestClassifyNulLicenseAcceptsSubPaths(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/asnp/nud/abc123", nil)
	r.Header.Set("X-Api-Key", "key")
	r.Header.Set("X-Request-Id", "R1")
	r.Header.Set("X-Session-Id", "S1")
	r.Header.Set("Authorization", "Bearer t")

	typ, _ := Classify(r)
	assert.Equal(t, NulLicense, typ)
}

func TestClassifyLogUpload(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/ulecs/v1", nil)
	r.Header.Set("X-Api-Key", "key")
	r.Header.Set("Authorization", "Bearer t")

	typ, max := Classify(r)
	assert.Equal(t, LogUpload, typ)
	assert.Equal(t, int64(MaxLogBodyBytes), max)
}

func TestClassifyUnknownForAnyOtherRoute(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	typ, _ := Classify(r)
	assert.Equal(t, Unknown, typ)
}
