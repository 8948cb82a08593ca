package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManuGH/adlu-proxy/internal/base"
)

// NulAppDetails mirrors the appDetails object of a NUL license request
// body.
type NulAppDetails struct {
	Locale        string `json:"locale"`
	NglAppID      string `json:"nglAppId"`
	NglAppVersion string `json:"nglAppVersion"`
	NglLibVersion string `json:"nglLibVersion"`
}

// NulDeviceDetails mirrors the deviceDetails object of a NUL license
// request body.
type NulDeviceDetails struct {
	CurrentDate string `json:"currentDate"`
	DeviceID    string `json:"deviceId"`
	DeviceName  string `json:"deviceName"`
	OsName      string `json:"osName"`
	OsUserID    string `json:"osUserId"`
	OsVersion   string `json:"osVersion"`
}

// NulLicenseRequestBody is the JSON body of a POST /asnp/nud/... request.
// Parsing is best-effort: a body the proxy cannot parse is still stored and
// forwarded, it simply cannot contribute to a session summary.
type NulLicenseRequestBody struct {
	AppDetails      NulAppDetails    `json:"appDetails"`
	DeviceDetails   NulDeviceDetails `json:"deviceDetails"`
	DeviceTokenHash string           `json:"deviceTokenHash,omitempty"`
}

// ParseNulLicenseRequestBody parses a NUL license request body, returning
// an error only when the bytes are not valid JSON at all (malformed
// sub-fields still decode into their zero values, matching the original's
// tolerant parsing).
func ParseNulLicenseRequestBody(body []byte) (*NulLicenseRequestBody, error) {
	var b NulLicenseRequestBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("parse NUL license request body: %w", err)
	}
	return &b, nil
}

// LicenseSession is the per-session aggregate for NUL activations, keyed by
// the session prefix before the first '/' in the activation's session id.
type LicenseSession struct {
	SessionID    string
	SessionStart base.Timestamp
	SessionEnd   base.Timestamp
	AppID        string
	AppVersion   string
	AppLocale    string
	NglVersion   string
	OsName       string
	OsVersion    string
	UserID       string
}

// SessionIDPrefix truncates a NUL activation's session id at its first '/',
// matching the original's From<&NulActivationRequest> derivation.
func SessionIDPrefix(sessionID string) string {
	if i := strings.IndexByte(sessionID, '/'); i >= 0 {
		return sessionID[:i]
	}
	return sessionID
}

// NewLicenseSession builds a LicenseSession from one NUL activation
// request's timestamp, raw session id header, and parsed body.
//
// OsVersion comes from DeviceDetails.OsVersion and UserID from
// DeviceDetails.OsUserID — distinct fields, not both sourced from
// device_details.os_name.
func NewLicenseSession(ts base.Timestamp, sessionID string, body *NulLicenseRequestBody) *LicenseSession {
	return &LicenseSession{
		SessionID:    SessionIDPrefix(sessionID),
		SessionStart: ts,
		SessionEnd:   ts,
		AppID:        body.AppDetails.NglAppID,
		AppVersion:   body.AppDetails.NglAppVersion,
		AppLocale:    body.AppDetails.Locale,
		NglVersion:   body.AppDetails.NglLibVersion,
		OsName:       body.DeviceDetails.OsName,
		OsVersion:    body.DeviceDetails.OsVersion,
		UserID:       body.DeviceDetails.OsUserID,
	}
}

// Merge combines this session with a later fragment sharing the same
// session id: only SessionEnd is extended. All other fields reflect the
// earliest-seen activation, matching the original's simpler (compared to
// LogSession) merge semantics.
func (s *LicenseSession) Merge(other *LicenseSession) (*LicenseSession, error) {
	if s.SessionID != other.SessionID {
		return nil, fmt.Errorf("license session merge: mismatched session ids %q != %q", s.SessionID, other.SessionID)
	}
	merged := *s
	merged.SessionEnd = other.SessionEnd
	return &merged, nil
}
