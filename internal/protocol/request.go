// Package protocol classifies inbound HTTP traffic into the proxy's four
// recognized request kinds and holds the typed wire bodies for each.
package protocol

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ManuGH/adlu-proxy/internal/base"
)

// Type identifies which of the proxy's recognized shapes a request matches.
type Type int

const (
	Unknown Type = iota
	FrlActivation
	FrlDeactivation
	NulLicense
	LogUpload
)

func (t Type) String() string {
	switch t {
	case FrlActivation:
		return "FRL Activation"
	case FrlDeactivation:
		return "FRL Deactivation"
	case NulLicense:
		return "NUL License"
	case LogUpload:
		return "Log Upload"
	default:
		return "Unknown"
	}
}

// Body size limits: 11 MiB for log uploads, 32 KiB for the JSON
// endpoints.
const (
	MaxJSONBodyBytes = 32 * 1024
	MaxLogBodyBytes  = 11 * 1024 * 1024
)

// Request is the proxy's internal representation of an inbound request,
// built once at ingestion and never mutated afterward.
type Request struct {
	Timestamp     base.Timestamp
	Type          Type
	SourceAddr    string
	Method        string
	Path          string
	Query         string
	Body          []byte
	ContentType   string
	Accept        string
	AcceptLang    string
	UserAgent     string
	Via           string
	APIKey        string
	RequestID     string
	SessionID     string
	Authorization string
}

// WithID renders a short identifying phrase for log lines: the request id
// if present, else a hex timestamp.
func (r *Request) WithID() string {
	if r.RequestID != "" {
		return fmt.Sprintf("with X-Request-Id: %s", r.RequestID)
	}
	return fmt.Sprintf("with Timestamp: %x", r.Timestamp.Millis())
}

func (r *Request) String() string {
	return fmt.Sprintf("%s request %s", r.Type, r.WithID())
}

// Response is the proxy's internal representation of a response, whether
// built from an upstream reply or served from the cache.
type Response struct {
	Timestamp   base.Timestamp
	Type        Type
	Status      int
	Body        []byte
	ContentType string
	Server      string
	Via         string
	RequestID   string
	SessionID   string
}

// route describes one of the proxy's recognized shapes as a pure function
// of method, path and headers — a table lookup in place of the original's
// warp Filter tree.
type route struct {
	typ             Type
	method          string
	matchPath       func(path string) bool
	requireAPIKey   bool
	requireReqID    bool
	requireSession  bool
	requireAuth     bool
	requireQuery    bool
	maxBody         int64
}

var routes = []route{
	{
		typ:           FrlActivation,
		method:        http.MethodPost,
		matchPath:     exact("/asnp/frl_connected/values/v2"),
		requireAPIKey: true,
		requireReqID:  true,
		maxBody:       MaxJSONBodyBytes,
	},
	{
		typ:           FrlDeactivation,
		method:        http.MethodDelete,
		matchPath:     exact("/asnp/frl_connected/v1"),
		requireAPIKey: true,
		requireReqID:  true,
		requireQuery:  true,
		maxBody:       MaxJSONBodyBytes,
	},
	{
		typ:            NulLicense,
		method:         http.MethodPost,
		matchPath:      prefix("/asnp/nud"),
		requireAPIKey:  true,
		requireReqID:   true,
		requireSession: true,
		requireAuth:    true,
		maxBody:        MaxJSONBodyBytes,
	},
	{
		typ:           LogUpload,
		method:        http.MethodPost,
		matchPath:     exact("/ulecs/v1"),
		requireAPIKey: true,
		requireAuth:   true,
		maxBody:       MaxLogBodyBytes,
	},
}

func exact(p string) func(string) bool {
	return func(path string) bool { return path == p }
}

func prefix(p string) func(string) bool {
	return func(path string) bool { return path == p || strings.HasPrefix(path, p+"/") }
}

// Classify matches an incoming HTTP request against the route table and
// returns the recognized Type plus the maximum number of body bytes that
// may be read for it. A request that matches no route, or is missing
// a header its matched shape requires, classifies as Unknown.
func Classify(r *http.Request) (Type, int64) {
	for _, rt := range routes {
		if r.Method != rt.method || !rt.matchPath(r.URL.Path) {
			continue
		}
		if rt.requireAPIKey && r.Header.Get("X-Api-Key") == "" {
			continue
		}
		if rt.requireReqID && r.Header.Get("X-Request-Id") == "" {
			continue
		}
		if rt.requireSession && r.Header.Get("X-Session-Id") == "" {
			continue
		}
		if rt.requireAuth && r.Header.Get("Authorization") == "" {
			continue
		}
		if rt.requireQuery && r.URL.RawQuery == "" {
			continue
		}
		return rt.typ, rt.maxBody
	}
	return Unknown, MaxJSONBodyBytes
}

// ProxiedRemoteAddr extracts the client address, preferring
// X-Forwarded-For then X-Real-Ip before falling back to the TCP peer
// address, matching the original's proxied_remote_addr.
func ProxiedRemoteAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	return r.RemoteAddr
}

// NewRequest builds a Request from an http.Request and an already-read,
// size-bounded body.
func NewRequest(r *http.Request, typ Type, body []byte) *Request {
	return &Request{
		Timestamp:     base.Now(),
		Type:          typ,
		SourceAddr:    ProxiedRemoteAddr(r),
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Body:          body,
		ContentType:   r.Header.Get("Content-Type"),
		Accept:        r.Header.Get("Accept"),
		AcceptLang:    r.Header.Get("Accept-Language"),
		UserAgent:     r.Header.Get("User-Agent"),
		Via:           r.Header.Get("Via"),
		APIKey:        r.Header.Get("X-Api-Key"),
		RequestID:     r.Header.Get("X-Request-Id"),
		SessionID:     r.Header.Get("X-Session-Id"),
		Authorization: r.Header.Get("Authorization"),
	}
}

// ParseBoolFlag parses the 0/1 integer flags used throughout the FRL query
// parameters and JSON bodies (enableVdiMarkerExists, isVirtualEnvironment,
// isOsUserAccountInDomain): any nonzero value is true, matching the
// original's `!= 0` check on the Rust i8 fields.
func ParseBoolFlag(s string) bool {
	v, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return v != 0
}
