// Package forward sends classified requests on to the real Adobe endpoints
// and turns their replies back into the proxy's internal Response shape. It
// never decides *whether* to forward — that's the policy engine's job
// (internal/dispatch) — it only knows how.
package forward

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// adobeTimeout matches the original proxy's fixed 59-second client timeout.
const adobeTimeout = 59 * time.Second

// defaultOutboundRate and defaultOutboundBurst bound how fast this proxy
// hammers the real Adobe endpoints. Nothing in the original imposes such a
// limit; it's added defensively since a misbehaving or replay-heavy client
// population could otherwise turn this proxy into an inadvertent DoS
// source against Adobe's own infrastructure.
const (
	defaultOutboundRate  = 20 // requests/sec
	defaultOutboundBurst = 40
)

// ProxyConfig describes an optional outbound HTTPS forward proxy sitting
// between this proxy and the Adobe endpoints.
type ProxyConfig struct {
	Enabled       bool
	Protocol      string
	Host          string
	Port          int
	UseBasicAuth  bool
	Username      string
	Password      string
}

// Config holds everything needed to send a classified request upstream:
// the two Adobe endpoint base URLs (FRL and log uploads are served by
// different hosts), the HTTP client, and the identifiers used to build the
// User-Agent and Via headers.
type Config struct {
	FrlServer string
	LogServer string
	Client    *http.Client
	ProxyID   string
	Version   string
	Limiter   *rate.Limiter
}

// ProxyID renders the proxy's self-identifying string, e.g.
// "adlu-proxy-1.0.0", used in both the User-Agent and Via headers.
func ProxyID(version string) string {
	return "adlu-proxy-" + version
}

// NewConfig builds the outbound HTTP client: a 59-second timeout and, if
// configured, a forward proxy with optional basic auth on it.
func NewConfig(frlServer, logServer string, proxy ProxyConfig, version string) (*Config, error) {
	if _, err := url.Parse(frlServer); err != nil {
		return nil, fmt.Errorf("forward: invalid FRL endpoint %q: %w", frlServer, err)
	}
	if _, err := url.Parse(logServer); err != nil {
		return nil, fmt.Errorf("forward: invalid log endpoint %q: %w", logServer, err)
	}

	transport := &http.Transport{}
	if proxy.Enabled {
		proxyURL, err := url.Parse(fmt.Sprintf("%s://%s:%d", proxy.Protocol, proxy.Host, proxy.Port))
		if err != nil {
			return nil, fmt.Errorf("forward: invalid proxy configuration: %w", err)
		}
		if proxy.UseBasicAuth {
			proxyURL.User = url.UserPassword(proxy.Username, proxy.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Config{
		FrlServer: frlServer,
		LogServer: logServer,
		Client:    &http.Client{Timeout: adobeTimeout, Transport: transport},
		ProxyID:   ProxyID(version),
		Version:   version,
		Limiter:   rate.NewLimiter(defaultOutboundRate, defaultOutboundBurst),
	}, nil
}

// Via renders the "Via" header value this proxy stamps on every reply it
// produces or relays, e.g. "1.1 adlu-proxy-1.0.0".
func (c *Config) Via() string {
	return "1.1 " + c.ProxyID
}
