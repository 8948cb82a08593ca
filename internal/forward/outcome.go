package forward

import (
	"net/http"

	"github.com/ManuGH/adlu-proxy/internal/protocol"
)

// Kind names one branch of Outcome, the sum type send_request returns in
// the original: exactly one network attempt produces exactly one of these.
type Kind int

const (
	// Success means Adobe replied with a success status and a freshly
	// forwarded Response is available.
	Success Kind = iota
	// Isolated means the policy engine never attempted to reach Adobe.
	Isolated
	// Unreachable means the network request itself failed (DNS, connect,
	// TLS, timeout) before any HTTP status was received.
	Unreachable
	// ParseFailure means Adobe replied with a success status but the body
	// didn't parse into the expected shape.
	ParseFailure
	// ErrorStatus means Adobe replied with a non-2xx status; the raw
	// upstream response is preserved so its safe headers/body can be
	// relayed to the client.
	ErrorStatus
)

// Outcome is the result of one upstream send attempt. Send never consults
// the cache; the response-reuse rule is applied by its caller
// (internal/dispatch) after the Outcome comes back.
type Outcome struct {
	Kind     Kind
	Response *protocol.Response
	Err      error
	Upstream *http.Response
}

func (k Kind) String() string {
	switch k {
	case Success:
		return "Success"
	case Isolated:
		return "Isolated"
	case Unreachable:
		return "Unreachable"
	case ParseFailure:
		return "ParseFailure"
	case ErrorStatus:
		return "ErrorStatus"
	default:
		return "Unknown"
	}
}

func success(resp *protocol.Response) Outcome { return Outcome{Kind: Success, Response: resp} }
func unreachable(err error) Outcome           { return Outcome{Kind: Unreachable, Err: err} }
func parseFailure(err error) Outcome          { return Outcome{Kind: ParseFailure, Err: err} }
func errorStatus(resp *http.Response) Outcome { return Outcome{Kind: ErrorStatus, Upstream: resp} }
