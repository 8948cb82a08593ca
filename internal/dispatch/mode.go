// Package dispatch is the policy engine: it decides, per configured mode,
// whether an inbound request is stored, forwarded, both, or neither, and it
// applies the response-reuse rule uniformly once the network attempt (if
// any) is done.
package dispatch

import "fmt"

// Mode is one of the proxy's four operator-selectable policies.
type Mode int

const (
	// Connected stores every request, forwards it, and caches whatever
	// comes back. On failure it falls back to any previously cached
	// response for the same key before giving up.
	Connected Mode = iota
	// Store persists requests for later batch replay and never touches
	// the network itself.
	Store
	// Isolated never touches the network and never stores; it only ever
	// serves from whatever is already cached.
	Isolated
	// Forward sends requests on immediately without a pre-storage step,
	// caching the response on success. Named for the batch replay
	// command it shares behavior with, not "Passthrough".
	Forward
)

func (m Mode) String() string {
	switch m {
	case Connected:
		return "Connected"
	case Store:
		return "Store"
	case Isolated:
		return "Isolated"
	case Forward:
		return "Forward"
	default:
		return "Unknown"
	}
}

// ParseMode parses the single-letter --mode flag value: c (Connected),
// s (Store), i (Isolated), p (Forward).
func ParseMode(s string) (Mode, error) {
	switch s {
	case "c":
		return Connected, nil
	case "s":
		return Store, nil
	case "i":
		return Isolated, nil
	case "p":
		return Forward, nil
	default:
		return 0, fmt.Errorf("dispatch: unrecognized mode %q (want one of c, s, i, p)", s)
	}
}

// ParseModeName parses the config file's full-word proxy.mode value:
// "connected", "store", "isolated", "forward".
func ParseModeName(s string) (Mode, error) {
	switch s {
	case "connected":
		return Connected, nil
	case "store":
		return Store, nil
	case "isolated":
		return Isolated, nil
	case "forward":
		return Forward, nil
	default:
		return 0, fmt.Errorf("dispatch: unrecognized mode %q (want one of connected, store, isolated, forward)", s)
	}
}
