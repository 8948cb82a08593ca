package logsession

import "github.com/ManuGH/adlu-proxy/internal/protocol"

// LicenseSession and NewLicenseSession expose protocol.LicenseSession
// (with its Merge) and protocol.NewLicenseSession under the logsession
// package so callers that already depend on logsession for log-session
// reduction have a single, symmetric entry point for NUL reduction too.
// The types themselves live in internal/protocol because they are also
// part of the NUL wire model.
type LicenseSession = protocol.LicenseSession

// NewLicenseSession builds a LicenseSession from a NUL activation request.
var NewLicenseSession = protocol.NewLicenseSession
