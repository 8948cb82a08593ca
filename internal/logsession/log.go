// Package logsession reduces streaming NGL client log uploads and NUL
// license activations into per-session summary records.
package logsession

import (
	"fmt"
	"regexp"

	"github.com/ManuGH/adlu-proxy/internal/base"
)

// Session is a per-session aggregate built from an NGL client log upload,
// keyed by session_id. Optional fields are nil until a matching record is
// observed.
type Session struct {
	SourceAddr   string
	SessionID    string
	InitialEntry base.Timestamp
	FinalEntry   base.Timestamp
	SessionStart *base.Timestamp
	SessionEnd   *base.Timestamp
	AppID        *string
	AppVersion   *string
	AppLocale    *string
	NglVersion   *string
	OsName       *string
	OsVersion    *string
	UserID       *string
}

// HasInfo reports whether the session carries any typed field beyond the
// bare entry bounds.
func (s *Session) HasInfo() bool {
	return s.SessionStart != nil || s.SessionEnd != nil ||
		s.AppID != nil || s.AppVersion != nil || s.AppLocale != nil ||
		s.NglVersion != nil || s.OsName != nil || s.OsVersion != nil || s.UserID != nil
}

// Merge combines two fragments of the same session. source_addr prefers
// the receiver's value unless it is the "unknown" sentinel; InitialEntry is
// the minimum of the two, FinalEntry the maximum; each optional field is
// taken from the receiver if present, else from other.
func (s *Session) Merge(other *Session) (*Session, error) {
	if s.SessionID != other.SessionID {
		return nil, fmt.Errorf("log session merge: mismatched session ids %q != %q", s.SessionID, other.SessionID)
	}
	merged := &Session{SessionID: s.SessionID}

	merged.SourceAddr = s.SourceAddr
	if merged.SourceAddr == "unknown" {
		merged.SourceAddr = other.SourceAddr
	}

	merged.InitialEntry = minTS(s.InitialEntry, other.InitialEntry)
	merged.FinalEntry = maxTS(s.FinalEntry, other.FinalEntry)

	merged.SessionStart = firstNonNil(s.SessionStart, other.SessionStart)
	merged.SessionEnd = firstNonNil(s.SessionEnd, other.SessionEnd)
	merged.AppID = firstNonNilStr(s.AppID, other.AppID)
	merged.AppVersion = firstNonNilStr(s.AppVersion, other.AppVersion)
	merged.AppLocale = firstNonNilStr(s.AppLocale, other.AppLocale)
	merged.NglVersion = firstNonNilStr(s.NglVersion, other.NglVersion)
	merged.OsName = firstNonNilStr(s.OsName, other.OsName)
	merged.OsVersion = firstNonNilStr(s.OsVersion, other.OsVersion)
	merged.UserID = firstNonNilStr(s.UserID, other.UserID)

	return merged, nil
}

func minTS(a, b base.Timestamp) base.Timestamp {
	if a.Millis() <= b.Millis() {
		return a
	}
	return b
}

func maxTS(a, b base.Timestamp) base.Timestamp {
	if a.Millis() >= b.Millis() {
		return a
	}
	return b
}

func firstNonNil(a, b *base.Timestamp) *base.Timestamp {
	if a != nil {
		return a
	}
	return b
}

func firstNonNilStr(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

// Regex field set, grounded in the newer (non-legacy) module split's
// protocol/log.rs, byte-mode so non-UTF-8 bytes elsewhere in the stream
// don't derail extraction of the captured fields. Patterns are tried in
// this order; the first to match a record's description wins.
var (
	lineRE   = regexp.MustCompile(`(?m)^SessionID=(\S+) Timestamp=(\S+) .*Description="(.*)"\r?$`)
	startRE  = regexp.MustCompile(`Initializing session logs`)
	endRE    = regexp.MustCompile(`Terminating session logs`)
	osRE     = regexp.MustCompile(`SetConfig:.+OS Name=([^,]+),\s*OS Version=([^\s,]+)`)
	appRE    = regexp.MustCompile(`SetConfig:.+AppID=([^,]+),\s*AppVersion=([^\s,]+)`)
	nglRE    = regexp.MustCompile(`SetConfig:.+NGLLibVersion=([^\s,]+)`)
	localeRE = regexp.MustCompile(`SetAppRuntimeConfig:.+AppLocale=([^\s,]+)`)
	userRE   = regexp.MustCompile(`LogCurrentUser:.+UserID=([^\s,]+)`)
)

// ParseLogData scans a raw log upload body for session records, grouping
// consecutive same-session-id records into in-progress sessions and
// flushing each session when the session id changes.
func ParseLogData(sourceAddr string, body []byte) []*Session {
	if sourceAddr == "" {
		sourceAddr = "unknown"
	}

	var result []*Session
	var current *Session

	for _, m := range lineRE.FindAllSubmatch(body, -1) {
		sessionID := string(m[1])
		tsStr := string(m[2])
		desc := string(m[3])

		ts := base.FromLog(tsStr)

		if current != nil && current.SessionID != sessionID {
			result = append(result, current)
			current = nil
		}
		if current == nil {
			current = &Session{
				SourceAddr:   sourceAddr,
				SessionID:    sessionID,
				InitialEntry: ts,
				FinalEntry:   ts,
			}
		}
		current.FinalEntry = ts
		applyDescription(current, ts, desc)
	}

	if current != nil {
		result = append(result, current)
	}
	return result
}

func applyDescription(s *Session, ts base.Timestamp, desc string) {
	switch {
	case startRE.MatchString(desc):
		t := ts
		s.SessionStart = &t
	case endRE.MatchString(desc):
		t := ts
		s.SessionEnd = &t
	case osRE.MatchString(desc):
		mm := osRE.FindStringSubmatch(desc)
		name, version := mm[1], mm[2]
		s.OsName = &name
		s.OsVersion = &version
	case appRE.MatchString(desc):
		mm := appRE.FindStringSubmatch(desc)
		id, version := mm[1], mm[2]
		s.AppID = &id
		s.AppVersion = &version
	case nglRE.MatchString(desc):
		mm := nglRE.FindStringSubmatch(desc)
		v := mm[1]
		s.NglVersion = &v
	case localeRE.MatchString(desc):
		mm := localeRE.FindStringSubmatch(desc)
		v := mm[1]
		s.AppLocale = &v
	case userRE.MatchString(desc):
		mm := userRE.FindStringSubmatch(desc)
		v := mm[1]
		s.UserID = &v
	}
}
