// Package base provides small, dependency-free primitives shared across the
// proxy: millisecond-epoch timestamps and the codecs used to move signed
// payloads in and out of JSON.
package base

import (
	"encoding/json"
	"strconv"
	"time"
)

// Timestamp holds an NGL-style timestamp as milliseconds since the Unix
// epoch. The zero value is the epoch itself, not "now" — callers that want
// the current time must call Now explicitly.
type Timestamp struct {
	millis int64
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp{millis: time.Now().UnixMilli()}
}

// FromMillis builds a Timestamp from raw epoch milliseconds.
func FromMillis(millis int64) Timestamp {
	return Timestamp{millis: millis}
}

// Millis returns the epoch milliseconds.
func (t Timestamp) Millis() int64 {
	return t.millis
}

// UTC returns the timestamp as a UTC time.Time.
func (t Timestamp) UTC() time.Time {
	return time.UnixMilli(t.millis).UTC()
}

// Local returns the timestamp as a local time.Time.
func (t Timestamp) Local() time.Time {
	return time.UnixMilli(t.millis).Local()
}

// String renders the timestamp as ISO-8601 with millisecond precision and a
// numeric zone offset, matching the display form used throughout the proxy.
func (t Timestamp) String() string {
	return t.UTC().Format("2006-01-02T15:04:05.000-0700")
}

// parseLayouts are tried in order once Parse has ruled out decimal epoch
// milliseconds: RFC3339, then the display form written by String (numeric
// offset without a colon), then RFC1123Z-style (RFC2822). The two legacy
// colon-delimited variants are rewritten by Parse to their dotted forms,
// which the first two layouts then accept.
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	time.RFC1123Z,
}

// Parse accepts a decimal integer of milliseconds since the epoch,
// RFC-3339, the display form written by String, RFC-2822, and two legacy
// variants that use a colon before the millisecond field (with and without
// a colon in the zone offset).
func Parse(s string) (Timestamp, bool) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromMillis(v), true
	}
	if len(s) > 20 && s[10] == 'T' && s[19] == ':' {
		// legacy colon before the millisecond field: turn it into a dot.
		s = s[:19] + "." + s[20:]
	}
	for _, layout := range parseLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return FromMillis(tm.UnixMilli()), true
		}
	}
	return Timestamp{}, false
}

// ToDB renders the timestamp for storage as a string column.
func (t Timestamp) ToDB() string {
	return t.String()
}

// FromDB parses a timestamp previously stored with ToDB. On a malformed or
// unrecognized value it recovers leniently by returning the current time:
// a corrupt stored timestamp must never block a read.
func FromDB(s string) Timestamp {
	if ts, ok := Parse(s); ok {
		return ts
	}
	return Now()
}

// OptionalToDB renders an absent timestamp as the empty string, a present
// one via ToDB.
func OptionalToDB(t *Timestamp) string {
	if t == nil {
		return ""
	}
	return t.ToDB()
}

// OptionalFromDB is the inverse of OptionalToDB: the empty string maps to
// absent, anything else is parsed leniently via FromDB.
func OptionalFromDB(s string) *Timestamp {
	if s == "" {
		return nil
	}
	ts := FromDB(s)
	return &ts
}

// ToLog renders a timestamp the way it appears in an NGL client log line:
// local time, colon before the millisecond field.
func (t Timestamp) ToLog() string {
	s := t.Local().Format("2006-01-02T15:04:05.000-0700")
	return s[:19] + ":" + s[20:]
}

// FromLog parses a timestamp in the ToLog format, falling back to FromDB's
// lenient recovery on a format mismatch (log formats have changed over
// time; a client on an older build may use an unexpected format).
func FromLog(s string) Timestamp {
	if tm, err := time.Parse("2006-01-02T15:04:05:000-0700", s); err == nil {
		return FromMillis(tm.UnixMilli())
	}
	return FromDB(s)
}

// ToDeviceDate renders a timestamp the way an NGL client embeds a device
// date in a request body: local time, dot before the millisecond field.
func (t Timestamp) ToDeviceDate() string {
	return t.Local().Format("2006-01-02T15:04:05.000-0700")
}

// FromDeviceDate is the inverse of ToDeviceDate, with the same lenient
// fallback as FromLog.
func FromDeviceDate(s string) Timestamp {
	if tm, err := time.Parse("2006-01-02T15:04:05.000-0700", s); err == nil {
		return FromMillis(tm.UnixMilli())
	}
	return FromDB(s)
}

// FormatISO8601 renders the timestamp with a 'T' separator; with
// timezone=true in local time with a numeric zone offset, otherwise in UTC
// with no offset at all.
func (t Timestamp) FormatISO8601(timezone bool) string {
	if timezone {
		return t.Local().Format("2006-01-02T15:04:05.000-0700")
	}
	return t.UTC().Format("2006-01-02T15:04:05.000")
}

// FormatRFC3339 renders the timestamp RFC-3339 style; with timezone=true in
// local time with a 'T' separator and an RFC-3339 offset (Z when local time
// is UTC), otherwise in UTC with a space separator and no offset.
func (t Timestamp) FormatRFC3339(timezone bool) string {
	if timezone {
		return t.Local().Format("2006-01-02T15:04:05.000Z07:00")
	}
	return t.UTC().Format("2006-01-02 15:04:05.000")
}

// MarshalJSON encodes the timestamp as its display string, matching the
// original's Serialize impl (a quoted string, not a bare number).
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts any format Parse accepts.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ts, ok := Parse(s)
	if !ok {
		return &ParseError{Value: s}
	}
	*t = ts
	return nil
}

// ParseError reports a timestamp string that matched none of the accepted
// formats.
type ParseError struct {
	Value string
}

func (e *ParseError) Error() string {
	return "base: unrecognized timestamp format: " + strconv.Quote(e.Value)
}
