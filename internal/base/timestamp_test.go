package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDBAcceptsLegacyFormats(t *testing.T) {
	epoch := FromMillis(0)

	ts1 := FromDB("1970-01-01T00:00:00.000+0000")
	assert.Equal(t, epoch.Millis(), ts1.Millis())

	ts2 := FromDB("1970-01-01T00:00:00:000+0000")
	assert.Equal(t, epoch.Millis(), ts2.Millis())
}

func TestFromDBLenientRecoveryOnGarbage(t *testing.T) {
	// a malformed value must not error out a read path; it recovers to "now"
	// rather than propagating a parse failure.
	before := Now().Millis()
	ts := FromDB("not-a-timestamp")
	after := Now().Millis()
	assert.GreaterOrEqual(t, ts.Millis(), before)
	assert.LessOrEqual(t, ts.Millis(), after)
}

func TestParseDecimalMillis(t *testing.T) {
	ts, ok := Parse("1659806990834")
	require.True(t, ok)
	assert.Equal(t, int64(1659806990834), ts.Millis())
}

func TestParseRoundTrip(t *testing.T) {
	ts := FromMillis(1659806990834)
	parsed, ok := Parse(ts.String())
	require.True(t, ok)
	assert.Equal(t, ts.Millis(), parsed.Millis())
}

func TestOptionalToDBFromDB(t *testing.T) {
	assert.Equal(t, "", OptionalToDB(nil))
	assert.Nil(t, OptionalFromDB(""))

	ts := FromMillis(42)
	s := OptionalToDB(&ts)
	got := OptionalFromDB(s)
	require.NotNil(t, got)
	assert.Equal(t, ts.Millis(), got.Millis())
}

func TestFormatRFC3339NoTimezoneUsesSpaceSeparator(t *testing.T) {
	ts := FromMillis(1659806990834)
	got := ts.FormatRFC3339(false)
	assert.NotContains(t, got, "T")
	assert.Contains(t, got, " ")
}

func TestFormatISO8601WithTimezone(t *testing.T) {
	ts := FromMillis(1659806990834)
	got := ts.FormatISO8601(true)
	assert.Contains(t, got, "T")
}
