package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenameRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 7, 4, 0, 0, 0, time.UTC)

	for _, kind := range []Kind{KindSQLOnly, KindFull} {
		name := filename(ts, kind, "deadbeef")
		parsed, ok := parseFilename(name)
		require.True(t, ok, "expected %q to parse", name)
		assert.True(t, ts.Equal(parsed.Timestamp))
		assert.Equal(t, kind, parsed.Kind)
		assert.Equal(t, "deadbeef", parsed.Suffix)
	}
}

func TestFilenameLength(t *testing.T) {
	ts := time.Date(2024, 3, 7, 4, 0, 0, 0, time.UTC)

	sqlOnly := filename(ts, KindSQLOnly, "deadbeef")
	assert.Len(t, sqlOnly, 62)

	full := filename(ts, KindFull, "deadbeef")
	assert.Len(t, full, 69)
}

func TestParseFilenameRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"mealpedant_2024-03-07_04.00.00_UNKNOWN_deadbeef.tar.age",
		"mealpedant_2024-03-07_04.00.00_LOGS_REDIS_SQL_zzzzzzzz.tar.age",
		"mealpedant_2024-03-07_04.00.00_LOGS_REDIS_SQL_deadbeef.tar.gpg",
		"not even close",
	}
	for _, c := range cases {
		_, ok := parseFilename(c)
		assert.False(t, ok, "expected %q to be rejected", c)
	}
}
