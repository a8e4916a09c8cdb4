package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDPrefix(t *testing.T) {
	id := NewID("rfp")
	assert.True(t, strings.HasPrefix(id, "rfp_"))
	assert.Len(t, id, len("rfp_")+32)
	assert.NotEqual(t, id, NewID("rfp"))
	assert.Len(t, NewID(""), 32)
}

func TestTimestampSortsLexicographically(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := Timestamp(base)
	b := Timestamp(base.Add(10 * time.Millisecond))
	c := Timestamp(base.Add(time.Second))

	assert.Equal(t, "2026-03-01T09:00:00.000Z", a)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
	assert.Len(t, b, len(a))
}

func TestParseTimestamp(t *testing.T) {
	parsed, err := ParseTimestamp("2026-03-01T09:00:00.250Z")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, time.Duration(parsed.Nanosecond()))

	parsed, err = ParseTimestamp("2026-03-01T10:00:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T09:00:00.000Z", Timestamp(parsed))

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}
