package util

import "time"

// TimestampLayout is fixed-width so timestamps sort lexicographically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t as an ISO-8601 UTC string with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts the canonical layout and RFC 3339.
func ParseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
