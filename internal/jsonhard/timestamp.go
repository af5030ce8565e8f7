package jsonhard

import (
	"strings"
	"time"
)

// timestampLayouts covers RFC3339 with 3, 6, or 9 fractional digits,
// with or without a trailing Z, as emitted by the two protocol
// adapters and the discovery scrapers.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000000000Z",
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.000000000Z07:00",
	"2006-01-02T15:04:05.000000Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseTimestamp parses a `last_updated`-style timestamp. It accepts
// RFC3339 with 3, 6, or 9 fractional digits, with or without a
// trailing Z, and with or without surrounding single quotes (some
// worker payloads wrap the value in quotes when it's re-embedded in an
// already-quoted error string).
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.Trim(strings.TrimSpace(s), "'")
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
