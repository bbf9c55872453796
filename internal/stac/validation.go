package stac

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the strict UTC layout used in every generated document.
const TimestampLayout = "2006-01-02T15:04:05Z"

// NormalizeTimestamp strips any "+offset" suffix and guarantees a trailing
// "Z", matching how the archive indexes report their timestamps.
func NormalizeTimestamp(ts string) string {
	ts = strings.TrimSpace(ts)
	if i := strings.Index(ts, "+"); i >= 0 {
		ts = ts[:i]
	}
	if ts == "" || strings.HasSuffix(ts, "Z") {
		return ts
	}
	return ts + "Z"
}

// ValidateTimestamp checks that ts is an RFC 3339 UTC timestamp.
func ValidateTimestamp(ts string) error {
	if ts == "" {
		return fmt.Errorf("timestamp cannot be empty")
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		return fmt.Errorf("invalid timestamp, expected RFC 3339: %w", err)
	}
	return nil
}

// ValidateInterval checks both ends of an interval and their ordering.
func ValidateInterval(start, end string) error {
	if err := ValidateTimestamp(start); err != nil {
		return fmt.Errorf("invalid start: %w", err)
	}
	if err := ValidateTimestamp(end); err != nil {
		return fmt.Errorf("invalid end: %w", err)
	}
	s, _ := time.Parse(time.RFC3339, start)
	e, _ := time.Parse(time.RFC3339, end)
	if s.After(e) {
		return fmt.Errorf("start (%s) must be before or equal to end (%s)", start, end)
	}
	return nil
}
