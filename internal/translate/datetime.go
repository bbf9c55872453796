package translate

import (
	"fmt"
	"strings"
	"time"
)

// timeFormats are the timestamp layouts found in staged items.
var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses an item timestamp. Offsets after "+" are honoured; values
// without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty time string", ErrInvalidDateTime)
	}

	var lastErr error
	for _, format := range timeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDateTime, s, lastErr)
}

// ParseDateTimeInterval parses a STAC datetime parameter which can be:
// - A single RFC3339 datetime: "2023-06-15T14:00:00Z"
// - An open-ended interval: "../2023-06-15T14:00:00Z" or "2023-06-15T14:00:00Z/.."
// - A closed interval: "2023-06-15T14:00:00Z/2023-06-16T14:00:00Z"
// Returns start and end times. Either may be nil for open-ended intervals.
func ParseDateTimeInterval(datetime string) (*time.Time, *time.Time, error) {
	if datetime == "" {
		return nil, nil, nil
	}

	datetime = strings.TrimSpace(datetime)

	if !strings.Contains(datetime, "/") {
		t, err := time.Parse(time.RFC3339, datetime)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDateTime, err)
		}
		return &t, &t, nil
	}

	parts := strings.Split(datetime, "/")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("%w: interval must be 'start/end'", ErrInvalidDateTime)
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	var start, end *time.Time

	if startStr != "" && startStr != ".." {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: start: %v", ErrInvalidDateTime, err)
		}
		start = &t
	}

	if endStr != "" && endStr != ".." {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: end: %v", ErrInvalidDateTime, err)
		}
		end = &t
	}

	if start != nil && end != nil && start.After(*end) {
		return nil, nil, fmt.Errorf("%w: start after end", ErrInvalidDateTime)
	}

	return start, end, nil
}

// OverlapsInterval reports whether the item range [itemStart, itemEnd]
// intersects the query interval. Nil query bounds are open. Items whose
// timestamps cannot be parsed never match a bounded query.
func OverlapsInterval(itemStart, itemEnd string, start, end *time.Time) bool {
	if start == nil && end == nil {
		return true
	}
	s, err := ParseTime(itemStart)
	if err != nil {
		return false
	}
	e, err := ParseTime(itemEnd)
	if err != nil {
		return false
	}
	if start != nil && e.Before(*start) {
		return false
	}
	if end != nil && s.After(*end) {
		return false
	}
	return true
}
