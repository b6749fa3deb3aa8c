package plone

import (
	"fmt"
	"strings"
	"time"
)

// SubmitLayout is the format the backend expects: UTC, seconds, no zone suffix.
const SubmitLayout = "2006-01-02T15:04:05"

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a backend timestamp. Values without "Z" or a numeric
// offset are stored as UTC by the backend and are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if hasZone(s) {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		return t.UTC(), nil
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unknown format", s)
}

// FormatTimestamp renders t for submission.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(SubmitLayout)
}

func hasZone(s string) bool {
	if strings.ContainsAny(s, "Zz+") {
		return true
	}
	// A '-' past the date part is a negative offset.
	return len(s) > 10 && strings.Contains(s[10:], "-")
}
