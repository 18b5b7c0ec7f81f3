package keys

import (
	"fmt"
	"time"
)

// expiryLayouts are the ISO 8601 forms accepted for an explicit expiry.
// Layouts without a zone are read as UTC.
var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseExpiry parses an expiry timestamp and returns it in UTC, truncated
// to the microsecond precision the store keeps.
func ParseExpiry(s string) (time.Time, error) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid expiry %q", s)
}

// DefaultExpiry is one calendar month after created.
func DefaultExpiry(created time.Time) time.Time {
	return created.AddDate(0, 1, 0)
}
