package utils

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	DateLayout,
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseDate parses the date formats found in wallet exports and returns the value in UTC.
// Values without a zone are taken as UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", value)
}
