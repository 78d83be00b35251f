package schema

import (
	"strings"
	"time"
)

// ISODate is the canonical date rendering for projected and aggregated rows.
const ISODate = "2006-01-02"

var dateLayouts = []string{
	ISODate,
	"2006.01.02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006년 01월 02일",
}

// ParseDate parses the date layouts seen in real exports. Returns false for
// anything unparseable; callers treat that as "no date", never an error.
func ParseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
