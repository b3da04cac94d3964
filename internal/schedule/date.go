package schedule

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// timestampLayouts are the non date-only spellings found in stored records
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// zonelessLayouts carry a time of day but no offset
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate reads a stored date value as a calendar day in loc.
// It returns nil for blank or unparseable input.
func ParseDate(raw string, loc *time.Location) *civil.Date {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	if d, err := civil.ParseDate(value); err == nil {
		return &d
	}

	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			d := civil.DateOf(t.In(loc))
			return &d
		}
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			d := civil.DateOf(t)
			return &d
		}
	}

	return nil
}

// parseTimestamp is used for ordering cases by creation time; zero when unknown
func parseTimestamp(raw string) time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range append(append([]string{}, timestampLayouts...), zonelessLayouts...) {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if d, err := civil.ParseDate(value); err == nil {
		return d.In(time.UTC)
	}
	return time.Time{}
}
