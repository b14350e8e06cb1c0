// Package timestamp normalizes trade timestamps, which arrive either as a
// Unix-milliseconds digit string or as an ISO-8601 date-time string.
package timestamp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is the display text for a timestamp that could not be read.
const NotAvailable = "N/A"

// DisplayLayout mirrors the en-US date-time rendering used on the dashboard.
const DisplayLayout = "1/2/2006, 3:04:05 PM"

// DateLayout is the short date rendering used on chart axes.
const DateLayout = "1/2/2006"

var digitsOnly = regexp.MustCompile(`^\d+$`)

// Layouts tried in order for non-numeric input. Zoned layouts keep their
// offset; the rest are read in the caller's location, except a bare date,
// which is UTC.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04",
	}
	dateLayout = "2006-01-02"
)

// Normalize converts a raw timestamp to epoch milliseconds using the host
// location for offset-less date-times. It never fails: empty or unreadable
// input yields 0.
func Normalize(raw string) int64 {
	return NormalizeIn(raw, time.Local)
}

// NormalizeIn is Normalize with an explicit location for offset-less input.
func NormalizeIn(raw string, loc *time.Location) int64 {
	if raw == "" {
		return 0
	}

	// Unix-ms fast path, no unit heuristics.
	if digitsOnly.MatchString(raw) {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0
		}
		return ms
	}

	t, ok := parseISO(strings.TrimSpace(raw), loc)
	if !ok {
		return 0
	}
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return ms
}

func parseISO(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Format renders a raw timestamp for display in the host location.
func Format(raw string) string {
	return FormatIn(raw, time.Local)
}

// FormatIn renders a raw timestamp for display in loc, or NotAvailable.
func FormatIn(raw string, loc *time.Location) string {
	ms := NormalizeIn(raw, loc)
	if ms == 0 {
		return NotAvailable
	}
	return time.UnixMilli(ms).In(loc).Format(DisplayLayout)
}

// FormatDate renders epoch milliseconds as a short date in loc.
func FormatDate(ms int64, loc *time.Location) string {
	if ms == 0 {
		return NotAvailable
	}
	return time.UnixMilli(ms).In(loc).Format(DateLayout)
}

// ISO renders epoch milliseconds as an ISO-8601 UTC string with
// millisecond precision.
func ISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
