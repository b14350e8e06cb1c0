package query

import (
	"fmt"
	"time"
)

// Preset names a relative date window.
type Preset string

const (
	PresetAll     Preset = "all"
	PresetToday   Preset = "today"
	PresetWeek    Preset = "week"
	PresetMonth   Preset = "month"
	PresetQuarter Preset = "quarter"
	PresetCustom  Preset = "custom"
)

const day = 24 * time.Hour

// presetSpan is the number of whole days a preset reaches back.
var presetSpan = map[Preset]int{
	PresetToday:   0,
	PresetWeek:    7,
	PresetMonth:   30,
	PresetQuarter: 90,
}

// calendarDate is the ISO date layout sent to the backend.
const calendarDate = "2006-01-02"

// DateRange is either a preset window or explicit custom bounds, never both.
// The zero value is the unbounded PresetAll range.
type DateRange struct {
	preset Preset
	custom *customBounds
}

type customBounds struct {
	start, end string
}

// PresetRange returns a relative range. PresetCustom is not accepted here;
// use CustomRange so both bounds are supplied.
func PresetRange(p Preset) (DateRange, error) {
	if p == PresetAll || p == "" {
		return DateRange{preset: PresetAll}, nil
	}
	if _, ok := presetSpan[p]; !ok {
		return DateRange{}, fmt.Errorf("unknown date preset %q", p)
	}
	return DateRange{preset: p}, nil
}

// MustPreset is PresetRange for compile-time constants.
func MustPreset(p Preset) DateRange {
	r, err := PresetRange(p)
	if err != nil {
		panic(err)
	}
	return r
}

// CustomRange passes the given bounds through verbatim. Empty strings are
// legal and mean "unbounded on that side" to the backend.
func CustomRange(start, end string) DateRange {
	return DateRange{preset: PresetCustom, custom: &customBounds{start: start, end: end}}
}

// Preset reports which kind of range this is.
func (r DateRange) Preset() Preset {
	if r.preset == "" {
		return PresetAll
	}
	return r.preset
}

// Bounds is the date portion of a query. A nil field is omitted from the
// request entirely, which is distinct from an empty string.
type Bounds struct {
	StartDate *string
	EndDate   *string
}

// Bounds resolves the range against now. Dates are UTC calendar dates and
// day arithmetic subtracts fixed 24-hour multiples.
func (r DateRange) Bounds(now time.Time) Bounds {
	switch r.Preset() {
	case PresetAll:
		return Bounds{}
	case PresetCustom:
		start, end := r.custom.start, r.custom.end
		return Bounds{StartDate: &start, EndDate: &end}
	default:
		end := now.UTC().Format(calendarDate)
		start := now.Add(-time.Duration(presetSpan[r.preset]) * day).UTC().Format(calendarDate)
		return Bounds{StartDate: &start, EndDate: &end}
	}
}
