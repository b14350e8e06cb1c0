// Package autosync runs scheduled exports for platforms that support
// automatic synchronization.
package autosync

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"trading-analytics-go/internal/config"
	"trading-analytics-go/internal/export"
)

var (
	ErrInvalidSchedule = errors.New("invalid sync schedule")
	ErrNoAutoSync      = errors.New("platform does not support auto-sync")
)

// Frequency is how often a schedule fires.
type Frequency string

const (
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Schedule is a parsed per-platform sync configuration.
type Schedule struct {
	Platform  export.PlatformID
	Enabled   bool
	Frequency Frequency
	Weekday   time.Weekday
	Hour      int
	Minute    int
}

// ParseSchedule validates a configured schedule. Weekly schedules need a
// day of week; every schedule needs an HH:MM time of day.
func ParseSchedule(platform string, cfg config.Schedule) (Schedule, error) {
	p, err := export.LookupPlatform(export.PlatformID(platform))
	if err != nil {
		return Schedule{}, err
	}
	if !p.AutoSync {
		return Schedule{}, fmt.Errorf("%w: %s", ErrNoAutoSync, p.Name)
	}

	s := Schedule{Platform: p.ID, Enabled: cfg.Enabled}
	switch f := Frequency(strings.ToLower(cfg.Frequency)); f {
	case Daily, Weekly:
		s.Frequency = f
	default:
		return Schedule{}, fmt.Errorf("%w: frequency %q", ErrInvalidSchedule, cfg.Frequency)
	}

	if s.Frequency == Weekly {
		day, ok := weekdays[strings.ToLower(cfg.DayOfWeek)]
		if !ok {
			return Schedule{}, fmt.Errorf("%w: day of week %q", ErrInvalidSchedule, cfg.DayOfWeek)
		}
		s.Weekday = day
	}

	at, err := time.Parse("15:04", cfg.TimeOfDay)
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: time of day %q", ErrInvalidSchedule, cfg.TimeOfDay)
	}
	s.Hour, s.Minute = at.Hour(), at.Minute()
	return s, nil
}

// Next returns the first firing time strictly after t, in t's location.
func (s Schedule) Next(t time.Time) time.Time {
	y, m, d := t.Date()
	next := time.Date(y, m, d, s.Hour, s.Minute, 0, 0, t.Location())

	step := 1
	if s.Frequency == Weekly {
		step = 7
		offset := (int(s.Weekday) - int(t.Weekday()) + 7) % 7
		next = next.AddDate(0, 0, offset)
	}
	if !next.After(t) {
		next = next.AddDate(0, 0, step)
	}
	return next
}
