// Package clock centralizes every conversion between the clinic's local
// civil time and the UTC instants persisted in storage. The clinic runs on a
// fixed UTC-3 offset with no daylight saving transitions, so the conversion
// is a pure offset shift and round-trips exactly.
package clock

import (
	"fmt"
	"time"
)

// Zone is the clinic's civil timezone.
var Zone = time.FixedZone("UTC-3", -3*60*60)

// Clock supplies the current UTC instant. Services take a Clock instead of
// calling time.Now so tests can pin the wall clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Fixed is a Clock frozen at a single instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f).UTC() }

// TimeOfDay is a local wall-clock time expressed as minutes since midnight.
type TimeOfDay int

const MinutesPerDay = 24 * 60

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "15:04" formatted local times.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Valid() bool { return t >= 0 && t < MinutesPerDay }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Period is a coarse time-of-day bucket used to filter free slots.
type Period string

const (
	PeriodMorning   Period = "morning"   // [06:00, 12:00)
	PeriodAfternoon Period = "afternoon" // [12:00, 18:00)
	PeriodEvening   Period = "evening"   // [18:00, 24:00)
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodMorning, PeriodAfternoon, PeriodEvening:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

func (p Period) Contains(t TimeOfDay) bool {
	switch p {
	case PeriodMorning:
		return t >= NewTimeOfDay(6, 0) && t < NewTimeOfDay(12, 0)
	case PeriodAfternoon:
		return t >= NewTimeOfDay(12, 0) && t < NewTimeOfDay(18, 0)
	case PeriodEvening:
		return t >= NewTimeOfDay(18, 0) && t < NewTimeOfDay(24, 0)
	}
	return false
}

// Date builds a civil calendar date. Dates carry no time-of-day and are
// normalized to midnight UTC so they compare and map-key cleanly.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf strips the time-of-day from t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// ToUTC converts a local calendar date plus local time-of-day to the UTC
// instant it denotes.
func ToUTC(date time.Time, tod TimeOfDay) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), 0, 0, Zone).UTC()
}

// ToLocal converts a UTC instant to the clinic-local calendar date and
// time-of-day. Seconds and finer are discarded; slot grids are minute-level.
func ToLocal(utc time.Time) (time.Time, TimeOfDay) {
	l := utc.In(Zone)
	return Date(l.Year(), l.Month(), l.Day()), NewTimeOfDay(l.Hour(), l.Minute())
}

// DayWindowUTC returns the half-open UTC interval [from, to) covering the
// given local calendar day. Booking lookups for a day must use this window,
// never a raw date comparison against stored UTC instants.
func DayWindowUTC(date time.Time) (from, to time.Time) {
	return ToUTC(date, 0), ToUTC(date.AddDate(0, 0, 1), 0)
}
