package timeutil

import (
	"fmt"
	"time"
)

// Layouts used for the canonical date and time strings of a reminder.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Clock returns the current instant. Components take a Clock so tests can pin "now".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// In returns a Clock reporting the wall clock in loc.
func In(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

var defaultLocation = time.Local

// ResolveLocation returns the named location, falling back to the process location.
// The second return value reports whether the fallback was used.
func ResolveLocation(timezone string) (*time.Location, bool) {
	if timezone == "" {
		return defaultLocation, true
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return defaultLocation, true
	}
	return loc, false
}

// CombineLocal joins a YYYY-MM-DD date and an HH:MM time into an instant in loc.
func CombineLocal(date, clock string, loc *time.Location) (time.Time, error) {
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("date and time are required")
	}
	if loc == nil {
		loc = defaultLocation
	}

	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to combine %s %s: %w", date, clock, err)
	}
	return t, nil
}

// DayOffset returns the number of calendar days from ref to the date string in ref's location.
func DayOffset(ref time.Time, date string) (int, error) {
	d, err := time.ParseInLocation(DateLayout, date, ref.Location())
	if err != nil {
		return 0, fmt.Errorf("unable to parse date: %s", date)
	}
	start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	// Round to absorb DST shifts.
	return int(d.Sub(start).Round(24*time.Hour) / (24 * time.Hour)), nil
}
