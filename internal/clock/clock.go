// Package clock supplies the current time and calendar-day arithmetic.
//
// Check-in days are civil dates in one canonical timezone. A Day is represented as
// midnight UTC of that civil date, so subtracting two days is exact (no DST drift)
// regardless of where the service runs.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// DayLayout is the storage format for calendar days.
const DayLayout = "2006-01-02"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Fixed is a manually advanced clock for tests. Safe for concurrent use.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a clock frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now returns the frozen instant.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// AddDays moves the clock by n calendar days, keeping the wall-clock time.
func (f *Fixed) AddDays(n int) {
	f.mu.Lock()
	f.now = f.now.AddDate(0, 0, n)
	f.mu.Unlock()
}

// Calendar maps instants onto civil dates of a single location.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a calendar for loc. A nil loc means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// CalendarFor loads the named IANA timezone. An empty name means UTC.
func CalendarFor(name string) (Calendar, error) {
	if name == "" {
		return NewCalendar(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return NewCalendar(loc), nil
}

// Location returns the canonical location.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Day returns the civil date of t in the calendar's location, as midnight UTC.
func (c Calendar) Day(t time.Time) time.Time {
	y, m, d := t.In(c.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is Day(clk.Now()).
func (c Calendar) Today(clk Clock) time.Time {
	return c.Day(clk.Now())
}

// FormatDay renders a day for storage.
func FormatDay(day time.Time) string {
	return day.Format(DayLayout)
}

// ParseDay parses a stored day.
func ParseDay(s string) (time.Time, error) {
	day, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return day, nil
}

// DaysBetween returns to - from in whole calendar days. Both must be values produced by
// Day or ParseDay; the result is negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}
