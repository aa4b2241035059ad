// Package timeutil provides day-boundary and scheduling-window helpers.
// Arena events (tournament windows, daily leaderboard resets) are anchored
// to wall-clock days in the deployment's timezone, so these helpers operate
// on the location carried by the input time rather than assuming UTC.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// StartOfDay returns the start of the day (00:00:00) in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the end of the day (23:59:59.999999999) in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in t's location.
func StartOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(t.AddDate(0, 0, -daysToSubtract))
}

// EndOfWeek returns the end of the week (Sunday 23:59:59) in t's location.
func EndOfWeek(t time.Time) time.Time {
	start := StartOfWeek(t)
	return EndOfDay(start.AddDate(0, 0, 6))
}

// NextDaily returns the next occurrence of hour:minute strictly after t,
// in t's location. If today's occurrence has already passed (or is exactly
// now), tomorrow's is returned.
func NextDaily(t time.Time, hour, minute int) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// IsSameDay checks if two times fall on the same calendar day, compared in
// t1's location.
func IsSameDay(t1, t2 time.Time) bool {
	t2 = t2.In(t1.Location())
	return t1.Year() == t2.Year() && t1.YearDay() == t2.YearDay()
}

// IsConsecutiveDay checks if t2 is the day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	return IsSameDay(t1.AddDate(0, 0, 1), t2)
}

// DaysBetween calculates the number of calendar days between two times.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2.In(t1.Location()))
	days := int(a2.Sub(a1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// IsWeekend checks if the given time is on a weekend.
func IsWeekend(t time.Time) bool {
	weekday := t.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// DayWindow returns the [from, to] range covering n whole days starting at
// the beginning of t's day. Used to build tournament registration windows.
func DayWindow(t time.Time, days int) (from, to time.Time) {
	if days < 1 {
		days = 1
	}
	from = StartOfDay(t)
	to = EndOfDay(from.AddDate(0, 0, days-1))
	return from, to
}

// WeekWindow returns the [from, to] range covering t's calendar week.
func WeekWindow(t time.Time) (from, to time.Time) {
	return StartOfWeek(t), EndOfWeek(t)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// FormatDateStr formats a time as a date string (YYYY-MM-DD).
func FormatDateStr(t time.Time) string {
	return t.Format(FormatDate)
}

// ParseDate parses a date string (YYYY-MM-DD) in the given location.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(FormatDate, value, loc)
}
