package util

import (
	"fmt"
	"time"
)

const (
	// DateFormat is the standard date format for plan records.
	DateFormat = "2006-01-02"

	// DateTimeFormat is the standard datetime format for plan records.
	DateTimeFormat = "2006-01-02 15:04:05"

	// ISO8601Format is the RFC3339 format used in configuration and APIs.
	ISO8601Format = time.RFC3339
)

var (
	// InfinitePast is the earliest date the planning engine knows about.
	// Events at this date are in effect from the start of time.
	InfinitePast = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

	// InfiniteFuture is the latest date the planning engine knows about.
	InfiniteFuture = time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC)
)

// IsInfinitePast reports whether t is at or before InfinitePast.
func IsInfinitePast(t time.Time) bool {
	return !t.After(InfinitePast)
}

// IsInfiniteFuture reports whether t is at or after InfiniteFuture.
func IsInfiniteFuture(t time.Time) bool {
	return !t.Before(InfiniteFuture)
}

// Seconds returns the number of whole seconds from "from" till "till".
// The result is negative when till precedes from.
func Seconds(from, till time.Time) int64 {
	return till.Unix() - from.Unix()
}

// MinTime returns the earlier of two times.
func MinTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// FormatDate formats a time as a date string.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// FormatDateTime formats a time as a datetime string.
// The sentinels render as "past" and "future" to keep reports readable.
func FormatDateTime(t time.Time) string {
	switch {
	case IsInfinitePast(t):
		return "past"
	case IsInfiniteFuture(t):
		return "future"
	}
	return t.Format(DateTimeFormat)
}

// FormatISO8601 formats a time as an ISO8601/RFC3339 string.
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(ISO8601Format)
}

// ParseDate parses a date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

// ParseDateTime parses a datetime string.
func ParseDateTime(s string) (time.Time, error) {
	return time.Parse(DateTimeFormat, s)
}

// ParseISO8601 parses an ISO8601/RFC3339 string.
func ParseISO8601(s string) (time.Time, error) {
	return time.Parse(ISO8601Format, s)
}

// ParseFlexible accepts an RFC3339 timestamp, a "2006-01-02 15:04:05"
// datetime or a plain date.
func ParseFlexible(s string) (time.Time, error) {
	for _, layout := range []string{ISO8601Format, DateTimeFormat, DateFormat} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// StartOfDay returns midnight of the given day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysSince calculates the number of days between two dates.
func DaysSince(from, to time.Time) int {
	from = StartOfDay(from)
	to = StartOfDay(to)
	return int(to.Sub(from).Hours() / 24)
}

// HumanDuration renders a duration in the largest sensible unit,
// e.g. "45m", "3h", "2d 4h".
func HumanDuration(d time.Duration) string {
	if d < 0 {
		return "-" + HumanDuration(-d)
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		days := int(d.Hours()) / 24
		hours := int(d.Hours()) % 24
		if hours == 0 {
			return fmt.Sprintf("%dd", days)
		}
		return fmt.Sprintf("%dd %dh", days, hours)
	}
}
