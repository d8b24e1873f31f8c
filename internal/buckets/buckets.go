// Package buckets generates the time bucket boundaries of capacity reports.
package buckets

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"
)

// Type is a bucket granularity.
type Type string

const (
	// Standard uses days for the first two weeks of the horizon, weeks up
	// to three months, and months beyond.
	Standard Type = "standard"
	Day      Type = "day"
	Week     Type = "week"
	Month    Type = "month"
	Quarter  Type = "quarter"
	Year     Type = "year"
)

const (
	standardDays  = 14
	standardWeeks = 91
)

// Types returns all bucket types from finest to coarsest.
func Types() []Type {
	return []Type{Standard, Day, Week, Month, Quarter, Year}
}

// Valid reports whether t is a known bucket type.
func (t Type) Valid() bool {
	return slices.Contains(Types(), t)
}

// ParseType parses a bucket type name, ignoring case.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown bucket type %q", s)
	}
	return t, nil
}

// ParseWeekday parses an English weekday name such as "monday".
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Boundaries returns the bucket boundaries between start and end: start
// itself, every bucket edge strictly in between, and end. Weekly buckets
// begin on weekStart.
func Boundaries(t Type, start, end time.Time, weekStart time.Weekday) (iter.Seq[time.Time], error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown bucket type %q", t)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("bucket end %s must be after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return func(yield func(time.Time) bool) {
		if !yield(start) {
			return
		}
		for d := next(t, start, start, weekStart); d.Before(end); d = next(t, start, d, weekStart) {
			if !yield(d) {
				return
			}
		}
		yield(end)
	}, nil
}

// List is like Boundaries but collects the dates.
func List(t Type, start, end time.Time, weekStart time.Weekday) ([]time.Time, error) {
	seq, err := Boundaries(t, start, end, weekStart)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// next returns the first bucket edge strictly after d.
func next(t Type, origin, d time.Time, weekStart time.Weekday) time.Time {
	if t == Standard {
		switch {
		case d.Before(origin.AddDate(0, 0, standardDays)):
			t = Day
		case d.Before(origin.AddDate(0, 0, standardWeeks)):
			t = Week
		default:
			t = Month
		}
	}
	loc := d.Location()
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	switch t {
	case Day:
		return day.AddDate(0, 0, 1)
	case Week:
		n := (int(weekStart) - int(day.Weekday()) + 7) % 7
		if n == 0 {
			n = 7
		}
		return day.AddDate(0, 0, n)
	case Month:
		return time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, loc)
	case Quarter:
		q := (int(d.Month()) - 1) / 3
		return time.Date(d.Year(), time.Month(q*3+4), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(d.Year()+1, time.January, 1, 0, 0, 0, 0, loc)
	}
}

// Label returns a short display name for the bucket starting at start.
func Label(t Type, start time.Time) string {
	switch t {
	case Week:
		y, w := start.ISOWeek()
		return fmt.Sprintf("%d W%02d", y, w)
	case Month:
		return start.Format("2006-01")
	case Quarter:
		return fmt.Sprintf("%d Q%d", start.Year(), (int(start.Month())-1)/3+1)
	case Year:
		return start.Format("2006")
	default:
		return start.Format("2006-01-02")
	}
}
