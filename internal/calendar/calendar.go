// Package calendar implements time-indexed step functions.
//
// A Calendar is an ordered list of breakpoints. Each breakpoint sets the
// calendar value from its date until the next breakpoint; before the first
// breakpoint the default value applies. Resources use calendars for their
// time-varying maximum capacity and for availability (non-zero = available).
package calendar

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/capledger/capledger/internal/util"
)

// ErrUnordered is returned when breakpoints are not strictly ascending.
var ErrUnordered = errors.New("calendar breakpoints must be strictly ascending")

// Breakpoint is a single step of a calendar.
type Breakpoint struct {
	Date  time.Time
	Value float64
}

// Calendar is a step function over time.
type Calendar struct {
	Name    string
	Default float64

	points []Breakpoint
}

// New creates a calendar from breakpoints. The breakpoints are sorted by
// date; duplicate dates are rejected.
func New(name string, def float64, points ...Breakpoint) (*Calendar, error) {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b Breakpoint) int {
		return a.Date.Compare(b.Date)
	})
	for i := 1; i < len(sorted); i++ {
		if !sorted[i].Date.After(sorted[i-1].Date) {
			return nil, fmt.Errorf("calendar %s: %w: duplicate date %s",
				name, ErrUnordered, util.FormatDateTime(sorted[i].Date))
		}
	}
	return &Calendar{Name: name, Default: def, points: sorted}, nil
}

// MustNew is like New but panics on invalid input. Intended for fixtures.
func MustNew(name string, def float64, points ...Breakpoint) *Calendar {
	c, err := New(name, def, points...)
	if err != nil {
		panic(err)
	}
	return c
}

// SetValue adds a breakpoint, or updates the value of an existing
// breakpoint at the same date.
func (c *Calendar) SetValue(date time.Time, value float64) {
	i, found := slices.BinarySearchFunc(c.points, date, func(p Breakpoint, d time.Time) int {
		return p.Date.Compare(d)
	})
	if found {
		c.points[i].Value = value
		return
	}
	c.points = slices.Insert(c.points, i, Breakpoint{Date: date, Value: value})
}

// Breakpoints returns a copy of the calendar breakpoints in date order.
func (c *Calendar) Breakpoints() []Breakpoint {
	return slices.Clone(c.points)
}

// Len returns the number of breakpoints.
func (c *Calendar) Len() int {
	return len(c.points)
}

// Value returns the calendar value in effect at the given date.
func (c *Calendar) Value(date time.Time) float64 {
	i := c.after(date)
	if i == 0 {
		return c.Default
	}
	return c.points[i-1].Value
}

// after returns the index of the first breakpoint strictly after date.
func (c *Calendar) after(date time.Time) int {
	i, _ := slices.BinarySearchFunc(c.points, date, func(p Breakpoint, d time.Time) int {
		if p.Date.After(d) {
			return 1
		}
		return -1
	})
	return i
}

// Events returns an iterator positioned at the given date.
func (c *Calendar) Events(from time.Time) *EventIterator {
	return NewEventIterator(c, from)
}
