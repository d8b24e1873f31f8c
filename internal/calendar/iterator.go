package calendar

import (
	"time"

	"github.com/capledger/capledger/internal/util"
)

// EventIterator walks the breakpoints of a calendar in ascending date order.
//
// The first position is the start date itself, carrying the value in effect
// there. Every following position is a breakpoint strictly after the start
// date. Once the breakpoints are exhausted the iterator parks at
// util.InfiniteFuture. Each instantiation is independent; create a new one
// to restart.
//
// A nil calendar yields an iterator for which Calendar() returns nil.
type EventIterator struct {
	cal   *Calendar
	date  time.Time
	value float64
	next  int
}

// NewEventIterator creates an iterator over cal positioned at from.
func NewEventIterator(cal *Calendar, from time.Time) *EventIterator {
	it := &EventIterator{cal: cal, date: from}
	if cal == nil {
		it.date = util.InfiniteFuture
		return it
	}
	it.value = cal.Value(from)
	it.next = cal.after(from)
	return it
}

// Calendar returns the calendar being iterated, or nil.
func (it *EventIterator) Calendar() *Calendar {
	if it == nil {
		return nil
	}
	return it.cal
}

// Date returns the date of the current position.
func (it *EventIterator) Date() time.Time {
	return it.date
}

// Value returns the calendar value effective from the current date.
func (it *EventIterator) Value() float64 {
	return it.value
}

// Next advances to the next breakpoint.
func (it *EventIterator) Next() {
	if it.cal == nil {
		return
	}
	if it.next >= len(it.cal.points) {
		it.date = util.InfiniteFuture
		it.value = it.cal.Value(util.InfiniteFuture)
		return
	}
	p := it.cal.points[it.next]
	it.next++
	it.date = p.Date
	it.value = p.Value
}

// Done reports whether the iterator reached util.InfiniteFuture.
func (it *EventIterator) Done() bool {
	return util.IsInfiniteFuture(it.date)
}
