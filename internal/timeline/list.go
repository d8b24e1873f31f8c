package timeline

import (
	"iter"
	"slices"
	"time"
)

// List is an ordered container of events. It owns the events stored in it.
//
// A List is not safe for concurrent use. The resource that owns it is
// expected to be planned or reported on by a single goroutine at a time.
type List[P any] struct {
	events []*Event[P]
	seq    uint64
}

// Len returns the number of events.
func (l *List[P]) Len() int { return len(l.events) }

// Insert places an event at the position preserving the sort order and
// recomputes the on-hand values from there on. Inserting an event that
// already belongs to a list panics.
func (l *List[P]) Insert(e *Event[P]) {
	if e.list != nil {
		panic("timeline: event already in a list")
	}
	l.seq++
	e.seq = l.seq
	l.place(e)
}

func (l *List[P]) place(e *Event[P]) {
	e.list = l
	i := l.upperBound(e)
	l.events = slices.Insert(l.events, i, e)
	l.recompute(i)
}

// Erase removes an event from the list. Ownership returns to the caller.
// It reports whether the event was found.
func (l *List[P]) Erase(e *Event[P]) bool {
	if e.list != l {
		return false
	}
	i, found := l.index(e)
	if !found {
		return false
	}
	l.events = slices.Delete(l.events, i, i+1)
	e.list = nil
	l.recompute(i)
	return true
}

// Move changes the date and quantity of an event, repositioning it. The
// event keeps its insertion rank among events with the same date, kind and
// quantity.
func (l *List[P]) Move(e *Event[P], date time.Time, quantity float64) {
	if e.list != l {
		e.date = date
		e.quantity = quantity
		l.Insert(e)
		return
	}
	l.Erase(e)
	e.date = date
	e.quantity = quantity
	l.place(e)
}

// SetValue updates the value of a set-onhand, minimum or maximum event in
// place. The event keeps its position.
func (l *List[P]) SetValue(e *Event[P], value float64) {
	e.value = value
	if e.kind != KindSetOnhand || e.list != l {
		return
	}
	if i, found := l.index(e); found {
		l.recompute(i)
	}
}

// RemoveKind erases every event of the given kind and returns them.
func (l *List[P]) RemoveKind(k Kind) []*Event[P] {
	var removed []*Event[P]
	kept := l.events[:0]
	for _, e := range l.events {
		if e.kind == k {
			e.list = nil
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	clear(l.events[len(kept):])
	l.events = kept
	if len(removed) > 0 {
		l.recompute(0)
	}
	return removed
}

// Count returns the number of events of the given kind.
func (l *List[P]) Count(k Kind) int {
	n := 0
	for _, e := range l.events {
		if e.kind == k {
			n++
		}
	}
	return n
}

// First returns the first event of the given kind, or nil.
func (l *List[P]) First(k Kind) *Event[P] {
	for _, e := range l.events {
		if e.kind == k {
			return e
		}
	}
	return nil
}

// All iterates over the events in order.
func (l *List[P]) All() iter.Seq[*Event[P]] {
	return func(yield func(*Event[P]) bool) {
		for c := l.Begin(); c.Valid(); c.Next() {
			if !yield(c.Event()) {
				return
			}
		}
	}
}

// OnhandAt returns the on-hand value after all events at or before date.
func (l *List[P]) OnhandAt(date time.Time) float64 {
	i := l.afterDate(date)
	if i == 0 {
		return 0
	}
	return l.events[i-1].onhand
}

// MaxAt returns the maximum in effect at date and whether one is set.
func (l *List[P]) MaxAt(date time.Time) (float64, bool) {
	return l.lastValue(KindUpdateMaximum, date)
}

// MinAt returns the minimum in effect at date and whether one is set.
func (l *List[P]) MinAt(date time.Time) (float64, bool) {
	return l.lastValue(KindUpdateMinimum, date)
}

func (l *List[P]) lastValue(k Kind, date time.Time) (float64, bool) {
	for i := l.afterDate(date) - 1; i >= 0; i-- {
		if l.events[i].kind == k {
			return l.events[i].value, true
		}
	}
	return 0, false
}

// recompute refreshes the running on-hand from index i to the end.
func (l *List[P]) recompute(i int) {
	prev := 0.0
	if i > 0 {
		prev = l.events[i-1].onhand
	}
	for _, e := range l.events[i:] {
		switch e.kind {
		case KindSetOnhand:
			e.onhand = e.value
		case KindLoad:
			e.onhand = prev + e.quantity
		case KindUpdateMinimum, KindUpdateMaximum:
			e.onhand = prev
		}
		prev = e.onhand
	}
}

// upperBound returns the index of the first event ordered after e.
func (l *List[P]) upperBound(e *Event[P]) int {
	i, _ := slices.BinarySearchFunc(l.events, e, func(x, target *Event[P]) int {
		if compare(x, target) > 0 {
			return 1
		}
		return -1
	})
	return i
}

// index locates an event stored in the list.
func (l *List[P]) index(e *Event[P]) (int, bool) {
	i, found := slices.BinarySearchFunc(l.events, e, compare[P])
	if found && l.events[i] == e {
		return i, true
	}
	return 0, false
}

// afterDate returns the index of the first event dated after date.
func (l *List[P]) afterDate(date time.Time) int {
	i, _ := slices.BinarySearchFunc(l.events, date, func(x *Event[P], d time.Time) int {
		if x.date.After(d) {
			return 1
		}
		return -1
	})
	return i
}

// atOrAfterDate returns the index of the first event dated at or after date.
func (l *List[P]) atOrAfterDate(date time.Time) int {
	i, _ := slices.BinarySearchFunc(l.events, date, func(x *Event[P], d time.Time) int {
		if x.date.Before(d) {
			return -1
		}
		return 1
	})
	return i
}
