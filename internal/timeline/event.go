// Package timeline implements the ordered capacity event ledger of a resource.
//
// Events are kept sorted by (date, kind priority). Load events at the same
// instant are further ordered by quantity, so releases apply before new
// consumption, and finally by insertion order. Every event carries the
// running on-hand value after it has been applied.
package timeline

import (
	"fmt"
	"time"
)

// Kind identifies one of the four event variants.
type Kind uint8

const (
	// KindLoad consumes (positive quantity) or releases (negative) capacity
	// on behalf of an operation plan.
	KindLoad Kind = iota + 1
	// KindSetOnhand resets the on-hand value to an absolute quantity.
	KindSetOnhand
	// KindUpdateMinimum changes the minimum from its date onwards.
	KindUpdateMinimum
	// KindUpdateMaximum changes the maximum from its date onwards.
	KindUpdateMaximum
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindSetOnhand:
		return "set-onhand"
	case KindUpdateMinimum:
		return "update-minimum"
	case KindUpdateMaximum:
		return "update-maximum"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// priority orders kinds at an identical instant.
func (k Kind) priority() int {
	switch k {
	case KindSetOnhand:
		return 0
	case KindUpdateMaximum:
		return 1
	case KindUpdateMinimum:
		return 2
	default:
		return 3
	}
}

// Event is a single entry of a List. P is the payload attached to load
// events, typically the load plan that owns the event.
type Event[P any] struct {
	kind     Kind
	date     time.Time
	quantity float64
	value    float64
	onhand   float64

	seq  uint64
	list *List[P]

	// Plan is the owner of a load event. Unused for the other kinds.
	Plan P
}

// NewLoad creates a load event.
func NewLoad[P any](date time.Time, quantity float64, plan P) *Event[P] {
	return &Event[P]{kind: KindLoad, date: date, quantity: quantity, Plan: plan}
}

// NewSetOnhand creates an event resetting the on-hand value.
func NewSetOnhand[P any](date time.Time, value float64) *Event[P] {
	return &Event[P]{kind: KindSetOnhand, date: date, value: value}
}

// NewUpdateMinimum creates an event changing the minimum.
func NewUpdateMinimum[P any](date time.Time, value float64) *Event[P] {
	return &Event[P]{kind: KindUpdateMinimum, date: date, value: value}
}

// NewUpdateMaximum creates an event changing the maximum.
func NewUpdateMaximum[P any](date time.Time, value float64) *Event[P] {
	return &Event[P]{kind: KindUpdateMaximum, date: date, value: value}
}

// Kind returns the event variant.
func (e *Event[P]) Kind() Kind { return e.kind }

// Date returns the event date.
func (e *Event[P]) Date() time.Time { return e.date }

// Quantity returns the signed quantity of a load event, zero otherwise.
func (e *Event[P]) Quantity() float64 { return e.quantity }

// Value returns the absolute value carried by set-onhand, minimum and
// maximum events, zero for loads.
func (e *Event[P]) Value() float64 { return e.value }

// Onhand returns the running on-hand value after this event.
func (e *Event[P]) Onhand() float64 { return e.onhand }

// InList reports whether the event is currently stored in a list.
func (e *Event[P]) InList() bool { return e.list != nil }

func (e *Event[P]) String() string {
	switch e.kind {
	case KindLoad:
		return fmt.Sprintf("%s %s qty:%g oh:%g", e.date.Format(time.RFC3339), e.kind, e.quantity, e.onhand)
	default:
		return fmt.Sprintf("%s %s value:%g oh:%g", e.date.Format(time.RFC3339), e.kind, e.value, e.onhand)
	}
}

// compare orders events by date, kind priority, load quantity and
// insertion sequence.
func compare[P any](a, b *Event[P]) int {
	if c := a.date.Compare(b.date); c != 0 {
		return c
	}
	if pa, pb := a.kind.priority(), b.kind.priority(); pa != pb {
		if pa < pb {
			return -1
		}
		return 1
	}
	if a.kind == KindLoad && a.quantity != b.quantity {
		if a.quantity < b.quantity {
			return -1
		}
		return 1
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}
