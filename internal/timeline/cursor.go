package timeline

import "time"

// Cursor is a forward iterator over a List.
//
// A cursor remembers the event it points at rather than a slice index, so
// it stays valid when other events are inserted or erased while iterating.
// If the current event itself is moved, iteration continues after its new
// position.
type Cursor[P any] struct {
	list *List[P]
	cur  *Event[P]
}

// Begin returns a cursor at the first event.
func (l *List[P]) Begin() *Cursor[P] {
	c := &Cursor[P]{list: l}
	if len(l.events) > 0 {
		c.cur = l.events[0]
	}
	return c
}

// At returns a cursor positioned at the given event.
func (l *List[P]) At(e *Event[P]) *Cursor[P] {
	return &Cursor[P]{list: l, cur: e}
}

// After returns a cursor positioned at the first event ordered after e.
func (l *List[P]) After(e *Event[P]) *Cursor[P] {
	c := l.At(e)
	c.Next()
	return c
}

// FromDate returns a cursor at the first event dated at or after date.
func (l *List[P]) FromDate(date time.Time) *Cursor[P] {
	c := &Cursor[P]{list: l}
	if i := l.atOrAfterDate(date); i < len(l.events) {
		c.cur = l.events[i]
	}
	return c
}

// Valid reports whether the cursor points at an event.
func (c *Cursor[P]) Valid() bool { return c.cur != nil }

// Event returns the current event, or nil at the end.
func (c *Cursor[P]) Event() *Event[P] { return c.cur }

// Next advances to the following event.
func (c *Cursor[P]) Next() {
	if c.cur == nil {
		return
	}
	i := c.list.upperBound(c.cur)
	if i >= len(c.list.events) {
		c.cur = nil
		return
	}
	c.cur = c.list.events[i]
}
