package planning

import (
	"iter"
	"time"

	"github.com/capledger/capledger/internal/calendar"
	"github.com/capledger/capledger/internal/timeline"
	"github.com/capledger/capledger/internal/util"
)

// Bucket is the capacity report of a resource over one time bucket. The
// figures of continuous resources are in capacity-hours.
type Bucket struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Available   float64   `json:"available"`
	Load        float64   `json:"load"`
	Unavailable float64   `json:"unavailable"`
	Setup       float64   `json:"setup"`
	Free        float64   `json:"free"`
}

// PlanIterator produces the capacity report of a resource bucket by
// bucket. It is single pass. The resource must not be modified or
// destroyed while the iterator is in use.
//
// Usage follows bufio.Scanner:
//
//	it, err := planning.Plan(r, boundaries)
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//		b := it.Bucket()
//	}
//	if err := it.Err(); err != nil { ... }
type PlanIterator struct {
	res        *Resource
	bucketized bool
	cursor     *timeline.Cursor[*LoadPlan]

	nextBoundary func() (time.Time, bool)
	stop         func()
	pending      *time.Time

	resIter *calendar.EventIterator
	locIter *calendar.EventIterator

	curDate   time.Time
	prevDate  time.Time
	prevValue bool

	curSize  float64
	curLoad  float64
	curSetup float64

	available   float64
	load        float64
	unavailable float64
	setup       float64

	bucket Bucket
	err    error
	done   bool
}

// Plan returns the capacity report of a resource. Continuous resources are
// reported over the buckets between consecutive boundaries, which must
// hold at least two dates. Bucketized resources report their own buckets
// and ignore boundaries.
func Plan(r *Resource, boundaries iter.Seq[time.Time]) (*PlanIterator, error) {
	if r == nil {
		return nil, logicErrorf("capacity report requested for a nil resource")
	}
	if r.Destroyed() {
		return nil, logicErrorf("capacity report requested for destroyed resource %q", r.name)
	}
	it := &PlanIterator{res: r}

	if r.kind == KindBuckets {
		it.bucketized = true
		it.cursor = r.timeline.Begin()
		for it.cursor.Valid() && it.cursor.Event().Kind() != timeline.KindSetOnhand {
			it.cursor.Next()
		}
		return it, nil
	}

	if boundaries == nil {
		return nil, logicErrorf("resource %q needs bucket boundaries", r.name)
	}
	it.nextBoundary, it.stop = iter.Pull(boundaries)
	first, ok := it.nextBoundary()
	if !ok {
		it.Close()
		return nil, logicErrorf("bucket boundaries must hold at least two dates")
	}
	second, ok := it.nextBoundary()
	if !ok {
		it.Close()
		return nil, logicErrorf("bucket boundaries must hold at least two dates")
	}
	it.pending = &second

	it.curDate = first
	it.prevDate = first
	it.prevValue = true
	if r.location != nil && r.location.Available != nil {
		it.locIter = calendar.NewEventIterator(r.location.Available, first)
		it.prevValue = r.location.Available.Value(first) != 0
	}
	if r.available != nil {
		it.resIter = calendar.NewEventIterator(r.available, first)
		if r.available.Value(first) == 0 {
			it.prevValue = false
		}
	}

	it.cursor = r.timeline.Begin()
	for it.cursor.Valid() && !it.cursor.Event().Date().After(first) {
		it.apply(it.cursor.Event())
		it.cursor.Next()
	}
	return it, nil
}

// Plan is shorthand for the package level Plan.
func (r *Resource) Plan(boundaries iter.Seq[time.Time]) (*PlanIterator, error) {
	return Plan(r, boundaries)
}

// Next computes the next bucket. It returns false when the report is
// complete or an error occurred.
func (it *PlanIterator) Next() bool {
	if it.done {
		return false
	}
	if it.bucketized {
		return it.nextBucketized()
	}
	return it.nextContinuous()
}

// Bucket returns the bucket computed by the last call to Next.
func (it *PlanIterator) Bucket() Bucket { return it.bucket }

// Err returns the error that stopped the iteration, if any.
func (it *PlanIterator) Err() error { return it.err }

// Close releases the boundary sequence. It is safe to call more than once.
func (it *PlanIterator) Close() {
	it.done = true
	if it.stop != nil {
		it.stop()
		it.stop = nil
	}
}

// All adapts the iterator to a range-over-func sequence. Check Err after
// the loop.
func (it *PlanIterator) All() iter.Seq[Bucket] {
	return func(yield func(Bucket) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.Bucket()) {
				return
			}
		}
	}
}

func (it *PlanIterator) fail(err error) bool {
	it.err = err
	it.Close()
	return false
}

func (it *PlanIterator) nextBucketized() bool {
	if !it.cursor.Valid() {
		it.Close()
		return false
	}
	e := it.cursor.Event()
	b := Bucket{Start: e.Date(), Available: e.Onhand(), End: util.InfiniteFuture}
	for it.cursor.Next(); it.cursor.Valid(); it.cursor.Next() {
		e = it.cursor.Event()
		if e.Kind() == timeline.KindSetOnhand {
			b.End = e.Date()
			break
		}
		if e.Kind() == timeline.KindLoad {
			b.Load -= e.Quantity()
		}
	}
	b.Free = b.Available - b.Load
	it.bucket = b
	return true
}

func (it *PlanIterator) nextContinuous() bool {
	var end time.Time
	if it.pending != nil {
		end = *it.pending
		it.pending = nil
	} else {
		var ok bool
		if end, ok = it.nextBoundary(); !ok {
			it.Close()
			return false
		}
	}
	start := it.curDate
	if end.Before(start) {
		return it.fail(logicErrorf("bucket boundary %s before %s",
			util.FormatDateTime(end), util.FormatDateTime(start)))
	}
	it.curDate = end

	for it.cursor.Valid() && !it.cursor.Event().Date().After(end) {
		e := it.cursor.Event()
		if err := it.update(e.Date()); err != nil {
			return it.fail(err)
		}
		it.apply(e)
		it.cursor.Next()
	}
	if err := it.update(end); err != nil {
		return it.fail(err)
	}

	b := Bucket{
		Start:       start,
		End:         end,
		Available:   it.available / 3600,
		Load:        it.load / 3600,
		Unavailable: it.unavailable / 3600,
		Setup:       it.setup / 3600,
	}
	b.Free = b.Available - b.Load - b.Setup
	it.bucket = b
	it.available, it.load, it.unavailable, it.setup = 0, 0, 0, 0
	return true
}

// apply folds a timeline event into the running state.
func (it *PlanIterator) apply(e *Event) {
	switch e.Kind() {
	case timeline.KindUpdateMaximum:
		it.curSize = e.Value()
	case timeline.KindLoad:
		if e.Plan != nil && e.Plan.plan.operation.IsChangeover() {
			if e.Quantity() < 0 {
				it.curSetup = 0
			} else {
				it.curSetup = it.curSize
			}
		} else {
			it.curLoad = e.Onhand()
		}
	}
}

// update integrates the running state from the previous checkpoint up to
// till, splitting the time into available and unavailable periods along
// the breakpoints of the resource and location calendars.
func (it *PlanIterator) update(till time.Time) error {
	if it.resIter == nil && it.locIter == nil {
		it.accumulate(true, util.Seconds(it.prevDate, till))
		it.prevDate = till
		return nil
	}
	for {
		next, ok := it.pendingBreakpoint(till)
		if !ok {
			break
		}
		it.accumulate(it.prevValue, util.Seconds(it.prevDate, next))
		advanced := false
		if it.resIter != nil && !it.resIter.Done() && it.resIter.Date().Equal(next) {
			it.resIter.Next()
			advanced = true
		}
		if it.locIter != nil && !it.locIter.Done() && it.locIter.Date().Equal(next) {
			it.locIter.Next()
			advanced = true
		}
		if !advanced {
			return logicErrorf("availability calendars of %q did not advance at %s",
				it.res.name, util.FormatDateTime(next))
		}
		it.prevDate = next
		it.prevValue = it.availableAt(next)
	}
	it.accumulate(it.prevValue, util.Seconds(it.prevDate, till))
	it.prevDate = till
	return nil
}

// pendingBreakpoint returns the earliest calendar position not after till.
func (it *PlanIterator) pendingBreakpoint(till time.Time) (time.Time, bool) {
	var next time.Time
	found := false
	for _, ci := range []*calendar.EventIterator{it.resIter, it.locIter} {
		if ci == nil || ci.Done() || ci.Date().After(till) {
			continue
		}
		if !found || ci.Date().Before(next) {
			next, found = ci.Date(), true
		}
	}
	return next, found
}

// availableAt reports whether every present calendar is non-zero at date.
func (it *PlanIterator) availableAt(date time.Time) bool {
	if it.resIter != nil && it.resIter.Calendar().Value(date) == 0 {
		return false
	}
	if it.locIter != nil && it.locIter.Calendar().Value(date) == 0 {
		return false
	}
	return true
}

func (it *PlanIterator) accumulate(available bool, seconds int64) {
	if seconds <= 0 {
		return
	}
	d := float64(seconds)
	if available {
		it.available += it.curSize * d
		it.load += it.curLoad * d
		it.setup += it.curSetup * d
	} else {
		it.unavailable += it.curSize * d
	}
}
