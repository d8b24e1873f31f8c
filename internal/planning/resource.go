package planning

import (
	"log/slog"
	"slices"
	"time"

	"github.com/capledger/capledger/internal/calendar"
	"github.com/capledger/capledger/internal/timeline"
	"github.com/capledger/capledger/internal/util"
)

// Timeline is the event ledger of a resource.
type Timeline = timeline.List[*LoadPlan]

// Event is an entry of a resource timeline.
type Event = timeline.Event[*LoadPlan]

// ResourceKind selects how a resource accounts for capacity.
type ResourceKind string

const (
	// KindDefault resources have a continuous maximum capacity, reported
	// over externally supplied buckets.
	KindDefault ResourceKind = "default"
	// KindInfinite resources are never constrained. They are reported like
	// default resources.
	KindInfinite ResourceKind = "infinite"
	// KindBuckets resources have a capacity per bucket. The buckets are
	// defined by the capacity calendar.
	KindBuckets ResourceKind = "buckets"
)

// Valid reports whether k is a known kind.
func (k ResourceKind) Valid() bool {
	switch k {
	case KindDefault, KindInfinite, KindBuckets:
		return true
	}
	return false
}

// ResourceKinds lists the known kinds.
func ResourceKinds() []ResourceKind {
	return []ResourceKind{KindDefault, KindInfinite, KindBuckets}
}

// Resource is a capacity-bearing entity such as a machine or a labor pool.
type Resource struct {
	name      string
	kind      ResourceKind
	maximum   float64
	maxCal    *calendar.Calendar
	available *calendar.Calendar
	location  *Location
	matrix    *SetupMatrix
	setup     string
	loads     []*Load
	timeline  Timeline
	changed   bool

	// model is nil once the resource is destroyed.
	model *Model
}

func (r *Resource) Name() string                        { return r.name }
func (r *Resource) Kind() ResourceKind                  { return r.kind }
func (r *Resource) Maximum() float64                    { return r.maximum }
func (r *Resource) MaximumCalendar() *calendar.Calendar { return r.maxCal }
func (r *Resource) Available() *calendar.Calendar       { return r.available }
func (r *Resource) Location() *Location                 { return r.location }
func (r *Resource) SetupMatrix() *SetupMatrix           { return r.matrix }
func (r *Resource) Setup() string                       { return r.setup }

// Timeline gives read access to the event ledger. Callers must not insert
// or erase events directly.
func (r *Resource) Timeline() *Timeline { return &r.timeline }

// Loads returns the loads placed on the resource.
func (r *Resource) Loads() []*Load { return slices.Clone(r.loads) }

// Changed reports whether the timeline changed since the last ClearChanged.
func (r *Resource) Changed() bool { return r.changed }

// ClearChanged resets the changed flag once dependents are revalidated.
func (r *Resource) ClearChanged() { r.changed = false }

func (r *Resource) setChanged() { r.changed = true }

// Destroyed reports whether the resource was deleted from its model.
func (r *Resource) Destroyed() bool { return r.model == nil }

// SetAvailable sets the availability calendar. Zero values mark the
// resource unavailable.
func (r *Resource) SetAvailable(c *calendar.Calendar) {
	r.available = c
	r.setChanged()
}

// SetLocation sets the location of the resource.
func (r *Resource) SetLocation(l *Location) {
	r.location = l
	r.setChanged()
}

// SetSetupMatrix sets the changeover rules of the resource.
func (r *Resource) SetSetupMatrix(m *SetupMatrix) {
	r.matrix = m
	r.UpdateSetups(nil)
}

// SetSetup sets the setup state the resource is in before any changeover.
// All changeovers are re-timed from the new state.
func (r *Resource) SetSetup(s string) {
	if s == r.setup {
		return
	}
	r.setup = s
	r.UpdateSetups(nil)
}

// SetMaximum sets the constant maximum capacity. While a capacity
// calendar is assigned the value is only stored, and becomes effective
// when the calendar is removed.
func (r *Resource) SetMaximum(v float64) error {
	if v < 0 {
		return dataErrorf(r.name, "maximum capacity must be non-negative, got %g", v)
	}
	r.maximum = v
	if r.maxCal != nil {
		return nil
	}
	if e := r.timeline.First(timeline.KindUpdateMaximum); e != nil {
		r.timeline.SetValue(e, v)
	} else {
		r.timeline.Insert(timeline.NewUpdateMaximum[*LoadPlan](util.InfinitePast, v))
	}
	r.setChanged()
	return nil
}

// SetMaximumCalendar assigns a time-varying maximum capacity. Only the
// changes in value are stored in the timeline. A nil calendar reverts to
// the constant maximum. Assigning the current calendar again is a no-op.
//
// On bucketized resources the calendar defines the buckets and their
// capacity instead.
func (r *Resource) SetMaximumCalendar(c *calendar.Calendar) {
	if c == r.maxCal {
		return
	}
	kind := timeline.KindUpdateMaximum
	if r.kind == KindBuckets {
		kind = timeline.KindSetOnhand
	}
	r.timeline.RemoveKind(kind)
	r.maxCal = c
	r.setChanged()

	if c == nil {
		if r.kind != KindBuckets {
			// Cannot fail: the stored maximum was validated when set.
			_ = r.SetMaximum(r.maximum)
		}
		return
	}

	n := 0
	cur := 0.0
	for it := calendar.NewEventIterator(c, util.InfinitePast); !it.Done(); it.Next() {
		if it.Value() == cur {
			continue
		}
		cur = it.Value()
		if kind == timeline.KindSetOnhand {
			r.timeline.Insert(timeline.NewSetOnhand[*LoadPlan](it.Date(), cur))
		} else {
			r.timeline.Insert(timeline.NewUpdateMaximum[*LoadPlan](it.Date(), cur))
		}
		n++
	}
	slog.Debug("capacity calendar assigned", "resource", r.name, "calendar", c.Name, "events", n)
}

// DeleteOperationPlans deletes all plans of every operation loading the
// resource. Locked plans are kept unless deleteLocked is set. It returns
// the number of plans deleted.
func (r *Resource) DeleteOperationPlans(deleteLocked bool) int {
	if r.model == nil {
		return 0
	}
	var ops []Operation
	for _, l := range r.loads {
		if !slices.Contains(ops, l.operation) {
			ops = append(ops, l.operation)
		}
	}
	n := 0
	for _, op := range ops {
		n += r.model.deleteOperationPlans(op, deleteLocked)
	}
	r.setChanged()
	return n
}

// destroy releases everything that refers to the resource.
func (r *Resource) destroy() {
	m := r.model
	if m == nil {
		return
	}
	r.DeleteOperationPlans(true)

	// Supplier and distribution records are not tracked by the resource.
	for _, it := range m.items {
		for _, s := range it.suppliers {
			if s.resource == r {
				s.SetResource(nil)
			}
		}
		for _, d := range it.distributions {
			if d.resource == r {
				d.SetResource(nil)
			}
		}
	}

	for _, l := range r.loads {
		m.loads[l.operation] = slices.DeleteFunc(m.loads[l.operation], func(x *Load) bool { return x == l })
		if len(m.loads[l.operation]) == 0 {
			delete(m.loads, l.operation)
		}
	}
	r.loads = nil
	r.model = nil
	slog.Debug("resource destroyed", "resource", r.name)
}

// setupBefore returns the setup state the resource is in at date, ignoring
// the changeovers of plan exclude.
func (r *Resource) setupBefore(exclude *OperationPlan, date time.Time) string {
	setup := r.setup
	for e := range r.timeline.All() {
		if e.Date().After(date) {
			break
		}
		if e.Kind() != timeline.KindLoad || e.Plan == nil {
			continue
		}
		lp := e.Plan
		if lp.start || lp.plan == exclude || !lp.plan.operation.IsChangeover() || lp.load.Setup == "" {
			continue
		}
		setup = lp.load.Setup
	}
	return setup
}

// Inspect logs every timeline event for debugging.
func (r *Resource) Inspect(logger *slog.Logger, msg string) {
	if logger == nil {
		logger = slog.Default()
	}
	if msg == "" {
		msg = "inspecting resource"
	}
	logger.Info(msg, "resource", r.name, "kind", r.kind, "events", r.timeline.Len())
	for e := range r.timeline.All() {
		attrs := []any{
			"date", util.FormatDateTime(e.Date()),
			"type", e.Kind().String(),
			"quantity", e.Quantity(),
			"onhand", e.Onhand(),
		}
		switch e.Kind() {
		case timeline.KindLoad:
			if e.Plan != nil {
				attrs = append(attrs, "operationplan", e.Plan.plan.String(), "start", e.Plan.start)
			}
		default:
			attrs = append(attrs, "value", e.Value())
		}
		logger.Info("  event", attrs...)
	}
}
