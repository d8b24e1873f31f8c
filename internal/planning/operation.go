package planning

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/capledger/capledger/internal/timeline"
	"github.com/capledger/capledger/internal/util"
)

// ChangeoverName is the name of the shared changeover operation.
const ChangeoverName = "setup operation"

// OperationPlanState is the timing of an operation plan.
type OperationPlanState struct {
	Quantity float64
	Start    time.Time
	End      time.Time
}

// Operation computes the timing of its operation plans.
type Operation interface {
	Name() string
	// IsChangeover reports whether this is the changeover operation.
	IsChangeover() bool
	// SetOperationPlanParameters returns the timing the plan would get for
	// the quantity and date bounds. With fixEnd the end date is kept and the
	// start derived from it, otherwise the start is kept. allowShift lets
	// the operation move the plan out of unavailable periods.
	SetOperationPlanParameters(p *OperationPlan, quantity float64, start, end time.Time, fixEnd, allowShift bool) OperationPlanState
}

// FixedTimeOperation takes the same duration regardless of quantity.
type FixedTimeOperation struct {
	name     string
	Duration time.Duration
}

// NewFixedTimeOperation creates an operation with a fixed duration.
func NewFixedTimeOperation(name string, d time.Duration) *FixedTimeOperation {
	return &FixedTimeOperation{name: name, Duration: d}
}

func (o *FixedTimeOperation) Name() string       { return o.name }
func (o *FixedTimeOperation) IsChangeover() bool { return false }

func (o *FixedTimeOperation) SetOperationPlanParameters(_ *OperationPlan, quantity float64, start, end time.Time, fixEnd, _ bool) OperationPlanState {
	return timing(quantity, start, end, o.Duration, fixEnd)
}

// ChangeoverOperation switches a resource from one setup state to another.
// Its duration comes from the setup matrix rule between the state left by
// the previous changeover on the resource and the state its load requires.
type ChangeoverOperation struct {
	name string
}

func (o *ChangeoverOperation) Name() string       { return o.name }
func (o *ChangeoverOperation) IsChangeover() bool { return true }

func (o *ChangeoverOperation) SetOperationPlanParameters(p *OperationPlan, quantity float64, start, end time.Time, fixEnd, _ bool) OperationPlanState {
	return timing(quantity, start, end, changeoverDuration(p, end), fixEnd)
}

func changeoverDuration(p *OperationPlan, end time.Time) time.Duration {
	if p == nil {
		return 0
	}
	for _, lp := range p.loadplans {
		r := lp.Resource()
		if lp.start || lp.load.Setup == "" || r.matrix == nil {
			continue
		}
		from := r.setupBefore(p, end)
		rule, ok := r.matrix.Rule(from, lp.load.Setup)
		if !ok {
			slog.Debug("no changeover rule", "resource", r.name, "from", from, "to", lp.load.Setup)
			return 0
		}
		return rule.Duration
	}
	return 0
}

// timing pins one side of the interval and derives the other.
func timing(quantity float64, start, end time.Time, d time.Duration, fixEnd bool) OperationPlanState {
	if fixEnd || util.IsInfinitePast(start) || start.IsZero() {
		return OperationPlanState{Quantity: quantity, Start: end.Add(-d), End: end}
	}
	return OperationPlanState{Quantity: quantity, Start: start, End: start.Add(d)}
}

// Load is the association between an operation and a resource.
type Load struct {
	operation Operation
	resource  *Resource
	// Quantity is the capacity consumed per unit of the operation plan on
	// bucketized resources, and the consumption rate on continuous ones.
	Quantity float64
	// Setup is the setup state the resource must be in.
	Setup string
}

func (l *Load) Operation() Operation { return l.operation }
func (l *Load) Resource() *Resource  { return l.resource }

// LoadPlan is the capacity consumption of one operation plan on one
// resource at one instant. Each plan has a start and an end load plan per
// load, and each owns one event in the resource timeline.
type LoadPlan struct {
	plan  *OperationPlan
	load  *Load
	start bool
	event *timeline.Event[*LoadPlan]
}

func (lp *LoadPlan) OperationPlan() *OperationPlan { return lp.plan }
func (lp *LoadPlan) Load() *Load                   { return lp.load }
func (lp *LoadPlan) Resource() *Resource           { return lp.load.resource }

// IsStart reports whether this load plan marks the start of the plan.
func (lp *LoadPlan) IsStart() bool { return lp.start }

// Date returns the date of the timeline event.
func (lp *LoadPlan) Date() time.Time { return lp.event.Date() }

// Quantity returns the signed quantity of the timeline event.
func (lp *LoadPlan) Quantity() float64 { return lp.event.Quantity() }

// eventFor computes the date and quantity of the load plan event.
func (lp *LoadPlan) eventFor(p *OperationPlan) (time.Time, float64) {
	r := lp.load.resource
	if lp.start {
		if r.kind == KindBuckets {
			return p.start, -lp.load.Quantity * p.quantity
		}
		return p.start, lp.load.Quantity
	}
	if r.kind == KindBuckets {
		return p.end, 0
	}
	return p.end, -lp.load.Quantity
}

// OperationPlan is an instance of an operation with a quantity and dates.
type OperationPlan struct {
	id        string
	operation Operation
	quantity  float64
	start     time.Time
	end       time.Time
	locked    bool
	loadplans []*LoadPlan
}

func (p *OperationPlan) Identifier() string   { return p.id }
func (p *OperationPlan) Operation() Operation { return p.operation }
func (p *OperationPlan) Quantity() float64    { return p.quantity }
func (p *OperationPlan) Start() time.Time     { return p.start }
func (p *OperationPlan) End() time.Time       { return p.end }
func (p *OperationPlan) Locked() bool         { return p.locked }

// SetLocked marks the plan as fixed. Locked plans survive
// Resource.DeleteOperationPlans(false).
func (p *OperationPlan) SetLocked(b bool) { p.locked = b }

// Dates returns start and end.
func (p *OperationPlan) Dates() (time.Time, time.Time) { return p.start, p.end }

// LoadPlans returns the load plans of the operation plan.
func (p *OperationPlan) LoadPlans() []*LoadPlan {
	out := make([]*LoadPlan, len(p.loadplans))
	copy(out, p.loadplans)
	return out
}

// Setup returns the setup state this plan puts its resource in, if any.
func (p *OperationPlan) Setup() string {
	for _, lp := range p.loadplans {
		if lp.load.Setup != "" {
			return lp.load.Setup
		}
	}
	return ""
}

func (p *OperationPlan) String() string {
	return fmt.Sprintf("%s %s qty:%g %s - %s", p.operation.Name(), p.id, p.quantity,
		util.FormatDateTime(p.start), util.FormatDateTime(p.end))
}

func (p *OperationPlan) addLoadPlans(l *Load) {
	for _, start := range []bool{true, false} {
		lp := &LoadPlan{plan: p, load: l, start: start}
		date, qty := lp.eventFor(p)
		lp.event = timeline.NewLoad(date, qty, lp)
		l.resource.timeline.Insert(lp.event)
		l.resource.setChanged()
		p.loadplans = append(p.loadplans, lp)
	}
}

// Restore applies a new timing to the plan and moves its timeline events.
// It is the only path that changes the timing of an existing plan. When a
// changeover plan moves, later changeovers on the same resources are
// re-timed. It reports whether anything changed.
func (p *OperationPlan) Restore(s OperationPlanState) bool {
	if s.Quantity == p.quantity && s.Start.Equal(p.start) && s.End.Equal(p.end) {
		return false
	}
	p.quantity, p.start, p.end = s.Quantity, s.Start, s.End
	for _, lp := range p.loadplans {
		r := lp.Resource()
		date, qty := lp.eventFor(p)
		r.timeline.Move(lp.event, date, qty)
		r.setChanged()
	}
	if p.operation.IsChangeover() {
		slog.Debug("changeover re-timed", "plan", p.id, "start", p.start, "end", p.end)
		for _, lp := range p.loadplans {
			if !lp.start {
				lp.Resource().UpdateSetups(lp)
			}
		}
	}
	return true
}
