package planning

import (
	"github.com/capledger/capledger/internal/timeline"
	"github.com/capledger/capledger/internal/util"
)

// UpdateSetups re-times the changeovers following trigger, the end load
// plan of a changeover whose timing changed. With a nil trigger every
// changeover on the resource is re-timed from the current setup state.
//
// Each changeover keeps its end date and gets its start recomputed. When
// triggered by a specific changeover, the scan stops at the first
// changeover whose start does not move, since the ones after it cannot
// move either.
func (r *Resource) UpdateSetups(trigger *LoadPlan) {
	if r.matrix == nil {
		return
	}
	var exclude *OperationPlan
	var c *timeline.Cursor[*LoadPlan]
	if trigger != nil {
		if !trigger.plan.operation.IsChangeover() {
			return
		}
		exclude = trigger.plan
		c = r.timeline.After(trigger.event)
	} else {
		c = r.timeline.Begin()
	}

	for ; c.Valid(); c.Next() {
		e := c.Event()
		if e.Kind() != timeline.KindLoad || e.Plan == nil {
			continue
		}
		lp := e.Plan
		p := lp.plan
		if lp.load.Setup == "" || !p.operation.IsChangeover() || p == exclude || lp.start {
			continue
		}
		s := p.operation.SetOperationPlanParameters(p, p.quantity, util.InfinitePast, p.end, true, false)
		if !s.Start.Equal(p.start) {
			p.Restore(s)
		} else if trigger != nil {
			return
		}
	}
}
