package planning

import (
	"slices"
	"testing"
	"time"
)

// scriptedChangeover is a changeover operation whose recomputed start
// dates are set by the test. Plans without a scripted start keep theirs.
type scriptedChangeover struct {
	starts map[string]time.Time
	asked  []string
}

func (o *scriptedChangeover) Name() string       { return "scripted changeover" }
func (o *scriptedChangeover) IsChangeover() bool { return true }

func (o *scriptedChangeover) SetOperationPlanParameters(p *OperationPlan, quantity float64, _, end time.Time, _, _ bool) OperationPlanState {
	o.asked = append(o.asked, p.Identifier())
	start, ok := o.starts[p.Identifier()]
	if !ok {
		start = p.Start()
	}
	return OperationPlanState{Quantity: quantity, Start: start, End: end}
}

type chain struct {
	model *Model
	res   *Resource
	op    *scriptedChangeover
	plans []*OperationPlan
}

// newChain plans three changeovers on one resource, one hour each, ending
// at hours 2, 4 and 6.
func newChain(t *testing.T) *chain {
	t.Helper()
	m := NewModel()
	r := newResource(t, m, "filler", KindDefault)
	r.SetSetupMatrix(NewSetupMatrix("colors"))
	op := &scriptedChangeover{starts: map[string]time.Time{}}
	if err := m.AddOperation(op); err != nil {
		t.Fatal(err)
	}
	l, err := m.AddLoad(op, r, 1, "red")
	if err != nil {
		t.Fatal(err)
	}
	c := &chain{model: m, res: r, op: op}
	for i, id := range []string{"A", "B", "C"} {
		end := hour(2 * (i + 1))
		p, err := m.CreateOperationPlan(PlanInput{
			ID: id, Operation: op, Quantity: 1,
			Start: end.Add(-time.Hour), End: end,
			Loads: []*Load{l},
		})
		if err != nil {
			t.Fatalf("CreateOperationPlan(%s) error = %v", id, err)
		}
		c.plans = append(c.plans, p)
	}
	op.asked = nil
	return c
}

func endLoadPlan(p *OperationPlan) *LoadPlan {
	for _, lp := range p.LoadPlans() {
		if !lp.IsStart() {
			return lp
		}
	}
	return nil
}

func TestUpdateSetups_StopsAtFirstStableChangeover(t *testing.T) {
	c := newChain(t)
	a, b, cc := c.plans[0], c.plans[1], c.plans[2]

	// B is stable; C would move if it were ever recomputed.
	c.op.starts["C"] = hour(5).Add(-30 * time.Minute)

	a.Restore(OperationPlanState{Quantity: 1, Start: hour(0), End: hour(2)})

	if !a.Start().Equal(hour(0)) {
		t.Fatalf("A start = %v, want %v", a.Start(), hour(0))
	}
	if !b.Start().Equal(hour(3)) {
		t.Errorf("B start = %v, want unchanged %v", b.Start(), hour(3))
	}
	if !cc.Start().Equal(hour(5)) {
		t.Errorf("C start = %v, want unchanged %v", cc.Start(), hour(5))
	}
	if slices.Contains(c.op.asked, "C") {
		t.Errorf("cascade recomputed C after stable B: asked %v", c.op.asked)
	}
}

func TestUpdateSetups_PropagatesChanges(t *testing.T) {
	c := newChain(t)
	b, cc := c.plans[1], c.plans[2]
	c.op.starts["B"] = hour(3).Add(30 * time.Minute)
	c.op.starts["C"] = hour(5).Add(30 * time.Minute)

	c.res.UpdateSetups(endLoadPlan(c.plans[0]))

	if !b.Start().Equal(hour(3).Add(30 * time.Minute)) {
		t.Errorf("B start = %v, want moved", b.Start())
	}
	if !cc.Start().Equal(hour(5).Add(30 * time.Minute)) {
		t.Errorf("C start = %v, want moved", cc.Start())
	}
	for _, lp := range cc.LoadPlans() {
		if lp.IsStart() && !lp.Date().Equal(cc.Start()) {
			t.Errorf("C start event at %v, want %v", lp.Date(), cc.Start())
		}
	}
}

func TestUpdateSetups_UnconditionalScansAll(t *testing.T) {
	c := newChain(t)
	cc := c.plans[2]
	c.op.starts["C"] = hour(4).Add(30 * time.Minute)

	c.res.UpdateSetups(nil)

	if !cc.Start().Equal(hour(4).Add(30 * time.Minute)) {
		t.Errorf("C start = %v, want re-timed despite stable A and B", cc.Start())
	}
}

func TestUpdateSetups_NoOps(t *testing.T) {
	t.Run("No matrix", func(t *testing.T) {
		c := newChain(t)
		c.res.SetSetupMatrix(nil)
		c.op.starts["B"] = hour(1)
		c.res.UpdateSetups(endLoadPlan(c.plans[0]))
		if len(c.op.asked) != 0 {
			t.Errorf("operation consulted without a setup matrix: %v", c.op.asked)
		}
	})

	t.Run("Trigger is not a changeover", func(t *testing.T) {
		c := newChain(t)
		op := NewFixedTimeOperation("fill", time.Hour)
		if err := c.model.AddOperation(op); err != nil {
			t.Fatal(err)
		}
		if _, err := c.model.AddLoad(op, c.res, 1, ""); err != nil {
			t.Fatal(err)
		}
		p, err := c.model.CreateOperationPlan(PlanInput{Operation: op, Quantity: 1, Start: hour(0)})
		if err != nil {
			t.Fatal(err)
		}
		c.op.starts["B"] = hour(1)
		c.res.UpdateSetups(endLoadPlan(p))
		if len(c.op.asked) != 0 {
			t.Errorf("cascade ran for a regular operation: %v", c.op.asked)
		}
	})
}

func TestChangeoverOperation_MatrixDurations(t *testing.T) {
	m := NewModel()
	r := newResource(t, m, "extruder", KindDefault)
	if err := r.SetMaximum(1); err != nil {
		t.Fatal(err)
	}
	r.SetSetup("X")
	r.SetSetupMatrix(NewSetupMatrix("dies",
		SetupRule{From: "X", To: "Y", Duration: 2 * time.Hour, Priority: 1},
		SetupRule{From: "Y", To: "X", Duration: time.Hour, Priority: 2},
		SetupRule{From: "Z", To: "Y", Duration: 3 * time.Hour, Priority: 3},
	))
	co := m.Changeover()
	toY, err := m.AddLoad(co, r, 1, "Y")
	if err != nil {
		t.Fatal(err)
	}
	toX, err := m.AddLoad(co, r, 1, "X")
	if err != nil {
		t.Fatal(err)
	}

	a, err := m.CreateOperationPlan(PlanInput{Operation: co, Quantity: 1, End: hour(10), Loads: []*Load{toY}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.CreateOperationPlan(PlanInput{Operation: co, Quantity: 1, End: hour(14), Loads: []*Load{toX}})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Start().Equal(hour(8)) {
		t.Errorf("X->Y changeover start = %v, want %v", a.Start(), hour(8))
	}
	if !b.Start().Equal(hour(13)) {
		t.Errorf("Y->X changeover start = %v, want %v", b.Start(), hour(13))
	}

	r.SetSetup("Z")
	if !a.Start().Equal(hour(7)) {
		t.Errorf("after SetSetup(Z) first changeover start = %v, want %v", a.Start(), hour(7))
	}
	if !b.Start().Equal(hour(13)) {
		t.Errorf("after SetSetup(Z) second changeover start = %v, want %v", b.Start(), hour(13))
	}

	it, err := Plan(r, boundaries(hour(0), hour(16)))
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()
	if !it.Next() {
		t.Fatalf("Next() = false, err %v", it.Err())
	}
	got := it.Bucket()
	if got.Setup != 4 || got.Load != 0 || got.Available != 16 || got.Free != 12 {
		t.Errorf("bucket = %+v, want setup 4, load 0, available 16, free 12", got)
	}

	// Removing the first changeover lets the second start from Z.
	if err := m.DeleteOperationPlan(a.Identifier()); err != nil {
		t.Fatal(err)
	}
	if !b.Start().Equal(hour(14)) {
		t.Errorf("Z->X has no rule so the changeover takes no time; start = %v, want %v", b.Start(), hour(14))
	}
}

func TestSetupMatrix_Rule(t *testing.T) {
	sm := NewSetupMatrix("m",
		SetupRule{From: "", To: "clean", Duration: 30 * time.Minute, Priority: 10},
		SetupRule{From: "red", To: "blue", Duration: 2 * time.Hour, Priority: 1},
		SetupRule{From: "red*", To: "", Duration: time.Hour, Priority: 5},
	)

	tests := []struct {
		name string
		from string
		to   string
		want time.Duration
		ok   bool
	}{
		{"Same state", "red", "red", 0, true},
		{"Exact rule", "red", "blue", 2 * time.Hour, true},
		{"Glob rule", "reddish", "blue", time.Hour, true},
		{"Priority order", "red", "clean", time.Hour, true},
		{"Wildcard from", "blue", "clean", 30 * time.Minute, true},
		{"No rule", "blue", "red", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sm.Rule(tt.from, tt.to)
			if ok != tt.ok || got.Duration != tt.want {
				t.Errorf("Rule(%q, %q) = %v, %v, want %v, %v", tt.from, tt.to, got.Duration, ok, tt.want, tt.ok)
			}
		})
	}

	priorities := []int{}
	for _, r := range sm.Rules() {
		priorities = append(priorities, r.Priority)
	}
	if !slices.IsSorted(priorities) {
		t.Errorf("Rules() not sorted by priority: %v", priorities)
	}
}
