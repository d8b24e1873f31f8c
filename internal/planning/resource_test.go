package planning

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/capledger/capledger/internal/calendar"
	"github.com/capledger/capledger/internal/timeline"
	"github.com/capledger/capledger/internal/util"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func hour(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Hour)
}

func newResource(t *testing.T, m *Model, name string, kind ResourceKind) *Resource {
	t.Helper()
	r, err := m.AddResource(name, kind)
	if err != nil {
		t.Fatalf("AddResource(%q) error = %v", name, err)
	}
	return r
}

func eventsOf(r *Resource, k timeline.Kind) []*Event {
	var out []*Event
	for e := range r.Timeline().All() {
		if e.Kind() == k {
			out = append(out, e)
		}
	}
	return out
}

func TestResource_SetMaximumIdempotent(t *testing.T) {
	for _, v := range []float64{0, 1, 2.5, 100} {
		m := NewModel()
		r := newResource(t, m, "press", KindDefault)
		for i := 0; i < 2; i++ {
			if err := r.SetMaximum(v); err != nil {
				t.Fatalf("SetMaximum(%v) error = %v", v, err)
			}
		}
		events := eventsOf(r, timeline.KindUpdateMaximum)
		if len(events) != 1 {
			t.Fatalf("SetMaximum(%v) twice left %d maximum events, want 1", v, len(events))
		}
		if events[0].Value() != v || !util.IsInfinitePast(events[0].Date()) {
			t.Errorf("maximum event = %v, want value %v at origin", events[0], v)
		}
	}
}

func TestResource_SetMaximumNegative(t *testing.T) {
	m := NewModel()
	r := newResource(t, m, "press", KindDefault)
	if err := r.SetMaximum(3); err != nil {
		t.Fatalf("SetMaximum(3) error = %v", err)
	}
	r.ClearChanged()

	err := r.SetMaximum(-1)
	if !errors.Is(err, ErrData) {
		t.Fatalf("SetMaximum(-1) error = %v, want ErrData", err)
	}
	var de *DataError
	if !errors.As(err, &de) || de.Object != "press" {
		t.Errorf("error = %#v, want DataError for press", err)
	}
	if r.Maximum() != 3 {
		t.Errorf("Maximum() = %v, want 3", r.Maximum())
	}
	if v, _ := r.Timeline().MaxAt(hour(0)); v != 3 {
		t.Errorf("MaxAt() = %v, want 3", v)
	}
	if r.Changed() {
		t.Error("rejected SetMaximum marked the resource changed")
	}
}

func TestResource_SetMaximumCalendarCoalesces(t *testing.T) {
	m := NewModel()
	r := newResource(t, m, "press", KindDefault)
	cal := calendar.MustNew("capacity", 0,
		calendar.Breakpoint{Date: hour(0), Value: 2},
		calendar.Breakpoint{Date: hour(1), Value: 2},
		calendar.Breakpoint{Date: hour(2), Value: 5},
	)
	r.SetMaximumCalendar(cal)

	events := eventsOf(r, timeline.KindUpdateMaximum)
	if len(events) != 2 {
		t.Fatalf("got %d maximum events, want 2", len(events))
	}
	want := []calendar.Breakpoint{{Date: hour(0), Value: 2}, {Date: hour(2), Value: 5}}
	for i, w := range want {
		if !events[i].Date().Equal(w.Date) || events[i].Value() != w.Value {
			t.Errorf("event[%d] = %v, want %v %v", i, events[i], w.Date, w.Value)
		}
	}

	n := r.Timeline().Len()
	r.SetMaximumCalendar(cal)
	if r.Timeline().Len() != n {
		t.Errorf("assigning the same calendar changed event count: %d -> %d", n, r.Timeline().Len())
	}
}

func TestResource_SetMaximumCalendarReplaces(t *testing.T) {
	m := NewModel()
	r := newResource(t, m, "press", KindDefault)
	if err := r.SetMaximum(4); err != nil {
		t.Fatal(err)
	}
	cal := calendar.MustNew("capacity", 1, calendar.Breakpoint{Date: hour(5), Value: 3})
	r.SetMaximumCalendar(cal)

	tests := []struct {
		at   time.Time
		want float64
	}{
		{util.InfinitePast, 1},
		{hour(4), 1},
		{hour(5), 3},
	}
	for _, tt := range tests {
		if got, _ := r.Timeline().MaxAt(tt.at); got != tt.want {
			t.Errorf("MaxAt(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}

	// The scalar is latched while the calendar is active.
	if err := r.SetMaximum(7); err != nil {
		t.Fatal(err)
	}
	if got, _ := r.Timeline().MaxAt(hour(1)); got != 1 {
		t.Errorf("SetMaximum with calendar active changed MaxAt to %v", got)
	}

	r.SetMaximumCalendar(nil)
	events := eventsOf(r, timeline.KindUpdateMaximum)
	if len(events) != 1 || events[0].Value() != 7 {
		t.Errorf("after clearing calendar got %v, want single event with value 7", events)
	}
}

func TestResource_BucketsCalendar(t *testing.T) {
	m := NewModel()
	r := newResource(t, m, "line", KindBuckets)
	cal := calendar.MustNew("weekly", 0,
		calendar.Breakpoint{Date: hour(0), Value: 40},
		calendar.Breakpoint{Date: hour(168), Value: 40},
		calendar.Breakpoint{Date: hour(336), Value: 32},
	)
	r.SetMaximumCalendar(cal)

	if n := len(eventsOf(r, timeline.KindUpdateMaximum)); n != 0 {
		t.Errorf("bucketized resource has %d maximum events, want 0", n)
	}
	if n := len(eventsOf(r, timeline.KindSetOnhand)); n != 2 {
		t.Errorf("bucketized resource has %d bucket events, want 2", n)
	}

	r.SetMaximumCalendar(nil)
	if r.Timeline().Len() != 0 {
		t.Errorf("clearing the calendar left %d events", r.Timeline().Len())
	}
}

func TestResource_DeleteOperationPlans(t *testing.T) {
	m := NewModel()
	r := newResource(t, m, "press", KindDefault)
	op := NewFixedTimeOperation("stamp", 2*time.Hour)
	if err := m.AddOperation(op); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddLoad(op, r, 1, ""); err != nil {
		t.Fatal(err)
	}
	locked, err := m.CreateOperationPlan(PlanInput{Operation: op, Quantity: 1, Start: hour(1), Locked: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateOperationPlan(PlanInput{Operation: op, Quantity: 1, Start: hour(4)}); err != nil {
		t.Fatal(err)
	}

	if n := r.DeleteOperationPlans(false); n != 1 {
		t.Errorf("DeleteOperationPlans(false) = %d, want 1", n)
	}
	if _, err := m.OperationPlan(locked.Identifier()); err != nil {
		t.Errorf("locked plan was deleted: %v", err)
	}
	if n := len(eventsOf(r, timeline.KindLoad)); n != 2 {
		t.Errorf("got %d load events, want 2", n)
	}

	if n := r.DeleteOperationPlans(true); n != 1 {
		t.Errorf("DeleteOperationPlans(true) = %d, want 1", n)
	}
	if n := len(eventsOf(r, timeline.KindLoad)); n != 0 {
		t.Errorf("got %d load events after deleting locked plans, want 0", n)
	}
}

func TestModel_DeleteResourceClearsReferences(t *testing.T) {
	m := NewModel()
	r := newResource(t, m, "oven", KindDefault)
	other := newResource(t, m, "mixer", KindDefault)
	op := NewFixedTimeOperation("bake", time.Hour)
	if err := m.AddOperation(op); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddLoad(op, r, 1, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateOperationPlan(PlanInput{Operation: op, Quantity: 1, Start: hour(0), Locked: true}); err != nil {
		t.Fatal(err)
	}

	loc := &Location{Name: "plant"}
	if err := m.AddLocation(loc); err != nil {
		t.Fatal(err)
	}
	item, err := m.AddItem("bread")
	if err != nil {
		t.Fatal(err)
	}
	sup := item.AddSupplier("flour mill", r, 1)
	keep := item.AddSupplier("yeast co", other, 1)
	dist := item.AddDistribution(loc, r, 2)

	if err := m.DeleteResource("oven"); err != nil {
		t.Fatalf("DeleteResource() error = %v", err)
	}

	if sup.Resource() != nil {
		t.Error("supplier still references destroyed resource")
	}
	if dist.Resource() != nil {
		t.Error("distribution still references destroyed resource")
	}
	if keep.Resource() != other {
		t.Error("unrelated supplier lost its resource")
	}
	for _, p := range m.OperationPlans(nil) {
		for _, lp := range p.LoadPlans() {
			if lp.Resource() == r {
				t.Errorf("plan %s still loads destroyed resource", p.Identifier())
			}
		}
	}
	if n := len(m.OperationPlans(op)); n != 0 {
		t.Errorf("%d plans survived, want 0", n)
	}
	if len(m.Loads(op)) != 0 {
		t.Error("operation still has a load on the destroyed resource")
	}
	if !r.Destroyed() {
		t.Error("Destroyed() = false")
	}
	if _, err := m.Resource("oven"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resource() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := Plan(r, nil); !errors.Is(err, ErrLogic) {
		t.Errorf("Plan() on destroyed resource error = %v, want ErrLogic", err)
	}
	if err := m.DeleteResource("oven"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteResource() error = %v, want ErrNotFound", err)
	}
}

func TestResource_Inspect(t *testing.T) {
	m := NewModel()
	r := newResource(t, m, "press", KindDefault)
	if err := r.SetMaximum(2); err != nil {
		t.Fatal(err)
	}
	op := NewFixedTimeOperation("stamp", time.Hour)
	if err := m.AddOperation(op); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddLoad(op, r, 1, ""); err != nil {
		t.Fatal(err)
	}
	p, err := m.CreateOperationPlan(PlanInput{Operation: op, Quantity: 3, Start: hour(2)})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	r.Inspect(slog.New(slog.NewTextHandler(&buf, nil)), "after planning")
	out := buf.String()
	for _, want := range []string{"after planning", "update-maximum", "load", p.Identifier()} {
		if !strings.Contains(out, want) {
			t.Errorf("Inspect output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "event"); n < 3 {
		t.Errorf("Inspect logged %d events, want 3", n)
	}
}

func TestResourceKinds(t *testing.T) {
	for _, k := range ResourceKinds() {
		if !k.Valid() {
			t.Errorf("%q.Valid() = false", k)
		}
	}
	if ResourceKind("finite").Valid() {
		t.Error("unknown kind reported valid")
	}
	m := NewModel()
	if _, err := m.AddResource("x", "finite"); !errors.Is(err, ErrData) {
		t.Errorf("AddResource with unknown kind error = %v, want ErrData", err)
	}
	newResource(t, m, "x", KindInfinite)
	if _, err := m.AddResource("x", KindDefault); !errors.Is(err, ErrData) {
		t.Errorf("duplicate AddResource error = %v, want ErrData", err)
	}
	names := []string{}
	for _, r := range m.Resources() {
		names = append(names, r.Name())
	}
	if !slices.Equal(names, []string{"x"}) {
		t.Errorf("Resources() = %v", names)
	}
}
