package capacity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/capledger/capledger/internal/buckets"
	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/services/capacity"
)

var t0 = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

type fakeService struct {
	resources []capacity.ResourceSummary
	events    map[string][]capacity.EventView
	err       error
	requests  []capacity.ReportRequest
}

func (f *fakeService) Resources(context.Context) ([]capacity.ResourceSummary, error) {
	return f.resources, f.err
}

func (f *fakeService) Events(_ context.Context, name string) ([]capacity.EventView, error) {
	return f.events[name], f.err
}

func (f *fakeService) ResourcePlan(_ context.Context, name string, req capacity.ReportRequest) ([]models.ResourcePlanRow, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return []models.ResourcePlanRow{
		{Resource: name, Start: req.Start, End: req.Start.AddDate(0, 0, 1), Available: 24, Load: 6, Free: 18},
		{Resource: name, Start: req.Start.AddDate(0, 0, 1), End: req.End, Available: 8, Load: 10, Free: -2},
	}, nil
}

func newFake() *fakeService {
	return &fakeService{
		resources: []capacity.ResourceSummary{
			{Name: "machine 1", Kind: "default", Maximum: 1, SetupMatrix: "colors", Setup: "white", Loads: 5, Events: 12},
			{Name: "trucks", Kind: "buckets", MaximumCalendar: "truck weeks", Loads: 1, Events: 4},
		},
		events: map[string][]capacity.EventView{
			"machine 1": {
				{Date: t0, Kind: "update-maximum", Value: 1, Onhand: 0},
				{Date: t0.Add(time.Hour), Kind: "load", Quantity: 1, Onhand: 1, OperationPlan: "P1", Operation: "paint red", IsStart: true},
			},
		},
	}
}

func TestResourcesView_Load(t *testing.T) {
	v := NewResourcesView(newFake(), DefaultStyles())
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	out := v.Render(120, 40)
	for _, want := range []string{"RESOURCES", "machine 1", "truck weeks", "white"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q", want)
		}
	}

	if sel := v.Selected(); sel == nil || sel.Name != "machine 1" {
		t.Fatalf("Selected() = %v, want machine 1", sel)
	}
	v.MoveDown()
	if sel := v.Selected(); sel.Name != "trucks" {
		t.Errorf("Selected() after MoveDown = %s, want trucks", sel.Name)
	}
}

func TestResourcesView_Detail(t *testing.T) {
	v := NewResourcesView(newFake(), DefaultStyles())
	ctx := context.Background()
	if err := v.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := v.LoadEvents(ctx); err != nil {
		t.Fatal(err)
	}

	out := v.RenderDetail(40)
	for _, want := range []string{"MACHINE 1", "colors", "TIMELINE", "paint red P1 (start)", "update-maximum"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderDetail() missing %q:\n%s", want, out)
		}
	}
}

func TestResourcesView_Empty(t *testing.T) {
	v := NewResourcesView(&fakeService{}, DefaultStyles())
	if err := v.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(v.Render(120, 40), "No resources found") {
		t.Error("expected empty state")
	}
	if v.Selected() != nil {
		t.Error("Selected() on empty list should be nil")
	}
	if !strings.Contains(v.RenderDetail(40), "No resource selected") {
		t.Error("expected empty detail")
	}
}

func TestResourcesView_Error(t *testing.T) {
	v := NewResourcesView(&fakeService{err: errors.New("database is locked")}, DefaultStyles())
	if err := v.Load(context.Background()); err == nil {
		t.Fatal("Load() should fail")
	}
	if !strings.Contains(v.Render(120, 40), "database is locked") {
		t.Error("expected error in render")
	}
}

func TestPlanView_Load(t *testing.T) {
	svc := newFake()
	req := capacity.ReportRequest{Start: t0, End: t0.AddDate(0, 0, 2), Bucket: buckets.Day}
	v := NewPlanView(svc, DefaultStyles(), req)

	if !strings.Contains(v.Render(120, 40), "No resource selected") {
		t.Error("expected prompt before a resource is chosen")
	}

	v.SetResource("machine 1")
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(v.Rows()) != 2 {
		t.Fatalf("Rows() = %d, want 2", len(v.Rows()))
	}
	if v.Table().IsMarked(0) || !v.Table().IsMarked(1) {
		t.Error("only the overloaded bucket should be marked")
	}

	out := v.Render(120, 40)
	for _, want := range []string{"CAPACITY PLAN", "machine 1", "2024-05-06", "-2.00", "1 overloaded"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
}

func TestPlanView_CycleBucketAndShift(t *testing.T) {
	svc := newFake()
	req := capacity.ReportRequest{Start: t0, End: t0.AddDate(0, 0, 7), Bucket: buckets.Year}
	v := NewPlanView(svc, DefaultStyles(), req)
	v.SetResource("machine 1")

	v.CycleBucket()
	if got := v.Request().Bucket; got != buckets.Standard {
		t.Errorf("bucket after cycling past the last type = %s, want standard", got)
	}
	v.CycleBucket()
	if got := v.Request().Bucket; got != buckets.Day {
		t.Errorf("bucket = %s, want day", got)
	}

	v.Shift(1)
	if !v.Request().Start.Equal(t0.AddDate(0, 0, 7)) || !v.Request().End.Equal(t0.AddDate(0, 0, 14)) {
		t.Errorf("Shift(1) horizon = %v - %v", v.Request().Start, v.Request().End)
	}
	v.Shift(-2)
	if !v.Request().Start.Equal(t0.AddDate(0, 0, -7)) {
		t.Errorf("Shift(-2) start = %v", v.Request().Start)
	}

	if err := v.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if last := svc.requests[len(svc.requests)-1]; last.Bucket != buckets.Day {
		t.Errorf("request bucket = %s, want day", last.Bucket)
	}
}

func TestPlanView_Error(t *testing.T) {
	svc := &fakeService{err: errors.New("resource \"x\": not found")}
	v := NewPlanView(svc, DefaultStyles(), capacity.ReportRequest{Start: t0, End: t0.AddDate(0, 0, 1), Bucket: buckets.Day})
	v.SetResource("x")
	if err := v.Load(context.Background()); err == nil {
		t.Fatal("Load() should fail")
	}
	if !strings.Contains(v.Render(120, 40), "not found") {
		t.Error("expected error in render")
	}
}
