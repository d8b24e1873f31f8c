package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/planning"
	"github.com/capledger/capledger/internal/testutil"
	"github.com/capledger/capledger/internal/timeline"
)

func setupModelTest(t *testing.T) (*ModelRepository, *testutil.TestDB, context.Context) {
	t.Helper()
	db := testutil.NewTestDB(t)
	return NewModelRepository(db.DB.DB), db, context.Background()
}

func TestModelRepository_Calendars(t *testing.T) {
	repo, _, ctx := setupModelTest(t)

	cal := testutil.FixtureCalendar(func(c *models.Calendar) {
		c.Name = "shifts"
		c.Default = 0
		c.Buckets = []models.CalendarBucket{
			{Start: testutil.Hour(8), Value: 1},
			{Start: testutil.Hour(16), Value: 0},
		}
	})

	t.Run("Create calendar", func(t *testing.T) {
		if err := repo.CreateCalendar(ctx, nil, cal); err != nil {
			t.Fatalf("CreateCalendar() error = %v", err)
		}
		got, err := repo.GetCalendar(ctx, "shifts")
		if err != nil {
			t.Fatalf("GetCalendar() error = %v", err)
		}
		if len(got.Buckets) != 2 || !got.Buckets[0].Start.Equal(testutil.Hour(8)) || got.Buckets[1].Value != 0 {
			t.Errorf("GetCalendar() buckets = %+v", got.Buckets)
		}
	})

	t.Run("Duplicate name fails", func(t *testing.T) {
		if err := repo.CreateCalendar(ctx, nil, testutil.FixtureCalendar(func(c *models.Calendar) { c.Name = "shifts" })); err == nil {
			t.Error("expected error for duplicate calendar")
		}
	})

	t.Run("Missing calendar", func(t *testing.T) {
		if _, err := repo.GetCalendar(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetCalendar() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		if err := repo.CreateCalendar(ctx, nil, testutil.FixtureCalendar()); err != nil {
			t.Fatal(err)
		}
		cals, err := repo.ListCalendars(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(cals) != 2 || cals[0].Name != "always" || len(cals[1].Buckets) != 2 {
			t.Errorf("ListCalendars() = %+v", cals)
		}
	})
}

func TestModelRepository_Resources(t *testing.T) {
	repo, db, ctx := setupModelTest(t)

	if err := repo.CreateCalendar(ctx, nil, testutil.FixtureCalendar()); err != nil {
		t.Fatal(err)
	}
	res := testutil.FixtureResource(func(r *models.Resource) { r.Available = "always" })

	t.Run("Create and get", func(t *testing.T) {
		if err := repo.CreateResource(ctx, nil, res); err != nil {
			t.Fatalf("CreateResource() error = %v", err)
		}
		got, err := repo.GetResource(ctx, res.Name)
		if err != nil {
			t.Fatalf("GetResource() error = %v", err)
		}
		if *got != *res {
			t.Errorf("GetResource() = %+v, want %+v", got, res)
		}
	})

	t.Run("Invalid resource rejected", func(t *testing.T) {
		bad := testutil.FixtureResource(func(r *models.Resource) { r.Name = "bad"; r.Maximum = -2 })
		if err := repo.CreateResource(ctx, nil, bad); !errors.Is(err, models.ErrInvalid) {
			t.Errorf("CreateResource() error = %v, want ErrInvalid", err)
		}
	})

	t.Run("Unknown calendar rejected", func(t *testing.T) {
		bad := testutil.FixtureResource(func(r *models.Resource) { r.Name = "orphan"; r.Available = "nope" })
		if err := repo.CreateResource(ctx, nil, bad); err == nil {
			t.Error("expected foreign key error")
		}
	})

	t.Run("Update", func(t *testing.T) {
		res.Maximum = 3
		res.Available = ""
		if err := repo.UpdateResource(ctx, nil, res); err != nil {
			t.Fatalf("UpdateResource() error = %v", err)
		}
		got, _ := repo.GetResource(ctx, res.Name)
		if got.Maximum != 3 || got.Available != "" {
			t.Errorf("after update = %+v", got)
		}
		missing := testutil.FixtureResource(func(r *models.Resource) { r.Name = "ghost" })
		if err := repo.UpdateResource(ctx, nil, missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateResource(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Delete clears references", func(t *testing.T) {
		plans := NewOperationPlanRepository(db.DB.DB)
		if err := repo.CreateOperation(ctx, nil, testutil.FixtureOperation()); err != nil {
			t.Fatal(err)
		}
		if err := repo.CreateLoad(ctx, nil, &models.Load{Operation: "bake", Resource: "oven", Quantity: 1}); err != nil {
			t.Fatal(err)
		}
		if err := plans.Create(ctx, nil, testutil.FixtureOperationPlan("bake", func(p *models.OperationPlan) { p.Locked = true })); err != nil {
			t.Fatal(err)
		}
		if err := repo.CreateItem(ctx, nil, &models.Item{Name: "bread"}); err != nil {
			t.Fatal(err)
		}
		if err := repo.CreateItemSupplier(ctx, nil, &models.ItemSupplier{
			Item: "bread", Supplier: "mill", Resource: testutil.StringPtr("oven"), ResourceQuantity: 1,
		}); err != nil {
			t.Fatal(err)
		}

		if err := repo.DeleteResource(ctx, nil, "oven"); err != nil {
			t.Fatalf("DeleteResource() error = %v", err)
		}
		db.AssertRowCount(t, "resources", 0)
		db.AssertRowCount(t, "loads", 0)
		db.AssertRowCount(t, "operationplans", 0)
		db.AssertRowCount(t, "item_suppliers", 1)

		suppliers, err := repo.ListItemSuppliers(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if suppliers[0].Resource != nil {
			t.Errorf("supplier resource = %v, want nil", *suppliers[0].Resource)
		}
		if err := repo.DeleteResource(ctx, nil, "oven"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second DeleteResource() error = %v, want ErrNotFound", err)
		}
	})
}

func TestModelRepository_SetupMatrices(t *testing.T) {
	repo, _, ctx := setupModelTest(t)

	m := &models.SetupMatrix{Name: "colors", Rules: []models.SetupRule{
		{Priority: 2, From: "Y", To: "X", Duration: time.Hour},
		{Priority: 1, From: "X", To: "Y", Duration: 2 * time.Hour, Cost: 5},
	}}
	if err := repo.CreateSetupMatrix(ctx, nil, m); err != nil {
		t.Fatalf("CreateSetupMatrix() error = %v", err)
	}
	if m.Rules[0].ID == 0 || m.Rules[1].ID == 0 {
		t.Error("rule IDs not set")
	}
	if err := repo.CreateSetupMatrix(ctx, nil, &models.SetupMatrix{Name: "empty"}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListSetupMatrices(ctx)
	if err != nil {
		t.Fatalf("ListSetupMatrices() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "colors" || got[1].Name != "empty" {
		t.Fatalf("ListSetupMatrices() = %+v", got)
	}
	if len(got[1].Rules) != 0 {
		t.Errorf("empty matrix rules = %+v", got[1].Rules)
	}
	rules := got[0].Rules
	if len(rules) != 2 || rules[0].From != "X" || rules[0].Duration != 2*time.Hour || rules[0].Cost != 5 {
		t.Errorf("rules = %+v, want priority order", rules)
	}
}

func TestModelRepository_Load(t *testing.T) {
	repo, db, ctx := setupModelTest(t)
	testutil.SeedChangeovers(t, db)

	m, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	res, err := m.Resource("filler")
	if err != nil {
		t.Fatal(err)
	}
	if res.SetupMatrix() == nil || res.Setup() != "X" || res.Maximum() != 1 {
		t.Errorf("resource = matrix %v, setup %q, maximum %v", res.SetupMatrix(), res.Setup(), res.Maximum())
	}

	want := map[string]time.Time{
		"A": testutil.Hour(8),
		"B": testutil.Hour(13),
		"C": testutil.Hour(16),
	}
	for id, start := range want {
		p, err := m.OperationPlan(id)
		if err != nil {
			t.Fatalf("OperationPlan(%s) error = %v", id, err)
		}
		if !p.Start().Equal(start) {
			t.Errorf("plan %s start = %v, want %v", id, p.Start(), start)
		}
		if !p.Operation().IsChangeover() || len(p.LoadPlans()) != 2 {
			t.Errorf("plan %s: changeover %v, %d load plans", id, p.Operation().IsChangeover(), len(p.LoadPlans()))
		}
	}
	if len(m.Loads(m.Changeover())) != 2 {
		t.Errorf("changeover loads = %d, want 2", len(m.Loads(m.Changeover())))
	}
}

func TestModelRepository_LoadFullModel(t *testing.T) {
	repo, db, ctx := setupModelTest(t)
	plans := NewOperationPlanRepository(db.DB.DB)

	steps := []func() error{
		func() error {
			return repo.CreateCalendar(ctx, nil, testutil.FixtureCalendar(func(c *models.Calendar) {
				c.Name = "capacity"
				c.Default = 2
				c.Buckets = []models.CalendarBucket{{Start: testutil.Hour(4), Value: 1}}
			}))
		},
		func() error {
			return repo.CreateCalendar(ctx, nil, testutil.FixtureCalendar(func(c *models.Calendar) {
				c.Name = "weekly"
				c.Default = 0
				c.Buckets = []models.CalendarBucket{{Start: testutil.T0, Value: 40}, {Start: testutil.Hour(168), Value: 30}}
			}))
		},
		func() error { return repo.CreateLocation(ctx, nil, &models.Location{Name: "plant", Available: "capacity"}) },
		func() error {
			return repo.CreateResource(ctx, nil, testutil.FixtureResource(func(r *models.Resource) {
				r.Maximum = 5
				r.MaximumCalendar = "capacity"
				r.Location = "plant"
			}))
		},
		func() error {
			return repo.CreateResource(ctx, nil, testutil.FixtureResource(func(r *models.Resource) {
				r.Name = "truck"
				r.Type = models.ResourceTypeBuckets
				r.MaximumCalendar = "weekly"
			}))
		},
		func() error { return repo.CreateOperation(ctx, nil, testutil.FixtureOperation()) },
		func() error { return repo.CreateLoad(ctx, nil, &models.Load{Operation: "bake", Resource: "oven", Quantity: 1}) },
		func() error { return repo.CreateLoad(ctx, nil, &models.Load{Operation: "bake", Resource: "truck", Quantity: 2}) },
		func() error { return plans.Create(ctx, nil, testutil.FixtureOperationPlan("bake", func(p *models.OperationPlan) { p.ID = "p1" })) },
		func() error { return repo.CreateItem(ctx, nil, &models.Item{Name: "bread"}) },
		func() error {
			return repo.CreateItemDistribution(ctx, nil, &models.ItemDistribution{
				Item: "bread", Origin: "plant", Resource: testutil.StringPtr("truck"), ResourceQuantity: 1,
			})
		},
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("setup step %d: %v", i, err)
		}
	}

	m, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	oven, _ := m.Resource("oven")
	if oven.MaximumCalendar() == nil || oven.Maximum() != 5 || oven.Location() == nil {
		t.Errorf("oven = calendar %v, maximum %v, location %v", oven.MaximumCalendar(), oven.Maximum(), oven.Location())
	}
	if got, ok := oven.Timeline().MaxAt(testutil.Hour(5)); !ok || got != 1 {
		t.Errorf("oven MaxAt(5h) = %v, %v, want 1 from calendar", got, ok)
	}

	truck, _ := m.Resource("truck")
	if truck.Kind() != planning.KindBuckets || truck.Timeline().Count(timeline.KindSetOnhand) != 2 {
		t.Errorf("truck kind = %v, bucket events = %d", truck.Kind(), truck.Timeline().Count(timeline.KindSetOnhand))
	}

	p, err := m.OperationPlan("p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.LoadPlans()) != 4 {
		t.Errorf("p1 load plans = %d, want 4", len(p.LoadPlans()))
	}

	bread, _ := m.Item("bread")
	if len(bread.Distributions()) != 1 || bread.Distributions()[0].Resource() != truck {
		t.Errorf("bread distributions = %+v", bread.Distributions())
	}
}
