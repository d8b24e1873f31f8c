package repository

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/capledger/capledger/internal/calendar"
	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/planning"
)

// Load reads every stored record and builds the in-memory planning model.
// Regular plans are created before changeovers, and changeovers in end
// date order, so that each changeover sees the setup left by the previous
// one when its duration is computed.
func (r *ModelRepository) Load(ctx context.Context) (*planning.Model, error) {
	m := planning.NewModel()

	cals, err := r.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range cals {
		points := make([]calendar.Breakpoint, len(rec.Buckets))
		for i, b := range rec.Buckets {
			points[i] = calendar.Breakpoint{Date: b.Start, Value: b.Value}
		}
		cal, err := calendar.New(rec.Name, rec.Default, points...)
		if err != nil {
			return nil, err
		}
		if err := m.AddCalendar(cal); err != nil {
			return nil, err
		}
	}

	locs, err := r.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range locs {
		loc := &planning.Location{Name: rec.Name}
		if loc.Available, err = optionalCalendar(m, rec.Available); err != nil {
			return nil, fmt.Errorf("location %s: %w", rec.Name, err)
		}
		if err := m.AddLocation(loc); err != nil {
			return nil, err
		}
	}

	matrices, err := r.ListSetupMatrices(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range matrices {
		sm := planning.NewSetupMatrix(rec.Name)
		for _, rule := range rec.Rules {
			sm.AddRule(planning.SetupRule{
				From:     rule.From,
				To:       rule.To,
				Duration: rule.Duration,
				Cost:     rule.Cost,
				Priority: rule.Priority,
			})
		}
		if err := m.AddSetupMatrix(sm); err != nil {
			return nil, err
		}
	}

	resources, err := r.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range resources {
		if err := addResource(m, rec); err != nil {
			return nil, fmt.Errorf("resource %s: %w", rec.Name, err)
		}
	}

	ops, err := r.ListOperations(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range ops {
		if err := m.AddOperation(planning.NewFixedTimeOperation(rec.Name, rec.Duration)); err != nil {
			return nil, err
		}
	}

	loadRecs, err := r.ListLoads(ctx)
	if err != nil {
		return nil, err
	}
	loads := make(map[int64]*planning.Load, len(loadRecs))
	for _, rec := range loadRecs {
		op, err := m.Operation(rec.Operation)
		if err != nil {
			return nil, fmt.Errorf("load %d: %w", rec.ID, err)
		}
		res, err := m.Resource(rec.Resource)
		if err != nil {
			return nil, fmt.Errorf("load %d: %w", rec.ID, err)
		}
		l, err := m.AddLoad(op, res, rec.Quantity, rec.Setup)
		if err != nil {
			return nil, fmt.Errorf("load %d: %w", rec.ID, err)
		}
		loads[rec.ID] = l
	}

	if err := r.loadItems(ctx, m); err != nil {
		return nil, err
	}

	plans, err := NewOperationPlanRepository(r.db).List(ctx, nil, "")
	if err != nil {
		return nil, err
	}
	changeovers := slices.DeleteFunc(slices.Clone(plans), func(p *models.OperationPlan) bool {
		return p.Operation != planning.ChangeoverName
	})
	plans = slices.DeleteFunc(plans, func(p *models.OperationPlan) bool {
		return p.Operation == planning.ChangeoverName
	})
	slices.SortStableFunc(changeovers, func(a, b *models.OperationPlan) int {
		return cmp.Or(a.End.Compare(b.End), cmp.Compare(a.ID, b.ID))
	})

	for _, rec := range append(plans, changeovers...) {
		op, err := m.Operation(rec.Operation)
		if err != nil {
			return nil, fmt.Errorf("operation plan %s: %w", rec.ID, err)
		}
		in := planning.PlanInput{
			ID:        rec.ID,
			Operation: op,
			Quantity:  rec.Quantity,
			Start:     rec.Start,
			End:       rec.End,
			Locked:    rec.Locked,
		}
		if rec.LoadID != nil {
			l, ok := loads[*rec.LoadID]
			if !ok {
				return nil, fmt.Errorf("operation plan %s: load %d: %w", rec.ID, *rec.LoadID, ErrNotFound)
			}
			in.Loads = []*planning.Load{l}
		}
		if _, err := m.CreateOperationPlan(in); err != nil {
			return nil, fmt.Errorf("operation plan %s: %w", rec.ID, err)
		}
	}

	slog.Debug("planning model loaded",
		"calendars", len(cals),
		"resources", len(resources),
		"operations", len(ops),
		"plans", len(plans)+len(changeovers),
	)
	return m, nil
}

func addResource(m *planning.Model, rec *models.Resource) error {
	res, err := m.AddResource(rec.Name, planning.ResourceKind(rec.Type))
	if err != nil {
		return err
	}

	if rec.Location != "" {
		loc, err := m.Location(rec.Location)
		if err != nil {
			return err
		}
		res.SetLocation(loc)
	}
	avail, err := optionalCalendar(m, rec.Available)
	if err != nil {
		return err
	}
	res.SetAvailable(avail)

	if rec.SetupMatrix != "" {
		sm, err := m.SetupMatrix(rec.SetupMatrix)
		if err != nil {
			return err
		}
		res.SetSetupMatrix(sm)
	}
	res.SetSetup(rec.Setup)

	if rec.Type != models.ResourceTypeBuckets {
		if err := res.SetMaximum(rec.Maximum); err != nil {
			return err
		}
	}
	maxCal, err := optionalCalendar(m, rec.MaximumCalendar)
	if err != nil {
		return err
	}
	res.SetMaximumCalendar(maxCal)
	return nil
}

func optionalCalendar(m *planning.Model, name string) (*calendar.Calendar, error) {
	if name == "" {
		return nil, nil
	}
	return m.Calendar(name)
}

func (r *ModelRepository) loadItems(ctx context.Context, m *planning.Model) error {
	items, err := r.ListItems(ctx)
	if err != nil {
		return err
	}
	for _, rec := range items {
		if _, err := m.AddItem(rec.Name); err != nil {
			return err
		}
	}

	resourceOf := func(name *string) (*planning.Resource, error) {
		if name == nil {
			return nil, nil
		}
		return m.Resource(*name)
	}

	suppliers, err := r.ListItemSuppliers(ctx)
	if err != nil {
		return err
	}
	for _, rec := range suppliers {
		item, err := m.Item(rec.Item)
		if err != nil {
			return err
		}
		res, err := resourceOf(rec.Resource)
		if err != nil {
			return fmt.Errorf("item supplier %d: %w", rec.ID, err)
		}
		item.AddSupplier(rec.Supplier, res, rec.ResourceQuantity)
	}

	distributions, err := r.ListItemDistributions(ctx)
	if err != nil {
		return err
	}
	for _, rec := range distributions {
		item, err := m.Item(rec.Item)
		if err != nil {
			return err
		}
		origin, err := m.Location(rec.Origin)
		if err != nil {
			return fmt.Errorf("item distribution %d: %w", rec.ID, err)
		}
		res, err := resourceOf(rec.Resource)
		if err != nil {
			return fmt.Errorf("item distribution %d: %w", rec.ID, err)
		}
		item.AddDistribution(origin, res, rec.ResourceQuantity)
	}
	return nil
}
