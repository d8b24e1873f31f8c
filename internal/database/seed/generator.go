package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/planning"
	"github.com/capledger/capledger/internal/repository"
	"github.com/capledger/capledger/internal/util"
)

// Config configures the seed data generator.
type Config struct {
	Start        time.Time
	Days         int
	Machines     int
	JobsPerDay   int
	ShiftStart   int // hour of day
	ShiftEnd     int // hour of day
	MaxJobHours  int
	TruckPerWeek float64
	RandomSeed   int64
}

// DefaultConfig returns a default seed configuration starting at start,
// truncated to midnight.
func DefaultConfig(start time.Time) Config {
	return Config{
		Start:        util.StartOfDay(start.UTC()),
		Days:         28,
		Machines:     3,
		JobsPerDay:   2,
		ShiftStart:   6,
		ShiftEnd:     22,
		MaxJobHours:  4,
		TruckPerWeek: 40,
		RandomSeed:   2024,
	}
}

// Generator generates seed data.
type Generator struct {
	db    *sql.DB
	cfg   Config
	rng   *rand.Rand
	repo  *repository.ModelRepository
	plans *repository.OperationPlanRepository

	// Tracking
	changeoverLoads map[string]int64 // machine/color
	durations       map[string]time.Duration
	planCount       int
	changeoverCount int
}

// NewGenerator creates a new seed data generator.
func NewGenerator(db *sql.DB, cfg Config) *Generator {
	return &Generator{
		db:              db,
		cfg:             cfg,
		rng:             rand.New(rand.NewSource(cfg.RandomSeed)),
		repo:            repository.NewModelRepository(db),
		plans:           repository.NewOperationPlanRepository(db),
		changeoverLoads: make(map[string]int64),
		durations:       make(map[string]time.Duration),
	}
}

// Generate creates all seed data in one transaction.
func (g *Generator) Generate(ctx context.Context) error {
	slog.Info("starting seed data generation",
		"start", util.FormatDate(g.cfg.Start),
		"days", g.cfg.Days,
		"machines", g.cfg.Machines,
	)

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		name string
		fn   func(context.Context, *sql.Tx) error
	}{
		{"calendars", g.generateCalendars},
		{"master data", g.generateMasterData},
		{"items", g.generateItems},
		{"operation plans", g.generatePlans},
	}
	for _, step := range steps {
		if err := step.fn(ctx, tx); err != nil {
			return fmt.Errorf("generating %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	slog.Info("seed data generation complete",
		"plans", g.planCount,
		"changeovers", g.changeoverCount,
	)
	return nil
}

func machineName(i int) string {
	return fmt.Sprintf("machine %d", i+1)
}

func paintOperation(color string) string {
	return "paint " + color
}

func (g *Generator) generateCalendars(ctx context.Context, tx *sql.Tx) error {
	shifts := &models.Calendar{Name: "shifts", Default: 0}
	capacity := &models.Calendar{Name: "machine capacity", Default: 2}
	trucks := &models.Calendar{Name: "truck weeks", Default: 0}

	for d := 0; d < g.cfg.Days; d++ {
		day := g.cfg.Start.AddDate(0, 0, d)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		shifts.Buckets = append(shifts.Buckets,
			models.CalendarBucket{Start: day.Add(time.Duration(g.cfg.ShiftStart) * time.Hour), Value: 1},
			models.CalendarBucket{Start: day.Add(time.Duration(g.cfg.ShiftEnd) * time.Hour), Value: 0},
		)
		// One machine head is serviced every tenth day.
		if d%10 == 9 {
			capacity.Buckets = append(capacity.Buckets,
				models.CalendarBucket{Start: day, Value: 1},
				models.CalendarBucket{Start: day.AddDate(0, 0, 1), Value: 2},
			)
		}
	}
	for d := 0; d < g.cfg.Days; d += 7 {
		trucks.Buckets = append(trucks.Buckets, models.CalendarBucket{
			Start: g.cfg.Start.AddDate(0, 0, d),
			Value: g.cfg.TruckPerWeek,
		})
	}
	trucks.Buckets = append(trucks.Buckets, models.CalendarBucket{Start: g.cfg.Start.AddDate(0, 0, g.cfg.Days), Value: 0})

	for _, cal := range []*models.Calendar{shifts, capacity, trucks} {
		if err := g.repo.CreateCalendar(ctx, tx, cal); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) generateMasterData(ctx context.Context, tx *sql.Tx) error {
	if err := g.repo.CreateLocation(ctx, tx, &models.Location{Name: "plant", Available: "shifts"}); err != nil {
		return err
	}
	for _, dest := range Destinations {
		if err := g.repo.CreateLocation(ctx, tx, &models.Location{Name: dest}); err != nil {
			return err
		}
	}

	// Moving to a darker color is quick, cleaning towards a lighter one is slow.
	matrix := &models.SetupMatrix{Name: "colors"}
	for i, from := range Colors {
		for j, to := range Colors {
			if i == j {
				continue
			}
			d := 30 * time.Minute
			if j < i {
				d = time.Duration(1+i-j) * time.Hour
			}
			matrix.Rules = append(matrix.Rules, models.SetupRule{
				Priority: len(matrix.Rules),
				From:     from,
				To:       to,
				Duration: d,
				Cost:     d.Hours() * 50,
			})
		}
	}
	if err := g.repo.CreateSetupMatrix(ctx, tx, matrix); err != nil {
		return err
	}

	for i := 0; i < g.cfg.Machines; i++ {
		res := &models.Resource{
			Name:        machineName(i),
			Type:        models.ResourceTypeDefault,
			Maximum:     1,
			Location:    "plant",
			SetupMatrix: "colors",
			Setup:       Colors[0],
		}
		if i == 0 {
			res.MaximumCalendar = "machine capacity"
		}
		if err := g.repo.CreateResource(ctx, tx, res); err != nil {
			return err
		}
		for _, color := range Colors {
			l := &models.Load{Operation: planning.ChangeoverName, Resource: res.Name, Quantity: 1, Setup: color}
			if err := g.repo.CreateLoad(ctx, tx, l); err != nil {
				return err
			}
			g.changeoverLoads[res.Name+"/"+color] = l.ID
		}
	}

	for _, res := range []*models.Resource{
		{Name: "trucks", Type: models.ResourceTypeBuckets, MaximumCalendar: "truck weeks"},
		{Name: "inspection", Type: models.ResourceTypeInfinite, Location: "plant"},
	} {
		if err := g.repo.CreateResource(ctx, tx, res); err != nil {
			return err
		}
	}

	for i, color := range Colors {
		op := &models.Operation{
			Name:     paintOperation(color),
			Type:     models.OperationTypeFixedTime,
			Duration: time.Duration(1+g.rng.Intn(g.cfg.MaxJobHours)) * time.Hour,
		}
		if err := g.repo.CreateOperation(ctx, tx, op); err != nil {
			return err
		}
		g.durations[op.Name] = op.Duration
		loads := []*models.Load{
			{Operation: op.Name, Resource: machineName(i % g.cfg.Machines), Quantity: 1, Setup: color},
			{Operation: op.Name, Resource: "inspection", Quantity: 0.25},
		}
		for _, l := range loads {
			if err := g.repo.CreateLoad(ctx, tx, l); err != nil {
				return err
			}
		}
	}

	ship := &models.Operation{Name: "ship", Type: models.OperationTypeFixedTime, Duration: time.Hour}
	if err := g.repo.CreateOperation(ctx, tx, ship); err != nil {
		return err
	}
	return g.repo.CreateLoad(ctx, tx, &models.Load{Operation: ship.Name, Resource: "trucks", Quantity: 1})
}

func (g *Generator) generateItems(ctx context.Context, tx *sql.Tx) error {
	trucks := "trucks"
	for _, color := range Colors {
		item := &models.Item{Name: color + " paint"}
		if err := g.repo.CreateItem(ctx, tx, item); err != nil {
			return err
		}
		supplier := &models.ItemSupplier{
			Item:             item.Name,
			Supplier:         Suppliers[g.rng.Intn(len(Suppliers))],
			ResourceQuantity: 1,
		}
		if err := g.repo.CreateItemSupplier(ctx, tx, supplier); err != nil {
			return err
		}
		dist := &models.ItemDistribution{
			Item:             item.Name,
			Origin:           "plant",
			Resource:         &trucks,
			ResourceQuantity: 0.5,
		}
		if err := g.repo.CreateItemDistribution(ctx, tx, dist); err != nil {
			return err
		}
	}
	return nil
}

// generatePlans schedules paint jobs back to back within the shifts of
// each machine, with a changeover in front of every color change, and a
// shipment after each job.
func (g *Generator) generatePlans(ctx context.Context, tx *sql.Tx) error {
	setup := make([]string, g.cfg.Machines)
	for i := range setup {
		setup[i] = Colors[0]
	}

	for d := 0; d < g.cfg.Days; d++ {
		day := g.cfg.Start.AddDate(0, 0, d)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for m := 0; m < g.cfg.Machines; m++ {
			// Machine m only runs the colors whose paint operation loads it.
			var colors []string
			for i, c := range Colors {
				if i%g.cfg.Machines == m {
					colors = append(colors, c)
				}
			}
			if len(colors) == 0 {
				continue
			}

			cursor := day.Add(time.Duration(g.cfg.ShiftStart) * time.Hour)
			for j := 0; j < g.cfg.JobsPerDay; j++ {
				color := colors[g.rng.Intn(len(colors))]
				if color != setup[m] {
					// The stored start is provisional; loading the model
					// derives it from the setup matrix.
					cursor = cursor.Add(time.Hour)
					if err := g.createPlan(ctx, tx, planning.ChangeoverName, cursor, cursor, g.changeoverLoad(m, color)); err != nil {
						return err
					}
					g.changeoverCount++
					setup[m] = color
				}
				hours := g.durations[paintOperation(color)]
				if err := g.createPlan(ctx, tx, paintOperation(color), cursor, cursor.Add(hours), nil); err != nil {
					return err
				}
				if err := g.createPlan(ctx, tx, "ship", cursor.Add(hours), cursor.Add(hours+time.Hour), nil); err != nil {
					return err
				}
				cursor = cursor.Add(hours)
			}
		}
	}
	return nil
}

func (g *Generator) changeoverLoad(machine int, color string) *int64 {
	id := g.changeoverLoads[machineName(machine)+"/"+color]
	return &id
}

func (g *Generator) createPlan(ctx context.Context, tx *sql.Tx, operation string, start, end time.Time, loadID *int64) error {
	p := &models.OperationPlan{
		ID:        util.DeterministicID(g.cfg.RandomSeed<<20 + int64(g.planCount)),
		Operation: operation,
		Quantity:  1,
		Start:     start,
		End:       end,
		Locked:    g.rng.Intn(10) == 0,
		LoadID:    loadID,
	}
	if err := g.plans.Create(ctx, tx, p); err != nil {
		return err
	}
	g.planCount++
	return nil
}
