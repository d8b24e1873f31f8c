package testutil

import (
	"testing"
	"time"

	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/planning"
	"github.com/capledger/capledger/internal/util"
)

// T0 is the reference date of the fixtures.
var T0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// Hour returns T0 plus n hours.
func Hour(n int) time.Time {
	return T0.Add(time.Duration(n) * time.Hour)
}

// FixtureCalendar creates a calendar that is 1 everywhere.
func FixtureCalendar(overrides ...func(*models.Calendar)) *models.Calendar {
	cal := &models.Calendar{
		Name:    "always",
		Default: 1,
	}
	for _, override := range overrides {
		override(cal)
	}
	return cal
}

// FixtureResource creates a default resource of size 1.
func FixtureResource(overrides ...func(*models.Resource)) *models.Resource {
	res := &models.Resource{
		Name:    "oven",
		Type:    models.ResourceTypeDefault,
		Maximum: 1,
	}
	for _, override := range overrides {
		override(res)
	}
	return res
}

// FixtureOperation creates a two hour fixed time operation.
func FixtureOperation(overrides ...func(*models.Operation)) *models.Operation {
	op := &models.Operation{
		Name:     "bake",
		Type:     models.OperationTypeFixedTime,
		Duration: 2 * time.Hour,
	}
	for _, override := range overrides {
		override(op)
	}
	return op
}

// FixtureOperationPlan creates an unlocked plan of quantity 1 from T0 to
// two hours later.
func FixtureOperationPlan(operation string, overrides ...func(*models.OperationPlan)) *models.OperationPlan {
	p := &models.OperationPlan{
		ID:        util.NewID(),
		Operation: operation,
		Quantity:  1,
		Start:     T0,
		End:       Hour(2),
	}
	for _, override := range overrides {
		override(p)
	}
	return p
}

// SeedChangeovers stores a resource "filler" with setup matrix "colors"
// (X to Y 2h, Y to X 1h, Z to Y 3h) starting in setup X, and three
// changeover plans A, B and C ending at hours 10, 14 and 18 with targets
// Y, X and Y. The stored start dates equal the end dates; loading the
// model computes the real ones.
func SeedChangeovers(t *testing.T, db *TestDB) {
	t.Helper()

	db.ExecSQL(t, `INSERT INTO setup_matrices (name) VALUES ('colors')`)
	for i, rule := range []struct {
		from, to string
		d        time.Duration
	}{
		{"X", "Y", 2 * time.Hour},
		{"Y", "X", time.Hour},
		{"Z", "Y", 3 * time.Hour},
	} {
		db.ExecSQL(t, `INSERT INTO setup_rules (setupmatrix, priority, fromsetup, tosetup, duration_seconds)
			VALUES ('colors', ?, ?, ?, ?)`, i+1, rule.from, rule.to, int64(rule.d/time.Second))
	}
	db.ExecSQL(t, `INSERT INTO resources (name, type, maximum, setupmatrix, setup)
		VALUES ('filler', 'default', 1, 'colors', 'X')`)
	toY := db.InsertSQL(t, `INSERT INTO loads (operation, resource, quantity, setup) VALUES (?, 'filler', 1, 'Y')`,
		planning.ChangeoverName)
	toX := db.InsertSQL(t, `INSERT INTO loads (operation, resource, quantity, setup) VALUES (?, 'filler', 1, 'X')`,
		planning.ChangeoverName)

	for i, loadID := range []int64{toY, toX, toY} {
		end := Hour(10 + 4*i).Format(time.RFC3339)
		db.ExecSQL(t, `INSERT INTO operationplans (id, operation, quantity, startdate, enddate, locked, load_id)
			VALUES (?, ?, 1, ?, ?, 0, ?)`,
			[]string{"A", "B", "C"}[i], planning.ChangeoverName, end, end, loadID)
	}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
