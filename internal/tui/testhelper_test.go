package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/capledger/capledger/internal/config"
	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/repository"
	"github.com/capledger/capledger/internal/services/capacity"
	"github.com/capledger/capledger/internal/testutil"
)

// seedTestModel stores an "oven" resource of size 1 with two overlapping
// bake plans, one of them locked, plus the "filler" changeover fixture.
func seedTestModel(t *testing.T, db *testutil.TestDB) {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewModelRepository(db.DB.DB)
	if err := repo.CreateResource(ctx, nil, testutil.FixtureResource()); err != nil {
		t.Fatalf("creating resource: %v", err)
	}
	if err := repo.CreateOperation(ctx, nil, testutil.FixtureOperation()); err != nil {
		t.Fatalf("creating operation: %v", err)
	}
	if err := repo.CreateLoad(ctx, nil, &models.Load{Operation: "bake", Resource: "oven", Quantity: 1}); err != nil {
		t.Fatalf("creating load: %v", err)
	}

	plans := repository.NewOperationPlanRepository(db.DB.DB)
	for _, p := range []*models.OperationPlan{
		testutil.FixtureOperationPlan("bake", func(p *models.OperationPlan) { p.ID = "P1" }),
		testutil.FixtureOperationPlan("bake", func(p *models.OperationPlan) {
			p.ID = "P2"
			p.Locked = true
			p.Start, p.End = testutil.Hour(1), testutil.Hour(3)
		}),
	} {
		if err := plans.Create(ctx, nil, p); err != nil {
			t.Fatalf("creating plan %s: %v", p.ID, err)
		}
	}
	testutil.SeedChangeovers(t, db)
}

// testConfig returns a config with a fixed two day horizon in day buckets.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Planning.CurrentDate = "2024-05-01T00:00:00Z"
	cfg.Planning.HorizonDays = 2
	cfg.Report.Bucket = "day"
	cfg.Database.BackupBeforeExport = false
	return cfg
}

// newTestApp creates an App backed by a seeded in-memory database. The
// window is set to 120x40 and marked ready.
func newTestApp(t *testing.T) (*App, *testutil.TestDB) {
	t.Helper()

	db := testutil.NewTestDB(t)
	seedTestModel(t, db)

	cfg := testConfig()
	app := New(db.DB, cfg, capacity.NewService(db.DB, cfg))

	// Simulate a window size message to make the app ready
	app.width = 120
	app.height = 40
	app.ready = true
	app.updateViewDimensions()

	return app, db
}

// runCmd executes a command and feeds the resulting messages back into
// the app, expanding batches.
func runCmd(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			runCmd(t, app, c)
		}
	case tea.QuitMsg:
	default:
		_, next := app.Update(msg)
		runCmd(t, app, next)
	}
}

// press sends a key to the app and runs the resulting commands.
func press(t *testing.T, app *App, msg tea.KeyMsg) {
	t.Helper()
	_, cmd := app.Update(msg)
	runCmd(t, app, cmd)
}

// keyMsg creates a tea.KeyMsg for a regular character key.
func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// specialKeyMsg creates a tea.KeyMsg for a special key type.
func specialKeyMsg(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}
