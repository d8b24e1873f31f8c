package seed

import (
	"context"
	"testing"
	"time"

	"github.com/capledger/capledger/internal/planning"
	"github.com/capledger/capledger/internal/repository"
	"github.com/capledger/capledger/internal/testutil"
)

func TestGenerator_Generate(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	cfg := DefaultConfig(time.Date(2024, 5, 6, 13, 0, 0, 0, time.UTC))
	cfg.Days = 14
	gen := NewGenerator(db.DB.DB, cfg)
	if err := gen.Generate(ctx); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gen.planCount == 0 || gen.changeoverCount == 0 {
		t.Fatalf("generated %d plans, %d changeovers", gen.planCount, gen.changeoverCount)
	}
	db.AssertRowCount(t, "operationplans", gen.planCount)
	db.AssertRowCount(t, "resources", cfg.Machines+2)
	db.AssertRowCount(t, "items", len(Colors))

	m, err := repository.NewModelRepository(db.DB.DB).Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(m.OperationPlans(nil)); got != gen.planCount {
		t.Errorf("loaded %d plans, want %d", got, gen.planCount)
	}
	if got := len(m.OperationPlans(m.Changeover())); got != gen.changeoverCount {
		t.Errorf("loaded %d changeovers, want %d", got, gen.changeoverCount)
	}

	trucks, err := m.Resource("trucks")
	if err != nil {
		t.Fatal(err)
	}
	if trucks.Kind() != planning.KindBuckets {
		t.Errorf("trucks kind = %v", trucks.Kind())
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	cfg.Days = 7

	var counts []int
	var lastIDs []string
	for range 2 {
		db := testutil.NewTestDB(t)
		gen := NewGenerator(db.DB.DB, cfg)
		if err := gen.Generate(ctx); err != nil {
			t.Fatal(err)
		}
		counts = append(counts, gen.changeoverCount)

		var id string
		if err := db.QueryRow(`SELECT MAX(id) FROM operationplans`).Scan(&id); err != nil {
			t.Fatal(err)
		}
		lastIDs = append(lastIDs, id)
	}
	if counts[0] != counts[1] {
		t.Errorf("changeover counts differ between runs: %v", counts)
	}
	if lastIDs[0] != lastIDs[1] {
		t.Errorf("plan identifiers differ between runs: %v", lastIDs)
	}
}
