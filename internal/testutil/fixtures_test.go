package testutil

import "testing"

func TestSeedChangeovers_AfterExistingLoads(t *testing.T) {
	db := NewTestDB(t)
	db.ExecSQL(t, `INSERT INTO resources (name, type, maximum) VALUES ('oven', 'default', 1)`)
	db.ExecSQL(t, `INSERT INTO operations (name, duration_seconds) VALUES ('bake', 7200)`)
	for range 2 {
		db.InsertSQL(t, `INSERT INTO loads (operation, resource, quantity) VALUES ('bake', 'oven', 1)`)
	}

	SeedChangeovers(t, db)

	db.AssertRowCount(t, "loads", 4)
	db.AssertRowCount(t, "operationplans", 3)

	tests := []struct {
		plan  string
		setup string
	}{
		{"A", "Y"},
		{"B", "X"},
		{"C", "Y"},
	}
	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			var resource, setup string
			err := db.QueryRow(`
				SELECT l.resource, l.setup FROM operationplans p JOIN loads l ON l.id = p.load_id
				WHERE p.id = ?`, tt.plan).Scan(&resource, &setup)
			if err != nil {
				t.Fatalf("plan %s load: %v", tt.plan, err)
			}
			if resource != "filler" || setup != tt.setup {
				t.Errorf("plan %s loads %s/%s, want filler/%s", tt.plan, resource, setup, tt.setup)
			}
		})
	}
}
