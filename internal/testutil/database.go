// Package testutil provides utilities for testing.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/capledger/capledger/internal/config"
	"github.com/capledger/capledger/internal/database"
)

// TestDB wraps a migrated test database.
type TestDB struct {
	*database.DB
}

// NewTestDB creates a migrated in-memory database that is closed when the
// test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := database.NewMigratedInMemory(context.Background())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &TestDB{DB: db}
}

// NewTestDBWithFile creates a migrated database backed by a temporary
// file, with a backup directory next to it. Useful for debugging tests.
func NewTestDBWithFile(t *testing.T) *TestDB {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	backups := filepath.Join(dir, "backups")

	db, err := database.Open(dbPath, config.DatabaseConfig{Path: dbPath, BackupRetentionDays: 7}, backups)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m, err := database.NewMigrator(db)
	if err != nil {
		t.Fatalf("failed to load migrations: %v", err)
	}
	if _, err := m.MigrateUp(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return &TestDB{DB: db}
}

// AssertRowCount asserts the row count for a table.
func (tdb *TestDB) AssertRowCount(t *testing.T, table string, expected int) {
	t.Helper()

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := tdb.QueryRow(query).Scan(&count); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}

	if count != expected {
		t.Errorf("expected %d rows in %s, got %d", expected, table, count)
	}
}

// InsertSQL executes an insert and returns the generated row id.
func (tdb *TestDB) InsertSQL(t *testing.T, sql string, args ...any) int64 {
	t.Helper()

	result, err := tdb.Exec(sql, args...)
	if err != nil {
		t.Fatalf("failed to execute SQL: %v\nSQL: %s", err, sql)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read inserted id: %v\nSQL: %s", err, sql)
	}
	return id
}

// ExecSQL executes arbitrary SQL (useful for test setup).
func (tdb *TestDB) ExecSQL(t *testing.T, sql string, args ...any) {
	t.Helper()

	if _, err := tdb.Exec(sql, args...); err != nil {
		t.Fatalf("failed to execute SQL: %v\nSQL: %s", err, sql)
	}
}
