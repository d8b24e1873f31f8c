package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/capledger/capledger/internal/config"

	_ "modernc.org/sqlite"
)

// NewInMemory creates an in-memory database. It enables foreign keys but
// does not run migrations.
func NewInMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	db := &DB{DB: sqlDB, path: ":memory:", config: config.DatabaseConfig{Path: ":memory:"}}
	if err := db.applyPragmas(memoryModePragmas); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// NewMigratedInMemory creates an in-memory database with the schema applied.
func NewMigratedInMemory(ctx context.Context) (*DB, error) {
	db, err := NewInMemory()
	if err != nil {
		return nil, err
	}
	m, err := NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := m.MigrateUp(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
