// Package database manages the SQLite store holding the planning model and
// the exported capacity reports.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/capledger/capledger/internal/config"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned when using a closed database.
var ErrClosed = errors.New("database is closed")

// DB wraps a sql.DB with backups, transactions and health checks.
type DB struct {
	*sql.DB
	path      string
	config    config.DatabaseConfig
	backupDir string

	mu     sync.RWMutex
	closed bool
}

// Open connects to the database file, creating it if needed, and applies
// the connection pragmas.
func Open(dbPath string, cfg config.DatabaseConfig, backupDir string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_txlock=immediate&_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	db := &DB{DB: sqlDB, path: dbPath, config: cfg, backupDir: backupDir}

	if err := db.applyPragmas(fileModePragmas); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initializing pragmas: %w", err)
	}

	if err := db.CheckIntegrity(context.Background()); err != nil {
		slog.Warn("database integrity check failed", "path", dbPath, "error", err)
	}

	return db, nil
}

var fileModePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA cache_size=-16000",
}

var memoryModePragmas = []string{
	"PRAGMA foreign_keys=ON",
}

func (db *DB) applyPragmas(pragmas []string) error {
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// CheckIntegrity runs PRAGMA integrity_check.
func (db *DB) CheckIntegrity(ctx context.Context) error {
	rows, err := db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return fmt.Errorf("running integrity check: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating results: %w", err)
	}

	if len(results) == 1 && results[0] == "ok" {
		return nil
	}
	return fmt.Errorf("integrity check failed: %s", strings.Join(results, "; "))
}

// Checkpoint flushes the WAL into the main database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	if db.path == ":memory:" {
		return nil
	}
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	return nil
}

// Backup copies the database into the backup directory with VACUUM INTO
// and prunes backups older than the retention period.
func (db *DB) Backup(ctx context.Context) (string, error) {
	if db.backupDir == "" {
		return "", errors.New("backup directory not configured")
	}

	name := fmt.Sprintf("capledger-%s.db", time.Now().Format("20060102-150405.000"))
	backupPath := filepath.Join(db.backupDir, name)

	if err := db.Checkpoint(ctx); err != nil {
		slog.Warn("checkpoint before backup failed", "error", err)
	}

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", backupPath); err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	slog.Info("database backup created", "path", backupPath)

	if db.config.BackupRetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -db.config.BackupRetentionDays)
		if n, err := PruneBackups(db.backupDir, cutoff); err != nil {
			slog.Warn("pruning backups", "error", err)
		} else if n > 0 {
			slog.Debug("pruned old backups", "count", n)
		}
	}

	return backupPath, nil
}

// PruneBackups removes backup files in dir last modified before cutoff and
// returns how many were removed.
func PruneBackups(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading backup directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("removing old backup", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Close checkpoints and closes the database. Closing twice is a no-op.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		slog.Warn("final checkpoint failed", "error", err)
	}

	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	slog.Debug("database closed", "path", db.path)
	return nil
}

// IsClosed reports whether Close was called.
func (db *DB) IsClosed() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.closed
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// BeginTx starts a transaction, failing with ErrClosed after Close.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	if db.IsClosed() {
		return nil, ErrClosed
	}
	return db.DB.BeginTx(ctx, opts)
}

// WithTransaction runs fn in a transaction, committing when it returns nil
// and rolling back otherwise.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	return RunInTx(tx, fn)
}

// RunInTx runs fn on an open transaction and finishes it. It is split from
// WithTransaction so callers holding a plain *sql.DB can share it.
func RunInTx(tx *sql.Tx, fn func(tx *sql.Tx) error) error {
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// HealthCheck verifies the connection answers queries.
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.IsClosed() {
		return ErrClosed
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("health check query: %w", err)
	}
	if one != 1 {
		return errors.New("unexpected health check result")
	}
	return nil
}

// Stats describes the database file.
type Stats struct {
	Path          string `json:"path"`
	SizeBytes     int64  `json:"size_bytes"`
	PageCount     int64  `json:"page_count"`
	PageSize      int64  `json:"page_size"`
	SchemaVersion int64  `json:"schema_version"`
	JournalMode   string `json:"journal_mode"`
}

// GetStats collects file and page statistics. Individual pragma failures
// are logged and leave the field zero.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	if db.IsClosed() {
		return nil, ErrClosed
	}
	stats := &Stats{Path: db.path}
	if info, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = info.Size()
	}

	for pragma, dest := range map[string]any{
		"PRAGMA page_count":     &stats.PageCount,
		"PRAGMA page_size":      &stats.PageSize,
		"PRAGMA schema_version": &stats.SchemaVersion,
		"PRAGMA journal_mode":   &stats.JournalMode,
	} {
		if err := db.QueryRowContext(ctx, pragma).Scan(dest); err != nil {
			slog.Warn("reading database stat", "pragma", pragma, "error", err)
		}
	}
	return stats, nil
}
