package database

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Description string
	UpSQL       string
	DownSQL     string
	Applied     bool
	AppliedAt   time.Time
}

// MigrationResult reports a migration run.
type MigrationResult struct {
	Applied       []Migration
	FromVersion   int
	TargetVersion int
}

// Migrator applies the embedded migrations. Files are named
// NNN_description.sql and split into sections by "-- +migrate Up" and
// "-- +migrate Down" markers.
type Migrator struct {
	db         *DB
	migrations []Migration
}

var migrationName = regexp.MustCompile(`^(\d{3})_(.+)\.sql$`)

// NewMigrator loads the migrations and creates the bookkeeping table.
func NewMigrator(db *DB) (*Migrator, error) {
	migrations, err := loadMigrations(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	m := &Migrator{db: db, migrations: migrations}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		)
	`); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}
	return m, nil
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		match := migrationName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			slog.Warn("skipping migration file", "name", entry.Name())
			continue
		}
		version, _ := strconv.Atoi(match[1])
		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		up, down := parseMigration(string(content))
		out = append(out, Migration{
			Version:     version,
			Description: strings.ReplaceAll(match[2], "_", " "),
			UpSQL:       up,
			DownSQL:     down,
		})
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %03d", out[i].Version)
		}
	}
	return out, nil
}

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// parseMigration splits file content into its up and down sections. A
// file without markers is entirely up.
func parseMigration(content string) (up, down string) {
	upIdx := strings.Index(content, upMarker)
	downIdx := strings.Index(content, downMarker)

	switch {
	case upIdx < 0:
		return strings.TrimSpace(content), ""
	case downIdx < 0:
		return strings.TrimSpace(content[upIdx+len(upMarker):]), ""
	case upIdx < downIdx:
		return strings.TrimSpace(content[upIdx+len(upMarker) : downIdx]),
			strings.TrimSpace(content[downIdx+len(downMarker):])
	default:
		return strings.TrimSpace(content[upIdx+len(upMarker):]),
			strings.TrimSpace(content[downIdx+len(downMarker) : upIdx])
	}
}

// Migrations returns the known migrations in version order.
func (m *Migrator) Migrations() []Migration {
	return slices.Clone(m.migrations)
}

// LatestVersion returns the highest known migration version.
func (m *Migrator) LatestVersion() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

// CurrentVersion returns the highest applied version.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("querying current version: %w", err)
	}
	return version, nil
}

// MigrateUp applies every pending migration.
func (m *Migrator) MigrateUp(ctx context.Context) (*MigrationResult, error) {
	return m.MigrateTo(ctx, m.LatestVersion())
}

// MigrateDown rolls back the latest applied migration.
func (m *Migrator) MigrateDown(ctx context.Context) (*MigrationResult, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	if current == 0 {
		return &MigrationResult{}, errors.New("no migrations to roll back")
	}
	target := 0
	for _, mig := range m.migrations {
		if mig.Version < current {
			target = mig.Version
		}
	}
	return m.MigrateTo(ctx, target)
}

// MigrateTo moves the schema up or down to the target version.
func (m *Migrator) MigrateTo(ctx context.Context, target int) (*MigrationResult, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	result := &MigrationResult{FromVersion: current, TargetVersion: target}
	if target == current {
		slog.Debug("database schema is up to date", "version", current)
		return result, nil
	}

	up := target > current
	steps := slices.Clone(m.migrations)
	if !up {
		slices.Reverse(steps)
	}
	for _, mig := range steps {
		if up && (mig.Version <= current || mig.Version > target) {
			continue
		}
		if !up && (mig.Version > current || mig.Version <= target) {
			continue
		}
		slog.Info("running migration", "version", mig.Version, "description", mig.Description, "up", up)
		if err := m.run(ctx, mig, up); err != nil {
			return result, fmt.Errorf("migration %03d: %w", mig.Version, err)
		}
		mig.Applied = up
		mig.AppliedAt = time.Now()
		result.Applied = append(result.Applied, mig)
	}
	return result, nil
}

// run applies or reverts one migration in a transaction.
func (m *Migrator) run(ctx context.Context, mig Migration, up bool) error {
	script := mig.UpSQL
	if !up {
		if mig.DownSQL == "" {
			return errors.New("no rollback SQL")
		}
		script = mig.DownSQL
	}
	return m.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range splitStatements(script) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("executing statement: %w\nSQL: %s", err, stmt)
			}
		}
		var err error
		if up {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
				mig.Version, mig.Description)
		} else {
			_, err = tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", mig.Version)
		}
		if err != nil {
			return fmt.Errorf("recording migration: %w", err)
		}
		return nil
	})
}

// Status returns every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at string
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		t, _ := time.Parse(time.RFC3339, at)
		applied[version] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	out := m.Migrations()
	for i := range out {
		if t, ok := applied[out[i].Version]; ok {
			out[i].Applied = true
			out[i].AppliedAt = t
		}
	}
	return out, nil
}

// splitStatements splits a script on semicolons outside of quotes and
// drops line comments.
func splitStatements(script string) []string {
	var statements []string
	var cur strings.Builder
	var quote rune

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			statements = append(statements, s)
		}
		cur.Reset()
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case quote != 0:
			cur.WriteRune(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
			cur.WriteRune(ch)
		case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			cur.WriteRune('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteRune(ch)
		}
	}
	flush()
	return statements
}
