package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// RecoveryResult is the outcome of Recover.
type RecoveryResult int

const (
	// RecoveryNotNeeded means the file is missing or passed its integrity check.
	RecoveryNotNeeded RecoveryResult = iota
	// RecoveryFromBackup means the file was replaced by the newest valid backup.
	RecoveryFromBackup
	// RecoveryFailed means no valid backup could replace a damaged file.
	RecoveryFailed
)

func (r RecoveryResult) String() string {
	switch r {
	case RecoveryNotNeeded:
		return "not_needed"
	case RecoveryFromBackup:
		return "restored_from_backup"
	case RecoveryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RecoveryReport describes what Recover did.
type RecoveryReport struct {
	Result     RecoveryResult
	Path       string
	BackupUsed string
	Preserved  string
	Problem    string
}

// Recover checks the database file before it is opened. A damaged file is
// moved aside and replaced with the newest backup that passes its own
// integrity check.
func Recover(dbPath, backupDir string) (*RecoveryReport, error) {
	report := &RecoveryReport{Path: dbPath}

	if dbPath == ":memory:" {
		return report, nil
	}
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return report, nil
	}

	problem := checkFile(dbPath)
	if problem == nil {
		return report, nil
	}
	report.Problem = problem.Error()
	slog.Warn("database failed integrity check", "path", dbPath, "error", problem)

	if backupDir == "" {
		report.Result = RecoveryFailed
		return report, fmt.Errorf("database damaged and no backup directory: %w", problem)
	}

	backup, err := newestValidBackup(backupDir)
	if err != nil {
		report.Result = RecoveryFailed
		return report, fmt.Errorf("recovering %s: %w", dbPath, err)
	}

	report.Preserved = dbPath + ".corrupted." + time.Now().Format("20060102-150405")
	if err := os.Rename(dbPath, report.Preserved); err != nil {
		slog.Warn("preserving damaged database", "path", dbPath, "error", err)
		report.Preserved = ""
	}
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")

	if err := copyFile(backup, dbPath); err != nil {
		report.Result = RecoveryFailed
		return report, fmt.Errorf("restoring backup: %w", err)
	}

	report.Result = RecoveryFromBackup
	report.BackupUsed = backup
	slog.Info("database restored from backup", "path", dbPath, "backup", backup)
	return report, nil
}

// checkFile opens the file read-only and runs the integrity check.
func checkFile(path string) error {
	sqlDB, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var results []string
	rows, err := sqlDB.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return fmt.Errorf("running integrity check: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating results: %w", err)
	}
	if len(results) == 1 && results[0] == "ok" {
		return nil
	}
	return fmt.Errorf("integrity check failed: %s", strings.Join(results, "; "))
}

// newestValidBackup returns the most recently modified backup that passes
// its integrity check.
func newestValidBackup(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading backup directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{filepath.Join(dir, entry.Name()), info.ModTime()})
	}
	if len(candidates) == 0 {
		return "", errors.New("no backup files found")
	}

	slices.SortFunc(candidates, func(a, b candidate) int { return b.mod.Compare(a.mod) })
	for _, c := range candidates {
		if err := checkFile(c.path); err != nil {
			slog.Debug("skipping backup", "path", c.path, "error", err)
			continue
		}
		return c.path, nil
	}
	return "", errors.New("no valid backup found")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return out.Sync()
}
