package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/capledger/capledger/internal/models"
)

// ResourcePlanRepository stores exported capacity reports.
type ResourcePlanRepository struct {
	db *sql.DB
}

// NewResourcePlanRepository creates a new resource plan repository.
func NewResourcePlanRepository(db *sql.DB) *ResourcePlanRepository {
	return &ResourcePlanRepository{db: db}
}

// Replace swaps the stored report of a resource and bucket type for rows.
func (r *ResourcePlanRepository) Replace(ctx context.Context, tx *sql.Tx, resource, bucket string, rows []models.ResourcePlanRow) error {
	exec := getExecer(r.db, tx)
	if _, err := exec.ExecContext(ctx,
		`DELETE FROM out_resourceplan WHERE resource = ? AND bucket = ?`, resource, bucket,
	); err != nil {
		return fmt.Errorf("clearing resource plan: %w", err)
	}

	for _, row := range rows {
		if row.Resource != resource || row.Bucket != bucket {
			return fmt.Errorf("row for %s/%s in report of %s/%s", row.Resource, row.Bucket, resource, bucket)
		}
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO out_resourceplan (
				resource, bucket, startdate, enddate,
				available, unavailable, setup, load, free
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.Resource,
			row.Bucket,
			formatTime(row.Start),
			formatTime(row.End),
			row.Available,
			row.Unavailable,
			row.Setup,
			row.Load,
			row.Free,
		); err != nil {
			return fmt.Errorf("inserting resource plan row: %w", err)
		}
	}
	return nil
}

// DeleteResource removes every stored report row of a resource.
func (r *ResourcePlanRepository) DeleteResource(ctx context.Context, tx *sql.Tx, resource string) error {
	if _, err := getExecer(r.db, tx).ExecContext(ctx,
		`DELETE FROM out_resourceplan WHERE resource = ?`, resource,
	); err != nil {
		return fmt.Errorf("deleting resource plan: %w", err)
	}
	return nil
}

// List retrieves a page of the stored report in date order, with the total
// row count.
func (r *ResourcePlanRepository) List(ctx context.Context, resource, bucket string, page models.Pagination) ([]models.ResourcePlanRow, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM out_resourceplan WHERE resource = ? AND bucket = ?`, resource, bucket,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting resource plan rows: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT resource, bucket, startdate, enddate, available, unavailable, setup, load, free
		FROM out_resourceplan
		WHERE resource = ? AND bucket = ?
		ORDER BY startdate
		LIMIT ? OFFSET ?`,
		resource, bucket, page.Limit(), page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying resource plan: %w", err)
	}
	defer rows.Close()

	var out []models.ResourcePlanRow
	for rows.Next() {
		row, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating resource plan: %w", err)
	}
	return out, total, nil
}

func (r *ResourcePlanRepository) scanRow(rows *sql.Rows) (models.ResourcePlanRow, error) {
	var row models.ResourcePlanRow
	var start, end string
	if err := rows.Scan(
		&row.Resource, &row.Bucket, &start, &end,
		&row.Available, &row.Unavailable, &row.Setup, &row.Load, &row.Free,
	); err != nil {
		return row, fmt.Errorf("scanning resource plan row: %w", err)
	}
	var err error
	if row.Start, err = parseTime(start); err != nil {
		return row, fmt.Errorf("resource plan start: %w", err)
	}
	if row.End, err = parseTime(end); err != nil {
		return row, fmt.Errorf("resource plan end: %w", err)
	}
	return row, nil
}
