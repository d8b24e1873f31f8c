package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/capledger/capledger/internal/models"
)

// OperationPlanRepository handles operation plan data access.
type OperationPlanRepository struct {
	db *sql.DB
}

// NewOperationPlanRepository creates a new operation plan repository.
func NewOperationPlanRepository(db *sql.DB) *OperationPlanRepository {
	return &OperationPlanRepository{db: db}
}

const planColumns = `id, operation, quantity, startdate, enddate, locked, load_id`

// Create inserts an operation plan.
func (r *OperationPlanRepository) Create(ctx context.Context, tx *sql.Tx, p *models.OperationPlan) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	_, err := getExecer(r.db, tx).ExecContext(ctx,
		`INSERT INTO operationplans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Operation,
		p.Quantity,
		formatTime(p.Start),
		formatTime(p.End),
		boolToInt(p.Locked),
		nullableInt64Ptr(p.LoadID),
	)
	if err != nil {
		return fmt.Errorf("inserting operation plan: %w", err)
	}
	return nil
}

// UpdateDates stores new dates for a plan, for instance after a changeover
// was re-timed.
func (r *OperationPlanRepository) UpdateDates(ctx context.Context, tx *sql.Tx, p *models.OperationPlan) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	result, err := getExecer(r.db, tx).ExecContext(ctx,
		`UPDATE operationplans SET quantity = ?, startdate = ?, enddate = ?, locked = ? WHERE id = ?`,
		p.Quantity, formatTime(p.Start), formatTime(p.End), boolToInt(p.Locked), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating operation plan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("operation plan %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// GetByID retrieves an operation plan by ID.
func (r *OperationPlanRepository) GetByID(ctx context.Context, id string) (*models.OperationPlan, error) {
	return r.scanPlan(r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM operationplans WHERE id = ?`, id))
}

// List retrieves the plans of an operation, or all plans when operation is
// empty, ordered by start date and ID.
func (r *OperationPlanRepository) List(ctx context.Context, tx *sql.Tx, operation string) ([]*models.OperationPlan, error) {
	query := `SELECT ` + planColumns + ` FROM operationplans`
	var args []any
	if operation != "" {
		query += ` WHERE operation = ?`
		args = append(args, operation)
	}
	query += ` ORDER BY startdate, id`

	rows, err := getQuerier(r.db, tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying operation plans: %w", err)
	}
	defer rows.Close()

	var out []*models.OperationPlan
	for rows.Next() {
		p, err := r.scanPlanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operation plans: %w", err)
	}
	return out, nil
}

// Delete removes a single operation plan.
func (r *OperationPlanRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := getExecer(r.db, tx).ExecContext(ctx, `DELETE FROM operationplans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting operation plan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("operation plan %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteForResource removes the plans of every operation loading the
// resource, skipping locked plans unless deleteLocked is set. Plans of a
// shared operation go even when their loads are on other resources. It
// returns the number of rows removed.
func (r *OperationPlanRepository) DeleteForResource(ctx context.Context, tx *sql.Tx, resource string, deleteLocked bool) (int64, error) {
	query := `
		DELETE FROM operationplans
		WHERE operation IN (SELECT operation FROM loads WHERE resource = ?)`
	if !deleteLocked {
		query += ` AND locked = 0`
	}

	result, err := getExecer(r.db, tx).ExecContext(ctx, query, resource)
	if err != nil {
		return 0, fmt.Errorf("deleting operation plans of %s: %w", resource, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted operation plans: %w", err)
	}
	return n, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (r *OperationPlanRepository) scanPlan(row *sql.Row) (*models.OperationPlan, error) {
	var p models.OperationPlan
	var start, end string
	var locked int
	var loadID sql.NullInt64

	err := row.Scan(&p.ID, &p.Operation, &p.Quantity, &start, &end, &locked, &loadID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning operation plan: %w", err)
	}
	return finishPlan(&p, start, end, locked, loadID)
}

func (r *OperationPlanRepository) scanPlanRow(rows *sql.Rows) (*models.OperationPlan, error) {
	var p models.OperationPlan
	var start, end string
	var locked int
	var loadID sql.NullInt64

	if err := rows.Scan(&p.ID, &p.Operation, &p.Quantity, &start, &end, &locked, &loadID); err != nil {
		return nil, fmt.Errorf("scanning operation plan row: %w", err)
	}
	return finishPlan(&p, start, end, locked, loadID)
}

func finishPlan(p *models.OperationPlan, start, end string, locked int, loadID sql.NullInt64) (*models.OperationPlan, error) {
	var err error
	if p.Start, err = parseTime(start); err != nil {
		return nil, fmt.Errorf("operation plan %s start: %w", p.ID, err)
	}
	if p.End, err = parseTime(end); err != nil {
		return nil, fmt.Errorf("operation plan %s end: %w", p.ID, err)
	}
	p.Locked = locked == 1
	if loadID.Valid {
		id := loadID.Int64
		p.LoadID = &id
	}
	return p, nil
}
