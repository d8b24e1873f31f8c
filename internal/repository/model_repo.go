package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/capledger/capledger/internal/models"
)

// ModelRepository handles the master data of the planning model:
// calendars, locations, setup matrices, resources, operations, loads and
// items.
type ModelRepository struct {
	db *sql.DB
}

// NewModelRepository creates a new model repository.
func NewModelRepository(db *sql.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// ============================================================================
// CALENDARS
// ============================================================================

// CreateCalendar inserts a calendar with its buckets.
func (r *ModelRepository) CreateCalendar(ctx context.Context, tx *sql.Tx, cal *models.Calendar) error {
	if err := cal.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	exec := getExecer(r.db, tx)
	if _, err := exec.ExecContext(ctx,
		`INSERT INTO calendars (name, default_value) VALUES (?, ?)`,
		cal.Name, cal.Default,
	); err != nil {
		return fmt.Errorf("inserting calendar: %w", err)
	}

	for _, b := range cal.Buckets {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO calendar_buckets (calendar, startdate, value) VALUES (?, ?, ?)`,
			cal.Name, formatTime(b.Start), b.Value,
		); err != nil {
			return fmt.Errorf("inserting calendar bucket: %w", err)
		}
	}
	return nil
}

// GetCalendar retrieves a calendar and its buckets by name.
func (r *ModelRepository) GetCalendar(ctx context.Context, name string) (*models.Calendar, error) {
	var cal models.Calendar
	err := r.db.QueryRowContext(ctx,
		`SELECT name, default_value FROM calendars WHERE name = ?`, name,
	).Scan(&cal.Name, &cal.Default)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("calendar %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning calendar: %w", err)
	}

	buckets, err := r.listCalendarBuckets(ctx, name)
	if err != nil {
		return nil, err
	}
	cal.Buckets = buckets[name]
	return &cal, nil
}

// ListCalendars retrieves all calendars ordered by name.
func (r *ModelRepository) ListCalendars(ctx context.Context) ([]*models.Calendar, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, default_value FROM calendars ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying calendars: %w", err)
	}
	defer rows.Close()

	var cals []*models.Calendar
	for rows.Next() {
		var cal models.Calendar
		if err := rows.Scan(&cal.Name, &cal.Default); err != nil {
			return nil, fmt.Errorf("scanning calendar row: %w", err)
		}
		cals = append(cals, &cal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating calendars: %w", err)
	}

	buckets, err := r.listCalendarBuckets(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, cal := range cals {
		cal.Buckets = buckets[cal.Name]
	}
	return cals, nil
}

// listCalendarBuckets returns buckets per calendar, all calendars when
// name is empty.
func (r *ModelRepository) listCalendarBuckets(ctx context.Context, name string) (map[string][]models.CalendarBucket, error) {
	query := `SELECT calendar, startdate, value FROM calendar_buckets`
	var args []any
	if name != "" {
		query += ` WHERE calendar = ?`
		args = append(args, name)
	}
	query += ` ORDER BY calendar, startdate`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying calendar buckets: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.CalendarBucket)
	for rows.Next() {
		var cal, start string
		var b models.CalendarBucket
		if err := rows.Scan(&cal, &start, &b.Value); err != nil {
			return nil, fmt.Errorf("scanning calendar bucket: %w", err)
		}
		if b.Start, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("calendar %s bucket date: %w", cal, err)
		}
		out[cal] = append(out[cal], b)
	}
	return out, rows.Err()
}

// ============================================================================
// LOCATIONS / SETUP MATRICES
// ============================================================================

// CreateLocation inserts a location.
func (r *ModelRepository) CreateLocation(ctx context.Context, tx *sql.Tx, loc *models.Location) error {
	if loc.Name == "" {
		return fmt.Errorf("validation failed: %w: location name is required", models.ErrInvalid)
	}
	_, err := getExecer(r.db, tx).ExecContext(ctx,
		`INSERT INTO locations (name, available) VALUES (?, ?)`,
		loc.Name, nullableString(loc.Available),
	)
	if err != nil {
		return fmt.Errorf("inserting location: %w", err)
	}
	return nil
}

// ListLocations retrieves all locations ordered by name.
func (r *ModelRepository) ListLocations(ctx context.Context) ([]*models.Location, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, available FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var locs []*models.Location
	for rows.Next() {
		var loc models.Location
		var avail sql.NullString
		if err := rows.Scan(&loc.Name, &avail); err != nil {
			return nil, fmt.Errorf("scanning location row: %w", err)
		}
		loc.Available = avail.String
		locs = append(locs, &loc)
	}
	return locs, rows.Err()
}

// CreateSetupMatrix inserts a setup matrix with its rules.
func (r *ModelRepository) CreateSetupMatrix(ctx context.Context, tx *sql.Tx, m *models.SetupMatrix) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	exec := getExecer(r.db, tx)
	if _, err := exec.ExecContext(ctx, `INSERT INTO setup_matrices (name) VALUES (?)`, m.Name); err != nil {
		return fmt.Errorf("inserting setup matrix: %w", err)
	}
	for i := range m.Rules {
		rule := &m.Rules[i]
		res, err := exec.ExecContext(ctx, `
			INSERT INTO setup_rules (setupmatrix, priority, fromsetup, tosetup, duration_seconds, cost)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.Name, rule.Priority, rule.From, rule.To, int64(rule.Duration/time.Second), rule.Cost,
		)
		if err != nil {
			return fmt.Errorf("inserting setup rule: %w", err)
		}
		if rule.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading setup rule id: %w", err)
		}
	}
	return nil
}

// ListSetupMatrices retrieves all setup matrices with their rules.
func (r *ModelRepository) ListSetupMatrices(ctx context.Context) ([]*models.SetupMatrix, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.name, s.id, s.priority, s.fromsetup, s.tosetup, s.duration_seconds, s.cost
		FROM setup_matrices m
		LEFT JOIN setup_rules s ON s.setupmatrix = m.name
		ORDER BY m.name, s.priority, s.id`)
	if err != nil {
		return nil, fmt.Errorf("querying setup matrices: %w", err)
	}
	defer rows.Close()

	var out []*models.SetupMatrix
	for rows.Next() {
		var name string
		var id, priority, seconds sql.NullInt64
		var from, to sql.NullString
		var cost sql.NullFloat64
		if err := rows.Scan(&name, &id, &priority, &from, &to, &seconds, &cost); err != nil {
			return nil, fmt.Errorf("scanning setup matrix row: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Name != name {
			out = append(out, &models.SetupMatrix{Name: name})
		}
		if !id.Valid {
			continue
		}
		m := out[len(out)-1]
		m.Rules = append(m.Rules, models.SetupRule{
			ID:       id.Int64,
			Priority: int(priority.Int64),
			From:     from.String,
			To:       to.String,
			Duration: time.Duration(seconds.Int64) * time.Second,
			Cost:     cost.Float64,
		})
	}
	return out, rows.Err()
}

// ============================================================================
// RESOURCES
// ============================================================================

const resourceColumns = `name, type, maximum, maximum_calendar, available, location, setupmatrix, setup`

// CreateResource inserts a resource.
func (r *ModelRepository) CreateResource(ctx context.Context, tx *sql.Tx, res *models.Resource) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	_, err := getExecer(r.db, tx).ExecContext(ctx,
		`INSERT INTO resources (`+resourceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Name,
		string(res.Type),
		res.Maximum,
		nullableString(res.MaximumCalendar),
		nullableString(res.Available),
		nullableString(res.Location),
		nullableString(res.SetupMatrix),
		res.Setup,
	)
	if err != nil {
		return fmt.Errorf("inserting resource: %w", err)
	}
	return nil
}

// UpdateResource modifies an existing resource.
func (r *ModelRepository) UpdateResource(ctx context.Context, tx *sql.Tx, res *models.Resource) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	result, err := getExecer(r.db, tx).ExecContext(ctx, `
		UPDATE resources SET
			type = ?, maximum = ?, maximum_calendar = ?, available = ?,
			location = ?, setupmatrix = ?, setup = ?
		WHERE name = ?`,
		string(res.Type),
		res.Maximum,
		nullableString(res.MaximumCalendar),
		nullableString(res.Available),
		nullableString(res.Location),
		nullableString(res.SetupMatrix),
		res.Setup,
		res.Name,
	)
	if err != nil {
		return fmt.Errorf("updating resource: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("resource %s: %w", res.Name, ErrNotFound)
	}
	return nil
}

// GetResource retrieves a resource by name.
func (r *ModelRepository) GetResource(ctx context.Context, name string) (*models.Resource, error) {
	return r.scanResource(r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE name = ?`, name))
}

// ListResources retrieves all resources ordered by name.
func (r *ModelRepository) ListResources(ctx context.Context) ([]*models.Resource, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying resources: %w", err)
	}
	defer rows.Close()

	var out []*models.Resource
	for rows.Next() {
		res, err := r.scanResourceRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resources: %w", err)
	}
	return out, nil
}

// DeleteResource removes a resource together with the operation plans of
// every operation loading it. Loads go with the resource; supplier and
// distribution records keep their row with the resource cleared.
func (r *ModelRepository) DeleteResource(ctx context.Context, tx *sql.Tx, name string) error {
	exec := getExecer(r.db, tx)
	if _, err := exec.ExecContext(ctx, `
		DELETE FROM operationplans
		WHERE operation IN (SELECT operation FROM loads WHERE resource = ?)`,
		name,
	); err != nil {
		return fmt.Errorf("deleting operation plans of resource: %w", err)
	}

	result, err := exec.ExecContext(ctx, `DELETE FROM resources WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting resource: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("resource %s: %w", name, ErrNotFound)
	}
	return nil
}

// ============================================================================
// OPERATIONS / LOADS
// ============================================================================

// CreateOperation inserts an operation.
func (r *ModelRepository) CreateOperation(ctx context.Context, tx *sql.Tx, op *models.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	_, err := getExecer(r.db, tx).ExecContext(ctx,
		`INSERT INTO operations (name, type, duration_seconds) VALUES (?, ?, ?)`,
		op.Name, string(op.Type), int64(op.Duration/time.Second),
	)
	if err != nil {
		return fmt.Errorf("inserting operation: %w", err)
	}
	return nil
}

// ListOperations retrieves all operations ordered by name.
func (r *ModelRepository) ListOperations(ctx context.Context) ([]*models.Operation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, type, duration_seconds FROM operations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()

	var out []*models.Operation
	for rows.Next() {
		var op models.Operation
		var typ string
		var seconds int64
		if err := rows.Scan(&op.Name, &typ, &seconds); err != nil {
			return nil, fmt.Errorf("scanning operation row: %w", err)
		}
		op.Type = models.OperationType(typ)
		op.Duration = time.Duration(seconds) * time.Second
		out = append(out, &op)
	}
	return out, rows.Err()
}

// CreateLoad inserts a load and sets its ID.
func (r *ModelRepository) CreateLoad(ctx context.Context, tx *sql.Tx, l *models.Load) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	result, err := getExecer(r.db, tx).ExecContext(ctx,
		`INSERT INTO loads (operation, resource, quantity, setup) VALUES (?, ?, ?, ?)`,
		l.Operation, l.Resource, l.Quantity, l.Setup,
	)
	if err != nil {
		return fmt.Errorf("inserting load: %w", err)
	}
	if l.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading load id: %w", err)
	}
	return nil
}

// ListLoads retrieves all loads in insertion order.
func (r *ModelRepository) ListLoads(ctx context.Context) ([]*models.Load, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, operation, resource, quantity, setup FROM loads ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying loads: %w", err)
	}
	defer rows.Close()

	var out []*models.Load
	for rows.Next() {
		var l models.Load
		if err := rows.Scan(&l.ID, &l.Operation, &l.Resource, &l.Quantity, &l.Setup); err != nil {
			return nil, fmt.Errorf("scanning load row: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ============================================================================
// ITEMS
// ============================================================================

// CreateItem inserts an item.
func (r *ModelRepository) CreateItem(ctx context.Context, tx *sql.Tx, item *models.Item) error {
	if item.Name == "" {
		return fmt.Errorf("validation failed: %w: item name is required", models.ErrInvalid)
	}
	if _, err := getExecer(r.db, tx).ExecContext(ctx, `INSERT INTO items (name) VALUES (?)`, item.Name); err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// ListItems retrieves all items ordered by name.
func (r *ModelRepository) ListItems(ctx context.Context) ([]*models.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var out []*models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.Name); err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

// CreateItemSupplier inserts a supplier record and sets its ID.
func (r *ModelRepository) CreateItemSupplier(ctx context.Context, tx *sql.Tx, s *models.ItemSupplier) error {
	result, err := getExecer(r.db, tx).ExecContext(ctx,
		`INSERT INTO item_suppliers (item, supplier, resource, resource_qty) VALUES (?, ?, ?, ?)`,
		s.Item, s.Supplier, nullableStringPtr(s.Resource), s.ResourceQuantity,
	)
	if err != nil {
		return fmt.Errorf("inserting item supplier: %w", err)
	}
	if s.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading item supplier id: %w", err)
	}
	return nil
}

// ListItemSuppliers retrieves all supplier records in insertion order.
func (r *ModelRepository) ListItemSuppliers(ctx context.Context) ([]*models.ItemSupplier, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item, supplier, resource, resource_qty FROM item_suppliers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying item suppliers: %w", err)
	}
	defer rows.Close()

	var out []*models.ItemSupplier
	for rows.Next() {
		var s models.ItemSupplier
		var res sql.NullString
		if err := rows.Scan(&s.ID, &s.Item, &s.Supplier, &res, &s.ResourceQuantity); err != nil {
			return nil, fmt.Errorf("scanning item supplier row: %w", err)
		}
		if res.Valid {
			s.Resource = &res.String
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// CreateItemDistribution inserts a distribution record and sets its ID.
func (r *ModelRepository) CreateItemDistribution(ctx context.Context, tx *sql.Tx, d *models.ItemDistribution) error {
	result, err := getExecer(r.db, tx).ExecContext(ctx,
		`INSERT INTO item_distributions (item, origin, resource, resource_qty) VALUES (?, ?, ?, ?)`,
		d.Item, d.Origin, nullableStringPtr(d.Resource), d.ResourceQuantity,
	)
	if err != nil {
		return fmt.Errorf("inserting item distribution: %w", err)
	}
	if d.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading item distribution id: %w", err)
	}
	return nil
}

// ListItemDistributions retrieves all distribution records in insertion order.
func (r *ModelRepository) ListItemDistributions(ctx context.Context) ([]*models.ItemDistribution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item, origin, resource, resource_qty FROM item_distributions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying item distributions: %w", err)
	}
	defer rows.Close()

	var out []*models.ItemDistribution
	for rows.Next() {
		var d models.ItemDistribution
		var res sql.NullString
		if err := rows.Scan(&d.ID, &d.Item, &d.Origin, &res, &d.ResourceQuantity); err != nil {
			return nil, fmt.Errorf("scanning item distribution row: %w", err)
		}
		if res.Valid {
			d.Resource = &res.String
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// ============================================================================
// HELPERS
// ============================================================================

func (r *ModelRepository) scanResource(row *sql.Row) (*models.Resource, error) {
	var res models.Resource
	var typ string
	var maxCal, avail, loc, matrix sql.NullString

	err := row.Scan(&res.Name, &typ, &res.Maximum, &maxCal, &avail, &loc, &matrix, &res.Setup)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning resource: %w", err)
	}

	res.Type = models.ResourceType(typ)
	res.MaximumCalendar = maxCal.String
	res.Available = avail.String
	res.Location = loc.String
	res.SetupMatrix = matrix.String
	return &res, nil
}

func (r *ModelRepository) scanResourceRow(rows *sql.Rows) (*models.Resource, error) {
	var res models.Resource
	var typ string
	var maxCal, avail, loc, matrix sql.NullString

	if err := rows.Scan(&res.Name, &typ, &res.Maximum, &maxCal, &avail, &loc, &matrix, &res.Setup); err != nil {
		return nil, fmt.Errorf("scanning resource row: %w", err)
	}

	res.Type = models.ResourceType(typ)
	res.MaximumCalendar = maxCal.String
	res.Available = avail.String
	res.Location = loc.String
	res.SetupMatrix = matrix.String
	return &res, nil
}
