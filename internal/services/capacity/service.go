// Package capacity serves capacity reports from the planning model and
// keeps the model and its store in step when plans or resources are
// deleted.
package capacity

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/capledger/capledger/internal/buckets"
	"github.com/capledger/capledger/internal/config"
	"github.com/capledger/capledger/internal/database"
	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/planning"
	"github.com/capledger/capledger/internal/repository"
	"github.com/capledger/capledger/internal/timeline"
)

// Service provides capacity planning operations. It owns the in-memory
// model and serializes access to it.
type Service struct {
	db      *database.DB
	cfg     *config.Config
	master  *repository.ModelRepository
	plans   *repository.OperationPlanRepository
	reports *repository.ResourcePlanRepository

	mu    sync.Mutex
	model *planning.Model
}

// NewService creates a new capacity service. The model is loaded on first
// use or by LoadModel.
func NewService(db *database.DB, cfg *config.Config) *Service {
	return &Service{
		db:      db,
		cfg:     cfg,
		master:  repository.NewModelRepository(db.DB),
		plans:   repository.NewOperationPlanRepository(db.DB),
		reports: repository.NewResourcePlanRepository(db.DB),
	}
}

// LoadModel (re)builds the in-memory model from the store.
func (s *Service) LoadModel(ctx context.Context) error {
	m, err := s.master.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
	return nil
}

// withModel runs fn holding the model lock, loading the model if needed.
func (s *Service) withModel(ctx context.Context, fn func(*planning.Model) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		m, err := s.master.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading model: %w", err)
		}
		s.model = m
	}
	return fn(s.model)
}

// DefaultRequest returns the report request for the configured horizon
// and bucket type.
func (s *Service) DefaultRequest() (ReportRequest, error) {
	start, end, err := s.cfg.Planning.Horizon()
	if err != nil {
		return ReportRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return ReportRequest{Start: start, End: end, Bucket: s.cfg.Report.Bucket}, nil
}

// ============================================================================
// RESOURCES
// ============================================================================

// Resources lists all resources sorted by name.
func (s *Service) Resources(ctx context.Context) ([]ResourceSummary, error) {
	var out []ResourceSummary
	err := s.withModel(ctx, func(m *planning.Model) error {
		for _, r := range m.Resources() {
			out = append(out, summarize(r))
		}
		return nil
	})
	return out, err
}

// Resource describes a single resource.
func (s *Service) Resource(ctx context.Context, name string) (*ResourceSummary, error) {
	var out ResourceSummary
	err := s.withModel(ctx, func(m *planning.Model) error {
		r, err := m.Resource(name)
		if err != nil {
			return err
		}
		out = summarize(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func summarize(r *planning.Resource) ResourceSummary {
	sum := ResourceSummary{
		Name:    r.Name(),
		Kind:    string(r.Kind()),
		Maximum: r.Maximum(),
		Setup:   r.Setup(),
		Loads:   len(r.Loads()),
		Events:  r.Timeline().Len(),
	}
	if c := r.MaximumCalendar(); c != nil {
		sum.MaximumCalendar = c.Name
	}
	if c := r.Available(); c != nil {
		sum.Available = c.Name
	}
	if l := r.Location(); l != nil {
		sum.Location = l.Name
	}
	if sm := r.SetupMatrix(); sm != nil {
		sum.SetupMatrix = sm.Name
	}
	return sum
}

// Events returns the timeline of a resource in order.
func (s *Service) Events(ctx context.Context, name string) ([]EventView, error) {
	var out []EventView
	err := s.withModel(ctx, func(m *planning.Model) error {
		r, err := m.Resource(name)
		if err != nil {
			return err
		}
		for e := range r.Timeline().All() {
			v := EventView{
				Date:     e.Date(),
				Kind:     e.Kind().String(),
				Quantity: e.Quantity(),
				Onhand:   e.Onhand(),
			}
			if e.Kind() == timeline.KindLoad && e.Plan != nil {
				p := e.Plan.OperationPlan()
				v.OperationPlan = p.Identifier()
				v.Operation = p.Operation().Name()
				v.IsStart = e.Plan.IsStart()
			} else {
				v.Value = e.Value()
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// Inspect logs the timeline of a resource at debug level.
func (s *Service) Inspect(ctx context.Context, name string) error {
	return s.withModel(ctx, func(m *planning.Model) error {
		r, err := m.Resource(name)
		if err != nil {
			return err
		}
		r.Inspect(slog.Default(), "resource timeline")
		return nil
	})
}

// ============================================================================
// REPORTS
// ============================================================================

// ResourcePlan computes the capacity report of one resource.
func (s *Service) ResourcePlan(ctx context.Context, name string, req ReportRequest) ([]models.ResourcePlanRow, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	var rows []models.ResourcePlanRow
	err := s.withModel(ctx, func(m *planning.Model) error {
		r, err := m.Resource(name)
		if err != nil {
			return err
		}
		rows, err = s.report(r, req)
		return err
	})
	return rows, err
}

func (s *Service) validate(req ReportRequest) error {
	if !req.Bucket.Valid() {
		return fmt.Errorf("%w: unknown bucket type %q", ErrInvalidRequest, req.Bucket)
	}
	if !req.End.After(req.Start) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidRequest)
	}
	return nil
}

// report runs the plan iterator of r over the request buckets. Bucketized
// resources report their own buckets, clipped to those overlapping the
// horizon.
func (s *Service) report(r *planning.Resource, req ReportRequest) ([]models.ResourcePlanRow, error) {
	bounds, err := buckets.Boundaries(req.Bucket, req.Start, req.End, s.cfg.Report.Weekday())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	it, err := r.Plan(bounds)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	bucketized := r.Kind() == planning.KindBuckets
	var rows []models.ResourcePlanRow
	for it.Next() {
		b := it.Bucket()
		if bucketized && (!b.End.After(req.Start) || !b.Start.Before(req.End)) {
			continue
		}
		rows = append(rows, models.ResourcePlanRow{
			Resource:    r.Name(),
			Bucket:      string(req.Bucket),
			Start:       b.Start,
			End:         b.End,
			Available:   b.Available,
			Unavailable: b.Unavailable,
			Setup:       b.Setup,
			Load:        b.Load,
			Free:        b.Free,
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("resource %s: %w", r.Name(), err)
	}
	return rows, nil
}

// ExportPlans computes the report of every resource and stores it,
// replacing earlier exports with the same bucket type. A backup is taken
// first when configured.
func (s *Service) ExportPlans(ctx context.Context, req ReportRequest) (*ExportResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	result := &ExportResult{}

	if s.cfg.Database.BackupBeforeExport && s.db.Path() != ":memory:" {
		path, err := s.db.Backup(ctx)
		if err != nil {
			return nil, fmt.Errorf("backup before export: %w", err)
		}
		result.Backup = path
	}

	err := s.withModel(ctx, func(m *planning.Model) error {
		return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, r := range m.Resources() {
				rows, err := s.report(r, req)
				if err != nil {
					return err
				}
				if err := s.reports.Replace(ctx, tx, r.Name(), string(req.Bucket), rows); err != nil {
					return err
				}
				r.ClearChanged()
				result.Resources++
				result.Rows += len(rows)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("exporting resource plans: %w", err)
	}

	slog.Info("resource plans exported",
		"resources", result.Resources,
		"rows", result.Rows,
		"bucket", req.Bucket,
	)
	return result, nil
}

// StoredPlan returns a page of a previously exported report.
func (s *Service) StoredPlan(ctx context.Context, name string, bucket buckets.Type, page models.Pagination) ([]models.ResourcePlanRow, int, error) {
	return s.reports.List(ctx, name, string(bucket), page)
}

// ============================================================================
// DELETION
// ============================================================================

// DeleteOperationPlans deletes the plans of every operation loading the
// resource, keeping locked plans unless deleteLocked is set. It returns
// the number of plans deleted.
func (s *Service) DeleteOperationPlans(ctx context.Context, name string, deleteLocked bool) (int, error) {
	var n int
	err := s.withModel(ctx, func(m *planning.Model) error {
		r, err := m.Resource(name)
		if err != nil {
			return err
		}
		return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			stored, err := s.plans.DeleteForResource(ctx, tx, name, deleteLocked)
			if err != nil {
				return err
			}
			n = r.DeleteOperationPlans(deleteLocked)
			if stored != int64(n) {
				return fmt.Errorf("resource %s: deleted %d stored plans but %d in memory: %w",
					name, stored, n, planning.ErrLogic)
			}
			return s.syncChangeovers(ctx, tx, m)
		})
	})
	if err != nil {
		s.invalidate()
		return 0, err
	}
	slog.Info("operation plans deleted", "resource", name, "count", n, "locked", deleteLocked)
	return n, nil
}

// DeleteResource removes a resource with every plan loading it.
func (s *Service) DeleteResource(ctx context.Context, name string) error {
	err := s.withModel(ctx, func(m *planning.Model) error {
		if _, err := m.Resource(name); err != nil {
			return err
		}
		return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := s.master.DeleteResource(ctx, tx, name); err != nil {
				return err
			}
			if err := s.reports.DeleteResource(ctx, tx, name); err != nil {
				return err
			}
			if err := m.DeleteResource(name); err != nil {
				return err
			}
			return s.syncChangeovers(ctx, tx, m)
		})
	})
	if err != nil {
		s.invalidate()
		return err
	}
	slog.Info("resource deleted", "resource", name)
	return nil
}

// syncChangeovers stores the dates of every changeover plan, which may
// have been re-timed by a deletion.
func (s *Service) syncChangeovers(ctx context.Context, tx *sql.Tx, m *planning.Model) error {
	for _, p := range m.OperationPlans(m.Changeover()) {
		rec := &models.OperationPlan{
			ID:        p.Identifier(),
			Operation: p.Operation().Name(),
			Quantity:  p.Quantity(),
			Start:     p.Start(),
			End:       p.End(),
			Locked:    p.Locked(),
		}
		if err := s.plans.UpdateDates(ctx, tx, rec); err != nil {
			return fmt.Errorf("storing changeover %s: %w", p.Identifier(), err)
		}
	}
	return nil
}

// invalidate drops the model after a failed mutation so the next call
// reloads it from the store.
func (s *Service) invalidate() {
	s.mu.Lock()
	s.model = nil
	s.mu.Unlock()
}
