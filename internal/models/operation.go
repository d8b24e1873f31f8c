package models

import (
	"fmt"
	"time"
)

// OperationType is the stored operation kind.
type OperationType string

const (
	OperationTypeFixedTime OperationType = "fixed_time"
)

// Operation is a stored operation.
type Operation struct {
	Name     string
	Type     OperationType
	Duration time.Duration
}

// Validate checks the operation fields.
func (o *Operation) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("%w: operation name is required", ErrInvalid)
	}
	if o.Type != OperationTypeFixedTime {
		return fmt.Errorf("%w: operation %s has unknown type %q", ErrInvalid, o.Name, o.Type)
	}
	if o.Duration < 0 {
		return fmt.Errorf("%w: operation %s duration must be non-negative", ErrInvalid, o.Name)
	}
	return nil
}

// Load links an operation to a resource it consumes. Operation may name the
// built-in changeover operation.
type Load struct {
	ID        int64
	Operation string
	Resource  string
	Quantity  float64
	Setup     string
}

// Validate checks the load fields.
func (l *Load) Validate() error {
	if l.Operation == "" || l.Resource == "" {
		return fmt.Errorf("%w: load requires an operation and a resource", ErrInvalid)
	}
	if l.Quantity < 0 {
		return fmt.Errorf("%w: load %s/%s quantity must be non-negative", ErrInvalid, l.Operation, l.Resource)
	}
	return nil
}

// OperationPlan is a stored operation plan. LoadID is set for changeover
// plans, which load a single load instead of every load of the operation.
type OperationPlan struct {
	ID        string
	Operation string
	Quantity  float64
	Start     time.Time
	End       time.Time
	Locked    bool
	LoadID    *int64
}

// Duration returns the planned duration.
func (p *OperationPlan) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Validate checks the plan fields.
func (p *OperationPlan) Validate() error {
	if p.ID == "" || p.Operation == "" {
		return fmt.Errorf("%w: operation plan requires an id and an operation", ErrInvalid)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: operation plan %s quantity must be non-negative", ErrInvalid, p.ID)
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: operation plan %s ends before it starts", ErrInvalid, p.ID)
	}
	return nil
}
