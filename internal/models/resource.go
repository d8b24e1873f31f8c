package models

import (
	"fmt"
	"time"
)

// ResourceType is the stored resource kind.
type ResourceType string

const (
	ResourceTypeDefault  ResourceType = "default"
	ResourceTypeInfinite ResourceType = "infinite"
	ResourceTypeBuckets  ResourceType = "buckets"
)

func (t ResourceType) String() string {
	return string(t)
}

// IsValid reports whether t is a known resource type.
func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceTypeDefault, ResourceTypeInfinite, ResourceTypeBuckets:
		return true
	}
	return false
}

// Resource is a stored capacity resource. Reference fields hold the name
// of the referenced record and are empty when unset.
type Resource struct {
	Name            string
	Type            ResourceType
	Maximum         float64
	MaximumCalendar string
	Available       string
	Location        string
	SetupMatrix     string
	Setup           string
}

// Validate checks the resource fields.
func (r *Resource) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: resource name is required", ErrInvalid)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: resource %s has unknown type %q", ErrInvalid, r.Name, r.Type)
	}
	if r.Maximum < 0 {
		return fmt.Errorf("%w: resource %s maximum must be non-negative", ErrInvalid, r.Name)
	}
	if r.Type == ResourceTypeBuckets && r.MaximumCalendar == "" {
		return fmt.Errorf("%w: bucketized resource %s requires a maximum calendar", ErrInvalid, r.Name)
	}
	return nil
}

// Location is a stored site.
type Location struct {
	Name      string
	Available string
}

// SetupMatrix is a stored changeover matrix.
type SetupMatrix struct {
	Name  string
	Rules []SetupRule
}

// SetupRule is one row of a setup matrix. Empty From or To match any setup.
type SetupRule struct {
	ID       int64
	Priority int
	From     string
	To       string
	Duration time.Duration
	Cost     float64
}

// Validate checks the matrix and its rules.
func (m *SetupMatrix) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: setup matrix name is required", ErrInvalid)
	}
	for _, r := range m.Rules {
		if r.Duration < 0 {
			return fmt.Errorf("%w: setup matrix %s rule %s->%s has negative duration", ErrInvalid, m.Name, r.From, r.To)
		}
	}
	return nil
}
