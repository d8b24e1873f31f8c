package capacity

import (
	"errors"
	"time"

	"github.com/capledger/capledger/internal/buckets"
)

// ErrInvalidRequest is returned for malformed report requests.
var ErrInvalidRequest = errors.New("invalid request")

// ReportRequest selects the horizon and bucketing of a capacity report.
type ReportRequest struct {
	Start  time.Time
	End    time.Time
	Bucket buckets.Type
}

// ResourceSummary describes a resource for listings.
type ResourceSummary struct {
	Name            string  `json:"name"`
	Kind            string  `json:"kind"`
	Maximum         float64 `json:"maximum"`
	MaximumCalendar string  `json:"maximum_calendar,omitempty"`
	Available       string  `json:"available,omitempty"`
	Location        string  `json:"location,omitempty"`
	SetupMatrix     string  `json:"setup_matrix,omitempty"`
	Setup           string  `json:"setup,omitempty"`
	Loads           int     `json:"loads"`
	Events          int     `json:"events"`
}

// EventView is one timeline event of a resource.
type EventView struct {
	Date          time.Time `json:"date"`
	Kind          string    `json:"kind"`
	Quantity      float64   `json:"quantity"`
	Onhand        float64   `json:"onhand"`
	Value         float64   `json:"value,omitempty"`
	OperationPlan string    `json:"operation_plan,omitempty"`
	Operation     string    `json:"operation,omitempty"`
	IsStart       bool      `json:"is_start,omitempty"`
}

// ExportResult reports an export run.
type ExportResult struct {
	Resources int    `json:"resources"`
	Rows      int    `json:"rows"`
	Backup    string `json:"backup,omitempty"`
}
