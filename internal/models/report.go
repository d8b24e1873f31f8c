package models

import "time"

// ResourcePlanRow is one exported bucket of a resource capacity report.
// Quantities are in capacity units for bucketized resources and in
// capacity-hours otherwise.
type ResourcePlanRow struct {
	Resource    string    `json:"resource"`
	Bucket      string    `json:"bucket"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Available   float64   `json:"available"`
	Unavailable float64   `json:"unavailable"`
	Setup       float64   `json:"setup"`
	Load        float64   `json:"load"`
	Free        float64   `json:"free"`
}

// Utilization returns load plus setup as a fraction of available capacity,
// or 0 when nothing is available.
func (r *ResourcePlanRow) Utilization() float64 {
	if r.Available <= 0 {
		return 0
	}
	return (r.Load + r.Setup) / r.Available
}

// Overloaded reports whether the bucket has negative free capacity.
func (r *ResourcePlanRow) Overloaded() bool {
	return r.Free < 0
}
