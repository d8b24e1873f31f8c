package models

import (
	"fmt"
	"time"
)

// Calendar is a stored step function.
type Calendar struct {
	Name    string
	Default float64
	Buckets []CalendarBucket
}

// CalendarBucket sets the calendar value from Start until the next bucket.
type CalendarBucket struct {
	Start time.Time
	Value float64
}

// Validate checks the calendar name and that bucket dates are distinct.
func (c *Calendar) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: calendar name is required", ErrInvalid)
	}
	seen := make(map[time.Time]bool, len(c.Buckets))
	for _, b := range c.Buckets {
		key := b.Start.UTC()
		if seen[key] {
			return fmt.Errorf("%w: calendar %s has two buckets at %s", ErrInvalid, c.Name, key.Format(time.RFC3339))
		}
		seen[key] = true
	}
	return nil
}
