// Package util provides utility functions for capledger.
package util

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator provides thread-safe, time-ordered UUIDv7 generation.
// Operation plan identifiers sort in creation order, which keeps
// the operationplans table index local.
type IDGenerator struct {
	mu sync.Mutex
}

// NewIDGenerator creates a new ID generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewID generates a new UUIDv7 identifier from this generator.
func (g *IDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		// The random source failed; a v4 identifier is still unique.
		id = uuid.New()
	}
	return id.String()
}

var generator = &IDGenerator{}

// NewID generates a new UUIDv7 identifier.
func NewID() string {
	return generator.NewID()
}

// IsValidID checks if a string is a valid UUID format.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// DeterministicID generates a deterministic ID for testing and seed data.
func DeterministicID(seed int64) string {
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(seed >> (8 * (7 - i)))
		b[8+i] = byte((seed * 31) >> (8 * (7 - i)))
	}
	b[6] = (b[6] & 0x0F) | 0x40
	b[8] = (b[8] & 0x3F) | 0x80
	return uuid.UUID(b).String()
}
