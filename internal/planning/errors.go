package planning

import (
	"errors"
	"fmt"
)

var (
	// ErrData marks input that violates a domain rule, such as a negative
	// maximum capacity. Nothing is mutated when it is returned.
	ErrData = errors.New("data error")

	// ErrLogic marks a broken programming contract or internal invariant:
	// a nil resource, a malformed bucket sequence, an impossible calendar
	// merge state. The request that hit it must be abandoned.
	ErrLogic = errors.New("logic error")

	// ErrNotFound is returned by lookups on the model.
	ErrNotFound = errors.New("not found")
)

// DataError describes invalid input for a named object.
type DataError struct {
	Object string
	Msg    string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: %s", e.Object, e.Msg)
}

func (e *DataError) Unwrap() error {
	return ErrData
}

// LogicError describes a contract or invariant violation.
type LogicError struct {
	Msg string
}

func (e *LogicError) Error() string {
	return "logic error: " + e.Msg
}

func (e *LogicError) Unwrap() error {
	return ErrLogic
}

func dataErrorf(object, format string, args ...any) error {
	return &DataError{Object: object, Msg: fmt.Sprintf(format, args...)}
}

func logicErrorf(format string, args ...any) error {
	return &LogicError{Msg: fmt.Sprintf(format, args...)}
}

func notFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}
