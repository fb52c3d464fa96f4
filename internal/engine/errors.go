// Package engine collects formula inputs, evaluates formulas and
// records successful results in the session's ledgers.
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrComputation is matched by errors.Is for every
	// ComputationError.
	ErrComputation = errors.New("computation failed")

	// ErrMalformedInput is matched by errors.Is for every
	// MalformedInputError.
	ErrMalformedInput = errors.New("malformed input")
)

// ComputationError reports a domain failure inside a formula: a zero
// denominator, an exp overflow, or a non-finite result.
type ComputationError struct {
	// Formula is the table identity of the failing definition.
	Formula string
	Err     error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("calculating %s: %v", e.Formula, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrComputation.
func (e *ComputationError) Is(target error) bool {
	return target == ErrComputation
}

// MalformedInputError reports text that is not a number where one is
// required.
type MalformedInputError struct {
	Field string
	Text  string
	Err   error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%s: %q is not a number", e.Field, e.Text)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedInput.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}
