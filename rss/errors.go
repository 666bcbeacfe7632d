package rss

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrDomain is matched by every *DomainError
	ErrDomain = errors.New("argument out of formula domain")
	// ErrCycle means trajectory links visit the same state twice
	ErrCycle = errors.New("trajectory contains a cycle")
	// ErrBrokenLink means trajectory links to a state which is not in the arena
	ErrBrokenLink = errors.New("trajectory links to unknown state")
	// ErrUnknownPreset is returned for parameter set names which are not defined
	ErrUnknownPreset = errors.New("unknown parameter set")
)

// DomainError is returned by distance formulas when an argument violates their precondition.
type DomainError struct {
	Op    string
	Arg   string
	Value float64
	Want  string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s = %v, want %s", e.Op, e.Arg, e.Value, e.Want)
}

// Is makes errors.Is(err, ErrDomain) match
func (e *DomainError) Is(target error) bool {
	return target == ErrDomain
}

// EvalError wraps failure of a single instance evaluation.
// Annotation is the state being processed when it happened (zero UUID if failure came before any state).
type EvalError struct {
	Instance   uuid.UUID
	Annotation uuid.UUID
	Err        error
}

func (e *EvalError) Error() string {
	if e.Annotation == uuid.Nil {
		return fmt.Sprintf("instance %s: %v", e.Instance, e.Err)
	}
	return fmt.Sprintf("instance %s, annotation %s: %v", e.Instance, e.Annotation, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
