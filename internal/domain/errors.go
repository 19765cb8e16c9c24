package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no policy request exists for an id.
	ErrNotFound = errors.New("policy request not found")

	// ErrConflict is returned by the repository when a save loses an
	// optimistic-locking race against a concurrent writer.
	ErrConflict = errors.New("policy request version conflict")

	// ErrIllegalState is returned when an operation is requested in a
	// status that forbids it (e.g. cancelling an approved request).
	ErrIllegalState = errors.New("illegal state")
)

// ValidationError reports malformed input to a constructor or setter.
// Field names the first offending field, checked in a fixed order.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid policy request: %s %s", e.Field, e.Reason)
}

// InvalidTransitionError reports an illegal status change. From == To
// identifies a rejected self-transition as opposed to a forbidden move.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("cannot transition policy request from %s to itself", e.From)
	}
	return fmt.Sprintf("cannot transition policy request from %s to %s", e.From, e.To)
}

// PreconditionError reports an operation invoked before a required
// precondition was established. It signals a programming or sequencing
// mistake, not a business rejection.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}
