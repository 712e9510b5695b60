// Package errs defines the error taxonomy shared by the order, stockpile
// and offer flows. Callers branch on the sentinels with errors.Is; the
// typed errors carry enough detail for API responses.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a status change is not legal
	// from the order's current state. State is never mutated on this path.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound is returned when a referenced order, stockpile, product
	// or offer does not exist. Terminal for the current operation.
	ErrNotFound = errors.New("object not found")

	// ErrRateLimitExceeded is returned by the authoritative usage guard
	// when a write quota is exhausted. Never retried.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrNotYetVisible is returned when a just-written document has not
	// become readable within the bounded retry window. Recoverable and
	// distinct from ErrNotFound.
	ErrNotYetVisible = errors.New("document not yet visible")
)

// ValidationError reports missing or out-of-range input. It is always
// raised before any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransitionError wraps ErrInvalidTransition with the offending edge.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NewTransitionError creates a TransitionError for an illegal edge.
func NewTransitionError(from, to string) *TransitionError {
	return &TransitionError{From: from, To: to}
}

// RateLimitError wraps ErrRateLimitExceeded with the window that tripped.
type RateLimitError struct {
	Action string
	Window string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: action=%s window=%s", e.Action, e.Window)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// NewRateLimitError creates a RateLimitError for an exhausted window.
func NewRateLimitError(action, window string) *RateLimitError {
	return &RateLimitError{Action: action, Window: window}
}
