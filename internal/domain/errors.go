package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both "no such order" and "order outside the caller's
	// store": a scoped write that matches zero rows reports the same error
	// either way, so existence never leaks across tenants.
	ErrNotFound = errors.New("order not found")

	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidTransition = errors.New("invalid transition")
)

// ValidationError marks malformed input (phone, email, empty cart). It is
// surfaced as a field-level message and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
