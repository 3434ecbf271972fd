package core

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when no valid session is present.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNotFound is returned by repositories when a row does not exist for the
// requesting user.
var ErrNotFound = errors.New("not found")

// ValidationError marks malformed input. Never retried, surfaced to the caller.
type ValidationError struct {
	Message string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError marks a failed aggregator call. Carries the aggregator's own
// message; internal detail beyond that must not leak to clients.
type UpstreamError struct {
	Operation string
	Message   string
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("aggregator %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("aggregator %s: %v", e.Operation, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StorageError marks a rejected write or failed read at the persistence layer.
type StorageError struct {
	Operation string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
