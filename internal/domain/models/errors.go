package models

import (
	"fmt"
	"strings"
)

// Error codes surfaced to callers. Validation errors are detected
// before any store access; storage errors carry a fallback directive
// so the caller can proceed without memory context.
const (
	ErrCodeValidationFailed   = "validation_failed"
	ErrCodeStorageUnavailable = "storage_unavailable"
	ErrCodeNotConfirmed       = "not_confirmed"
	ErrCodePartialFailure     = "partial_failure"
)

// ValidationError describes a rejected input with enough detail for
// the caller to self-correct.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("%s: %s (allowed: %s)", e.Field, e.Message, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalidf builds a ValidationError for a field.
func Invalidf(field, value, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// PartialFailure reports a reset that deleted some but not all keys.
// It is a distinct outcome from full success and is not retried.
type PartialFailure struct {
	Deleted   int
	Attempted int
	Err       error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("partial failure: deleted %d/%d keys: %v", e.Deleted, e.Attempted, e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}
