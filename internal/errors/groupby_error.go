// Package errors provides standardized error types for grouped-view
// operations. This package defines GroupByError for consistent error
// handling across all public APIs, with operation context and error
// wrapping support.
package errors

import (
	"fmt"
)

// GroupByError represents standardized errors across grouped-view operations
type GroupByError struct {
	Op      string // Operation name (e.g., "GetItem", "ShallowCopy", "Apply")
	Column  string // Column or key name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *GroupByError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *GroupByError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *GroupByError) Is(target error) bool {
	if gb, ok := target.(*GroupByError); ok {
		return e.Op == gb.Op && e.Column == gb.Column && e.Message == gb.Message
	}
	return false
}

// Common error constructors for consistent error creation

// NewLookupError creates an error for sub-selection keys missing from the
// underlying data. It wraps ErrLookupFailure so callers can test with
// errors.Is regardless of operation context.
func NewLookupError(op, column string) *GroupByError {
	return &GroupByError{
		Op:      op,
		Column:  column,
		Message: "column does not exist",
		Cause:   ErrLookupFailure,
	}
}

// NewNotGroupingLevelError creates the recoverable error returned when a
// sub-selection key does not name a grouping level. Callers that narrow a
// grouping are expected to catch this and reuse the parent grouping.
func NewNotGroupingLevelError(op, key string) *GroupByError {
	return &GroupByError{
		Op:      op,
		Column:  key,
		Message: "key is not a grouping level",
		Cause:   ErrNotGroupingLevel,
	}
}

// NewMalformedViewError creates a fatal configuration error for views whose
// construction-time contract was violated (missing data or grouping).
func NewMalformedViewError(op, message string) *GroupByError {
	return &GroupByError{
		Op:      op,
		Message: message,
		Cause:   ErrMalformedView,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *GroupByError {
	return &GroupByError{
		Op:      op,
		Message: message,
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, typeName string) *GroupByError {
	return &GroupByError{
		Op:      op,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// Predefined error variables for common cases
var (
	// ErrLookupFailure indicates a sub-selection key absent from the data.
	// Propagated to the caller unchanged.
	ErrLookupFailure = &GroupByError{
		Op:      "lookup",
		Message: "key not found in container",
	}

	// ErrNotGroupingLevel indicates a key that does not narrow a grouping.
	// Recovered internally during sub-selection, never surfaced.
	ErrNotGroupingLevel = &GroupByError{
		Op:      "grouping",
		Message: "key is not a grouping level",
	}

	// ErrMalformedView indicates a view missing its construction-time
	// contract (no data or no grouping attached). Fatal, not retried.
	ErrMalformedView = &GroupByError{
		Op:      "view",
		Message: "view violates construction contract",
	}

	// ErrEmptyFrame indicates operations on empty frames
	ErrEmptyFrame = &GroupByError{
		Op:      "validation",
		Message: "operation not supported on empty frame",
	}
)
