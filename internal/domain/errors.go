// Package domain defines core types, interfaces, and errors for the catalog migration engine.
package domain

import (
	"errors"
	"fmt"
)

// ErrUnsupportedBackend is returned by dataset adapters that cannot open a
// descriptor of the requested kind or format.
var ErrUnsupportedBackend = errors.New("unsupported backend")

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates an invalid entry description, such as a location
// list mixing reference-index and direct locations.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// InvalidInputError indicates an input string that is neither a
// reference-index URI nor an existing path.
type InvalidInputError struct {
	Input string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: neither a reference:: URI nor an existing path", e.Input)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidInput creates an InvalidInputError for the given input.
func ErrInvalidInput(input string) *InvalidInputError {
	return &InvalidInputError{Input: input}
}
