package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// Lookup errors
	ErrNotFound = errors.New("not found")

	// State errors
	ErrConflict       = errors.New("conflicting state")
	ErrNotInitialized = errors.New("not initialized")

	// Operation errors
	ErrTimeout         = errors.New("operation timeout")
	ErrContextCanceled = errors.New("context canceled")

	// HTTP/Network errors
	ErrConnectionFailed = errors.New("connection failed")
	ErrRequestFailed    = errors.New("request failed")
)

// ServiceError provides structured error information with context
// It implements the error interface and supports error wrapping
type ServiceError struct {
	Op      string // Operation that failed (e.g., "order.Dispatch")
	Kind    string // Error kind (e.g., "order", "storage", "config")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *ServiceError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		if e.Message != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError
func NewServiceError(op, kind string, err error) *ServiceError {
	return &ServiceError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// IsConflict checks if an error is a state conflict (already cancelled, out of stock, ...)
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
