// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the supplied credentials are not accepted.
	ErrForbidden = errors.New("forbidden")

	// ErrUpstreamTimeout indicates an outbound call exceeded its timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamUnavailable indicates a transport-level failure reaching an upstream service.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamProtocol indicates an upstream answered with a non-2xx status or a malformed body.
	ErrUpstreamProtocol = errors.New("upstream protocol error")

	// ErrStorage indicates local persistence of downloaded content failed.
	ErrStorage = errors.New("storage error")
)

// UpstreamError carries the status code and raw body returned by an upstream service.
// It matches ErrUpstreamProtocol through errors.Is.
type UpstreamError struct {
	StatusCode int
	Body       string
	Message    string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream returned status code %d", e.StatusCode)
}

// Is reports whether target is ErrUpstreamProtocol.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamProtocol
}

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
