package shared

import (
	"errors"
	"fmt"
)

// Base errors that can be used for error checking with errors.Is().
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidFormat = errors.New("invalid format")
)

// Event catalog and codec errors.
var (
	ErrUnknownEventType      = fmt.Errorf("unknown event type: %w", ErrNotFound)
	ErrEventTypeMismatch     = fmt.Errorf("event type mismatch: %w", ErrInvalidInput)
	ErrKindAlreadyRegistered = fmt.Errorf("event kind: %w", ErrAlreadyExists)
	ErrInvalidInterval       = fmt.Errorf("interval: %w", ErrInvalidFormat)
	ErrMissingEventType      = fmt.Errorf("missing event_type: %w", ErrInvalidInput)
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "event", "consent", "catalog"
	Op      string // Operation that failed, e.g., "Decode", "Check"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error, falling back to Kind.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches either the Kind or the wrapped error.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
