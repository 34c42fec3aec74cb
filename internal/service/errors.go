// Package service provides the business logic of the membership service.
package service

import (
	"errors"
	"sort"
	"strings"
)

// Common service errors.
var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token has expired")
	ErrNotStaff           = errors.New("staff privileges required")

	// Registration errors
	ErrPasswordMismatch        = errors.New("passwords do not match")
	ErrMembershipIDUnavailable = errors.New("could not allocate a unique membership id")

	// Verification errors
	ErrInvalidReference = errors.New("invalid or expired link")

	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrEmptyPatch      = errors.New("no fields to update")

	// Share link errors
	ErrInvalidDuration   = errors.New("invalid duration: must be 1, 2 or 7 days")
	ErrShareLinkNotFound = errors.New("share link not found")
	ErrShareLinkExpired  = errors.New("share link has expired")

	// General errors
	ErrValidation    = errors.New("validation failed")
	ErrInternalError = errors.New("internal server error")
)

// ValidationError reports per-field input problems.
// Err, when set, is a more specific sentinel (ErrPasswordMismatch, domain.ErrDuplicateEmail).
type ValidationError struct {
	Fields map[string]string
	Err    error
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a message for field, keeping the first one.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap returns the specific sentinel, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
