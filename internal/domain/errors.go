package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// Account Errors
	// ===========================================

	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateEmail indicates another account already uses the email address.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateMembershipID indicates a membership ID collision on insert.
	// Callers regenerate the ID and retry.
	ErrDuplicateMembershipID = errors.New("membership id already exists")

	// ErrAccountBlocked indicates the account was blocked by an administrator.
	ErrAccountBlocked = errors.New("account is blocked")

	// ===========================================
	// Profile Errors
	// ===========================================

	// ErrProfileNotFound indicates the account has no profile row yet.
	ErrProfileNotFound = errors.New("profile not found")

	// ===========================================
	// Share Link Errors
	// ===========================================

	// ErrShareLinkNotFound indicates no link matches the presented token.
	ErrShareLinkNotFound = errors.New("share link not found")

	// ErrShareLinkExists indicates a token hash collision on insert.
	ErrShareLinkExists = errors.New("share link already exists")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., account id, membership id).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
