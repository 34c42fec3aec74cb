package auth

import "errors"

// Authentication and token errors.
var (
	// ErrMissingToken indicates no bearer token was presented.
	ErrMissingToken = errors.New("authentication credentials were not provided")

	// ErrInvalidAuthorizationHeader indicates the Authorization header is malformed.
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

	// ErrTokenInvalid indicates the token is malformed, tampered with, or of the wrong kind.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenExpired indicates the token was valid but its lifetime has passed.
	ErrTokenExpired = errors.New("token has expired")

	// ErrUnknownAccount indicates the token subject no longer resolves to an account.
	ErrUnknownAccount = errors.New("account not found")

	// ErrAccountDisabled indicates the account is blocked or inactive.
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrStaffRequired indicates the route needs a staff account.
	ErrStaffRequired = errors.New("staff privileges required")
)

// ErrorCode is the machine-readable code written in auth error responses.
type ErrorCode string

const (
	// ErrorCodeNotAuthenticated maps to HTTP 401.
	ErrorCodeNotAuthenticated ErrorCode = "not_authenticated"

	// ErrorCodeTokenExpired maps to HTTP 401.
	ErrorCodeTokenExpired ErrorCode = "token_expired"

	// ErrorCodePermissionDenied maps to HTTP 403.
	ErrorCodePermissionDenied ErrorCode = "permission_denied"

	// ErrorCodeInternal maps to HTTP 500.
	ErrorCodeInternal ErrorCode = "internal_error"
)
