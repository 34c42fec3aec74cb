// Package auth provides bearer token issuance, password hashing and the
// HTTP authentication middleware for the membership API.
package auth

// =============================================================================
// Constants
// =============================================================================

const (
	// AudienceAccess marks tokens accepted on authenticated API routes.
	AudienceAccess = "membership-api"

	// AudienceRefresh marks tokens accepted only by the refresh endpoint.
	AudienceRefresh = "membership-refresh"

	// AudienceVerification marks emailed verification references.
	AudienceVerification = "verify-email"

	// BearerScheme is the Authorization header scheme.
	BearerScheme = "Bearer"

	// HeaderAuthorization is the Authorization header name.
	HeaderAuthorization = "Authorization"

	// SigningAlgorithm is the only accepted JWT algorithm.
	SigningAlgorithm = "HS256"
)
