package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// =============================================================================
// Token Types
// =============================================================================

// Claims is the JWT payload for access and refresh tokens.
// The subject is the account ID.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is returned by login.
type TokenPair struct {
	AccessToken      string    `json:"access"`
	RefreshToken     string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// =============================================================================
// Request Principal
// =============================================================================

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	AccountID string
	Email     string
	Name      string
	IsStaff   bool
}

// AccountState is the live authorization state of an account.
type AccountState struct {
	Active  bool
	Blocked bool
	Staff   bool
}

// Usable reports whether requests may proceed for this account.
func (s AccountState) Usable() bool {
	return s.Active && !s.Blocked
}
