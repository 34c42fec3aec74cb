package domain

import (
	"time"

	"github.com/google/uuid"
)

// AllowedShareDays enumerates the only lifetimes a share link may have.
var AllowedShareDays = []int{1, 2, 7}

// IsAllowedShareDays reports whether days is one of AllowedShareDays.
func IsAllowedShareDays(days int) bool {
	for _, d := range AllowedShareDays {
		if d == days {
			return true
		}
	}
	return false
}

// ShareLink grants anonymous, time-boxed read access to one account's profile.
// Links are immutable: they are never updated or deleted, only outlived.
type ShareLink struct {
	// ID is the internal identifier (UUID).
	ID string `json:"id"`

	// AccountID is the owner whose profile the link exposes.
	AccountID string `json:"account_id"`

	// TokenHash is the SHA-256 hex digest of the bearer token.
	// The plain token only exists in the generate response.
	TokenHash string `json:"-"`

	// ExpiresAt is the absolute instant the link stops resolving.
	ExpiresAt time.Time `json:"expires_at"`

	// CreatedAt is the timestamp when the link was generated.
	CreatedAt time.Time `json:"created_at"`
}

// NewShareLink creates a link owned by accountID that expires days after now.
func NewShareLink(accountID, tokenHash string, days int, now time.Time) *ShareLink {
	now = now.UTC()
	return &ShareLink{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(time.Duration(days) * 24 * time.Hour),
		CreatedAt: now,
	}
}

// IsValid reports whether the link still resolves at now (now < expiry).
func (l *ShareLink) IsValid(now time.Time) bool {
	return now.Before(l.ExpiresAt)
}

// ShareLinkAccess is one append-only audit entry for a successful resolve.
type ShareLinkAccess struct {
	// ID is assigned by the store.
	ID int64 `json:"id"`

	// ShareLinkID references the resolved link.
	ShareLinkID string `json:"share_link_id"`

	// IPAddress is the viewer's address when known.
	IPAddress string `json:"ip_address,omitempty"`

	// UserAgent is the viewer's client string when known.
	UserAgent string `json:"user_agent,omitempty"`

	// AccessedAt is the time of the view.
	AccessedAt time.Time `json:"accessed_at"`
}
