// Package repository defines data access interfaces for the membership service.
// These interfaces abstract database operations, allowing for different implementations
// (PostgreSQL, SQLite, in-memory mocks for testing) while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/prn-tf/socrp-membership/internal/domain"
)

// =============================================================================
// Account Repository
// =============================================================================

// AccountRepository defines the interface for account data access.
type AccountRepository interface {
	// Create inserts a new account in a single statement.
	// Returns domain.ErrDuplicateEmail or domain.ErrDuplicateMembershipID
	// when the corresponding unique constraint rejects the row.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by internal ID.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// GetByEmail retrieves an account by email. The lookup is case-insensitive.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// Update persists the mutable profile and permission fields of an account
	// (full name, phone, active, staff).
	Update(ctx context.Context, account *domain.Account) error

	// SetBlocked sets or clears the blocked flag.
	SetBlocked(ctx context.Context, id string, blocked bool) error

	// MarkVerified sets verified and active in one conditional update.
	// Returns true only for the call that performed the transition.
	MarkVerified(ctx context.Context, id string) (bool, error)

	// List returns accounts matching the options, newest first.
	List(ctx context.Context, opts AccountListOptions) (*ListResult[domain.Account], error)

	// Stats returns aggregate counts.
	Stats(ctx context.Context) (*domain.AccountStats, error)
}

// AccountListOptions filters and paginates account listings.
type AccountListOptions struct {
	ListOptions

	// Search matches full name or email (case-insensitive substring).
	Search string

	// Status restricts results to one derived status. Empty means all.
	Status domain.AccountStatus
}

// =============================================================================
// Profile Repository
// =============================================================================

// ProfileRepository provides read access to extended profile data.
type ProfileRepository interface {
	// GetByAccountID returns the profile with its educations and experiences.
	// Returns ErrNotFound when the member has no profile row.
	GetByAccountID(ctx context.Context, accountID string) (*domain.Profile, error)
}

// =============================================================================
// Share Link Repository
// =============================================================================

// ShareLinkRepository defines the interface for share link data access.
type ShareLinkRepository interface {
	// Create inserts a new share link.
	Create(ctx context.Context, link *domain.ShareLink) error

	// GetByTokenHash retrieves a link by the SHA-256 digest of its token.
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.ShareLink, error)

	// ListByAccount returns the owner's links with their view counts, newest first.
	ListByAccount(ctx context.Context, accountID string) ([]*ShareLinkSummary, error)

	// RecordAccess appends an access log entry.
	RecordAccess(ctx context.Context, access *domain.ShareLinkAccess) error

	// CountAccesses returns the number of access entries for a link.
	CountAccesses(ctx context.Context, shareLinkID string) (int64, error)
}

// ShareLinkSummary pairs a link with its access count.
type ShareLinkSummary struct {
	Link        *domain.ShareLink
	AccessCount int64
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common options for list operations.
type ListOptions struct {
	// Limit is the maximum number of items to return.
	Limit int

	// Offset is the number of items to skip.
	Offset int
}

// ListResult contains the result of a list operation.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the limit used.
	Limit int
}
