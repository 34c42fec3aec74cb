// Package domain contains the core business entities for the membership service.
// These are plain Go structs; all persistence goes through the repository interfaces.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the derived administrative state of an account.
type AccountStatus string

const (
	// StatusActive means the account is active and not blocked.
	StatusActive AccountStatus = "active"

	// StatusBlocked means an administrator blocked the account.
	// Blocked overrides every other flag.
	StatusBlocked AccountStatus = "blocked"

	// StatusPending means the account is inactive and not blocked,
	// typically waiting for email verification.
	StatusPending AccountStatus = "pending"
)

// ParseAccountStatus converts a string to an AccountStatus.
func ParseAccountStatus(s string) (AccountStatus, bool) {
	switch AccountStatus(strings.ToLower(s)) {
	case StatusActive:
		return StatusActive, true
	case StatusBlocked:
		return StatusBlocked, true
	case StatusPending:
		return StatusPending, true
	}
	return "", false
}

// Account represents a registered member.
type Account struct {
	// ID is the opaque internal identifier (UUID).
	ID string `json:"id"`

	// Email is the unique, lower-cased email address.
	Email string `json:"email"`

	// FullName is the display name shown on profiles and in tokens.
	FullName string `json:"full_name"`

	// Phone is an optional contact number captured at registration.
	Phone string `json:"phone,omitempty"`

	// MembershipID is the human-facing member code, e.g. SOCRP-2026-48213.
	// Generated once at creation and never reassigned.
	MembershipID string `json:"membership_id"`

	// PasswordHash is the bcrypt hash of the account secret.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// IsVerified is set once the owner proves control of the email address.
	IsVerified bool `json:"is_verified"`

	// IsActive is false until verification, then true unless an admin changes it.
	IsActive bool `json:"is_active"`

	// IsBlocked is set by administrators. A blocked account cannot authenticate
	// regardless of IsActive and IsVerified.
	IsBlocked bool `json:"is_blocked"`

	// IsStaff grants access to the administrative surface.
	IsStaff bool `json:"is_staff"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the account was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail returns the canonical form used for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewAccount creates a pending account: inactive, unverified, not blocked, not staff.
// The membership ID is assigned separately by the registration flow.
func NewAccount(email, fullName, phone, passwordHash string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		FullName:     strings.TrimSpace(fullName),
		Phone:        strings.TrimSpace(phone),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanAuthenticate reports whether the account may log in.
// Blocked always wins. Verification is only required when requireVerified is set.
func (a *Account) CanAuthenticate(requireVerified bool) bool {
	if a.IsBlocked || !a.IsActive {
		return false
	}
	if requireVerified && !a.IsVerified {
		return false
	}
	return true
}

// IsVerifiedActive reports whether verification has already been applied.
func (a *Account) IsVerifiedActive() bool {
	return a.IsVerified && a.IsActive
}

// Status returns the derived administrative state.
func (a *Account) Status() AccountStatus {
	switch {
	case a.IsBlocked:
		return StatusBlocked
	case a.IsActive:
		return StatusActive
	default:
		return StatusPending
	}
}

// AccountPatch lists the fields an administrator may change.
// Nil pointers leave the field untouched.
type AccountPatch struct {
	FullName *string
	Phone    *string
	IsActive *bool
	IsStaff  *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.FullName == nil && p.Phone == nil && p.IsActive == nil && p.IsStaff == nil
}

// Apply copies the set fields onto the account and bumps UpdatedAt.
func (p AccountPatch) Apply(a *Account) {
	if p.FullName != nil {
		a.FullName = strings.TrimSpace(*p.FullName)
	}
	if p.Phone != nil {
		a.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
	if p.IsStaff != nil {
		a.IsStaff = *p.IsStaff
	}
	a.UpdatedAt = time.Now().UTC()
}

// AccountStats holds aggregate account counts for the admin dashboard.
type AccountStats struct {
	TotalUsers   int64 `json:"totalUsers"`
	ActiveUsers  int64 `json:"activeUsers"`
	BlockedUsers int64 `json:"blockedUsers"`
	PendingUsers int64 `json:"pendingUsers"`
}
