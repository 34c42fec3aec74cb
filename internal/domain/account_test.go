package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount_Pending(t *testing.T) {
	a := NewAccount("  Alice@Example.COM ", " Alice ", "", "hash")

	assert.Equal(t, "alice@example.com", a.Email)
	assert.Equal(t, "Alice", a.FullName)
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.IsActive)
	assert.False(t, a.IsVerified)
	assert.False(t, a.IsBlocked)
	assert.False(t, a.IsStaff)
	assert.Equal(t, StatusPending, a.Status())
}

func TestAccount_CanAuthenticate(t *testing.T) {
	tests := []struct {
		name            string
		account         Account
		requireVerified bool
		want            bool
	}{
		{"active verified", Account{IsActive: true, IsVerified: true}, false, true},
		{"active unverified allowed", Account{IsActive: true}, false, true},
		{"active unverified gated", Account{IsActive: true}, true, false},
		{"inactive", Account{IsVerified: true}, false, false},
		{"blocked overrides active", Account{IsActive: true, IsVerified: true, IsBlocked: true}, false, false},
		{"blocked staff", Account{IsActive: true, IsVerified: true, IsBlocked: true, IsStaff: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.account.CanAuthenticate(tt.requireVerified))
		})
	}
}

func TestAccount_Status(t *testing.T) {
	assert.Equal(t, StatusActive, (&Account{IsActive: true}).Status())
	assert.Equal(t, StatusBlocked, (&Account{IsActive: true, IsBlocked: true}).Status())
	assert.Equal(t, StatusBlocked, (&Account{IsBlocked: true}).Status())
	assert.Equal(t, StatusPending, (&Account{}).Status())
}

func TestAccountPatch_Apply(t *testing.T) {
	a := &Account{FullName: "Old", Phone: "1", IsActive: false, IsStaff: false}
	name := "  New Name "
	active := true

	patch := AccountPatch{FullName: &name, IsActive: &active}
	require.False(t, patch.IsEmpty())
	patch.Apply(a)

	assert.Equal(t, "New Name", a.FullName)
	assert.Equal(t, "1", a.Phone)
	assert.True(t, a.IsActive)
	assert.False(t, a.IsStaff)
	assert.False(t, a.UpdatedAt.IsZero())

	assert.True(t, AccountPatch{}.IsEmpty())
}

func TestMembershipID(t *testing.T) {
	id := FormatMembershipID(DefaultMembershipPrefix, 2026, 48213)
	assert.Equal(t, "SOCRP-2026-48213", id)
	assert.True(t, IsValidMembershipID("SOCRP", id))
	assert.False(t, IsValidMembershipID("OTHER", id))
	assert.False(t, IsValidMembershipID("SOCRP", "SOCRP-2026-4821"))
	assert.False(t, IsValidMembershipID("SOCRP", "SOCRP-26-48213"))
}

func TestShareLink_Validity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	link := NewShareLink("acc", "hash", 7, now)

	assert.Equal(t, now.Add(7*24*time.Hour), link.ExpiresAt)
	assert.True(t, link.IsValid(now))
	assert.True(t, link.IsValid(link.ExpiresAt.Add(-time.Second)))
	assert.False(t, link.IsValid(link.ExpiresAt))
	assert.False(t, link.IsValid(link.ExpiresAt.Add(time.Second)))
}

func TestIsAllowedShareDays(t *testing.T) {
	for _, d := range []int{1, 2, 7} {
		assert.True(t, IsAllowedShareDays(d), "days=%d", d)
	}
	for _, d := range []int{-1, 0, 3, 4, 5, 6, 8, 14, 30} {
		assert.False(t, IsAllowedShareDays(d), "days=%d", d)
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	err := NewDomainError(ErrDuplicateEmail, "registration", "a@x.com")
	assert.True(t, errors.Is(err, ErrDuplicateEmail))
	assert.Contains(t, err.Error(), "a@x.com")
}

func TestNewProfileView_NilProfile(t *testing.T) {
	view := NewProfileView(&Account{FullName: "Alice"}, nil)
	assert.Equal(t, "Alice", view.FullName)
	assert.NotNil(t, view.Educations)
	assert.NotNil(t, view.Experiences)
}
