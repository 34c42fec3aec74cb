package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/socrp-membership/internal/domain"
)

func TestCredentialService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createAccount(t, "member@x.com", true)

	out, err := env.credentialSvc.Login(ctx, LoginInput{Email: "MEMBER@x.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, a.ID, out.Account.ID)
	require.NotNil(t, out.Tokens)

	claims, err := env.signer.ParseAccess(out.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.Subject)
	assert.Equal(t, "member@x.com", claims.Email)
	assert.Equal(t, "Test User", claims.Name)
}

func TestCredentialService_RejectionsAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createAccount(t, "pending@x.com", false)
	blocked := env.createAccount(t, "blocked@x.com", true)
	_, err := env.accountSvc.SetBlocked(ctx, blocked.ID, true)
	require.NoError(t, err)
	deactivated := env.createAccount(t, "inactive@x.com", true)
	off := false
	_, err = env.accountSvc.Update(ctx, deactivated.ID, domain.AccountPatch{IsActive: &off})
	require.NoError(t, err)
	env.createAccount(t, "ok@x.com", true)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@x.com", "password123"},
		{"wrong password", "ok@x.com", "wrong-password"},
		{"pending account", "pending@x.com", "password123"},
		{"blocked with correct secret", "blocked@x.com", "password123"},
		{"deactivated", "inactive@x.com", "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.credentialSvc.Login(ctx, LoginInput{Email: tt.email, Password: tt.password})
			assert.Equal(t, ErrInvalidCredentials, err)
		})
	}
}

func TestCredentialService_RequireVerified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Active but unverified: an administrator activated it by hand.
	a := env.createAccount(t, "manual@x.com", false)
	on := true
	_, err := env.accountSvc.Update(ctx, a.ID, domain.AccountPatch{IsActive: &on})
	require.NoError(t, err)

	_, err = env.credentialSvc.Login(ctx, LoginInput{Email: "manual@x.com", Password: "password123"})
	require.NoError(t, err)

	strict := NewCredentialService(env.accounts, env.hasher, env.signer, nil, zerolog.Nop(), CredentialConfig{RequireVerified: true})
	_, err = strict.Login(ctx, LoginInput{Email: "manual@x.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCredentialService_AdminLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createAccount(t, "member@x.com", true)
	staff, err := env.accountSvc.Create(ctx, CreateAccountInput{
		Email: "staff@x.com", FullName: "Staff", Password: "password123", Staff: true, Verified: true,
	})
	require.NoError(t, err)

	_, err = env.credentialSvc.AdminLogin(ctx, LoginInput{Email: "member@x.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrNotStaff)

	_, err = env.credentialSvc.AdminLogin(ctx, LoginInput{Email: "member@x.com", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	out, err := env.credentialSvc.AdminLogin(ctx, LoginInput{Email: "staff@x.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, staff.ID, out.Account.ID)

	_, err = env.accountSvc.SetBlocked(ctx, staff.ID, true)
	require.NoError(t, err)
	_, err = env.credentialSvc.AdminLogin(ctx, LoginInput{Email: "staff@x.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCredentialService_Refresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createAccount(t, "member@x.com", true)

	out, err := env.credentialSvc.Login(ctx, LoginInput{Email: "member@x.com", Password: "password123"})
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		refreshed, err := env.credentialSvc.Refresh(ctx, out.Tokens.RefreshToken)
		require.NoError(t, err)
		claims, err := env.signer.ParseAccess(refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, a.ID, claims.Subject)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := env.credentialSvc.Refresh(ctx, out.Tokens.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := env.credentialSvc.Refresh(ctx, "garbage")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("blocked account", func(t *testing.T) {
		_, err := env.accountSvc.SetBlocked(ctx, a.ID, true)
		require.NoError(t, err)
		t.Cleanup(func() { _, _ = env.accountSvc.SetBlocked(ctx, a.ID, false) })

		_, err = env.credentialSvc.Refresh(ctx, out.Tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestCredentialService_RefreshExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAccount(t, "member@x.com", true)

	out, err := env.credentialSvc.Login(ctx, LoginInput{Email: "member@x.com", Password: "password123"})
	require.NoError(t, err)

	env.clock.Advance(25 * time.Hour)
	_, err = env.credentialSvc.Refresh(ctx, out.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
