package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/socrp-membership/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSigner(clock *fakeClock) *TokenSigner {
	return NewTokenSigner(TokenConfig{
		Secret:          []byte("0123456789abcdef0123456789abcdef"),
		Issuer:          "test",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      24 * time.Hour,
		VerificationTTL: 72 * time.Hour,
		Now:             clock.Now,
	})
}

func testAccount() *domain.Account {
	return &domain.Account{ID: "acc-1", Email: "a@x.com", FullName: "Alice"}
}

func TestTokenSigner_PairRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestSigner(clock)

	pair, err := s.IssuePair(testAccount())
	require.NoError(t, err)

	claims, err := s.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "Alice", claims.Name)

	claims, err = s.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
}

func TestTokenSigner_AudienceSeparation(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestSigner(clock)

	pair, err := s.IssuePair(testAccount())
	require.NoError(t, err)
	ref, err := s.IssueVerification("acc-1")
	require.NoError(t, err)

	_, err = s.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = s.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = s.ParseAccess(ref)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = s.ParseVerification(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenSigner_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestSigner(clock)

	pair, err := s.IssuePair(testAccount())
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)
	_, err = s.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = s.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	clock.Advance(24 * time.Hour)
	_, err = s.ParseRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenSigner_Verification(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestSigner(clock)

	ref, err := s.IssueVerification("acc-9")
	require.NoError(t, err)

	id, err := s.ParseVerification(ref)
	require.NoError(t, err)
	assert.Equal(t, "acc-9", id)

	// Flip one character in the signature segment.
	parts := strings.Split(ref, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	_, err = s.ParseVerification(tampered)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = s.ParseVerification("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	clock.Advance(72*time.Hour + time.Second)
	_, err = s.ParseVerification(ref)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenSigner_WrongSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	pair, err := newTestSigner(clock).IssuePair(testAccount())
	require.NoError(t, err)

	other := NewTokenSigner(TokenConfig{
		Secret:     []byte("ffffffffffffffffffffffffffffffff"),
		Issuer:     "test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Now:        clock.Now,
	})
	_, err = other.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"bearer  abc ", "abc", nil},
		{"", "", ErrMissingToken},
		{"Basic abc", "", ErrInvalidAuthorizationHeader},
		{"Bearer", "", ErrInvalidAuthorizationHeader},
		{"Bearer   ", "", ErrInvalidAuthorizationHeader},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ParseBearer(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h, err := NewBcryptHasher(4)
	require.NoError(t, err)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, h.Verify(hash, "correct horse"))
	assert.ErrorIs(t, h.Verify(hash, "wrong"), ErrPasswordMismatch)
	assert.ErrorIs(t, h.VerifyDummy("anything"), ErrPasswordMismatch)
}
