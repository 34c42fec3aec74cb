package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prn-tf/socrp-membership/internal/domain"
)

// TokenConfig configures a TokenSigner.
type TokenConfig struct {
	Secret          []byte
	Issuer          string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// TokenSigner signs and verifies HS256 tokens for sessions and email verification.
// It does not touch persistent storage.
type TokenSigner struct {
	secret          []byte
	issuer          string
	accessTTL       time.Duration
	refreshTTL      time.Duration
	verificationTTL time.Duration
	now             func() time.Time
}

// NewTokenSigner creates a TokenSigner.
func NewTokenSigner(cfg TokenConfig) *TokenSigner {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenSigner{
		secret:          cfg.Secret,
		issuer:          cfg.Issuer,
		accessTTL:       cfg.AccessTTL,
		refreshTTL:      cfg.RefreshTTL,
		verificationTTL: cfg.VerificationTTL,
		now:             now,
	}
}

// IssuePair mints an access and a refresh token for the account.
func (s *TokenSigner) IssuePair(account *domain.Account) (*TokenPair, error) {
	access, accessExp, err := s.IssueAccess(account)
	if err != nil {
		return nil, err
	}

	refreshExp := s.now().Add(s.refreshTTL)
	refresh, err := s.sign(s.claims(account, AudienceRefresh, refreshExp))
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess mints an access token for the account.
func (s *TokenSigner) IssueAccess(account *domain.Account) (string, time.Time, error) {
	exp := s.now().Add(s.accessTTL)
	token, err := s.sign(s.claims(account, AudienceAccess, exp))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, exp, nil
}

// ParseAccess validates an access token and returns its claims.
func (s *TokenSigner) ParseAccess(token string) (*Claims, error) {
	return s.parse(token, AudienceAccess)
}

// ParseRefresh validates a refresh token and returns its claims.
func (s *TokenSigner) ParseRefresh(token string) (*Claims, error) {
	return s.parse(token, AudienceRefresh)
}

// IssueVerification returns an expiring reference that decodes to accountID.
func (s *TokenSigner) IssueVerification(accountID string) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID,
			Audience:  jwt.ClaimStrings{AudienceVerification},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.verificationTTL)),
		},
	}
	ref, err := s.sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign verification reference: %w", err)
	}
	return ref, nil
}

// ParseVerification decodes a verification reference to its account ID.
func (s *TokenSigner) ParseVerification(reference string) (string, error) {
	claims, err := s.parse(reference, AudienceVerification)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *TokenSigner) claims(account *domain.Account, audience string, exp time.Time) *Claims {
	now := s.now()
	return &Claims{
		Email: account.Email,
		Name:  account.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   account.ID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func (s *TokenSigner) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *TokenSigner) parse(token, audience string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{SigningAlgorithm}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
