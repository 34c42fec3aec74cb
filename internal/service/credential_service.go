package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/metrics"
	"github.com/prn-tf/socrp-membership/internal/pkg/crypto"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// CredentialConfig configures a CredentialService.
type CredentialConfig struct {
	// RequireVerified rejects logins from accounts that never verified their email.
	RequireVerified bool
}

// CredentialService authenticates secrets and issues session tokens.
type CredentialService struct {
	accounts repository.AccountRepository
	hasher   PasswordHasher
	signer   *auth.TokenSigner
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	config   CredentialConfig
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(
	accounts repository.AccountRepository,
	hasher PasswordHasher,
	signer *auth.TokenSigner,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config CredentialConfig,
) *CredentialService {
	return &CredentialService{
		accounts: accounts,
		hasher:   hasher,
		signer:   signer,
		metrics:  m,
		logger:   logger.With().Str("service", "credential").Logger(),
		config:   config,
	}
}

// Authenticate verifies email and secret. Every rejection returns the same
// ErrInvalidCredentials so callers cannot tell which check failed.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Spend a comparison so unknown emails take as long as known ones.
			_ = s.hasher.VerifyDummy(password)
			s.logger.Debug().Str("email_hash", crypto.TokenFingerprint(email)).Msg("unknown email during authentication")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Msg("failed to load account for authentication")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.hasher.Verify(account.PasswordHash, password); err != nil {
		s.logger.Debug().Str("account_id", account.ID).Msg("invalid password during authentication")
		return nil, ErrInvalidCredentials
	}

	if !account.CanAuthenticate(s.config.RequireVerified) {
		s.logger.Info().
			Str("account_id", account.ID).
			Bool("is_blocked", account.IsBlocked).
			Bool("is_active", account.IsActive).
			Bool("is_verified", account.IsVerified).
			Msg("authentication refused for account state")
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// LoginInput contains login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput contains the authenticated account and its tokens.
type LoginOutput struct {
	Account *domain.Account
	Tokens  *auth.TokenPair
}

// Login authenticates a member and issues a token pair.
func (s *CredentialService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	out, err := s.login(ctx, input)
	s.recordLogin("member", err == nil)
	return out, err
}

// AdminLogin is Login restricted to staff accounts. A correct secret on a
// non-staff account yields ErrNotStaff.
func (s *CredentialService) AdminLogin(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	account, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		s.recordLogin("admin", false)
		return nil, err
	}
	if !account.IsStaff {
		s.logger.Warn().Str("account_id", account.ID).Msg("non-staff account attempted admin login")
		s.recordLogin("admin", false)
		return nil, ErrNotStaff
	}

	tokens, err := s.IssueTokens(account)
	if err != nil {
		s.recordLogin("admin", false)
		return nil, err
	}

	s.recordLogin("admin", true)
	s.logger.Info().Str("account_id", account.ID).Msg("staff logged in")
	return &LoginOutput{Account: account, Tokens: tokens}, nil
}

func (s *CredentialService) login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	account, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	tokens, err := s.IssueTokens(account)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("account_id", account.ID).Msg("account logged in")
	return &LoginOutput{Account: account, Tokens: tokens}, nil
}

// IssueTokens mints an access and refresh token for the account.
func (s *CredentialService) IssueTokens(account *domain.Account) (*auth.TokenPair, error) {
	pair, err := s.signer.IssuePair(account)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("failed to issue tokens")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return pair, nil
}

// RefreshOutput contains a new access token.
type RefreshOutput struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Refresh exchanges a refresh token for a new access token. The account is
// reloaded so blocked or deleted accounts cannot extend their session.
func (s *CredentialService) Refresh(ctx context.Context, refreshToken string) (*RefreshOutput, error) {
	claims, err := s.signer.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Error().Err(err).Str("account_id", claims.Subject).Msg("failed to load account for refresh")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !account.CanAuthenticate(s.config.RequireVerified) {
		s.logger.Info().Str("account_id", account.ID).Msg("refresh refused for account state")
		return nil, ErrInvalidToken
	}

	access, exp, err := s.signer.IssueAccess(account)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("failed to issue access token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &RefreshOutput{AccessToken: access, ExpiresAt: exp}, nil
}

func (s *CredentialService) recordLogin(surface string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(surface, success)
	}
}
