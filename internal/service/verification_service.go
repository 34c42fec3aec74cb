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
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// VerifyResult tells the caller whether this call performed the transition.
type VerifyResult string

const (
	VerifyResultJustVerified    VerifyResult = "justVerified"
	VerifyResultAlreadyVerified VerifyResult = "alreadyVerified"
)

// VerificationConfig configures a VerificationService.
type VerificationConfig struct {
	// ResendCooldown is the minimum gap between two verification emails
	// for the same account.
	ResendCooldown time.Duration
}

// VerificationService consumes verification references.
type VerificationService struct {
	accounts     repository.AccountRepository
	signer       *auth.TokenSigner
	registration *RegistrationService
	status       *StatusService
	cache        repository.Cache
	keys         repository.CacheKey
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	config       VerificationConfig
}

// NewVerificationService creates a new VerificationService.
// cache and status may be nil.
func NewVerificationService(
	accounts repository.AccountRepository,
	signer *auth.TokenSigner,
	registration *RegistrationService,
	status *StatusService,
	cache repository.Cache,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config VerificationConfig,
) *VerificationService {
	return &VerificationService{
		accounts:     accounts,
		signer:       signer,
		registration: registration,
		status:       status,
		cache:        cache,
		metrics:      m,
		logger:       logger.With().Str("service", "verification").Logger(),
		config:       config,
	}
}

// VerifyOutput contains the verification outcome.
type VerifyOutput struct {
	Result  VerifyResult
	Account *domain.Account
}

// Verify decodes reference and activates the account. Calling it again for an
// account that is already verified and active returns VerifyResultAlreadyVerified.
// Malformed, tampered or expired references and unknown accounts all fail with
// ErrInvalidReference.
func (s *VerificationService) Verify(ctx context.Context, reference string) (*VerifyOutput, error) {
	accountID, err := s.signer.ParseVerification(reference)
	if err != nil {
		s.logger.Debug().Err(err).Msg("rejected verification reference")
		s.recordVerification("invalid")
		return nil, ErrInvalidReference
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info().Str("account_id", accountID).Msg("verification reference for missing account")
			s.recordVerification("invalid")
			return nil, ErrInvalidReference
		}
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to load account for verification")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if account.IsVerifiedActive() {
		s.recordVerification("already_verified")
		return &VerifyOutput{Result: VerifyResultAlreadyVerified, Account: account}, nil
	}

	changed, err := s.accounts.MarkVerified(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordVerification("invalid")
			return nil, ErrInvalidReference
		}
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to mark account verified")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	account.IsVerified = true
	account.IsActive = true

	if !changed {
		// A concurrent call won the transition.
		s.recordVerification("already_verified")
		return &VerifyOutput{Result: VerifyResultAlreadyVerified, Account: account}, nil
	}

	if s.status != nil {
		s.status.Invalidate(ctx, accountID)
	}
	s.recordVerification("verified")
	s.logger.Info().Str("account_id", accountID).Msg("account verified")

	return &VerifyOutput{Result: VerifyResultJustVerified, Account: account}, nil
}

// Resend queues a new verification email for a pending account. It reports
// nothing about whether the address exists; unknown, verified and throttled
// addresses are silently skipped.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		s.logger.Error().Err(err).Msg("failed to load account for resend")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if account.IsVerified || account.IsBlocked {
		return nil
	}

	if s.cache != nil && s.config.ResendCooldown > 0 {
		ok, err := s.cache.SetNX(ctx, s.keys.VerificationResend(account.ID), []byte("1"), s.config.ResendCooldown)
		if err != nil {
			s.logger.Warn().Err(err).Msg("resend cooldown check failed, sending anyway")
		} else if !ok {
			s.logger.Debug().Str("account_id", account.ID).Msg("verification resend throttled")
			return nil
		}
	}

	s.registration.SendVerification(ctx, account)
	return nil
}

func (s *VerificationService) recordVerification(result string) {
	if s.metrics != nil {
		s.metrics.RecordVerification(result)
	}
}
