package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/metrics"
	"github.com/prn-tf/socrp-membership/internal/notify"
)

// RegistrationConfig configures a RegistrationService.
type RegistrationConfig struct {
	// VerifyURLBase is prefixed to the verification reference in emails,
	// e.g. https://members.example.org/api/verify/
	VerifyURLBase string
}

// RegistrationService creates pending accounts and dispatches the
// verification email. Dispatch is queued: a slow or failing mail transport
// never fails or delays registration.
type RegistrationService struct {
	accounts *AccountService
	signer   *auth.TokenSigner
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	config   RegistrationConfig
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(
	accounts *AccountService,
	signer *auth.TokenSigner,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config RegistrationConfig,
) *RegistrationService {
	return &RegistrationService{
		accounts: accounts,
		signer:   signer,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("service", "registration").Logger(),
		config:   config,
	}
}

// RegisterInput contains the registration form.
type RegisterInput struct {
	Email           string
	FullName        string
	Phone           string
	Password        string
	ConfirmPassword string
}

// RegisterOutput contains the created account.
type RegisterOutput struct {
	Account *domain.Account

	// NotificationQueued is false when the verification email could not be
	// queued. The account exists either way.
	NotificationQueued bool
}

// Register creates a pending account (inactive, unverified) and queues the
// verification email.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	if input.Password != input.ConfirmPassword {
		s.recordRegistration("invalid")
		return nil, &ValidationError{
			Err:    ErrPasswordMismatch,
			Fields: map[string]string{"confirm_password": ErrPasswordMismatch.Error()},
		}
	}

	account, err := s.accounts.Create(ctx, CreateAccountInput{
		Email:    input.Email,
		FullName: input.FullName,
		Phone:    input.Phone,
		Password: input.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			s.recordRegistration("duplicate")
		case errors.Is(err, ErrValidation):
			s.recordRegistration("invalid")
		default:
			s.recordRegistration("error")
		}
		return nil, err
	}
	s.recordRegistration("created")

	queued := s.SendVerification(ctx, account)

	s.logger.Info().
		Str("account_id", account.ID).
		Str("membership_id", account.MembershipID).
		Bool("notification_queued", queued).
		Msg("account registered")

	return &RegisterOutput{Account: account, NotificationQueued: queued}, nil
}

// SendVerification issues a fresh verification reference and queues the email.
// Failures are logged and reported through the return value only.
func (s *RegistrationService) SendVerification(ctx context.Context, account *domain.Account) bool {
	ref, err := s.signer.IssueVerification(account.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("failed to issue verification reference")
		return false
	}

	link := strings.TrimRight(s.config.VerifyURLBase, "/") + "/" + ref
	msg := notify.VerificationMessage(account.Email, account.FullName, link)

	if err := s.notifier.Enqueue(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("failed to queue verification email")
		if s.metrics != nil {
			s.metrics.RecordNotification("enqueue_failed")
		}
		return false
	}
	return true
}

func (s *RegistrationService) recordRegistration(result string) {
	if s.metrics != nil {
		s.metrics.RecordRegistration(result)
	}
}
