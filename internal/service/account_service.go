package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/metrics"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
	maxFullNameLength = 255
	maxPhoneLength    = 32

	defaultListLimit = 20
	maxListLimit     = 100

	membershipIDRetryDelay = 5 * time.Millisecond
)

// PasswordHasher hashes and verifies account secrets.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(hash, secret string) error
	VerifyDummy(secret string) error
}

// AccountConfig configures an AccountService.
type AccountConfig struct {
	// MaxIDAttempts bounds membership ID generation on collision.
	MaxIDAttempts int

	// MembershipPrefix is the organisation code in membership IDs.
	MembershipPrefix string

	Clock Clock
}

// AccountService owns account records: creation, lookup and the
// administrative changes staff can make.
type AccountService struct {
	accounts  repository.AccountRepository
	hasher    PasswordHasher
	status    *StatusService
	ids       *MembershipIDGenerator
	sanitizer textSanitizer
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	config    AccountConfig
}

// NewAccountService creates a new AccountService.
// status may be nil when no status cache is in use.
func NewAccountService(
	accounts repository.AccountRepository,
	hasher PasswordHasher,
	status *StatusService,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config AccountConfig,
) *AccountService {
	if config.MaxIDAttempts <= 0 {
		config.MaxIDAttempts = 5
	}
	return &AccountService{
		accounts:  accounts,
		hasher:    hasher,
		status:    status,
		ids:       NewMembershipIDGenerator(config.MembershipPrefix, config.Clock),
		sanitizer: newTextSanitizer(),
		metrics:   m,
		logger:    logger.With().Str("service", "account").Logger(),
		config:    config,
	}
}

// CreateAccountInput contains the data needed to create an account.
type CreateAccountInput struct {
	Email    string
	FullName string
	Phone    string
	Password string

	// Staff grants access to the administrative surface.
	Staff bool

	// Verified creates the account already verified and active,
	// skipping the email round trip (used for staff bootstrap).
	Verified bool
}

// Create validates input, hashes the secret and inserts the account with a
// fresh membership ID. Email uniqueness and membership ID uniqueness are both
// enforced by the store, so concurrent creations cannot race.
func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	input.FullName = s.sanitizer.Clean(input.FullName)
	input.Phone = s.sanitizer.Clean(input.Phone)

	if verr := s.validateCreateInput(input); verr.HasErrors() {
		return nil, verr
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	account := domain.NewAccount(input.Email, input.FullName, input.Phone, hash)
	account.IsStaff = input.Staff
	if input.Verified {
		account.IsVerified = true
		account.IsActive = true
	}

	if err := s.insertWithMembershipID(ctx, account); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			return nil, &ValidationError{
				Err:    domain.ErrDuplicateEmail,
				Fields: map[string]string{"email": "an account with this email already exists"},
			}
		case errors.Is(err, domain.ErrDuplicateMembershipID):
			s.logger.Error().Int("attempts", s.config.MaxIDAttempts).Msg("membership id space exhausted for this attempt")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, ErrMembershipIDUnavailable)
		default:
			s.logger.Error().Err(err).Str("email", account.Email).Msg("failed to create account")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Str("membership_id", account.MembershipID).
		Bool("is_staff", account.IsStaff).
		Bool("is_verified", account.IsVerified).
		Msg("account created")

	return account, nil
}

// insertWithMembershipID draws membership IDs until the insert succeeds,
// a non-collision error occurs or MaxIDAttempts is reached.
func (s *AccountService) insertWithMembershipID(ctx context.Context, account *domain.Account) error {
	backoff := retry.WithMaxRetries(
		uint64(s.config.MaxIDAttempts-1),
		retry.NewConstant(membershipIDRetryDelay),
	)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		id, err := s.ids.Next()
		if err != nil {
			return err
		}
		account.MembershipID = id

		err = s.accounts.Create(ctx, account)
		if errors.Is(err, domain.ErrDuplicateMembershipID) {
			s.logger.Warn().Int("attempt", attempt).Str("membership_id", id).Msg("membership id collision, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *AccountService) validateCreateInput(input CreateAccountInput) *ValidationError {
	verr := &ValidationError{}

	if !isValidEmail(input.Email) {
		verr.Add("email", "enter a valid email address")
	}
	if input.FullName == "" {
		verr.Add("full_name", "this field is required")
	} else if len(input.FullName) > maxFullNameLength {
		verr.Add("full_name", fmt.Sprintf("must be at most %d characters", maxFullNameLength))
	}
	if len(input.Phone) > maxPhoneLength {
		verr.Add("phone", fmt.Sprintf("must be at most %d characters", maxPhoneLength))
	}
	if len(input.Password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	} else if len(input.Password) > maxPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLength))
	}

	return verr
}

func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// GetByID retrieves an account by ID.
func (s *AccountService) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error().Err(err).Str("account_id", id).Msg("failed to get account")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return account, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error().Err(err).Msg("failed to get account by email")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return account, nil
}

// ListAccountsInput contains filters and pagination for listing accounts.
type ListAccountsInput struct {
	Search string
	Status string
	Limit  int
	Offset int
}

// ListAccountsOutput contains one page of accounts.
type ListAccountsOutput struct {
	Accounts []*domain.Account
	Total    int64
	Limit    int
	Offset   int
}

// List returns accounts matching the filters, newest first.
func (s *AccountService) List(ctx context.Context, input ListAccountsInput) (*ListAccountsOutput, error) {
	if input.Limit <= 0 {
		input.Limit = defaultListLimit
	}
	if input.Limit > maxListLimit {
		input.Limit = maxListLimit
	}
	if input.Offset < 0 {
		input.Offset = 0
	}

	var status domain.AccountStatus
	if input.Status != "" {
		parsed, ok := domain.ParseAccountStatus(input.Status)
		if !ok {
			return nil, NewValidationError("status", "must be one of active, blocked, pending")
		}
		status = parsed
	}

	result, err := s.accounts.List(ctx, repository.AccountListOptions{
		ListOptions: repository.ListOptions{Limit: input.Limit, Offset: input.Offset},
		Search:      strings.TrimSpace(input.Search),
		Status:      status,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list accounts")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListAccountsOutput{
		Accounts: result.Items,
		Total:    result.Total,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}, nil
}

// Stats returns aggregate account counts.
func (s *AccountService) Stats(ctx context.Context) (*domain.AccountStats, error) {
	stats, err := s.accounts.Stats(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to compute account stats")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return stats, nil
}

// Update applies an administrative patch.
func (s *AccountService) Update(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	verr := &ValidationError{}
	if patch.FullName != nil {
		name := s.sanitizer.Clean(*patch.FullName)
		switch {
		case name == "":
			verr.Add("full_name", "this field may not be blank")
		case len(name) > maxFullNameLength:
			verr.Add("full_name", fmt.Sprintf("must be at most %d characters", maxFullNameLength))
		}
		patch.FullName = &name
	}
	if patch.Phone != nil {
		phone := s.sanitizer.Clean(*patch.Phone)
		if len(phone) > maxPhoneLength {
			verr.Add("phone", fmt.Sprintf("must be at most %d characters", maxPhoneLength))
		}
		patch.Phone = &phone
	}
	if verr.HasErrors() {
		return nil, verr
	}

	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(account)
	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error().Err(err).Str("account_id", id).Msg("failed to update account")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.invalidateStatus(ctx, id)

	if s.metrics != nil {
		s.metrics.RecordAdminAction("update")
	}
	s.logger.Info().
		Str("account_id", id).
		Bool("is_active", account.IsActive).
		Bool("is_staff", account.IsStaff).
		Msg("account updated")

	return account, nil
}

// SetBlocked blocks or unblocks an account and returns the updated record.
// The change applies to tokens already issued on the next request.
func (s *AccountService) SetBlocked(ctx context.Context, id string, blocked bool) (*domain.Account, error) {
	if err := s.accounts.SetBlocked(ctx, id, blocked); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error().Err(err).Str("account_id", id).Msg("failed to set blocked flag")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.invalidateStatus(ctx, id)

	action := "unblock"
	if blocked {
		action = "block"
	}
	if s.metrics != nil {
		s.metrics.RecordAdminAction(action)
	}
	s.logger.Info().Str("account_id", id).Bool("is_blocked", blocked).Msg("account block status updated")

	return s.GetByID(ctx, id)
}

// ToggleBlock flips the blocked flag.
func (s *AccountService) ToggleBlock(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SetBlocked(ctx, id, !account.IsBlocked)
}

func (s *AccountService) invalidateStatus(ctx context.Context, id string) {
	if s.status != nil {
		s.status.Invalidate(ctx, id)
	}
}
