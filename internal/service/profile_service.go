package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/repository"
	"github.com/prn-tf/socrp-membership/internal/storage"
)

// ProfileService builds read-only profile projections.
type ProfileService struct {
	accounts repository.AccountRepository
	profiles repository.ProfileRepository
	files    storage.URLResolver
	logger   zerolog.Logger
}

// NewProfileService creates a new ProfileService. files may be nil, in which
// case photo and résumé URLs are omitted.
func NewProfileService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	files storage.URLResolver,
	logger zerolog.Logger,
) *ProfileService {
	return &ProfileService{
		accounts: accounts,
		profiles: profiles,
		files:    files,
		logger:   logger.With().Str("service", "profile").Logger(),
	}
}

// Own returns the authenticated member's view of their own profile.
func (s *ProfileService) Own(ctx context.Context, accountID string) (*domain.OwnProfileView, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to load account")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	view, err := s.View(ctx, account)
	if err != nil {
		return nil, err
	}

	return &domain.OwnProfileView{
		ProfileView:  *view,
		Email:        account.Email,
		MembershipID: account.MembershipID,
		IsVerified:   account.IsVerified,
	}, nil
}

// View builds the public projection of account's profile. A member without a
// profile row gets an empty projection. File URLs are best effort.
func (s *ProfileService) View(ctx context.Context, account *domain.Account) (*domain.ProfileView, error) {
	profile, err := s.profiles.GetByAccountID(ctx, account.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error().Err(err).Str("account_id", account.ID).Msg("failed to load profile")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		profile = nil
	}

	view := domain.NewProfileView(account, profile)
	if profile != nil && s.files != nil {
		view.PhotoURL = s.resolve(ctx, profile.PhotoKey)
		view.ResumeURL = s.resolve(ctx, profile.ResumeKey)
	}
	return &view, nil
}

func (s *ProfileService) resolve(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	url, err := s.files.ResolveURL(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to resolve file URL")
		return ""
	}
	return url
}
