package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/metrics"
	"github.com/prn-tf/socrp-membership/internal/pkg/crypto"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// ShareLinkConfig configures a ShareLinkService.
type ShareLinkConfig struct {
	// URLBase is prefixed to the token to form the link handed to the owner.
	URLBase string

	Clock Clock
}

// ShareLinkService issues and resolves time-boxed profile share links.
// Possession of an unexpired token is the only authorization for resolve.
type ShareLinkService struct {
	accounts repository.AccountRepository
	links    repository.ShareLinkRepository
	profiles *ProfileService
	access   AccessRecorder
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	config   ShareLinkConfig
}

// NewShareLinkService creates a new ShareLinkService.
func NewShareLinkService(
	accounts repository.AccountRepository,
	links repository.ShareLinkRepository,
	profiles *ProfileService,
	access AccessRecorder,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config ShareLinkConfig,
) *ShareLinkService {
	return &ShareLinkService{
		accounts: accounts,
		links:    links,
		profiles: profiles,
		access:   access,
		metrics:  m,
		logger:   logger.With().Str("service", "sharelink").Logger(),
		config:   config,
	}
}

// GenerateShareLinkInput contains the data needed to generate a link.
type GenerateShareLinkInput struct {
	AccountID string
	Days      int
}

// GenerateShareLinkOutput contains the new link. Token and URL are only
// available here; the store keeps just the token hash.
type GenerateShareLinkOutput struct {
	Link  *domain.ShareLink
	Token string
	URL   string
}

// Generate creates a link for the owner valid for Days (1, 2 or 7) days.
func (s *ShareLinkService) Generate(ctx context.Context, input GenerateShareLinkInput) (*GenerateShareLinkOutput, error) {
	if !domain.IsAllowedShareDays(input.Days) {
		return nil, ErrInvalidDuration
	}

	if _, err := s.accounts.GetByID(ctx, input.AccountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error().Err(err).Str("account_id", input.AccountID).Msg("failed to load share link owner")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	token, err := crypto.GenerateShareToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate share token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	link := domain.NewShareLink(input.AccountID, crypto.HashToken(token), input.Days, s.config.Clock.now())
	if err := s.links.Create(ctx, link); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error().Err(err).Str("account_id", input.AccountID).Msg("failed to create share link")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if s.metrics != nil {
		s.metrics.ShareLinksGenerated.Inc()
	}
	s.logger.Info().
		Str("account_id", input.AccountID).
		Str("share_link_id", link.ID).
		Str("token_fp", crypto.TokenFingerprint(token)).
		Time("expires_at", link.ExpiresAt).
		Msg("share link generated")

	return &GenerateShareLinkOutput{
		Link:  link,
		Token: token,
		URL:   s.linkURL(token),
	}, nil
}

// ResolveShareLinkInput identifies the link and, best effort, the viewer.
type ResolveShareLinkInput struct {
	Token     string
	IPAddress string
	UserAgent string
}

// Resolve returns the owner's public profile projection. An unknown token
// fails with ErrShareLinkNotFound and an outlived one with ErrShareLinkExpired.
// Each successful resolve records exactly one access entry.
func (s *ShareLinkService) Resolve(ctx context.Context, input ResolveShareLinkInput) (*domain.ProfileView, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		s.recordResolve("not_found")
		return nil, ErrShareLinkNotFound
	}

	link, err := s.links.GetByTokenHash(ctx, crypto.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordResolve("not_found")
			return nil, ErrShareLinkNotFound
		}
		s.logger.Error().Err(err).Str("token_fp", crypto.TokenFingerprint(token)).Msg("failed to look up share link")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := s.config.Clock.now()
	if !link.IsValid(now) {
		s.recordResolve("expired")
		return nil, ErrShareLinkExpired
	}

	owner, err := s.accounts.GetByID(ctx, link.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordResolve("not_found")
			return nil, ErrShareLinkNotFound
		}
		s.logger.Error().Err(err).Str("share_link_id", link.ID).Msg("failed to load share link owner")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	view, err := s.profiles.View(ctx, owner)
	if err != nil {
		return nil, err
	}

	s.access.Record(&domain.ShareLinkAccess{
		ShareLinkID: link.ID,
		IPAddress:   input.IPAddress,
		UserAgent:   input.UserAgent,
		AccessedAt:  now,
	})
	s.recordResolve("ok")

	return view, nil
}

// ShareLinkInfo describes one of the owner's links.
type ShareLinkInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiryDate"`
	Active    bool      `json:"active"`
	ViewCount int64     `json:"viewCount"`
}

// List returns the owner's links, newest first, with their view counts.
func (s *ShareLinkService) List(ctx context.Context, accountID string) ([]*ShareLinkInfo, error) {
	summaries, err := s.links.ListByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to list share links")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := s.config.Clock.now()
	infos := make([]*ShareLinkInfo, 0, len(summaries))
	for _, summary := range summaries {
		infos = append(infos, &ShareLinkInfo{
			ID:        summary.Link.ID,
			CreatedAt: summary.Link.CreatedAt,
			ExpiresAt: summary.Link.ExpiresAt,
			Active:    summary.Link.IsValid(now),
			ViewCount: summary.AccessCount,
		})
	}
	return infos, nil
}

func (s *ShareLinkService) linkURL(token string) string {
	return strings.TrimRight(s.config.URLBase, "/") + "/" + token
}

func (s *ShareLinkService) recordResolve(result string) {
	if s.metrics != nil {
		s.metrics.RecordShareResolve(result)
	}
}
