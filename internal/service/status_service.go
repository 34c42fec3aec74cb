package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/metrics"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// StatusService answers "may this account still use its tokens?" for every
// authenticated request. Answers are cached for a short TTL and dropped
// whenever an administrative change touches the account.
type StatusService struct {
	accounts repository.AccountRepository
	cache    repository.Cache
	ttl      time.Duration
	keys     repository.CacheKey
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

var _ auth.StatusChecker = (*StatusService)(nil)

// NewStatusService creates a StatusService. cache may be nil to disable caching.
func NewStatusService(
	accounts repository.AccountRepository,
	cache repository.Cache,
	ttl time.Duration,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *StatusService {
	return &StatusService{
		accounts: accounts,
		cache:    cache,
		ttl:      ttl,
		metrics:  m,
		logger:   logger.With().Str("service", "status").Logger(),
	}
}

type cachedState struct {
	Active  bool `json:"a"`
	Blocked bool `json:"b"`
	Staff   bool `json:"s"`
}

// AccountState implements auth.StatusChecker.
func (s *StatusService) AccountState(ctx context.Context, accountID string) (*auth.AccountState, error) {
	key := s.keys.AccountStatus(accountID)

	if s.cache != nil && s.ttl > 0 {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var cached cachedState
			if json.Unmarshal(raw, &cached) == nil {
				s.recordCache(true)
				return &auth.AccountState{Active: cached.Active, Blocked: cached.Blocked, Staff: cached.Staff}, nil
			}
		} else if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("status cache read failed, falling back to store")
		}
		s.recordCache(false)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ErrUnknownAccount
		}
		return nil, err
	}

	state := &auth.AccountState{Active: account.IsActive, Blocked: account.IsBlocked, Staff: account.IsStaff}

	if s.cache != nil && s.ttl > 0 {
		raw, _ := json.Marshal(cachedState{Active: state.Active, Blocked: state.Blocked, Staff: state.Staff})
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.logger.Warn().Err(err).Msg("status cache write failed")
		}
	}

	return state, nil
}

// Invalidate drops the cached state of an account.
func (s *StatusService) Invalidate(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.keys.AccountStatus(accountID)); err != nil {
		s.logger.Warn().Err(err).Str("account_id", accountID).Msg("status cache invalidation failed")
	}
}

func (s *StatusService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordStatusCache(hit)
	}
}
