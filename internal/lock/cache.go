package lock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/socrp-membership/internal/repository"
)

// CacheLocker implements Locker on top of repository.Cache SetNX.
// Each locker has its own owner token so it only releases what it took.
type CacheLocker struct {
	cache repository.Cache
	owner []byte
}

var _ Locker = (*CacheLocker)(nil)

// NewCacheLocker creates a locker with a fresh owner token.
func NewCacheLocker(cache repository.Cache) *CacheLocker {
	return &CacheLocker{
		cache: cache,
		owner: []byte(uuid.NewString()),
	}
}

// Acquire implements Locker.
func (l *CacheLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.cache.SetNX(ctx, key, l.owner, ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	return ok, nil
}

// Release implements Locker.
func (l *CacheLocker) Release(ctx context.Context, key string) error {
	current, err := l.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return nil
		}
		return fmt.Errorf("release %s: %w", key, err)
	}
	if !bytes.Equal(current, l.owner) {
		return nil
	}
	return l.cache.Delete(ctx, key)
}
