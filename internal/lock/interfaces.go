// Package lock provides short-lived mutual exclusion between server instances.
// Locks are backed by the shared cache: Redis when several instances run,
// the in-memory cache for a single node.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrNotAcquired is returned by WithLock when the lock stayed held by
// another owner for every attempt.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker defines the interface for distributed/local locking.
type Locker interface {
	// Acquire attempts to take key for ttl. It returns false, without error,
	// when another owner holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives up key if this locker still owns it.
	Release(ctx context.Context, key string) error
}

// Options controls how long WithLock waits for a held lock.
type Options struct {
	TTL        time.Duration
	MaxRetries uint64
	RetryDelay time.Duration
}

// DefaultOptions waits up to about a minute for the lock.
func DefaultOptions() Options {
	return Options{
		TTL:        5 * time.Minute,
		MaxRetries: 30,
		RetryDelay: 2 * time.Second,
	}
}

// WithLock runs fn while holding key. It retries acquisition with a constant
// delay and returns ErrNotAcquired when the lock never frees up.
func WithLock(ctx context.Context, locker Locker, key string, opts Options, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(opts.MaxRetries, retry.NewConstant(opts.RetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := locker.Acquire(ctx, key, opts.TTL)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(ErrNotAcquired)
		}
		return nil
	})
	if err != nil {
		return err
	}

	defer func() {
		// Release even when ctx is already cancelled.
		_ = locker.Release(context.WithoutCancel(ctx), key)
	}()
	return fn(ctx)
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// Migrations serializes schema migrations between instances starting together.
func (lockKeys) Migrations() string {
	return "lock:migrations"
}
