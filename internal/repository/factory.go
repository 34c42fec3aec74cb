package repository

import "context"

// Repositories holds all repository instances.
type Repositories struct {
	Account   AccountRepository
	Profile   ProfileRepository
	ShareLink ShareLinkRepository
}

// DatabaseHealth is an interface for database health checks.
// This interface satisfies handler.HealthChecker for the health endpoint.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}
