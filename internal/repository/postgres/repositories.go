package postgres

import "github.com/prn-tf/socrp-membership/internal/repository"

// NewRepositories wires every PostgreSQL repository onto one pool.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		Account:   NewAccountRepository(db),
		Profile:   NewProfileRepository(db),
		ShareLink: NewShareLinkRepository(db),
	}
}
