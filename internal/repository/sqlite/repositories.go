package sqlite

import "github.com/prn-tf/socrp-membership/internal/repository"

// NewRepositories wires every SQLite repository onto one connection.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		Account:   NewAccountRepository(db),
		Profile:   NewProfileRepository(db),
		ShareLink: NewShareLinkRepository(db),
	}
}
