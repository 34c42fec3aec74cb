// Package store opens the configured database backend and exposes its
// repositories and migrations behind one handle.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/config"
	"github.com/prn-tf/socrp-membership/internal/repository"
	"github.com/prn-tf/socrp-membership/internal/repository/postgres"
	"github.com/prn-tf/socrp-membership/internal/repository/sqlite"
)

// Store is an open database with its repositories.
type Store struct {
	*repository.Repositories

	db         repository.DatabaseHealth
	driver     string
	migrations func() (*goose.Provider, func() error, error)
}

var _ repository.DatabaseHealth = (*Store)(nil)

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		sqliteCfg := sqlite.DefaultConfig(cfg.Path)
		if cfg.JournalMode != "" {
			sqliteCfg.JournalMode = cfg.JournalMode
		}
		if cfg.BusyTimeout > 0 {
			sqliteCfg.BusyTimeout = cfg.BusyTimeout
		}
		if cfg.SynchronousMode != "" {
			sqliteCfg.SynchronousMode = cfg.SynchronousMode
		}

		db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
		if err != nil {
			return nil, err
		}
		return &Store{
			Repositories: sqlite.NewRepositories(db),
			db:           db,
			driver:       cfg.Driver,
			migrations: func() (*goose.Provider, func() error, error) {
				p, err := db.Migrations()
				return p, func() error { return nil }, err
			},
		}, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &Store{
			Repositories: postgres.NewRepositories(db),
			db:           db,
			driver:       cfg.Driver,
			migrations:   db.Migrations,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Driver returns the backend name.
func (s *Store) Driver() string {
	return s.driver
}

// Migrations returns a goose provider over the backend's embedded migrations.
// The closer must be called when the provider is no longer needed.
func (s *Store) Migrations() (*goose.Provider, func() error, error) {
	return s.migrations()
}

// Migrate applies all pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	provider, closeFn, err := s.Migrations()
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Health checks the database connection health.
func (s *Store) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
