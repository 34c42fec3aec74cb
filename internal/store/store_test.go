package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/socrp-membership/internal/config"
	"github.com/prn-tf/socrp-membership/internal/domain"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "nested", "membership.db"),
	}

	s, err := Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	assert.Equal(t, "sqlite", s.Driver())
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Health(ctx))

	provider, closeFn, err := s.Migrations()
	require.NoError(t, err)
	defer closeFn()
	statuses, err := provider.Status(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, statuses)

	stats, err := s.Account.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.AccountStats{}, stats)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, zerolog.Nop())
	assert.Error(t, err)
}
