package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/socrp-membership/internal/config"
	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// openTestDB connects to MEMBERSHIP_TEST_POSTGRES_DSN, migrates and empties the schema.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("MEMBERSHIP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MEMBERSHIP_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{
		Driver:          "postgres",
		URL:             dsn,
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE accounts CASCADE`)
	require.NoError(t, err)
	return db
}

func TestAccountRepository_Postgres(t *testing.T) {
	db := openTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	a := domain.NewAccount("Pg@Example.com", "Pg User", "", "hash")
	a.MembershipID = "SOCRP-2026-11111"
	require.NoError(t, repo.Create(ctx, a))

	dup := domain.NewAccount("pg@example.com", "Other", "", "hash")
	dup.MembershipID = "SOCRP-2026-22222"
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrDuplicateEmail)

	dup = domain.NewAccount("other@example.com", "Other", "", "hash")
	dup.MembershipID = a.MembershipID
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrDuplicateMembershipID)

	got, err := repo.GetByEmail(ctx, "PG@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	changed, err := repo.MarkVerified(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.MarkVerified(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, repo.SetBlocked(ctx, a.ID, true))
	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStats{TotalUsers: 1, BlockedUsers: 1}, *stats)

	result, err := repo.List(ctx, repository.AccountListOptions{
		ListOptions: repository.ListOptions{Limit: 10},
		Search:      "pg user",
		Status:      domain.StatusBlocked,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
}

func TestShareLinkRepository_Postgres(t *testing.T) {
	db := openTestDB(t)
	accounts := NewAccountRepository(db)
	links := NewShareLinkRepository(db)
	ctx := context.Background()

	owner := domain.NewAccount("share@example.com", "Share Owner", "", "hash")
	owner.MembershipID = "SOCRP-2026-33333"
	require.NoError(t, accounts.Create(ctx, owner))

	link := domain.NewShareLink(owner.ID, "digest", 1, time.Now())
	require.NoError(t, links.Create(ctx, link))
	assert.ErrorIs(t, links.Create(ctx, domain.NewShareLink(owner.ID, "digest", 1, time.Now())), domain.ErrShareLinkExists)

	got, err := links.GetByTokenHash(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)

	require.NoError(t, links.RecordAccess(ctx, &domain.ShareLinkAccess{ShareLinkID: link.ID, AccessedAt: time.Now()}))
	count, err := links.CountAccesses(ctx, link.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
