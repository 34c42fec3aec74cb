package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/cache/memory"
	"github.com/prn-tf/socrp-membership/internal/domain"
)

func TestStatusService_CachesUntilInvalidated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createAccount(t, "a@x.com", true)

	cache := memory.NewCache()
	t.Cleanup(cache.Stop)
	status := NewStatusService(env.accounts, cache, time.Minute, nil, zerolog.Nop())

	state, err := status.AccountState(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, state.Usable())

	// A change behind the service's back is not seen while cached.
	require.NoError(t, env.accounts.SetBlocked(ctx, a.ID, true))
	state, err = status.AccountState(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, state.Blocked)

	status.Invalidate(ctx, a.ID)
	state, err = status.AccountState(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, state.Blocked)
}

func TestStatusService_UnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	status := NewStatusService(env.accounts, nil, 0, nil, zerolog.Nop())

	_, err := status.AccountState(context.Background(), "missing")
	assert.ErrorIs(t, err, auth.ErrUnknownAccount)
}

func TestAsyncAccessLog_DrainsOnClose(t *testing.T) {
	links := NewMockShareLinkRepository()
	log := NewAsyncAccessLog(links, 16, nil, zerolog.Nop())

	for i := 0; i < 10; i++ {
		log.Record(&accessFixture)
	}
	require.NoError(t, log.Close(context.Background()))

	n, err := links.CountAccesses(context.Background(), accessFixture.ShareLinkID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	// Closed logs ignore new entries.
	log.Record(&accessFixture)
	n, _ = links.CountAccesses(context.Background(), accessFixture.ShareLinkID)
	assert.Equal(t, int64(10), n)
}

var accessFixture = domain.ShareLinkAccess{ShareLinkID: "link-1", IPAddress: "198.51.100.1"}
