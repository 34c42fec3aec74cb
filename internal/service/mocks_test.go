package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/notify"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// =============================================================================
// Account Repository
// =============================================================================

// MockAccountRepository is a map-backed repository.AccountRepository.
// It enforces the same uniqueness rules as the SQL stores.
type MockAccountRepository struct {
	mu            sync.Mutex
	byID          map[string]*domain.Account
	emails        map[string]string
	membershipIDs map[string]string

	// collideN makes the next N Create calls fail with ErrDuplicateMembershipID.
	collideN    int
	createCalls int
	getErr      error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		byID:          make(map[string]*domain.Account),
		emails:        make(map[string]string),
		membershipIDs: make(map[string]string),
	}
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.collideN > 0 {
		m.collideN--
		return domain.ErrDuplicateMembershipID
	}
	if _, exists := m.emails[strings.ToLower(account.Email)]; exists {
		return domain.ErrDuplicateEmail
	}
	if _, exists := m.membershipIDs[account.MembershipID]; exists {
		return domain.ErrDuplicateMembershipID
	}

	stored := *account
	m.byID[account.ID] = &stored
	m.emails[strings.ToLower(account.Email)] = account.ID
	m.membershipIDs[account.MembershipID] = account.ID
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	id, ok := m.emails[strings.ToLower(email)]
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[account.ID]
	if !ok {
		return repository.ErrNotFound
	}
	a.FullName = account.FullName
	a.Phone = account.Phone
	a.IsActive = account.IsActive
	a.IsStaff = account.IsStaff
	a.UpdatedAt = account.UpdatedAt
	return nil
}

func (m *MockAccountRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsBlocked = blocked
	return nil
}

func (m *MockAccountRepository) MarkVerified(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if a.IsVerified && a.IsActive {
		return false, nil
	}
	a.IsVerified = true
	a.IsActive = true
	return true, nil
}

func (m *MockAccountRepository) List(ctx context.Context, opts repository.AccountListOptions) (*repository.ListResult[domain.Account], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*domain.Account
	for _, a := range m.byID {
		if opts.Status != "" && a.Status() != opts.Status {
			continue
		}
		if opts.Search != "" {
			q := strings.ToLower(opts.Search)
			if !strings.Contains(strings.ToLower(a.FullName), q) && !strings.Contains(a.Email, q) {
				continue
			}
		}
		copied := *a
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := min(opts.Offset, len(matched))
	end := min(start+opts.Limit, len(matched))

	return &repository.ListResult[domain.Account]{
		Items:  matched[start:end],
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockAccountRepository) Stats(ctx context.Context) (*domain.AccountStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &domain.AccountStats{}
	for _, a := range m.byID {
		stats.TotalUsers++
		switch a.Status() {
		case domain.StatusActive:
			stats.ActiveUsers++
		case domain.StatusBlocked:
			stats.BlockedUsers++
		case domain.StatusPending:
			stats.PendingUsers++
		}
	}
	return stats, nil
}

// seed stores an account directly, bypassing the service.
func (m *MockAccountRepository) seed(a *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *a
	m.byID[a.ID] = &stored
	m.emails[strings.ToLower(a.Email)] = a.ID
	m.membershipIDs[a.MembershipID] = a.ID
}

// =============================================================================
// Profile Repository
// =============================================================================

type MockProfileRepository struct {
	profiles map[string]*domain.Profile
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{profiles: make(map[string]*domain.Profile)}
}

func (m *MockProfileRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	p, ok := m.profiles[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

// =============================================================================
// Share Link Repository
// =============================================================================

type MockShareLinkRepository struct {
	mu       sync.Mutex
	links    map[string]*domain.ShareLink // by token hash
	accesses []*domain.ShareLinkAccess
}

func NewMockShareLinkRepository() *MockShareLinkRepository {
	return &MockShareLinkRepository{links: make(map[string]*domain.ShareLink)}
}

func (m *MockShareLinkRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.links[link.TokenHash]; exists {
		return domain.ErrShareLinkExists
	}
	stored := *link
	m.links[link.TokenHash] = &stored
	return nil
}

func (m *MockShareLinkRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (m *MockShareLinkRepository) ListByAccount(ctx context.Context, accountID string) ([]*repository.ShareLinkSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*repository.ShareLinkSummary
	for _, l := range m.links {
		if l.AccountID != accountID {
			continue
		}
		var count int64
		for _, a := range m.accesses {
			if a.ShareLinkID == l.ID {
				count++
			}
		}
		copied := *l
		out = append(out, &repository.ShareLinkSummary{Link: &copied, AccessCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Link.CreatedAt.After(out[j].Link.CreatedAt) })
	return out, nil
}

func (m *MockShareLinkRepository) RecordAccess(ctx context.Context, access *domain.ShareLinkAccess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accesses = append(m.accesses, access)
	return nil
}

func (m *MockShareLinkRepository) CountAccesses(ctx context.Context, shareLinkID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.accesses {
		if a.ShareLinkID == shareLinkID {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// Collaborators
// =============================================================================

// syncAccessRecorder writes straight to the repository so tests can count entries.
type syncAccessRecorder struct {
	links repository.ShareLinkRepository
}

func (r syncAccessRecorder) Record(access *domain.ShareLinkAccess) {
	_ = r.links.RecordAccess(context.Background(), access)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Enqueue(ctx context.Context, msg notify.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestSigner(clock *testClock) *auth.TokenSigner {
	return auth.NewTokenSigner(auth.TokenConfig{
		Secret:          []byte(testSecret),
		Issuer:          "membership-test",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      24 * time.Hour,
		VerificationTTL: 72 * time.Hour,
		Now:             clock.Now,
	})
}

func newTestHasher(t *testing.T) *auth.BcryptHasher {
	t.Helper()
	h, err := auth.NewBcryptHasher(4)
	require.NoError(t, err)
	return h
}

// testEnv wires every service against in-memory fakes.
type testEnv struct {
	clock    *testClock
	accounts *MockAccountRepository
	profiles *MockProfileRepository
	links    *MockShareLinkRepository
	notifier *mockNotifier
	signer   *auth.TokenSigner
	hasher   *auth.BcryptHasher

	accountSvc      *AccountService
	credentialSvc   *CredentialService
	registrationSvc *RegistrationService
	verificationSvc *VerificationService
	profileSvc      *ProfileService
	shareSvc        *ShareLinkService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	env := &testEnv{
		clock:    newTestClock(),
		accounts: NewMockAccountRepository(),
		profiles: NewMockProfileRepository(),
		links:    NewMockShareLinkRepository(),
		notifier: &mockNotifier{},
		hasher:   newTestHasher(t),
	}
	env.signer = newTestSigner(env.clock)
	clock := Clock(env.clock.Now)

	env.accountSvc = NewAccountService(env.accounts, env.hasher, nil, nil, logger, AccountConfig{
		MaxIDAttempts: 5,
		Clock:         clock,
	})
	env.credentialSvc = NewCredentialService(env.accounts, env.hasher, env.signer, nil, logger, CredentialConfig{})
	env.registrationSvc = NewRegistrationService(env.accountSvc, env.signer, env.notifier, nil, logger, RegistrationConfig{
		VerifyURLBase: "https://members.example.org/api/verify/",
	})
	env.verificationSvc = NewVerificationService(env.accounts, env.signer, env.registrationSvc, nil, nil, nil, logger, VerificationConfig{})
	env.profileSvc = NewProfileService(env.accounts, env.profiles, nil, logger)
	env.shareSvc = NewShareLinkService(env.accounts, env.links, env.profileSvc, syncAccessRecorder{links: env.links}, nil, logger, ShareLinkConfig{
		URLBase: "https://members.example.org/shared/",
		Clock:   clock,
	})
	return env
}

// createAccount inserts an account with the given state flags via the service.
func (env *testEnv) createAccount(t *testing.T, email string, verified bool) *domain.Account {
	t.Helper()
	a, err := env.accountSvc.Create(context.Background(), CreateAccountInput{
		Email:    email,
		FullName: "Test User",
		Password: "password123",
		Verified: verified,
	})
	require.NoError(t, err)
	return a
}
