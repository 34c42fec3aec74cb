package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/cache/memory"
	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/metrics"
	"github.com/prn-tf/socrp-membership/internal/notify"
	"github.com/prn-tf/socrp-membership/internal/repository"
	"github.com/prn-tf/socrp-membership/internal/repository/sqlite"
	"github.com/prn-tf/socrp-membership/internal/service"
)

// =============================================================================
// Test server
// =============================================================================

type capturingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *capturingNotifier) Enqueue(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

var referencePattern = regexp.MustCompile(`/api/verify/(\S+)`)

// lastReference returns the verification reference from the newest email to addr.
func (n *capturingNotifier) lastReference(t *testing.T, addr string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.msgs) - 1; i >= 0; i-- {
		if n.msgs[i].To != addr {
			continue
		}
		m := referencePattern.FindStringSubmatch(n.msgs[i].Body)
		require.Len(t, m, 2, "verification link not found in email body")
		return m[1]
	}
	t.Fatalf("no email sent to %s", addr)
	return ""
}

type directRecorder struct {
	links repository.ShareLinkRepository
}

func (r directRecorder) Record(access *domain.ShareLinkAccess) {
	_ = r.links.RecordAccess(context.Background(), access)
}

type shiftClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *shiftClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *shiftClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

type testServer struct {
	*httptest.Server
	repos    *repository.Repositories
	notifier *capturingNotifier
	clock    *shiftClock
	accounts *service.AccountService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(filepath.Join(t.TempDir(), "api.db")), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repos := sqlite.NewRepositories(db)
	cache := memory.NewCache()
	t.Cleanup(cache.Stop)
	m := metrics.New()

	clock := &shiftClock{}
	signer := auth.NewTokenSigner(auth.TokenConfig{
		Secret:          []byte("0123456789abcdef0123456789abcdef"),
		Issuer:          "membership-test",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      24 * time.Hour,
		VerificationTTL: 72 * time.Hour,
	})
	hasher, err := auth.NewBcryptHasher(4)
	require.NoError(t, err)
	notifier := &capturingNotifier{}

	status := service.NewStatusService(repos.Account, cache, time.Minute, m, logger)
	accounts := service.NewAccountService(repos.Account, hasher, status, m, logger, service.AccountConfig{MaxIDAttempts: 5})
	credentials := service.NewCredentialService(repos.Account, hasher, signer, m, logger, service.CredentialConfig{})
	registration := service.NewRegistrationService(accounts, signer, notifier, m, logger, service.RegistrationConfig{
		VerifyURLBase: "http://localhost/api/verify/",
	})
	verification := service.NewVerificationService(repos.Account, signer, registration, status, cache, m, logger, service.VerificationConfig{
		ResendCooldown: time.Minute,
	})
	profiles := service.NewProfileService(repos.Account, repos.Profile, nil, logger)
	links := service.NewShareLinkService(repos.Account, repos.ShareLink, profiles, directRecorder{links: repos.ShareLink}, m, logger, service.ShareLinkConfig{
		URLBase: "http://localhost/shared/",
		Clock:   clock.Now,
	})

	router := NewRouter(RouterConfig{
		AuthHandler:         NewAuthHandler(credentials, logger),
		RegistrationHandler: NewRegistrationHandler(registration, verification, logger),
		ProfileHandler:      NewProfileHandler(profiles, links, nil, logger),
		AdminHandler:        NewAdminHandler(accounts, logger),
		HealthHandler:       NewHealthHandler(db),
		AuthMiddleware:      auth.NewMiddleware(signer, status, logger),
		Metrics:             m,
		Logger:              logger,
		MaxBodySize:         1 << 20,
		RequestTimeout:      5 * time.Second,
	})

	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, repos: repos, notifier: notifier, clock: clock, accounts: accounts}
}

func (s *testServer) do(t *testing.T, method, p string, body any, token string) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+p, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (s *testServer) register(t *testing.T, email string) {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/register", map[string]string{
		"email":            email,
		"full_name":        "Member " + email,
		"password":         "password123",
		"confirm_password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, status, body)
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/token", map[string]string{
		"email":    email,
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, status, body)
	return body["access"].(string)
}

// registerVerified registers email and follows its verification link.
func (s *testServer) registerVerified(t *testing.T, email string) string {
	t.Helper()
	s.register(t, email)
	status, _ := s.do(t, http.MethodGet, "/api/verify/"+s.notifier.lastReference(t, email), nil, "")
	require.Equal(t, http.StatusOK, status)
	return s.login(t, email)
}

// =============================================================================
// Tests
// =============================================================================

func TestAPI_RegisterAndVerify(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	s.register(t, "a@x.com")

	account, err := s.repos.Account.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, account.IsActive)
	assert.False(t, account.IsVerified)
	assert.True(t, domain.IsValidMembershipID(domain.DefaultMembershipPrefix, account.MembershipID))

	ref := s.notifier.lastReference(t, "a@x.com")

	parts := strings.Split(ref, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	status, body := s.do(t, http.MethodGet, "/api/verify/"+tampered, nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeInvalidReference, errorCode(body))

	account, err = s.repos.Account.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, account.IsActive, "tampered reference must not activate")

	status, body = s.do(t, http.MethodGet, "/api/verify/"+ref, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(service.VerifyResultJustVerified), body["result"])

	account, err = s.repos.Account.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, account.IsActive)
	assert.True(t, account.IsVerified)

	status, body = s.do(t, http.MethodGet, "/api/verify/"+ref, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(service.VerifyResultAlreadyVerified), body["result"])
}

func TestAPI_RegisterValidation(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/register", map[string]string{"email": "not-an-email"}, "")
	require.Equal(t, http.StatusBadRequest, status)
	fields, _ := body["error"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "password")

	status, body = s.do(t, http.MethodPost, "/api/register", map[string]string{
		"email": "b@x.com", "full_name": "B", "password": "password123", "confirm_password": "different1",
	}, "")
	require.Equal(t, http.StatusBadRequest, status)
	fields, _ = body["error"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "confirm_password")

	s.register(t, "c@x.com")
	status, body = s.do(t, http.MethodPost, "/api/register", map[string]string{
		"email": "C@X.com", "full_name": "C", "password": "password123", "confirm_password": "password123",
	}, "")
	require.Equal(t, http.StatusBadRequest, status)
	fields, _ = body["error"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "email")

	status, _ = s.do(t, http.MethodPost, "/api/register", map[string]any{"email": "d@x.com", "unknown": 1}, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_ResendIsUniform(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "pending@x.com")

	for _, email := range []string{"pending@x.com", "nobody@x.com", "pending@x.com"} {
		status, body := s.do(t, http.MethodPost, "/api/verify/resend", map[string]string{"email": email}, "")
		assert.Equal(t, http.StatusAccepted, status)
		assert.Equal(t, msgResendAccepted, body["message"])
	}

	// Registration email plus one resend; the second resend is throttled.
	s.notifier.mu.Lock()
	defer s.notifier.mu.Unlock()
	assert.Len(t, s.notifier.msgs, 2)
}

func TestAPI_LoginAndProfile(t *testing.T) {
	s := newTestServer(t)
	token := s.registerVerified(t, "m@x.com")

	status, body := s.do(t, http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "m@x.com", body["email"])
	assert.NotEmpty(t, body["membership_id"])

	status, body = s.do(t, http.MethodPost, "/api/token", map[string]string{"email": "m@x.com", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, ErrCodeInvalidCredentials, errorCode(body))

	status, unknownBody := s.do(t, http.MethodPost, "/api/token", map[string]string{"email": "ghost@x.com", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, body, unknownBody)

	status, _ = s.do(t, http.MethodGet, "/api/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_ShareLinks(t *testing.T) {
	s := newTestServer(t)
	token := s.registerVerified(t, "owner@x.com")

	status, body := s.do(t, http.MethodPost, "/api/profile/share/generate", map[string]int{"days": 3}, token)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeValidation, errorCode(body))

	status, body = s.do(t, http.MethodPost, "/api/profile/share/generate", map[string]int{"days": 7}, token)
	require.Equal(t, http.StatusCreated, status)
	shareURL := body["shareUrl"].(string)
	assert.True(t, strings.HasPrefix(shareURL, "http://localhost/shared/"))
	assert.NotEmpty(t, body["expiryDate"])
	shareToken := path.Base(shareURL)

	status, body = s.do(t, http.MethodGet, "/api/profile/share/"+shareToken, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Member owner@x.com", body["full_name"])
	assert.NotContains(t, body, "email")

	status, _ = s.do(t, http.MethodGet, "/api/profile/share/not-a-real-token", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = s.do(t, http.MethodGet, "/api/profile/share", nil, token)
	require.Equal(t, http.StatusOK, status)
	links := body["links"].([]any)
	require.Len(t, links, 1)
	assert.Equal(t, float64(1), links[0].(map[string]any)["viewCount"])

	s.clock.Advance(7*24*time.Hour + time.Second)
	status, body = s.do(t, http.MethodGet, "/api/profile/share/"+shareToken, nil, "")
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, ErrCodeGone, errorCode(body))
}

func TestAPI_AdminSurface(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	memberToken := s.registerVerified(t, "member@x.com")
	s.register(t, "pending@x.com")

	_, err := s.accounts.Create(ctx, service.CreateAccountInput{
		Email: "staff@x.com", FullName: "Staff", Password: "password123", Staff: true, Verified: true,
	})
	require.NoError(t, err)

	status, body := s.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "member@x.com", "password": "password123"}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, ErrCodePermissionDenied, errorCode(body))

	status, _ = s.do(t, http.MethodGet, "/api/admin/stats", nil, memberToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "staff@x.com", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, status)
	staffToken := body["access"].(string)
	assert.Equal(t, true, body["user"].(map[string]any)["is_staff"])

	status, body = s.do(t, http.MethodGet, "/api/admin/stats", nil, staffToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["totalUsers"])
	assert.Equal(t, float64(2), body["activeUsers"])
	assert.Equal(t, float64(1), body["pendingUsers"])
	assert.Equal(t, float64(0), body["blockedUsers"])

	status, body = s.do(t, http.MethodGet, "/api/admin/users?status=pending", nil, staffToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	status, _ = s.do(t, http.MethodGet, "/api/admin/users?limit=abc", nil, staffToken)
	assert.Equal(t, http.StatusBadRequest, status)

	member, err := s.repos.Account.GetByEmail(ctx, "member@x.com")
	require.NoError(t, err)

	status, body = s.do(t, http.MethodPost, "/api/admin/users/"+member.ID+"/block", nil, staffToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["is_blocked"])

	// The member's existing token stops working immediately.
	status, _ = s.do(t, http.MethodGet, "/api/profile", nil, memberToken)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = s.do(t, http.MethodPost, "/api/admin/users/"+member.ID+"/toggle-block", nil, staffToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["user"].(map[string]any)["is_blocked"])

	status, _ = s.do(t, http.MethodGet, "/api/profile", nil, memberToken)
	assert.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodPut, "/api/admin/users/"+member.ID, map[string]any{"full_name": "Renamed"}, staffToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Renamed", body["full_name"])

	status, _ = s.do(t, http.MethodPut, "/api/admin/users/"+member.ID, map[string]any{}, staffToken)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/admin/users/does-not-exist", nil, staffToken)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_Health(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}
