package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// StatusChecker returns the live state of an account.
// Implementations return ErrUnknownAccount when the account does not exist.
type StatusChecker interface {
	AccountState(ctx context.Context, accountID string) (*AccountState, error)
}

// contextKey is a private type for context keys in this package.
type contextKey int

const principalKey contextKey = iota

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// Middleware authenticates bearer access tokens and re-validates the account
// on every request, so blocking an account takes effect on tokens already issued.
type Middleware struct {
	signer *TokenSigner
	status StatusChecker
	logger zerolog.Logger
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(signer *TokenSigner, status StatusChecker, logger zerolog.Logger) *Middleware {
	return &Middleware{
		signer: signer,
		status: status,
		logger: logger.With().Str("component", "auth_middleware").Logger(),
	}
}

// RequireAuth rejects requests without a valid access token for a usable account.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerFromRequest(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, ErrorCodeNotAuthenticated, err.Error())
			return
		}

		claims, err := m.signer.ParseAccess(token)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				writeAuthError(w, http.StatusUnauthorized, ErrorCodeTokenExpired, ErrTokenExpired.Error())
				return
			}
			m.logger.Debug().Err(err).Msg("rejected access token")
			writeAuthError(w, http.StatusUnauthorized, ErrorCodeNotAuthenticated, ErrTokenInvalid.Error())
			return
		}

		state, err := m.status.AccountState(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, ErrUnknownAccount) {
				writeAuthError(w, http.StatusUnauthorized, ErrorCodeNotAuthenticated, ErrTokenInvalid.Error())
				return
			}
			m.logger.Error().Err(err).Str("account_id", claims.Subject).Msg("failed to load account state")
			writeAuthError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal server error")
			return
		}
		if !state.Usable() {
			m.logger.Info().Str("account_id", claims.Subject).Bool("blocked", state.Blocked).Msg("token presented for disabled account")
			writeAuthError(w, http.StatusUnauthorized, ErrorCodeNotAuthenticated, ErrAccountDisabled.Error())
			return
		}

		p := &Principal{
			AccountID: claims.Subject,
			Email:     claims.Email,
			Name:      claims.Name,
			IsStaff:   state.Staff,
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireStaff must be chained after RequireAuth.
func (m *Middleware) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, ErrorCodeNotAuthenticated, ErrMissingToken.Error())
			return
		}
		if !p.IsStaff {
			writeAuthError(w, http.StatusForbidden, ErrorCodePermissionDenied, ErrStaffRequired.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

func writeAuthError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", BearerScheme)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
