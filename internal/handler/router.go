// Package handler provides the HTTP API of the membership service.
package handler

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/metrics"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	config RouterConfig
	logger zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AuthHandler         *AuthHandler
	RegistrationHandler *RegistrationHandler
	ProfileHandler      *ProfileHandler
	AdminHandler        *AdminHandler
	HealthHandler       *HealthHandler

	AuthMiddleware *auth.Middleware
	Metrics        *metrics.Metrics
	ClientIP       *ClientIPResolver
	Logger         zerolog.Logger

	MaxBodySize        int64
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string

	// RateLimitEnabled turns on per-IP limits. AuthRequestsPerMinute applies to
	// credential and registration endpoints, RequestsPerMinute to the rest.
	RateLimitEnabled      bool
	AuthRequestsPerMinute int
	RequestsPerMinute     int
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	if config.ClientIP == nil {
		config.ClientIP = &ClientIPResolver{}
	}
	return &Router{
		config: config,
		logger: config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	cfg := rt.config
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(rt.logger))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-ID"))
	r.Use(hlog.RemoteAddrHandler("remote_addr"))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(corsMiddleware(cfg.CORSAllowedOrigins))
	r.Use(securityHeadersMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		notFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeInvalidRequest, "Method not allowed")
	})

	r.Get("/health", cfg.HealthHandler.Check)

	authLimit := rt.rateLimit(cfg.AuthRequestsPerMinute)
	requireAuth := cfg.AuthMiddleware.RequireAuth
	requireStaff := cfg.AuthMiddleware.RequireStaff

	r.Route("/api", func(r chi.Router) {
		if cfg.MaxBodySize > 0 {
			r.Use(middleware.RequestSize(cfg.MaxBodySize))
		}
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Use(rt.rateLimit(cfg.RequestsPerMinute))

		// Public
		r.With(authLimit).Post("/register", cfg.RegistrationHandler.Register)
		r.Get("/verify/{reference}", cfg.RegistrationHandler.Verify)
		r.With(authLimit).Post("/verify/resend", cfg.RegistrationHandler.Resend)
		r.With(authLimit).Post("/token", cfg.AuthHandler.Token)
		r.With(authLimit).Post("/token/refresh", cfg.AuthHandler.Refresh)
		r.With(authLimit).Post("/admin/login", cfg.AuthHandler.AdminLogin)
		r.Get("/profile/share/{token}", cfg.ProfileHandler.ResolveShare)

		// Members
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/profile", cfg.ProfileHandler.Me)
			r.Get("/profile/share", cfg.ProfileHandler.ListShares)
			r.Post("/profile/share/generate", cfg.ProfileHandler.GenerateShare)
		})

		// Staff
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireStaff)
			r.Get("/admin/stats", cfg.AdminHandler.Stats)
			r.Get("/admin/users", cfg.AdminHandler.ListUsers)
			r.Get("/admin/users/{id}", cfg.AdminHandler.GetUser)
			r.Put("/admin/users/{id}", cfg.AdminHandler.UpdateUser)
			r.Post("/admin/users/{id}/block", cfg.AdminHandler.BlockUser)
			r.Post("/admin/users/{id}/unblock", cfg.AdminHandler.UnblockUser)
			r.Post("/admin/users/{id}/toggle-block", cfg.AdminHandler.ToggleBlock)
		})
	})

	return r
}

// rateLimit returns a per-client-IP limiter, or a passthrough when limiting
// is disabled.
func (rt *Router) rateLimit(perMinute int) func(http.Handler) http.Handler {
	if !rt.config.RateLimitEnabled || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(rt.config.ClientIP.KeyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "Too many requests, please try again later")
		}),
	)
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("http request")
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := slices.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || slices.Contains(allowedOrigins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", strings.Join([]string{
					http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions,
				}, ", "))
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
