// Package main is the entry point for the SOCRP membership API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/cache/memory"
	cacheredis "github.com/prn-tf/socrp-membership/internal/cache/redis"
	"github.com/prn-tf/socrp-membership/internal/config"
	"github.com/prn-tf/socrp-membership/internal/handler"
	"github.com/prn-tf/socrp-membership/internal/lock"
	"github.com/prn-tf/socrp-membership/internal/metrics"
	"github.com/prn-tf/socrp-membership/internal/notify"
	"github.com/prn-tf/socrp-membership/internal/repository"
	"github.com/prn-tf/socrp-membership/internal/service"
	"github.com/prn-tf/socrp-membership/internal/storage"
	"github.com/prn-tf/socrp-membership/internal/store"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("SOCRP Membership Server %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := cfg.Logging.NewLogger()
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting SOCRP Membership Server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	// Cache
	cache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	if cfg.Database.AutoMigrate {
		// A process-local cache cannot coordinate instances.
		var locker lock.Locker = lock.NewNoOpLocker()
		if cfg.Redis.Enabled {
			locker = lock.NewCacheLocker(cache)
		}
		err := lock.WithLock(ctx, locker, lock.Keys.Migrations(), lock.DefaultOptions(), st.Migrate)
		if err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logger.Info().Str("driver", st.Driver()).Msg("Database schema up to date")
	}

	m := metrics.New()

	files, err := newURLResolver(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	// Notifications
	queue := notify.NewQueue(newSender(cfg.Email, logger), notify.QueueConfig{
		Workers:    cfg.Notify.Workers,
		Size:       cfg.Notify.QueueSize,
		MaxRetries: cfg.Notify.MaxRetries,
		BaseDelay:  cfg.Notify.RetryBaseDelay,
	}, m, logger)
	queue.Start()

	// Auth primitives
	signer := auth.NewTokenSigner(auth.TokenConfig{
		Secret:          []byte(cfg.Auth.JWTSecret),
		Issuer:          cfg.Auth.Issuer,
		AccessTTL:       cfg.Auth.AccessTokenTTL,
		RefreshTTL:      cfg.Auth.RefreshTokenTTL,
		VerificationTTL: cfg.Auth.VerificationTTL,
	})
	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	// Services
	status := service.NewStatusService(st.Account, cache, cfg.Auth.StatusCacheTTL, m, logger)
	accounts := service.NewAccountService(st.Account, hasher, status, m, logger, service.AccountConfig{
		MaxIDAttempts:    cfg.Membership.MaxIDAttempts,
		MembershipPrefix: cfg.Membership.IDPrefix,
	})
	credentials := service.NewCredentialService(st.Account, hasher, signer, m, logger, service.CredentialConfig{
		RequireVerified: cfg.Auth.RequireVerified,
	})
	registration := service.NewRegistrationService(accounts, signer, queue, m, logger, service.RegistrationConfig{
		VerifyURLBase: strings.TrimRight(cfg.Server.PublicURL, "/") + "/api/verify/",
	})
	verification := service.NewVerificationService(st.Account, signer, registration, status, cache, m, logger, service.VerificationConfig{
		ResendCooldown: cfg.Notify.ResendCooldown,
	})
	profiles := service.NewProfileService(st.Account, st.Profile, files, logger)
	accessLog := service.NewAsyncAccessLog(st.ShareLink, cfg.Share.AccessLogBuffer, m, logger)
	links := service.NewShareLinkService(st.Account, st.ShareLink, profiles, accessLog, m, logger, service.ShareLinkConfig{
		URLBase: cfg.Share.URLBase,
	})

	// HTTP
	clientIP, err := handler.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}
	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:           handler.NewAuthHandler(credentials, logger),
		RegistrationHandler:   handler.NewRegistrationHandler(registration, verification, logger),
		ProfileHandler:        handler.NewProfileHandler(profiles, links, clientIP, logger),
		AdminHandler:          handler.NewAdminHandler(accounts, logger),
		HealthHandler:         handler.NewHealthHandler(st),
		AuthMiddleware:        auth.NewMiddleware(signer, status, logger),
		Metrics:               m,
		ClientIP:              clientIP,
		Logger:                logger,
		MaxBodySize:           cfg.Server.MaxBodySize,
		RequestTimeout:        cfg.Server.RequestTimeout,
		CORSAllowedOrigins:    cfg.Server.CORSAllowedOrigins,
		RateLimitEnabled:      cfg.RateLimit.Enabled,
		AuthRequestsPerMinute: cfg.RateLimit.AuthRequestsPerMinute,
		RequestsPerMinute:     cfg.RateLimit.RequestsPerMinute,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Str("path", cfg.Metrics.Path).Msg("Metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Metrics server shutdown error")
		}
	}
	if err := accessLog.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Share access log did not drain")
	}
	if err := queue.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Notification queue did not drain")
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// openCache connects to Redis when enabled and falls back to the in-process cache.
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.Cache, func(), error) {
	if cfg.Redis.Enabled {
		c, err := cacheredis.NewCache(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("Using Redis cache")
		return c, func() { _ = c.Close() }, nil
	}

	c := memory.NewCache()
	logger.Info().Msg("Using in-memory cache")
	return c, c.Stop, nil
}

func newURLResolver(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.URLResolver, error) {
	if cfg.Backend == "s3" {
		return storage.NewS3Presigner(ctx, storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			PresignTTL:      cfg.S3.PresignTTL,
		}, logger)
	}
	return storage.NewPublicResolver(cfg.PublicBaseURL), nil
}

func newSender(cfg config.EmailConfig, logger zerolog.Logger) notify.Sender {
	if cfg.Driver == "smtp" {
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			Timeout:  cfg.Timeout,
		}, logger)
	}
	logger.Warn().Msg("Email driver is 'log': verification emails are written to the log only")
	return notify.NewLogSender(logger)
}
