// Package main is the entry point for the SOCRP membership admin CLI.
// It bootstraps staff accounts and performs moderation without going through the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/cache/memory"
	cacheredis "github.com/prn-tf/socrp-membership/internal/cache/redis"
	"github.com/prn-tf/socrp-membership/internal/config"
	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/metrics"
	"github.com/prn-tf/socrp-membership/internal/repository"
	"github.com/prn-tf/socrp-membership/internal/service"
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
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command, args := flag.Arg(0), flag.Args()[1:]

	switch command {
	case "version":
		fmt.Printf("SOCRP Membership Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return

	case "help", "-h", "--help":
		printUsage()
		return

	case "create-staff", "block", "unblock", "stats":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := run(*configPath, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the services a command needs.
type app struct {
	accounts *service.AccountService
	close    func()
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	// Status invalidation must reach the running servers, so use the shared
	// cache when one is configured.
	var (
		cache      repository.Cache
		closeCache func()
	)
	if cfg.Redis.Enabled {
		c, err := cacheredis.NewCache(ctx, cfg.Redis)
		if err != nil {
			st.Close()
			return nil, err
		}
		cache, closeCache = c, func() { _ = c.Close() }
	} else {
		c := memory.NewCache()
		cache, closeCache = c, c.Stop
	}

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		closeCache()
		st.Close()
		return nil, err
	}

	m := metrics.New()
	status := service.NewStatusService(st.Account, cache, cfg.Auth.StatusCacheTTL, m, logger)
	accounts := service.NewAccountService(st.Account, hasher, status, m, logger, service.AccountConfig{
		MaxIDAttempts:    cfg.Membership.MaxIDAttempts,
		MembershipPrefix: cfg.Membership.IDPrefix,
	})

	return &app{
		accounts: accounts,
		close: func() {
			closeCache()
			st.Close()
		},
	}, nil
}

func run(configPath, command string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.Logging.NewLogger().Level(zerolog.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	switch command {
	case "create-staff":
		return a.createStaff(ctx, args)
	case "block":
		return a.setBlocked(ctx, args, true)
	case "unblock":
		return a.setBlocked(ctx, args, false)
	case "stats":
		return a.stats(ctx)
	}
	return nil
}

func (a *app) createStaff(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-staff", flag.ContinueOnError)
	email := fs.String("email", "", "staff email (required)")
	name := fs.String("name", "", "full name (required)")
	password := fs.String("password", "", "initial password (required)")
	phone := fs.String("phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *name == "" || *password == "" {
		fs.Usage()
		return errors.New("--email, --name and --password are required")
	}

	account, err := a.accounts.Create(ctx, service.CreateAccountInput{
		Email:    *email,
		FullName: *name,
		Phone:    *phone,
		Password: *password,
		Staff:    true,
		Verified: true,
	})
	if err != nil {
		return describe(err)
	}

	fmt.Printf("Created staff account %s\n", account.Email)
	fmt.Printf("  ID:            %s\n", account.ID)
	fmt.Printf("  Membership ID: %s\n", account.MembershipID)
	return nil
}

func (a *app) setBlocked(ctx context.Context, args []string, blocked bool) error {
	name := "unblock"
	if blocked {
		name = "block"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	id := fs.String("id", "", "account id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	account, err := a.lookup(ctx, *id, *email)
	if err != nil {
		return err
	}

	account, err = a.accounts.SetBlocked(ctx, account.ID, blocked)
	if err != nil {
		return describe(err)
	}

	fmt.Printf("%s: status=%s\n", account.Email, account.Status())
	return nil
}

func (a *app) lookup(ctx context.Context, id, email string) (*domain.Account, error) {
	var (
		account *domain.Account
		err     error
	)
	switch {
	case id != "":
		account, err = a.accounts.GetByID(ctx, id)
	case email != "":
		account, err = a.accounts.GetByEmail(ctx, email)
	default:
		return nil, errors.New("one of --id or --email is required")
	}
	if err != nil {
		return nil, describe(err)
	}
	return account, nil
}

func (a *app) stats(ctx context.Context) error {
	stats, err := a.accounts.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Total:   %d\n", stats.TotalUsers)
	fmt.Printf("Active:  %d\n", stats.ActiveUsers)
	fmt.Printf("Blocked: %d\n", stats.BlockedUsers)
	fmt.Printf("Pending: %d\n", stats.PendingUsers)
	return nil
}

// describe turns service errors into operator-facing messages.
func describe(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Errorf("invalid input: %v", verr.Fields)
	case errors.Is(err, service.ErrAccountNotFound):
		return errors.New("account not found")
	default:
		return err
	}
}

func printUsage() {
	fmt.Println(`SOCRP Membership Admin CLI

Usage:
  membership-admin [-config path] <command> [arguments]

Commands:
  create-staff  Create a verified staff account
  block         Block an account (by --id or --email)
  unblock       Unblock an account (by --id or --email)
  stats         Print member counts
  version       Print version information
  help          Show this help message

Examples:
  membership-admin create-staff --email admin@socrp.org --name "Site Admin" --password 's3cret-pass'
  membership-admin block --email member@example.com
  membership-admin unblock --id 6f1c0e9a-...
  membership-admin stats`)
}
