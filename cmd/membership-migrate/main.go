// Package main is the entry point for the SOCRP membership migration tool.
// It applies the embedded schema migrations of the configured database driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/config"
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

	command := flag.Arg(0)

	switch command {
	case "version":
		fmt.Printf("SOCRP Membership Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up", "down", "status":
		if err := run(*configPath, command); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func run(configPath, command string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.Logging.NewLogger().Level(zerolog.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	provider, closeFn, err := st.Migrations()
	if err != nil {
		return err
	}
	defer closeFn()

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		for _, r := range results {
			printResult(r)
		}
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No pending migrations")
		}

	case "down":
		result, err := provider.Down(ctx)
		if result != nil {
			printResult(result)
		}
		if err != nil {
			return err
		}

	case "status":
		current, err := provider.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		statuses, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Driver: %s\n", st.Driver())
		fmt.Printf("Current version: %d\n\n", current)
		for _, s := range statuses {
			applied := "-"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("  %-8s %-40s %s\n", s.State, filepath.Base(s.Source.Path), applied)
		}
	}

	return nil
}

func printResult(r *goose.MigrationResult) {
	name := filepath.Base(r.Source.Path)
	if r.Error != nil {
		fmt.Printf("FAILED  %-6s %s: %v\n", r.Direction, name, r.Error)
		return
	}
	fmt.Printf("OK      %-6s %s (%s)\n", r.Direction, name, r.Duration.Round(time.Millisecond))
}

func printUsage() {
	fmt.Println(`SOCRP Membership Migration Tool

Usage:
  membership-migrate [-config path] <command>

Commands:
  up          Run all pending migrations
  down        Roll back the last migration
  status      Show current migration status
  version     Print version information
  help        Show this help message

Environment Variables:
  MEMBERSHIP_DATABASE_DRIVER   sqlite or postgres
  MEMBERSHIP_DATABASE_URL      PostgreSQL connection string
  MEMBERSHIP_DATABASE_PATH     SQLite database file

Examples:
  membership-migrate up
  membership-migrate -config configs/config.yaml status
  membership-migrate down`)
}
