package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/pflag"

	"rateintake/internal/config"
	"rateintake/internal/logger"
	"rateintake/internal/repository/postgres"
)

const usage = `usage: migrate [--path dir] <command>

commands:
  up             apply all pending migrations
  down           roll back all migrations
  steps N        apply N migrations (negative N rolls back)
  version        print the current schema version
  force V        set the schema version without running migrations
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	// "steps -1" is a command argument, not a flag
	fs.SetInterspersed(false)
	path := fs.StringP("path", "p", "", "migrations directory or source URL (default from RATEINTAKE_DB_MIGRATIONS_PATH)")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(&cfg.Log)
	if *path != "" {
		cfg.DB.MigrationsPath = *path
	}

	cmd := fs.Arg(0)
	if cmd == "up" {
		version, err := postgres.MigrateUp(&cfg.DB)
		if err != nil {
			return err
		}
		slog.Info("migrations applied", "source", cfg.DB.MigrationsURL(), "version", version)
		return nil
	}

	m, err := postgres.NewMigrator(&cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	switch cmd {
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		slog.Info("migrations rolled back")
	case "steps":
		n, err := intArg(fs, "steps")
		if err != nil {
			return err
		}
		if err := m.Steps(n); err != nil {
			return fmt.Errorf("migrate steps %d: %w", n, err)
		}
		slog.Info("migration steps applied", "steps", n)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			slog.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading version: %w", err)
		}
		slog.Info("schema version", "version", version, "dirty", dirty)
	case "force":
		v, err := intArg(fs, "force")
		if err != nil {
			return err
		}
		if err := m.Force(v); err != nil {
			return fmt.Errorf("migrate force %d: %w", v, err)
		}
		slog.Info("schema version forced", "version", v)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func intArg(fs *pflag.FlagSet, cmd string) (int, error) {
	if fs.NArg() < 2 {
		return 0, fmt.Errorf("%s requires a number", cmd)
	}
	n, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", cmd, fs.Arg(1))
	}
	return n, nil
}
