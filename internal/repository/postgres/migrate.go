package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"rateintake/internal/config"
)

// NewMigrator opens the schema migrations at cfg.MigrationsPath against cfg's database.
func NewMigrator(cfg *config.DBConfig) (*migrate.Migrate, error) {
	m, err := migrate.New(cfg.MigrationsURL(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening migrations at %s: %w", cfg.MigrationsURL(), err)
	}
	return m, nil
}

// MigrateUp applies pending migrations and returns the resulting schema
// version. An up-to-date schema is not an error.
func MigrateUp(cfg *config.DBConfig) (uint, error) {
	m, err := NewMigrator(cfg)
	if err != nil {
		return 0, err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("applying migrations: %w", err)
	}
	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}
