package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coverline/polimport/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// RunMigrations applies the embedded schema migrations for the configured
// backend. Each backend has its own dialect directory.
func RunMigrations(driver string, url string) error {
	var sourceDir, databaseURL string

	switch driver {
	case "postgres":
		sourceDir = "postgres"
		// golang-migrate registers the pgx/v5 driver under the pgx5 scheme.
		databaseURL = strings.Replace(url, "postgres://", "pgx5://", 1)
		databaseURL = strings.Replace(databaseURL, "postgresql://", "pgx5://", 1)
	case "sqlite":
		sourceDir = "sqlite"
		databaseURL = "sqlite3://" + url
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}

	source, err := iofs.New(migrations.FS, sourceDir)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
