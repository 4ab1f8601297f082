package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // register postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // register file source driver
)

// RunMigrations applies all pending migrations from source (e.g. "file://migrations").
// No pending migrations is not an error.
func RunMigrations(dsn, source string) error {
	return withMigrator(dsn, source, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("postgres: run migrations up: %w", err)
		}
		return nil
	})
}

// RunMigrationsDown rolls back all migrations.
func RunMigrationsDown(dsn, source string) error {
	return withMigrator(dsn, source, func(m *migrate.Migrate) error {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("postgres: run migrations down: %w", err)
		}
		return nil
	})
}

// MigrationVersion reports the applied schema version. Zero means none applied.
func MigrationVersion(dsn, source string) (version uint, dirty bool, err error) {
	err = withMigrator(dsn, source, func(m *migrate.Migrate) error {
		v, d, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			return fmt.Errorf("postgres: read migration version: %w", verr)
		}
		version, dirty = v, d
		return nil
	})
	return version, dirty, err
}

func withMigrator(dsn, source string, fn func(*migrate.Migrate) error) error {
	m, err := migrate.New(source, dsn)
	if err != nil {
		return fmt.Errorf("postgres: create migrator: %w", err)
	}
	defer m.Close()
	return fn(m)
}
