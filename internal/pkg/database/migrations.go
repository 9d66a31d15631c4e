package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrate is replaced in tests
var newMigrate = migrate.NewWithInstance

// RunMigrations applies every pending up migration
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	m, err := newMigrator(ctx, db)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// RollbackMigrations reverts the given number of applied migrations
func RollbackMigrations(ctx context.Context, db *sqlx.DB, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}

	m, err := newMigrator(ctx, db)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version and whether it is dirty
func MigrationVersion(ctx context.Context, db *sqlx.DB) (uint, bool, error) {
	m, err := newMigrator(ctx, db)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// newMigrator binds the embedded migrations to a dedicated connection taken from the pool.
// Closing the migrator releases that connection only, never the pool.
func newMigrator(ctx context.Context, db *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("init migration source: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire migration connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("init migration driver: %w", err)
	}

	return bindMigrator(src, driver)
}

// bindMigrator owns driver: it is closed, releasing its connection, when binding fails
func bindMigrator(src source.Driver, driver migratedb.Driver) (*migrate.Migrate, error) {
	m, err := newMigrate("iofs", src, "postgres", driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}
