// Package migration applies the embedded schema migrations with golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Migrator runs schema migrations for one database.
type Migrator struct {
	migrate *migrate.Migrate
	log     *logger.Logger
}

// NewSQLite creates a migrator for the SQLite database at dsn.
// The migrator owns its own connection and closes it on Close.
func NewSQLite(dsn string, log *logger.Logger) (*Migrator, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite for migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	src, err := sourceFor("sqlite")
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return newMigrator(m, log), nil
}

// NewPostgres creates a migrator for a PostgreSQL connection string.
// Both postgres:// and postgresql:// URLs are accepted.
func NewPostgres(dsn string, log *logger.Logger) (*Migrator, error) {
	src, err := sourceFor("postgres")
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, pgxURL(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return newMigrator(m, log), nil
}

func newMigrator(m *migrate.Migrate, log *logger.Logger) *Migrator {
	if log == nil {
		log = logger.Default()
	}
	return &Migrator{migrate: m, log: log.WithComponent("migration")}
}

func sourceFor(dir string) (source.Driver, error) {
	src, err := iofs.New(files, dir)
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", dir, err)
	}
	return src, nil
}

func pgxURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// Up runs all pending migrations.
func (m *Migrator) Up() error {
	m.log.Info("Running migrations up")

	err := m.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("No migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.log.Infow("Migrations completed", "version", version, "dirty", dirty)
	return nil
}

// Down rolls back all migrations.
func (m *Migrator) Down() error {
	m.log.Info("Running migrations down")

	err := m.migrate.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("No migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}

	m.log.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations (positive = up, negative = down).
func (m *Migrator) Steps(n int) error {
	m.log.Infow("Running migration steps", "steps", n)

	err := m.migrate.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("No migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration steps failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.log.Infow("Migration steps completed", "version", version, "dirty", dirty)
	return nil
}

// Version returns the current migration version. A fresh database reports 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations.
// Use it only to clear a dirty state after fixing the schema by hand.
func (m *Migrator) Force(version int) error {
	m.log.Warnw("Forcing migration version", "version", version)

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}

// UpSQLite migrates the SQLite database at dsn to the latest version.
func UpSQLite(ctx context.Context, dsn string) error {
	m, err := NewSQLite(dsn, logger.FromContext(ctx))
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
