package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/okian/smartart/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending migration. It is a no-op at the latest version.
func MigrateUp(db *sql.DB, l logger.Logger) error {
	m, err := newMigrate(db, l)
	if err != nil {
		return err
	}
	// m is not closed: closing it would close db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: up: %w", ErrMigrate, err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(db *sql.DB, l logger.Logger) error {
	m, err := newMigrate(db, l)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: down: %w", ErrMigrate, err)
	}
	return nil
}

// MigrateVersion returns the applied schema version and dirty flag.
// A database without migrations reports version 0.
func MigrateVersion(db *sql.DB, l logger.Logger) (version uint, dirty bool, err error) {
	m, err := newMigrate(db, l)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: version: %w", ErrMigrate, err)
	}
	return version, dirty, nil
}

func newMigrate(db *sql.DB, l logger.Logger) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("%w: open migrations: %w", ErrMigrate, err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite driver: %w", ErrMigrate, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	if l == nil {
		l = logger.Get().Named("migrate")
	}
	m.Log = &migrateLogger{logger: l}
	return m, nil
}

// migrateLogger adapts logger.Logger to migrate.Logger.
type migrateLogger struct {
	logger logger.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
