// Package migrations embeds the SQL schema and applies it with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// URLs
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"   // sqlite:// URLs
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialects with embedded migrations.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Up applies all pending migrations of dialect to the database at databaseURL.
func Up(dialect, databaseURL string) error {
	m, err := newMigrate(dialect, databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply %s migrations: %w", dialect, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	slog.Info("database schema up to date", "dialect", dialect, "version", version, "dirty", dirty)
	return nil
}

// Down rolls back every migration of dialect.
func Down(dialect, databaseURL string) error {
	m, err := newMigrate(dialect, databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back %s migrations: %w", dialect, err)
	}
	return nil
}

// SQLiteURL converts a database file path to a golang-migrate URL.
func SQLiteURL(path string) string {
	return "sqlite://" + path
}

func newMigrate(dialect, databaseURL string) (*migrate.Migrate, error) {
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("unknown migration dialect %q", dialect)
	}

	src, err := iofs.New(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("open %s migrations: %w", dialect, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		slog.Warn("failed to close migration source", "error", srcErr)
	}
	if dbErr != nil {
		slog.Warn("failed to close migration database", "error", dbErr)
	}
}
