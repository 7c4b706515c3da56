// Package db provides database connectivity and migrations for taskflows.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/log"

	// Register migrate's sqlite3 driver.
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"

	// Register sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ConnectionString returns the migrate connection string for the
// configured database.
func ConnectionString(cfg *config.Settings) string {
	return "sqlite3://" + cfg.DBPath
}

// Connect establishes a connection to the database.
func Connect(cfg *config.Settings, logger log.Logger) (*sql.DB, error) {
	dbPath := strings.TrimPrefix(cfg.DBPath, "sqlite3://")

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err = conn.Ping(); err != nil {
		return nil, err
	}

	logger.Debug("Connected to database", "path", dbPath)
	return conn, nil
}

// Up runs database migrations to the latest version.
func Up(cfg *config.Settings, logger log.Logger) error {
	m, err := migrationInstance(cfg, logger)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("No new database migrations to apply")
			return nil
		}
		return err
	}
	logger.Info("Database migrations applied")
	return nil
}

// Down rolls back all database migrations.
func Down(cfg *config.Settings, logger log.Logger) error {
	m, err := migrationInstance(cfg, logger)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func migrationInstance(cfg *config.Settings, logger log.Logger) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, ConnectionString(cfg))
	if err != nil {
		return nil, err
	}
	m.Log = &migrationLogger{logger: logger}
	return m, nil
}

// migrationLogger adapts the application logger to migrate's interface.
type migrationLogger struct {
	logger log.Logger
}

func (l *migrationLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug("migration: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrationLogger) Verbose() bool {
	return false
}
