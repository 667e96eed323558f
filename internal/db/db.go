// Package db manages the Postgres connection pool and schema migrations.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/hook-warden/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is a wrapper around the sqlx.DB connection pool.
type DB struct {
	*sqlx.DB
}

// NewDatabase opens the connection pool, pings it, and applies pending
// migrations. The returned cleanup closes the pool.
func NewDatabase(cfg *config.DBConfig) (*DB, func(), error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode)

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, func() {}, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{DB: conn}

	slog.Info("running database migrations")
	if err := db.RunMigrations(); err != nil {
		_ = conn.Close()
		return nil, func() {}, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, func() {
		if err := conn.Close(); err != nil {
			slog.Error("failed to close database connection", "error", err)
		}
	}, nil
}

// RunMigrations applies the embedded migrations. A dirty schema aborts:
// it needs a manual 'migrate force' rather than silent repair.
func (db *DB) RunMigrations() error {
	migrator, err := db.newMigrator()
	if err != nil {
		return err
	}

	_, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty migration state; fix it manually before restarting")
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (db *DB) newMigrator() (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	dbDriver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return migrator, nil
}
