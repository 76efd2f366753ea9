// Package postgres implements the store.Archive interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/evcollect/internal/model"
	"github.com/alfredjeanlab/evcollect/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresArchive implements store.Archive backed by a PostgreSQL database.
type PostgresArchive struct {
	db *sql.DB
}

// Compile-time check that PostgresArchive implements store.Archive.
var _ store.Archive = (*PostgresArchive)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One run uses one connection at a time.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already-migrated database handle.
func NewWithDB(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresArchive) Close() error {
	return s.db.Close()
}

// ArchiveEvents inserts all events in one transaction; either the whole batch
// is archived or none of it is.
func (s *PostgresArchive) ArchiveEvents(ctx context.Context, runID string, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := queryInsertEvents(ctx, tx, runID, events); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresArchive) CountEvents(ctx context.Context) (int64, error) {
	return queryCountEvents(ctx, s.db)
}

func (s *PostgresArchive) LatestPublished(ctx context.Context) (string, error) {
	return queryLatestPublished(ctx, s.db)
}
