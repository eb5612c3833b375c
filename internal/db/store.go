package db

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/cointap/mining-api/internal/errors"
	"github.com/cointap/mining-api/pkg/logger"
)

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db *sql.DB
}

// Operations abstracts connecting and migrating so tests can stub them.
type Operations interface {
	Open(driverName, dataSourceName string) (*sql.DB, error)
	RunMigrations(db *sql.DB, sourceURL string) error
}

// DefaultOperations opens a real connection and runs file migrations.
type DefaultOperations struct{}

func (DefaultOperations) Open(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

func (DefaultOperations) RunMigrations(db *sql.DB, sourceURL string) error {
	return RunMigrations(db, sourceURL)
}

// NewStore connects to Postgres, verifies the connection and applies
// pending migrations before returning the store.
func NewStore(ops Operations, dsn, migrationsURL string) (Store, error) {
	db, err := ops.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := ops.RunMigrations(db, migrationsURL); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// NewStoreWithDB wraps an existing connection; used by tests with sqlmock.
func NewStoreWithDB(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// RunMigrations runs the database migrations
func RunMigrations(db *sql.DB, sourceURL string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return &errors.DatabaseError{Operation: "could not create the postgres driver", Err: err}
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return &errors.DatabaseError{Operation: "could not create migrate instance", Err: err}
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return &errors.DatabaseError{Operation: "an error occurred while syncing the database", Err: err}
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
