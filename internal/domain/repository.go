// Package domain defines the core types and interfaces for Heron.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for policy request persistence.
// Save re-reads nothing: callers must load the aggregate fresh before
// mutating so transition validity is checked against persisted state.
type Repository interface {
	// Save inserts or updates the aggregate, bumping its version.
	// Returns ErrConflict when the stored version no longer matches.
	Save(ctx context.Context, req *PolicyRequest) (*PolicyRequest, error)

	// FindByID returns the aggregate or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*PolicyRequest, error)

	// FindByCustomerID lists a customer's requests, newest first.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*PolicyRequest, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `env:"HERON_DB_DRIVER"`

	// SQLite specific
	SQLitePath string `env:"HERON_SQLITE_PATH"`

	// PostgreSQL specific
	PostgresHost     string `env:"HERON_PG_HOST"`
	PostgresPort     int    `env:"HERON_PG_PORT"`
	PostgresUser     string `env:"HERON_PG_USER"`
	PostgresPassword string `env:"HERON_PG_PASSWORD"`
	PostgresDB       string `env:"HERON_PG_DB"`
	PostgresSSLMode  string `env:"HERON_PG_SSLMODE"`

	// Connection pool settings
	MaxOpenConns    int           `env:"HERON_DB_MAX_OPEN"`
	MaxIdleConns    int           `env:"HERON_DB_MAX_IDLE"`
	ConnMaxLifetime time.Duration `env:"HERON_DB_CONN_LIFETIME"`
}
