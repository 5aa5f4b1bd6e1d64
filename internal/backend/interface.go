package backend

import (
	"context"

	"hse/internal/records"
	"hse/internal/storage"
)

// Backend is everything the server and the admin CLI need from the data
// layer: the record store plus contractor resolution for form and import
// input.
type Backend interface {
	records.Store
	ResolveContractor(ctx context.Context, ref string) (string, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Dialect of the underlying store, used when generating SQL.
	Dialect storage.Dialect
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// Optional created-record events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Load the sample dataset after opening
	SeedSample bool
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
