package backend

import (
	"context"
	"fmt"
	"log/slog"

	"hse/internal/adapters"
	"hse/internal/amqp"
	"hse/internal/importer"
	"hse/internal/records"
	"hse/internal/records/memory"
	"hse/internal/services"
	"hse/internal/sqlimport"
	"hse/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the store, wraps it in the record service (with an
// AMQP publisher when configured) and optionally seeds the sample data.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   records.Store
		dialect storage.Dialect
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store, dialect = repo, repo.Dialect()
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		store, dialect = repo, repo.Dialect()
		f.logger.Info("Initialized PostgreSQL backend")
	case MemoryBackend:
		store, dialect = memory.New(), storage.SQLite
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	service := services.NewRecordService(store, f.publisher(config))
	adapter := adapters.NewStoreAdapter(store, service)

	if config.SeedSample {
		if err := f.seed(ctx, adapter); err != nil {
			_ = adapter.Close()
			return nil, err
		}
	}

	return &BackendResult{
		Backend: adapter,
		Dialect: dialect,
		Cleanup: adapter.Close,
	}, nil
}

// publisher connects to AMQP when configured. A broker that cannot be
// reached is logged and skipped; records are still saved.
func (f *DefaultFactory) publisher(config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without record events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

// seed loads the sample dataset unless incidents already exist.
func (f *DefaultFactory) seed(ctx context.Context, b Backend) error {
	existing, err := b.ListIncidents(ctx)
	if err != nil {
		return fmt.Errorf("check existing records: %w", err)
	}
	if len(existing) > 0 {
		f.logger.Info("Skipping sample data, store already has records", "incidents", len(existing))
		return nil
	}

	report, err := sqlimport.Seed(ctx, b, importer.New(b, b))
	if err != nil {
		return fmt.Errorf("seed sample data: %w", err)
	}
	f.logger.Info("Seeded sample data", "inserted", report.Inserted(), "warnings", len(report.Warnings))
	return nil
}
