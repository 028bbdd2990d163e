package backend

import (
	"context"
	"fmt"
	"log/slog"

	"campanha/internal/blob/gcs"
	"campanha/internal/blob/memory"
	"campanha/internal/blob/sqlite"
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
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case GCSBackend:
		return f.createGCSBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite blob store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createGCSBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := gcs.New(ctx, gcs.Config{
		Bucket:          config.GCSBucket,
		Prefix:          config.GCSPrefix,
		CredentialsJSON: config.GCSCredentialsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
	}

	f.logger.Info("Initialized GCS backend",
		"bucket", config.GCSBucket,
		"prefix", config.GCSPrefix,
		"explicit_credentials", config.GCSCredentialsJSON != "")

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
		Ready:   store.Ping,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.DataDirectory == "" {
		f.logger.Info("Initialized memory backend")
		return &BackendResult{Store: memory.New()}, nil
	}

	store, err := memory.NewFromDir(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend",
		"data_directory", config.DataDirectory,
		"documents", store.Len())

	return &BackendResult{Store: store}, nil
}
