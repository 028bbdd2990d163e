package backend

import (
	"context"

	"campanha/internal/blob"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the store and its optional lifecycle hooks.
type BackendResult struct {
	Store   blob.Store
	Cleanup CleanupFunc
	Ready   ReadyFunc
}

// Factory creates blob stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory specific; an empty directory starts empty.
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string

	// GCS specific
	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	GCSBackend    BackendType = "gcs"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, GCSBackend:
		return true
	default:
		return false
	}
}
