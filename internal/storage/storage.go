package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists one scrape batch.
	Store(ctx context.Context, batch *types.Batch) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// NewStorage builds the sinks named by cfg. Several sinks are combined
// into a MultiStorage.
func NewStorage(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	var backends []Storage

	for _, format := range cfg.Formats {
		s, err := NewFileStorage(format, cfg.OutputDir, logger)
		if err != nil {
			closeAll(backends)
			return nil, err
		}
		backends = append(backends, s)
	}

	if cfg.Mongo.URI != "" {
		s, err := NewMongoStorage(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger)
		if err != nil {
			closeAll(backends)
			return nil, &types.StorageError{Backend: "mongodb", Err: err}
		}
		backends = append(backends, s)
	}

	switch len(backends) {
	case 0:
		return nil, fmt.Errorf("no storage backends configured")
	case 1:
		return backends[0], nil
	default:
		return NewMultiStorage(backends, logger), nil
	}
}

func closeAll(backends []Storage) {
	for _, b := range backends {
		_ = b.Close()
	}
}
