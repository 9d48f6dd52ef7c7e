package storage

import (
	"context"
	"fmt"

	"github.com/mentha-ai/mentha-cli/internal/config"
)

// New returns the archive selected by cfg.StorageBackend, or nil when
// archiving is disabled.
func New(ctx context.Context, cfg *config.Config) (StorageInterface, error) {
	switch cfg.StorageBackend {
	case "azure":
		s, err := NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLiteStorage(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
