package store

import (
	"context"
	"fmt"

	"github.com/brianly1003/sftplister/internal/config"
	"github.com/brianly1003/sftplister/internal/domain/ports"
)

// Open creates the SeenStore selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (ports.SeenStore, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory, "":
		return NewMemoryStore(cfg.MaxKeys), nil

	case config.StoreDriverSQLite:
		s, err := NewSQLiteStore(ctx, cfg.Path, cfg.Table)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreDriverPostgres:
		s, err := NewPostgresStore(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreDriverS3:
		s, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}
