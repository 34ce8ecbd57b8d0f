package ports

import "context"

// SeenStore records which dedup keys have been observed.
// Only key presence matters; keys are never removed by the pipeline.
type SeenStore interface {
	// PutIfAbsent atomically records key. It returns true if the key was
	// absent and is now recorded, false if it was already present.
	// Failures are returned as *domain.StoreError and record nothing.
	PutIfAbsent(ctx context.Context, key string) (bool, error)

	// Count returns the number of recorded keys.
	Count(ctx context.Context) (int64, error)

	// Driver returns the backend identifier ("memory", "sqlite", "postgres", "s3").
	Driver() string

	// Close releases any resources held by the store.
	Close() error
}
