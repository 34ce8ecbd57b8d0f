package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists seen keys in a local SQLite database.
type SQLiteStore struct {
	*sqlStore
	path string
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(ctx context.Context, path, table string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, domain.NewStoreError("open", "", fmt.Errorf("failed to create store dir: %w", err))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.NewStoreError("open", "", fmt.Errorf("failed to open database: %w", err))
	}

	// Pragmas are per connection; a single connection keeps them in effect
	// and serializes writers inside the process.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000", // Wait up to 5 seconds if another process holds the lock
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("failed to set pragma")
		}
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		first_seen TIMESTAMP NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, domain.NewStoreError("open", "", fmt.Errorf("failed to init schema: %w", err))
	}

	log.Debug().Str("path", path).Str("table", table).Msg("sqlite seen store opened")

	return &SQLiteStore{
		sqlStore: newSQLStore(db, "sqlite", table, "?", "?"),
		path:     path,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}
