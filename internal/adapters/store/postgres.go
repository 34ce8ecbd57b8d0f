package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brianly1003/sftplister/internal/domain"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// PostgresStore persists seen keys in PostgreSQL, so several listers can
// share one dedup history.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects to dsn and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, domain.NewStoreError("open", "", fmt.Errorf("open database: %w", err))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.NewStoreError("open", "", fmt.Errorf("ping database: %w", err))
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		first_seen TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, domain.NewStoreError("open", "", fmt.Errorf("create table: %w", err))
	}

	log.Debug().Str("table", table).Msg("postgres seen store opened")

	return &PostgresStore{
		sqlStore: newSQLStore(db, "postgres", table, "$1", "$2"),
	}, nil
}
