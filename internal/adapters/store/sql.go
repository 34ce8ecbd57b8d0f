package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brianly1003/sftplister/internal/domain"
)

// sqlStore is the SeenStore shared by the SQLite and PostgreSQL drivers.
// The primary key on the key column makes the insert the test-and-set:
// exactly one concurrent insert of a key affects a row.
type sqlStore struct {
	db     *sql.DB
	driver string
	table  string

	insertSQL string
	countSQL  string
}

func newSQLStore(db *sql.DB, driver, table, placeholder1, placeholder2 string) *sqlStore {
	return &sqlStore{
		db:     db,
		driver: driver,
		table:  table,
		insertSQL: fmt.Sprintf(
			`INSERT INTO %s (key, first_seen) VALUES (%s, %s) ON CONFLICT (key) DO NOTHING`,
			table, placeholder1, placeholder2),
		countSQL: fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table),
	}
}

// PutIfAbsent inserts key and reports whether a row was written.
func (s *sqlStore) PutIfAbsent(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.insertSQL, key, time.Now().UTC())
	if err != nil {
		return false, domain.NewStoreError("put", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.NewStoreError("put", key, err)
	}
	return n == 1, nil
}

// Count returns the number of rows in the table.
func (s *sqlStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.countSQL).Scan(&n); err != nil {
		return 0, domain.NewStoreError("count", "", err)
	}
	return n, nil
}

// Driver returns the backend identifier.
func (s *sqlStore) Driver() string { return s.driver }

// Close closes the database connection.
func (s *sqlStore) Close() error {
	if err := s.db.Close(); err != nil {
		return domain.NewStoreError("close", "", err)
	}
	return nil
}
