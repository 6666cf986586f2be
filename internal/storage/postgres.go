package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var _ KV = (*PostgresKV)(nil)

// PostgresKV stores each key as one row. It holds a single user's snapshots,
// the same as the file backend, just in a database the user already runs.
type PostgresKV struct {
	db *sqlx.DB
}

// NewPostgresKV connects to the database and creates the table if needed.
func NewPostgresKV(dataSourceName string) (*PostgresKV, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS local_storage (
		key TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create local_storage table: %w", err)
	}

	return &PostgresKV{db: db}, nil
}

func (s *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	var value []byte
	err := s.db.QueryRowxContext(ctx, "SELECT value FROM local_storage WHERE key = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO local_storage (key, value, updated_at) VALUES ($1, $2, now()) ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = now()",
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresKV) Close() error {
	return s.db.Close()
}
