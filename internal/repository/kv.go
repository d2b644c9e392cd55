// Package repository provides a PostgreSQL implementation of the client's
// durable key-value store, for installations where several client processes
// share one store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// defaultTimeout bounds every statement; the KV interface is synchronous and
// carries no context.
const defaultTimeout = 5 * time.Second

// PostgresKVRepository stores key-value pairs in the kv table.
type PostgresKVRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	// Timeout bounds each statement. Zero means defaultTimeout.
	Timeout time.Duration
}

// NewPostgresKVRepository creates a repository using the given connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance with the kv
// table created (see db.InitPostgres).
func NewPostgresKVRepository(db *sql.DB) *PostgresKVRepository {
	return &PostgresKVRepository{DB: db, Timeout: defaultTimeout}
}

func (r *PostgresKVRepository) ctx() (context.Context, context.CancelFunc) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// Get returns the value stored under key.
func (r *PostgresKVRepository) Get(key string) ([]byte, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	var value []byte
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, true, nil
}

// Put inserts or replaces the value under key and refreshes updated_at.
func (r *PostgresKVRepository) Put(key string, value []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *PostgresKVRepository) Delete(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	if _, err := r.DB.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}
