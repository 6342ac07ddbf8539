package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a pgx-backed Store for deployments that already run a
// shared database instead of node-local storage.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and ensures the backing table
// exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS kv_records (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			expires_at TIMESTAMPTZ
		)
	`
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("creating kv_records table: %w", err)
	}
	return nil
}

// Get returns the value for key, or ErrNotFound when absent or expired.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value FROM kv_records
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())
	`
	var value []byte
	err := p.pool.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying record: %w", err)
	}
	return value, nil
}

// Put upserts value under key with the given TTL.
func (p *Postgres) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	query := `
		INSERT INTO kv_records (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, expires_at = $3
	`
	if _, err := p.pool.Exec(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("upserting record: %w", err)
	}
	return nil
}

// Delete removes key.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM kv_records WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// DeleteExpired removes rows past their hard expiry. Intended for a
// periodic maintenance call; reads already filter expired rows.
func (p *Postgres) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := p.pool.Exec(ctx, `DELETE FROM kv_records WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired records: %w", err)
	}
	return result.RowsAffected(), nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

var _ Store = (*Postgres)(nil)
