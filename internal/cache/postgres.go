package cache

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCache stores entries in a jsonb table
type PostgresCache struct {
	pool *pgxpool.Pool
}

// NewPostgresCache connects with dsn and creates the table if needed
func NewPostgresCache(ctx context.Context, dsn string) (*PostgresCache, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS llm_cache (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init postgres cache schema: %w", err)
	}

	return &PostgresCache{pool: pool}, nil
}

// Get retrieves a value by key
func (c *PostgresCache) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	err := c.pool.QueryRow(ctx, `SELECT value::text FROM llm_cache WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set upserts a value
func (c *PostgresCache) Set(ctx context.Context, key string, value []byte) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO llm_cache (key, value) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, created_at = now()`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("postgres cache set: %w", err)
	}
	return nil
}

// Delete removes a value by key
func (c *PostgresCache) Delete(ctx context.Context, key string) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM llm_cache WHERE key = $1`, key)
	return err
}

// Clear removes every entry
func (c *PostgresCache) Clear(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM llm_cache`)
	return err
}

// Close closes the pool
func (c *PostgresCache) Close() error {
	c.pool.Close()
	return nil
}
