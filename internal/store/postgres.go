package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores blobs in the activity_blobs table of a PostgreSQL database
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed blob store
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the blob table if it does not exist
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, createBlobTable); err != nil {
		return fmt.Errorf("failed to create activity_blobs table: %w", err)
	}
	return nil
}

// Get returns the blob stored under key
func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	query := `
		SELECT value
		FROM activity_blobs
		WHERE key = $1
	`

	var value string
	err := p.pool.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query blob %q: %w", key, err)
	}
	return value, nil
}

// Set upserts the blob stored under key
func (p *Postgres) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO activity_blobs (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := p.pool.Exec(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store blob %q: %w", key, err)
	}
	return nil
}

// Remove deletes the blob stored under key
func (p *Postgres) Remove(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM activity_blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to remove blob %q: %w", key, err)
	}
	return nil
}
