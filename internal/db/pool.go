package db

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pool is an alias for pgxpool.Pool
type Pool = pgxpool.Pool

// NewPool creates a PostgreSQL connection pool for the activity blob store
func NewPool(lc fx.Lifecycle, logger *zap.Logger, databaseURL string) (*pgxpool.Pool, error) {
	logger.Info("initializing activity store connection pool", zap.String("url", maskPassword(databaseURL)))

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to parse database URL: %w", err)
	}
	// The log is rewritten as a whole blob by a single writer; a small pool is plenty.
	if config.MaxConns > 4 {
		config.MaxConns = 4
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to create connection pool: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				logger.Error("database ping failed", zap.Error(err), zap.String("url", maskPassword(databaseURL)))
				return fmt.Errorf("[DATABASE CONNECTION FAILED] cannot reach activity store database: %w", err)
			}
			logger.Info("activity store database connected")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Close()
			logger.Info("activity store database connection closed")
			return nil
		},
	})

	return pool, nil
}

// maskPassword hides the password component of a connection URL for logging
func maskPassword(raw string) string {
	if raw == "" {
		return "<empty>"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparsable>"
	}
	return u.Redacted()
}
