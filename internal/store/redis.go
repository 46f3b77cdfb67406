package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores blobs as plain string keys, optionally namespaced by a prefix
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOptions holds Redis connection settings
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis creates a Redis-backed blob store and verifies connectivity
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     4,
		MinIdleConns: 1,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[REDIS CONNECTION FAILED] cannot reach %s: %w", opts.Addr, err)
	}

	return &Redis{client: client, prefix: opts.Prefix}, nil
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

// Get returns the blob stored under key
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get blob %q: %w", key, err)
	}
	return value, nil
}

// Set stores the blob under key without expiry
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to store blob %q: %w", key, err)
	}
	return nil
}

// Remove deletes the blob stored under key
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove blob %q: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (r *Redis) Close() error {
	return r.client.Close()
}
