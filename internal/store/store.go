// Package store provides the key/value blob backends the activity log
// persists its snapshots into.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("store: not found")

// BlobStore is a string-keyed store of opaque string values.
//
// Implementations must treat Remove of an absent key as a no-op.
type BlobStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

const createBlobTable = `
CREATE TABLE IF NOT EXISTS activity_blobs (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`
