package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBlobStore(t *testing.T, s BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "log", `[{"id":"a"}]`))
	value, err := s.Get(ctx, "log")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, value)

	require.NoError(t, s.Set(ctx, "log", `[]`))
	value, err = s.Get(ctx, "log")
	require.NoError(t, err)
	assert.Equal(t, `[]`, value)

	require.NoError(t, s.Remove(ctx, "log"))
	_, err = s.Get(ctx, "log")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Remove(ctx, "log"), "removing an absent key is a no-op")
}

func TestMemory(t *testing.T) {
	exerciseBlobStore(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "activity.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	exerciseBlobStore(t, s)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "activity.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "stats", `{"e1_u1":{}}`))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(ctx, "stats")
	require.NoError(t, err)
	assert.Equal(t, `{"e1_u1":{}}`, value)
}

func TestRedisKeyPrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "smart_home_device_activity", want: "smart_home_device_activity"},
		{name: "with prefix", prefix: "home", key: "smart_home_device_activity", want: "home:smart_home_device_activity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Redis{prefix: tt.prefix}
			assert.Equal(t, tt.want, r.key(tt.key))
		})
	}
}
