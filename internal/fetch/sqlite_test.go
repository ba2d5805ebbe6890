package fetch

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestSQLiteCache(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		cache := newTestSQLiteCache(t)
		cache.Set("key", []byte("body"), time.Hour)

		got, ok := cache.Get("key")
		require.True(t, ok)
		assert.Equal(t, []byte("body"), got)

		_, ok = cache.Get("missing")
		assert.False(t, ok)
	})

	t.Run("expired entries are not served", func(t *testing.T) {
		cache := newTestSQLiteCache(t)
		now := time.Now()
		cache.now = func() time.Time { return now }

		cache.Set("key", []byte("body"), time.Minute)
		now = now.Add(2 * time.Minute)

		_, ok := cache.Get("key")
		assert.False(t, ok)
	})

	t.Run("set replaces previous entry", func(t *testing.T) {
		cache := newTestSQLiteCache(t)
		cache.Set("key", []byte("old"), time.Hour)
		cache.Set("key", []byte("new"), time.Hour)

		got, ok := cache.Get("key")
		require.True(t, ok)
		assert.Equal(t, []byte("new"), got)
	})

	t.Run("prune removes expired rows", func(t *testing.T) {
		cache := newTestSQLiteCache(t)
		now := time.Now()
		cache.now = func() time.Time { return now }

		cache.Set("stale", []byte("a"), time.Minute)
		cache.Set("fresh", []byte("b"), time.Hour)
		now = now.Add(10 * time.Minute)

		require.NoError(t, cache.Prune())

		var count int
		require.NoError(t, cache.db.QueryRow("SELECT COUNT(*) FROM fetch_cache").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("empty path rejected", func(t *testing.T) {
		_, err := NewSQLiteCache("")
		assert.Error(t, err)
	})
}
