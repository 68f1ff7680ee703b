package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends() map[string]Cache {
	cfg := LocalConfig{MaxSize: 100, CleanupInterval: 10 * time.Minute}
	return map[string]Cache{
		"local":   NewLocalCache(cfg),
		"gocache": NewGoCache(cfg),
		"layered": NewLayeredCache(NewLocalCache(cfg), NewGoCache(cfg), 0),
	}
}

func TestCacheBackends(t *testing.T) {
	ctx := context.Background()

	for name, c := range backends() {
		c := c
		t.Run(name, func(t *testing.T) {
			defer c.Close()

			t.Run("Set and Get", func(t *testing.T) {
				require.NoError(t, c.Set(ctx, "resources/r1/transcripts/Hindi", []byte(`{"a":1}`), time.Minute))

				got, ok, err := c.Get(ctx, "resources/r1/transcripts/Hindi")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, `{"a":1}`, string(got))
			})

			t.Run("Miss", func(t *testing.T) {
				_, ok, err := c.Get(ctx, "missing")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("DeletePrefix", func(t *testing.T) {
				require.NoError(t, c.Set(ctx, "resources/r2/dubbings/Tamil", []byte("x"), 0))
				require.NoError(t, c.Set(ctx, "resources/r2/transcripts/Tamil", []byte("y"), 0))
				require.NoError(t, c.Set(ctx, "resources/r3/transcripts/Tamil", []byte("z"), 0))

				require.NoError(t, c.DeletePrefix(ctx, "resources/r2/"))

				ok, _ := c.Exists(ctx, "resources/r2/dubbings/Tamil")
				assert.False(t, ok)
				ok, _ = c.Exists(ctx, "resources/r3/transcripts/Tamil")
				assert.True(t, ok)
			})
		})
	}
}

func TestLocalCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(LocalConfig{MaxSize: 2})

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	_, _, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	ok, _ := c.Exists(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	ok, _ = c.Exists(ctx, "a")
	assert.True(t, ok)
}

func TestLayeredCacheBackfillsLocal(t *testing.T) {
	ctx := context.Background()
	local := NewLocalCache(LocalConfig{MaxSize: 10})
	remote := NewGoCache(LocalConfig{CleanupInterval: time.Minute})
	c := NewLayeredCache(local, remote, 0)

	require.NoError(t, remote.Set(ctx, "k", []byte("v"), 0))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))

	ok, _ = local.Exists(ctx, "k")
	assert.True(t, ok)
}

func TestNewCacheRejectsUnknownType(t *testing.T) {
	_, err := NewCache(Config{Type: "memcached"})
	assert.Error(t, err)
}
