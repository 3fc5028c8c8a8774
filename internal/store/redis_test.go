package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedisStore_GetMissingKey(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "user123")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_SetGet(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "user123", `{"version":1,"items":[]}`))

	// value lands under the prefixed key with a TTL
	assert.True(t, mr.Exists("cart:user123"))
	assert.Greater(t, mr.TTL("cart:user123").Seconds(), 0.0)

	value, err := store.Get(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1,"items":[]}`, value)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	mr.Set("cart:user123", "payload")

	require.NoError(t, store.Delete(ctx, "user123"))
	assert.False(t, mr.Exists("cart:user123"))

	// absent key is fine
	require.NoError(t, store.Delete(ctx, "user123"))
}

func TestRedisStore_ServerGone(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()

	err := store.Set(context.Background(), "user123", "payload")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
}
