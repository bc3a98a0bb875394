package currency

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestPreferenceKey(t *testing.T) {
	assert.Equal(t, "currency:key:acct-1", PreferenceKey("openai", "acct-1"))
	assert.Equal(t, "currency:provider:openai", PreferenceKey("openai", ""))
	assert.Equal(t, "currency:provider:openai", PreferenceKey("openai", "-"))
}

func TestRedisPreferenceStore(t *testing.T) {
	t.Run("get unset returns empty", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		defer mr.Close()
		defer client.Close()

		store := NewRedisPreferenceStore(client)
		code, err := store.Get(context.Background(), PreferenceKey("openai", ""))
		require.NoError(t, err)
		assert.Equal(t, "", code)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		defer mr.Close()
		defer client.Close()

		store := NewRedisPreferenceStore(client)
		ctx := context.Background()
		key := PreferenceKey("openai", "acct-1")

		require.NoError(t, store.Set(ctx, key, "eur"))

		code, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "EUR", code, "codes are normalized to upper case")
	})

	t.Run("shared key scopes one preference across providers", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		defer mr.Close()
		defer client.Close()

		store := NewRedisPreferenceStore(client)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, PreferenceKey("openai", "acct-1"), "GBP"))

		code, err := store.Get(ctx, PreferenceKey("azure", "acct-1"))
		require.NoError(t, err)
		assert.Equal(t, "GBP", code)
	})

	t.Run("empty code rejected", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		defer mr.Close()
		defer client.Close()

		store := NewRedisPreferenceStore(client)
		err := store.Set(context.Background(), PreferenceKey("openai", ""), "  ")
		assert.Error(t, err)
	})
}

func TestMemoryPreferenceStore(t *testing.T) {
	store := NewMemoryPreferenceStore()
	ctx := context.Background()

	code, err := store.Get(ctx, "currency:provider:openai")
	require.NoError(t, err)
	assert.Equal(t, "", code)

	require.NoError(t, store.Set(ctx, "currency:provider:openai", "jpy"))

	code, err = store.Get(ctx, "currency:provider:openai")
	require.NoError(t, err)
	assert.Equal(t, "JPY", code)
}
