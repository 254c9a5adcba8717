package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := NewClient(mr.Addr())
	defer client.Close()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "key", "value", time.Minute))

		val, err := client.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, "value", val)
	})

	t.Run("GetMissingKey", func(t *testing.T) {
		_, err := client.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("SetNX", func(t *testing.T) {
		fresh, err := client.SetNX(ctx, "marker", "1", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = client.SetNX(ctx, "marker", "2", time.Minute)
		require.NoError(t, err)
		assert.False(t, fresh)

		val, err := client.Get(ctx, "marker")
		require.NoError(t, err)
		assert.Equal(t, "1", val)
	})

	t.Run("Del", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "gone", "1", time.Minute))
		require.NoError(t, client.Del(ctx, "gone"))

		_, err := client.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "ttl", "1", time.Minute))
		mr.FastForward(2 * time.Minute)

		_, err := client.Get(ctx, "ttl")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}
