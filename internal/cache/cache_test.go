package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	t.Run("set then get", func(t *testing.T) {
		store.Set(ctx, "k1", []byte("v1"), time.Minute)

		got, ok := store.Get(ctx, "k1")
		require.True(t, ok)
		assert.Equal(t, []byte("v1"), got)
	})

	t.Run("miss", func(t *testing.T) {
		_, ok := store.Get(ctx, "absent")
		assert.False(t, ok)
	})

	t.Run("set overwrites", func(t *testing.T) {
		store.Set(ctx, "k2", []byte("old"), time.Minute)
		store.Set(ctx, "k2", []byte("new"), time.Minute)

		got, ok := store.Get(ctx, "k2")
		require.True(t, ok)
		assert.Equal(t, []byte("new"), got)
	})

	t.Run("add is first writer wins", func(t *testing.T) {
		assert.True(t, store.Add(ctx, "k3", []byte("first"), time.Minute))
		assert.False(t, store.Add(ctx, "k3", []byte("second"), time.Minute))

		got, ok := store.Get(ctx, "k3")
		require.True(t, ok)
		assert.Equal(t, []byte("first"), got)
	})

	t.Run("short ttl expires", func(t *testing.T) {
		store.Set(ctx, "k4", []byte("gone soon"), 10*time.Millisecond)
		time.Sleep(30 * time.Millisecond)

		_, ok := store.Get(ctx, "k4")
		assert.False(t, ok)
	})
}
