package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perflab/internal/cache"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := cache.NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "users:1:10", []byte("v"), time.Minute))

	val, found, err := s.Get(ctx, "users:1:10")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", string(val))
}

func TestMemoryStore_MissingKey(t *testing.T) {
	s := cache.NewMemoryStore(0)
	defer s.Close()

	_, found, err := s.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := cache.NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_JanitorSweepsExpired(t *testing.T) {
	s := cache.NewMemoryStore(20 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	require.NoError(t, s.Set(ctx, "keep", []byte("v"), time.Minute))

	assert.Eventually(t, func() bool { return s.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	s := cache.NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	keys := []string{"users:1:10", "users:2:10", "users:id:7", "products:1:10"}
	for _, k := range keys {
		require.NoError(t, s.Set(ctx, k, []byte("v"), time.Minute))
	}

	removed, err := s.DeletePrefix(ctx, "users:")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, found, err := s.Get(ctx, "products:1:10")
	require.NoError(t, err)
	assert.True(t, found, "non-matching keys must survive")

	for _, k := range []string{"users:1:10", "users:2:10", "users:id:7"} {
		_, found, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, found, "key %q should be gone", k)
	}
}

func TestMemoryStore_CloseIdempotent(t *testing.T) {
	s := cache.NewMemoryStore(time.Minute)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
