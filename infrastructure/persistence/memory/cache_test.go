package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCache(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Arrange
	cache := NewCache(time.Hour)
	defer cache.Close()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "editors:a", "plaintext", 60))
	require.NoError(t, cache.Set(ctx, "editors:b", "xmlcontent", 5))
	require.NoError(t, cache.Set(ctx, "locales:a", []string{"de"}, 60))

	// Act & Assert
	v, ok := cache.Get(ctx, "editors:a")
	assert.True(t, ok)
	assert.Equal(t, "plaintext", v)

	now = now.Add(10 * time.Second)
	_, ok = cache.Get(ctx, "editors:b")
	assert.False(t, ok, "expired")

	cache.sweep()
	assert.Equal(t, 2, cache.Len())

	require.NoError(t, cache.DeletePrefix(ctx, "editors:"))
	_, ok = cache.Get(ctx, "editors:a")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "locales:a")
	assert.True(t, ok)

	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Len())
	cache.Close()
}
