package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceCacheCloseIsIdempotent(t *testing.T) {
	cache := NewResourceCache()
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "kb:kb-1", "v", time.Minute))

	cache.Close()
	cache.Close()

	// Closing only stops the sweeper; the cache itself stays usable and
	// entries still expire lazily on read
	v, ok := cache.Get(ctx, "kb:kb-1")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, cache.Set(ctx, "kb:kb-2", "w", -time.Second))
	_, ok = cache.Get(ctx, "kb:kb-2")
	assert.False(t, ok)
}
