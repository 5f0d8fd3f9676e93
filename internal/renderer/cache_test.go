package renderer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCacheEviction(t *testing.T) {
	cache, err := newRenderCache(2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		cache.add(fmt.Sprintf("key-%d", i), &Document{Title: fmt.Sprintf("doc %d", i)})
	}

	stats := cache.stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 2, stats.Capacity)
	assert.Equal(t, int64(1), stats.Evictions)

	// The oldest entry is gone, the two newest remain.
	_, ok := cache.get("key-0")
	assert.False(t, ok)
	doc, ok := cache.get("key-2")
	assert.True(t, ok)
	assert.Equal(t, "doc 2", doc.Title)

	assert.Equal(t, int64(1), cache.stats().Hits)
	assert.Equal(t, int64(1), cache.stats().Misses)
}

func TestRenderCacheRejectsInvalidCapacity(t *testing.T) {
	_, err := newRenderCache(0)
	assert.Error(t, err)
}
