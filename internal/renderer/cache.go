package renderer

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheStats reports counters for the rendered-document cache.
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
}

// renderCache keeps rendered documents keyed by content hash, so
// unchanged files skip the markdown pipeline entirely.
type renderCache struct {
	entries  *lru.Cache[string, *Document]
	capacity int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func newRenderCache(capacity int) (*renderCache, error) {
	c := &renderCache{capacity: capacity}
	entries, err := lru.NewWithEvict(capacity, func(string, *Document) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

func (c *renderCache) get(key string) (*Document, bool) {
	doc, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return doc, ok
}

func (c *renderCache) add(key string, doc *Document) {
	c.entries.Add(key, doc)
}

func (c *renderCache) purge() {
	c.entries.Purge()
}

func (c *renderCache) stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.entries.Len(),
		Capacity:  c.capacity,
	}
}

// ContentHash returns the hex SHA-256 digest of content. It doubles as
// the cache key and as the change marker exposed through the file API.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
