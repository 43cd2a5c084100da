package cache

import (
	"fmt"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/docblock/internal/extraction"
)

// entry pairs a cached result with the content key it was computed from.
type entry struct {
	key    string
	result extraction.SourceResult
}

// ResultCache memoizes per-source extraction results in memory. Entries are
// keyed by source ID and validated against a hash of the source content, so
// an edited file misses and is re-extracted. It implements
// extraction.SourceCache.
type ResultCache struct {
	store otter.Cache[string, entry]
}

// New creates a cache holding up to capacity sources.
func New(capacity int) (*ResultCache, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	store, err := otter.MustBuilder[string, entry](capacity).
		Cost(func(id string, e entry) uint32 { return 1 }).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build result cache: %w", err)
	}
	return &ResultCache{store: store}, nil
}

// Get returns a private copy of the cached result for src.
func (c *ResultCache) Get(src extraction.Source) (extraction.SourceResult, bool) {
	e, ok := c.store.Get(src.ID)
	if !ok || e.key != ContentKey(src) {
		return extraction.SourceResult{}, false
	}
	return e.result.Clone(), true
}

// Put stores a copy of result for src, replacing any older version.
func (c *ResultCache) Put(src extraction.Source, result extraction.SourceResult) {
	c.store.Set(src.ID, entry{key: ContentKey(src), result: result.Clone()})
}

// Invalidate drops the entry for a source ID.
func (c *ResultCache) Invalidate(sourceID string) {
	c.store.Delete(sourceID)
}

// Len returns the number of cached sources.
func (c *ResultCache) Len() int {
	return c.store.Size()
}

// Close releases the cache's background resources.
func (c *ResultCache) Close() {
	c.store.Close()
}
