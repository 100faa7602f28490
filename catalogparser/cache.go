package catalogparser

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/giygas/prescriptions-api/metrics"
)

const defaultCacheSize = 4

// Builder memoizes catalogs by the xxhash of the raw dataset, so rebuilding
// from unchanged content returns the previous *Catalog without reparsing.
type Builder struct {
	mu       sync.Mutex
	capacity int
	catalogs map[uint64]*Catalog
	order    []uint64 // oldest first
}

// NewBuilder creates a builder keeping at most capacity catalogs
func NewBuilder(capacity int) *Builder {
	if capacity <= 0 {
		capacity = defaultCacheSize
	}
	return &Builder{
		capacity: capacity,
		catalogs: make(map[uint64]*Catalog, capacity),
	}
}

// Build returns the catalog for raw, and whether it came from the cache.
// Failed builds are not cached.
func (b *Builder) Build(raw []byte, source string) (*Catalog, bool, error) {
	hash := xxhash.Sum64(raw)

	b.mu.Lock()
	if c, ok := b.catalogs[hash]; ok {
		b.mu.Unlock()
		metrics.CatalogCacheLookups.WithLabelValues("hit").Inc()
		return c, true, nil
	}
	b.mu.Unlock()

	metrics.CatalogCacheLookups.WithLabelValues("miss").Inc()

	c, err := ParseCatalog(raw, source)
	if err != nil {
		return nil, false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.catalogs[hash]; ok {
		return existing, false, nil
	}
	if len(b.order) >= b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.catalogs, oldest)
	}
	b.catalogs[hash] = c
	b.order = append(b.order, hash)

	return c, false, nil
}

// Len returns the number of cached catalogs
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.catalogs)
}
