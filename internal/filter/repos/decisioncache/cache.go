// Package decisioncache is a bounded LRU of per-request verdicts keyed by
// (origin, request fingerprint). Every row carries the generation it was
// computed under; a row from any other generation is a miss by definition,
// which is how generation isolation is enforced without sweeping the cache.
package decisioncache

import (
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/surfgate/filterd/internal/filter/domain"
)

// Cache is an LRU-backed decision cache with hit/miss/eviction metrics.
type Cache struct {
	lru       *lru.Cache[string, domain.Decision]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op Cache used when size <= 0.
type disabledCache struct{}

// Decider is the read/write surface shared by the real and disabled caches.
type Decider interface {
	Get(origin, fingerprint string, generation uint64) (domain.Decision, bool)
	Put(origin, fingerprint string, d domain.Decision)
	PurgeOrigin(origin string) int
	Purge()
	Len() int
	Stats() (hits, misses, evictions uint64)
}

// New creates a Cache with the given capacity. If size <= 0 a disabled
// no-op cache is returned that always misses.
func New(size int) (Decider, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}
	var c Cache
	backing, err := lru.NewWithEvict(size, func(string, domain.Decision) {
		atomic.AddUint64(&c.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	c.lru = backing
	return &c, nil
}

// key builds the composite cache key. The separator cannot occur in a host,
// and fingerprints only ever appear after it, so origins never collide.
func key(origin, fingerprint string) string {
	return origin + "|" + fingerprint
}

// Get returns the cached verdict when one exists for the same generation.
// A row from a different generation is removed and reported as a miss.
func (c *Cache) Get(origin, fingerprint string, generation uint64) (domain.Decision, bool) {
	k := key(origin, fingerprint)
	if d, ok := c.lru.Get(k); ok {
		if d.Generation == generation {
			atomic.AddUint64(&c.hits, 1)
			return d, true
		}
		c.lru.Remove(k)
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.Decision{}, false
}

// Put stores a verdict for the request fingerprint.
func (c *Cache) Put(origin, fingerprint string, d domain.Decision) {
	c.lru.Add(key(origin, fingerprint), d)
}

// PurgeOrigin removes every row belonging to the origin and returns how many
// were dropped. Called when the origin's subset entry is evicted so no
// verdict outlives the matcher that produced it.
func (c *Cache) PurgeOrigin(origin string) int {
	prefix := origin + "|"
	n := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
			n++
		}
	}
	return n
}

// Purge clears all entries. Evictions are counted via the eviction callback.
func (c *Cache) Purge() { c.lru.Purge() }

// Len returns the number of cached verdicts.
func (c *Cache) Len() int { return c.lru.Len() }

// Stats returns cumulative hit/miss/eviction counters.
func (c *Cache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

// disabledCache implementation

func (d *disabledCache) Get(string, string, uint64) (domain.Decision, bool) {
	return domain.Decision{}, false
}

func (d *disabledCache) Put(string, string, domain.Decision) {}

func (d *disabledCache) PurgeOrigin(string) int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ Decider = (*Cache)(nil)
var _ Decider = (*disabledCache)(nil)
