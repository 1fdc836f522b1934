// Package subsetcache tracks per-origin compiled subsets through their
// pending/ready/failed lifecycle, bounded by an LRU on origin count.
//
// The cache itself is safe for concurrent use, but entry state transitions
// are driven by a single owner (the engine) from job-completion callbacks,
// so entries have a single writer and never race.
package subsetcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/surfgate/filterd/internal/filter/common/clock"
	"github.com/surfgate/filterd/internal/filter/domain"
)

// maxAutoRetries is how many times a failed compilation is retried per
// origin per generation before the entry goes terminally Failed.
const maxAutoRetries = 1

// Stats is a snapshot of entry counts by state.
type Stats struct {
	Pending int
	Ready   int
	Failed  int
}

// Cache is the origin → subset entry store.
type Cache struct {
	lru     *lru.Cache[string, *domain.SubsetEntry]
	clk     clock.Clock
	onEvict func(origin string)
}

// New creates a Cache bounded to size origins. onEvict, when non-nil, fires
// for every evicted origin (including purge-induced evictions) so the owner
// can drop the origin's decision rows with it.
func New(size int, clk clock.Clock, onEvict func(origin string)) (*Cache, error) {
	if size < 1 {
		return nil, fmt.Errorf("subset cache size must be >= 1, got %d", size)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	c := &Cache{clk: clk, onEvict: onEvict}
	backing, err := lru.NewWithEvict(size, func(origin string, _ *domain.SubsetEntry) {
		if c.onEvict != nil {
			c.onEvict(origin)
		}
	})
	if err != nil {
		return nil, err
	}
	c.lru = backing
	return c, nil
}

// Get returns the entry for an origin, bumping its recency.
func (c *Cache) Get(origin string) (*domain.SubsetEntry, bool) {
	return c.lru.Get(origin)
}

// GetOrCreate returns the current entry when it already belongs to the given
// generation; otherwise it installs a fresh Pending entry and reports
// created=true, meaning the caller owes the pool exactly one compile job.
// This is what makes scheduling idempotent within a generation.
func (c *Cache) GetOrCreate(origin string, generation uint64) (entry *domain.SubsetEntry, created bool) {
	if e, ok := c.lru.Get(origin); ok && e.Generation == generation {
		return e, false
	}
	e := &domain.SubsetEntry{
		Origin:     origin,
		State:      domain.SubsetPending,
		Generation: generation,
	}
	c.lru.Add(origin, e)
	return e, true
}

// Complete applies a compile-job outcome. Results for a generation the entry
// no longer belongs to are discarded on arrival. On failure the first
// occurrence per generation asks the caller to retry (returns true); the
// next one marks the entry terminally Failed for this generation.
func (c *Cache) Complete(origin string, generation uint64, m domain.Matcher, jobErr error) (retry bool) {
	e, ok := c.lru.Peek(origin)
	if !ok || e.Generation != generation {
		return false
	}
	if jobErr == nil && m != nil {
		e.State = domain.SubsetReady
		e.Matcher = m
		e.FailReason = ""
		return false
	}
	reason := "no matcher"
	if jobErr != nil {
		reason = jobErr.Error()
	}
	if e.Retries < maxAutoRetries {
		e.Retries++
		e.State = domain.SubsetPending
		e.FailReason = reason
		return true
	}
	e.State = domain.SubsetFailed
	e.FailedAt = c.clk.Now()
	e.FailReason = reason
	return false
}

// Remove evicts a single origin, firing the evict callback.
func (c *Cache) Remove(origin string) {
	c.lru.Remove(origin)
}

// PurgeAll drops every entry. Called on generation rollover: stale entries
// are dropped wholesale, never lazily checked.
func (c *Cache) PurgeAll() {
	c.lru.Purge()
}

// Len returns the number of cached origins.
func (c *Cache) Len() int { return c.lru.Len() }

// Stats counts entries by state without disturbing recency.
func (c *Cache) Stats() Stats {
	var st Stats
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		switch e.State {
		case domain.SubsetPending:
			st.Pending++
		case domain.SubsetReady:
			st.Ready++
		case domain.SubsetFailed:
			st.Failed++
		}
	}
	return st
}
