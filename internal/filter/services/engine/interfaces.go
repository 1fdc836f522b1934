package engine

import (
	"github.com/surfgate/filterd/internal/filter/domain"
	"github.com/surfgate/filterd/internal/filter/pool"
	"github.com/surfgate/filterd/internal/filter/repos/subsetcache"
)

// Offloader submits work to worker slots. Satisfied by *pool.Pool.
type Offloader interface {
	Submit(job pool.Job, done func(pool.Result)) (*pool.Handle, error)
	Queued() int
	Workers() int
}

// RuleSource provides the current published ruleset. Satisfied by
// *rulestore.Store.
type RuleSource interface {
	Current() *domain.RuleSet
	Generation() uint64
	Publish(lines []string, source string) (*domain.RuleSet, error)
}

// SubsetCache tracks per-origin compiled subsets. Satisfied by
// *subsetcache.Cache.
type SubsetCache interface {
	Get(origin string) (*domain.SubsetEntry, bool)
	GetOrCreate(origin string, generation uint64) (*domain.SubsetEntry, bool)
	Complete(origin string, generation uint64, m domain.Matcher, jobErr error) bool
	Remove(origin string)
	PurgeAll()
	Len() int
	Stats() subsetcache.Stats
}

// DecisionCache memoizes per-request verdicts. Satisfied by
// decisioncache.Decider.
type DecisionCache interface {
	Get(origin, fingerprint string, generation uint64) (domain.Decision, bool)
	Put(origin, fingerprint string, d domain.Decision)
	PurgeOrigin(origin string) int
	Purge()
	Len() int
	Stats() (hits, misses, evictions uint64)
}
