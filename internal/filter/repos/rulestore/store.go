// Package rulestore owns the active RuleSet. Publication is an atomic
// pointer swap: readers always observe a complete, consistent snapshot and
// the generation number only moves forward. An optional bbolt snapshot lets
// a restart republish the last good ruleset before the list supplier runs.
package rulestore

import (
	"sync/atomic"

	"github.com/surfgate/filterd/internal/filter/common/clock"
	"github.com/surfgate/filterd/internal/filter/domain"
)

// Store publishes immutable RuleSet snapshots.
type Store struct {
	cur   atomic.Pointer[domain.RuleSet]
	gen   atomic.Uint64
	clk   clock.Clock
	snaps *snapshotDB // nil when persistence is disabled
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp published rulesets.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clk = c }
}

// New returns a Store with no persistence.
func New(opts ...Option) *Store {
	s := &Store{clk: clock.RealClock{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open returns a Store backed by a bbolt snapshot file at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := New(opts...)
	db, err := openSnapshotDB(path)
	if err != nil {
		return nil, err
	}
	s.snaps = db
	return s, nil
}

// Close releases the snapshot database, if any.
func (s *Store) Close() error {
	if s.snaps == nil {
		return nil
	}
	return s.snaps.close()
}

// Current returns the active RuleSet, or nil before the first publish.
// The returned snapshot is immutable and safe to hand to worker jobs.
func (s *Store) Current() *domain.RuleSet {
	return s.cur.Load()
}

// Generation returns the current generation number, 0 before the first publish.
func (s *Store) Generation() uint64 {
	return s.gen.Load()
}

// Publish swaps in a new RuleSet built from lines, bumping the generation.
// The snapshot is persisted best-effort; a persistence failure never blocks
// publication and is reported to the caller for logging only.
func (s *Store) Publish(lines []string, source string) (*domain.RuleSet, error) {
	rs := &domain.RuleSet{
		Lines:      lines,
		Generation: s.gen.Add(1),
		Source:     source,
		FetchedAt:  s.clk.Now(),
	}
	s.cur.Store(rs)

	if s.snaps != nil {
		if err := s.snaps.save(rs); err != nil {
			return rs, err
		}
	}
	return rs, nil
}

// Restore publishes the persisted snapshot, when one exists and the store is
// still empty. Returns the restored set or nil when there was nothing to
// restore.
func (s *Store) Restore() (*domain.RuleSet, error) {
	if s.snaps == nil || s.Current() != nil {
		return nil, nil
	}
	lines, source, fetchedAt, ok, err := s.snaps.load()
	if err != nil || !ok {
		return nil, err
	}
	rs := &domain.RuleSet{
		Lines:      lines,
		Generation: s.gen.Add(1),
		Source:     source,
		FetchedAt:  fetchedAt,
	}
	s.cur.Store(rs)
	return rs, nil
}
