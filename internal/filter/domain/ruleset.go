package domain

import "time"

// RuleSet is an immutable snapshot of raw filter-list text, published by the
// rule store. A new RuleSet fully replaces the old one; Generation increases
// monotonically on every successful refresh and is the invalidation key for
// every compiled matcher and cached decision derived from the set.
type RuleSet struct {
	Lines      []string  // raw filter-rule lines, one per list line
	Generation uint64    // monotonic publish counter, starts at 1
	Source     string    // where the lines came from (directory, snapshot, feed alias)
	FetchedAt  time.Time // when the lines were obtained
}

// Len returns the number of raw lines in the set.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Lines)
}
