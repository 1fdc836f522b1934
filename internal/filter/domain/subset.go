package domain

import (
	"fmt"
	"time"
)

// SubsetState tracks the lifecycle of a per-origin compiled subset.
type SubsetState uint8

const (
	// SubsetPending means a compile job was submitted and no matcher exists yet.
	SubsetPending SubsetState = iota
	// SubsetReady means the entry holds a usable matcher.
	SubsetReady
	// SubsetFailed means compilation failed terminally for this generation.
	SubsetFailed
)

// String returns a stable string representation of the state.
func (s SubsetState) String() string {
	switch s {
	case SubsetPending:
		return "pending"
	case SubsetReady:
		return "ready"
	case SubsetFailed:
		return "failed"
	default:
		return fmt.Sprintf("SubsetState(%d)", s)
	}
}

// SubsetEntry is the subset cache's record for one origin within one ruleset
// generation. Exactly one entry exists per origin per generation; generation
// rollover drops entries wholesale rather than patching them.
type SubsetEntry struct {
	Origin     string      // registrable domain the subset was compiled for
	State      SubsetState // pending, ready, or failed
	Generation uint64      // generation the entry belongs to
	Matcher    Matcher     // set when State is SubsetReady
	Retries    int         // compile attempts consumed beyond the first
	FailedAt   time.Time   // when the entry became Failed
	FailReason string      // terse reason for the failure, for logs and stats
}

// Usable reports whether the entry can answer requests for the given
// generation right now.
func (e *SubsetEntry) Usable(generation uint64) bool {
	return e != nil && e.State == SubsetReady && e.Generation == generation && e.Matcher != nil
}
