package domain

// Decision is the outcome of evaluating a request against a compiled matcher.
// Pure value type; Generation records the ruleset generation the verdict was
// computed under and gates cache reuse.
type Decision struct {
	Blocked     bool   // true when a block rule matched and no exception overrode it
	MatchedRule string // raw text of the deciding rule, "" for allow-by-default
	Generation  uint64 // ruleset generation the decision belongs to
}

// IsBlocked is a convenience accessor.
func (d Decision) IsBlocked() bool { return d.Blocked }

// Allow returns the default not-blocked decision for a generation.
// Also used for fail-open verdicts, which carry generation zero and are
// never cached.
func Allow(generation uint64) Decision { return Decision{Generation: generation} }
