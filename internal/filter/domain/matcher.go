package domain

// Matcher answers block/allow for requests under one ruleset generation.
// Implementations are immutable after construction: once a matcher is handed
// back from a compile job it is owned by the receiver and safe to consult
// without locks. A matcher must never be consulted for a generation newer
// than its own; stale matchers are discarded, not patched.
type Matcher interface {
	// Match evaluates the request and returns a verdict tagged with the
	// matcher's generation.
	Match(req RequestDescriptor) Decision
	// Generation returns the ruleset generation the matcher was compiled from.
	Generation() uint64
	// Origin returns the origin the matcher was subset for, "" for the
	// full global matcher.
	Origin() string
	// RuleCount returns how many usable rules were compiled in.
	RuleCount() int
}
