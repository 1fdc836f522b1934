package compiler

import (
	"strings"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/surfgate/filterd/internal/filter/common/urlx"
	"github.com/surfgate/filterd/internal/filter/domain"
)

// hostIndexFPRate is the target false-positive rate for the host-anchor
// Bloom prefilter. False positives only cost a map lookup.
const hostIndexFPRate = 0.01

// Matcher is an immutable compiled ruleset (full or per-origin subset).
//
// Host-anchored block rules (`||host^`) are indexed by host behind a Bloom
// prefilter so the common miss case never touches the map: the request host
// is walked suffix by suffix, most-specific to apex, and only maybe-positive
// suffixes are confirmed against the index. Everything else is matched
// textually against the normalized URL.
type Matcher struct {
	generation uint64
	origin     string

	bloom      *bitsbloom.BloomFilter
	hostIndex  map[string][]domain.Rule
	generic    []domain.Rule
	exceptions []domain.Rule

	ruleCount int
	malformed int
}

func newMatcher(generation uint64, origin string) *Matcher {
	return &Matcher{
		generation: generation,
		origin:     origin,
		hostIndex:  make(map[string][]domain.Rule),
	}
}

func (m *Matcher) add(r domain.Rule) {
	switch {
	case r.Exception:
		m.exceptions = append(m.exceptions, r)
	case r.HostAnchor != "":
		m.hostIndex[r.HostAnchor] = append(m.hostIndex[r.HostAnchor], r)
	default:
		m.generic = append(m.generic, r)
	}
	m.ruleCount++
}

// seal builds the Bloom prefilter once all rules are indexed.
func (m *Matcher) seal() {
	n := uint(len(m.hostIndex))
	if n < 16 {
		n = 16
	}
	m.bloom = bitsbloom.NewWithEstimates(n, hostIndexFPRate)
	for h := range m.hostIndex {
		m.bloom.Add([]byte(h))
	}
}

// Match evaluates the request: host-anchored rules first (bloom → index walk),
// then generic patterns, with exception rules overriding any block hit.
func (m *Matcher) Match(req domain.RequestDescriptor) domain.Decision {
	host := req.RequestHost()
	nurl := req.NormalizedURL()

	var hit *domain.Rule
	for cand := host; cand != ""; cand = parentDomain(cand) {
		if !m.bloom.Test([]byte(cand)) {
			continue
		}
		for i := range m.hostIndex[cand] {
			r := m.hostIndex[cand][i]
			if m.optionsAdmit(r, req, host) {
				hit = &r
				break
			}
		}
		if hit != nil {
			break
		}
	}
	if hit == nil {
		for i := range m.generic {
			r := m.generic[i]
			if m.optionsAdmit(r, req, host) && r.MatchesURL(nurl) {
				hit = &r
				break
			}
		}
	}
	if hit == nil {
		return domain.Allow(m.generation)
	}

	for i := range m.exceptions {
		ex := m.exceptions[i]
		if !m.optionsAdmit(ex, req, host) {
			continue
		}
		if exceptionMatches(ex, host, nurl) {
			return domain.Decision{Blocked: false, MatchedRule: ex.Raw, Generation: m.generation}
		}
	}
	return domain.Decision{Blocked: true, MatchedRule: hit.Raw, Generation: m.generation}
}

// optionsAdmit checks the rule's option constraints against the request:
// resource type, first/third party, and domain= restrictions evaluated
// against the first-party context.
func (m *Matcher) optionsAdmit(r domain.Rule, req domain.RequestDescriptor, host string) bool {
	if len(r.Options.Types) > 0 {
		found := false
		for _, t := range r.Options.Types {
			if t == req.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	firstParty := strings.ToLower(strings.TrimSpace(req.FirstParty))
	if r.Options.ThirdParty != nil {
		thirdParty := firstParty != "" && !urlx.SameSite(host, firstParty)
		if thirdParty != *r.Options.ThirdParty {
			return false
		}
	}
	if r.Restricted() {
		ctx := firstParty
		if ctx == "" {
			ctx = host
		}
		if !r.AppliesTo(ctx) {
			return false
		}
	}
	return true
}

// exceptionMatches reports whether an exception rule covers the request.
// Host-anchored exceptions match by host suffix, others by URL pattern.
func exceptionMatches(ex domain.Rule, host, nurl string) bool {
	if ex.HostAnchor != "" {
		return host == ex.HostAnchor || strings.HasSuffix(host, "."+ex.HostAnchor)
	}
	return ex.MatchesURL(nurl)
}

// parentDomain strips the leftmost label, returning "" past the apex.
func parentDomain(host string) string {
	i := strings.IndexByte(host, '.')
	if i < 0 {
		return ""
	}
	return host[i+1:]
}

// Generation returns the ruleset generation the matcher was compiled from.
func (m *Matcher) Generation() uint64 { return m.generation }

// Origin returns the origin the matcher was subset for, "" for the global matcher.
func (m *Matcher) Origin() string { return m.origin }

// RuleCount returns the number of rules compiled into the matcher.
func (m *Matcher) RuleCount() int { return m.ruleCount }

// MalformedLines returns how many lines were skipped as malformed.
func (m *Matcher) MalformedLines() int { return m.malformed }

var _ domain.Matcher = (*Matcher)(nil)
