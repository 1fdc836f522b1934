// Package compiler turns raw filter-list text into immutable, origin-scoped
// matchers. Compilation is pure: the same ruleset generation and origin
// always produce a matcher with the same observable decisions, which is what
// lets the offload pool run it on any worker slot.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surfgate/filterd/internal/filter/domain"
)

// CompileError describes a failed compilation. Fatal means the whole input
// was unusable (empty or non-text); anything less is reported per-line via
// the matcher's malformed counter instead.
type CompileError struct {
	Fatal  bool
	Reason string
}

func (e *CompileError) Error() string {
	if e.Fatal {
		return "compile: fatal: " + e.Reason
	}
	return "compile: " + e.Reason
}

// Compile builds a matcher from the ruleset. origin == "" compiles the full
// global ruleset; otherwise only rules whose declared applicability can
// plausibly reach the origin are included:
//
//   - rules with no domain restriction (always in every subset)
//   - rules whose domain= / ~domain options admit the origin
//   - exception rules that mention the origin anywhere in their text
//
// Malformed lines are skipped and counted, never fatal; a ruleset with zero
// usable network rules is fatal.
func Compile(rs *domain.RuleSet, origin string) (*Matcher, error) {
	if rs.Len() == 0 {
		return nil, &CompileError{Fatal: true, Reason: "empty ruleset"}
	}
	origin = strings.ToLower(strings.TrimSpace(origin))

	m := newMatcher(rs.Generation, origin)
	usable := 0
	for _, line := range rs.Lines {
		r, err := domain.ParseRule(line)
		if errors.Is(err, domain.ErrNotNetworkRule) {
			continue
		}
		if err != nil {
			m.malformed++
			continue
		}
		usable++
		if origin != "" {
			include := r.AppliesTo(origin) || (r.Exception && r.References(origin))
			if !include {
				continue
			}
		}
		m.add(r)
	}
	if usable == 0 {
		return nil, &CompileError{
			Fatal:  true,
			Reason: fmt.Sprintf("no usable network rules in %d lines", rs.Len()),
		}
	}
	m.seal()
	return m, nil
}

// Validate cheaply checks that lines form a compilable ruleset: at least one
// parseable network rule. Used before publishing a refreshed ruleset so a
// fatally broken download never displaces the previous generation.
func Validate(lines []string) error {
	if len(lines) == 0 {
		return &CompileError{Fatal: true, Reason: "empty ruleset"}
	}
	for _, line := range lines {
		if _, err := domain.ParseRule(line); err == nil {
			return nil
		}
	}
	return &CompileError{
		Fatal:  true,
		Reason: fmt.Sprintf("no usable network rules in %d lines", len(lines)),
	}
}
