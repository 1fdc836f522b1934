package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Parse outcomes that are not fatal to a whole list:
//
// ErrNotNetworkRule marks lines that are valid list content but carry no
// network-blocking semantics (comments, headers, cosmetic rules). They are
// skipped silently during compilation.
//
// ErrMalformedRule marks lines that look like network rules but cannot be
// understood. They are skipped and counted by the compiler.
var (
	ErrNotNetworkRule = errors.New("not a network rule")
	ErrMalformedRule  = errors.New("malformed rule")
)

// RuleOptions carries the parsed `$option` suffix of a network rule.
type RuleOptions struct {
	Domains        []string       // domain= values the rule is limited to
	ExcludeDomains []string       // ~domain values the rule never applies to
	ThirdParty     *bool          // nil = any, true = third-party only, false = first-party only
	Types          []ResourceType // resource types the rule is limited to (empty = all)
	MatchCase      bool           // case-sensitive URL matching
}

// IsEmpty reports whether no options were declared on the rule.
func (o RuleOptions) IsEmpty() bool {
	return len(o.Domains) == 0 &&
		len(o.ExcludeDomains) == 0 &&
		o.ThirdParty == nil &&
		len(o.Types) == 0 &&
		!o.MatchCase
}

// Rule is one parsed network filter rule.
//
// HostAnchor is set for the common `||host^` form so matchers can index these
// rules by host instead of scanning patterns. All other patterns are matched
// textually against the request URL.
type Rule struct {
	Raw        string // original list line
	Pattern    string // URL pattern with @@ and $options stripped
	Exception  bool   // @@ exception rule, overrides block rules
	HostAnchor string // canonical host for plain ||host^ rules, else ""
	Options    RuleOptions
}

// ParseRule parses a single filter-list line.
// Comments, list headers, and cosmetic rules return ErrNotNetworkRule.
// Syntactically broken network rules return ErrMalformedRule.
func ParseRule(line string) (Rule, error) {
	raw := strings.TrimSpace(line)
	if raw == "" || strings.HasPrefix(raw, "!") || strings.HasPrefix(raw, "[") {
		return Rule{}, ErrNotNetworkRule
	}
	// Cosmetic rules (element hiding) are out of the network-filter contract.
	if strings.Contains(raw, "##") || strings.Contains(raw, "#@#") || strings.Contains(raw, "#?#") {
		return Rule{}, ErrNotNetworkRule
	}

	r := Rule{Raw: raw}
	body := raw
	if strings.HasPrefix(body, "@@") {
		r.Exception = true
		body = body[2:]
	}
	if body == "" {
		return Rule{}, fmt.Errorf("%w: empty pattern in %q", ErrMalformedRule, raw)
	}

	// Regex rules keep their `$` characters; everything else may carry an
	// option suffix after the last `$`.
	if !(strings.HasPrefix(body, "/") && strings.HasSuffix(body, "/")) {
		if idx := strings.LastIndexByte(body, '$'); idx >= 0 {
			opts, err := parseRuleOptions(body[idx+1:])
			if err != nil {
				return Rule{}, fmt.Errorf("%w: %v in %q", ErrMalformedRule, err, raw)
			}
			r.Options = opts
			body = body[:idx]
		}
	}
	if body == "" {
		return Rule{}, fmt.Errorf("%w: empty pattern in %q", ErrMalformedRule, raw)
	}
	r.Pattern = body

	// Detect the plain host-anchor form: ||host or ||host^ with nothing after.
	if strings.HasPrefix(body, "||") {
		rest := body[2:]
		host := rest
		tail := ""
		if i := strings.IndexAny(rest, "^/*:?"); i >= 0 {
			host = rest[:i]
			tail = rest[i:]
		}
		if host == "" {
			return Rule{}, fmt.Errorf("%w: empty host anchor in %q", ErrMalformedRule, raw)
		}
		if (tail == "" || tail == "^") && strings.Contains(host, ".") {
			r.HostAnchor = strings.ToLower(host)
		}
	}
	return r, nil
}

// parseRuleOptions parses the comma-separated option list after `$`.
func parseRuleOptions(s string) (RuleOptions, error) {
	var opts RuleOptions
	if strings.TrimSpace(s) == "" {
		return opts, errors.New("empty option list")
	}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		switch {
		case tok == "":
			return RuleOptions{}, errors.New("empty option")
		case strings.HasPrefix(tok, "domain="):
			val := tok[len("domain="):]
			if val == "" {
				return RuleOptions{}, errors.New("empty domain option")
			}
			for _, d := range strings.Split(val, "|") {
				d = strings.ToLower(strings.TrimSpace(d))
				switch {
				case d == "" || d == "~":
					return RuleOptions{}, errors.New("empty domain entry")
				case strings.HasPrefix(d, "~"):
					opts.ExcludeDomains = append(opts.ExcludeDomains, d[1:])
				default:
					opts.Domains = append(opts.Domains, d)
				}
			}
		case tok == "third-party" || tok == "3p":
			opts.ThirdParty = boolPtr(true)
		case tok == "~third-party" || tok == "~3p" || tok == "first-party" || tok == "1p":
			opts.ThirdParty = boolPtr(false)
		case tok == "match-case":
			opts.MatchCase = true
		default:
			t, err := ParseResourceType(tok)
			if err != nil {
				return RuleOptions{}, fmt.Errorf("unsupported option %q", tok)
			}
			opts.Types = append(opts.Types, t)
		}
	}
	return opts, nil
}

func boolPtr(b bool) *bool { return &b }

// AppliesTo reports whether the rule's domain restrictions allow it to apply
// to pages on the given origin (registrable domain). Rules with no domain
// restriction apply everywhere; this is the subsetting predicate.
func (r Rule) AppliesTo(origin string) bool {
	origin = strings.ToLower(strings.TrimSpace(origin))
	for _, d := range r.Options.ExcludeDomains {
		if origin == d || strings.HasSuffix(origin, "."+d) {
			return false
		}
	}
	if len(r.Options.Domains) == 0 {
		return true
	}
	for _, d := range r.Options.Domains {
		if origin == d || strings.HasSuffix(origin, "."+d) {
			return true
		}
	}
	return false
}

// Restricted reports whether the rule carries any domain restriction.
// Unrestricted rules belong in every per-origin subset.
func (r Rule) Restricted() bool {
	return len(r.Options.Domains) > 0 || len(r.Options.ExcludeDomains) > 0
}

// References reports whether the raw rule text mentions the origin at all.
// Used to pull exception rules into an origin's subset even when their
// applicability is expressed in the pattern rather than in domain options.
func (r Rule) References(origin string) bool {
	if origin == "" {
		return false
	}
	return strings.Contains(strings.ToLower(r.Raw), strings.ToLower(origin))
}

// MatchesURL reports whether the rule's pattern matches the request URL.
// Supported syntax: `*` wildcard, `^` separator, `|` start/end anchors and
// the `||` host anchor. Regex rules (`/.../`) are matched as plain substrings
// of their body; full regex dialects are outside the matching contract.
func (r Rule) MatchesURL(rawurl string) bool {
	pat := r.Pattern
	u := rawurl
	if !r.Options.MatchCase {
		pat = strings.ToLower(pat)
		u = strings.ToLower(u)
	}

	if strings.HasPrefix(pat, "/") && strings.HasSuffix(pat, "/") && len(pat) > 1 {
		body := strings.Trim(pat, "/")
		return body != "" && strings.Contains(u, body)
	}

	if strings.HasPrefix(pat, "||") {
		return matchHostAnchored(u, pat[2:])
	}

	startAnchor := strings.HasPrefix(pat, "|")
	if startAnchor {
		pat = pat[1:]
	}
	endAnchor := strings.HasSuffix(pat, "|")
	if endAnchor {
		pat = strings.TrimSuffix(pat, "|")
	}
	if pat == "" {
		return false
	}
	if startAnchor {
		return matchHere(u, pat, endAnchor)
	}
	for i := 0; i <= len(u); i++ {
		if matchHere(u[i:], pat, endAnchor) {
			return true
		}
	}
	return false
}

// matchHostAnchored matches a `||` pattern beginning at the URL's host or at
// any subdomain boundary within the host.
func matchHostAnchored(u, pat string) bool {
	hostStart := 0
	if i := strings.Index(u, "://"); i >= 0 {
		hostStart = i + 3
	}
	hostEnd := len(u)
	if i := strings.IndexAny(u[hostStart:], "/?"); i >= 0 {
		hostEnd = hostStart + i
	}
	for i := hostStart; i < hostEnd; i++ {
		if i == hostStart || u[i-1] == '.' {
			if matchHere(u[i:], pat, false) {
				return true
			}
		}
	}
	return false
}

// matchHere matches pat against the start of t. `*` matches any run, `^`
// matches one separator character or the end of input. When endAnchor is set
// the whole of t must be consumed.
func matchHere(t, pat string, endAnchor bool) bool {
	if pat == "" {
		return !endAnchor || t == ""
	}
	switch pat[0] {
	case '*':
		for i := 0; i <= len(t); i++ {
			if matchHere(t[i:], pat[1:], endAnchor) {
				return true
			}
		}
		return false
	case '^':
		if t == "" {
			return matchHere("", pat[1:], endAnchor)
		}
		if isSeparator(t[0]) {
			return matchHere(t[1:], pat[1:], endAnchor)
		}
		return false
	default:
		if t != "" && t[0] == pat[0] {
			return matchHere(t[1:], pat[1:], endAnchor)
		}
		return false
	}
}

// isSeparator implements the `^` placeholder: anything that is not a letter,
// digit, or one of `_ - . %`.
func isSeparator(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == '_' || c == '-' || c == '.' || c == '%':
		return false
	default:
		return true
	}
}
