package urlx

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalHost returns a host in canonical form: lowercased, trimmed of
// surrounding whitespace and trailing dots, with any port removed.
func CanonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, ok := splitPort(host); ok {
		host = h
	}
	for strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
	}
	return strings.TrimPrefix(host, "www.")
}

// RegistrableDomain returns the eTLD+1 for a host, falling back to the
// canonical host when the public suffix list cannot resolve it (bare labels,
// IPs, localhost). This is the scoping unit subsets and decisions are keyed by.
func RegistrableDomain(host string) string {
	host = CanonicalHost(host)
	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return apex
}

// SameSite reports whether two hosts share a registrable domain.
// Used for the third-party heuristic on request descriptors.
func SameSite(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return RegistrableDomain(a) == RegistrableDomain(b)
}

// HostFromURL extracts the canonical host from a raw URL. Scheme-less inputs
// are treated as host[/path] strings.
func HostFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return CanonicalHost(u.Hostname())
}

// splitPort splits a trailing :port off a host, tolerating bracketed and
// raw IPv6 literals.
func splitPort(host string) (h, port string, ok bool) {
	i := strings.LastIndexByte(host, ':')
	if i < 0 {
		return host, "", false
	}
	port = host[i+1:]
	if port == "" {
		return host, "", false
	}
	for _, r := range port {
		if r < '0' || r > '9' {
			return host, "", false
		}
	}
	h = host[:i]
	if strings.Count(host, ":") > 1 && !strings.HasSuffix(h, "]") {
		// raw IPv6 literal without brackets, the colon is not a port
		return host, "", false
	}
	return h, port, true
}
