package domain

import (
	"net/url"
	"strings"
)

// RequestDescriptor describes one outgoing network request at the
// interception hook. It is a plain value: the host engine builds one per
// request and nothing here retains it.
type RequestDescriptor struct {
	Method     string       // HTTP method, defaults to GET when empty
	URL        string       // full request URL
	Host       string       // request host, derived from URL when empty
	FirstParty string       // host of the top-level document, "" when unknown
	Type       ResourceType // resource classification from the host engine
}

// RequestHost returns the request's host, deriving it from the URL when the
// descriptor did not carry one.
func (r RequestDescriptor) RequestHost() string {
	if r.Host != "" {
		return canonicalHost(r.Host)
	}
	if u, err := url.Parse(r.URL); err == nil {
		return canonicalHost(u.Hostname())
	}
	return ""
}

// NormalizedURL returns the URL with a lowercased scheme and host and the
// fragment dropped. Used for matching and for fingerprinting so that
// equivalent requests share a cache row.
func (r RequestDescriptor) NormalizedURL() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String()
}

// Fingerprint identifies the request for decision caching:
// method + normalized URL + resource type.
func (r RequestDescriptor) Fingerprint() string {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = "GET"
	}
	return method + " " + r.NormalizedURL() + " " + r.Type.String()
}

// canonicalHost lowercases a host and strips surrounding whitespace, any
// port, and trailing dots.
func canonicalHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if i := strings.LastIndexByte(h, ':'); i >= 0 && !strings.Contains(h[i+1:], "]") {
		if !strings.Contains(h, "]") || strings.HasSuffix(h[:i], "]") {
			h = h[:i]
		}
	}
	for strings.HasSuffix(h, ".") {
		h = strings.TrimSuffix(h, ".")
	}
	return h
}
