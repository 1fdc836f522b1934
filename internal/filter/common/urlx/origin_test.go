package urlx

import "testing"

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "EXAMPLE.COM", "example.com"},
		{"trailing dot", "example.com.", "example.com"},
		{"whitespace", "  example.com ", "example.com"},
		{"port stripped", "example.com:8080", "example.com"},
		{"www stripped", "www.example.com", "example.com"},
		{"ipv6 literal kept", "::1", "::1"},
		{"bracketed ipv6 with port", "[::1]:443", "[::1]"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalHost(tt.in); got != tt.want {
				t.Errorf("CanonicalHost(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"apex stays", "example.com", "example.com"},
		{"subdomain collapses", "cdn.assets.example.com", "example.com"},
		{"www collapses", "www.example.co.uk", "example.co.uk"},
		{"multi-label suffix", "shop.example.co.uk", "example.co.uk"},
		{"bare label falls back", "localhost", "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RegistrableDomain(tt.in); got != tt.want {
				t.Errorf("RegistrableDomain(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSameSite(t *testing.T) {
	if !SameSite("cdn.example.com", "www.example.com") {
		t.Error("expected same-site for shared registrable domain")
	}
	if SameSite("tracker.example", "news.example") {
		t.Error("expected cross-site for different registrable domains")
	}
	if SameSite("", "example.com") {
		t.Error("empty host must never be same-site")
	}
}

func TestHostFromURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full url", "https://News.Example/article?id=1", "news.example"},
		{"schemeless", "news.example/article", "news.example"},
		{"with port", "http://example.com:8080/x", "example.com"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HostFromURL(tt.in); got != tt.want {
				t.Errorf("HostFromURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
