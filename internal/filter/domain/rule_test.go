package domain

import (
	"errors"
	"testing"
)

func TestParseRule_NonNetworkLines(t *testing.T) {
	for _, line := range []string{
		"",
		"   ",
		"! EasyList comment",
		"[Adblock Plus 2.0]",
		"news.example##.ad-banner",
		"news.example#@#.ad-banner",
		"news.example#?#.sponsored",
	} {
		_, err := ParseRule(line)
		if !errors.Is(err, ErrNotNetworkRule) {
			t.Errorf("ParseRule(%q) err = %v, want ErrNotNetworkRule", line, err)
		}
	}
}

func TestParseRule_Malformed(t *testing.T) {
	for _, line := range []string{
		"@@",
		"||^",
		"$third-party",
		"||ads.example^$bogus-option",
		"||ads.example^$domain=",
		"||ads.example^$domain=a|~",
		"||ads.example^$",
	} {
		_, err := ParseRule(line)
		if !errors.Is(err, ErrMalformedRule) {
			t.Errorf("ParseRule(%q) err = %v, want ErrMalformedRule", line, err)
		}
	}
}

func TestParseRule_HostAnchor(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"||ads.example^", "ads.example"},
		{"||ads.example", "ads.example"},
		{"||Ads.Example^", "ads.example"},
		{"||ads.example/banner", ""}, // path tail: not a plain host anchor
		{"||ads.example^$script", "ads.example"},
		{"|https://ads.example/", ""},
		{"||localhost^", ""}, // single label, not indexable by host
	}
	for _, tt := range tests {
		r, err := ParseRule(tt.line)
		if err != nil {
			t.Errorf("ParseRule(%q) error: %v", tt.line, err)
			continue
		}
		if r.HostAnchor != tt.want {
			t.Errorf("ParseRule(%q).HostAnchor = %q, want %q", tt.line, r.HostAnchor, tt.want)
		}
	}
}

func TestParseRule_Options(t *testing.T) {
	r, err := ParseRule("||tracker.example^$domain=news.example|~partner.example,script,third-party")
	if err != nil {
		t.Fatalf("ParseRule error: %v", err)
	}
	if len(r.Options.Domains) != 1 || r.Options.Domains[0] != "news.example" {
		t.Errorf("Domains = %v", r.Options.Domains)
	}
	if len(r.Options.ExcludeDomains) != 1 || r.Options.ExcludeDomains[0] != "partner.example" {
		t.Errorf("ExcludeDomains = %v", r.Options.ExcludeDomains)
	}
	if r.Options.ThirdParty == nil || !*r.Options.ThirdParty {
		t.Error("ThirdParty not parsed")
	}
	if len(r.Options.Types) != 1 || r.Options.Types[0] != ResourceScript {
		t.Errorf("Types = %v", r.Options.Types)
	}
}

func TestParseRule_Exception(t *testing.T) {
	r, err := ParseRule("@@||cdn.example^$stylesheet")
	if err != nil {
		t.Fatalf("ParseRule error: %v", err)
	}
	if !r.Exception {
		t.Error("Exception not set")
	}
	if r.HostAnchor != "cdn.example" {
		t.Errorf("HostAnchor = %q", r.HostAnchor)
	}
}

func TestAppliesTo(t *testing.T) {
	tests := []struct {
		line   string
		origin string
		want   bool
	}{
		{"||ads.example^", "anything.example", true},
		{"||tracker.example^$domain=~partner.example", "partner.example", false},
		{"||tracker.example^$domain=~partner.example", "sub.partner.example", false},
		{"||tracker.example^$domain=~partner.example", "news.example", true},
		{"||tracker.example^$domain=news.example", "news.example", true},
		{"||tracker.example^$domain=news.example", "shop.example", false},
		{"||tracker.example^$domain=news.example|shop.example", "shop.example", true},
	}
	for _, tt := range tests {
		r, err := ParseRule(tt.line)
		if err != nil {
			t.Fatalf("ParseRule(%q) error: %v", tt.line, err)
		}
		if got := r.AppliesTo(tt.origin); got != tt.want {
			t.Errorf("ParseRule(%q).AppliesTo(%q) = %v, want %v", tt.line, tt.origin, got, tt.want)
		}
	}
}

func TestMatchesURL(t *testing.T) {
	tests := []struct {
		line string
		url  string
		want bool
	}{
		{"||ads.example^", "https://ads.example/banner.js", true},
		{"||ads.example^", "https://sub.ads.example/banner.js", true},
		{"||ads.example^", "https://notads.example/banner.js", false},
		{"||ads.example^", "https://ads.example.evil/banner.js", false},
		{"/banner/*/img", "https://x.example/banner/320x50/img", true},
		{"/banner/*/img", "https://x.example/banner/img", false},
		{"|https://ads.", "https://ads.example/a", true},
		{"|https://ads.", "http://x/https://ads.", false},
		{".swf|", "https://x.example/movie.swf", true},
		{".swf|", "https://x.example/movie.swf?x=1", false},
		{"track^", "https://x.example/track/pixel", true},
		{"track^", "https://x.example/tracker", false},
		{"track^", "https://x.example/track", true}, // ^ matches end of input
	}
	for _, tt := range tests {
		r, err := ParseRule(tt.line)
		if err != nil {
			t.Fatalf("ParseRule(%q) error: %v", tt.line, err)
		}
		if got := r.MatchesURL(tt.url); got != tt.want {
			t.Errorf("ParseRule(%q).MatchesURL(%q) = %v, want %v", tt.line, tt.url, got, tt.want)
		}
	}
}

func TestMatchesURL_MatchCase(t *testing.T) {
	r, err := ParseRule("/BannerAd$match-case")
	if err != nil {
		t.Fatalf("ParseRule error: %v", err)
	}
	if !r.MatchesURL("https://x.example/BannerAd.js") {
		t.Error("exact case must match")
	}
	if r.MatchesURL("https://x.example/bannerad.js") {
		t.Error("wrong case must not match with match-case")
	}
}
