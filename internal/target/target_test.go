package target

import (
	"errors"
	"net/url"
	"testing"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		opts       []Option
		wantURL    string
		wantHost   string
		wantDomain string
		wantSub    string
		wantErr    error
	}{
		{
			name:       "bare domain gets https",
			input:      "example.com",
			wantURL:    "https://example.com",
			wantHost:   "example.com",
			wantDomain: "example.com",
		},
		{
			name:       "trailing slash stripped",
			input:      "https://example.com/",
			wantURL:    "https://example.com",
			wantHost:   "example.com",
			wantDomain: "example.com",
		},
		{
			name:       "trailing colon stripped",
			input:      "example.com:",
			wantURL:    "https://example.com",
			wantHost:   "example.com",
			wantDomain: "example.com",
		},
		{
			name:       "http kept",
			input:      "http://Example.COM/path/",
			wantURL:    "http://example.com/path",
			wantHost:   "example.com",
			wantDomain: "example.com",
		},
		{
			name:       "www kept by default",
			input:      "www.example.co.uk",
			wantURL:    "https://www.example.co.uk",
			wantHost:   "www.example.co.uk",
			wantDomain: "example.co.uk",
			wantSub:    "www",
		},
		{
			name:       "www stripped on request",
			input:      "www.example.co.uk",
			opts:       []Option{WithStripWWW()},
			wantURL:    "https://example.co.uk",
			wantHost:   "example.co.uk",
			wantDomain: "example.co.uk",
		},
		{
			name:       "port and query preserved",
			input:      "https://api.example.com:8443/chat?x=1",
			wantURL:    "https://api.example.com:8443/chat?x=1",
			wantHost:   "api.example.com",
			wantDomain: "example.com",
			wantSub:    "api",
		},
		{
			name:       "ip host",
			input:      "http://127.0.0.1:8080",
			wantURL:    "http://127.0.0.1:8080",
			wantHost:   "127.0.0.1",
			wantDomain: "127.0.0.1",
		},
		{
			name:       "ipv6 loopback",
			input:      "https://[::1]/",
			wantURL:    "https://[::1]",
			wantHost:   "::1",
			wantDomain: "::1",
		},
		{
			name:       "ipv6 with path",
			input:      "http://[2001:db8::1]/page",
			wantURL:    "http://[2001:db8::1]/page",
			wantHost:   "2001:db8::1",
			wantDomain: "2001:db8::1",
		},
		{
			name:       "ipv6 with port",
			input:      "http://[2001:db8::1]:8080/chat",
			wantURL:    "http://[2001:db8::1]:8080/chat",
			wantHost:   "2001:db8::1",
			wantDomain: "2001:db8::1",
		},
		{
			name:       "protocol relative",
			input:      "//example.com",
			wantURL:    "https://example.com",
			wantHost:   "example.com",
			wantDomain: "example.com",
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: ErrEmptyURL,
		},
		{
			name:    "no tld",
			input:   "example",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "scheme only",
			input:   "https://",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "ftp rejected",
			input:   "ftp://example.com",
			wantErr: ErrUnsupportedScheme,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.input, tc.opts...)

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.URL != tc.wantURL {
				t.Errorf("url: expected %q, got %q", tc.wantURL, got.URL)
			}

			if got.Host != tc.wantHost {
				t.Errorf("host: expected %q, got %q", tc.wantHost, got.Host)
			}

			if got.Domain != tc.wantDomain {
				t.Errorf("domain: expected %q, got %q", tc.wantDomain, got.Domain)
			}

			if got.Subdomain != tc.wantSub {
				t.Errorf("subdomain: expected %q, got %q", tc.wantSub, got.Subdomain)
			}

			parsed, err := url.Parse(got.URL)
			if err != nil {
				t.Fatalf("normalized url %q does not parse: %v", got.URL, err)
			}

			if parsed.Hostname() != got.Host {
				t.Errorf("reparsed host: expected %q, got %q", got.Host, parsed.Hostname())
			}

			if got.Original != tc.input {
				t.Errorf("original: expected %q, got %q", tc.input, got.Original)
			}
		})
	}
}

func TestCacheKey(t *testing.T) {
	a, err := CacheKey("https://www.example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := CacheKey("example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a != b {
		t.Errorf("expected equal cache keys, got %q and %q", a, b)
	}
}

func TestMatchesHost(t *testing.T) {
	testCases := []struct {
		host   string
		domain string
		want   bool
	}{
		{"kentdentists.com", "kentdentists.com", true},
		{"www.kentdentists.com", "kentdentists.com", true},
		{"notkentdentists.com", "kentdentists.com", false},
		{"", "kentdentists.com", false},
	}

	for _, tc := range testCases {
		if got := MatchesHost(tc.host, tc.domain); got != tc.want {
			t.Errorf("MatchesHost(%q, %q) = %v, want %v", tc.host, tc.domain, got, tc.want)
		}
	}
}
