package target

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const (
	// defaultScheme is applied to inputs that omit a scheme
	defaultScheme = "https"
	// wwwPrefix is removed from hosts when building cache keys
	wwwPrefix = "www."
)

// Target is a normalized URL ready for fetching and matching
type Target struct {
	// URL is the normalized absolute URL
	URL string `json:"url"`
	// Original is the raw input string
	Original string `json:"original"`
	// Host is the lower-cased hostname without port
	Host string `json:"host"`
	// Domain is the registrable domain (eTLD+1), or the host for IPs and localhost
	Domain string `json:"domain"`
	// Subdomain is the part of the host in front of the registrable domain
	Subdomain string `json:"subdomain,omitempty"`
}

// Option configures normalization
type Option func(*options)

type options struct {
	stripWWW bool
}

// WithStripWWW removes a leading www. label from the normalized URL
func WithStripWWW() Option {
	return func(o *options) {
		o.stripWWW = true
	}
}

// Normalize resolves user input into a Target. The scheme defaults to https, trailing colons and
// slashes are stripped, and the host must be a resolvable public domain, an IP or localhost
func Normalize(input string, opts ...Option) (*Target, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	raw := strings.TrimSpace(input)
	if raw == "" {
		return nil, ErrEmptyURL
	}

	raw = strings.TrimRight(raw, ":/")
	if raw == "" {
		return nil, ErrInvalidURL
	}

	switch {
	case strings.HasPrefix(raw, "//"):
		raw = defaultScheme + ":" + raw
	case !strings.Contains(raw, "://"):
		raw = defaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t") {
		return nil, ErrInvalidURL
	}

	domain, subdomain, err := registrableDomain(host)
	if err != nil {
		return nil, err
	}

	if o.stripWWW {
		host = strings.TrimPrefix(host, wwwPrefix)
		subdomain = strings.TrimPrefix(strings.TrimPrefix(subdomain, "www"), ".")
	}

	authority := host

	switch port := u.Port(); {
	case port != "":
		authority = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		// ipv6 literals keep their brackets
		authority = "[" + host + "]"
	}

	out := scheme + "://" + authority + strings.TrimRight(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}

	return &Target{
		URL:       out,
		Original:  input,
		Host:      host,
		Domain:    domain,
		Subdomain: subdomain,
	}, nil
}

// CacheKey is the normalized URL with any leading www. removed, so both spellings of a site
// share one cache slot
func (t *Target) CacheKey() string {
	if !strings.HasPrefix(t.Host, wwwPrefix) {
		return t.URL
	}

	return strings.Replace(t.URL, "://"+wwwPrefix, "://", 1)
}

// CacheKey normalizes input and returns its cache key
func CacheKey(input string) (string, error) {
	t, err := Normalize(input)
	if err != nil {
		return "", err
	}

	return t.CacheKey(), nil
}

// registrableDomain splits a host into its eTLD+1 and subdomain parts
func registrableDomain(host string) (string, string, error) {
	if host == "localhost" || net.ParseIP(host) != nil {
		return host, "", nil
	}

	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return "", "", ErrInvalidURL
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	subdomain := ""
	if etld1 != host {
		subdomain = strings.TrimSuffix(host, "."+etld1)
	}

	return etld1, subdomain, nil
}

// MatchesHost reports whether host equals domain or is a subdomain of it
func MatchesHost(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))

	if host == "" || domain == "" {
		return false
	}

	return host == domain || strings.HasSuffix(host, "."+domain)
}
