package fetcher

import (
	"net/http"
	"time"
)

// defaultUserAgents are rotated across attempts
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
}

const (
	// defaultAccept mirrors a desktop browser navigation request
	defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	// defaultAcceptLanguage mirrors a US English browser
	defaultAcceptLanguage = "en-US,en;q=0.9"
)

// Options configures the fetcher
type Options struct {
	// Timeout bounds a single attempt
	Timeout time.Duration
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// BaseDelay is the first backoff delay; later delays double
	BaseDelay time.Duration
	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration
	// RateLimitDelay is the minimum wait after a 429 without a Retry-After header
	RateLimitDelay time.Duration
	// MaxRetryAfter caps server-suggested delays
	MaxRetryAfter time.Duration
	// MaxRedirects is the number of redirects followed
	MaxRedirects int
	// MaxContentSize is the number of body bytes read before truncating
	MaxContentSize int64
	// UserAgents are rotated across attempts
	UserAgents []string
	// AcceptLanguage is sent on every request
	AcceptLanguage string
	// RequestsPerSecond paces outbound requests; zero disables pacing
	RequestsPerSecond float64
	// Burst is the limiter burst size
	Burst int
	// HTTPClient is cloned for transport settings; redirects are always governed by MaxRedirects
	HTTPClient *http.Client
	// Inspector attributes blocks to a WAF or CDN; nil disables attribution
	Inspector Inspector
}

// Option is a functional option for configuring the fetcher
type Option func(*Options)

// DefaultOptions returns default fetcher options
func DefaultOptions() *Options {
	return &Options{
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		RateLimitDelay: 5 * time.Second,
		MaxRetryAfter:  30 * time.Second,
		MaxRedirects:   5,
		MaxContentSize: 10 * 1024 * 1024,
		UserAgents:     defaultUserAgents,
		AcceptLanguage: defaultAcceptLanguage,
		Burst:          1,
	}
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}

// WithMaxAttempts sets the total attempt budget
func WithMaxAttempts(attempts int) Option {
	return func(o *Options) {
		if attempts > 0 {
			o.MaxAttempts = attempts
		}
	}
}

// WithBackoff sets the base and maximum backoff delays
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(o *Options) {
		if base > 0 {
			o.BaseDelay = base
		}

		if maxDelay > 0 {
			o.MaxDelay = maxDelay
		}
	}
}

// WithRateLimitBackoff sets the default and maximum delays applied after a 429
func WithRateLimitBackoff(delay, maxRetryAfter time.Duration) Option {
	return func(o *Options) {
		if delay > 0 {
			o.RateLimitDelay = delay
		}

		if maxRetryAfter > 0 {
			o.MaxRetryAfter = maxRetryAfter
		}
	}
}

// WithMaxRedirects sets the redirect hop limit
func WithMaxRedirects(hops int) Option {
	return func(o *Options) {
		if hops >= 0 {
			o.MaxRedirects = hops
		}
	}
}

// WithMaxContentSize sets the body read cap in bytes
func WithMaxContentSize(size int64) Option {
	return func(o *Options) {
		if size > 0 {
			o.MaxContentSize = size
		}
	}
}

// WithUserAgents replaces the rotated user agent list
func WithUserAgents(agents []string) Option {
	return func(o *Options) {
		if len(agents) > 0 {
			o.UserAgents = agents
		}
	}
}

// WithRateLimit paces outbound requests
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *Options) {
		o.RequestsPerSecond = perSecond

		if burst > 0 {
			o.Burst = burst
		}
	}
}

// WithHTTPClient sets the base HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		if client != nil {
			o.HTTPClient = client
		}
	}
}

// WithInspector enables block attribution
func WithInspector(inspector Inspector) Option {
	return func(o *Options) {
		o.Inspector = inspector
	}
}

// CallOption overrides options for a single Fetch call
type CallOption func(*callOptions)

type callOptions struct {
	timeout  time.Duration
	attempts int
}

// WithAttemptTimeout overrides the per-attempt timeout for one call
func WithAttemptTimeout(timeout time.Duration) CallOption {
	return func(c *callOptions) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAttempts overrides the attempt budget for one call
func WithAttempts(attempts int) CallOption {
	return func(c *callOptions) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}
