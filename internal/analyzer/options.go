package analyzer

import (
	"time"

	"github.com/theopenlane/detectify/internal/store"
)

const (
	// DefaultAttempts is the outer retry budget wrapping one pipeline run
	DefaultAttempts = 3
	// DefaultRetryDelay is the fixed delay between outer attempts
	DefaultRetryDelay = time.Second
	// DefaultGroupSize is the number of URLs analyzed concurrently within a batch
	DefaultGroupSize = 3
	// DefaultGroupDelay is the pause between batch groups
	DefaultGroupDelay = time.Second
	// DefaultMaxBatch caps the number of URLs in one batch
	DefaultMaxBatch = 100
	// DefaultPollInterval is the delay between run status lookups
	DefaultPollInterval = 2 * time.Second
	// DefaultPollAttempts bounds the number of run status lookups
	DefaultPollAttempts = 150
	// DefaultRunRetention is how long finished runs remain available
	DefaultRunRetention = time.Hour
)

// Option configures an Analyzer
type Option func(*Analyzer)

// WithCache enables the result cache and persistence
func WithCache(cache *store.Cache) Option {
	return func(a *Analyzer) {
		a.cache = cache
	}
}

// WithPublisher sets where change events are sent
func WithPublisher(p Publisher) Option {
	return func(a *Analyzer) {
		a.publisher = p
	}
}

// WithFallback enables the low-confidence pass for batches with no positive result
func WithFallback(f Fallback) Option {
	return func(a *Analyzer) {
		a.fallback = f
	}
}

// WithAttempts sets the outer retry budget
func WithAttempts(attempts int) Option {
	return func(a *Analyzer) {
		if attempts > 0 {
			a.attempts = attempts
		}
	}
}

// WithRetryDelay sets the fixed delay between outer attempts
func WithRetryDelay(d time.Duration) Option {
	return func(a *Analyzer) {
		if d >= 0 {
			a.retryDelay = d
		}
	}
}

// WithGroupSize sets how many URLs of a batch run concurrently
func WithGroupSize(size int) Option {
	return func(a *Analyzer) {
		if size > 0 {
			a.groupSize = size
		}
	}
}

// WithGroupDelay sets the pause between batch groups
func WithGroupDelay(d time.Duration) Option {
	return func(a *Analyzer) {
		if d >= 0 {
			a.groupDelay = d
		}
	}
}

// WithMaxBatch caps the number of URLs in one batch
func WithMaxBatch(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxBatch = n
		}
	}
}

// WithSingleFlight coalesces concurrent analyses of the same URL
func WithSingleFlight(enabled bool) Option {
	return func(a *Analyzer) {
		a.singleFlight = enabled
	}
}

// WithPolling sets the interval and bound used by WaitForRun
func WithPolling(interval time.Duration, attempts int) Option {
	return func(a *Analyzer) {
		if interval > 0 {
			a.pollInterval = interval
		}

		if attempts > 0 {
			a.pollAttempts = attempts
		}
	}
}

// WithRunRetention sets how long finished runs stay queryable
func WithRunRetention(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.runRetention = d
		}
	}
}

// WithFetchBudget records the worst-case HTTP calls of one detector run, used by
// MaxFetchesPerAnalysis
func WithFetchBudget(fetches int) Option {
	return func(a *Analyzer) {
		if fetches > 0 {
			a.fetchBudget = fetches
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}
