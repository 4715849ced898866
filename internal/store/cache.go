package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/theopenlane/detectify/internal/confidence"
	"github.com/theopenlane/detectify/internal/target"
	"github.com/theopenlane/detectify/internal/types"
)

// DefaultTTL is the validity window for cached classifications
const DefaultTTL = 24 * time.Hour

// Cache serves stored classifications that are still inside the validity window. Entries are
// never evicted; stale rows are simply ignored until overwritten
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithTTL sets the validity window
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache wraps store
func NewCache(store Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Key returns the storage key for a URL: the normalized URL without a leading www.
func Key(url string) string {
	if key, err := target.CacheKey(url); err == nil {
		return key
	}

	return url
}

// Store returns the underlying store
func (c *Cache) Store() Store {
	return c.store
}

// TTL returns the validity window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached classification for url, or nil when there is no fresh, completed entry
func (c *Cache) Get(ctx context.Context, url string) *types.ClassificationResult {
	rec, err := c.store.Get(ctx, Key(url))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("url", url).Msg("cache read failed")
		}

		return nil
	}

	if !servable(rec) || c.now().Sub(rec.LastChecked) > c.ttl {
		return nil
	}

	res := rec.Result()
	res.ConfidenceLevel = confidence.Level(res.Confidence)
	res.Cached = true
	res.Normalize()

	return &res
}

// Put stores res under its cache key and reports whether the URL was new
func (c *Cache) Put(ctx context.Context, res types.ClassificationResult) (types.EventKind, error) {
	rec := types.RecordFromResult(res)
	rec.URL = Key(res.URL)

	kind := types.EventUpdate
	if _, err := c.store.Get(ctx, rec.URL); errors.Is(err, ErrNotFound) {
		kind = types.EventInsert
	}

	if err := c.store.Put(ctx, rec); err != nil {
		return kind, err
	}

	return kind, nil
}

// MarkStatus records an in-flight status for url without touching an existing classification
func (c *Cache) MarkStatus(ctx context.Context, url, status string) (types.Record, types.EventKind, error) {
	key := Key(url)
	kind := types.EventUpdate

	rec, err := c.store.Get(ctx, key)

	switch {
	case errors.Is(err, ErrNotFound):
		kind = types.EventInsert
		rec = types.Record{URL: key, ChatbotSolutions: []string{}}
	case err != nil:
		return types.Record{}, kind, err
	}

	rec.Status = status
	rec.LastChecked = c.now().UTC()

	if err := c.store.Put(ctx, rec); err != nil {
		return rec, kind, err
	}

	return rec, kind, nil
}

// Delete removes the entry for url
func (c *Cache) Delete(ctx context.Context, url string) error {
	return c.store.Delete(ctx, Key(url))
}

// Lookup returns the stored record for url regardless of age or status
func (c *Cache) Lookup(ctx context.Context, url string) (types.Record, error) {
	return c.store.Get(ctx, Key(url))
}

// servable reports whether a record holds a finished classification
func servable(rec types.Record) bool {
	if rec.Error != nil && *rec.Error != "" {
		return false
	}

	switch rec.Status {
	case types.StatusPending, types.StatusProcessing, types.StatusFailed, "":
		return false
	default:
		return true
	}
}
