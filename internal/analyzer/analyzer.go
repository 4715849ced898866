// Package analyzer runs detections the way a background worker does: cached, retried, persisted,
// announced, and grouped into batches
package analyzer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/theopenlane/detectify/internal/store"
	"github.com/theopenlane/detectify/internal/target"
	"github.com/theopenlane/detectify/internal/types"
)

// Detector classifies a single URL
type Detector interface {
	Detect(ctx context.Context, url string, hints ...string) types.ClassificationResult
}

// Publisher receives change events for persisted rows
type Publisher interface {
	Publish(ctx context.Context, ev types.Event)
}

// Fallback upgrades negative results that look likely to be false negatives
type Fallback interface {
	Apply(res types.ClassificationResult) types.ClassificationResult
}

// Analyzer coordinates detections, the cache, and event publication
type Analyzer struct {
	detector  Detector
	cache     *store.Cache
	publisher Publisher
	fallback  Fallback

	attempts     int
	retryDelay   time.Duration
	groupSize    int
	groupDelay   time.Duration
	maxBatch     int
	singleFlight bool
	pollInterval time.Duration
	pollAttempts int
	runRetention time.Duration
	fetchBudget  int
	now          func() time.Time

	flight singleflight.Group

	mu     sync.RWMutex
	runs   map[string]*types.Run
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Analyzer around detector
func New(detector Detector, opts ...Option) (*Analyzer, error) {
	if detector == nil {
		return nil, ErrNoDetector
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &Analyzer{
		detector:     detector,
		attempts:     DefaultAttempts,
		retryDelay:   DefaultRetryDelay,
		groupSize:    DefaultGroupSize,
		groupDelay:   DefaultGroupDelay,
		maxBatch:     DefaultMaxBatch,
		pollInterval: DefaultPollInterval,
		pollAttempts: DefaultPollAttempts,
		runRetention: DefaultRunRetention,
		now:          time.Now,
		runs:         map[string]*types.Run{},
		ctx:          ctx,
		cancel:       cancel,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Close cancels background runs and waits for them to stop
func (a *Analyzer) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
}

// Cache returns the configured cache, which may be nil
func (a *Analyzer) Cache() *store.Cache {
	return a.cache
}

// MaxFetchesPerAnalysis returns the worst-case HTTP calls for one Analyze call: the outer attempt
// budget times the detector's own fetch budget
func (a *Analyzer) MaxFetchesPerAnalysis() int {
	return a.attempts * a.fetchBudget
}

// Analyze returns a fresh cached classification when one exists, otherwise it runs the detector
func (a *Analyzer) Analyze(ctx context.Context, url string, hints ...string) types.ClassificationResult {
	if a.cache != nil {
		if cached := a.cache.Get(ctx, url); cached != nil {
			log.Debug().Str("url", url).Msg("serving cached classification")
			return *cached
		}
	}

	return a.analyze(ctx, url, hints)
}

// Retry runs the detector for url even when a cached classification exists
func (a *Analyzer) Retry(ctx context.Context, url string, hints ...string) types.ClassificationResult {
	return a.analyze(ctx, url, hints)
}

func (a *Analyzer) analyze(ctx context.Context, url string, hints []string) types.ClassificationResult {
	if !a.singleFlight {
		return a.run(ctx, url, hints)
	}

	// hint order does not change the verdict
	key := store.Key(url) + "|" + strings.Join(slices.Sorted(slices.Values(hints)), ",")

	ch := a.flight.DoChan(key, func() (any, error) {
		// the shared call outlives any single caller and stops only when the analyzer closes
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()

		stop := context.AfterFunc(a.ctx, cancel)
		defer stop()

		return a.run(shared, url, hints), nil
	})

	select {
	case <-ctx.Done():
		log.Debug().Str("url", url).Msg("caller left coalesced analysis")

		return failedResult(url, canceledStatus, ctx.Err(), a.now())
	case out := <-ch:
		res := out.Val.(types.ClassificationResult)
		if out.Shared {
			log.Debug().Str("url", url).Msg("coalesced concurrent analysis")

			res.ChatbotSolutions = append([]string{}, res.ChatbotSolutions...)
		}

		return res
	}
}

// run performs one logical analysis: mark in flight, detect with outer retries, persist, notify
func (a *Analyzer) run(ctx context.Context, url string, hints []string) types.ClassificationResult {
	// input errors are reported without touching the store
	if _, err := target.Normalize(url); err != nil {
		return a.detector.Detect(ctx, url, hints...)
	}

	a.markProcessing(ctx, url)

	var res types.ClassificationResult

	for attempt := 1; attempt <= a.attempts; attempt++ {
		res = a.detector.Detect(ctx, url, hints...)

		if !retryable(res) || attempt == a.attempts {
			break
		}

		log.Info().Str("url", url).Int("attempt", attempt).Str("error", res.Error).Msg("transient detection failure, retrying")

		if err := sleepContext(ctx, a.retryDelay); err != nil {
			break
		}
	}

	a.persist(ctx, res)

	return res
}

// retryable reports whether another pipeline run could change the outcome
func retryable(res types.ClassificationResult) bool {
	return res.Failed() && res.Diagnostics != nil && res.Diagnostics.Transient
}

func (a *Analyzer) markProcessing(ctx context.Context, url string) {
	if a.cache == nil {
		return
	}

	rec, kind, err := a.cache.MarkStatus(context.WithoutCancel(ctx), url, types.StatusProcessing)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to record in-flight status")
		return
	}

	a.publish(ctx, types.EventFromRecord(kind, rec))
}

// persist stores res and announces the change. Failures are logged and never reach the caller
func (a *Analyzer) persist(ctx context.Context, res types.ClassificationResult) {
	if a.cache == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)

	kind, err := a.cache.Put(ctx, res)
	if err != nil {
		log.Error().Err(err).Str("url", res.URL).Msg("failed to persist classification")
		return
	}

	rec := types.RecordFromResult(res)
	rec.URL = store.Key(res.URL)

	a.publish(ctx, types.EventFromRecord(kind, rec))
}

func (a *Analyzer) publish(ctx context.Context, ev types.Event) {
	if a.publisher != nil {
		a.publisher.Publish(ctx, ev)
	}
}

// Lookup returns the stored row for url regardless of age or status
func (a *Analyzer) Lookup(ctx context.Context, url string) (types.Record, error) {
	if a.cache == nil {
		return types.Record{}, store.ErrNotFound
	}

	return a.cache.Lookup(ctx, url)
}

// Delete removes the stored classification for url and announces the removal
func (a *Analyzer) Delete(ctx context.Context, url string) error {
	if a.cache == nil {
		return store.ErrNotFound
	}

	rec, err := a.cache.Lookup(ctx, url)
	if err != nil {
		return err
	}

	if err := a.cache.Delete(ctx, url); err != nil {
		return err
	}

	a.publish(ctx, types.EventFromRecord(types.EventDelete, rec))

	return nil
}

// safeAnalyze converts a panic escaping the detector into a failed result for that URL only
func (a *Analyzer) safeAnalyze(ctx context.Context, url string) (res types.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("url", url).Interface("panic", r).Msg("analysis panicked")

			res = failedResult(url, "Error: analysis failed", fmt.Errorf("%w: %v", ErrAnalysisPanic, r), a.now())
		}
	}()

	return a.Analyze(ctx, url)
}

func failedResult(url, status string, err error, now time.Time) types.ClassificationResult {
	res := types.ClassificationResult{
		URL:                url,
		Status:             status,
		Error:              err.Error(),
		VerificationStatus: types.VerificationFailed,
		ConfidenceLevel:    types.ConfidenceNone,
		LastChecked:        now.UTC(),
	}

	res.Normalize()

	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
