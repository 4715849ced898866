package analyzer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theopenlane/detectify/internal/store"
	"github.com/theopenlane/detectify/internal/types"
)

// fakeDetector answers from a per-URL script; the last scripted result repeats
type fakeDetector struct {
	mu      sync.Mutex
	script  map[string][]types.ClassificationResult
	calls   map[string]int
	panics  map[string]bool
	block   chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
	started chan struct{}
	ctxErrs []error
}

func newFakeDetector() *fakeDetector {
	return &fakeDetector{
		script: map[string][]types.ClassificationResult{},
		calls:  map[string]int{},
		panics: map[string]bool{},
	}
}

func (d *fakeDetector) on(url string, results ...types.ClassificationResult) {
	d.script[url] = results
}

func (d *fakeDetector) Detect(ctx context.Context, url string, _ ...string) types.ClassificationResult {
	n := d.active.Add(1)
	defer d.active.Add(-1)

	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}

	d.mu.Lock()
	d.calls[url]++
	call := d.calls[url]
	results := d.script[url]
	shouldPanic := d.panics[url]
	d.mu.Unlock()

	if d.started != nil {
		d.started <- struct{}{}
	}

	if d.block != nil {
		<-d.block
	}

	d.mu.Lock()
	d.ctxErrs = append(d.ctxErrs, ctx.Err())
	d.mu.Unlock()

	if shouldPanic {
		panic("matcher exploded")
	}

	if len(results) == 0 {
		return negative(url)
	}

	res := results[min(call, len(results))-1]
	res.URL = url

	return res
}

func (d *fakeDetector) Calls(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls[url]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev types.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []types.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]types.Event{}, p.events...)
}

type failingStore struct {
	store.Store
}

func (failingStore) Put(context.Context, types.Record) error {
	return errors.New("disk full")
}

func positive(url string, solutions ...string) types.ClassificationResult {
	return types.ClassificationResult{
		URL:                url,
		HasChatbot:         true,
		ChatbotSolutions:   solutions,
		Confidence:         0.8,
		ConfidenceLevel:    types.ConfidenceHigh,
		VerificationStatus: types.VerificationVerified,
		Status:             types.StatusCompleted,
		LastChecked:        time.Now().UTC(),
	}
}

func negative(url string) types.ClassificationResult {
	return types.ClassificationResult{
		URL:                url,
		ChatbotSolutions:   []string{},
		Confidence:         0.04,
		ConfidenceLevel:    types.ConfidenceNone,
		VerificationStatus: types.VerificationFailed,
		Status:             types.StatusCompleted,
		LastChecked:        time.Now().UTC(),
	}
}

func failure(url string, transient bool) types.ClassificationResult {
	return types.ClassificationResult{
		URL:                url,
		ChatbotSolutions:   []string{},
		VerificationStatus: types.VerificationFailed,
		Status:             "Error in initial stage",
		Error:              "timeout",
		LastChecked:        time.Now().UTC(),
		Diagnostics:        &types.Diagnostics{Transient: transient},
	}
}

func newTestAnalyzer(t *testing.T, d Detector, opts ...Option) *Analyzer {
	t.Helper()

	base := []Option{
		WithRetryDelay(time.Millisecond),
		WithGroupDelay(time.Millisecond),
		WithPolling(5*time.Millisecond, 400),
	}

	a, err := New(d, append(base, opts...)...)
	require.NoError(t, err)

	t.Cleanup(a.Close)

	return a
}

func TestNewRequiresDetector(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoDetector)
}

func TestAnalyzeServesCache(t *testing.T) {
	d := newFakeDetector()
	d.on("https://acme.example", positive("", "Drift"))

	cache := store.NewCache(store.NewMemoryStore())
	a := newTestAnalyzer(t, d, WithCache(cache))

	first := a.Analyze(context.Background(), "https://acme.example")
	second := a.Analyze(context.Background(), "https://acme.example")

	assert.Equal(t, 1, d.Calls("https://acme.example"))
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, []string{"Drift"}, second.ChatbotSolutions)
	assert.Equal(t, first.HasChatbot, second.HasChatbot)
}

func TestRetryBypassesCache(t *testing.T) {
	d := newFakeDetector()
	d.on("https://acme.example", negative(""), positive("", "Intercom"))

	cache := store.NewCache(store.NewMemoryStore())
	a := newTestAnalyzer(t, d, WithCache(cache))

	first := a.Analyze(context.Background(), "https://acme.example")
	assert.False(t, first.HasChatbot)

	retried := a.Retry(context.Background(), "https://acme.example")
	assert.True(t, retried.HasChatbot)
	assert.Equal(t, 2, d.Calls("https://acme.example"))

	cached := a.Analyze(context.Background(), "https://acme.example")
	assert.True(t, cached.Cached)
	assert.Equal(t, []string{"Intercom"}, cached.ChatbotSolutions)
}

func TestAnalyzeRetriesTransientFailures(t *testing.T) {
	d := newFakeDetector()
	d.on("https://acme.example", failure("", true), failure("", true), positive("", "Drift"))

	a := newTestAnalyzer(t, d)

	res := a.Analyze(context.Background(), "https://acme.example")

	assert.True(t, res.HasChatbot)
	assert.Equal(t, 3, d.Calls("https://acme.example"))
}

func TestAnalyzeRetryBudget(t *testing.T) {
	d := newFakeDetector()
	d.on("https://acme.example", failure("", true))
	d.on("https://gone.example", failure("", false))

	a := newTestAnalyzer(t, d)

	res := a.Analyze(context.Background(), "https://acme.example")
	assert.True(t, res.Failed())
	assert.Equal(t, DefaultAttempts, d.Calls("https://acme.example"))

	res = a.Analyze(context.Background(), "https://gone.example")
	assert.True(t, res.Failed())
	assert.Equal(t, 1, d.Calls("https://gone.example"))
}

func TestAnalyzeStopsRetryingWhenCanceled(t *testing.T) {
	d := newFakeDetector()
	d.on("https://acme.example", failure("", true))

	a := newTestAnalyzer(t, d, WithRetryDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := a.Analyze(ctx, "https://acme.example")

	assert.True(t, res.Failed())
	assert.Equal(t, 1, d.Calls("https://acme.example"))
}

func TestAnalyzePublishesEvents(t *testing.T) {
	d := newFakeDetector()
	d.on("https://www.acme.example", positive("", "Drift"))

	pub := &recordingPublisher{}
	a := newTestAnalyzer(t, d, WithCache(store.NewCache(store.NewMemoryStore())), WithPublisher(pub))

	a.Analyze(context.Background(), "https://www.acme.example")

	events := pub.Events()
	require.Len(t, events, 2)

	assert.Equal(t, types.EventInsert, events[0].Kind)
	assert.Equal(t, types.StatusProcessing, events[0].Status)
	assert.Equal(t, "https://acme.example", events[0].URL)

	assert.Equal(t, types.EventUpdate, events[1].Kind)
	assert.Equal(t, types.StatusCompleted, events[1].Status)
	assert.True(t, events[1].HasChatbot)
	assert.Equal(t, "https://acme.example", events[1].URL)
}

func TestAnalyzeSwallowsPersistenceErrors(t *testing.T) {
	d := newFakeDetector()
	d.on("https://acme.example", positive("", "Drift"))

	pub := &recordingPublisher{}
	cache := store.NewCache(failingStore{Store: store.NewMemoryStore()})
	a := newTestAnalyzer(t, d, WithCache(cache), WithPublisher(pub))

	res := a.Analyze(context.Background(), "https://acme.example")

	assert.True(t, res.HasChatbot)
	assert.Empty(t, pub.Events())
}

func TestAnalyzeInvalidURLSkipsStore(t *testing.T) {
	d := newFakeDetector()
	d.on("", types.ClassificationResult{Status: "Error: Empty URL", Error: "empty url", VerificationStatus: types.VerificationFailed})

	mem := store.NewMemoryStore()
	a := newTestAnalyzer(t, d, WithCache(store.NewCache(mem)))

	res := a.Analyze(context.Background(), "")
	assert.Equal(t, "Error: Empty URL", res.Status)

	recs, err := mem.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDelete(t *testing.T) {
	d := newFakeDetector()
	d.on("https://acme.example", positive("", "Drift"))

	pub := &recordingPublisher{}
	a := newTestAnalyzer(t, d, WithCache(store.NewCache(store.NewMemoryStore())), WithPublisher(pub))

	a.Analyze(context.Background(), "https://acme.example")
	require.NoError(t, a.Delete(context.Background(), "https://acme.example"))

	events := pub.Events()
	assert.Equal(t, types.EventDelete, events[len(events)-1].Kind)

	assert.ErrorIs(t, a.Delete(context.Background(), "https://acme.example"), store.ErrNotFound)
}

func TestSingleFlightCoalesces(t *testing.T) {
	d := newFakeDetector()
	d.on("https://acme.example", positive("", "Drift"))
	d.block = make(chan struct{})
	d.started = make(chan struct{}, 4)

	a := newTestAnalyzer(t, d, WithSingleFlight(true))

	var wg sync.WaitGroup

	results := make([]types.ClassificationResult, 3)

	wg.Add(1)

	go func() {
		defer wg.Done()
		results[0] = a.Analyze(context.Background(), "https://acme.example")
	}()

	<-d.started

	for i := 1; i < 3; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			results[i] = a.Analyze(context.Background(), "https://acme.example")
		}()
	}

	// give the followers time to join the in-flight call
	time.Sleep(20 * time.Millisecond)
	close(d.block)
	wg.Wait()

	assert.Equal(t, 1, d.Calls("https://acme.example"))

	for _, r := range results {
		assert.True(t, r.HasChatbot)
	}
}

func TestSingleFlightSurvivesLeaderCancel(t *testing.T) {
	d := newFakeDetector()
	d.on("https://acme.example", positive("", "Drift"))
	d.block = make(chan struct{})
	d.started = make(chan struct{}, 4)

	a := newTestAnalyzer(t, d, WithSingleFlight(true))

	leaderCtx, cancelLeader := context.WithCancel(context.Background())

	leader := make(chan types.ClassificationResult, 1)
	follower := make(chan types.ClassificationResult, 1)

	go func() {
		leader <- a.Analyze(leaderCtx, "https://acme.example")
	}()

	<-d.started

	go func() {
		follower <- a.Analyze(context.Background(), "https://acme.example")
	}()

	// let the follower join the in-flight call before the leader walks away
	time.Sleep(20 * time.Millisecond)
	cancelLeader()

	select {
	case res := <-leader:
		assert.Equal(t, canceledStatus, res.Status)
		assert.False(t, res.HasChatbot)
	case <-time.After(time.Second):
		t.Fatal("canceled caller did not return")
	}

	close(d.block)

	select {
	case res := <-follower:
		assert.True(t, res.HasChatbot)
		assert.Equal(t, []string{"Drift"}, res.ChatbotSolutions)
	case <-time.After(time.Second):
		t.Fatal("coalesced caller did not return")
	}

	assert.Equal(t, 1, d.Calls("https://acme.example"))

	d.mu.Lock()
	defer d.mu.Unlock()

	require.Len(t, d.ctxErrs, 1)
	assert.NoError(t, d.ctxErrs[0])
}

func TestMaxFetchesPerAnalysis(t *testing.T) {
	a := newTestAnalyzer(t, newFakeDetector(), WithFetchBudget(6))
	assert.Equal(t, 18, a.MaxFetchesPerAnalysis())

	a = newTestAnalyzer(t, newFakeDetector(), WithFetchBudget(6), WithAttempts(1))
	assert.Equal(t, 6, a.MaxFetchesPerAnalysis())
}

func TestLookup(t *testing.T) {
	d := newFakeDetector()
	d.on("https://www.acme.example/", positive("", "Drift"))

	a := newTestAnalyzer(t, d, WithCache(store.NewCache(store.NewMemoryStore())))

	_, err := a.Lookup(context.Background(), "https://acme.example")
	assert.ErrorIs(t, err, store.ErrNotFound)

	a.Analyze(context.Background(), "https://www.acme.example/")

	rec, err := a.Lookup(context.Background(), "acme.example")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, rec.Status)
	assert.True(t, rec.HasChatbot)

	noCache := newTestAnalyzer(t, d)
	_, err = noCache.Lookup(context.Background(), "https://acme.example")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
