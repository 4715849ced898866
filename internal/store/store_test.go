package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theopenlane/detectify/internal/types"
)

func record(url string, solutions ...string) types.Record {
	conf := 0.8
	verification := string(types.VerificationVerified)

	return types.Record{
		URL:                url,
		HasChatbot:         len(solutions) > 0,
		ChatbotSolutions:   solutions,
		Status:             types.StatusCompleted,
		Confidence:         &conf,
		VerificationStatus: &verification,
		LastChecked:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "records"))
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, "https://acme.example")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, record("https://acme.example", "Drift")))
			require.NoError(t, s.Put(ctx, record("https://beta.example")))

			got, err := s.Get(ctx, "https://acme.example")
			require.NoError(t, err)
			assert.Equal(t, []string{"Drift"}, got.ChatbotSolutions)
			require.NotNil(t, got.Confidence)
			assert.InDelta(t, 0.8, *got.Confidence, 0.0001)

			// last write wins
			require.NoError(t, s.Put(ctx, record("https://acme.example", "Intercom")))

			got, err = s.Get(ctx, "https://acme.example")
			require.NoError(t, err)
			assert.Equal(t, []string{"Intercom"}, got.ChatbotSolutions)

			all, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "https://acme.example", all[0].URL)

			require.NoError(t, s.Delete(ctx, "https://acme.example"))
			assert.ErrorIs(t, s.Delete(ctx, "https://acme.example"), ErrNotFound)

			assert.ErrorIs(t, s.Put(ctx, types.Record{}), ErrEmptyKey)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, record("https://acme.example", "Drift")))

	got, err := s.Get(ctx, "https://acme.example")
	require.NoError(t, err)

	got.ChatbotSolutions[0] = "mutated"

	again, err := s.Get(ctx, "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"Drift"}, again.ChatbotSolutions)
}

func TestMemoryStoreConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = s.Put(ctx, record("https://acme.example", "Drift"))
			_, _ = s.Get(ctx, "https://acme.example")
		}()
	}

	wg.Wait()

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileStoreSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, record("https://acme.example", "Drift")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o600))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary files are renamed into place")
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	c := NewCache(NewMemoryStore(), WithClock(func() time.Time { return now }))

	assert.Nil(t, c.Get(ctx, "https://acme.example"))

	res := types.ClassificationResult{
		URL:                "https://www.acme.example",
		HasChatbot:         true,
		ChatbotSolutions:   []string{"Drift"},
		Confidence:         0.6,
		VerificationStatus: types.VerificationUnverified,
		Status:             types.StatusCompleted,
		LastChecked:        now.Add(-time.Hour),
	}

	kind, err := c.Put(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, types.EventInsert, kind)

	got := c.Get(ctx, "acme.example")
	require.NotNil(t, got, "www and bare spellings share a key")
	assert.True(t, got.Cached)
	assert.True(t, got.HasChatbot)
	assert.Equal(t, types.ConfidenceMedium, got.ConfidenceLevel)

	kind, err = c.Put(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, types.EventUpdate, kind)

	now = now.Add(DefaultTTL)
	assert.Nil(t, c.Get(ctx, "https://acme.example"), "entries older than the window are misses")

	rec, err := c.Lookup(ctx, "https://acme.example")
	require.NoError(t, err, "stale rows are kept")
	assert.Equal(t, "https://acme.example", rec.URL)
}

func TestCacheIgnoresUnfinishedRows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	c := NewCache(NewMemoryStore(), WithClock(func() time.Time { return now }))

	rec, kind, err := c.MarkStatus(ctx, "https://acme.example", types.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, types.EventInsert, kind)
	assert.Equal(t, types.StatusProcessing, rec.Status)
	assert.Nil(t, c.Get(ctx, "https://acme.example"))

	_, err = c.Put(ctx, types.ClassificationResult{
		URL:         "https://acme.example",
		Status:      "Error in initial stage",
		Error:       "timeout",
		LastChecked: now,
	})
	require.NoError(t, err)
	assert.Nil(t, c.Get(ctx, "https://acme.example"), "failed analyses are retried")

	require.NoError(t, c.Delete(ctx, "https://acme.example"))
	assert.ErrorIs(t, c.Delete(ctx, "https://acme.example"), ErrNotFound)
}
