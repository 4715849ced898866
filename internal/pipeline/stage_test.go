package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theopenlane/detectify/internal/fetcher"
	"github.com/theopenlane/detectify/internal/types"
)

// flakyServer serves inHouseChatPage for the first ok requests and 503 afterwards
func flakyServer(t *testing.T, ok int64) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) > ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(inHouseChatPage))
	}))
	t.Cleanup(server.Close)

	return server, &hits
}

func newRetryingFetcher() *fetcher.Fetcher {
	return fetcher.New(
		fetcher.WithBackoff(time.Millisecond, time.Millisecond),
		fetcher.WithMaxAttempts(3),
	)
}

func TestNonFinalStagesFetchOnce(t *testing.T) {
	server, hits := flakyServer(t, 1)
	f := newRetryingFetcher()
	p := newPipeline(t, f)

	res := p.Detect(context.Background(), server.URL)

	assert.Equal(t, "Error in "+StageProvider+" stage", res.Status)
	assert.Equal(t, types.VerificationFailed, res.VerificationStatus)
	assert.True(t, res.Diagnostics.Transient)
	// one hit for the initial stage, one for the provider stage
	assert.Equal(t, int64(2), hits.Load())
}

func TestFunctionalStageUsesFullAttemptBudget(t *testing.T) {
	server, hits := flakyServer(t, 3)
	f := newRetryingFetcher()
	p := newPipeline(t, f)

	res := p.Detect(context.Background(), server.URL)

	assert.Equal(t, "Error in "+StageFunctional+" stage", res.Status)
	require.Len(t, res.Diagnostics.Stages, MaxStages)
	assert.True(t, res.Diagnostics.Stages[2].Proceed)
	assert.Equal(t, int64(3+f.MaxAttempts()), hits.Load())
}

func TestStageTimeoutBoundsEachAttempt(t *testing.T) {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			_, _ = w.Write([]byte(inHouseChatPage))
		}
	}))
	t.Cleanup(server.Close)

	stages := DefaultStages()
	stages[0].Timeout = 50 * time.Millisecond

	f := fetcher.New(fetcher.WithTimeout(10*time.Second), fetcher.WithBackoff(time.Millisecond, time.Millisecond))
	p := newPipeline(t, f, WithStages(stages))

	start := time.Now()
	res := p.Detect(context.Background(), server.URL)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "Error in "+StageInitial+" stage", res.Status)
	assert.Contains(t, res.Error, "timeout")
	assert.Equal(t, int64(1), hits.Load())
}
