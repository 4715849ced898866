package analyzer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/theopenlane/detectify/internal/notify"
	"github.com/theopenlane/detectify/internal/types"
)

// ValidateBatch cleans urls and checks them against the batch size limit
func (a *Analyzer) ValidateBatch(urls []string) ([]string, error) {
	urls = CleanURLs(urls)

	switch {
	case len(urls) == 0:
		return nil, ErrEmptyBatch
	case len(urls) > a.maxBatch:
		return nil, ErrBatchTooLarge
	}

	return urls, nil
}

// StartBatch validates urls and analyzes them in the background, returning the run id
func (a *Analyzer) StartBatch(urls []string) (string, error) {
	urls, err := a.ValidateBatch(urls)
	if err != nil {
		return "", err
	}

	now := a.now().UTC()
	run := &types.Run{
		ID:        uuid.NewString(),
		Status:    types.RunPending,
		URLs:      urls,
		CreatedAt: now,
		UpdatedAt: now,
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return "", ErrAnalyzerClosed
	}

	a.pruneRuns()
	a.runs[run.ID] = run
	a.wg.Add(1)
	a.mu.Unlock()

	go a.execute(run.ID, urls)

	log.Info().Str("run_id", run.ID).Int("urls", len(urls)).Msg("batch run started")

	return run.ID, nil
}

func (a *Analyzer) execute(id string, urls []string) {
	defer a.wg.Done()

	a.update(id, func(r *types.Run) {
		r.Status = types.RunProcessing
	})

	result := a.AnalyzeBatch(a.ctx, urls)

	a.update(id, func(r *types.Run) {
		r.Results = result.Results
		r.Summary = result.Summary
		r.Status = types.RunCompleted

		if err := a.ctx.Err(); err != nil {
			r.Status = types.RunFailed
			r.Error = err.Error()
		}
	})
}

func (a *Analyzer) update(id string, fn func(*types.Run)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.runs[id]; ok {
		fn(r)
		r.UpdatedAt = a.now().UTC()
	}
}

// pruneRuns drops finished runs older than the retention window. Callers hold the lock
func (a *Analyzer) pruneRuns() {
	cutoff := a.now().Add(-a.runRetention)

	for id, r := range a.runs {
		if r.Status.Terminal() && r.UpdatedAt.Before(cutoff) {
			delete(a.runs, id)
		}
	}
}

// Run returns a snapshot of the run. Repeated calls are safe and never change state
func (a *Analyzer) Run(id string) (types.Run, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.runs[id]
	if !ok {
		return types.Run{}, ErrRunNotFound
	}

	out := *r
	out.URLs = append([]string{}, r.URLs...)
	out.Results = append([]types.ClassificationResult(nil), r.Results...)

	return out, nil
}

// WaitForRun polls the run until it finishes or the poll budget runs out. The budget covers one
// group per pollAttempts, so larger runs wait proportionally longer. On exhaustion the last
// snapshot is returned with notify.ErrPollExhausted
func (a *Analyzer) WaitForRun(ctx context.Context, id string) (types.Run, error) {
	run, err := a.Run(id)
	if err != nil {
		return run, err
	}

	return notify.Poll(ctx, a.pollInterval, a.pollBudget(len(run.URLs)), func(context.Context) (types.Run, bool, error) {
		run, err := a.Run(id)
		if err != nil {
			return run, false, err
		}

		return run, run.Status.Terminal(), nil
	})
}

// pollBudget is the number of polls allowed for a run of n urls
func (a *Analyzer) pollBudget(n int) int {
	groups := (n + a.groupSize - 1) / a.groupSize

	return a.pollAttempts * max(groups, 1)
}
