package analyzer

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/theopenlane/detectify/internal/types"
)

// canceledStatus labels batch entries that never ran because the batch was abandoned
const canceledStatus = "Error: canceled"

// AnalyzeBatch analyzes urls in fixed-size concurrent groups with a pause between groups. One
// URL failing never affects another; results keep the input order
func (a *Analyzer) AnalyzeBatch(ctx context.Context, urls []string) types.BatchResult {
	results := make([]types.ClassificationResult, len(urls))

	for start := 0; start < len(urls); start += a.groupSize {
		if start > 0 {
			if err := sleepContext(ctx, a.groupDelay); err != nil {
				a.cancelRemaining(results, urls, start, err)
				break
			}
		}

		if err := ctx.Err(); err != nil {
			a.cancelRemaining(results, urls, start, err)
			break
		}

		end := min(start+a.groupSize, len(urls))

		var g errgroup.Group

		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = a.safeAnalyze(ctx, urls[i])
				return nil
			})
		}

		_ = g.Wait()
	}

	out := types.BatchResult{Results: results}

	if a.fallback != nil && len(results) > 0 && lo.NoneBy(results, func(r types.ClassificationResult) bool { return r.HasChatbot }) {
		for i := range out.Results {
			out.Results[i] = a.fallback.Apply(out.Results[i])
		}

		out.Summary.Fallback = true

		log.Debug().Int("urls", len(urls)).Msg("no chatbots in batch, applied keyword fallback")
	}

	out.Summary.Total = len(out.Results)
	out.Summary.Failed = lo.CountBy(out.Results, func(r types.ClassificationResult) bool { return r.Failed() })
	out.Summary.Succeeded = out.Summary.Total - out.Summary.Failed
	out.Summary.Chatbots = lo.CountBy(out.Results, func(r types.ClassificationResult) bool { return r.HasChatbot })

	log.Info().Int("total", out.Summary.Total).Int("failed", out.Summary.Failed).
		Int("chatbots", out.Summary.Chatbots).Msg("batch complete")

	return out
}

func (a *Analyzer) cancelRemaining(results []types.ClassificationResult, urls []string, from int, err error) {
	for i := from; i < len(urls); i++ {
		results[i] = failedResult(urls[i], canceledStatus, err, a.now())
	}
}

// CleanURLs trims blanks and drops empty entries, keeping order and duplicates
func CleanURLs(urls []string) []string {
	return lo.FilterMap(urls, func(u string, _ int) (string, bool) {
		u = strings.TrimSpace(u)
		return u, u != ""
	})
}
