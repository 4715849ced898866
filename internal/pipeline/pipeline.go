// Package pipeline runs the staged chatbot detection state machine
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/theopenlane/detectify/internal/confidence"
	"github.com/theopenlane/detectify/internal/fetcher"
	"github.com/theopenlane/detectify/internal/matcher"
	"github.com/theopenlane/detectify/internal/patterns"
	"github.com/theopenlane/detectify/internal/target"
	"github.com/theopenlane/detectify/internal/types"
)

// Fetcher retrieves pages for the pipeline
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts ...fetcher.CallOption) (*fetcher.Page, error)
}

// Renderer returns the HTML of a page after scripts have run
type Renderer interface {
	RenderHTML(ctx context.Context, url string) (string, error)
}

// PatternSource supplies and refreshes the pattern library
type PatternSource interface {
	Library() *patterns.Library
	EnsureFresh(ctx context.Context) error
}

// Pipeline runs each detection through its stages
type Pipeline struct {
	fetcher    Fetcher
	source     PatternSource
	matcher    *matcher.Matcher
	renderer   Renderer
	stages     []Stage
	finalizeAt float64
	now        func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithStages replaces the stage table. Only the first MaxStages stages are used
func WithStages(stages []Stage) Option {
	return func(p *Pipeline) {
		if len(stages) > 0 {
			p.stages = stages
		}
	}
}

// WithRenderer enables rendering for stages that request it
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// WithFingerprinter enables technology fingerprinting during provider detection
func WithFingerprinter(f matcher.Fingerprinter) Option {
	return func(p *Pipeline) {
		p.matcher = matcher.New(p.source, matcher.WithFingerprinter(f))
	}
}

// WithFinalizeThreshold sets the confidence at which any stage finalizes
func WithFinalizeThreshold(threshold float64) Option {
	return func(p *Pipeline) {
		if threshold > 0 {
			p.finalizeAt = threshold
		}
	}
}

// WithClock overrides the time source used for LastChecked
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline. A nil source uses the built-in library
func New(f Fetcher, source PatternSource, opts ...Option) (*Pipeline, error) {
	if f == nil {
		return nil, ErrNoFetcher
	}

	if source == nil {
		source = patterns.NewStore(patterns.WithLibrary(patterns.Builtin()))
	}

	p := &Pipeline{
		fetcher:    f,
		source:     source,
		matcher:    matcher.New(source),
		stages:     DefaultStages(),
		finalizeAt: DefaultFinalizeThreshold,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if len(p.stages) > MaxStages {
		p.stages = p.stages[:MaxStages]
	}

	return p, nil
}

// Stages returns the stage table in run order
func (p *Pipeline) Stages() []Stage {
	return append([]Stage{}, p.stages...)
}

// MaxFetches returns the worst-case number of HTTP calls for one detection given the fetcher's
// attempt budget for retrying stages
func (p *Pipeline) MaxFetches(fetchAttempts int) int {
	total := 0

	for _, s := range p.stages {
		if s.Retries {
			total += fetchAttempts
		} else {
			total++
		}
	}

	return total
}

// stageOutcome is what one stage observed
type stageOutcome struct {
	page     *fetcher.Page
	analysis matcher.Analysis
}

// Detect classifies rawURL. It never returns an error: failures are reported in the result
func (p *Pipeline) Detect(ctx context.Context, rawURL string, hints ...string) types.ClassificationResult {
	t, err := target.Normalize(rawURL)
	if err != nil {
		return p.inputError(rawURL, err)
	}

	if err := p.source.EnsureFresh(ctx); err != nil {
		log.Warn().Err(err).Msg("pattern library refresh failed, using previous library")
	}

	if p.source.Library().DenyListed(t.Host) {
		log.Debug().Str("url", t.URL).Msg("deny listed host, skipping fetch")

		return p.denyListed(t.URL, nil)
	}

	diag := &types.Diagnostics{FinalURL: t.URL}
	seeds := canonicalHints(p.source.Library(), hints)

	// carried holds labels observed by earlier stages; seeds are only verified, never reported
	var carried []string

	for i, stage := range p.stages {
		start := p.now()

		out, err := p.runStage(ctx, t, stage, lo.Union(seeds, carried))

		report := types.StageReport{
			Stage:      stage.Name,
			Threshold:  stage.Threshold,
			DurationMS: p.now().Sub(start).Milliseconds(),
		}

		if out.page != nil {
			diag.Attempts += out.page.Attempts
			diag.FinalURL = out.page.FinalURL
		}

		if err != nil {
			report.Error = err.Error()
			diag.Stages = append(diag.Stages, report)

			return p.stageError(t.URL, stage, err, diag)
		}

		a := out.analysis
		if a.Title != "" {
			diag.Title = a.Title
		}

		if a.DenyListed {
			diag.Stages = append(diag.Stages, report)

			return p.denyListed(t.URL, diag)
		}

		score := confidence.Calculate(a.Signals())

		if stage.Matcher.DeepVerification && len(a.Unconfirmed) > 0 {
			carried = lo.Reject(carried, func(s string, _ int) bool {
				return lo.ContainsBy(a.Unconfirmed, func(u string) bool { return strings.EqualFold(s, u) })
			})
		}

		carried = lo.Union(carried, a.Solutions())

		proceed := score.Value >= stage.Threshold || a.AdvancedSignal

		report.Confidence = score.Value
		report.Points = score.Points
		report.Proceed = proceed
		report.AdvancedSignal = a.AdvancedSignal
		report.Vendors = a.Solutions()
		report.Patterns = evidenceLabels(a.Evidence)
		diag.Stages = append(diag.Stages, report)

		log.Debug().Str("url", t.URL).Str("stage", stage.Name).Float64("confidence", score.Value).
			Bool("proceed", proceed).Strs("solutions", carried).Msg("stage complete")

		if !proceed {
			return p.negative(t.URL, score, diag)
		}

		if score.Value >= p.finalizeAt || i == len(p.stages)-1 {
			return p.finalize(t.URL, carried, score, a.FalsePositive, diag)
		}
	}

	// an empty stage table never analyzes anything
	return p.negative(t.URL, confidence.Score{Level: types.ConfidenceNone}, diag)
}

// runStage fetches and analyzes the target for one stage, converting panics into errors
func (p *Pipeline) runStage(ctx context.Context, t *target.Target, stage Stage, hints []string) (out stageOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("url", t.URL).Str("stage", stage.Name).Interface("panic", r).Msg("stage panicked")

			err = fmt.Errorf("%w: %v", ErrStagePanic, r)
		}
	}()

	opts := []fetcher.CallOption{fetcher.WithAttemptTimeout(stage.Timeout)}
	if !stage.Retries {
		opts = append(opts, fetcher.WithAttempts(1))
	}

	page, err := p.fetcher.Fetch(ctx, t.URL, opts...)
	if err != nil {
		return out, err
	}

	out.page = page

	html := page.HTML

	if stage.Render && p.renderer != nil {
		renderCtx, cancel := context.WithTimeout(ctx, stage.Timeout)
		rendered, rerr := p.renderer.RenderHTML(renderCtx, page.FinalURL)

		cancel()

		switch {
		case rerr != nil:
			log.Warn().Err(rerr).Str("url", t.URL).Msg("render failed, using fetched html")
		case strings.TrimSpace(rendered) != "":
			html = rendered
		}
	}

	mopts := stage.Matcher
	mopts.Hints = hints

	out.analysis = p.matcher.Analyze(html, page.FinalURL, page.Header, mopts)

	return out, nil
}

// finalize builds the positive (or empty final-stage) result
func (p *Pipeline) finalize(url string, solutions []string, score confidence.Score, falsePositive bool, diag *types.Diagnostics) types.ClassificationResult {
	refined := RefineSolutions(solutions)
	if len(refined) == 0 && score.Value >= p.finalizeAt {
		refined = []string{types.GenericLabel}
	}

	if len(refined) == 0 {
		return p.negative(url, score, diag)
	}

	res := types.ClassificationResult{
		URL:                url,
		ChatbotSolutions:   refined,
		Confidence:         score.Value,
		ConfidenceLevel:    score.Level,
		VerificationStatus: confidence.Verification(score.Value, falsePositive, false),
		Status:             types.StatusCompleted,
		LastChecked:        p.now().UTC(),
		Diagnostics:        diag,
	}

	res.Normalize()

	return res
}

// negative builds a no-chatbot result that still reports the measured confidence
func (p *Pipeline) negative(url string, score confidence.Score, diag *types.Diagnostics) types.ClassificationResult {
	res := types.ClassificationResult{
		URL:                url,
		ChatbotSolutions:   []string{},
		Confidence:         score.Value,
		ConfidenceLevel:    score.Level,
		VerificationStatus: types.VerificationVerified,
		Status:             types.StatusCompleted,
		LastChecked:        p.now().UTC(),
		Diagnostics:        diag,
	}

	res.Normalize()

	return res
}

func (p *Pipeline) denyListed(url string, diag *types.Diagnostics) types.ClassificationResult {
	return p.negative(url, confidence.Score{Level: types.ConfidenceNone}, diag)
}

// stageError degrades a failed stage into a negative result carrying the error
func (p *Pipeline) stageError(url string, stage Stage, err error, diag *types.Diagnostics) types.ClassificationResult {
	diag.Transient = fetcher.IsTransient(err)

	var fe *fetcher.Error
	if errors.As(err, &fe) && fe.Attempts > 0 && diag.Attempts == 0 {
		diag.Attempts = fe.Attempts
	}

	log.Info().Err(err).Str("url", url).Str("stage", stage.Name).Bool("transient", diag.Transient).Msg("stage failed")

	res := types.ClassificationResult{
		URL:                url,
		ChatbotSolutions:   []string{},
		VerificationStatus: types.VerificationFailed,
		Status:             fmt.Sprintf("Error in %s stage", stage.Name),
		Error:              err.Error(),
		LastChecked:        p.now().UTC(),
		Diagnostics:        diag,
	}

	res.Normalize()

	return res
}

// inputError reports a URL that could not be normalized
func (p *Pipeline) inputError(rawURL string, err error) types.ClassificationResult {
	status := "Error: Invalid URL"
	if errors.Is(err, target.ErrEmptyURL) {
		status = "Error: Empty URL"
	}

	res := types.ClassificationResult{
		URL:                strings.TrimSpace(rawURL),
		ChatbotSolutions:   []string{},
		VerificationStatus: types.VerificationFailed,
		Status:             status,
		Error:              err.Error(),
		LastChecked:        p.now().UTC(),
	}

	res.Normalize()

	return res
}

// RefineSolutions deduplicates labels and drops generic labels when a specific vendor is present
func RefineSolutions(solutions []string) []string {
	cleaned := lo.Uniq(lo.Compact(lo.Map(solutions, func(s string, _ int) string {
		return strings.TrimSpace(s)
	})))

	if lo.SomeBy(cleaned, func(s string) bool { return !patterns.IsGenericLabel(s) }) {
		cleaned = lo.Reject(cleaned, func(s string, _ int) bool { return patterns.IsGenericLabel(s) })
	}

	return cleaned
}

// canonicalHints maps hints onto canonical vendor names where the library knows them
func canonicalHints(lib *patterns.Library, hints []string) []string {
	return lo.Uniq(lo.Compact(lo.Map(hints, func(h string, _ int) string {
		h = strings.TrimSpace(h)
		if canonical, ok := lib.ResolveVendor(h); ok {
			return canonical
		}

		return h
	})))
}

func evidenceLabels(evidence []matcher.Evidence) []string {
	return lo.Uniq(lo.Map(evidence, func(e matcher.Evidence, _ int) string {
		return fmt.Sprintf("%s:%s", e.Label, e.Type)
	}))
}
