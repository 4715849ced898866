// Package heuristic is the low-confidence keyword fallback used when a batch finds no chatbots
package heuristic

import (
	"context"
	"fmt"
	"strings"
	"time"

	ac "github.com/anknown/ahocorasick"
	"github.com/samber/lo"

	"github.com/theopenlane/detectify/internal/confidence"
	"github.com/theopenlane/detectify/internal/patterns"
	"github.com/theopenlane/detectify/internal/target"
	"github.com/theopenlane/detectify/internal/types"
)

const (
	// Status labels results produced by the fallback
	Status = "Chatbot detected (keyword match)"
	// KeywordConfidence is assigned to keyword matches
	KeywordConfidence = 0.25
	// SpecialtyConfidence is assigned to dental specialty domains
	SpecialtyConfidence = 0.3
)

// DefaultKeywords are matched against the URL and page title
var DefaultKeywords = []string{"chat", "support", "help", "contact", "message", "livechat"}

// DefaultSpecialtyTerms identify dental specialty practices, which commonly run chat widgets
var DefaultSpecialtyTerms = []string{"orthodont", "endodont", "periodont", "oral surgery", "oralsurgery", "oral-surgery", "pediatric dent", "pediatricdent", "kids dent", "kidsdent"}

// LibrarySource supplies the deny-list
type LibrarySource interface {
	Library() *patterns.Library
}

// Match describes why the fallback flagged a target
type Match struct {
	// Terms are the distinct terms found
	Terms []string
	// Specialty is set when a specialty term matched
	Specialty bool
	// Confidence is the fixed confidence for the match kind
	Confidence float64
}

// Detector flags likely chatbots from URL and title keywords
type Detector struct {
	source    LibrarySource
	machine   *ac.Machine
	specialty map[string]bool
	now       func() time.Time
}

// Option configures a Detector
type Option func(*config)

type config struct {
	keywords  []string
	specialty []string
	now       func() time.Time
}

// WithKeywords replaces the keyword list
func WithKeywords(keywords []string) Option {
	return func(c *config) {
		if len(keywords) > 0 {
			c.keywords = keywords
		}
	}
}

// WithSpecialtyTerms replaces the specialty term list
func WithSpecialtyTerms(terms []string) Option {
	return func(c *config) {
		c.specialty = terms
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// New builds the keyword automaton. A nil source uses the built-in deny-list
func New(source LibrarySource, opts ...Option) (*Detector, error) {
	cfg := config{
		keywords:  DefaultKeywords,
		specialty: DefaultSpecialtyTerms,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	normalize := func(terms []string) []string {
		return lo.Uniq(lo.Compact(lo.Map(terms, func(t string, _ int) string {
			return strings.ToLower(strings.TrimSpace(t))
		})))
	}

	keywords := normalize(cfg.keywords)
	specialty := normalize(cfg.specialty)

	all := lo.Union(keywords, specialty)
	if len(all) == 0 {
		return nil, ErrNoKeywords
	}

	dict := lo.Map(all, func(t string, _ int) []rune { return []rune(t) })

	machine := new(ac.Machine)
	if err := machine.Build(dict); err != nil {
		return nil, fmt.Errorf("building keyword automaton: %w", err)
	}

	return &Detector{
		source:    source,
		machine:   machine,
		specialty: lo.SliceToMap(specialty, func(t string) (string, bool) { return t, true }),
		now:       cfg.now,
	}, nil
}

func (d *Detector) library() *patterns.Library {
	if d.source != nil {
		if lib := d.source.Library(); lib != nil {
			return lib
		}
	}

	return patterns.Builtin()
}

// Match searches the URL and title for keywords. Deny-listed hosts never match
func (d *Detector) Match(rawURL, title string) (Match, bool) {
	host := ""
	text := strings.ToLower(rawURL)

	if t, err := target.Normalize(rawURL); err == nil {
		host = t.Host
		text = strings.ToLower(t.URL)
	}

	if host != "" && d.library().DenyListed(host) {
		return Match{}, false
	}

	text = strings.NewReplacer("-", " ", "_", " ").Replace(text) + " " + strings.ToLower(title)

	terms := d.machine.MultiPatternSearch([]rune(text), false)
	if len(terms) == 0 {
		return Match{}, false
	}

	words := lo.Uniq(lo.Map(terms, func(t *ac.Term, _ int) string { return string(t.Word) }))

	m := Match{
		Terms:      words,
		Specialty:  lo.SomeBy(words, func(w string) bool { return d.specialty[w] }),
		Confidence: KeywordConfidence,
	}

	if m.Specialty {
		m.Confidence = SpecialtyConfidence
	}

	return m, true
}

// Detect applies the fallback to a URL alone. It never returns an error; a URL without keywords
// yields a negative result
func (d *Detector) Detect(_ context.Context, rawURL string, _ ...string) types.ClassificationResult {
	return d.Apply(types.ClassificationResult{URL: rawURL, Status: types.StatusCompleted})
}

// Apply upgrades a negative, error-free result when its URL or title matches. Other results are
// returned unchanged
func (d *Detector) Apply(res types.ClassificationResult) types.ClassificationResult {
	if res.HasChatbot || res.Failed() {
		return res
	}

	title := ""
	if res.Diagnostics != nil {
		title = res.Diagnostics.Title
	}

	m, ok := d.Match(res.URL, title)
	if !ok {
		res.Normalize()
		return res
	}

	res.HasChatbot = true
	res.ChatbotSolutions = []string{types.GenericLabel}
	res.Confidence = m.Confidence
	res.ConfidenceLevel = confidence.Level(m.Confidence)
	res.VerificationStatus = types.VerificationLikely
	res.Status = Status
	res.LastChecked = d.now().UTC()

	res.Normalize()

	return res
}
