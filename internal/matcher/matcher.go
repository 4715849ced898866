// Package matcher runs pattern libraries against fetched HTML and reports the evidence found
package matcher

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/theopenlane/detectify/internal/confidence"
	"github.com/theopenlane/detectify/internal/patterns"
	"github.com/theopenlane/detectify/internal/target"
	"github.com/theopenlane/detectify/internal/types"
)

// maxEvidenceMatch caps the matched text kept on each evidence item
const maxEvidenceMatch = 120

// Evidence is one pattern hit
type Evidence struct {
	// Type is the signal category of the signature that matched
	Type patterns.Type `json:"type"`
	// Label is the vendor name, or the generic label for generic signatures
	Label string `json:"label"`
	// Match is the matched text
	Match string `json:"match"`
	// Weight is the signature weight
	Weight float64 `json:"weight"`
}

// LibrarySource supplies the current pattern library
type LibrarySource interface {
	Library() *patterns.Library
}

// Options toggles the checks run for a stage
type Options struct {
	// SmartDetection enables chat-UI control checks
	SmartDetection bool
	// ProviderDetection enables provider confirmation and technology fingerprinting
	ProviderDetection bool
	// DeepVerification reports hints the page no longer confirms
	DeepVerification bool
	// FunctionalValidation checks that chat controls live inside a chat container
	FunctionalValidation bool
	// HiddenDetection looks for deferred, consent-gated, and noscript loaders
	HiddenDetection bool
	// Hints are vendor names carried from an earlier stage
	Hints []string
}

// GenericSignals records which generic categories fired
type GenericSignals struct {
	DynamicLoad bool `json:"dynamic_load"`
	DOM         bool `json:"dom"`
	Meta        bool `json:"meta"`
	WebSocket   bool `json:"websocket"`
}

// Count returns the number of categories that fired
func (g GenericSignals) Count() int {
	return lo.Count([]bool{g.DynamicLoad, g.DOM, g.Meta, g.WebSocket}, true)
}

// Controls records chat-UI markup found in the document
type Controls struct {
	Input  bool `json:"input"`
	Send   bool `json:"send"`
	Bubble bool `json:"bubble"`
}

// Analysis is the full matcher output for one document
type Analysis struct {
	// Evidence holds every pattern hit
	Evidence []Evidence
	// VendorHits counts hits per named vendor
	VendorHits map[string]int
	// Vendors are the credited named vendors, in library order followed by fingerprinted extras
	Vendors []string
	// Generic records the generic categories that fired
	Generic GenericSignals
	// GenericCredited is set when enough generic categories fired to credit the generic label
	GenericCredited bool
	// DenyListed is set when the host is on the false-positive domain list
	DenyListed bool
	// FalsePositiveContent is the number of false-positive content patterns that matched
	FalsePositiveContent int
	// FalsePositive is set when false-positive markup dominates and no named vendor was found
	FalsePositive bool
	// Controls holds the chat-UI checks
	Controls Controls
	// Interactive is set when chat controls sit inside a chat container
	Interactive bool
	// Hidden is set when a deferred, consent-gated, or noscript loader was found
	Hidden bool
	// HiddenVendors are vendors seen only inside hidden loaders
	HiddenVendors []string
	// Fingerprinted are live chat technologies reported by the fingerprinter
	Fingerprinted []string
	// ProviderConfirmed is set when provider detection confirmed a named vendor
	ProviderConfirmed bool
	// AdvancedSignal is set when a provider, fingerprint, or hidden loader signal fired
	AdvancedSignal bool
	// Confirmed are the hints this document confirms
	Confirmed []string
	// Unconfirmed are the hints this document does not confirm; only set under deep verification
	Unconfirmed []string
	// Title is the document title
	Title string
}

// Solutions returns the credited labels, with the generic label last
func (a Analysis) Solutions() []string {
	out := append([]string{}, a.Vendors...)

	if a.GenericCredited {
		out = append(out, types.GenericLabel)
	}

	return lo.Uniq(out)
}

// Signals converts the analysis into calculator inputs
func (a Analysis) Signals() confidence.Signals {
	kinds := lo.SliceToMap(a.Evidence, func(e Evidence) (patterns.Type, bool) { return e.Type, true })

	return confidence.Signals{
		NamedVendor:       len(a.Vendors) > 0,
		GenericVendor:     a.GenericCredited,
		ChatInput:         a.Controls.Input,
		SendButton:        a.Controls.Send,
		MessageBubble:     a.Controls.Bubble,
		InitCode:          kinds[patterns.TypeDynamicLoad],
		Config:            kinds[patterns.TypeMetaTag],
		DOM:               kinds[patterns.TypeDOMElement],
		WebSocket:         kinds[patterns.TypeWebSocket],
		Interactive:       a.Interactive,
		ProviderConfirmed: a.ProviderConfirmed,
	}
}

// Matcher evaluates documents against the library supplied by its source
type Matcher struct {
	source        LibrarySource
	fingerprinter Fingerprinter
}

// Option configures a Matcher
type Option func(*Matcher)

// WithFingerprinter enables technology fingerprinting during provider detection
func WithFingerprinter(f Fingerprinter) Option {
	return func(m *Matcher) {
		m.fingerprinter = f
	}
}

// New creates a matcher reading its library from source
func New(source LibrarySource, opts ...Option) *Matcher {
	m := &Matcher{source: source}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Library returns the library the next match will use
func (m *Matcher) Library() *patterns.Library {
	if m.source == nil {
		return patterns.Builtin()
	}

	if lib := m.source.Library(); lib != nil {
		return lib
	}

	return patterns.Builtin()
}

// Match returns every pattern hit for html. It has no side effects and returns the same
// evidence for the same inputs and library
func (m *Matcher) Match(html, pageURL string) []Evidence {
	lib := m.Library()

	if lib.DenyListed(hostOf(pageURL)) {
		return nil
	}

	return scan(lib, html)
}

// Analyze runs the checks enabled by opts and reports everything the stage needs to score
func (m *Matcher) Analyze(html, pageURL string, header http.Header, opts Options) Analysis {
	lib := m.Library()

	if lib.DenyListed(hostOf(pageURL)) {
		return Analysis{DenyListed: true, VendorHits: map[string]int{}}
	}

	a := Analysis{
		Evidence:   scan(lib, html),
		VendorHits: make(map[string]int),
	}

	scriptConfirmed := make(map[string]bool)

	for _, e := range a.Evidence {
		switch {
		case e.Type == patterns.TypeFalsePositive:
			a.FalsePositiveContent++
		case patterns.IsGenericLabel(e.Label):
			a.Generic.mark(e.Type)
		default:
			a.VendorHits[e.Label]++

			if e.Type == patterns.TypeScriptReference {
				scriptConfirmed[e.Label] = true
			}
		}
	}

	a.Vendors = lo.Filter(lib.VendorNames(), func(name string, _ int) bool {
		return a.VendorHits[name] >= 1
	})

	required := lib.GenericRequiredHits
	if a.FalsePositiveContent >= lib.FalsePositiveContentLimit {
		required = lib.GenericRaisedHits
	}

	a.GenericCredited = a.Generic.Count() >= required

	doc := parseDocument(html)
	if doc != nil {
		a.Title = title(doc)
	}

	if opts.SmartDetection && doc != nil {
		a.Controls = controls(doc)
	}

	if opts.FunctionalValidation && doc != nil {
		a.Interactive = interactive(doc)
	}

	if opts.HiddenDetection {
		a.Hidden, a.HiddenVendors = hidden(lib, html, doc)
		a.Vendors = lo.Union(a.Vendors, a.HiddenVendors)
	}

	if opts.ProviderDetection {
		if m.fingerprinter != nil {
			a.Fingerprinted = resolveFingerprints(lib, m.fingerprinter.Fingerprint(header, []byte(html)))
			a.Vendors = lo.Union(a.Vendors, a.Fingerprinted)
		}

		a.ProviderConfirmed = len(a.Fingerprinted) > 0 || lo.SomeBy(a.Vendors, func(name string) bool {
			return scriptConfirmed[name]
		})
	}

	a.FalsePositive = a.FalsePositiveContent >= lib.FalsePositiveContentLimit && len(a.Vendors) == 0
	a.AdvancedSignal = a.ProviderConfirmed || len(a.Fingerprinted) > 0 || a.Hidden

	a.Confirmed, a.Unconfirmed = checkHints(lib, opts.Hints, a.Solutions())
	if !opts.DeepVerification {
		a.Unconfirmed = nil
	}

	return a
}

func (g *GenericSignals) mark(t patterns.Type) {
	switch t {
	case patterns.TypeDynamicLoad:
		g.DynamicLoad = true
	case patterns.TypeDOMElement:
		g.DOM = true
	case patterns.TypeMetaTag:
		g.Meta = true
	case patterns.TypeWebSocket:
		g.WebSocket = true
	}
}

// scan tests every signature in library order
func scan(lib *patterns.Library, html string) []Evidence {
	var out []Evidence

	for _, v := range lib.Vendors {
		out = appendMatches(out, html, v.Signatures)
	}

	for _, cat := range patterns.GenericCategories {
		out = appendMatches(out, html, lib.Generic[cat])
	}

	return appendMatches(out, html, lib.FalsePositiveContent)
}

func appendMatches(out []Evidence, html string, sigs []patterns.Signature) []Evidence {
	for _, sig := range sigs {
		match := sig.Pattern.FindString(html)
		if match == "" {
			continue
		}

		if len(match) > maxEvidenceMatch {
			match = match[:maxEvidenceMatch]
		}

		out = append(out, Evidence{
			Type:   sig.Type,
			Label:  sig.Label,
			Match:  match,
			Weight: sig.Weight,
		})
	}

	return out
}

// checkHints splits hints into those present in solutions and those missing
func checkHints(lib *patterns.Library, hints, solutions []string) (confirmed, unconfirmed []string) {
	for _, hint := range lo.Uniq(hints) {
		name := strings.TrimSpace(hint)
		if name == "" {
			continue
		}

		if canonical, ok := lib.ResolveVendor(name); ok {
			name = canonical
		}

		found := lo.ContainsBy(solutions, func(s string) bool {
			return strings.EqualFold(s, name) || (patterns.IsGenericLabel(s) && patterns.IsGenericLabel(name))
		})

		if found {
			confirmed = append(confirmed, name)
		} else {
			unconfirmed = append(unconfirmed, name)
		}
	}

	return confirmed, unconfirmed
}

// hostOf extracts the lower-cased host from a URL, tolerating inputs without a scheme
func hostOf(pageURL string) string {
	if t, err := target.Normalize(pageURL); err == nil {
		return t.Host
	}

	if u, err := url.Parse(pageURL); err == nil {
		return strings.ToLower(u.Hostname())
	}

	return ""
}
