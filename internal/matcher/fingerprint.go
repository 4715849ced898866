package matcher

import (
	"net/http"
	"sort"
	"strings"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"
	"github.com/samber/lo"

	"github.com/theopenlane/detectify/internal/patterns"
)

// liveChatCategory is the wappalyzer category for chat widgets
const liveChatCategory = "Live chat"

// Fingerprinter names the live chat technologies present in a response
type Fingerprinter interface {
	Fingerprint(header http.Header, body []byte) []string
}

// WappalyzerFingerprinter fingerprints responses with the wappalyzer technology database
type WappalyzerFingerprinter struct {
	client *wappalyzer.Wappalyze
}

// NewWappalyzerFingerprinter loads the wappalyzer fingerprints
func NewWappalyzerFingerprinter() (*WappalyzerFingerprinter, error) {
	client, err := wappalyzer.New()
	if err != nil {
		return nil, err
	}

	return &WappalyzerFingerprinter{client: client}, nil
}

// Fingerprint returns the sorted names of live chat technologies
func (w *WappalyzerFingerprinter) Fingerprint(header http.Header, body []byte) []string {
	if header == nil {
		header = http.Header{}
	}

	var names []string

	for tech, info := range w.client.FingerprintWithInfo(header, body) {
		if lo.Contains(info.Categories, liveChatCategory) {
			names = append(names, tech)
		}
	}

	sort.Strings(names)

	return names
}

// resolveFingerprints maps technology names onto canonical vendor names. Names the library does
// not know are kept as reported
func resolveFingerprints(lib *patterns.Library, names []string) []string {
	return lo.Uniq(lo.Map(names, func(name string, _ int) string {
		// versioned detections are reported as name:version
		name, _, _ = strings.Cut(name, ":")

		if canonical, ok := lib.ResolveVendor(name); ok {
			return canonical
		}

		return name
	}))
}
