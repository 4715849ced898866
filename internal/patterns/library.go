package patterns

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Type classifies what a signature looks for
type Type string

const (
	// TypeScriptReference matches vendor script URLs
	TypeScriptReference Type = "script-reference"
	// TypeDOMElement matches chat container markup
	TypeDOMElement Type = "dom-element"
	// TypeMetaTag matches meta tags and configuration objects
	TypeMetaTag Type = "meta-tag"
	// TypeWebSocket matches websocket endpoints used for chat traffic
	TypeWebSocket Type = "websocket"
	// TypeDynamicLoad matches loader and initialization code
	TypeDynamicLoad Type = "dynamic-load"
	// TypeFalsePositive matches markup that commonly fools generic patterns
	TypeFalsePositive Type = "false-positive"
)

// GenericCategories lists the signal categories evaluated for the generic label, in report order
var GenericCategories = []Type{TypeDynamicLoad, TypeDOMElement, TypeMetaTag, TypeWebSocket}

// GenericLabels are catch-all solution names that yield to any specific vendor
var GenericLabels = []string{"Website Chatbot", "ChatBot", "Custom Chat"}

// IsGenericLabel reports whether label is one of the catch-all solution names
func IsGenericLabel(label string) bool {
	return lo.ContainsBy(GenericLabels, func(g string) bool {
		return strings.EqualFold(g, label)
	})
}

// Signature is one compiled pattern with its label and type
type Signature struct {
	// Label is the vendor name or the generic label
	Label string
	// Pattern is the compiled, case-insensitive expression
	Pattern *regexp.Regexp
	// Type is the signal category
	Type Type
	// Weight is the per-pattern confidence weight
	Weight float64
}

// Vendor groups every signature for one named chat provider
type Vendor struct {
	// Name is the canonical solution name reported to callers
	Name string
	// Aliases are alternative names, such as technology fingerprint names
	Aliases []string
	// Signatures holds the compiled patterns for this vendor
	Signatures []Signature
}

// Library is an immutable, compiled pattern set
type Library struct {
	// Version identifies the source of the library
	Version string
	// Vendors is ordered; ties in reports follow this order
	Vendors []Vendor
	// Generic holds the generic chat-widget signatures keyed by category
	Generic map[Type][]Signature
	// FalsePositiveDomains is the host deny-list
	FalsePositiveDomains []string
	// FalsePositiveContent holds markup patterns that indicate contact or support forms
	FalsePositiveContent []Signature
	// GenericRequiredHits is the number of generic categories needed to credit the generic label
	GenericRequiredHits int
	// GenericRaisedHits replaces GenericRequiredHits when false-positive content is present
	GenericRaisedHits int
	// FalsePositiveContentLimit is the content match count that raises the generic threshold
	FalsePositiveContentLimit int

	aliases map[string]string
}

// ResolveVendor maps a vendor name or alias to its canonical name
func (l *Library) ResolveVendor(name string) (string, bool) {
	canonical, ok := l.aliases[strings.ToLower(strings.TrimSpace(name))]

	return canonical, ok
}

// VendorNames returns the canonical vendor names in library order
func (l *Library) VendorNames() []string {
	return lo.Map(l.Vendors, func(v Vendor, _ int) string { return v.Name })
}

// SignatureCount returns the total number of compiled signatures
func (l *Library) SignatureCount() int {
	count := len(l.FalsePositiveContent)

	for _, v := range l.Vendors {
		count += len(v.Signatures)
	}

	for _, sigs := range l.Generic {
		count += len(sigs)
	}

	return count
}

// DenyListed reports whether host matches a false-positive domain. Entries containing a dot
// match the host exactly or as a parent domain; bare keywords match as a substring
func (l *Library) DenyListed(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}

	for _, entry := range l.FalsePositiveDomains {
		if !strings.Contains(entry, ".") {
			if strings.Contains(host, entry) {
				return true
			}

			continue
		}

		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}

	return false
}

// buildAliases indexes vendor names and aliases
func (l *Library) buildAliases() {
	l.aliases = make(map[string]string)

	for _, v := range l.Vendors {
		l.aliases[strings.ToLower(v.Name)] = v.Name

		for _, a := range v.Aliases {
			l.aliases[strings.ToLower(a)] = v.Name
		}
	}
}
