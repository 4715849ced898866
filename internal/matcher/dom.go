package matcher

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/theopenlane/detectify/internal/patterns"
)

var (
	chatContainerRe = regexp.MustCompile(`(?i)chat|messenger|conversation|support-?widget|helpdesk-?widget`)
	chatInputRe     = regexp.MustCompile(`(?i)chat|type (a |your )?message|write (a |your )?(message|reply)|ask (me|us) (anything|a question)|how can (we|i) help`)
	sendLabelRe     = regexp.MustCompile(`(?i)\bsend\b|submit`)
	chatSendRe      = regexp.MustCompile(`(?i)chat[-_ ]?(send|submit)|send[-_ ]?chat`)
	bubbleRe        = regexp.MustCompile(`(?i)(message|msg|chat|launcher)[-_]?bubble|chat[-_]?message|bot[-_]?message`)
	deferredLoadRe  = regexp.MustCompile(`(?i)(setTimeout|requestIdleCallback|addEventListener\(\s*['"](load|scroll|mousemove|touchstart|DOMContentLoaded)['"])[^<]{0,400}?(chat|messenger|widget)`)
)

// parseDocument parses html for DOM checks, returning nil when it cannot be parsed
func parseDocument(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Debug().Err(err).Msg("unable to parse document")
		return nil
	}

	return doc
}

func title(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// attrText joins the attributes and text that describe an element
func attrText(s *goquery.Selection, attrs ...string) string {
	parts := make([]string, 0, len(attrs)+1)

	for _, a := range attrs {
		if v, ok := s.Attr(a); ok {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, " ")
}

func isChatContainer(s *goquery.Selection) bool {
	return chatContainerRe.MatchString(attrText(s, "id", "class", "aria-label", "data-testid"))
}

func insideChat(s *goquery.Selection) bool {
	return s.Parents().FilterFunction(func(_ int, p *goquery.Selection) bool {
		return isChatContainer(p)
	}).Length() > 0
}

// controls looks for chat input, send, and message bubble markup
func controls(doc *goquery.Document) Controls {
	var c Controls

	doc.Find(`input, textarea, [contenteditable="true"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if chatInputRe.MatchString(attrText(s, "placeholder", "aria-label", "name", "id", "class")) {
			c.Input = true
		}

		return !c.Input
	})

	doc.Find(`button, input[type="submit"], input[type="button"], [role="button"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label := attrText(s, "aria-label", "title", "value", "id", "class") + " " + strings.TrimSpace(s.Text())

		if chatSendRe.MatchString(label) || (sendLabelRe.MatchString(label) && insideChat(s)) {
			c.Send = true
		}

		return !c.Send
	})

	doc.Find("[class], [id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if bubbleRe.MatchString(attrText(s, "id", "class")) {
			c.Bubble = true
		}

		return !c.Bubble
	})

	return c
}

// interactive reports whether a chat container holds both an input and a button
func interactive(doc *goquery.Document) bool {
	found := false

	doc.Find("div, section, aside, form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !isChatContainer(s) {
			return true
		}

		hasInput := s.Find(`input:not([type="hidden"]), textarea, [contenteditable="true"]`).Length() > 0
		hasButton := s.Find(`button, [role="button"], input[type="submit"]`).Length() > 0
		found = hasInput && hasButton

		return !found
	})

	return found
}

// hidden looks for chat loaders that only run after consent, interaction, or a delay. Vendors
// whose script references appear inside such loaders are returned
func hidden(lib *patterns.Library, html string, doc *goquery.Document) (bool, []string) {
	found := deferredLoadRe.MatchString(html)

	var blocks []string

	if doc != nil {
		doc.Find(`script[type="text/plain"], script[data-src], script[data-cookieconsent], noscript, template`).Each(func(_ int, s *goquery.Selection) {
			content, _ := s.Html()
			blocks = append(blocks, attrText(s, "src", "data-src")+" "+content)
		})
	}

	var vendors []string

	for _, block := range blocks {
		for _, v := range lib.Vendors {
			if lo.SomeBy(v.Signatures, func(sig patterns.Signature) bool {
				return sig.Type == patterns.TypeScriptReference && sig.Pattern.MatchString(block)
			}) {
				vendors = append(vendors, v.Name)
			}
		}

		if lo.SomeBy(lib.Generic[patterns.TypeDynamicLoad], func(sig patterns.Signature) bool {
			return sig.Pattern.MatchString(block)
		}) {
			found = true
		}
	}

	vendors = lo.Uniq(vendors)

	return found || len(vendors) > 0, vendors
}
