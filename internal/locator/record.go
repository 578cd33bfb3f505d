// internal/locator/record.go
package locator

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
)

const (
	// DefaultMaxPageHTML caps the full page HTML carried in a record.
	DefaultMaxPageHTML = 500000
	// TruncationMarker is appended when the page HTML was cut.
	TruncationMarker = "\n\n<!-- NOTE: page HTML exceeded 500KB and was truncated -->"

	maxAggregateText = 100
)

// ElementRecord is an immutable snapshot of one selected node.
type ElementRecord struct {
	TagName      string            `json:"tagName"`
	Text         string            `json:"text"`
	Attributes   map[string]string `json:"attributes"`
	XPath        string            `json:"xpath"`
	CSSSelector  string            `json:"cssSelector"`
	OuterHTML    string            `json:"outerHTML"`
	InnerHTML    string            `json:"innerHTML"`
	FullPageHTML string            `json:"fullPageHTML"`
}

// Attr returns an attribute value from the snapshot.
func (r ElementRecord) Attr(key string) string {
	return r.Attributes[key]
}

// SnapshotOptions tunes Snapshot.
type SnapshotOptions struct {
	// MaxPageHTML overrides DefaultMaxPageHTML when positive.
	MaxPageHTML int
}

// Snapshot captures n and its document into an ElementRecord.
func Snapshot(doc *dom.Document, n *html.Node, opts SnapshotOptions) ElementRecord {
	limit := opts.MaxPageHTML
	if limit <= 0 {
		limit = DefaultMaxPageHTML
	}
	rec := ElementRecord{
		TagName:     dom.TagName(n),
		Text:        VisibleText(n),
		Attributes:  dom.Attributes(n),
		XPath:       EncodePath(n),
		CSSSelector: EncodeSelector(n),
		OuterHTML:   dom.OuterHTML(n),
		InnerHTML:   dom.InnerHTML(n),
	}
	if doc != nil {
		rec.FullPageHTML = truncatePage(doc.OuterHTML(), limit)
	}
	return rec
}

// VisibleText returns the trimmed direct text of n. When n has none, the first hundred
// characters of its trimmed aggregate text are used instead.
func VisibleText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if text := strings.TrimSpace(dom.DirectText(n)); text != "" {
		return text
	}
	return prefixRunes(strings.TrimSpace(dom.TextContent(n)), maxAggregateText)
}

func truncatePage(page string, limit int) string {
	if utf8.RuneCountInString(page) <= limit {
		return page
	}
	return prefixRunes(page, limit) + TruncationMarker
}

func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
