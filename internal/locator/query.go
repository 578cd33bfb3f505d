// internal/locator/query.go
package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
)

var (
	// ErrNoMatch is returned by Resolve when an expression selects nothing.
	ErrNoMatch = errors.New("expression matched no element")
	// ErrAmbiguous is returned by Resolve when an expression selects more than one element.
	ErrAmbiguous = errors.New("expression matched more than one element")
)

// QueryXPath evaluates expr against root. Expressions that do not yield a node-set are
// rejected the way a browser rejects them for snapshot results.
func QueryXPath(root *html.Node, expr string) (nodes []*html.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			nodes, err = nil, fmt.Errorf("xpath evaluation of %q panicked: %v", expr, r)
		}
	}()
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	iter, ok := compiled.Evaluate(htmlquery.CreateXPathNavigator(root)).(*xpath.NodeIterator)
	if !ok {
		return nil, fmt.Errorf("xpath %q does not select nodes", expr)
	}
	seen := make(map[*html.Node]struct{})
	for iter.MoveNext() {
		nav, ok := iter.Current().(*htmlquery.NodeNavigator)
		if !ok {
			continue
		}
		n := nav.Current()
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// QueryCSS evaluates a selector group against root.
func QueryCSS(root *html.Node, sel string) (nodes []*html.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			nodes, err = nil, fmt.Errorf("css evaluation of %q panicked: %v", sel, r)
		}
	}()
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fmt.Errorf("invalid css selector %q: %w", sel, err)
	}
	return cascadia.QueryAll(root, group), nil
}

func queryByID(root *html.Node, id string) []*html.Node {
	if id == "" {
		return nil
	}
	var found *html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if dom.Attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return []*html.Node{found}
}

func queryByName(root *html.Node, name string) []*html.Node {
	return goquery.NewDocumentFromNode(root).
		Find("[name]").
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("name")
			return v == name
		}).Nodes
}

func queryByClass(root *html.Node, classes string) []*html.Node {
	tokens := strings.Fields(classes)
	if len(tokens) == 0 {
		return nil
	}
	var out []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if dom.HasClass(n, tokens...) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func queryByTag(root *html.Node, tag string) []*html.Node {
	tag = strings.ToLower(tag)
	var out []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if tag == "*" || dom.TagName(n) == tag {
			out = append(out, n)
		}
		return true
	})
	return out
}

func queryByLinkText(root *html.Node, text string) []*html.Node {
	return goquery.NewDocumentFromNode(root).
		Find("a").
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == text
		}).Nodes
}

func queryByDataTestID(root *html.Node, value string) []*html.Node {
	for _, attr := range DataTestAttributes {
		nodes, err := QueryCSS(root, fmt.Sprintf("[%s=%s]", attr, cssString(value)))
		if err == nil && len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}

// Resolve returns the single element selected by expr. Expressions starting with "/" or "("
// are treated as XPath, everything else as CSS.
func Resolve(doc *dom.Document, expr string) (*html.Node, error) {
	expr = strings.TrimSpace(expr)
	var (
		nodes []*html.Node
		err   error
	)
	if strings.HasPrefix(expr, "/") || strings.HasPrefix(expr, "(") {
		nodes, err = QueryXPath(doc.Root(), expr)
	} else {
		nodes, err = QueryCSS(doc.Root(), expr)
	}
	if err != nil {
		return nil, err
	}
	elements := elementsOnly(nodes)
	switch len(elements) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, expr)
	case 1:
		return elements[0], nil
	default:
		return nil, fmt.Errorf("%w (%d): %s", ErrAmbiguous, len(elements), expr)
	}
}

func elementsOnly(nodes []*html.Node) []*html.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if dom.IsElement(n) {
			out = append(out, n)
		}
	}
	return out
}
