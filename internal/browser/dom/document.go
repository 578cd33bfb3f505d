// browser/dom/document.go
package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrDocumentClosed is returned when listeners are installed on a closed document.
	ErrDocumentClosed = errors.New("document is closed")
	// ErrNilListener is returned when AddEventListener receives a nil function.
	ErrNilListener = errors.New("listener must not be nil")
)

// Document is a read-mostly view over a parsed host document.
// The only mutations it performs on the tree are the transient markers callers ask for.
type Document struct {
	root     *html.Node
	viewport Viewport

	mu        sync.Mutex
	listeners []registration
	nextID    ListenerID
	closed    bool
}

// NewDocument wraps an already parsed root node.
func NewDocument(root *html.Node) *Document {
	return &Document{root: root, viewport: NopViewport{}}
}

// Parse reads and parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString is a convenience for Parse(strings.NewReader(s)).
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *html.Node {
	if d.root == nil {
		return nil
	}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Body returns the <body> element, or nil if the document has none.
func (d *Document) Body() *html.Node {
	var body *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	return body
}

// Viewport returns the geometry provider for this document.
func (d *Document) Viewport() Viewport { return d.viewport }

// SetViewport replaces the geometry provider. A nil value restores the no-op viewport.
func (d *Document) SetViewport(v Viewport) {
	if v == nil {
		v = NopViewport{}
	}
	d.viewport = v
}

// CreateElement builds a detached element.
func (d *Document) CreateElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// AppendChild attaches child as the last child of parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
}

// Remove detaches n from its parent. It is a no-op for detached nodes.
func (d *Document) Remove(n *html.Node) {
	if n == nil || n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// OuterHTML renders the whole document element.
func (d *Document) OuterHTML() string {
	if el := d.DocumentElement(); el != nil {
		return OuterHTML(el)
	}
	return ""
}

// Close drops every listener and refuses new registrations.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.listeners = nil
}
