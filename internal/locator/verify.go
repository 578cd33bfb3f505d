// internal/locator/verify.go
package locator

import (
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
)

const (
	// HighlightClass is added to every node matched by the last verification.
	HighlightClass = "element-locator-highlight"
	// IndexAttribute carries the 1-based position of a marked match.
	IndexAttribute = "data-locator-index"
)

// Status summarises a verification outcome.
type Status string

const (
	StatusUnique    Status = "unique"
	StatusAmbiguous Status = "ambiguous"
	StatusNotFound  Status = "not-found"
)

// Result is the outcome of verifying one candidate. A syntax error yields a zero count with the
// parser's message in Error; Success stays true.
type Result struct {
	Candidate Candidate    `json:"locator"`
	Success   bool         `json:"success"`
	Count     int          `json:"count"`
	Nodes     []*html.Node `json:"-"`
	Error     string       `json:"error,omitempty"`
}

// Status classifies the match count.
func (r Result) Status() Status {
	switch {
	case r.Count == 1:
		return StatusUnique
	case r.Count > 1:
		return StatusAmbiguous
	default:
		return StatusNotFound
	}
}

// Engine resolves candidates against a document and keeps at most one set of visual marks.
type Engine struct {
	doc    *dom.Document
	logger *zap.Logger

	mu       sync.Mutex
	marked   []*html.Node
	queryErr error
}

// NewEngine creates a verification engine bound to doc.
func NewEngine(doc *dom.Document, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{doc: doc, logger: logger.Named("locator.verifier")}
}

// Verify clears the previous marks, resolves c and marks whatever it matched.
func (e *Engine) Verify(c Candidate) (res Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res.Candidate = c
	e.clearLocked()
	e.queryErr = nil

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Verification panicked.", zap.String("type", c.Type), zap.Any("panic", r))
			res = Result{Candidate: c, Error: "verification failed"}
		}
	}()

	nodes := elementsOnly(e.resolve(c))
	if len(nodes) > 0 {
		e.markLocked(nodes)
	}
	res.Success = true
	res.Count = len(nodes)
	res.Nodes = nodes
	if e.queryErr != nil {
		res.Error = e.queryErr.Error()
	}
	e.logger.Debug("Verified locator.",
		zap.String("type", c.Type),
		zap.String("value", c.Value),
		zap.Int("count", res.Count))
	return res
}

// VerifyAll verifies every candidate in order. Marks reflect only the last one.
func (e *Engine) VerifyAll(cs []Candidate) []Result {
	out := make([]Result, 0, len(cs))
	for _, c := range cs {
		out = append(out, e.Verify(c))
	}
	return out
}

func (e *Engine) resolve(c Candidate) []*html.Node {
	root := e.doc.Root()
	switch c.Kind() {
	case KindID:
		return queryByID(root, c.Value)
	case KindName:
		return queryByName(root, c.Value)
	case KindClassName:
		return queryByClass(root, c.Value)
	case KindTagName:
		return queryByTag(root, c.Value)
	case KindCSS:
		return e.css(c.Value)
	case KindXPath:
		return e.xpath(c.Value)
	case KindText:
		return e.xpath(textXPath(c.Value))
	case KindLinkText:
		return queryByLinkText(root, c.Value)
	case KindDataTestID:
		return queryByDataTestID(root, c.Value)
	}

	nodes, err := QueryXPath(root, c.Value)
	if err != nil {
		e.logger.Debug("Unrecognised locator is not valid XPath, trying CSS.", zap.String("type", c.Type), zap.Error(err))
		return e.css(c.Value)
	}
	if len(nodes) == 0 {
		return e.css(c.Value)
	}
	return nodes
}

func (e *Engine) xpath(expr string) []*html.Node {
	nodes, err := QueryXPath(e.doc.Root(), expr)
	if err != nil {
		e.logger.Debug("XPath query failed.", zap.String("expr", expr), zap.Error(err))
		e.queryErr = err
		return nil
	}
	return nodes
}

func (e *Engine) css(sel string) []*html.Node {
	nodes, err := QueryCSS(e.doc.Root(), sel)
	if err != nil {
		e.logger.Debug("CSS query failed.", zap.String("selector", sel), zap.Error(err))
		e.queryErr = err
		return nil
	}
	return nodes
}

func (e *Engine) markLocked(nodes []*html.Node) {
	scrolled := false
	for i, n := range nodes {
		if !dom.IsElement(n) {
			continue
		}
		dom.AddClass(n, HighlightClass)
		dom.SetAttr(n, IndexAttribute, strconv.Itoa(i+1))
		e.marked = append(e.marked, n)
		if !scrolled {
			e.doc.Viewport().ScrollIntoView(n)
			scrolled = true
		}
	}
}

// Clear removes every mark left by the last verification.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

func (e *Engine) clearLocked() {
	for _, n := range e.marked {
		dom.RemoveClass(n, HighlightClass)
		dom.RemoveAttr(n, IndexAttribute)
	}
	e.marked = nil
}

// Marked returns the nodes currently carrying marks.
func (e *Engine) Marked() []*html.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*html.Node, len(e.marked))
	copy(out, e.marked)
	return out
}
