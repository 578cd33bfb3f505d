// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
	"github.com/xkilldash9x/locator-cli/internal/locator"
)

// Page is a loaded tab together with the Document parsed from its rendered markup.
// It serves as the Document's Viewport: geometry is read from the live tab by resolving the
// node's structural path there.
type Page struct {
	url     string
	html    string
	doc     *dom.Document
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	logger  *zap.Logger

	onClose   func()
	closeOnce sync.Once
}

var _ dom.Viewport = (*Page)(nil)

// URL returns the address the page was loaded from.
func (p *Page) URL() string { return p.url }

// HTML returns the rendered outer markup captured after load.
func (p *Page) HTML() string { return p.html }

// Document returns the parsed document.
func (p *Page) Document() *dom.Document { return p.doc }

// Close closes the tab and the document. Safe to call more than once.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.doc.Close()
		p.cancel()
		if p.onClose != nil {
			p.onClose()
		}
	})
}

type clientRect struct {
	Found  bool    `json:"found"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

const rectScript = `(() => {
	const el = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el || !el.getBoundingClientRect) return {found: false};
	const r = el.getBoundingClientRect();
	return {found: true, x: r.left, y: r.top, width: r.width, height: r.height};
})()`

const scrollIntoViewScript = `(() => {
	const el = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el || !el.scrollIntoView) return false;
	el.scrollIntoView({behavior: "auto", block: "center", inline: "center"});
	return true;
})()`

// BoundingRect reads the live client rectangle of n. Nodes that cannot be resolved in the tab
// report a zero rectangle.
func (p *Page) BoundingRect(n *html.Node) dom.Rect {
	script, ok := p.script(rectScript, n)
	if !ok {
		return dom.Rect{}
	}
	var r clientRect
	if err := p.evaluate(script, &r); err != nil || !r.Found {
		return dom.Rect{}
	}
	return dom.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// ScrollOffset reads window.scrollX and window.scrollY.
func (p *Page) ScrollOffset() (float64, float64) {
	var offset []float64
	if err := p.evaluate(`[window.scrollX, window.scrollY]`, &offset); err != nil || len(offset) != 2 {
		return 0, 0
	}
	return offset[0], offset[1]
}

// ScrollIntoView centres n in the tab's viewport.
func (p *Page) ScrollIntoView(n *html.Node) {
	script, ok := p.script(scrollIntoViewScript, n)
	if !ok {
		return
	}
	var scrolled bool
	if err := p.evaluate(script, &scrolled); err == nil && !scrolled {
		p.logger.Debug("Element not found in live page for scrolling.", zap.String("path", locator.EncodePath(n)))
	}
}

func (p *Page) script(format string, n *html.Node) (string, bool) {
	path := locator.EncodePath(n)
	if path == "" {
		return "", false
	}
	literal, err := json.MarshalToString(path)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf(format, literal), true
}

func (p *Page) evaluate(script string, res interface{}) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, res)); err != nil {
		p.logger.Debug("Live page evaluation failed.", zap.Error(err))
		return err
	}
	return nil
}
