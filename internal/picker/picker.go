// internal/picker/picker.go
package picker

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
	"github.com/xkilldash9x/locator-cli/internal/locator"
)

var (
	// ErrNoDocument is returned by Start when the picker has no document to attach to.
	ErrNoDocument = errors.New("picker: document is not accessible")
	// ErrNoBody is returned by Start when the document has no <body>.
	ErrNoBody = errors.New("picker: document has no body")
)

// OverlayID is the id of the transient highlight element.
const OverlayID = "element-locator-overlay"

const overlayBaseStyle = "position: absolute; background: rgba(102, 126, 234, 0.3); " +
	"border: 2px solid #667eea; pointer-events: none; z-index: 2147483647; " +
	"transition: all 0.1s ease; box-shadow: 0 0 0 2px rgba(102, 126, 234, 0.2);"

// State is the picker's position in the selection lifecycle.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateHighlighting
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateHighlighting:
		return "highlighting"
	default:
		return "idle"
	}
}

// Callback receives the committed selection. It is invoked at most once per Start.
type Callback func(locator.ElementRecord)

// Picker lets an operator point at one node and commit to it.
type Picker struct {
	doc      *dom.Document
	logger   *zap.Logger
	snapshot locator.SnapshotOptions

	mu         sync.Mutex
	state      State
	overlay    *html.Node
	current    *html.Node
	listeners  []dom.ListenerID
	onSelected Callback

	bodyStyle    string
	hadBodyStyle bool
}

// Option configures a Picker.
type Option func(*Picker)

// WithSnapshotOptions controls how committed nodes are captured.
func WithSnapshotOptions(opts locator.SnapshotOptions) Option {
	return func(p *Picker) { p.snapshot = opts }
}

// New creates an idle picker bound to doc.
func New(doc *dom.Document, logger *zap.Logger, opts ...Option) *Picker {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Picker{doc: doc, logger: logger.Named("picker")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports the current lifecycle state.
func (p *Picker) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the node under the pointer, or nil.
func (p *Picker) Current() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Overlay returns the highlight element while armed.
func (p *Picker) Overlay() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlay
}

// Start arms the picker. Calling it while armed does nothing. Setup failures are returned
// as-is and leave the picker idle.
func (p *Picker) Start(onSelected Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return nil
	}
	if p.doc == nil {
		return ErrNoDocument
	}
	body := p.doc.Body()
	if body == nil {
		return ErrNoBody
	}

	p.overlay = p.doc.CreateElement("div")
	dom.SetAttr(p.overlay, "id", OverlayID)
	dom.SetAttr(p.overlay, "style", overlayBaseStyle)
	p.doc.AppendChild(body, p.overlay)

	handlers := []struct {
		typ dom.EventType
		fn  dom.Listener
	}{
		{dom.EventPointerOver, p.handlePointerOver},
		{dom.EventPointerOut, p.handlePointerOut},
		{dom.EventClick, p.handleClick},
	}
	for _, h := range handlers {
		id, err := p.doc.AddEventListener(h.typ, h.fn, true)
		if err != nil {
			p.teardownLocked()
			return fmt.Errorf("failed to install %s listener: %w", h.typ, err)
		}
		p.listeners = append(p.listeners, id)
	}

	p.bodyStyle = dom.Attr(body, "style")
	p.hadBodyStyle = dom.HasAttr(body, "style")
	dom.SetAttr(body, "style", withDeclaration(p.bodyStyle, "cursor: crosshair"))

	p.onSelected = onSelected
	p.state = StateArmed
	p.logger.Debug("Picker armed.")
	return nil
}

// Stop disarms the picker without invoking the callback. It is a no-op when idle.
func (p *Picker) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle {
		return
	}
	p.teardownLocked()
	p.logger.Debug("Picker stopped.")
}

func (p *Picker) handlePointerOver(ev *dom.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle {
		return
	}
	ev.StopPropagation()
	if ev.Target == nil || ev.Target == p.overlay {
		return
	}
	p.current = ev.Target
	p.state = StateHighlighting
	p.positionOverlayLocked(ev.Target)
}

func (p *Picker) handlePointerOut(ev *dom.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle {
		return
	}
	ev.StopPropagation()
}

func (p *Picker) handleClick(ev *dom.Event) {
	p.mu.Lock()
	if p.state == StateIdle {
		p.mu.Unlock()
		return
	}
	ev.PreventDefault()
	ev.StopPropagation()
	if ev.Target == nil || ev.Target == p.overlay || !dom.IsElement(ev.Target) {
		p.mu.Unlock()
		return
	}

	cb := p.onSelected
	// Teardown runs first so the overlay and cursor do not leak into the snapshot.
	p.teardownLocked()
	rec := locator.Snapshot(p.doc, ev.Target, p.snapshot)
	p.mu.Unlock()

	p.logger.Info("Element selected.",
		zap.String("tag", rec.TagName),
		zap.String("xpath", rec.XPath))
	if cb != nil {
		cb(rec)
	}
}

func (p *Picker) positionOverlayLocked(target *html.Node) {
	if p.overlay == nil {
		return
	}
	vp := p.doc.Viewport()
	sx, sy := vp.ScrollOffset()
	r := vp.BoundingRect(target).Translate(sx, sy)
	dom.SetAttr(p.overlay, "style", fmt.Sprintf("%s width: %gpx; height: %gpx; top: %gpx; left: %gpx;",
		overlayBaseStyle, r.Width, r.Height, r.Y, r.X))
}

func (p *Picker) teardownLocked() {
	for _, id := range p.listeners {
		p.doc.RemoveEventListener(id)
	}
	p.listeners = nil
	if p.overlay != nil {
		p.doc.Remove(p.overlay)
		p.overlay = nil
	}
	if p.state != StateIdle {
		if body := p.doc.Body(); body != nil {
			if p.hadBodyStyle {
				dom.SetAttr(body, "style", p.bodyStyle)
			} else {
				dom.RemoveAttr(body, "style")
			}
		}
	}
	p.current = nil
	p.onSelected = nil
	p.state = StateIdle
}

func withDeclaration(style, decl string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return decl
	}
	if !strings.HasSuffix(style, ";") {
		style += ";"
	}
	return style + " " + decl
}
