// browser/dom/viewport.go
package dom

import "golang.org/x/net/html"

// Rect is a screen rectangle in CSS pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Translate returns the rectangle shifted by dx, dy.
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Viewport supplies the geometry the host knows about. Parsed documents have no layout,
// so the default implementation reports zero rectangles.
type Viewport interface {
	// BoundingRect returns the node's client rectangle relative to the viewport.
	BoundingRect(n *html.Node) Rect
	// ScrollOffset returns the current horizontal and vertical page scroll.
	ScrollOffset() (x, y float64)
	// ScrollIntoView asks the host to bring n into view.
	ScrollIntoView(n *html.Node)
}

// NopViewport reports no geometry and ignores scroll requests.
type NopViewport struct{}

func (NopViewport) BoundingRect(*html.Node) Rect     { return Rect{} }
func (NopViewport) ScrollOffset() (float64, float64) { return 0, 0 }
func (NopViewport) ScrollIntoView(*html.Node)        {}

// StaticViewport serves fixed rectangles, mostly for tests and replayed sessions.
type StaticViewport struct {
	Rects            map[*html.Node]Rect
	ScrollX, ScrollY float64
	// Scrolled records every node passed to ScrollIntoView.
	Scrolled []*html.Node
}

func (s *StaticViewport) BoundingRect(n *html.Node) Rect   { return s.Rects[n] }
func (s *StaticViewport) ScrollOffset() (float64, float64) { return s.ScrollX, s.ScrollY }
func (s *StaticViewport) ScrollIntoView(n *html.Node)      { s.Scrolled = append(s.Scrolled, n) }
