// Filename: browser/manager_test.go
package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/locator-cli/internal/browser"
	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/locator"
)

const testPage = `<!DOCTYPE html>
<html><head><title>fixture</title></head>
<body style="margin: 0">
  <div style="height: 2000px">
    <button id="go" style="position: absolute; left: 10px; top: 20px; width: 80px; height: 30px">Go</button>
  </div>
  <a href="/next" style="display: block; margin-top: 1500px">Next page</a>
  <script>document.body.setAttribute("data-ready", "yes");</script>
</body></html>`

// requireChrome skips the test unless a Chrome or Chromium binary is on PATH.
func requireChrome(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome binary found on PATH")
}

func newFixture(t *testing.T) (*browser.Manager, *httptest.Server) {
	t.Helper()
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, testPage)
	}))
	t.Cleanup(srv.Close)

	cfg := config.NewDefaultConfig().Browser()
	cfg.PostLoadWait = 0
	m := browser.NewManager(cfg, zaptest.NewLogger(t))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		assert.NoError(t, m.Shutdown(ctx))
	})
	return m, srv
}

func TestLoadParsesRenderedPage(t *testing.T) {
	m, srv := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	page, err := m.Load(ctx, srv.URL)
	require.NoError(t, err)
	defer page.Close()

	assert.Equal(t, srv.URL, page.URL())
	assert.Contains(t, page.HTML(), `data-ready="yes"`, "scripts have run before capture")

	doc := page.Document()
	button := htmlquery.FindOne(doc.Root(), "//button")
	require.NotNil(t, button)

	rect := doc.Viewport().BoundingRect(button)
	assert.InDelta(t, 80, rect.Width, 0.5)
	assert.InDelta(t, 30, rect.Height, 0.5)
	assert.InDelta(t, 10, rect.X, 0.5)

	x, y := doc.Viewport().ScrollOffset()
	assert.Zero(t, x)
	assert.Zero(t, y)

	link := htmlquery.FindOne(doc.Root(), "//a")
	require.NotNil(t, link)
	doc.Viewport().ScrollIntoView(link)
	_, y = doc.Viewport().ScrollOffset()
	assert.Positive(t, y, "scrolling into view moves the page")
}

func TestLoadFeedsGenerator(t *testing.T) {
	m, srv := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	page, err := m.Load(ctx, srv.URL)
	require.NoError(t, err)
	defer page.Close()

	doc := page.Document()
	button := htmlquery.FindOne(doc.Root(), "//button")
	rec := locator.Snapshot(doc, button, locator.SnapshotOptions{})
	assert.Equal(t, `//*[@id="go"]`, rec.XPath)
	assert.Equal(t, "button#go", rec.CSSSelector)
	assert.Equal(t, "Go", rec.Text)
	assert.Contains(t, rec.FullPageHTML, `<button id="go"`)
}

func TestLoadAfterShutdown(t *testing.T) {
	m := browser.NewManager(config.BrowserConfig{Timeout: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, m.Shutdown(context.Background()), "shutdown before launch is a no-op")
	require.NoError(t, m.Shutdown(context.Background()), "shutdown is idempotent")

	_, err := m.Load(context.Background(), "about:blank")
	assert.ErrorIs(t, err, browser.ErrShutdown)
}

func TestLoadHonoursCancellation(t *testing.T) {
	m, srv := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Load(ctx, srv.URL)
	assert.Error(t, err)
}
