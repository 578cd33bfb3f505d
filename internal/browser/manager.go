// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
	"github.com/xkilldash9x/locator-cli/internal/config"
)

// ErrShutdown is returned by Load once the manager has been shut down.
var ErrShutdown = errors.New("browser manager is shut down")

const (
	defaultTimeout      = 30 * time.Second
	shutdownGracePeriod = 15 * time.Second
)

// Manager owns one Chrome process and hands out a tab per loaded page.
// The process is started lazily on the first Load.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	pages  map[*Page]struct{}
	closed bool
	mu     sync.Mutex

	// Initialization state management
	initOnce sync.Once
	initErr  error
}

// NewManager creates a browser manager. Initialization is deferred until the first page is requested.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	m := &Manager{
		cfg:    cfg,
		logger: logger.Named("browser"),
		pages:  make(map[*Page]struct{}),
	}
	m.logger.Debug("Browser manager created (initialization deferred).")
	return m
}

// launchFlag is one Chrome command-line switch.
type launchFlag struct {
	name  string
	value interface{}
}

// launchFlags lists the switches the browser is started with, in order. User args come last
// so they can override the defaults.
func launchFlags(cfg config.BrowserConfig) []launchFlag {
	flags := []launchFlag{
		{"no-first-run", true},
		{"no-default-browser-check", true},
		{"no-sandbox", true},
		{"disable-gpu", true},
		{"disable-dev-shm-usage", true},
		{"disable-extensions", true},
		{"disable-background-networking", true},
	}
	if cfg.Headless {
		flags = append(flags, launchFlag{"headless", true}, launchFlag{"hide-scrollbars", true}, launchFlag{"mute-audio", true})
	}
	if cfg.UserAgent != "" {
		flags = append(flags, launchFlag{"user-agent", cfg.UserAgent})
	}
	if w, h, ok := viewportSize(cfg); ok {
		flags = append(flags, launchFlag{"window-size", fmt.Sprintf("%d,%d", w, h)})
	}
	for _, arg := range cfg.Args {
		name, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if !found {
			flags = append(flags, launchFlag{name, true})
			continue
		}
		if b, err := strconv.ParseBool(value); err == nil {
			flags = append(flags, launchFlag{name, b})
		} else {
			flags = append(flags, launchFlag{name, value})
		}
	}
	return flags
}

// AllocatorOptions translates the browser configuration into chromedp allocator options.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	flags := launchFlags(cfg)
	opts := make([]chromedp.ExecAllocatorOption, 0, len(flags))
	for _, f := range flags {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	return opts
}

func viewportSize(cfg config.BrowserConfig) (width, height int, ok bool) {
	width, height = cfg.Viewport["width"], cfg.Viewport["height"]
	return width, height, width > 0 && height > 0
}

// initialize launches the browser process. The allocator is rooted in a background context so
// that it outlives the request that triggered it; Shutdown ends it.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser...", zap.Bool("headless", m.cfg.Headless))

		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), AllocatorOptions(m.cfg)...)
		m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx,
			chromedp.WithLogf(m.logger.Sugar().Debugf),
			chromedp.WithErrorf(m.logger.Sugar().Debugf),
		)

		startCtx, cancel := context.WithTimeout(m.browserCtx, m.cfg.Timeout)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		if err := chromedp.Run(startCtx); err != nil {
			m.browserCancel()
			m.allocCancel()
			m.initErr = fmt.Errorf("failed to launch browser instance: %w", err)
			return
		}
		m.logger.Info("Browser launched.")
	})
	return m.initErr
}

// Load opens url in a new tab, waits for the body and the configured settle time, and parses the
// rendered markup into a Document whose viewport is backed by the live tab.
func (m *Manager) Load(ctx context.Context, url string) (*Page, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrShutdown
	}
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	runCtx, runCancel := context.WithTimeout(tabCtx, m.cfg.Timeout)
	defer runCancel()
	stop := context.AfterFunc(ctx, runCancel)
	defer stop()

	var outer string
	actions := chromedp.Tasks{}
	if w, h, ok := viewportSize(m.cfg); ok {
		actions = append(actions, chromedp.EmulateViewport(int64(w), int64(h)))
	}
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if m.cfg.PostLoadWait > 0 {
		actions = append(actions, chromedp.Sleep(m.cfg.PostLoadWait))
	}
	actions = append(actions, chromedp.OuterHTML("html", &outer, chromedp.ByQuery))

	start := time.Now()
	if err := chromedp.Run(runCtx, actions); err != nil {
		tabCancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}

	doc, err := dom.ParseString(outer)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to parse rendered page: %w", err)
	}

	p := &Page{
		url:     url,
		html:    outer,
		doc:     doc,
		ctx:     tabCtx,
		cancel:  tabCancel,
		timeout: m.cfg.Timeout,
		logger:  m.logger.With(zap.String("url", url)),
	}
	p.onClose = func() {
		m.mu.Lock()
		delete(m.pages, p)
		m.mu.Unlock()
	}
	doc.SetViewport(p)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		p.Close()
		return nil, ErrShutdown
	}
	m.pages[p] = struct{}{}
	m.mu.Unlock()

	m.logger.Info("Page loaded.",
		zap.String("url", url),
		zap.Int("bytes", len(outer)),
		zap.Duration("duration", time.Since(start)))
	return p, nil
}

// Shutdown closes every open page and the browser process. It waits at most until ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	pages := make([]*Page, 0, len(m.pages))
	for p := range m.pages {
		pages = append(pages, p)
	}
	m.mu.Unlock()

	for _, p := range pages {
		p.Close()
	}

	// Waits for an in-flight launch, or prevents a later one.
	m.initOnce.Do(func() {})
	if m.browserCtx == nil || m.initErr != nil {
		m.logger.Debug("Browser never launched, skipping shutdown sequence.")
		return nil
	}

	m.logger.Info("Shutting down browser.")
	done := make(chan error, 1)
	go func() {
		// chromedp.Cancel blocks until the process exits.
		done <- chromedp.Cancel(m.browserCtx)
	}()

	var err error
	select {
	case err = <-done:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case <-ctx.Done():
		err = fmt.Errorf("browser shutdown timed out: %w", ctx.Err())
	}
	m.browserCancel()
	m.allocCancel()
	return err
}

// ShutdownWithGrace calls Shutdown with the default grace period.
func (m *Manager) ShutdownWithGrace() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	return m.Shutdown(ctx)
}
