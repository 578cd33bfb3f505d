// File: cmd/source.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/browser"
	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/locator"
)

// documentFlags selects where the host document comes from.
type documentFlags struct {
	file string
	url  string
}

func addDocumentFlags(cmd *cobra.Command, f *documentFlags) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "HTML file to load (use - for stdin)")
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "page URL to render in a headless browser")
	cmd.MarkFlagsMutuallyExclusive("file", "url")
	cmd.MarkFlagsOneRequired("file", "url")
}

// loadedDocument is a parsed host document and the resources backing it.
type loadedDocument struct {
	doc     *dom.Document
	pageURL string
	close   func()
}

// loadDocument parses the file, stdin, or rendered page named by f.
func loadDocument(ctx context.Context, f documentFlags, cfg config.BrowserConfig, stdin io.Reader, logger *zap.Logger) (*loadedDocument, error) {
	if f.url != "" {
		return loadPage(ctx, f.url, cfg, logger)
	}

	var r io.Reader
	switch f.file {
	case "":
		return nil, fmt.Errorf("either --file or --url is required")
	case "-":
		r = stdin
	default:
		path, err := homedir.Expand(f.file)
		if err != nil {
			return nil, fmt.Errorf("failed to expand path %s: %w", f.file, err)
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open HTML file: %w", err)
		}
		defer file.Close()
		r = file
	}

	doc, err := dom.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &loadedDocument{doc: doc, close: doc.Close}, nil
}

func loadPage(ctx context.Context, url string, cfg config.BrowserConfig, logger *zap.Logger) (*loadedDocument, error) {
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	manager := browser.NewManager(cfg, logger)
	page, err := manager.Load(ctx, url)
	if err != nil {
		_ = manager.ShutdownWithGrace()
		return nil, err
	}
	return &loadedDocument{
		doc:     page.Document(),
		pageURL: url,
		close: func() {
			page.Close()
			if err := manager.ShutdownWithGrace(); err != nil {
				logger.Warn("Browser did not shut down cleanly.", zap.Error(err))
			}
		},
	}, nil
}

// newGenerator builds a generator tuned by the locator configuration.
func newGenerator(cfg config.LocatorConfig, logger *zap.Logger) (*locator.Generator, error) {
	classifier, err := locator.NewPatternClassifier(cfg.VolatilePatterns...)
	if err != nil {
		return nil, fmt.Errorf("invalid volatile class pattern: %w", err)
	}
	opts := []locator.Option{
		locator.WithClassifier(classifier),
		locator.WithTextLimits(cfg.MaxTextXPath, cfg.MaxTextLocator),
		locator.WithLogger(logger),
	}
	if len(cfg.InteractiveTags) > 0 {
		opts = append(opts, locator.WithInteractiveTags(cfg.InteractiveTags))
	}
	return locator.NewGenerator(opts...), nil
}
