// File: cmd/verify.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/locator-cli/internal/browser"
	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/locator"
	"github.com/xkilldash9x/locator-cli/internal/observability"
)

const defaultVerifyConcurrency = 4

type verifyOptions struct {
	typ         string
	value       string
	output      string
	concurrency int
}

func newVerifyCmd(deps dependencies) *cobra.Command {
	var opts verifyOptions

	cmd := &cobra.Command{
		Use:   "verify [file|url|-]...",
		Short: "Count how many elements a locator matches in one or more documents.",
		Long: `Verify evaluates a single locator against every given HTML file or page and reports the
match count: unique (1), ambiguous (more than 1) or not-found (0). Syntax errors count as zero
matches. Documents are processed concurrently, each with its own document and engine.`,
		Example: `  locator-cli verify --value '#submit' login.html signup.html
  locator-cli verify --type 'Link Text' --value 'Sign in' https://example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runVerify(ctx, cmd.OutOrStdout(), cfg, opts, args, deps, observability.GetLogger())
		},
	}

	cmd.Flags().StringVarP(&opts.typ, "type", "T", "", "locator type label, e.g. ID, Name, XPath (default: inferred from the value)")
	cmd.Flags().StringVarP(&opts.value, "value", "V", "", "locator value (required)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", formatTable, "output format (table, json)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", defaultVerifyConcurrency, "number of documents verified at once")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

// verifyRow is the outcome for one document, kept in input order.
type verifyRow struct {
	Source string          `json:"source"`
	Count  int             `json:"count"`
	Status *locator.Status `json:"status,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// inferType picks XPath for path-like values and CSS for everything else.
func inferType(value string) string {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, "/") || strings.HasPrefix(v, "(") {
		return locator.LabelXPath
	}
	return locator.LabelCSS
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func runVerify(ctx context.Context, out io.Writer, cfg config.Interface, opts verifyOptions, sources []string, deps dependencies, logger *zap.Logger) error {
	if err := validateFormat(opts.output); err != nil {
		return err
	}
	if opts.typ == "" {
		opts.typ = inferType(opts.value)
	}
	if opts.concurrency <= 0 {
		opts.concurrency = defaultVerifyConcurrency
	}
	cand := locator.Candidate{Type: opts.typ, Value: opts.value}

	// URL sources share one browser process, started on first use.
	var (
		managerOnce sync.Once
		manager     *browser.Manager
	)
	defer func() {
		if manager != nil {
			if err := manager.ShutdownWithGrace(); err != nil {
				logger.Warn("Browser did not shut down cleanly.", zap.Error(err))
			}
		}
	}()

	rows := make([]verifyRow, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)

	for i, src := range sources {
		rows[i].Source = src
		g.Go(func() error {
			var loaded *loadedDocument
			var err error
			if isURL(src) {
				managerOnce.Do(func() { manager = browser.NewManager(cfg.Browser(), logger) })
				page, loadErr := manager.Load(gctx, src)
				if loadErr == nil {
					loaded = &loadedDocument{doc: page.Document(), pageURL: src, close: page.Close}
				}
				err = loadErr
			} else {
				loaded, err = loadDocument(gctx, documentFlags{file: src}, cfg.Browser(), deps.stdin, logger)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("Failed to load document.", zap.String("source", src), zap.Error(err))
				rows[i].Error = err.Error()
				return nil
			}
			defer loaded.close()

			res := locator.NewEngine(loaded.doc, logger).Verify(cand)
			status := res.Status()
			rows[i].Count, rows[i].Status = res.Count, &status
			if res.Error != "" {
				rows[i].Error = res.Error
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.output == formatJSON {
		if err := writeJSON(out, rows); err != nil {
			return err
		}
	} else if err := writeVerifyTable(out, cand, rows); err != nil {
		return err
	}

	failed := 0
	for _, row := range rows {
		if row.Status == nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents could not be loaded", failed, len(rows))
	}
	return nil
}

func writeVerifyTable(w io.Writer, cand locator.Candidate, rows []verifyRow) error {
	r := lipgloss.NewRenderer(w)
	cell := r.NewStyle().Padding(0, 1)
	header := cell.Bold(true)
	statusStyle := statusStyles(cell)

	data := make([][]string, len(rows))
	for i, row := range rows {
		status, count := "error", "-"
		if row.Status != nil {
			status, count = string(*row.Status), strconv.Itoa(row.Count)
		}
		data[i] = []string{row.Source, count, status}
	}

	fmt.Fprintf(w, "%s: %s\n", cand.Type, cand.Value)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers("SOURCE", "MATCHES", "STATUS").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 2 && row >= 0 && row < len(rows) && rows[row].Status != nil {
				return statusStyle[*rows[row].Status]
			}
			return cell
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
