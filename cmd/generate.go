// File: cmd/generate.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/assist"
	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/locator"
	"github.com/xkilldash9x/locator-cli/internal/observability"
	"github.com/xkilldash9x/locator-cli/internal/store"
)

// reportOptions controls what is produced for a selected element.
type reportOptions struct {
	output   string
	noVerify bool
	ai       bool
	save     bool
	code     bool
}

func addReportFlags(cmd *cobra.Command, o *reportOptions) {
	cmd.Flags().StringVarP(&o.output, "output", "o", formatTable, "output format (table, json)")
	cmd.Flags().BoolVar(&o.noVerify, "no-verify", false, "skip verifying candidates against the document")
	cmd.Flags().BoolVar(&o.ai, "ai", false, "also ask the configured AI provider for candidates")
	cmd.Flags().BoolVar(&o.save, "save", false, "persist the selection to the history database")
	cmd.Flags().BoolVar(&o.code, "code", false, "print Selenium, Playwright and Cypress snippets")
}

type generateOptions struct {
	source documentFlags
	target string
	report reportOptions
}

func newGenerateCmd(deps dependencies) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate ranked locators for one element of a document.",
		Long: `Generate resolves --target (XPath when it starts with "/" or "(", CSS otherwise) to exactly
one element, proposes every applicable locator strategy in priority order and verifies each
candidate against the same document.`,
		Example: `  locator-cli generate -f login.html -t 'button[type=submit]'
  locator-cli generate -u https://example.com -t '//a[1]' --code
  cat page.html | locator-cli generate -f - -t '#email' -o json --ai`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runGenerate(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts, deps, observability.GetLogger())
		},
	}

	addDocumentFlags(cmd, &opts.source)
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "XPath or CSS expression selecting the element (required)")
	_ = cmd.MarkFlagRequired("target")
	addReportFlags(cmd, &opts.report)
	return cmd
}

func runGenerate(ctx context.Context, out, errOut io.Writer, cfg config.Interface, opts generateOptions, deps dependencies, logger *zap.Logger) error {
	if err := validateFormat(opts.report.output); err != nil {
		return err
	}

	loaded, err := loadDocument(ctx, opts.source, cfg.Browser(), deps.stdin, logger)
	if err != nil {
		return err
	}
	defer loaded.close()

	node, err := locator.Resolve(loaded.doc, opts.target)
	if err != nil {
		return fmt.Errorf("failed to resolve target: %w", err)
	}
	rec := locator.Snapshot(loaded.doc, node, locator.SnapshotOptions{MaxPageHTML: cfg.Locator().MaxPageHTML})
	return reportSelection(ctx, out, errOut, loaded.doc, loaded.pageURL, rec, cfg, opts.report, deps, logger)
}

// elementSummary is the part of a record worth showing; the page and inner markup are omitted.
type elementSummary struct {
	TagName     string            `json:"tagName"`
	Text        string            `json:"text,omitempty"`
	XPath       string            `json:"xpath"`
	CSSSelector string            `json:"cssSelector"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

type selectionReport struct {
	Element      elementSummary `json:"element"`
	Candidates   []candidateRow `json:"candidates"`
	AICandidates []candidateRow `json:"aiCandidates,omitempty"`
	AIError      string         `json:"aiError,omitempty"`
	SelectionID  string         `json:"selectionId,omitempty"`
}

// reportSelection generates, verifies and optionally augments and saves candidates for rec,
// then prints them. The generated list is printed even when the AI request fails.
func reportSelection(ctx context.Context, out, errOut io.Writer, doc *dom.Document, pageURL string, rec locator.ElementRecord, cfg config.Interface, opts reportOptions, deps dependencies, logger *zap.Logger) error {
	gen, err := newGenerator(cfg.Locator(), logger)
	if err != nil {
		return err
	}
	cands := gen.Generate(rec)
	logger.Debug("Candidates generated.", zap.String("xpath", rec.XPath), zap.Int("count", len(cands)))

	var engine *locator.Engine
	verify := func(cs []locator.Candidate) []locator.Result {
		if opts.noVerify || len(cs) == 0 {
			return nil
		}
		if engine == nil {
			engine = locator.NewEngine(doc, logger)
		}
		return engine.VerifyAll(cs)
	}
	results := verify(cands)

	var (
		aiCands   []locator.Candidate
		aiResults []locator.Result
		aiErr     error
	)
	if opts.ai {
		aiCands, aiErr = suggest(ctx, rec, cfg.Assist(), deps, logger)
		aiResults = verify(aiCands)
	}
	if engine != nil {
		engine.Clear()
	}

	var selectionID string
	if opts.save || cfg.Store().Enabled {
		saved, err := saveSelection(ctx, cfg.Store(), deps, logger, store.Selection{
			PageURL:      pageURL,
			Record:       rec,
			Candidates:   cands,
			AICandidates: aiCands,
		})
		if err != nil {
			return err
		}
		selectionID = saved.ID
	}

	if opts.output == formatJSON {
		report := selectionReport{
			Element: elementSummary{
				TagName:     rec.TagName,
				Text:        rec.Text,
				XPath:       rec.XPath,
				CSSSelector: rec.CSSSelector,
				Attributes:  rec.Attributes,
			},
			Candidates:   rowsFor(cands, results),
			AICandidates: rowsFor(aiCands, aiResults),
			SelectionID:  selectionID,
		}
		if aiErr != nil {
			report.AIError = aiErr.Error()
		}
		if err := writeJSON(out, report); err != nil {
			return err
		}
		return aiErr
	}

	fmt.Fprintf(out, "Element: <%s> %s\n", rec.TagName, rec.XPath)
	if err := writeCandidates(out, formatTable, cands, results, opts.code); err != nil {
		return err
	}
	if opts.ai && aiErr == nil {
		fmt.Fprintln(out, "\nAI suggestions:")
		if err := writeCandidates(out, formatTable, aiCands, aiResults, opts.code); err != nil {
			return err
		}
	}
	if selectionID != "" {
		fmt.Fprintf(errOut, "Saved selection %s\n", selectionID)
	}
	return aiErr
}

// suggest asks the model for candidates in one completion.
func suggest(ctx context.Context, rec locator.ElementRecord, cfg config.AssistConfig, deps dependencies, logger *zap.Logger) ([]locator.Candidate, error) {
	client, err := deps.llm(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI client: %w", err)
	}
	defer client.Close()

	cands, err := assist.NewService(client, cfg, logger).Generate(ctx, rec)
	if err != nil {
		logger.Warn("AI suggestion failed.", zap.Error(err))
		return nil, err
	}
	return cands, nil
}

func saveSelection(ctx context.Context, cfg config.StoreConfig, deps dependencies, logger *zap.Logger, sel store.Selection) (store.Selection, error) {
	s, closeFn, err := deps.stores.Create(ctx, cfg, logger)
	if err != nil {
		return store.Selection{}, fmt.Errorf("failed to open history store: %w", err)
	}
	defer closeFn()

	saved, err := s.SaveSelection(ctx, sel)
	if err != nil {
		return store.Selection{}, fmt.Errorf("failed to save selection: %w", err)
	}
	return saved, nil
}
