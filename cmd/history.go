// File: cmd/history.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/observability"
	"github.com/xkilldash9x/locator-cli/internal/store"
)

func newHistoryCmd(deps dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse selections saved to the history database.",
		Long: `History reads the selections persisted by generate, pick and assist when the store is
enabled (--store, store.enabled, or --save). The database is configured with store.url or
LOCATOR_STORE_URL.`,
	}
	cmd.AddCommand(newHistoryListCmd(deps), newHistoryShowCmd(deps))
	return cmd
}

func newHistoryListCmd(deps dependencies) *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent selections.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.Store().HistoryLimit
			}
			return runHistoryList(ctx, cmd.OutOrStdout(), cfg, limit, output, deps, observability.GetLogger())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of selections to list (default store.history_limit)")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format (table, json)")
	return cmd
}

func runHistoryList(ctx context.Context, out io.Writer, cfg config.Interface, limit int, output string, deps dependencies, logger *zap.Logger) error {
	if err := validateFormat(output); err != nil {
		return err
	}
	s, closeFn, err := deps.stores.Create(ctx, cfg.Store(), logger)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer closeFn()

	summaries, err := s.List(ctx, limit)
	if err != nil {
		return err
	}
	if output == formatJSON {
		return writeJSON(out, summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No saved selections.")
		return nil
	}

	r := lipgloss.NewRenderer(out)
	cell := r.NewStyle().Padding(0, 1)
	data := make([][]string, len(summaries))
	for i, sum := range summaries {
		data[i] = []string{
			sum.ID,
			sum.CreatedAt.Local().Format(time.DateTime),
			sum.TagName,
			sum.XPath,
			strconv.Itoa(sum.CandidateCount),
			sum.PageURL,
		}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers("ID", "SAVED", "TAG", "XPATH", "CANDIDATES", "PAGE").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Bold(true)
			}
			return cell
		})
	_, err = fmt.Fprintln(out, t.Render())
	return err
}

func newHistoryShowCmd(deps dependencies) *cobra.Command {
	var (
		output string
		code   bool
	)
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a saved selection and its candidates (default: the latest).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return runHistoryShow(ctx, cmd.OutOrStdout(), cfg, id, output, code, deps, observability.GetLogger())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format (table, json)")
	cmd.Flags().BoolVar(&code, "code", false, "print Selenium, Playwright and Cypress snippets")
	return cmd
}

func runHistoryShow(ctx context.Context, out io.Writer, cfg config.Interface, id, output string, code bool, deps dependencies, logger *zap.Logger) error {
	if err := validateFormat(output); err != nil {
		return err
	}
	s, closeFn, err := deps.stores.Create(ctx, cfg.Store(), logger)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer closeFn()

	var sel store.Selection
	if id == "" {
		sel, err = s.Latest(ctx)
	} else {
		sel, err = s.Get(ctx, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		if id == "" {
			return errors.New("no selections have been saved yet")
		}
		return fmt.Errorf("selection %s not found", id)
	}
	if err != nil {
		return err
	}

	if output == formatJSON {
		return writeJSON(out, selectionReport{
			Element: elementSummary{
				TagName:     sel.Record.TagName,
				Text:        sel.Record.Text,
				XPath:       sel.Record.XPath,
				CSSSelector: sel.Record.CSSSelector,
				Attributes:  sel.Record.Attributes,
			},
			Candidates:   rowsFor(sel.Candidates, nil),
			AICandidates: rowsFor(sel.AICandidates, nil),
			SelectionID:  sel.ID,
		})
	}

	fmt.Fprintf(out, "Selection %s (%s)\n", sel.ID, sel.CreatedAt.Local().Format(time.DateTime))
	if sel.PageURL != "" {
		fmt.Fprintf(out, "Page: %s\n", sel.PageURL)
	}
	fmt.Fprintf(out, "Element: <%s> %s\n", sel.Record.TagName, sel.Record.XPath)
	if err := writeCandidates(out, formatTable, sel.Candidates, nil, code); err != nil {
		return err
	}
	if len(sel.AICandidates) > 0 {
		fmt.Fprintln(out, "\nAI suggestions:")
		return writeCandidates(out, formatTable, sel.AICandidates, nil, code)
	}
	return nil
}
