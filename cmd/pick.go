// File: cmd/pick.go
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/locator"
	"github.com/xkilldash9x/locator-cli/internal/observability"
	"github.com/xkilldash9x/locator-cli/internal/picker"
)

const pickHelp = `Commands:
  start           arm the picker (done automatically on launch and after each pick)
  hover <expr>    move the pointer onto the element selected by an XPath or CSS expression
  click [expr]    commit the highlighted element, or hover <expr> first
  stop            disarm without selecting
  state           show the picker state and the highlighted element
  help            show this help
  quit            leave the shell`

type pickOptions struct {
	source documentFlags
	report reportOptions
}

func newPickCmd(deps dependencies) *cobra.Command {
	var opts pickOptions

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Interactively point at elements and generate locators for each pick.",
		Long: `Pick loads a document and drives the element picker from a small shell. Hovering moves the
highlight overlay, clicking commits the element and prints its verified candidates. The picker
re-arms after every commit.

` + pickHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runPick(ctx, deps.stdin, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts, deps, observability.GetLogger())
		},
	}

	addDocumentFlags(cmd, &opts.source)
	addReportFlags(cmd, &opts.report)
	return cmd
}

// pickSession couples a picker with the document it edits and the pending selection.
type pickSession struct {
	doc     *dom.Document
	picker  *picker.Picker
	pending *locator.ElementRecord
}

func (s *pickSession) arm() error {
	return s.picker.Start(func(rec locator.ElementRecord) {
		s.pending = &rec
	})
}

func (s *pickSession) hover(expr string) error {
	node, err := locator.Resolve(s.doc, expr)
	if err != nil {
		return err
	}
	if current := s.picker.Current(); current != nil && current != node {
		s.doc.DispatchEvent(dom.NewEvent(dom.EventPointerOut, current))
	}
	s.doc.DispatchEvent(dom.NewEvent(dom.EventPointerOver, node))
	return nil
}

// click dispatches a click on the highlighted node and returns the committed record, if any.
func (s *pickSession) click() *locator.ElementRecord {
	current := s.picker.Current()
	if current == nil {
		return nil
	}
	s.pending = nil
	s.doc.DispatchEvent(dom.NewEvent(dom.EventClick, current))
	return s.pending
}

func runPick(ctx context.Context, in io.Reader, out, errOut io.Writer, cfg config.Interface, opts pickOptions, deps dependencies, logger *zap.Logger) error {
	if opts.source.file == "-" {
		return errors.New("pick reads commands from stdin; pass the document with --file <path> or --url")
	}
	if err := validateFormat(opts.report.output); err != nil {
		return err
	}

	loaded, err := loadDocument(ctx, opts.source, cfg.Browser(), nil, logger)
	if err != nil {
		return err
	}
	defer loaded.close()

	session := &pickSession{
		doc: loaded.doc,
		picker: picker.New(loaded.doc, logger,
			picker.WithSnapshotOptions(locator.SnapshotOptions{MaxPageHTML: cfg.Locator().MaxPageHTML})),
	}
	defer session.picker.Stop()

	if err := session.arm(); err != nil {
		logger.Warn("Failed to arm picker.", zap.Error(err))
		return fmt.Errorf("failed to start picker: %w", err)
	}

	fmt.Fprintln(out, "Picker armed. Type 'help' for commands.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "pick > ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		verb, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch verb {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, "Bye.")
			return nil
		case "help":
			fmt.Fprintln(out, pickHelp)
		case "start":
			if err := session.arm(); err != nil {
				fmt.Fprintln(errOut, "Error:", err)
				continue
			}
			fmt.Fprintln(out, "Picker armed.")
		case "stop":
			session.picker.Stop()
			fmt.Fprintln(out, "Picker stopped.")
		case "state":
			fmt.Fprintf(out, "State: %s\n", session.picker.State())
			if current := session.picker.Current(); current != nil {
				fmt.Fprintf(out, "Highlighted: <%s> %s\n", dom.TagName(current), locator.EncodePath(current))
			}
		case "hover", "click":
			if verb == "hover" && arg == "" {
				fmt.Fprintln(errOut, "Error: hover needs an XPath or CSS expression")
				continue
			}
			if session.picker.State() == picker.StateIdle {
				fmt.Fprintln(errOut, "Error: picker is not armed; type 'start'")
				continue
			}
			if arg != "" {
				if err := session.hover(arg); err != nil {
					fmt.Fprintln(errOut, "Error:", err)
					continue
				}
				current := session.picker.Current()
				if current == nil {
					fmt.Fprintln(errOut, "Error: the picker ignored that element")
					continue
				}
				fmt.Fprintf(out, "Highlighting <%s> %s\n", dom.TagName(current), locator.EncodePath(current))
			}
			if verb == "hover" {
				continue
			}

			rec := session.click()
			if rec == nil {
				fmt.Fprintln(errOut, "Error: nothing is highlighted; hover over an element first")
				continue
			}
			if err := reportSelection(ctx, out, errOut, loaded.doc, loaded.pageURL, *rec, cfg, opts.report, deps, logger); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Fprintln(errOut, "Error:", err)
			}
			if err := session.arm(); err != nil {
				logger.Warn("Failed to re-arm picker.", zap.Error(err))
			}
		default:
			fmt.Fprintf(errOut, "Error: unknown command %q; type 'help'\n", verb)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading commands: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}
