// File: cmd/assist.go
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/assist"
	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/llmclient"
	"github.com/xkilldash9x/locator-cli/internal/locator"
	"github.com/xkilldash9x/locator-cli/internal/observability"
)

func newAssistCmd(deps dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assist",
		Short: "Ask an AI model about an element.",
		Long: `Assist sends the selected element, its attributes and the page markup to the configured
language model. Set the provider with --provider or assist.provider and the key with
LOCATOR_ASSIST_API_KEY.`,
	}
	cmd.AddCommand(newSuggestCmd(deps), newChatCmd(deps))
	return cmd
}

type targetOptions struct {
	source documentFlags
	target string
}

func addTargetFlags(cmd *cobra.Command, o *targetOptions) {
	addDocumentFlags(cmd, &o.source)
	cmd.Flags().StringVarP(&o.target, "target", "t", "", "XPath or CSS expression selecting the element (required)")
	_ = cmd.MarkFlagRequired("target")
}

// snapshotTarget loads the document and captures the targeted element.
func snapshotTarget(ctx context.Context, o targetOptions, cfg config.Interface, deps dependencies, logger *zap.Logger) (*loadedDocument, locator.ElementRecord, error) {
	loaded, err := loadDocument(ctx, o.source, cfg.Browser(), deps.stdin, logger)
	if err != nil {
		return nil, locator.ElementRecord{}, err
	}
	node, err := locator.Resolve(loaded.doc, o.target)
	if err != nil {
		loaded.close()
		return nil, locator.ElementRecord{}, fmt.Errorf("failed to resolve target: %w", err)
	}
	return loaded, locator.Snapshot(loaded.doc, node, locator.SnapshotOptions{MaxPageHTML: cfg.Locator().MaxPageHTML}), nil
}

type suggestOptions struct {
	targetOptions
	stream   bool
	output   string
	noVerify bool
	code     bool
}

func newSuggestCmd(deps dependencies) *cobra.Command {
	var opts suggestOptions

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Ask the model for locator candidates and verify them.",
		Example: `  locator-cli assist suggest -f login.html -t '#submit' --stream
  locator-cli assist suggest -u https://example.com -t '//nav/a[2]' --provider openai -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runSuggest(ctx, cmd.OutOrStdout(), cfg, opts, deps, observability.GetLogger())
		},
	}

	addTargetFlags(cmd, &opts.targetOptions)
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "print candidates as soon as each one arrives")
	cmd.Flags().StringVarP(&opts.output, "output", "o", formatTable, "output format (table, json)")
	cmd.Flags().BoolVar(&opts.noVerify, "no-verify", false, "skip verifying candidates against the document")
	cmd.Flags().BoolVar(&opts.code, "code", false, "print Selenium, Playwright and Cypress snippets")
	return cmd
}

func runSuggest(ctx context.Context, out io.Writer, cfg config.Interface, opts suggestOptions, deps dependencies, logger *zap.Logger) error {
	if err := validateFormat(opts.output); err != nil {
		return err
	}
	loaded, rec, err := snapshotTarget(ctx, opts.targetOptions, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer loaded.close()

	client, err := deps.llm(ctx, cfg.Assist(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize AI client: %w", err)
	}
	defer client.Close()
	svc := assist.NewService(client, cfg.Assist(), logger)

	var cands []locator.Candidate
	if opts.stream {
		n := 0
		cands, err = svc.GenerateStream(ctx, rec, func(c locator.Candidate) {
			if opts.output == formatTable {
				n++
				fmt.Fprintf(out, "%d. %s: %s\n", n, c.Type, c.Value)
			}
		})
		if opts.output == formatTable && n > 0 {
			fmt.Fprintln(out)
		}
	} else {
		cands, err = svc.Generate(ctx, rec)
	}
	if err != nil {
		// A broken stream may still have produced usable candidates.
		if len(cands) == 0 {
			return err
		}
		logger.Warn("AI stream ended early; showing partial results.", zap.Error(err))
	}

	var results []locator.Result
	if !opts.noVerify {
		engine := locator.NewEngine(loaded.doc, logger)
		results = engine.VerifyAll(cands)
		engine.Clear()
	}
	if writeErr := writeCandidates(out, opts.output, cands, results, opts.code); writeErr != nil {
		return writeErr
	}
	return err
}

func newChatCmd(deps dependencies) *cobra.Command {
	var opts targetOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a conversation with the model about an element.",
		Long: `Chat opens a shell grounded in the selected element. Each line is sent with the previous
turns and the reply is streamed as it arrives. Type 'quit' to leave, 'reset' to forget the
conversation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if opts.source.file == "-" {
				return errors.New("chat reads prompts from stdin; pass the document with --file <path> or --url")
			}
			return runChat(ctx, deps.stdin, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts, deps, observability.GetLogger())
		},
	}
	addTargetFlags(cmd, &opts)
	return cmd
}

func runChat(ctx context.Context, in io.Reader, out, errOut io.Writer, cfg config.Interface, opts targetOptions, deps dependencies, logger *zap.Logger) error {
	loaded, rec, err := snapshotTarget(ctx, opts, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer loaded.close()

	client, err := deps.llm(ctx, cfg.Assist(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize AI client: %w", err)
	}
	defer client.Close()
	svc := assist.NewService(client, cfg.Assist(), logger)

	fmt.Fprintf(out, "Chatting about <%s> %s. Type 'quit' to leave.\n", rec.TagName, rec.XPath)
	var history []llmclient.Message
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you > ")
		if !scanner.Scan() {
			break
		}
		prompt := strings.TrimSpace(scanner.Text())
		switch prompt {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "reset":
			history = nil
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		reply, err := chatTurn(ctx, out, svc, assist.ChatRequest{
			ID:      uuid.NewString(),
			Record:  rec,
			History: history,
			Prompt:  prompt,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(errOut, "Error:", err)
			continue
		}
		history = append(history,
			llmclient.Message{Role: llmclient.RoleUser, Content: prompt},
			llmclient.Message{Role: llmclient.RoleAssistant, Content: reply},
		)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading prompts: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}

// chatTurn streams one reply to out and returns the full text carried by the final chunk.
func chatTurn(ctx context.Context, out io.Writer, svc *assist.Service, req assist.ChatRequest) (string, error) {
	chunks, err := svc.Chat(ctx, req)
	if err != nil {
		return "", err
	}

	fmt.Fprint(out, "ai > ")
	var streamed strings.Builder
	for chunk := range chunks {
		if chunk.Done {
			fmt.Fprintln(out)
			if chunk.Err != nil {
				return "", fmt.Errorf("AI reply failed: %w", chunk.Err)
			}
			if chunk.Text != "" {
				return chunk.Text, nil
			}
			return streamed.String(), nil
		}
		streamed.WriteString(chunk.Text)
		fmt.Fprint(out, chunk.Text)
	}
	fmt.Fprintln(out)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return streamed.String(), nil
}
