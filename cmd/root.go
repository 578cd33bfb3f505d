// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// configFileName is looked up in the working directory and then in the home directory.
const configFileName = ".locator-cli"

// dependencies are the collaborators a command builds on. Tests replace them with fakes.
type dependencies struct {
	stores storeProvider
	llm    llmFactory
	stdin  io.Reader
}

func defaultDependencies() dependencies {
	return dependencies{
		stores: NewStoreProvider(),
		llm:    defaultLLMFactory,
		stdin:  os.Stdin,
	}
}

// NewRootCommand builds a fresh command tree. The interactive shell creates one per line so
// flag values never leak between invocations.
func NewRootCommand() *cobra.Command {
	return newRootCmd(defaultDependencies())
}

func newRootCmd(deps dependencies) *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "locator-cli",
		Short: "Generate and verify stable element locators for UI test automation.",
		Long: `Generate and verify stable element locators for UI test automation.

locator-cli picks an element from an HTML document or a live page, proposes ranked locator
strategies (ID, data-test attributes, name, classes, CSS, XPath, text), verifies each one
against the document and renders ready-to-paste Selenium, Playwright and Cypress code.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetDefaults(v)

			// 1. Initialize configuration loading
			if err := initializeConfig(v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			// 2. Create the configuration object from viper.
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "locator-cli"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			// 3. Initialize the logger with the loaded config.
			logCfg := cfg.Logger()
			if logCfg.LogFile != "" {
				if expanded, err := homedir.Expand(logCfg.LogFile); err == nil {
					logCfg.LogFile = expanded
				}
			}
			observability.InitializeLogger(logCfg)
			if verbose {
				_ = observability.SetLevel("debug")
			}
			logger := observability.GetLogger()
			logger.Debug("Starting locator-cli", zap.String("version", Version))
			if used := v.ConfigFileUsed(); used != "" {
				logger.Debug("Using config file.", zap.String("path", filepath.Clean(used)))
			}

			// 4. Store the validated config in the command's context for subcommands.
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, config.Interface(cfg)))
			return nil
		},
	}

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.locator-cli.yaml, then ~/.locator-cli.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.Bool("headless", true, "run the browser without a window when loading --url pages")
	flags.String("provider", "", "AI provider for assist commands (gemini, openai)")
	flags.String("model", "", "AI model name for assist commands")
	flags.Bool("store", false, "persist selections to the history database")
	_ = v.BindPFlag("browser.headless", flags.Lookup("headless"))
	_ = v.BindPFlag("assist.provider", flags.Lookup("provider"))
	_ = v.BindPFlag("assist.model", flags.Lookup("model"))
	_ = v.BindPFlag("store.enabled", flags.Lookup("store"))

	rootCmd.AddCommand(
		newGenerateCmd(deps),
		newVerifyCmd(deps),
		newPickCmd(deps),
		newAssistCmd(deps),
		newHistoryCmd(deps),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with a signal-aware context. Errors are logged here; the
// caller only maps them to an exit code.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Info("Command aborted.")
		} else {
			fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		}
		observability.Sync()
		return err
	}
	observability.Sync()
	return nil
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		expanded, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("LOCATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}
	return nil
}

// getConfigFromContext returns the configuration stored by the root command.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in context")
	}
	return cfg, nil
}
