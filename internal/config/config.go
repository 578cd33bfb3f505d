// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Locator() LocatorConfig
	Browser() BrowserConfig
	Assist() AssistConfig
	Store() StoreConfig

	// Setters used by CLI flag overrides.
	SetBrowserHeadless(bool)
	SetBrowserTimeout(time.Duration)
	SetAssistProvider(LLMProvider)
	SetAssistModel(string)
	SetStoreEnabled(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	LocatorCfg LocatorConfig `mapstructure:"locator" yaml:"locator"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	AssistCfg  AssistConfig  `mapstructure:"assist" yaml:"assist"`
	StoreCfg   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Locator() LocatorConfig { return c.LocatorCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Assist() AssistConfig   { return c.AssistCfg }
func (c *Config) Store() StoreConfig     { return c.StoreCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)         { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserTimeout(d time.Duration) { c.BrowserCfg.Timeout = d }
func (c *Config) SetAssistProvider(p LLMProvider)   { c.AssistCfg.Provider = p }
func (c *Config) SetAssistModel(m string)           { c.AssistCfg.Model = m }
func (c *Config) SetStoreEnabled(b bool)            { c.StoreCfg.Enabled = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig holds per-level console colours as ANSI numbers ("1"-"15") or hex values.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LocatorConfig tunes snapshotting and candidate generation.
type LocatorConfig struct {
	MaxPageHTML      int      `mapstructure:"max_page_html" yaml:"max_page_html"`
	MaxTextXPath     int      `mapstructure:"max_text_xpath" yaml:"max_text_xpath"`
	MaxTextLocator   int      `mapstructure:"max_text_locator" yaml:"max_text_locator"`
	InteractiveTags  []string `mapstructure:"interactive_tags" yaml:"interactive_tags"`
	VolatilePatterns []string `mapstructure:"volatile_patterns" yaml:"volatile_patterns"`
}

// BrowserConfig holds settings for the headless browser used to load live pages.
type BrowserConfig struct {
	Headless     bool           `mapstructure:"headless" yaml:"headless"`
	Timeout      time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	PostLoadWait time.Duration  `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	UserAgent    string         `mapstructure:"user_agent" yaml:"user_agent"`
	Args         []string       `mapstructure:"args" yaml:"args"`
	Viewport     map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// AssistConfig defines the AI collaborator: transport, model, and prompt.
type AssistConfig struct {
	Provider        LLMProvider       `mapstructure:"provider" yaml:"provider"`
	Model           string            `mapstructure:"model" yaml:"model"`
	APIKey          string            `mapstructure:"api_key" yaml:"-"`
	Endpoint        string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout      time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature     float32           `mapstructure:"temperature" yaml:"temperature"`
	ChatTemperature float32           `mapstructure:"chat_temperature" yaml:"chat_temperature"`
	TopP            float32           `mapstructure:"top_p" yaml:"top_p"`
	TopK            int               `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens       int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	SafetyFilters   map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
	// Prompt replaces the built-in generation prompt. {html} and {attributes} are substituted.
	Prompt string `mapstructure:"prompt" yaml:"prompt"`
}

// StoreConfig holds the selection history database connection details.
type StoreConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	URL          string `mapstructure:"url" yaml:"url"`
	HistoryLimit int    `mapstructure:"history_limit" yaml:"history_limit"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "locator-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "6")
	v.SetDefault("logger.colors.info", "2")
	v.SetDefault("logger.colors.warn", "3")
	v.SetDefault("logger.colors.error", "1")
	v.SetDefault("logger.colors.dpanic", "5")
	v.SetDefault("logger.colors.panic", "5")
	v.SetDefault("logger.colors.fatal", "5")

	// -- Locator --
	v.SetDefault("locator.max_page_html", 500000)
	v.SetDefault("locator.max_text_xpath", 50)
	v.SetDefault("locator.max_text_locator", 100)
	v.SetDefault("locator.interactive_tags", []string{"button", "input", "select", "textarea", "a", "img"})
	v.SetDefault("locator.volatile_patterns", []string{})

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.timeout", "30s")
	v.SetDefault("browser.post_load_wait", "500ms")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.viewport", map[string]int{"width": 1366, "height": 768})

	// -- Assist --
	v.SetDefault("assist.provider", string(ProviderGemini))
	v.SetDefault("assist.model", "gemini-2.5-flash")
	v.SetDefault("assist.endpoint", "")
	v.SetDefault("assist.api_key", "")
	v.SetDefault("assist.api_timeout", "60s")
	v.SetDefault("assist.temperature", 0.3)
	v.SetDefault("assist.chat_temperature", 0.7)
	v.SetDefault("assist.max_tokens", 8000)
	v.SetDefault("assist.prompt", "")

	// -- Store --
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.url", "")
	v.SetDefault("store.history_limit", 20)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("assist.api_key", "LOCATOR_ASSIST_API_KEY")
	_ = v.BindEnv("store.url", "LOCATOR_STORE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Fall back to the provider's conventional variable when nothing else set a key.
	if cfg.AssistCfg.APIKey == "" && cfg.AssistCfg.Provider == ProviderGemini {
		cfg.AssistCfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.LocatorCfg.Validate(); err != nil {
		return fmt.Errorf("locator configuration invalid: %w", err)
	}
	if c.BrowserCfg.Timeout <= 0 {
		return fmt.Errorf("browser.timeout must be a positive duration")
	}
	if err := c.AssistCfg.Validate(); err != nil {
		return fmt.Errorf("assist configuration invalid: %w", err)
	}
	if c.StoreCfg.Enabled && c.StoreCfg.URL == "" {
		return fmt.Errorf("store.url is required when store.enabled is true. Ensure LOCATOR_STORE_URL is set")
	}
	return nil
}

// Validate checks the Locator configuration.
func (l *LocatorConfig) Validate() error {
	if l.MaxPageHTML <= 0 {
		return fmt.Errorf("max_page_html must be a positive integer")
	}
	if l.MaxTextXPath <= 0 || l.MaxTextLocator <= 0 {
		return fmt.Errorf("max_text_xpath and max_text_locator must be positive integers")
	}
	for _, p := range l.VolatilePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("volatile_patterns entry %q is not a valid regular expression: %w", p, err)
		}
	}
	return nil
}

// Validate checks the Assist configuration. A missing API key is not an error here; it is
// reported when a client is actually built.
func (a *AssistConfig) Validate() error {
	switch a.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider '%s'. Supported: [%s, %s]", a.Provider, ProviderGemini, ProviderOpenAI)
	}
	if a.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be a positive duration")
	}
	if a.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be a positive integer")
	}
	if a.Temperature < 0 || a.Temperature > 2 || a.ChatTemperature < 0 || a.ChatTemperature > 2 {
		return fmt.Errorf("temperature and chat_temperature must be between 0.0 and 2.0")
	}
	return nil
}
