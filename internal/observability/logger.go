// File: internal/observability/logger.go
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xkilldash9x/locator-cli/internal/config"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once
	// level is shared by every core so --verbose can raise it after initialization.
	level = zap.NewAtomicLevel()
)

// Initialize sets up the global logger writing console output to w. Level colours are
// applied only when w is a terminal.
func Initialize(cfg config.LoggerConfig, w zapcore.WriteSyncer) {
	initialize(cfg, w, lipgloss.NewRenderer(w))
}

// InitializeLogger writes console output to stderr; stdout is reserved for command results.
func InitializeLogger(cfg config.LoggerConfig) {
	initialize(cfg, zapcore.Lock(os.Stderr), lipgloss.NewRenderer(os.Stderr))
}

func initialize(cfg config.LoggerConfig, w zapcore.WriteSyncer, r *lipgloss.Renderer) {
	once.Do(func() {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		cores := []zapcore.Core{zapcore.NewCore(consoleEncoder(cfg, r), w, level)}
		if cfg.LogFile != "" {
			file := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
			cores = append(cores, zapcore.NewCore(jsonEncoder(), file, level))
		}

		options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			options = append(options, zap.AddCaller())
		}
		logger := zap.New(zapcore.NewTee(cores...), options...)
		if cfg.ServiceName != "" {
			logger = logger.Named(cfg.ServiceName)
		}
		globalLogger.Store(logger)

		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// SetLevel changes the level of the global logger.
func SetLevel(name string) error {
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return nil
}

// ResetForTest clears the global logger so the next Initialize takes effect.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
	level.SetLevel(zap.InfoLevel)
}

func baseEncoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return ec
}

// jsonEncoder is used for the file sink regardless of the console format.
func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(baseEncoderConfig())
}

func consoleEncoder(cfg config.LoggerConfig, r *lipgloss.Renderer) zapcore.Encoder {
	if cfg.Format != "console" {
		return jsonEncoder()
	}
	ec := baseEncoderConfig()
	ec.EncodeLevel = levelEncoder(r, cfg.Colors)
	// "locator-cli.picker." keeps the component visually apart from the message.
	ec.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(ec)
}

// levelEncoder renders upper-case level names in the configured colours.
func levelEncoder(r *lipgloss.Renderer, colors config.ColorConfig) zapcore.LevelEncoder {
	styles := map[zapcore.Level]lipgloss.Style{
		zapcore.DebugLevel:  r.NewStyle().Foreground(lipgloss.Color(colors.Debug)),
		zapcore.InfoLevel:   r.NewStyle().Foreground(lipgloss.Color(colors.Info)),
		zapcore.WarnLevel:   r.NewStyle().Foreground(lipgloss.Color(colors.Warn)),
		zapcore.ErrorLevel:  r.NewStyle().Foreground(lipgloss.Color(colors.Error)),
		zapcore.DPanicLevel: r.NewStyle().Foreground(lipgloss.Color(colors.DPanic)),
		zapcore.PanicLevel:  r.NewStyle().Foreground(lipgloss.Color(colors.Panic)),
		zapcore.FatalLevel:  r.NewStyle().Foreground(lipgloss.Color(colors.Fatal)),
	}
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		name := strings.ToUpper(l.String())
		if style, ok := styles[l]; ok {
			name = style.Render(name)
		}
		enc.AppendString(name)
	}
}

// GetLogger returns the global logger, or a development logger if none was initialized.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	l.Warn("Global logger requested before initialization; using fallback.")
	return l.Named("fallback")
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil && !ignorableSyncError(err) {
		fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
	}
}

func ignorableSyncError(err error) bool {
	msg := err.Error()
	for _, s := range []string{"sync /dev/stdout", "sync /dev/stderr", "invalid argument", "operation not supported", "inappropriate ioctl"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
