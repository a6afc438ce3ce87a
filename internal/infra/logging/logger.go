package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

type (
	Logger  = *slog.Logger
	Handler = slog.Handler
	Level   = slog.Level
)

// LoggerConfig holds configuration parameters for logging.
type LoggerConfig struct {
	// AppName is added to every record as "app".
	AppName string

	// Output is "stdout", "stderr", "discard" or a file path.
	Output string `env:"OUTPUT" envDefault:"stderr"`

	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string `env:"LEVEL" envDefault:"info"`

	// Filter overrides levels per logger name prefix ("svc.session:debug,repo:warn").
	Filter string `env:"FILTER" envDefault:""`

	// JSON switches from the console format to slog's JSON handler.
	JSON bool `env:"JSON" envDefault:"false"`

	// OutputHandle takes precedence over Output when set.
	OutputHandle io.Writer
}

//nolint:gochecknoglobals
var (
	Group = slog.Group

	config     LoggerConfig
	configLock sync.RWMutex
)

// Configure sets the global logging configuration. Loggers obtained before the call
// keep their previous output.
func Configure(ctx context.Context, cfg LoggerConfig, appName string) {
	if err := configure(cfg, appName); err != nil {
		panic(err)
	}

	GetLogger("infra.logging").DebugContext(ctx, "logging configured", Group("config",
		"app", appName,
		"output", cfg.Output,
		"level", cfg.Level,
		"filter", cfg.Filter,
		"json", cfg.JSON,
	))
}

func configure(cfg LoggerConfig, appName string) error {
	configLock.Lock()
	defer configLock.Unlock()

	cfg.AppName = appName

	if cfg.OutputHandle == nil {
		out, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}

		cfg.OutputHandle = out
	}

	config = cfg

	slog.SetLogLoggerLevel(parseLogLevel(cfg.Level, LevelInfo))

	return nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "discard":
		return io.Discard, nil
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}

// GetLogger returns a logger tagged with the given dotted name, e.g. "svc.session.store".
// Per-name level filters match on name prefixes.
func GetLogger(name string) Logger {
	configLock.RLock()
	cfg := config
	configLock.RUnlock()

	if cfg.OutputHandle == nil || cfg.OutputHandle == io.Discard {
		return NewNopLogger()
	}

	level := parseLogLevel(cfg.Level, LevelInfo)
	if override, ok := cfg.levelFor(name); ok {
		level = override
	}

	var handler slog.Handler

	if cfg.JSON {
		//nolint:exhaustruct
		handler = slog.NewJSONHandler(cfg.OutputHandle, &slog.HandlerOptions{
			AddSource: true,
			Level:     level,
		})
	} else {
		handler = NewConsoleHandler(cfg.OutputHandle, level)
	}

	logger := slog.New(NewTracingHandler(handler))

	if cfg.AppName != "" {
		logger = logger.With("app", cfg.AppName)
	}

	return logger.With("logger", name)
}

// GetLogLogger adapts a Logger for code that expects a *log.Logger, such as http.Server.
func GetLogLogger(logger Logger, level Level) *log.Logger {
	return slog.NewLogLogger(logger.With("stdlog", true).Handler(), level)
}

// levelFor returns the level of the longest filter entry that prefixes name.
func (cfg LoggerConfig) levelFor(name string) (Level, bool) {
	var (
		best    Level
		bestLen = -1
	)

	for _, entry := range strings.Split(cfg.Filter, ",") {
		prefix, levelStr, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			continue
		}

		if name != prefix && !strings.HasPrefix(name, prefix+".") {
			continue
		}

		if len(prefix) > bestLen {
			best, bestLen = parseLogLevel(levelStr, LevelDebug), len(prefix)
		}
	}

	return best, bestLen >= 0
}

func parseLogLevel(levelStr string, fallback Level) Level {
	var level Level

	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelStr))); err != nil {
		return fallback
	}

	return level
}
