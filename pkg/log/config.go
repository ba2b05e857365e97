package log

import (
	"fmt"
	stdlog "log"
	"strings"
)

// Config declaratively describes a logger for ApplyConfig.
type Config struct {
	// Level is the minimum level: debug, info, warn, error or fatal.
	Level string `json:"level"`
	// Format selects the formatter: text (default) or json.
	Format string `json:"format"`
	// Output selects the sink: console (default), stderr, file or null.
	Output string `json:"output"`
	// FilePath is the target for the file output.
	FilePath string `json:"file_path"`
	// Redact lists field keys whose values are masked in emitted entries.
	Redact []string `json:"redact"`
	// SampleInitial / SampleThereafter enable per-message sampling: the first
	// SampleInitial occurrences always pass, then every SampleThereafter-th.
	SampleInitial    int `json:"sample_initial"`
	SampleThereafter int `json:"sample_thereafter"`
}

// ParseLevel converts a textual level to a Level. The empty string parses as
// info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %q", s)
	}
}

// ApplyConfig builds a Logger from a declarative Config. A nil config yields
// the default info-level text logger on stdout.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text", "console":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format: %q", cfg.Format)
	}

	var output Output
	switch strings.ToLower(cfg.Output) {
	case "", "console", "stdout":
		output = NewConsoleOutput()
	case "stderr":
		output = &ConsoleOutput{Stderr: true}
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file output requires file_path")
		}
		output, err = NewFileOutput(cfg.FilePath)
		if err != nil {
			return nil, err
		}
	case "null", "none":
		output = NullOutput{}
	default:
		return nil, fmt.Errorf("unknown log output: %q", cfg.Output)
	}

	opts := []LoggerOption{WithLevel(level), WithFormatter(formatter), WithOutput(output)}
	if len(cfg.Redact) > 0 {
		opts = append(opts, WithRedaction(cfg.Redact...))
	}
	if cfg.SampleThereafter > 0 {
		opts = append(opts, WithSampling(cfg.SampleInitial, cfg.SampleThereafter))
	}
	return NewLogger(opts...), nil
}

// ToStdLogger returns a *log.Logger that forwards through the facade at the
// given level. Useful for libraries that only accept the standard logger.
func ToStdLogger(logger Logger, level Level) *stdlog.Logger {
	return stdlog.New(&stdLogWriter{logger: logger, level: level}, "", 0)
}

// RedirectStdLog reroutes the standard library's global logger through the
// facade at info level.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(&stdLogWriter{logger: logger, level: InfoLevel})
}

type stdLogWriter struct {
	logger Logger
	level  Level
}

func (w *stdLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSuffix(string(p), "\n")
	switch w.level {
	case DebugLevel:
		w.logger.Debug(msg)
	case WarnLevel:
		w.logger.Warn(msg)
	case ErrorLevel:
		w.logger.Error(msg)
	default:
		w.logger.Info(msg)
	}
	return len(p), nil
}
