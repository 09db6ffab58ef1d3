package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	LevelCritical = slog.Level(12)

	FormatJSON = "json"
	FormatText = "text"

	serviceName = "household-ledger"
)

type Logger interface {
	Debug(message string, args ...any)
	Info(message string, args ...any)
	Warn(message string, args ...any)
	Error(message string, args ...any)
	Critical(message string, args ...any)
	BusinessError(message string, err error, args ...any)
	InternalError(message string, err error, args ...any)
	With(args ...any) Logger
}

// Options controls how records are rendered. The zero value writes JSON at
// info level to stdout.
type Options struct {
	Output  io.Writer
	Level   slog.Level
	Format  string
	NoColor bool
	Service string
}

type slogLogger struct {
	base *slog.Logger
}

// NewFromEnv reads LOG_LEVEL, LOG_FORMAT, ENV and NO_COLOR.
func NewFromEnv() Logger {
	env := normalizeValue(os.Getenv("ENV"))
	_, noColor := os.LookupEnv("NO_COLOR")
	return New(Options{
		Output:  os.Stdout,
		Level:   parseLevel(os.Getenv("LOG_LEVEL"), env),
		Format:  parseFormat(os.Getenv("LOG_FORMAT")),
		NoColor: noColor,
		Service: serviceName,
	})
}

func New(opts Options) Logger {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if opts.Format == FormatText {
		handler = tint.NewHandler(output, &tint.Options{
			Level:       opts.Level,
			TimeFormat:  time.DateTime,
			NoColor:     opts.NoColor,
			ReplaceAttr: replaceAttr,
		})
	} else {
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{
			Level:       opts.Level,
			ReplaceAttr: replaceAttr,
		})
	}

	base := slog.New(handler)
	if opts.Service != "" {
		base = base.With("service", opts.Service)
	}
	return &slogLogger{base: base}
}

// Discard drops everything. Used by tests that do not assert on logs.
func Discard() Logger {
	return New(Options{Output: io.Discard, Level: LevelCritical + 1})
}

func (l *slogLogger) Debug(message string, args ...any) {
	l.base.Debug(message, args...)
}

func (l *slogLogger) Info(message string, args ...any) {
	l.base.Info(message, args...)
}

func (l *slogLogger) Warn(message string, args ...any) {
	l.base.Warn(message, args...)
}

func (l *slogLogger) Error(message string, args ...any) {
	l.base.Error(message, args...)
}

func (l *slogLogger) Critical(message string, args ...any) {
	l.base.Log(context.Background(), LevelCritical, message, args...)
}

// BusinessError records a rejected request at warn level. Nil errors are ignored.
func (l *slogLogger) BusinessError(message string, err error, args ...any) {
	if err == nil {
		return
	}
	l.base.Warn(message, append([]any{tint.Err(err)}, args...)...)
}

// InternalError records a failure the caller could not have caused.
func (l *slogLogger) InternalError(message string, err error, args ...any) {
	if err == nil {
		return
	}
	l.base.Error(message, append([]any{tint.Err(err)}, args...)...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{base: l.base.With(args...)}
}

func parseLevel(value, env string) slog.Level {
	switch normalizeValue(value) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical", "fatal":
		return LevelCritical
	}
	if env == "development" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func parseFormat(value string) string {
	if normalizeValue(value) == FormatText {
		return FormatText
	}
	return FormatJSON
}

func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// replaceAttr names the custom critical level, which slog would print as ERROR+4.
func replaceAttr(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}
	if level, ok := attr.Value.Any().(slog.Level); ok && level == LevelCritical {
		attr.Value = slog.StringValue("CRITICAL")
	}
	return attr
}
