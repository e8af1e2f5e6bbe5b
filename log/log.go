package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// levels accepted by ParseLevel, in the spelling used by NOTIFY_LOG_LEVEL
var levels = map[string]log.Level{
	"debug": log.DebugLevel,
	"info":  log.InfoLevel,
	"warn":  log.WarnLevel,
	"error": log.ErrorLevel,
}

// ParseLevel maps a level name to a charmbracelet level. Unknown names
// fall back to info.
func ParseLevel(name string) log.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return l
	}
	return log.InfoLevel
}

func newHandler(w io.Writer, name string, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          name,
		Level:           level,
	})
}

func NewHandler(name string) slog.Handler {
	return newHandler(os.Stderr, name, log.DebugLevel)
}

func New(name string) *slog.Logger {
	return slog.New(NewHandler(name))
}

// NewWithLevel is New with the minimum level taken from a level name
// such as "warn".
func NewWithLevel(name, level string) *slog.Logger {
	return slog.New(newHandler(os.Stderr, name, ParseLevel(level)))
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(newHandler(io.Discard, "", log.FatalLevel))
}

func NewContext(ctx context.Context, name string) context.Context {
	return IntoContext(ctx, New(name))
}

type ctxKey struct{}

// IntoContext adds a logger to a context. Use FromContext to
// pull the logger out.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns a logger from a context.Context;
// if the passed context is nil, we return the default slog
// logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}

	return slog.Default()
}

// SubLogger derives a new logger from an existing one by appending a suffix
// to its prefix. The level of the base logger is kept.
func SubLogger(base *slog.Logger, suffix string) *slog.Logger {
	if cl, ok := base.Handler().(*log.Logger); ok {
		prefix := cl.GetPrefix()
		if prefix != "" {
			prefix = prefix + "/" + suffix
		} else {
			prefix = suffix
		}
		sub := cl.With()
		sub.SetPrefix(prefix)
		return slog.New(sub)
	}

	// no known handler type
	return slog.New(NewHandler(suffix))
}
