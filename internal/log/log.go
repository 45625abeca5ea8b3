// Package log builds the structured loggers used by the commands. Records
// go to a size-rotated JSON file and, optionally, to stderr as text.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Dir    string // empty means no log file
	Name   string
	Level  string
	Stderr bool
}

type Logger struct {
	*slog.Logger
	LogFile string
	Start   time.Time

	closer io.Closer
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}

func New(opts Options) (*Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	hopts := &slog.HandlerOptions{Level: lvl}

	var handlers []slog.Handler
	l := &Logger{Start: time.Now()}

	if opts.Dir != "" {
		name := opts.Name
		if name == "" {
			name = "magnav.slog"
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		w := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, name),
			MaxSize:    32, // MB
			MaxBackups: 2,
			MaxAge:     14,
			Compress:   true,
		}
		l.LogFile = w.Filename
		l.closer = w
		handlers = append(handlers, slog.NewJSONHandler(w, hopts))
	}
	if opts.Stderr || len(handlers) == 0 {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, hopts))
	}

	l.Logger = slog.New(fanout(handlers))
	l.Info("logging started",
		slog.Time("start", l.Start),
		slog.String("GOOS", runtime.GOOS),
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("level", lvl.String()))
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func fanout(hs []slog.Handler) slog.Handler {
	if len(hs) == 1 {
		return hs[0]
	}
	return multiHandler(hs)
}

type multiHandler []slog.Handler

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
