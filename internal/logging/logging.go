// Package logging initialises a [log/slog] logger from the application
// configuration, provides context-based logger propagation, and prints the
// human-facing status lines of the watch and build commands.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hupe1980/sasswatch/internal/config"
)

type ctxKey struct{}

// Setup creates a *slog.Logger configured according to cfg, writing to stderr,
// and installs it as the process-wide default via slog.SetDefault.
func Setup(cfg *config.Config) *slog.Logger {
	return SetupWithWriter(cfg, os.Stderr)
}

// SetupWithWriter creates a *slog.Logger configured according to cfg, writing
// to w, and installs it as the process-wide default via slog.SetDefault.
// Use this variant in tests to capture or suppress log output.
func SetupWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.EffectiveLogLevel())
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler

	switch cfg.LogFormat {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default: // text
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewContext returns a child context carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from ctx, falling back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}

	return slog.Default()
}

// Console prints timestamped status lines for humans watching a terminal.
// It is safe for concurrent use; the build command reports from several
// goroutines at once.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	now   func() time.Time
}

// NewConsole returns a Console writing to w. When quiet is true only error
// lines are printed. A nil w discards everything.
func NewConsole(w io.Writer, quiet bool) *Console {
	if w == nil {
		w = io.Discard
	}

	return &Console{out: w, quiet: quiet, now: time.Now}
}

// Printf prints a status line unless the console is quiet.
func (c *Console) Printf(format string, args ...any) {
	if c.quiet {
		return
	}

	c.print("", format, args...)
}

// Errorf prints an error line. Error lines are never suppressed.
func (c *Console) Errorf(format string, args ...any) {
	c.print("ERROR: ", format, args...)
}

func (c *Console) print(prefix, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "[%s] %s%s\n", c.now().Format("15:04:05"), prefix, fmt.Sprintf(format, args...))
}
