// Package compiler turns a single .scss file into CSS. It hides the Dart
// Sass backends behind the [Compiler] interface so the watch loop and the
// one-shot build treat compilation as an opaque synchronous call.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrCompile wraps every error reported by a backend for a source file,
// such as a syntax error. It is a per-file failure, never a fatal one.
var ErrCompile = errors.New("compiling stylesheet")

// ErrStopped reports that the compiler can no longer compile anything, for
// instance because the Dart Sass process exited. Unlike ErrCompile it is
// fatal to the watch loop.
var ErrStopped = errors.New("sass compiler stopped")

// Style is a Sass output style.
type Style string

// Supported output styles.
const (
	StyleCompressed Style = "compressed"
	StyleExpanded   Style = "expanded"
)

// ParseStyle converts a config value into a Style.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleCompressed, StyleExpanded:
		return Style(s), nil
	default:
		return "", fmt.Errorf("unknown output style %q", s)
	}
}

// Backend names accepted by New.
const (
	BackendEmbedded = "embedded"
	BackendCLI      = "cli"
)

// Compiler compiles Sass sources.
type Compiler interface {
	// Compile compiles the source file at path and returns the CSS.
	Compile(ctx context.Context, path string) ([]byte, error)

	// Version reports the Dart Sass compiler version.
	Version(ctx context.Context) (string, error)

	// Close releases the backend. Compile must not be called afterwards.
	Close() error
}

// Options configures a backend.
type Options struct {
	// Binary is the Dart Sass executable. Defaults to "sass".
	Binary string

	// Style is the output style. Defaults to StyleCompressed.
	Style Style

	// LoadPaths are searched by @use and @import after the directory of
	// the file being compiled.
	LoadPaths []string

	// Timeout bounds a single embedded compilation. Zero uses the
	// library default.
	Timeout time.Duration

	// Logger receives @warn, @debug and deprecation messages.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Binary == "" {
		o.Binary = "sass"
	}

	if o.Style == "" {
		o.Style = StyleCompressed
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}

// New starts the named backend.
func New(backend string, opts Options) (Compiler, error) {
	switch backend {
	case BackendEmbedded, "":
		return NewEmbedded(opts)
	case BackendCLI:
		return NewCLI(opts)
	default:
		return nil, fmt.Errorf("unknown compiler backend %q", backend)
	}
}

// Func adapts a plain function to the Compiler interface. Version reports
// "0.0.0" and Close is a no-op.
type Func func(ctx context.Context, path string) ([]byte, error)

// Compile calls f.
func (f Func) Compile(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

// Version implements Compiler.
func (f Func) Version(context.Context) (string, error) { return "0.0.0", nil }

// Close implements Compiler.
func (f Func) Close() error { return nil }

// loadPaths puts the source directory in front of the configured paths.
func loadPaths(srcDir string, extra []string) []string {
	paths := make([]string, 0, len(extra)+1)
	paths = append(paths, srcDir)

	for _, p := range extra {
		if p != "" && p != srcDir {
			paths = append(paths, p)
		}
	}

	return paths
}
