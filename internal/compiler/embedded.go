package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bep/godartsass/v2"
)

// Embedded compiles through a single long-running Dart Sass process using
// the embedded protocol. It is safe for concurrent use.
type Embedded struct {
	transpiler *godartsass.Transpiler
	opts       Options
}

// NewEmbedded starts `sass --embedded`. It fails when the binary cannot be
// found or does not speak the embedded protocol.
func NewEmbedded(opts Options) (*Embedded, error) {
	opts = opts.withDefaults()
	logger := opts.Logger

	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: opts.Binary,
		Timeout:                  opts.Timeout,
		LogEventHandler: func(e godartsass.LogEvent) {
			switch e.Type {
			case godartsass.LogEventTypeDebug:
				logger.Debug("sass", slog.String("message", e.Message))
			default:
				logger.Warn("sass", slog.String("message", e.Message))
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("starting dart sass %q: %w", opts.Binary, err)
	}

	return &Embedded{transpiler: t, opts: opts}, nil
}

// Compile implements Compiler.
func (e *Embedded) Compile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := os.ReadFile(path) //nolint:gosec // path comes from the watched tree
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}

	res, err := e.transpiler.Execute(godartsass.Args{
		Source:       string(src),
		URL:          fileURL(path),
		OutputStyle:  outputStyle(e.opts.Style),
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		IncludePaths: loadPaths(filepath.Dir(path), e.opts.LoadPaths),
	})
	if err != nil {
		return nil, executeError(path, err)
	}

	return []byte(res.CSS), nil
}

// executeError classifies a transpiler failure for the source at path. A
// call in flight when the Dart Sass process dies fails with
// io.ErrUnexpectedEOF, every later one with godartsass.ErrShutdown.
func executeError(path string, err error) error {
	if errors.Is(err, godartsass.ErrShutdown) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrStopped, err)
	}

	var sassErr godartsass.SassError
	if errors.As(err, &sassErr) {
		// The caller names the source; only name the file when the error
		// sits in another one, such as an imported partial.
		if u := sassErr.Span.Url; u != "" && u != fileURL(path) {
			return fmt.Errorf("%w: %s: %s", ErrCompile, strings.TrimPrefix(u, "file://"), sassErr.Message)
		}

		return fmt.Errorf("%w: %s", ErrCompile, sassErr.Message)
	}

	return fmt.Errorf("%w: %w", ErrCompile, err)
}

// Version implements Compiler.
func (e *Embedded) Version(context.Context) (string, error) {
	v, err := e.transpiler.Version()
	if err != nil {
		return "", fmt.Errorf("querying dart sass version: %w", err)
	}

	return v.CompilerVersion, nil
}

// Close stops the Dart Sass process.
func (e *Embedded) Close() error {
	return e.transpiler.Close()
}

func outputStyle(s Style) godartsass.OutputStyle {
	if s == StyleExpanded {
		return godartsass.OutputStyleExpanded
	}

	return godartsass.OutputStyleCompressed
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	return (&url.URL{Scheme: "file", Path: p}).String()
}
