// Package build compiles Sass sources from the watch root into CSS files
// under the output root. It serves both the watch loop, one changed file at
// a time, and the one-shot build of a whole tree.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/sasswatch/internal/compiler"
	"github.com/hupe1980/sasswatch/internal/logging"
	"github.com/hupe1980/sasswatch/internal/output"
	"github.com/hupe1980/sasswatch/internal/pathmap"
)

// Options configures a Builder.
type Options struct {
	// WatchRoot is the source tree.
	WatchRoot string

	// OutputRoot is the destination tree.
	OutputRoot string

	// Compiler compiles a single file. Required.
	Compiler compiler.Compiler

	// Writer stores compiled CSS. Defaults to an output.FileWriter.
	Writer output.Writer

	// Console receives status lines. Defaults to a discarding console.
	Console *logging.Console

	// Logger is used for structured diagnostics.
	Logger *slog.Logger
}

// Builder compiles source files and writes their CSS.
type Builder struct {
	mapper   *pathmap.Mapper
	compiler compiler.Compiler
	writer   output.Writer
	console  *logging.Console
	logger   *slog.Logger
}

// New creates a Builder.
func New(opts Options) (*Builder, error) {
	if opts.Compiler == nil {
		return nil, errors.New("build: compiler is required")
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Writer == nil {
		opts.Writer = output.NewFileWriter(output.WithLogger(opts.Logger))
	}

	if opts.Console == nil {
		opts.Console = logging.NewConsole(nil, true)
	}

	return &Builder{
		mapper:   pathmap.NewMapper(opts.WatchRoot, opts.OutputRoot),
		compiler: opts.Compiler,
		writer:   opts.Writer,
		console:  opts.Console,
		logger:   opts.Logger,
	}, nil
}

// Mapper returns the path mapper used by the Builder.
func (b *Builder) Mapper() *pathmap.Mapper { return b.mapper }

// EnsureOutputRoot creates the output root and any missing ancestors.
func (b *Builder) EnsureOutputRoot() error {
	return output.EnsureDir(b.mapper.OutputRoot(), 0o755)
}

// Result describes one successful compilation.
type Result struct {
	pathmap.Mapping

	// CSS is the compiled output.
	CSS []byte
}

// Compile maps path to its output, compiles it and writes the CSS. Mapping
// and compiler errors leave the output untouched; write errors wrap
// output.ErrWrite.
func (b *Builder) Compile(ctx context.Context, path string) (*Result, error) {
	m, err := b.mapper.Map(path)
	if err != nil {
		return nil, err
	}

	return b.compileMapped(ctx, m, b.writer)
}

func (b *Builder) compileMapped(ctx context.Context, m pathmap.Mapping, w output.Writer) (*Result, error) {
	b.console.Printf("compiling %s -> %s", m.Source, m.Output)

	css, err := b.compiler.Compile(ctx, m.Source)
	if err != nil {
		return nil, err
	}

	if err := w.Write(m.Output, css); err != nil {
		return nil, err
	}

	b.logger.Debug("compiled",
		slog.String("source", m.Source),
		slog.String("output", m.Output),
		slog.Int("bytes", len(css)),
	)

	return &Result{Mapping: m, CSS: css}, nil
}

// HandleChange is the watch loop's per-event handler. Mapping and compiler
// failures are reported on the console and swallowed; only fatal errors
// (see IsFatal) are returned.
func (b *Builder) HandleChange(ctx context.Context, path string) error {
	res, err := b.Compile(ctx, path)

	switch {
	case err == nil:
		b.console.Printf("compiled %s", res.Output)
		return nil
	case IsFatal(err):
		return fmt.Errorf("processing %s: %w", path, err)
	case errors.Is(err, pathmap.ErrResolve):
		b.console.Errorf("failed to resolve %s: %v", path, err)
	case errors.Is(err, pathmap.ErrOutsideRoot):
		b.console.Errorf("file %s is not under %s", path, b.mapper.WatchRoot())
	case errors.Is(err, context.Canceled):
		return nil
	default:
		b.console.Errorf("failed to compile %s: %v", path, err)
	}

	return nil
}

// IsFatal reports whether err must stop the watch loop: the output tree
// could not be written, or the compiler can no longer run.
func IsFatal(err error) bool {
	return errors.Is(err, output.ErrWrite) || errors.Is(err, compiler.ErrStopped)
}
