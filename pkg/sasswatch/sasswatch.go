// Package sasswatch provides a public Go API for compiling a tree of SCSS
// sources into a mirrored tree of CSS files, once or continuously.
//
// This package exposes the sasswatch build and watch loops as a library,
// allowing programmatic use without the CLI.
//
// One-shot build:
//
//	sum, err := sasswatch.Build(ctx,
//	    sasswatch.WithWatchRoot("assets/sass"),
//	    sasswatch.WithOutputRoot("public/css"),
//	)
//
// Watching until ctx is cancelled:
//
//	err := sasswatch.Watch(ctx, sasswatch.WithStatus(os.Stderr))
package sasswatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/sasswatch/internal/build"
	"github.com/hupe1980/sasswatch/internal/compiler"
	"github.com/hupe1980/sasswatch/internal/config"
	"github.com/hupe1980/sasswatch/internal/logging"
	"github.com/hupe1980/sasswatch/internal/output"
	"github.com/hupe1980/sasswatch/internal/watch"
)

// ErrBuildFailed is returned by Build when at least one source failed to
// compile.
var ErrBuildFailed = build.ErrBuildFailed

// ErrCompilerStopped reports that the compiler can no longer run. A
// CompileFunc may return an error wrapping it; Build and Watch then stop.
var ErrCompilerStopped = compiler.ErrStopped

// CompileFunc compiles the SCSS file at path and returns its CSS. It
// replaces the Dart Sass backends, which is mostly useful in tests.
type CompileFunc func(ctx context.Context, path string) ([]byte, error)

// Option configures Build and Watch.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	watchRoot  string
	outputRoot string

	// Compiler.
	backend     string
	sassBinary  string
	style       string
	loadPaths   []string
	sassVersion string
	compile     CompileFunc

	// Loops.
	debounce time.Duration
	jobs     int
	dryRun   bool
	diff     io.Writer

	logger *slog.Logger
	status io.Writer
}

// WithWatchRoot sets the source directory (default: "./sass").
func WithWatchRoot(dir string) Option { return func(o *options) { o.watchRoot = dir } }

// WithOutputRoot sets the destination directory (default: "./css").
func WithOutputRoot(dir string) Option { return func(o *options) { o.outputRoot = dir } }

// WithBackend selects "embedded" (default) or "cli".
func WithBackend(name string) Option { return func(o *options) { o.backend = name } }

// WithSassBinary sets the Dart Sass executable (default: "sass").
func WithSassBinary(path string) Option { return func(o *options) { o.sassBinary = path } }

// WithStyle sets the output style, "compressed" (default) or "expanded".
func WithStyle(style string) Option { return func(o *options) { o.style = style } }

// WithLoadPaths adds directories searched by @use and @import.
func WithLoadPaths(dirs ...string) Option {
	return func(o *options) { o.loadPaths = append(o.loadPaths, dirs...) }
}

// WithSassVersion requires the compiler version to satisfy a semver
// constraint such as ">= 1.70.0".
func WithSassVersion(constraint string) Option {
	return func(o *options) { o.sassVersion = constraint }
}

// WithCompileFunc replaces the Dart Sass backends with fn.
func WithCompileFunc(fn CompileFunc) Option { return func(o *options) { o.compile = fn } }

// WithDebounce coalesces rapid changes of the same file in Watch.
func WithDebounce(d time.Duration) Option { return func(o *options) { o.debounce = d } }

// WithJobs bounds concurrent compilations in Build.
func WithJobs(n int) Option { return func(o *options) { o.jobs = n } }

// WithDryRun makes Build compile without writing.
func WithDryRun() Option { return func(o *options) { o.dryRun = true } }

// WithDiff makes Build write a unified diff of every changed output to w.
func WithDiff(w io.Writer) Option { return func(o *options) { o.diff = w } }

// WithLogger sets the structured logger (default: discard).
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithStatus sets the writer for status lines (default: discard).
func WithStatus(w io.Writer) Option { return func(o *options) { o.status = w } }

func (o *options) applyDefaults() {
	d := config.Default()

	if o.watchRoot == "" {
		o.watchRoot = d.WatchRoot
	}

	if o.outputRoot == "" {
		o.outputRoot = d.OutputRoot
	}

	if o.backend == "" {
		o.backend = d.Compiler
	}

	if o.sassBinary == "" {
		o.sassBinary = d.SassBinary
	}

	if o.style == "" {
		o.style = d.Style
	}

	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Summary reports the outcome of Build.
type Summary struct {
	Compiled int
	Failed   int
	Partials int
	Changed  int
}

// Build compiles every non-partial .scss file under the watch root.
func Build(ctx context.Context, opts ...Option) (*Summary, error) {
	o := newOptions(opts)

	b, closeFn, err := o.builder(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	sum, err := b.BuildAll(ctx, build.AllOptions{
		Jobs:   o.jobs,
		DryRun: o.dryRun,
		Diff:   o.diff,
	})

	return &Summary{
		Compiled: sum.Compiled,
		Failed:   sum.Failed,
		Partials: sum.Partials,
		Changed:  sum.Changed,
	}, err
}

// Watch creates the output root, then compiles each created or modified
// source until ctx is cancelled. It returns early on a write failure or
// when the compiler has stopped.
func Watch(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)

	if err := output.EnsureDir(o.outputRoot, 0o755); err != nil {
		return err
	}

	b, closeFn, err := o.builder(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	return watch.Run(ctx, watch.Options{
		WatchRoot: o.watchRoot,
		Debounce:  o.debounce,
		Logger:    o.logger,
		Console:   o.console(),
	}, b.HandleChange)
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	o.applyDefaults()

	return o
}

func (o *options) console() *logging.Console {
	return logging.NewConsole(o.status, o.status == nil)
}

func (o *options) compiler(ctx context.Context) (compiler.Compiler, error) {
	if o.compile != nil {
		return compiler.Func(o.compile), nil
	}

	style, err := compiler.ParseStyle(o.style)
	if err != nil {
		return nil, err
	}

	c, err := compiler.New(o.backend, compiler.Options{
		Binary:    o.sassBinary,
		Style:     style,
		LoadPaths: append([]string{o.watchRoot}, o.loadPaths...),
		Logger:    o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("starting %s compiler: %w", o.backend, err)
	}

	if _, err := compiler.CheckVersion(ctx, c, o.sassVersion); err != nil {
		return nil, errors.Join(err, c.Close())
	}

	return c, nil
}

func (o *options) builder(ctx context.Context) (*build.Builder, func(), error) {
	c, err := o.compiler(ctx)
	if err != nil {
		return nil, nil, err
	}

	b, err := build.New(build.Options{
		WatchRoot:  o.watchRoot,
		OutputRoot: o.outputRoot,
		Compiler:   c,
		Console:    o.console(),
		Logger:     o.logger,
	})
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}

	return b, func() { _ = c.Close() }, nil
}
