package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/sasswatch/internal/output"
	"github.com/hupe1980/sasswatch/internal/pathmap"
)

// AllOptions configures BuildAll.
type AllOptions struct {
	// Jobs bounds concurrent compilations. Zero or less uses GOMAXPROCS.
	Jobs int

	// DryRun compiles without writing anything.
	DryRun bool

	// Diff, when non-nil, receives a unified diff between each existing
	// output file and its fresh compilation.
	Diff io.Writer

	// Color enables ANSI colors in the diff.
	Color bool
}

// Summary reports the outcome of BuildAll.
type Summary struct {
	Compiled int
	Failed   int
	Partials int
	Changed  int
}

// ErrBuildFailed is returned by BuildAll when at least one source failed to
// compile.
var ErrBuildFailed = errors.New("build failed")

// Sources walks the watch root and returns every compilable source, sorted,
// including those under dot-directories. The number of partials seen is
// returned as well.
func Sources(root string) ([]string, int, error) {
	var (
		sources  []string
		partials int
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		switch pathmap.Classify(path) {
		case pathmap.ClassCompilable:
			sources = append(sources, path)
		case pathmap.ClassPartial:
			partials++
		case pathmap.ClassIgnored:
		}

		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(sources)

	return sources, partials, nil
}

// BuildAll compiles every compilable source under the watch root. Compiler
// failures are reported and counted, and BuildAll then returns
// ErrBuildFailed; a fatal error (see IsFatal) aborts the build immediately.
func (b *Builder) BuildAll(ctx context.Context, opts AllOptions) (Summary, error) {
	sources, partials, err := Sources(b.mapper.WatchRoot())
	if err != nil {
		return Summary{}, err
	}

	if !opts.DryRun {
		if err := b.EnsureOutputRoot(); err != nil {
			return Summary{}, err
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	var w output.Writer = b.writer
	if opts.DryRun {
		w = output.DiscardWriter{}
	}

	var (
		compiled, failed, changed atomic.Int64
		diffMu                    sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, src := range sources {
		g.Go(func() error {
			m, err := b.mapper.Map(src)
			if err != nil {
				failed.Add(1)
				b.console.Errorf("%v", err)

				return nil
			}

			var previous []byte
			if opts.Diff != nil {
				previous, _ = os.ReadFile(m.Output) //nolint:gosec // output tree
			}

			res, err := b.compileMapped(gctx, m, w)
			if err != nil {
				if IsFatal(err) || errors.Is(err, context.Canceled) {
					return err
				}

				failed.Add(1)
				b.console.Errorf("failed to compile %s: %v", src, err)

				return nil
			}

			compiled.Add(1)

			if opts.Diff != nil {
				d, err := output.ComputeDiff(string(previous), string(res.CSS), output.DefaultDiffOptions(filepath.ToSlash(pathmap.OutputPath("", res.Rel))))
				if err != nil {
					return err
				}

				if d.HasDifferences {
					changed.Add(1)

					diffMu.Lock()
					output.WriteDiff(opts.Diff, d, opts.Color)
					diffMu.Unlock()
				}
			}

			return nil
		})
	}

	err = g.Wait()

	sum := Summary{
		Compiled: int(compiled.Load()),
		Failed:   int(failed.Load()),
		Partials: partials,
		Changed:  int(changed.Load()),
	}

	if err != nil {
		return sum, err
	}

	if sum.Failed > 0 {
		return sum, fmt.Errorf("%w: %d of %d file(s) failed", ErrBuildFailed, sum.Failed, len(sources))
	}

	return sum, nil
}
