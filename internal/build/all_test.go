package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sasswatch/internal/compiler"
	"github.com/hupe1980/sasswatch/internal/logging"
)

func TestSources(t *testing.T) {
	p := newProject(t)
	p.write(t, "site.scss", "")
	p.write(t, "components/button.scss", "")
	p.write(t, "_mixins.scss", "")
	p.write(t, "base/_reset.scss", "")
	p.write(t, "notes.txt", "")
	p.write(t, ".theme/main.scss", "")
	p.write(t, ".theme/_tokens.scss", "")

	sources, partials, err := Sources(p.watchRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(p.watchRoot, ".theme", "main.scss"),
		filepath.Join(p.watchRoot, "components", "button.scss"),
		filepath.Join(p.watchRoot, "site.scss"),
	}, sources)
	assert.Equal(t, 3, partials)
}

func TestSources_MissingRoot(t *testing.T) {
	_, _, err := Sources(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorContains(t, err, "walking")
}

func TestBuildAll(t *testing.T) {
	p := newProject(t)
	p.write(t, "site.scss", "body { margin: 0; }")
	p.write(t, "components/button.scss", ".btn { color: red; }")
	p.write(t, "_mixins.scss", "@mixin x {}")

	var calls atomic.Int32

	b, err := New(Options{
		WatchRoot:  p.watchRoot,
		OutputRoot: p.outputRoot,
		Compiler:   fakeCompiler(&calls),
	})
	require.NoError(t, err)

	sum, err := b.BuildAll(context.Background(), AllOptions{Jobs: 2})
	require.NoError(t, err)
	assert.Equal(t, Summary{Compiled: 2, Partials: 1}, sum)
	assert.Equal(t, int32(2), calls.Load())

	assert.FileExists(t, filepath.Join(p.outputRoot, "site.css"))
	assert.FileExists(t, filepath.Join(p.outputRoot, "components", "button.css"))
	assert.NoFileExists(t, filepath.Join(p.outputRoot, "_mixins.css"))
}

func TestBuildAll_CompileFailure(t *testing.T) {
	p := newProject(t)
	p.write(t, "site.scss", "body { margin: 0; }")
	p.write(t, "broken.scss", "body { margin: invalid")

	var out bytes.Buffer
	b := newTestBuilder(t, p, &out)

	sum, err := b.BuildAll(context.Background(), AllOptions{})
	require.ErrorIs(t, err, ErrBuildFailed)
	assert.Equal(t, 1, sum.Compiled)
	assert.Equal(t, 1, sum.Failed)

	line := errorLine(t, out.String())
	assert.Contains(t, line, "broken.scss")
	assert.Equal(t, 1, strings.Count(line, "broken.scss"), line)
	assert.FileExists(t, filepath.Join(p.outputRoot, "site.css"))
	assert.NoFileExists(t, filepath.Join(p.outputRoot, "broken.css"))
}

func TestBuildAll_DryRunWithDiff(t *testing.T) {
	p := newProject(t)
	p.write(t, "site.scss", "a { color: blue; }")
	p.write(t, "same.scss", "b { margin: 0; }")

	require.NoError(t, os.MkdirAll(p.outputRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p.outputRoot, "site.css"), []byte("a{color:red;}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(p.outputRoot, "same.css"), []byte("b{margin:0;}"), 0o644))

	b, err := New(Options{
		WatchRoot:  p.watchRoot,
		OutputRoot: p.outputRoot,
		Compiler:   fakeCompiler(nil),
		Console:    logging.NewConsole(nil, true),
	})
	require.NoError(t, err)

	var diff bytes.Buffer

	sum, err := b.BuildAll(context.Background(), AllOptions{DryRun: true, Diff: &diff})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Compiled)
	assert.Equal(t, 1, sum.Changed)

	assert.Contains(t, diff.String(), "--- a/site.css")
	assert.Contains(t, diff.String(), "-color:red;")
	assert.Contains(t, diff.String(), "+color:blue;")
	assert.NotContains(t, diff.String(), "same.css")

	got, err := os.ReadFile(filepath.Join(p.outputRoot, "site.css")) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, "a{color:red;}", string(got), "dry run writes nothing")
}

func TestBuildAll_DryRunDoesNotCreateOutputRoot(t *testing.T) {
	p := newProject(t)
	p.write(t, "site.scss", "a{}")

	b := newTestBuilder(t, p, nil)

	_, err := b.BuildAll(context.Background(), AllOptions{DryRun: true})
	require.NoError(t, err)
	assert.NoDirExists(t, p.outputRoot)
}

func TestBuildAll_WriteFailureAborts(t *testing.T) {
	p := newProject(t)
	p.write(t, "site.scss", "a{}")
	require.NoError(t, os.WriteFile(p.outputRoot, nil, 0o644))

	b := newTestBuilder(t, p, nil)

	_, err := b.BuildAll(context.Background(), AllOptions{})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestBuildAll_CompilerStoppedAborts(t *testing.T) {
	p := newProject(t)
	p.write(t, "a.scss", "a{}")
	p.write(t, "b.scss", "b{}")

	var out bytes.Buffer

	b, err := New(Options{
		WatchRoot:  p.watchRoot,
		OutputRoot: p.outputRoot,
		Compiler: compiler.Func(func(_ context.Context, _ string) ([]byte, error) {
			return nil, fmt.Errorf("%w: connection is shut down", compiler.ErrStopped)
		}),
		Console: logging.NewConsole(&out, false),
	})
	require.NoError(t, err)

	sum, err := b.BuildAll(context.Background(), AllOptions{Jobs: 1})
	require.ErrorIs(t, err, compiler.ErrStopped)
	assert.NotErrorIs(t, err, ErrBuildFailed)
	assert.Zero(t, sum.Compiled)
	assert.Zero(t, sum.Failed)
	assert.NotContains(t, out.String(), "failed to compile")
}
