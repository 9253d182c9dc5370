package sasswatch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sasswatch/pkg/sasswatch"
)

// upper is a stand-in compiler: it upper-cases the source and rejects
// anything mentioning "broken".
func upper(_ context.Context, path string) ([]byte, error) {
	src, err := os.ReadFile(path) //nolint:gosec // test
	if err != nil {
		return nil, err
	}

	if bytes.Contains(src, []byte("broken")) {
		return nil, errors.New("expected selector")
	}

	return bytes.ToUpper(src), nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sass")
	out := filepath.Join(dir, "public", "css")

	writeFile(t, filepath.Join(src, "site.scss"), "body{}")
	writeFile(t, filepath.Join(src, "pages", "home.scss"), "main{}")
	writeFile(t, filepath.Join(src, "_mixins.scss"), "@mixin x{}")

	sum, err := sasswatch.Build(context.Background(),
		sasswatch.WithWatchRoot(src),
		sasswatch.WithOutputRoot(out),
		sasswatch.WithCompileFunc(upper),
		sasswatch.WithJobs(2),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Compiled)
	assert.Equal(t, 1, sum.Partials)

	got, err := os.ReadFile(filepath.Join(out, "pages", "home.css")) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, "MAIN{}", string(got))
	assert.NoFileExists(t, filepath.Join(out, "_mixins.css"))
}

func TestBuild_Failure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sass")

	writeFile(t, filepath.Join(src, "ok.scss"), "a{}")
	writeFile(t, filepath.Join(src, "bad.scss"), "broken")

	sum, err := sasswatch.Build(context.Background(),
		sasswatch.WithWatchRoot(src),
		sasswatch.WithOutputRoot(filepath.Join(dir, "css")),
		sasswatch.WithCompileFunc(upper),
	)
	require.ErrorIs(t, err, sasswatch.ErrBuildFailed)
	assert.Equal(t, 1, sum.Compiled)
	assert.Equal(t, 1, sum.Failed)
}

func TestBuild_DryRunDiff(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sass")
	out := filepath.Join(dir, "css")

	writeFile(t, filepath.Join(src, "site.scss"), "a{b:c}")
	writeFile(t, filepath.Join(out, "site.css"), "old")

	var diff bytes.Buffer

	sum, err := sasswatch.Build(context.Background(),
		sasswatch.WithWatchRoot(src),
		sasswatch.WithOutputRoot(out),
		sasswatch.WithCompileFunc(upper),
		sasswatch.WithDryRun(),
		sasswatch.WithDiff(&diff),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Changed)
	assert.Contains(t, diff.String(), "-old")
	assert.Contains(t, diff.String(), "+B:C}")

	got, err := os.ReadFile(filepath.Join(out, "site.css")) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestBuild_InvalidStyle(t *testing.T) {
	_, err := sasswatch.Build(context.Background(),
		sasswatch.WithWatchRoot(t.TempDir()),
		sasswatch.WithStyle("nested"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested")
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sass")
	out := filepath.Join(dir, "css")
	require.NoError(t, os.MkdirAll(src, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	status := &syncBuffer{}

	done := make(chan error, 1)
	go func() {
		done <- sasswatch.Watch(ctx,
			sasswatch.WithWatchRoot(src),
			sasswatch.WithOutputRoot(out),
			sasswatch.WithCompileFunc(upper),
			sasswatch.WithStatus(status),
		)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(status.String(), "watching for changes")
	}, 2*time.Second, 10*time.Millisecond)
	assert.DirExists(t, out)

	writeFile(t, filepath.Join(src, "components", "button.scss"), ".btn{}")

	target := filepath.Join(out, "components", "button.css")
	require.Eventually(t, func() bool {
		got, err := os.ReadFile(target) //nolint:gosec // test
		return err == nil && string(got) == ".BTN{}"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_CompilerStopped(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sass")
	require.NoError(t, os.MkdirAll(src, 0o755))

	status := &syncBuffer{}

	stopped := func(_ context.Context, _ string) ([]byte, error) {
		return nil, fmt.Errorf("%w: connection is shut down", sasswatch.ErrCompilerStopped)
	}

	done := make(chan error, 1)
	go func() {
		done <- sasswatch.Watch(context.Background(),
			sasswatch.WithWatchRoot(src),
			sasswatch.WithOutputRoot(filepath.Join(dir, "css")),
			sasswatch.WithCompileFunc(stopped),
			sasswatch.WithStatus(status),
		)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(status.String(), "watching for changes")
	}, 2*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(src, "site.scss"), "a{}")

	select {
	case err := <-done:
		require.ErrorIs(t, err, sasswatch.ErrCompilerStopped)
		assert.NotContains(t, status.String(), "failed to compile")
	case <-time.After(3 * time.Second):
		t.Fatal("watch kept running after the compiler stopped")
	}
}

func TestWatch_MissingWatchRoot(t *testing.T) {
	dir := t.TempDir()

	err := sasswatch.Watch(context.Background(),
		sasswatch.WithWatchRoot(filepath.Join(dir, "missing")),
		sasswatch.WithOutputRoot(filepath.Join(dir, "css")),
		sasswatch.WithCompileFunc(upper),
	)
	require.Error(t, err)
	assert.DirExists(t, filepath.Join(dir, "css"), "output root is created before subscribing")
}
