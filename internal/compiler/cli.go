package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// CLI compiles by running the sass executable once per file, the same way
// `sass --style=compressed --no-source-map in.scss` is used from scripts.
type CLI struct {
	path string
	opts Options
}

// NewCLI resolves the sass executable on PATH.
func NewCLI(opts Options) (*CLI, error) {
	opts = opts.withDefaults()

	p, err := exec.LookPath(opts.Binary)
	if err != nil {
		return nil, fmt.Errorf("locating %q: %w", opts.Binary, err)
	}

	return &CLI{path: p, opts: opts}, nil
}

// Args returns the command-line arguments used to compile path.
func (c *CLI) Args(path string) []string {
	args := []string{"--style=" + string(c.opts.Style), "--no-source-map"}

	for _, lp := range loadPaths(filepath.Dir(path), c.opts.LoadPaths) {
		args = append(args, "--load-path="+lp)
	}

	return append(args, path)
}

// Compile implements Compiler. The CSS is read from stdout; on failure the
// error carries sass's stderr.
func (c *CLI) Compile(ctx context.Context, path string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.path, c.Args(path)...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}

		return nil, fmt.Errorf("%w: %s", ErrCompile, msg)
	}

	return stdout.Bytes(), nil
}

// Version implements Compiler by running `sass --version`.
func (c *CLI) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, c.path, "--version").Output() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("running %s --version: %w", c.path, err)
	}

	// dart-sass prints e.g. "1.77.8 compiled with dart2js 3.4.4".
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty version output from %s", c.path)
	}

	return fields[0], nil
}

// Close implements Compiler.
func (c *CLI) Close() error { return nil }
