package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/lithammer/dedent"
	"github.com/spf13/cobra"

	"github.com/hupe1980/sasswatch/internal/build"
	"github.com/hupe1980/sasswatch/internal/config"
	"github.com/hupe1980/sasswatch/internal/logging"
)

type buildOptions struct {
	dryRun bool
	diff   bool
	jobs   int
}

func newBuildCommand() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile every stylesheet under the watch root once",
		Long: dedent.Dedent(`
			Build walks the watch root and compiles every .scss file that is
			not a partial, using the same path mapping as the watcher. Sources
			under dot-directories are included.

			Use --dry-run to compile without writing and --diff to print a
			unified diff between each existing CSS file and its fresh
			compilation. The command exits with code 1 when any file fails.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "compile without writing output")
	f.BoolVar(&opts.diff, "diff", false, "print a unified diff against the existing output")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "concurrent compilations (default: number of CPUs)")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)
	console := logging.NewConsole(cmd.ErrOrStderr(), cfg.Quiet)

	if opts.jobs < 0 {
		return &ExitError{Code: 2, Err: fmt.Errorf("invalid --jobs %d: must not be negative", opts.jobs)}
	}

	c, err := newCompiler(ctx, cfg, logger)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	defer c.Close()

	b, err := build.New(build.Options{
		WatchRoot:  cfg.WatchRoot,
		OutputRoot: cfg.OutputRoot,
		Compiler:   c,
		Console:    console,
		Logger:     logger,
	})
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	allOpts := build.AllOptions{
		Jobs:   opts.jobs,
		DryRun: opts.dryRun,
		Color:  !cfg.NoColor,
	}

	if opts.diff {
		allOpts.Diff = cmd.OutOrStdout()
	}

	sum, err := b.BuildAll(ctx, allOpts)

	printBuildSummary(cmd.ErrOrStderr(), sum, opts.dryRun, cfg.Quiet)

	if err != nil {
		if errors.Is(err, build.ErrBuildFailed) {
			return &ExitError{Code: 1, Err: err}
		}

		return &ExitError{Code: 1, Err: fmt.Errorf("building %s: %w", cfg.WatchRoot, err)}
	}

	return nil
}

func printBuildSummary(w io.Writer, sum build.Summary, dryRun, quiet bool) {
	if quiet {
		return
	}

	verb := "compiled"
	if dryRun {
		verb = "compiled (dry-run)"
	}

	_, _ = fmt.Fprintf(w, "%s %d file(s), %d failed, %d partial(s) skipped", verb, sum.Compiled, sum.Failed, sum.Partials)

	if sum.Changed > 0 {
		_, _ = fmt.Fprintf(w, ", %d changed", sum.Changed)
	}

	_, _ = fmt.Fprintln(w)
}
