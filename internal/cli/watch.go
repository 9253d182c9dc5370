package cli

import (
	"github.com/lithammer/dedent"
	"github.com/spf13/cobra"

	"github.com/hupe1980/sasswatch/internal/build"
	"github.com/hupe1980/sasswatch/internal/config"
	"github.com/hupe1980/sasswatch/internal/logging"
	"github.com/hupe1980/sasswatch/internal/output"
	"github.com/hupe1980/sasswatch/internal/watch"
)

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the Sass tree and compile changed files",
		Long: dedent.Dedent(`
			Watch subscribes to the watch root recursively and compiles each
			created or modified .scss file into the matching path under the
			output root, one file at a time in the order changes arrive.

			The output root is created up front. Partials are skipped.
			Compiler errors are printed and watching continues; a failure to
			create an output directory or write a file ends the watcher with
			exit code 1. SIGINT and SIGTERM stop it cleanly.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd)
		},
	}
}

func runWatch(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)
	console := logging.NewConsole(cmd.ErrOrStderr(), cfg.Quiet)

	if err := output.EnsureDir(cfg.OutputRoot, 0o755); err != nil {
		return &ExitError{Code: 1, Err: err}
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

	opts := watch.Options{
		WatchRoot: cfg.WatchRoot,
		Debounce:  cfg.Debounce,
		Logger:    logger,
		Console:   console,
	}

	if err := watch.Run(ctx, opts, b.HandleChange); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return nil
}
