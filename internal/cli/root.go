// Package cli implements the cobra command tree for sasswatch.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lithammer/dedent"
	"github.com/spf13/cobra"

	"github.com/hupe1980/sasswatch/internal/config"
	"github.com/hupe1980/sasswatch/internal/logging"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
// The error, if any, is printed to stderr.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return 1
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached. Without a subcommand it runs the watch loop.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "sasswatch",
		Short: "Watch a Sass tree and compile changed files to CSS",
		Long: dedent.Dedent(`
			sasswatch watches a directory of SCSS sources and compiles every
			created or modified stylesheet into a mirrored CSS tree.

			Partials (files starting with an underscore) are never compiled on
			their own. Compiler errors are reported and the watcher keeps
			running; failures to write output stop it.

			Run without a subcommand to start watching ./sass and writing to
			./css.`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			logger := logging.Setup(cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("watchRoot", cfg.WatchRoot),
				slog.String("outputRoot", cfg.OutputRoot),
				slog.String("compiler", cfg.Compiler),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd)
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .sasswatch.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	// Layout and compiler flags, shared by watch and build.
	pf.String("watch-root", config.DefaultWatchRoot, "directory holding the .scss sources")
	pf.String("output-root", config.DefaultOutputRoot, "directory receiving the compiled .css files")
	pf.String("style", config.StyleCompressed, "output style: compressed, expanded")
	pf.String("compiler", config.CompilerEmbedded, "compiler backend: embedded, cli")
	pf.String("sass-binary", config.DefaultSassBinary, "Dart Sass executable")
	pf.StringSlice("load-paths", nil, "extra directories for @use and @import")
	pf.Duration("debounce", 0, "quiet period per file before compiling (0 disables)")
	pf.String("sass-version", "", "semver constraint the compiler version must satisfy")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	// Register subcommands.
	cmd.AddCommand(
		newWatchCommand(),
		newBuildCommand(),
		newConfigCommand(),
		newVersionCommand(),
		newCompletionCommand(),
	)

	return cmd
}
