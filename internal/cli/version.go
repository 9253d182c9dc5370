package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sasswatch/internal/config"
	"github.com/hupe1980/sasswatch/internal/logging"
	"github.com/hupe1980/sasswatch/internal/version"
)

func newVersionCommand() *cobra.Command {
	var (
		jsonOutput bool
		probeSass  bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: "Display the version, git commit, build date, Go version, and platform. " +
			"With --sass, also start the configured compiler and report its version.",
		Args: cobra.NoArgs,
		// Override parent PersistentPreRunE; version needs no config unless probing.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			if probeSass {
				v, err := sassVersion(cmd)
				if err != nil {
					return err
				}

				info = info.WithSass(v)
			}

			if jsonOutput {
				j, err := info.JSON()
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), j)

				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())

			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")
	cmd.Flags().BoolVar(&probeSass, "sass", false, "also report the Sass compiler version")

	return cmd
}

func sassVersion(cmd *cobra.Command) (string, error) {
	cfgFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cmd, cfgFile)
	if err != nil {
		return "", &ExitError{Code: 2, Err: err}
	}

	logger := logging.Setup(cfg)

	c, err := newCompiler(cmd.Context(), cfg, logger)
	if err != nil {
		return "", &ExitError{Code: 1, Err: err}
	}
	defer c.Close()

	v, err := c.Version(cmd.Context())
	if err != nil {
		return "", &ExitError{Code: 1, Err: fmt.Errorf("querying compiler version: %w", err)}
	}

	return v, nil
}
