package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/sasswatch/internal/compiler"
	"github.com/hupe1980/sasswatch/internal/config"
)

// newCompiler starts the configured compiler backend and enforces the
// sass-version constraint.
func newCompiler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (compiler.Compiler, error) {
	style, err := compiler.ParseStyle(cfg.Style)
	if err != nil {
		return nil, err
	}

	c, err := compiler.New(cfg.Compiler, compiler.Options{
		Binary:    cfg.SassBinary,
		Style:     style,
		LoadPaths: append([]string{cfg.WatchRoot}, cfg.LoadPaths...),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("starting %s compiler: %w", cfg.Compiler, err)
	}

	v, err := compiler.CheckVersion(ctx, c, cfg.SassVersion)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	if v != "" {
		logger.Debug("compiler version accepted",
			slog.String("version", v),
			slog.String("constraint", cfg.SassVersion))
	}

	return c, nil
}
