// Package config provides configuration management for sasswatch.
//
// Configuration is loaded from four sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SASSWATCH_ prefix)
//  3. Config file (.sasswatch.yaml)
//  4. Built-in defaults
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Supported Sass output styles.
const (
	StyleCompressed = "compressed"
	StyleExpanded   = "expanded"
)

// Supported compiler backends.
const (
	// CompilerEmbedded talks to a long-running Dart Sass process over the
	// embedded protocol.
	CompilerEmbedded = "embedded"

	// CompilerCLI runs the sass executable once per file.
	CompilerCLI = "cli"
)

// Default directory layout, relative to the working directory.
const (
	DefaultWatchRoot  = "./sass"
	DefaultOutputRoot = "./css"
	DefaultSassBinary = "sass"
)

// Config represents the global configuration for sasswatch.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel" yaml:"log-level"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat" yaml:"log-format"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor" yaml:"no-color"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet" yaml:"quiet"`

	// WatchRoot is the directory tree holding the .scss sources.
	WatchRoot string `mapstructure:"watch-root" json:"watchRoot" yaml:"watch-root"`

	// OutputRoot is the directory tree receiving the compiled .css files.
	OutputRoot string `mapstructure:"output-root" json:"outputRoot" yaml:"output-root"`

	// Style is the Sass output style: compressed or expanded.
	Style string `mapstructure:"style" json:"style" yaml:"style"`

	// Compiler selects the compiler backend: embedded or cli.
	Compiler string `mapstructure:"compiler" json:"compiler" yaml:"compiler"`

	// SassBinary is the Dart Sass executable name or path.
	SassBinary string `mapstructure:"sass-binary" json:"sassBinary" yaml:"sass-binary"`

	// LoadPaths are extra directories searched by @use and @import.
	LoadPaths []string `mapstructure:"load-paths" json:"loadPaths" yaml:"load-paths"`

	// Debounce coalesces rapid changes of the same file. Zero disables
	// coalescing and every event is compiled.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`

	// SassVersion is an optional semver constraint the compiler version
	// must satisfy, e.g. ">= 1.70.0".
	SassVersion string `mapstructure:"sass-version" json:"sassVersion" yaml:"sass-version,omitempty"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(); not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-" yaml:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:   LogLevelInfo,
		LogFormat:  LogFormatText,
		NoColor:    false,
		Quiet:      false,
		WatchRoot:  DefaultWatchRoot,
		OutputRoot: DefaultOutputRoot,
		Style:      StyleCompressed,
		Compiler:   CompilerEmbedded,
		SassBinary: DefaultSassBinary,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	switch c.Style {
	case StyleCompressed, StyleExpanded:
		// valid
	default:
		return fmt.Errorf("invalid style %q: must be one of compressed, expanded", c.Style)
	}

	switch c.Compiler {
	case CompilerEmbedded, CompilerCLI:
		// valid
	default:
		return fmt.Errorf("invalid compiler %q: must be one of embedded, cli", c.Compiler)
	}

	if strings.TrimSpace(c.WatchRoot) == "" {
		return errors.New("watch-root must not be empty")
	}

	if strings.TrimSpace(c.OutputRoot) == "" {
		return errors.New("output-root must not be empty")
	}

	if strings.TrimSpace(c.SassBinary) == "" {
		return errors.New("sass-binary must not be empty")
	}

	if c.Debounce < 0 {
		return fmt.Errorf("invalid debounce %s: must not be negative", c.Debounce)
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", d.NoColor)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("watch-root", d.WatchRoot)
	v.SetDefault("output-root", d.OutputRoot)
	v.SetDefault("style", d.Style)
	v.SetDefault("compiler", d.Compiler)
	v.SetDefault("sass-binary", d.SassBinary)
	v.SetDefault("load-paths", []string{})
	v.SetDefault("debounce", time.Duration(0))
	v.SetDefault("sass-version", "")
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("SASSWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".sasswatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "sasswatch"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
