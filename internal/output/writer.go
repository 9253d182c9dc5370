// Package output writes compiled CSS into the output tree and renders
// unified diffs between an existing artifact and a fresh compilation.
package output

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrWrite marks a failure to create an output directory or write an
// output file. The watch loop treats it as fatal.
var ErrWrite = errors.New("writing output")

// Writer is the interface for CSS output destinations.
type Writer interface {
	// Write stores data as the content of the artifact at path.
	Write(path string, data []byte) error
}

// FileWriter writes artifacts to disk, creating parent directories as
// needed and overwriting existing files.
type FileWriter struct {
	perm    os.FileMode
	dirPerm os.FileMode
	logger  *slog.Logger
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithPermissions overrides the default file permissions (0644).
func WithPermissions(perm os.FileMode) FileWriterOption {
	return func(fw *FileWriter) {
		fw.perm = perm
	}
}

// WithLogger sets a logger for the FileWriter.
func WithLogger(logger *slog.Logger) FileWriterOption {
	return func(fw *FileWriter) {
		fw.logger = logger
	}
}

// NewFileWriter creates a FileWriter.
func NewFileWriter(opts ...FileWriterOption) *FileWriter {
	fw := &FileWriter{
		perm:    0o644,
		dirPerm: 0o755,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw
}

// Write creates the parent directories of path and writes data to it.
// Errors wrap ErrWrite.
func (fw *FileWriter) Write(path string, data []byte) error {
	if err := EnsureDir(filepath.Dir(path), fw.dirPerm); err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		fw.logger.Debug("overwriting existing file", slog.String("path", path))
	}

	if err := os.WriteFile(path, data, fw.perm); err != nil {
		return fmt.Errorf("%w: writing file %s: %w", ErrWrite, path, err)
	}

	return nil
}

// EnsureDir creates dir and any missing ancestors. An existing directory is
// not an error. Errors wrap ErrWrite.
func EnsureDir(dir string, perm os.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("%w: creating directory %s: %w", ErrWrite, dir, err)
	}

	return nil
}

// DiscardWriter drops every write. It backs dry runs.
type DiscardWriter struct{}

// Write implements Writer.
func (DiscardWriter) Write(string, []byte) error { return nil }
