// Package pathmap classifies Sass source paths and maps compilable sources
// under the watch root to their CSS counterparts under the output root.
package pathmap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File naming conventions.
const (
	// SourceExt is the extension of compilable sources. Matching is
	// case-sensitive.
	SourceExt = ".scss"

	// OutputExt replaces SourceExt on the mapped output path.
	OutputExt = ".css"

	// PartialPrefix marks include-only partials that are never compiled on
	// their own.
	PartialPrefix = "_"
)

var (
	// ErrResolve is returned when a path cannot be canonicalized, typically
	// because the file was removed between the event and its processing.
	ErrResolve = errors.New("resolving path")

	// ErrOutsideRoot is returned when a source path does not lie strictly
	// under the watch root.
	ErrOutsideRoot = errors.New("path is not under watch root")
)

// Class is the classification of a path seen by the watcher.
type Class int

const (
	// ClassIgnored is anything that is not a .scss file.
	ClassIgnored Class = iota
	// ClassPartial is a .scss file whose name starts with PartialPrefix.
	ClassPartial
	// ClassCompilable is a .scss file that is compiled to CSS.
	ClassCompilable
)

func (c Class) String() string {
	switch c {
	case ClassPartial:
		return "partial"
	case ClassCompilable:
		return "compilable"
	default:
		return "ignored"
	}
}

// Classify reports how path is treated. Only the file name is inspected.
func Classify(path string) Class {
	name := filepath.Base(path)

	ext := filepath.Ext(name)
	if ext != SourceExt || ext == name {
		return ClassIgnored
	}

	if strings.HasPrefix(name, PartialPrefix) {
		return ClassPartial
	}

	return ClassCompilable
}

// IsCompilable is shorthand for Classify(path) == ClassCompilable.
func IsCompilable(path string) bool {
	return Classify(path) == ClassCompilable
}

// Canonicalize returns the absolute path with all symlinks resolved. The
// path must exist.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrResolve, path, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrResolve, path, err)
	}

	return resolved, nil
}

// Relative returns path relative to root. Both must already be clean and
// absolute. It fails with ErrOutsideRoot unless path is strictly below root.
func Relative(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(os.PathSeparator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q is not under %q", ErrOutsideRoot, path, root)
	}

	return rel, nil
}

// OutputPath joins rel onto outputRoot and swaps its extension for OutputExt.
func OutputPath(outputRoot, rel string) string {
	out := filepath.Join(outputRoot, rel)

	return strings.TrimSuffix(out, filepath.Ext(out)) + OutputExt
}

// Mapper maps source paths under a watch root to output paths under an
// output root.
type Mapper struct {
	watchRoot  string
	outputRoot string
}

// NewMapper returns a Mapper for the given roots. Roots may be relative.
// The watch root is canonicalized on every Map call.
func NewMapper(watchRoot, outputRoot string) *Mapper {
	return &Mapper{watchRoot: watchRoot, outputRoot: outputRoot}
}

// WatchRoot returns the configured watch root.
func (m *Mapper) WatchRoot() string { return m.watchRoot }

// OutputRoot returns the configured output root.
func (m *Mapper) OutputRoot() string { return m.outputRoot }

// Mapping is the result of a successful Map.
type Mapping struct {
	// Source is the canonical source path.
	Source string
	// Rel is Source relative to the canonical watch root.
	Rel string
	// Output is the destination of the compiled CSS.
	Output string
}

// Map canonicalizes path and the watch root and returns the output path for
// path. It has no side effects.
func (m *Mapper) Map(path string) (Mapping, error) {
	root, err := Canonicalize(m.watchRoot)
	if err != nil {
		return Mapping{}, fmt.Errorf("watch root: %w", err)
	}

	src, err := Canonicalize(path)
	if err != nil {
		return Mapping{}, err
	}

	rel, err := Relative(root, src)
	if err != nil {
		return Mapping{}, err
	}

	return Mapping{
		Source: src,
		Rel:    rel,
		Output: OutputPath(m.outputRoot, rel),
	}, nil
}
