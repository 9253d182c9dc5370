package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffResult holds a unified diff between an existing artifact and a fresh
// compilation.
type DiffResult struct {
	Unified        string
	HasDifferences bool
	OldLabel       string
	NewLabel       string
}

// DiffOptions configures diff computation.
type DiffOptions struct {
	OldLabel string
	NewLabel string
	Context  int

	// SplitRules breaks lines after every "}" and ";" so that compressed
	// single-line CSS produces a rule-level diff.
	SplitRules bool
}

// DefaultDiffOptions returns the options used by `build --diff` for path.
func DefaultDiffOptions(path string) DiffOptions {
	return DiffOptions{
		OldLabel:   "a/" + path,
		NewLabel:   "b/" + path,
		Context:    3,
		SplitRules: true,
	}
}

// ComputeDiff computes a unified diff between two CSS documents.
func ComputeDiff(oldCSS, newCSS string, opts DiffOptions) (*DiffResult, error) {
	if opts.SplitRules {
		oldCSS = splitRules(oldCSS)
		newCSS = splitRules(newCSS)
	}

	diff := difflib.UnifiedDiff{
		A:        splitLines(oldCSS),
		B:        splitLines(newCSS),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	}

	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	return &DiffResult{
		Unified:        unified,
		HasDifferences: unified != "",
		OldLabel:       opts.OldLabel,
		NewLabel:       opts.NewLabel,
	}, nil
}

// WriteDiff writes a formatted diff to w with optional ANSI colors. Nothing
// is written when there are no differences.
func WriteDiff(w io.Writer, result *DiffResult, color bool) {
	if !result.HasDifferences {
		return
	}

	for _, line := range strings.Split(strings.TrimSuffix(result.Unified, "\n"), "\n") {
		if color {
			writeColorLine(w, line)
		} else {
			_, _ = fmt.Fprintln(w, line)
		}
	}
}

func writeColorLine(w io.Writer, line string) {
	const (
		red   = "\033[31m"
		green = "\033[32m"
		cyan  = "\033[36m"
		bold  = "\033[1m"
		reset = "\033[0m"
	)

	switch {
	case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
		_, _ = fmt.Fprintf(w, "%s%s%s\n", bold, line, reset)
	case strings.HasPrefix(line, "@@"):
		_, _ = fmt.Fprintf(w, "%s%s%s\n", cyan, line, reset)
	case strings.HasPrefix(line, "-"):
		_, _ = fmt.Fprintf(w, "%s%s%s\n", red, line, reset)
	case strings.HasPrefix(line, "+"):
		_, _ = fmt.Fprintf(w, "%s%s%s\n", green, line, reset)
	default:
		_, _ = fmt.Fprintln(w, line)
	}
}

// splitRules inserts a newline after each declaration and block end that is
// not already followed by one.
func splitRules(css string) string {
	var b strings.Builder

	b.Grow(len(css) + len(css)/8)

	for i := 0; i < len(css); i++ {
		c := css[i]
		b.WriteByte(c)

		if (c == '}' || c == ';' || c == '{') && (i+1 >= len(css) || css[i+1] != '\n') {
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// splitLines splits a string into lines for diff processing.
// Each element includes a trailing newline for difflib compatibility.
func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}

	return strings.SplitAfter(s, "\n")
}
