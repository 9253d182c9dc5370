package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ErrVersion is returned when the compiler does not satisfy the configured
// version constraint.
var ErrVersion = errors.New("unsupported sass version")

// CheckVersion verifies that c reports a version satisfying constraint.
// An empty constraint always passes.
func CheckVersion(ctx context.Context, c Compiler, constraint string) (string, error) {
	if constraint == "" {
		return "", nil
	}

	actual, err := c.Version(ctx)
	if err != nil {
		return "", err
	}

	if err := VersionSatisfies(constraint, actual); err != nil {
		return actual, err
	}

	return actual, nil
}

// VersionSatisfies reports whether actual satisfies the semver constraint.
func VersionSatisfies(constraint, actual string) error {
	cons, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("%w: invalid constraint %q: %w", ErrVersion, constraint, err)
	}

	v, err := semver.NewVersion(actual)
	if err != nil {
		return fmt.Errorf("%w: unparseable version %q: %w", ErrVersion, actual, err)
	}

	if !cons.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %q", ErrVersion, actual, constraint)
	}

	return nil
}
