package samples

import (
	"errors"
	"fmt"
)

// Sentinel errors for sample validation.
// These can be checked with errors.Is().
var (
	ErrInsufficientSamples  = errors.New("insufficient samples")
	ErrInsufficientCoverage = errors.New("insufficient quality coverage")
)

// insufficientSamplesError returns a wrapped error for a set with too few
// distinct-quality samples to interpolate.
func insufficientSamplesError(label, source string, resolutionIndex, count int) error {
	return fmt.Errorf("%w: %d distinct-quality samples for (label=%s, source=%s, resolution=%d), need at least 2",
		ErrInsufficientSamples, count, label, source, resolutionIndex)
}

// insufficientCoverageError returns a wrapped error for a set whose scores
// fail to span the requested quality range.
func insufficientCoverageError(label, source string, resolutionIndex int, min, max, lo, hi float64) error {
	return fmt.Errorf("%w: (label=%s, source=%s, resolution=%d) covers [%.1f, %.1f], need [%.1f, %.1f]",
		ErrInsufficientCoverage, label, source, resolutionIndex, min, max, lo, hi)
}
