package metric

import (
	"errors"
	"fmt"
)

// ErrNoOverlap is returned when two curves share no usable quality range:
// their domains intersect the requested range in at most a single point.
var ErrNoOverlap = errors.New("no usable quality range overlap")

// noOverlapError returns a wrapped error describing both domains.
func noOverlapError(qlo, qhi, rlo, rhi, clo, chi float64) error {
	return fmt.Errorf("%w: requested [%.2f, %.2f], reference covers [%.2f, %.2f], candidate covers [%.2f, %.2f]",
		ErrNoOverlap, qlo, qhi, rlo, rhi, clo, chi)
}
