package curve

import (
	"errors"
	"fmt"
)

// ErrOutOfDomain is returned when a curve is evaluated outside the quality
// hull of its backing samples. Extrapolation is never performed: encoder
// behavior near its operating limits is unreliable.
var ErrOutOfDomain = errors.New("quality score out of curve domain")

// outOfDomainError returns a wrapped error for an evaluation outside
// [qmin, qmax].
func outOfDomainError(q, qmin, qmax float64) error {
	return fmt.Errorf("%w: %.2f not in [%.2f, %.2f]", ErrOutOfDomain, q, qmin, qmax)
}
