package estimate

import (
	"errors"
	"fmt"

	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

// ErrUnstableDomain is returned when resampling would produce
// inconsistent quality domains across withheld-one-out rounds, which
// would bias the variance estimate. Never silently worked around.
var ErrUnstableDomain = errors.New("unstable quality domain under resampling")

// unstableDomainError returns a wrapped error naming the offending set.
func unstableDomainError(set *samples.Set, qlo, qhi float64, reason string) error {
	return fmt.Errorf("%w: (label=%s, source=%s, resolution=%d) %s of [%.1f, %.1f]",
		ErrUnstableDomain, set.Label(), set.Source(), set.Resolution().Index, reason, qlo, qhi)
}
