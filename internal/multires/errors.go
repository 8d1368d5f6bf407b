package multires

import (
	"errors"
	"fmt"
	"math"

	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

// ErrIncompleteResolutionSet is returned when a multires point cannot be
// formed because at least one resolution layer lacks coverage at its
// remapped quality. Can be checked with errors.Is().
var ErrIncompleteResolutionSet = errors.New("incomplete resolution set")

var (
	errNoLayers          = errors.New("no layers supplied")
	errEmptyLayerDomain  = errors.New("layer has no evaluable quality interval")
	errNoSharedDomain    = errors.New("layer domains do not overlap after remapping")
	errLayerAboveFullres = errors.New("layer has more pixels than the full-resolution layer")
)

// incompleteResolutionError returns a wrapped error naming the layer that
// could not be evaluated. q is NaN for failures independent of a
// particular quality score.
func incompleteResolutionError(q float64, res samples.Resolution, cause error) error {
	if math.IsNaN(q) {
		return fmt.Errorf("%w: resolution %dx%d (index %d): %v",
			ErrIncompleteResolutionSet, res.Width, res.Height, res.Index, cause)
	}
	return fmt.Errorf("%w: resolution %dx%d (index %d) at fullres score %.2f: %v",
		ErrIncompleteResolutionSet, res.Width, res.Height, res.Index, q, cause)
}
