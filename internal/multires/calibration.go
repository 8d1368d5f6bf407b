package multires

import (
	"fmt"
	"math"
	"sort"

	"github.com/rachelplusplus/image-encoder-comparison/internal/curve"
	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

// Calibration equates a resolution's native quality scale to the
// full-resolution scale at matching visual fidelity. Quality scores are
// only directly comparable within one resolution, so aggregation needs
// this remap for every layer. The calibration is injected configuration:
// there is no universal formula relating the scales, they have to be
// measured (or supplied) per source and resolution.
type Calibration interface {
	// Native maps a full-resolution quality score to the equivalent score
	// on this resolution's own scale.
	Native(fullres float64) (float64, error)

	// Fullres maps a native score back to the full-resolution scale.
	Fullres(native float64) (float64, error)

	// Domain returns the covered interval on the full-resolution axis.
	Domain() (lo, hi float64)

	// NativeDomain returns the covered interval on the native axis.
	NativeDomain() (lo, hi float64)
}

// identity passes scores through unchanged. This is the calibration for
// the full-resolution layer itself.
type identity struct{}

// Identity returns the pass-through calibration with unbounded domain.
func Identity() Calibration { return identity{} }

func (identity) Native(q float64) (float64, error)  { return q, nil }
func (identity) Fullres(q float64) (float64, error) { return q, nil }
func (identity) Domain() (lo, hi float64)           { return math.Inf(-1), math.Inf(1) }
func (identity) NativeDomain() (lo, hi float64)     { return math.Inf(-1), math.Inf(1) }

// pairCalibration interpolates between measured (fullres score, native
// score) pairs with the same shape-preserving basis the curves use, in
// both directions.
type pairCalibration struct {
	fullres []float64
	native  []float64
	fwd     *curve.Interpolant // fullres -> native
	rev     *curve.Interpolant // native -> fullres
}

// FromPairs builds a calibration from parallel slices of full-resolution
// scores and the native scores measured at matching visual fidelity. The
// mapping must be monotone: after sorting by fullres score, native scores
// must be strictly increasing too.
func FromPairs(fullres, native []float64) (Calibration, error) {
	if len(fullres) != len(native) {
		return nil, fmt.Errorf("calibration pair count mismatch: %d vs %d", len(fullres), len(native))
	}
	if len(fullres) < 2 {
		return nil, fmt.Errorf("calibration needs at least 2 pairs, got %d", len(fullres))
	}

	idx := make([]int, len(fullres))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return fullres[idx[a]] < fullres[idx[b]] })

	fr := make([]float64, 0, len(fullres))
	nt := make([]float64, 0, len(native))
	for _, i := range idx {
		if len(fr) > 0 && (fullres[i] <= fr[len(fr)-1] || native[i] <= nt[len(nt)-1]) {
			return nil, fmt.Errorf("calibration pairs are not strictly monotone at fullres score %.2f", fullres[i])
		}
		fr = append(fr, fullres[i])
		nt = append(nt, native[i])
	}

	return &pairCalibration{
		fullres: fr,
		native:  nt,
		fwd:     curve.NewInterpolant(fr, nt),
		rev:     curve.NewInterpolant(nt, fr),
	}, nil
}

// FromSet derives a calibration from a sample set whose samples carry
// measured full-resolution scores. Pairs that would break monotonicity
// (measurement noise near the extremes) are dropped; at least two usable
// pairs must remain.
func FromSet(set *samples.Set) (Calibration, error) {
	if !set.HasFullresScores() {
		return nil, fmt.Errorf("sample set (label=%s, source=%s, resolution=%d) has no full-resolution scores",
			set.Label(), set.Source(), set.Resolution().Index)
	}

	fr := make([]float64, 0, set.Len())
	nt := make([]float64, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		s := set.At(i)
		// Samples arrive sorted by native score; keep only pairs where the
		// fullres score advances too, so both directions stay invertible.
		if len(fr) > 0 && (s.FullresScore <= fr[len(fr)-1] || s.QualityScore <= nt[len(nt)-1]) {
			continue
		}
		fr = append(fr, s.FullresScore)
		nt = append(nt, s.QualityScore)
	}
	if len(fr) < 2 {
		return nil, fmt.Errorf("sample set (label=%s, source=%s, resolution=%d) has fewer than 2 monotone calibration pairs",
			set.Label(), set.Source(), set.Resolution().Index)
	}

	return &pairCalibration{
		fullres: fr,
		native:  nt,
		fwd:     curve.NewInterpolant(fr, nt),
		rev:     curve.NewInterpolant(nt, fr),
	}, nil
}

func (c *pairCalibration) Native(q float64) (float64, error) {
	lo, hi := c.Domain()
	if q < lo || q > hi {
		return 0, fmt.Errorf("fullres score %.2f outside calibration domain [%.2f, %.2f]", q, lo, hi)
	}
	return c.fwd.Evaluate(q), nil
}

func (c *pairCalibration) Fullres(q float64) (float64, error) {
	lo, hi := c.NativeDomain()
	if q < lo || q > hi {
		return 0, fmt.Errorf("native score %.2f outside calibration domain [%.2f, %.2f]", q, lo, hi)
	}
	return c.rev.Evaluate(q), nil
}

func (c *pairCalibration) Domain() (lo, hi float64) {
	return c.fullres[0], c.fullres[len(c.fullres)-1]
}

func (c *pairCalibration) NativeDomain() (lo, hi float64) {
	return c.native[0], c.native[len(c.native)-1]
}
