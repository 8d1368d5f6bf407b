package analysis

import (
	"fmt"
	"math"

	"github.com/rachelplusplus/image-encoder-comparison/internal/curve"
	"github.com/rachelplusplus/image-encoder-comparison/internal/estimate"
	"github.com/rachelplusplus/image-encoder-comparison/internal/metric"
	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

// meanCurve builds the geometric-mean curve of several sample sets on the
// grid, the same fold Run applies per resolution.
func meanCurve(label string, sets []*samples.Set, grid []float64) (*curve.Curve, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("no sample sets for label %s", label)
	}

	sumLogSize := make([]float64, len(grid))
	sumLogRuntime := make([]float64, len(grid))
	for _, set := range sets {
		c, err := curve.Build(set)
		if err != nil {
			return nil, err
		}
		eval, err := evalGrid(c, grid)
		if err != nil {
			return nil, err
		}
		for i := range grid {
			sumLogSize[i] += eval.logSize[i]
			sumLogRuntime[i] += eval.logRuntime[i]
		}
	}

	n := float64(len(sets))
	sizes := make([]float64, len(grid))
	runtimes := make([]float64, len(grid))
	for i := range grid {
		sizes[i] = math.Exp(sumLogSize[i] / n)
		runtimes[i] = math.Exp(sumLogRuntime[i] / n)
	}
	return curve.FromPoints(label, samples.Resolution{}, grid, sizes, runtimes)
}

// DeltaRateMetric returns a jackknife metric: the delta rate of the given
// sets' mean curve against a fixed reference curve over the grid's range.
// The reference stays fixed across resamples so the spread measures only
// the candidate's sampling noise.
func DeltaRateMetric(reference metric.Curve, grid []float64) estimate.MetricFunc {
	return func(sets []*samples.Set) (float64, error) {
		if len(sets) == 0 {
			return 0, fmt.Errorf("no candidate sample sets")
		}
		cand, err := meanCurve(sets[0].Label(), sets, grid)
		if err != nil {
			return 0, err
		}
		result, err := metric.CompareN(reference, cand, grid[0], grid[len(grid)-1], len(grid))
		if err != nil {
			return 0, err
		}
		return result.DeltaRate, nil
	}
}

// EstimateDeltaRate jackknifes the full-resolution delta rate of candidate
// against reference across the given sources, at the chosen withholding
// granularity.
func (a *Analyzer) EstimateDeltaRate(refLabel, candLabel string, sources []string,
	gran estimate.Granularity) (*estimate.Result, error) {

	loadSets := func(label string) ([]*samples.Set, error) {
		sets := make([]*samples.Set, 0, len(sources))
		for _, source := range sources {
			set, err := a.src.Samples(label, source, 0)
			if err != nil {
				return nil, fmt.Errorf("loading (label=%s, source=%s): %w", label, source, err)
			}
			sets = append(sets, set)
		}
		return sets, nil
	}

	refSets, err := loadSets(refLabel)
	if err != nil {
		return nil, err
	}
	candSets, err := loadSets(candLabel)
	if err != nil {
		return nil, err
	}

	grid := a.grid()
	reference, err := meanCurve(refLabel, refSets, grid)
	if err != nil {
		return nil, err
	}

	return estimate.Jackknife(candSets, a.opts.QualityLo, a.opts.QualityHi,
		gran, DeltaRateMetric(reference, grid))
}
