// Package estimate quantifies how sensitive a curve statistic is to the
// particular samples that were measured, by leave-one-out (jackknife)
// resampling. A curve or delta-rate number without a dispersion estimate
// is easy to over-read: encoder comparisons often differ by less than the
// measurement noise.
package estimate

import (
	"fmt"
	"math"

	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

// Granularity selects what one jackknife round withholds.
type Granularity int

const (
	// WithholdSample removes a single sample from one source's set per
	// round. Rounds iterate over every sample of every set.
	WithholdSample Granularity = iota

	// WithholdSource removes an entire source's set per round. Rounds
	// iterate over the sets.
	WithholdSource
)

// MetricFunc computes the statistic under estimation from a collection of
// sample sets: typically it builds curves and evaluates a delta-rate over
// a fixed quality range, closing over whatever reference data it needs.
type MetricFunc func(sets []*samples.Set) (float64, error)

// Result pairs the full-data point estimate with its jackknife dispersion.
type Result struct {
	// Estimate is the statistic computed from all samples.
	Estimate float64

	// StdErr is the jackknife standard error across the withheld-one-out
	// recomputations.
	StdErr float64

	// Rounds is the number of leave-one-out recomputations performed.
	Rounds int
}

// Jackknife computes fn over the full data and over every leave-one-out
// resample at the chosen granularity, for a statistic defined on the
// quality range [qlo, qhi].
//
// Before resampling it verifies that every resample will retain the same
// quality domain: each side of the target range must keep at least one
// sample strictly outside it after any single withholding. Without that,
// some rounds would compare over a narrower range than others and the
// spread would measure domain truncation, not sampling noise. Violations
// fail with ErrUnstableDomain.
func Jackknife(sets []*samples.Set, qlo, qhi float64, gran Granularity, fn MetricFunc) (*Result, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: no sample sets", ErrUnstableDomain)
	}
	if err := checkAnchors(sets, qlo, qhi, gran); err != nil {
		return nil, err
	}

	full, err := fn(sets)
	if err != nil {
		return nil, fmt.Errorf("computing full-sample estimate: %w", err)
	}

	var rounds []float64
	switch gran {
	case WithholdSample:
		rounds, err = sampleRounds(sets, fn)
	case WithholdSource:
		rounds, err = sourceRounds(sets, fn)
	default:
		return nil, fmt.Errorf("unknown granularity %d", gran)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Estimate: full,
		StdErr:   jackknifeStdErr(rounds),
		Rounds:   len(rounds),
	}, nil
}

// checkAnchors enforces the domain-anchoring requirement for the chosen
// granularity.
func checkAnchors(sets []*samples.Set, qlo, qhi float64, gran Granularity) error {
	switch gran {
	case WithholdSample:
		// One sample may vanish per round, so each side needs a spare:
		// two samples strictly outside the range keep the domain intact
		// even when one of them is the withheld sample.
		for _, set := range sets {
			if set.CountBelow(qlo) < 2 || set.CountAbove(qhi) < 2 {
				return unstableDomainError(set, qlo, qhi,
					"needs 2 anchor samples strictly outside the range on each side")
			}
		}
	case WithholdSource:
		// Whole sets vanish per round, so every surviving set must cover
		// the range on its own, and there must be something left to
		// survive.
		if len(sets) < 2 {
			return fmt.Errorf("%w: source withholding needs at least 2 sources, got %d",
				ErrUnstableDomain, len(sets))
		}
		for _, set := range sets {
			if set.CountBelow(qlo) < 1 || set.CountAbove(qhi) < 1 {
				return unstableDomainError(set, qlo, qhi,
					"does not span the range with an anchor sample on each side")
			}
		}
	}
	return nil
}

// sampleRounds recomputes fn once per (set, sample) with that sample
// withheld.
func sampleRounds(sets []*samples.Set, fn MetricFunc) ([]float64, error) {
	var rounds []float64
	for si, set := range sets {
		for i := 0; i < set.Len(); i++ {
			reduced, err := set.WithoutIndex(i)
			if err != nil {
				return nil, fmt.Errorf("withholding sample %d of set %d: %w", i, si, err)
			}

			resample := make([]*samples.Set, len(sets))
			copy(resample, sets)
			resample[si] = reduced

			v, err := fn(resample)
			if err != nil {
				return nil, fmt.Errorf("recomputing with sample %d of set %d withheld: %w", i, si, err)
			}
			rounds = append(rounds, v)
		}
	}
	return rounds, nil
}

// sourceRounds recomputes fn once per set with that whole set withheld.
func sourceRounds(sets []*samples.Set, fn MetricFunc) ([]float64, error) {
	rounds := make([]float64, 0, len(sets))
	for i := range sets {
		resample := make([]*samples.Set, 0, len(sets)-1)
		resample = append(resample, sets[:i]...)
		resample = append(resample, sets[i+1:]...)

		v, err := fn(resample)
		if err != nil {
			return nil, fmt.Errorf("recomputing with source %q withheld: %w", sets[i].Source(), err)
		}
		rounds = append(rounds, v)
	}
	return rounds, nil
}

// jackknifeStdErr is the standard jackknife variance estimator:
// sqrt((n-1)/n * sum((x_i - mean)^2)).
func jackknifeStdErr(rounds []float64) float64 {
	n := float64(len(rounds))
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range rounds {
		mean += v
	}
	mean /= n

	ss := 0.0
	for _, v := range rounds {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt((n - 1) / n * ss)
}
