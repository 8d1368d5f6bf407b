// Package metric computes Bjontegaard-style delta-rate comparisons
// between rate-distortion curves over a shared quality-score range.
package metric

import (
	"math"
)

// Curve is the read surface the metric needs. Both single-resolution and
// multires curves satisfy it.
type Curve interface {
	Domain() (qmin, qmax float64)
	SizeAt(q float64) (float64, error)
	RuntimeAt(q float64) (float64, error)
}

// DefaultPoints is the number of evenly spaced quality points sampled for
// integration. Matches the default interpolation grid density.
const DefaultPoints = 61

// minOverlap is the smallest usable quality range width. Anything
// narrower is effectively a single point and carries no rate information.
const minOverlap = 1e-9

// Result is the outcome of comparing a candidate curve against a
// reference over a quality range.
type Result struct {
	// DeltaRate is the average size difference at equal quality, as a
	// percentage. Negative means the candidate is more efficient.
	DeltaRate float64

	// DeltaRuntime is the average runtime difference at equal quality, as
	// a percentage. A secondary statistic: runtime-vs-quality curves are
	// not rate-distortion curves, so a plain average of ratios is used
	// rather than a log-domain integral.
	DeltaRuntime float64

	// QLo, QHi is the quality range actually compared.
	QLo, QHi float64

	// RangeNarrowed is set when the requested range had to be narrowed to
	// the curves' shared domain. The result is still informative, just
	// over a smaller range than asked for.
	RangeNarrowed bool

	// Points is the number of integration samples used.
	Points int
}

// Compare computes the delta-rate of candidate against reference over
// [qlo, qhi], narrowing to the curves' shared domain if needed. Fails
// with ErrNoOverlap when the shared range is empty or a single point.
func Compare(reference, candidate Curve, qlo, qhi float64) (*Result, error) {
	return CompareN(reference, candidate, qlo, qhi, DefaultPoints)
}

// CompareN is Compare with an explicit integration sample count.
func CompareN(reference, candidate Curve, qlo, qhi float64, points int) (*Result, error) {
	if points < 2 {
		points = 2
	}
	if qlo > qhi {
		qlo, qhi = qhi, qlo
	}

	rlo, rhi := reference.Domain()
	clo, chi := candidate.Domain()
	lo := math.Max(qlo, math.Max(rlo, clo))
	hi := math.Min(qhi, math.Min(rhi, chi))
	if hi-lo < minOverlap {
		return nil, noOverlapError(qlo, qhi, rlo, rhi, clo, chi)
	}
	narrowed := lo > qlo || hi < qhi

	// Trapezoidal integration of log(candidate/reference) sizes over the
	// shared range, then back out of log space. The exponential of the
	// mean log ratio is the geometric-mean size ratio at equal quality.
	step := (hi - lo) / float64(points-1)
	logRatioSum := 0.0
	runtimeRatioSum := 0.0
	for i := 0; i < points; i++ {
		q := lo + float64(i)*step
		if i == points-1 {
			q = hi
		}

		refSize, err := reference.SizeAt(q)
		if err != nil {
			return nil, err
		}
		candSize, err := candidate.SizeAt(q)
		if err != nil {
			return nil, err
		}
		logRatio := math.Log(candSize / refSize)

		refRT, err := reference.RuntimeAt(q)
		if err != nil {
			return nil, err
		}
		candRT, err := candidate.RuntimeAt(q)
		if err != nil {
			return nil, err
		}

		// Trapezoidal rule: endpoints carry half weight.
		w := 1.0
		if i == 0 || i == points-1 {
			w = 0.5
		}
		logRatioSum += w * logRatio
		runtimeRatioSum += w * (candRT / refRT)
	}

	meanLogRatio := logRatioSum / float64(points-1)
	meanRuntimeRatio := runtimeRatioSum / float64(points-1)

	return &Result{
		DeltaRate:     (math.Exp(meanLogRatio) - 1.0) * 100.0,
		DeltaRuntime:  (meanRuntimeRatio - 1.0) * 100.0,
		QLo:           lo,
		QHi:           hi,
		RangeNarrowed: narrowed,
		Points:        points,
	}, nil
}
