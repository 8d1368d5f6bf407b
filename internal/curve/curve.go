// Package curve fits monotonicity-aware rate-distortion curves over
// validated sample sets. Size is interpolated in log space against the
// quality-score axis (rate-distortion data is near-linear there), runtime
// in linear space. Curves are immutable and refuse to extrapolate.
package curve

import (
	"fmt"
	"math"

	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

// Curve maps quality scores in [qmin, qmax] to compressed size and encode
// runtime. Built once, never mutated.
type Curve struct {
	label      string
	source     string
	resolution samples.Resolution

	qmin, qmax float64
	logSize    *Interpolant // quality score -> log(size in bytes)
	runtime    *Interpolant // quality score -> runtime in seconds
}

// Build fits a curve through every sample in the set. The set's ordering
// and distinct-score invariants make the knots valid interpolation input.
// Sizes and runtimes must be positive, since the size axis lives in log
// space and runtimes of zero would mean the measurement is missing.
func Build(set *samples.Set) (*Curve, error) {
	n := set.Len()
	scores := make([]float64, n)
	logSizes := make([]float64, n)
	runtimes := make([]float64, n)

	for i := 0; i < n; i++ {
		s := set.At(i)
		if s.SizeBytes <= 0 {
			return nil, fmt.Errorf("sample at score %.2f has non-positive size %d", s.QualityScore, s.SizeBytes)
		}
		if s.RuntimeSecs <= 0 {
			return nil, fmt.Errorf("sample at score %.2f has non-positive runtime %g", s.QualityScore, s.RuntimeSecs)
		}
		scores[i] = s.QualityScore
		logSizes[i] = math.Log(float64(s.SizeBytes))
		runtimes[i] = s.RuntimeSecs
	}

	return &Curve{
		label:      set.Label(),
		source:     set.Source(),
		resolution: set.Resolution(),
		qmin:       scores[0],
		qmax:       scores[n-1],
		logSize:    NewInterpolant(scores, logSizes),
		runtime:    NewInterpolant(scores, runtimes),
	}, nil
}

// FromPoints builds a curve directly from parallel slices of quality
// scores (strictly increasing), sizes, and runtimes. This is how averaged
// and synthesized curves re-enter the curve type after grid evaluation.
func FromPoints(label string, resolution samples.Resolution, scores, sizes, runtimes []float64) (*Curve, error) {
	n := len(scores)
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 points, got %d", n)
	}
	if len(sizes) != n || len(runtimes) != n {
		return nil, fmt.Errorf("mismatched point counts: %d scores, %d sizes, %d runtimes", n, len(sizes), len(runtimes))
	}

	logSizes := make([]float64, n)
	for i := 0; i < n; i++ {
		if i > 0 && scores[i] <= scores[i-1] {
			return nil, fmt.Errorf("quality scores must be strictly increasing at index %d", i)
		}
		if sizes[i] <= 0 {
			return nil, fmt.Errorf("size at score %.2f must be positive, got %g", scores[i], sizes[i])
		}
		if runtimes[i] <= 0 {
			return nil, fmt.Errorf("runtime at score %.2f must be positive, got %g", scores[i], runtimes[i])
		}
		logSizes[i] = math.Log(sizes[i])
	}

	xs := make([]float64, n)
	rts := make([]float64, n)
	copy(xs, scores)
	copy(rts, runtimes)

	return &Curve{
		label:      label,
		resolution: resolution,
		qmin:       xs[0],
		qmax:       xs[n-1],
		logSize:    NewInterpolant(xs, logSizes),
		runtime:    NewInterpolant(xs, rts),
	}, nil
}

// Label returns the encoder label the curve was built for.
func (c *Curve) Label() string { return c.label }

// Source returns the source identity, empty for averaged curves.
func (c *Curve) Source() string { return c.source }

// Resolution returns the resolution the backing samples were encoded at.
func (c *Curve) Resolution() samples.Resolution { return c.resolution }

// Domain returns the quality-score hull [qmin, qmax] of the backing
// samples. Evaluation outside it fails.
func (c *Curve) Domain() (qmin, qmax float64) { return c.qmin, c.qmax }

// Contains reports whether q lies within the curve's domain.
func (c *Curve) Contains(q float64) bool { return q >= c.qmin && q <= c.qmax }

// SizeAt returns the interpolated compressed size in bytes at quality
// score q. Fails with ErrOutOfDomain outside the sample hull.
func (c *Curve) SizeAt(q float64) (float64, error) {
	if !c.Contains(q) {
		return 0, outOfDomainError(q, c.qmin, c.qmax)
	}
	return math.Exp(c.logSize.Evaluate(q)), nil
}

// LogSizeAt returns log(size in bytes) at quality score q.
func (c *Curve) LogSizeAt(q float64) (float64, error) {
	if !c.Contains(q) {
		return 0, outOfDomainError(q, c.qmin, c.qmax)
	}
	return c.logSize.Evaluate(q), nil
}

// RuntimeAt returns the interpolated encode runtime in seconds at quality
// score q. Fails with ErrOutOfDomain outside the sample hull.
func (c *Curve) RuntimeAt(q float64) (float64, error) {
	if !c.Contains(q) {
		return 0, outOfDomainError(q, c.qmin, c.qmax)
	}
	return c.runtime.Evaluate(q), nil
}

// inversionIters is plenty for float64 bisection over any realistic
// quality range.
const inversionIters = 64

// QualityAtSize inverts the size axis: it returns the quality score at
// which the curve reaches the given size in bytes. This is only meaningful
// for monotone size data, which the shape-preserving interpolation
// guarantees for monotone samples. Sizes outside the range spanned by the
// curve's endpoints fail with ErrOutOfDomain.
func (c *Curve) QualityAtSize(size float64) (float64, error) {
	if size <= 0 {
		return 0, outOfDomainError(size, 0, math.Inf(1))
	}
	target := math.Log(size)
	loVal := c.logSize.Evaluate(c.qmin)
	hiVal := c.logSize.Evaluate(c.qmax)

	// Rate-distortion curves normally have size increasing with quality,
	// but allow either orientation.
	increasing := hiVal >= loVal
	minVal, maxVal := loVal, hiVal
	if !increasing {
		minVal, maxVal = hiVal, loVal
	}
	if target < minVal || target > maxVal {
		return 0, fmt.Errorf("%w: size %.0f outside curve size range [%.0f, %.0f]",
			ErrOutOfDomain, size, math.Exp(minVal), math.Exp(maxVal))
	}

	lo, hi := c.qmin, c.qmax
	for i := 0; i < inversionIters; i++ {
		mid := (lo + hi) / 2
		v := c.logSize.Evaluate(mid)
		if (v < target) == increasing {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}
