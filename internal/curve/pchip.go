package curve

import (
	"math"
	"sort"
)

// Interpolant is a piecewise cubic Hermite interpolant with slopes limited
// per Fritsch-Carlson, so it is shape-preserving: it never overshoots
// between knots, and monotone data produces a monotone curve. This matters
// because curves get inverted (quality as a function of size) downstream,
// and overshoot would create multiple roots.
type Interpolant struct {
	xs []float64 // knot positions, strictly increasing
	ys []float64 // knot values
	ms []float64 // knot slopes after monotonicity limiting
}

// NewInterpolant builds the Interpolant. Callers guarantee len(xs) >= 2,
// len(xs) == len(ys), and strictly increasing xs.
func NewInterpolant(xs, ys []float64) *Interpolant {
	n := len(xs)
	ms := make([]float64, n)

	if n == 2 {
		d := (ys[1] - ys[0]) / (xs[1] - xs[0])
		ms[0], ms[1] = d, d
		return &Interpolant{xs: xs, ys: ys, ms: ms}
	}

	h := make([]float64, n-1) // interval widths
	d := make([]float64, n-1) // secant slopes
	for i := 0; i < n-1; i++ {
		h[i] = xs[i+1] - xs[i]
		d[i] = (ys[i+1] - ys[i]) / h[i]
	}

	// Interior slopes: weighted harmonic mean of adjacent secants,
	// zeroed at local extrema so each interval stays monotone.
	for i := 1; i < n-1; i++ {
		if d[i-1] == 0 || d[i] == 0 || math.Signbit(d[i-1]) != math.Signbit(d[i]) {
			ms[i] = 0
			continue
		}
		w1 := 2*h[i] + h[i-1]
		w2 := h[i] + 2*h[i-1]
		ms[i] = (w1 + w2) / (w1/d[i-1] + w2/d[i])
	}

	ms[0] = edgeSlope(h[0], h[1], d[0], d[1])
	ms[n-1] = edgeSlope(h[n-2], h[n-3], d[n-2], d[n-3])

	return &Interpolant{xs: xs, ys: ys, ms: ms}
}

// edgeSlope computes a boundary slope from the two nearest intervals using
// the non-centered three-point formula, clamped so the end interval cannot
// overshoot.
func edgeSlope(h0, h1, d0, d1 float64) float64 {
	m := ((2*h0+h1)*d0 - h0*d1) / (h0 + h1)
	if d0 == 0 {
		return 0
	}
	if math.Signbit(m) != math.Signbit(d0) {
		return 0
	}
	if math.Signbit(d0) != math.Signbit(d1) && math.Abs(m) > 3*math.Abs(d0) {
		return 3 * d0
	}
	return m
}

// Evaluate returns the interpolated value at x, which must lie within
// [xs[0], xs[n-1]]. Domain checks belong to the caller.
func (p *Interpolant) Evaluate(x float64) float64 {
	n := len(p.xs)
	if x == p.xs[n-1] {
		return p.ys[n-1]
	}

	// Index of the interval [xs[i], xs[i+1]) containing x.
	i := sort.SearchFloat64s(p.xs, x)
	if i > 0 && (i == n || p.xs[i] != x) {
		i--
	}
	if i >= n-1 {
		i = n - 2
	}

	hi := p.xs[i+1] - p.xs[i]
	t := (x - p.xs[i]) / hi
	t2 := t * t
	t3 := t2 * t

	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	return h00*p.ys[i] + h10*hi*p.ms[i] + h01*p.ys[i+1] + h11*hi*p.ms[i+1]
}
