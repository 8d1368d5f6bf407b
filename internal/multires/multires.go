// Package multires synthesizes the cost of a layered encode from
// independently built per-resolution curves. The aggregate size at a
// full-resolution quality score is the sum of every layer's size at that
// layer's equivalent (remapped) quality score, and likewise for runtime.
// A multires point missing a layer is not a valid multires point.
package multires

import (
	"math"

	"github.com/rachelplusplus/image-encoder-comparison/internal/curve"
	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

// Layer pairs one resolution's curve with the calibration that maps
// full-resolution quality scores onto that resolution's native scale.
type Layer struct {
	Curve       *curve.Curve
	Calibration Calibration
}

// LayerPoint is one layer's contribution to a multires point, reported on
// the layer's native scale. Renderers use this for component breakdowns.
type LayerPoint struct {
	Resolution  samples.Resolution
	NativeScore float64
	SizeBytes   float64
	RuntimeSecs float64
}

// Curve is the synthesized multi-resolution curve. Its domain is the
// intersection, over all layers, of full-resolution quality scores at
// which every constituent curve is evaluable after remapping.
type Curve struct {
	label      string
	layers     []Layer
	fullres    samples.Resolution
	qmin, qmax float64
}

// Weight returns the pixel-count ratio of a resolution to the full
// resolution. It is recomputed from metadata, never stored.
func Weight(res, fullres samples.Resolution) float64 {
	return float64(res.PixelCount()) / float64(fullres.PixelCount())
}

// Aggregate combines one curve per resolution into a multires curve.
// Fails with ErrIncompleteResolutionSet when the layers' remapped domains
// share no full-resolution quality interval, since every point of the
// result needs every layer.
func Aggregate(label string, layers []Layer) (*Curve, error) {
	if len(layers) == 0 {
		return nil, incompleteResolutionError(math.NaN(), samples.Resolution{}, errNoLayers)
	}

	// Resolution index 0 is the full resolution by convention; with no
	// index-0 layer the lowest index stands in. A layer with more pixels
	// than that is a mis-indexed store, not a bigger full resolution.
	fullres := layers[0].Curve.Resolution()
	for _, l := range layers[1:] {
		if r := l.Curve.Resolution(); r.Index < fullres.Index {
			fullres = r
		}
	}
	for _, l := range layers {
		if r := l.Curve.Resolution(); r.PixelCount() > fullres.PixelCount() {
			return nil, incompleteResolutionError(math.NaN(), r, errLayerAboveFullres)
		}
	}

	qmin := math.Inf(-1)
	qmax := math.Inf(1)
	for _, l := range layers {
		lo, hi, ok := layerDomain(l)
		if !ok {
			return nil, incompleteResolutionError(math.NaN(), l.Curve.Resolution(), errEmptyLayerDomain)
		}
		qmin = math.Max(qmin, lo)
		qmax = math.Min(qmax, hi)
	}
	if qmin >= qmax {
		return nil, incompleteResolutionError(math.NaN(), fullres, errNoSharedDomain)
	}

	return &Curve{
		label:   label,
		layers:  layers,
		fullres: fullres,
		qmin:    qmin,
		qmax:    qmax,
	}, nil
}

// layerDomain returns the full-resolution quality interval over which one
// layer is evaluable: its curve domain intersected with the calibration's
// native domain, mapped back to the full-resolution axis. The bounds are
// derived from the same forward mapping evaluation uses, so evaluation at
// them cannot land outside the curve hull.
func layerDomain(l Layer) (lo, hi float64, ok bool) {
	nlo, nhi := l.Curve.Domain()
	clo, chi := l.Calibration.NativeDomain()

	nlo = math.Max(nlo, clo)
	nhi = math.Min(nhi, chi)
	if nlo >= nhi {
		return 0, 0, false
	}

	_, flo, err := fullresBracket(l.Calibration, nlo)
	if err != nil {
		return 0, 0, false
	}
	fhi, _, err := fullresBracket(l.Calibration, nhi)
	if err != nil {
		return 0, 0, false
	}

	// Identity calibration on an unbounded domain passes the curve's own
	// hull straight through; measured calibrations may still be unbounded
	// on one side only, so clamp against their fullres domain too.
	dlo, dhi := l.Calibration.Domain()
	return math.Max(flo, dlo), math.Min(fhi, dhi), true
}

// fullresBracket brackets the full-resolution score whose remapped native
// score equals target: Native(below) <= target <= Native(above). The
// calibration's reverse mapping is a separate interpolant through the same
// pairs and only approximates the true inverse between knots, so its
// estimate is refined by bisecting the forward mapping, the one SizeAt and
// RuntimeAt remap with.
func fullresBracket(cal Calibration, target float64) (below, above float64, err error) {
	q, err := cal.Fullres(target)
	if err != nil {
		return 0, 0, err
	}
	n, err := cal.Native(q)
	if err != nil {
		return 0, 0, err
	}
	if n == target {
		return q, q, nil
	}

	below, above = cal.Domain()
	if math.IsInf(below, 0) || math.IsInf(above, 0) {
		return q, q, nil
	}
	for i := 0; i < 64; i++ {
		mid := (below + above) / 2
		if n, _ := cal.Native(mid); n < target {
			below = mid
		} else {
			above = mid
		}
	}
	return below, above, nil
}

// Label returns the encoder label the multires curve was built for.
func (m *Curve) Label() string { return m.label }

// FullresResolution returns the resolution the quality axis refers to.
func (m *Curve) FullresResolution() samples.Resolution { return m.fullres }

// Domain returns the full-resolution quality interval over which every
// layer is evaluable.
func (m *Curve) Domain() (qmin, qmax float64) { return m.qmin, m.qmax }

// SizeAt returns the combined size in bytes of all layers at the
// full-resolution quality score q. Fails with ErrIncompleteResolutionSet
// if any layer cannot be evaluated at its remapped score; a partial sum
// is never returned.
func (m *Curve) SizeAt(q float64) (float64, error) {
	total := 0.0
	for _, l := range m.layers {
		nq, err := l.Calibration.Native(q)
		if err != nil {
			return 0, incompleteResolutionError(q, l.Curve.Resolution(), err)
		}
		size, err := l.Curve.SizeAt(nq)
		if err != nil {
			return 0, incompleteResolutionError(q, l.Curve.Resolution(), err)
		}
		total += size
	}
	return total, nil
}

// RuntimeAt returns the combined encode runtime in seconds of all layers
// at the full-resolution quality score q, with the same all-or-nothing
// policy as SizeAt.
func (m *Curve) RuntimeAt(q float64) (float64, error) {
	total := 0.0
	for _, l := range m.layers {
		nq, err := l.Calibration.Native(q)
		if err != nil {
			return 0, incompleteResolutionError(q, l.Curve.Resolution(), err)
		}
		rt, err := l.Curve.RuntimeAt(nq)
		if err != nil {
			return 0, incompleteResolutionError(q, l.Curve.Resolution(), err)
		}
		total += rt
	}
	return total, nil
}

// EffectiveBitsPerPixelAt expresses the combined size as bits per
// full-resolution pixel, the unit rate plots use for multires curves.
func (m *Curve) EffectiveBitsPerPixelAt(q float64) (float64, error) {
	size, err := m.SizeAt(q)
	if err != nil {
		return 0, err
	}
	return size * 8.0 / float64(m.fullres.PixelCount()), nil
}

// ComponentsAt breaks a multires point into per-layer contributions, for
// component-level rendering. Same evaluation policy as SizeAt.
func (m *Curve) ComponentsAt(q float64) ([]LayerPoint, error) {
	points := make([]LayerPoint, 0, len(m.layers))
	for _, l := range m.layers {
		nq, err := l.Calibration.Native(q)
		if err != nil {
			return nil, incompleteResolutionError(q, l.Curve.Resolution(), err)
		}
		size, err := l.Curve.SizeAt(nq)
		if err != nil {
			return nil, incompleteResolutionError(q, l.Curve.Resolution(), err)
		}
		rt, err := l.Curve.RuntimeAt(nq)
		if err != nil {
			return nil, incompleteResolutionError(q, l.Curve.Resolution(), err)
		}
		points = append(points, LayerPoint{
			Resolution:  l.Curve.Resolution(),
			NativeScore: nq,
			SizeBytes:   size,
			RuntimeSecs: rt,
		})
	}
	return points, nil
}
