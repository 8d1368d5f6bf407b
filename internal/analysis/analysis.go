// Package analysis orchestrates one comparison run: it pulls sample sets
// from a sample store, builds per-resolution and multires curves for every
// (label, source) pair in parallel, averages them across sources, and
// hands the finished curves to the metric and report layers.
//
// Failures are per-item: a tuple that cannot produce a curve is recorded
// in the run's failure manifest and the rest of the batch continues.
package analysis

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rachelplusplus/image-encoder-comparison/internal/curve"
	"github.com/rachelplusplus/image-encoder-comparison/internal/logger"
	"github.com/rachelplusplus/image-encoder-comparison/internal/multires"
	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

// MultiresIndex keys the synthetic multires curve in per-resolution maps.
const MultiresIndex = -1

// SampleSource is what the analyzer needs from a sample store. Every
// query is treated as potentially expensive: each tuple is fetched exactly
// once per run.
type SampleSource interface {
	Resolutions(source string) ([]samples.Resolution, error)
	Samples(label, source string, resolutionIndex int) (*samples.Set, error)
}

// Options configures a run.
type Options struct {
	// QualityLo, QualityHi is the target quality range. Every sample set
	// must span it on its native axis.
	QualityLo float64
	QualityHi float64

	// GridPoints is the number of evenly spaced quality scores curves are
	// evaluated at for averaging.
	GridPoints int

	// Workers limits concurrent curve builds. 0 means one per CPU.
	Workers int

	// Calibrations overrides the quality remap per resolution index.
	// Resolutions without an override derive their remap from measured
	// full-resolution scores in the samples; the full resolution itself
	// always uses the identity remap.
	Calibrations map[int]multires.Calibration
}

// Failure records one tuple that could not contribute to the run.
// ResolutionIndex is MultiresIndex for multires synthesis failures and
// -2 when the whole source failed before any resolution was tried.
type Failure struct {
	Label           string
	Source          string
	ResolutionIndex int
	Err             error
}

// LabelCurves holds the finished curves for one encoder label: the
// geometric mean across all contributing sources, on the target grid.
type LabelCurves struct {
	Label string

	// ByResolution maps resolution index to the averaged curve, with the
	// synthesized multires curve under MultiresIndex. Sizes are
	// geometric-mean bytes across sources; size ratios between labels are
	// unaffected by the averaging.
	ByResolution map[int]*curve.Curve

	// Contributing counts sources that produced at least one curve.
	Contributing int
}

// Result is the outcome of one run: finished curves per label plus the
// manifest of everything that failed and why.
type Result struct {
	Grid     []float64
	Labels   map[string]*LabelCurves
	Failures []Failure
}

// Analyzer runs comparisons against one sample source.
type Analyzer struct {
	src  SampleSource
	opts Options
}

// New creates an Analyzer. Missing option fields get defaults.
func New(src SampleSource, opts Options) *Analyzer {
	if opts.GridPoints < 2 {
		opts.GridPoints = 61
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Analyzer{src: src, opts: opts}
}

// grid returns the evenly spaced quality scores curves are evaluated at.
func (a *Analyzer) grid() []float64 {
	n := a.opts.GridPoints
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a.opts.QualityLo + (a.opts.QualityHi-a.opts.QualityLo)*float64(i)/float64(n-1)
	}
	out[n-1] = a.opts.QualityHi
	return out
}

// gridEval is one curve sampled onto the grid, in log space so that
// averaging across sources is a geometric mean.
type gridEval struct {
	logSize    []float64
	logRuntime []float64
}

// sourceCurves is the per-(label, source) build product.
type sourceCurves struct {
	label    string
	source   string
	perRes   map[int]gridEval
	failures []Failure
}

// Run builds and averages curves for every (label, source) pair. The
// returned error is only non-nil when the context is cancelled; all
// per-tuple problems land in the result's failure manifest instead.
func (a *Analyzer) Run(ctx context.Context, labels, sources []string) (*Result, error) {
	grid := a.grid()

	var mu sync.Mutex
	built := make([]*sourceCurves, 0, len(labels)*len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	for _, label := range labels {
		for _, source := range sources {
			label, source := label, source
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				sc := a.buildSource(label, source, grid)
				mu.Lock()
				built = append(built, sc)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return a.average(grid, labels, built), nil
}

// buildSource builds all per-resolution curves and the multires curve for
// one (label, source) pair and samples them onto the grid.
func (a *Analyzer) buildSource(label, source string, grid []float64) *sourceCurves {
	sc := &sourceCurves{
		label:  label,
		source: source,
		perRes: make(map[int]gridEval),
	}

	resolutions, err := a.src.Resolutions(source)
	if err != nil {
		sc.fail(-2, err)
		return sc
	}

	layers := make([]multires.Layer, 0, len(resolutions))
	layersComplete := true

	for _, res := range resolutions {
		set, err := a.src.Samples(label, source, res.Index)
		if err != nil {
			sc.fail(res.Index, err)
			layersComplete = false
			continue
		}
		if err := set.CheckCoverage(a.opts.QualityLo, a.opts.QualityHi); err != nil {
			sc.fail(res.Index, err)
			layersComplete = false
			continue
		}

		c, err := curve.Build(set)
		if err != nil {
			sc.fail(res.Index, err)
			layersComplete = false
			continue
		}

		eval, err := evalGrid(c, grid)
		if err != nil {
			sc.fail(res.Index, err)
			layersComplete = false
			continue
		}
		sc.perRes[res.Index] = eval

		cal, err := a.calibrationFor(res, set)
		if err != nil {
			sc.fail(res.Index, err)
			layersComplete = false
			continue
		}
		layers = append(layers, multires.Layer{Curve: c, Calibration: cal})
	}

	if !layersComplete {
		// A multires curve missing a layer would undercount the layered
		// encode, so it is not synthesized at all.
		return sc
	}

	mc, err := multires.Aggregate(label, layers)
	if err != nil {
		sc.fail(MultiresIndex, err)
		return sc
	}
	eval, err := evalGrid(mc, grid)
	if err != nil {
		sc.fail(MultiresIndex, err)
		return sc
	}
	sc.perRes[MultiresIndex] = eval

	return sc
}

func (sc *sourceCurves) fail(resolutionIndex int, err error) {
	logger.Warn("curve build failed",
		"label", sc.label, "source", sc.source, "resolution", resolutionIndex, "error", err)
	sc.failures = append(sc.failures, Failure{
		Label:           sc.label,
		Source:          sc.source,
		ResolutionIndex: resolutionIndex,
		Err:             err,
	})
}

// calibrationFor picks the quality remap for one resolution layer:
// identity for the full resolution, a configured override when present,
// otherwise the samples' own measured full-resolution scores.
func (a *Analyzer) calibrationFor(res samples.Resolution, set *samples.Set) (multires.Calibration, error) {
	if res.Index == 0 {
		return multires.Identity(), nil
	}
	if cal, ok := a.opts.Calibrations[res.Index]; ok {
		return cal, nil
	}
	return multires.FromSet(set)
}

// evaluable is the curve surface grid evaluation needs.
type evaluable interface {
	SizeAt(q float64) (float64, error)
	RuntimeAt(q float64) (float64, error)
}

func evalGrid(c evaluable, grid []float64) (gridEval, error) {
	eval := gridEval{
		logSize:    make([]float64, len(grid)),
		logRuntime: make([]float64, len(grid)),
	}
	for i, q := range grid {
		size, err := c.SizeAt(q)
		if err != nil {
			return gridEval{}, err
		}
		rt, err := c.RuntimeAt(q)
		if err != nil {
			return gridEval{}, err
		}
		eval.logSize[i] = math.Log(size)
		eval.logRuntime[i] = math.Log(rt)
	}
	return eval, nil
}

// average folds the per-source grid evaluations into one curve per
// (label, resolution). The arithmetic mean of log values is the log of
// the geometric mean, which is the right average for size ratios.
func (a *Analyzer) average(grid []float64, labels []string, built []*sourceCurves) *Result {
	result := &Result{
		Grid:   grid,
		Labels: make(map[string]*LabelCurves, len(labels)),
	}

	type accum struct {
		logSize    []float64
		logRuntime []float64
		count      int
	}
	sums := make(map[string]map[int]*accum, len(labels))
	contributing := make(map[string]map[string]bool)

	for _, sc := range built {
		result.Failures = append(result.Failures, sc.failures...)

		if sums[sc.label] == nil {
			sums[sc.label] = make(map[int]*accum)
			contributing[sc.label] = make(map[string]bool)
		}
		if len(sc.perRes) > 0 {
			contributing[sc.label][sc.source] = true
		}

		for resIdx, eval := range sc.perRes {
			acc := sums[sc.label][resIdx]
			if acc == nil {
				acc = &accum{
					logSize:    make([]float64, len(grid)),
					logRuntime: make([]float64, len(grid)),
				}
				sums[sc.label][resIdx] = acc
			}
			for i := range grid {
				acc.logSize[i] += eval.logSize[i]
				acc.logRuntime[i] += eval.logRuntime[i]
			}
			acc.count++
		}
	}

	// Deterministic failure ordering regardless of build scheduling.
	sort.Slice(result.Failures, func(i, j int) bool {
		x, y := result.Failures[i], result.Failures[j]
		if x.Label != y.Label {
			return x.Label < y.Label
		}
		if x.Source != y.Source {
			return x.Source < y.Source
		}
		return x.ResolutionIndex < y.ResolutionIndex
	})

	for _, label := range labels {
		lc := &LabelCurves{
			Label:        label,
			ByResolution: make(map[int]*curve.Curve),
			Contributing: len(contributing[label]),
		}
		for resIdx, acc := range sums[label] {
			sizes := make([]float64, len(grid))
			runtimes := make([]float64, len(grid))
			for i := range grid {
				sizes[i] = math.Exp(acc.logSize[i] / float64(acc.count))
				runtimes[i] = math.Exp(acc.logRuntime[i] / float64(acc.count))
			}
			mean, err := curve.FromPoints(label, samples.Resolution{Index: resIdx}, grid, sizes, runtimes)
			if err != nil {
				result.Failures = append(result.Failures, Failure{
					Label:           label,
					ResolutionIndex: resIdx,
					Err:             err,
				})
				continue
			}
			lc.ByResolution[resIdx] = mean
		}
		result.Labels[label] = lc
	}

	return result
}
