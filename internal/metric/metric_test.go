package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rachelplusplus/image-encoder-comparison/internal/curve"
	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

var testRes = samples.Resolution{Index: 0, Width: 1920, Height: 1080}

func buildCurve(t *testing.T, label string, sizes []int64, scores []float64, runtimes []float64) Curve {
	t.Helper()
	raw := make([]samples.Sample, len(sizes))
	for i := range sizes {
		raw[i] = samples.Sample{
			SizeBytes:    sizes[i],
			QualityScore: scores[i],
			RuntimeSecs:  runtimes[i],
		}
	}
	set, err := samples.New(label, "bunny", testRes, raw)
	require.NoError(t, err)
	c, err := curve.Build(set)
	require.NoError(t, err)
	return c
}

func TestCompareIdenticalCurvesIsZero(t *testing.T) {
	c := buildCurve(t, "aom",
		[]int64{1000, 500, 250}, []float64{70, 85, 95}, []float64{1, 2, 4})

	result, err := Compare(c, c, 70, 95)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, result.DeltaRate, 1e-9)
	assert.InDelta(t, 0.0, result.DeltaRuntime, 1e-9)
	assert.False(t, result.RangeNarrowed)
}

func TestCompareTenPercentSmaller(t *testing.T) {
	ref := buildCurve(t, "aom",
		[]int64{1000, 500, 250}, []float64{70, 85, 95}, []float64{1, 2, 4})
	cand := buildCurve(t, "svt",
		[]int64{900, 450, 225}, []float64{70, 85, 95}, []float64{1, 2, 4})

	result, err := Compare(ref, cand, 70, 95)
	require.NoError(t, err)

	// The candidate is exactly 10% smaller at every knot, and scaling a
	// size curve shifts its log curve by a constant, so the delta is -10%
	// everywhere in between too.
	assert.InDelta(t, -10.0, result.DeltaRate, 0.01)
	assert.Equal(t, 70.0, result.QLo)
	assert.Equal(t, 95.0, result.QHi)
}

func TestCompareAntisymmetricInLogSpace(t *testing.T) {
	a := buildCurve(t, "aom",
		[]int64{1200, 600, 240}, []float64{65, 82, 96}, []float64{1, 2, 4})
	b := buildCurve(t, "svt",
		[]int64{1000, 520, 270}, []float64{65, 82, 96}, []float64{0.8, 1.7, 3.9})

	ab, err := Compare(a, b, 65, 96)
	require.NoError(t, err)
	ba, err := Compare(b, a, 65, 96)
	require.NoError(t, err)

	// log(1 + d_ab/100) == -log(1 + d_ba/100) up to discretization.
	assert.InDelta(t, 1.0, (1+ab.DeltaRate/100)*(1+ba.DeltaRate/100), 1e-9)
}

func TestCompareNarrowsRange(t *testing.T) {
	ref := buildCurve(t, "aom",
		[]int64{1000, 500, 250}, []float64{70, 85, 95}, []float64{1, 2, 4})
	cand := buildCurve(t, "svt",
		[]int64{800, 400, 200}, []float64{75, 85, 92}, []float64{1, 2, 4})

	result, err := Compare(ref, cand, 70, 95)
	require.NoError(t, err)
	assert.True(t, result.RangeNarrowed)
	assert.Equal(t, 75.0, result.QLo)
	assert.Equal(t, 92.0, result.QHi)
}

func TestCompareNoOverlap(t *testing.T) {
	ref := buildCurve(t, "aom",
		[]int64{1000, 500}, []float64{30, 50}, []float64{1, 2})
	cand := buildCurve(t, "svt",
		[]int64{400, 200}, []float64{70, 90}, []float64{1, 2})

	_, err := Compare(ref, cand, 30, 90)
	require.ErrorIs(t, err, ErrNoOverlap)

	// Touching at exactly one point is still no overlap.
	cand = buildCurve(t, "svt",
		[]int64{400, 200}, []float64{50, 90}, []float64{1, 2})
	_, err = Compare(ref, cand, 30, 90)
	require.ErrorIs(t, err, ErrNoOverlap)
}

func TestCompareRuntimeDelta(t *testing.T) {
	ref := buildCurve(t, "aom",
		[]int64{1000, 500, 250}, []float64{70, 85, 95}, []float64{1, 2, 4})
	cand := buildCurve(t, "svt",
		[]int64{1000, 500, 250}, []float64{70, 85, 95}, []float64{2, 4, 8})

	result, err := Compare(ref, cand, 70, 95)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, result.DeltaRate, 1e-9)
	// Candidate takes exactly twice as long at every knot. Runtime
	// interpolation is linear, so between knots the ratio varies slightly,
	// but the average stays close to +100%.
	assert.InDelta(t, 100.0, result.DeltaRuntime, 2.0)
}

func TestCompareAllCollectsFailures(t *testing.T) {
	curves := map[string]Curve{
		"aom": buildCurve(t, "aom",
			[]int64{1000, 500, 250}, []float64{70, 85, 95}, []float64{1, 2, 4}),
		"svt": buildCurve(t, "svt",
			[]int64{900, 450, 225}, []float64{70, 85, 95}, []float64{1, 2, 4}),
		"lowq": buildCurve(t, "lowq",
			[]int64{900, 450}, []float64{20, 40}, []float64{1, 2}),
	}
	labels := []string{"aom", "svt", "lowq", "missing"}

	m := CompareAll(labels, curves, 70, 95)

	r, err := m.At("aom", "svt")
	require.NoError(t, err)
	assert.InDelta(t, -10.0, r.DeltaRate, 0.01)

	// lowq shares no range with aom; missing has no curve at all. Both
	// failures are recorded, neither aborts the batch.
	_, err = m.At("aom", "lowq")
	assert.ErrorIs(t, err, ErrNoOverlap)
	_, err = m.At("aom", "missing")
	assert.Error(t, err)

	// 4 labels -> 12 ordered pairs, every one accounted for.
	assert.Equal(t, 12, len(m.Results)+len(m.Failures))
}
