package estimate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rachelplusplus/image-encoder-comparison/internal/curve"
	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

var testRes = samples.Resolution{Index: 0, Width: 1920, Height: 1080}

// anchoredSet builds a set spanning well past [30, 90] with two anchor
// samples outside each side, scaled by a size factor.
func anchoredSet(t *testing.T, source string, sizeFactor float64) *samples.Set {
	t.Helper()
	base := []struct {
		score float64
		size  float64
		rt    float64
	}{
		{15, 5000, 0.4}, {22, 3500, 0.6}, {35, 2000, 0.9}, {50, 1200, 1.3},
		{65, 700, 1.9}, {80, 400, 2.8}, {93, 220, 4.1}, {97, 150, 5.5},
	}
	raw := make([]samples.Sample, len(base))
	for i, b := range base {
		raw[i] = samples.Sample{
			SizeBytes:    int64(math.Round(b.size * sizeFactor)),
			QualityScore: b.score,
			RuntimeSecs:  b.rt,
		}
	}
	set, err := samples.New("aom", source, testRes, raw)
	require.NoError(t, err)
	return set
}

// meanLogSizeMetric averages log size over [30, 90] for the geometric
// mean curve of the given sets. A stand-in for the real delta-rate
// metrics, cheap enough to jackknife in tests.
func meanLogSizeMetric(qlo, qhi float64) MetricFunc {
	return func(sets []*samples.Set) (float64, error) {
		const points = 31
		total := 0.0
		for _, set := range sets {
			c, err := curve.Build(set)
			if err != nil {
				return 0, err
			}
			for i := 0; i < points; i++ {
				q := qlo + (qhi-qlo)*float64(i)/float64(points-1)
				ls, err := c.LogSizeAt(q)
				if err != nil {
					return 0, err
				}
				total += ls
			}
		}
		return total / float64(points*len(sets)), nil
	}
}

func TestJackknifeZeroDispersionForIdenticalSources(t *testing.T) {
	// Three sources with identical measurements: withholding any one of
	// them changes nothing, so the dispersion must be zero.
	sets := []*samples.Set{
		anchoredSet(t, "a", 1.0),
		anchoredSet(t, "b", 1.0),
		anchoredSet(t, "c", 1.0),
	}

	result, err := Jackknife(sets, 30, 90, WithholdSource, meanLogSizeMetric(30, 90))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rounds)
	assert.InDelta(t, 0.0, result.StdErr, 1e-12)
}

func TestJackknifeSourceDispersionReflectsSpread(t *testing.T) {
	sets := []*samples.Set{
		anchoredSet(t, "a", 1.0),
		anchoredSet(t, "b", 1.5),
		anchoredSet(t, "c", 0.7),
	}

	result, err := Jackknife(sets, 30, 90, WithholdSource, meanLogSizeMetric(30, 90))
	require.NoError(t, err)
	assert.Greater(t, result.StdErr, 0.0)

	// The point estimate comes from the full data.
	full, err := meanLogSizeMetric(30, 90)(sets)
	require.NoError(t, err)
	assert.Equal(t, full, result.Estimate)
}

func TestJackknifeSampleGranularity(t *testing.T) {
	sets := []*samples.Set{anchoredSet(t, "a", 1.0)}

	result, err := Jackknife(sets, 30, 90, WithholdSample, meanLogSizeMetric(30, 90))
	require.NoError(t, err)
	// One round per sample in the set.
	assert.Equal(t, sets[0].Len(), result.Rounds)
	assert.Greater(t, result.StdErr, 0.0)
}

func TestJackknifeRequiresDoubledAnchors(t *testing.T) {
	// Only one sample below 30: withholding it would shrink the domain,
	// so sample-granularity resampling must refuse up front.
	raw := []samples.Sample{
		{SizeBytes: 3000, QualityScore: 25, RuntimeSecs: 0.5},
		{SizeBytes: 1500, QualityScore: 45, RuntimeSecs: 1.0},
		{SizeBytes: 800, QualityScore: 70, RuntimeSecs: 1.8},
		{SizeBytes: 300, QualityScore: 93, RuntimeSecs: 3.0},
		{SizeBytes: 200, QualityScore: 97, RuntimeSecs: 4.0},
	}
	set, err := samples.New("aom", "a", testRes, raw)
	require.NoError(t, err)

	_, err = Jackknife([]*samples.Set{set}, 30, 90, WithholdSample, meanLogSizeMetric(30, 90))
	require.ErrorIs(t, err, ErrUnstableDomain)
}

func TestJackknifeSourceGranularityNeedsCoverage(t *testing.T) {
	covering := anchoredSet(t, "a", 1.0)

	// A second source that never reaches the high end of the range.
	raw := []samples.Sample{
		{SizeBytes: 3000, QualityScore: 20, RuntimeSecs: 0.5},
		{SizeBytes: 1500, QualityScore: 45, RuntimeSecs: 1.0},
		{SizeBytes: 900, QualityScore: 65, RuntimeSecs: 1.5},
	}
	partial, err := samples.New("aom", "b", testRes, raw)
	require.NoError(t, err)

	_, err = Jackknife([]*samples.Set{covering, partial}, 30, 90, WithholdSource, meanLogSizeMetric(30, 90))
	require.ErrorIs(t, err, ErrUnstableDomain)

	// A single source can't be jackknifed at source granularity at all.
	_, err = Jackknife([]*samples.Set{covering}, 30, 90, WithholdSource, meanLogSizeMetric(30, 90))
	require.ErrorIs(t, err, ErrUnstableDomain)
}
