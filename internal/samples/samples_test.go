package samples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRes = Resolution{Index: 0, Width: 1920, Height: 1080}

func TestNewSortsByQualityScore(t *testing.T) {
	set, err := New("aom", "bunny", testRes, []Sample{
		{QualityParam: 9, SizeBytes: 250, QualityScore: 95, RuntimeSecs: 4.0},
		{QualityParam: 1, SizeBytes: 1000, QualityScore: 70, RuntimeSecs: 1.0},
		{QualityParam: 5, SizeBytes: 500, QualityScore: 85, RuntimeSecs: 2.0},
	})
	require.NoError(t, err)

	require.Equal(t, 3, set.Len())
	assert.Equal(t, []float64{70, 85, 95}, set.Scores())
	assert.Equal(t, 70.0, set.MinScore())
	assert.Equal(t, 95.0, set.MaxScore())
}

func TestNewResolvesTiesDeterministically(t *testing.T) {
	// Two samples at the same score: the smaller output wins, and on
	// equal size the faster one wins. Input order must not matter.
	a := Sample{QualityParam: 3, SizeBytes: 800, QualityScore: 80, RuntimeSecs: 1.5}
	b := Sample{QualityParam: 4, SizeBytes: 700, QualityScore: 80, RuntimeSecs: 3.0}
	anchor := Sample{QualityParam: 1, SizeBytes: 1200, QualityScore: 60, RuntimeSecs: 1.0}

	for _, order := range [][]Sample{{anchor, a, b}, {anchor, b, a}} {
		set, err := New("aom", "bunny", testRes, order)
		require.NoError(t, err)
		require.Equal(t, 2, set.Len())
		assert.Equal(t, int64(700), set.At(1).SizeBytes)
	}

	// Equal sizes: lower runtime survives.
	c := Sample{QualityParam: 5, SizeBytes: 700, QualityScore: 80, RuntimeSecs: 0.5}
	set, err := New("aom", "bunny", testRes, []Sample{anchor, b, c})
	require.NoError(t, err)
	assert.Equal(t, 0.5, set.At(1).RuntimeSecs)
}

func TestNewRejectsTooFewDistinctScores(t *testing.T) {
	_, err := New("aom", "bunny", testRes, []Sample{
		{SizeBytes: 800, QualityScore: 80},
		{SizeBytes: 700, QualityScore: 80},
	})
	require.ErrorIs(t, err, ErrInsufficientSamples)

	_, err = New("aom", "bunny", testRes, nil)
	require.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestCheckCoverage(t *testing.T) {
	set, err := New("aom", "bunny", testRes, []Sample{
		{SizeBytes: 1000, QualityScore: 25},
		{SizeBytes: 500, QualityScore: 60},
		{SizeBytes: 250, QualityScore: 95},
	})
	require.NoError(t, err)

	assert.NoError(t, set.CheckCoverage(30, 90))
	assert.ErrorIs(t, set.CheckCoverage(20, 90), ErrInsufficientCoverage)
	assert.ErrorIs(t, set.CheckCoverage(30, 99), ErrInsufficientCoverage)
}

func TestWithoutIndex(t *testing.T) {
	set, err := New("aom", "bunny", testRes, []Sample{
		{SizeBytes: 1000, QualityScore: 70},
		{SizeBytes: 500, QualityScore: 85},
		{SizeBytes: 250, QualityScore: 95},
	})
	require.NoError(t, err)

	reduced, err := set.WithoutIndex(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{70, 95}, reduced.Scores())

	// Original set is untouched.
	assert.Equal(t, 3, set.Len())

	// Dropping below two samples is refused.
	_, err = reduced.WithoutIndex(0)
	require.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestWithoutIndexOutOfRange(t *testing.T) {
	set, err := New("aom", "bunny", testRes, []Sample{
		{SizeBytes: 1000, QualityScore: 70},
		{SizeBytes: 500, QualityScore: 85},
	})
	require.NoError(t, err)

	// A bad index is a caller bug, not a data-coverage problem.
	for _, i := range []int{-1, 2} {
		_, err := set.WithoutIndex(i)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInsufficientSamples)
		assert.Contains(t, err.Error(), "out of range")
	}
}

func TestAnchorCounting(t *testing.T) {
	set, err := New("aom", "bunny", testRes, []Sample{
		{SizeBytes: 1500, QualityScore: 20},
		{SizeBytes: 1200, QualityScore: 25},
		{SizeBytes: 800, QualityScore: 50},
		{SizeBytes: 400, QualityScore: 92},
		{SizeBytes: 300, QualityScore: 96},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, set.CountBelow(30))
	assert.Equal(t, 2, set.CountAbove(90))
	assert.Equal(t, 0, set.CountAbove(96))
}

func TestHasFullresScores(t *testing.T) {
	withScores := []Sample{
		{SizeBytes: 1000, QualityScore: 70, FullresScore: 55},
		{SizeBytes: 500, QualityScore: 85, FullresScore: 72},
	}
	set, err := New("aom", "bunny", Resolution{Index: 1, Width: 1280, Height: 720}, withScores)
	require.NoError(t, err)
	assert.True(t, set.HasFullresScores())

	withScores[1].FullresScore = 0
	set, err = New("aom", "bunny", Resolution{Index: 1, Width: 1280, Height: 720}, withScores)
	require.NoError(t, err)
	assert.False(t, set.HasFullresScores())
}
