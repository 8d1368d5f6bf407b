// Package samples holds raw encoder benchmark measurements and the
// validation rules that make them usable for curve fitting.
package samples

import (
	"fmt"
	"sort"
)

// Sample is a single encode measurement: one run of one encoder at one
// quality parameter against one source image at one resolution.
type Sample struct {
	// QualityParam is the encoder-specific quality knob. It is recorded for
	// traceability only and is not comparable across encoders.
	QualityParam int

	// SizeBytes is the compressed output size.
	SizeBytes int64

	// QualityScore is the normalized perceptual score (SSIMULACRA2-style),
	// measured against the same-resolution source. All curves are built on
	// this axis.
	QualityScore float64

	// RuntimeSecs is the wall-clock encode time in seconds.
	RuntimeSecs float64

	// FullresScore is the perceptual score of the decoded output after
	// upscaling to the full source resolution. Zero when not measured.
	// Used to calibrate quality scales across resolutions.
	FullresScore float64
}

// Resolution identifies one scaled variant of a source image.
// Index 0 is always the full resolution.
type Resolution struct {
	Index  int
	Width  int
	Height int
}

// PixelCount returns the number of pixels at this resolution.
func (r Resolution) PixelCount() int64 {
	return int64(r.Width) * int64(r.Height)
}

// Set is a validated, immutable collection of samples for one
// (encoder label, source, resolution) tuple, sorted by ascending
// quality score with ties removed.
type Set struct {
	label      string
	source     string
	resolution Resolution
	samples    []Sample
}

// New validates raw samples into a Set. Samples are sorted by quality
// score; when two samples share a score, the smaller (and on equal size,
// faster) one is kept, so tie-breaking is deterministic regardless of
// input order. Fails with ErrInsufficientSamples unless at least two
// distinct quality scores remain.
func New(label, source string, resolution Resolution, raw []Sample) (*Set, error) {
	kept := make([]Sample, len(raw))
	copy(kept, raw)

	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.QualityScore != b.QualityScore {
			return a.QualityScore < b.QualityScore
		}
		if a.SizeBytes != b.SizeBytes {
			return a.SizeBytes < b.SizeBytes
		}
		return a.RuntimeSecs < b.RuntimeSecs
	})

	// Drop all but the first (smallest, fastest) sample at each score.
	deduped := kept[:0]
	for i, s := range kept {
		if i > 0 && s.QualityScore == deduped[len(deduped)-1].QualityScore {
			continue
		}
		deduped = append(deduped, s)
	}

	if len(deduped) < 2 {
		return nil, insufficientSamplesError(label, source, resolution.Index, len(deduped))
	}

	return &Set{
		label:      label,
		source:     source,
		resolution: resolution,
		samples:    deduped,
	}, nil
}

// Label returns the encoder label this set was measured under.
func (s *Set) Label() string { return s.label }

// Source returns the source image identity.
func (s *Set) Source() string { return s.source }

// Resolution returns the resolution the samples were encoded at.
func (s *Set) Resolution() Resolution { return s.resolution }

// Len returns the number of samples in the set.
func (s *Set) Len() int { return len(s.samples) }

// At returns the i-th sample in ascending quality-score order.
func (s *Set) At(i int) Sample { return s.samples[i] }

// Samples returns a copy of the backing samples.
func (s *Set) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Scores returns the quality scores in ascending order.
func (s *Set) Scores() []float64 {
	out := make([]float64, len(s.samples))
	for i, smp := range s.samples {
		out[i] = smp.QualityScore
	}
	return out
}

// MinScore returns the lowest quality score in the set.
func (s *Set) MinScore() float64 { return s.samples[0].QualityScore }

// MaxScore returns the highest quality score in the set.
func (s *Set) MaxScore() float64 { return s.samples[len(s.samples)-1].QualityScore }

// CheckCoverage verifies that the set spans [lo, hi]. Curves refuse to
// extrapolate, so a set that doesn't reach both ends of the target range
// can't produce a usable curve over it.
func (s *Set) CheckCoverage(lo, hi float64) error {
	if s.MinScore() > lo || s.MaxScore() < hi {
		return insufficientCoverageError(s.label, s.source, s.resolution.Index,
			s.MinScore(), s.MaxScore(), lo, hi)
	}
	return nil
}

// CountBelow returns how many samples score strictly below q.
func (s *Set) CountBelow(q float64) int {
	n := 0
	for _, smp := range s.samples {
		if smp.QualityScore < q {
			n++
		}
	}
	return n
}

// CountAbove returns how many samples score strictly above q.
func (s *Set) CountAbove(q float64) int {
	n := 0
	for _, smp := range s.samples {
		if smp.QualityScore > q {
			n++
		}
	}
	return n
}

// WithoutIndex returns a new Set with the i-th sample withheld.
// Used by jackknife resampling. Fails with ErrInsufficientSamples if
// fewer than two samples would remain.
func (s *Set) WithoutIndex(i int) (*Set, error) {
	if i < 0 || i >= len(s.samples) {
		return nil, fmt.Errorf("sample index %d out of range [0, %d)", i, len(s.samples))
	}
	remaining := make([]Sample, 0, len(s.samples)-1)
	remaining = append(remaining, s.samples[:i]...)
	remaining = append(remaining, s.samples[i+1:]...)
	return New(s.label, s.source, s.resolution, remaining)
}

// HasFullresScores reports whether every sample carries a measured
// full-resolution score, i.e. whether the set can supply quality
// calibration pairs.
func (s *Set) HasFullresScores() bool {
	for _, smp := range s.samples {
		if smp.FullresScore == 0 {
			return false
		}
	}
	return true
}
