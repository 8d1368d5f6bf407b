package metric

import (
	"fmt"
)

// Pair identifies one directed comparison in a matrix.
type Pair struct {
	Reference string
	Candidate string
}

// Matrix holds every pairwise comparison between a set of labeled curves,
// with failures collected per pair rather than aborting the batch. A
// failed cell is still a cell: renderers show it with its reason instead
// of omitting or zero-filling it.
type Matrix struct {
	Labels   []string
	Results  map[Pair]*Result
	Failures map[Pair]error
}

// CompareAll compares every ordered pair of distinct labels over
// [qlo, qhi]. Labels without a curve fail every pair they appear in.
func CompareAll(labels []string, curves map[string]Curve, qlo, qhi float64) *Matrix {
	m := &Matrix{
		Labels:   labels,
		Results:  make(map[Pair]*Result),
		Failures: make(map[Pair]error),
	}

	for _, ref := range labels {
		for _, cand := range labels {
			if ref == cand {
				continue
			}
			pair := Pair{Reference: ref, Candidate: cand}

			refCurve, ok := curves[ref]
			if !ok {
				m.Failures[pair] = fmt.Errorf("no curve for label %q", ref)
				continue
			}
			candCurve, ok := curves[cand]
			if !ok {
				m.Failures[pair] = fmt.Errorf("no curve for label %q", cand)
				continue
			}

			result, err := Compare(refCurve, candCurve, qlo, qhi)
			if err != nil {
				m.Failures[pair] = err
				continue
			}
			m.Results[pair] = result
		}
	}

	return m
}

// At returns the result for (reference, candidate), or the failure that
// prevented it.
func (m *Matrix) At(reference, candidate string) (*Result, error) {
	pair := Pair{Reference: reference, Candidate: candidate}
	if err, ok := m.Failures[pair]; ok {
		return nil, err
	}
	if r, ok := m.Results[pair]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("no comparison for (%s, %s)", reference, candidate)
}
