// Package report renders finished comparison results as plain text and
// CSV. Graphical output is left to external plotting tools fed by the
// CSV export.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rachelplusplus/image-encoder-comparison/internal/analysis"
	"github.com/rachelplusplus/image-encoder-comparison/internal/curve"
	"github.com/rachelplusplus/image-encoder-comparison/internal/estimate"
	"github.com/rachelplusplus/image-encoder-comparison/internal/metric"
	"github.com/rachelplusplus/image-encoder-comparison/internal/multires"
	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

// minCellWidth fits "+xxx.x%, +yyyy.y%" entries.
const minCellWidth = 17

// ResolutionName formats a resolution index for display.
func ResolutionName(index int) string {
	if index == analysis.MultiresIndex {
		return "multires"
	}
	return fmt.Sprintf("resolution %d", index)
}

// reasonFor maps an error to a short table-cell reason.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, metric.ErrNoOverlap):
		return "no overlap"
	case errors.Is(err, curve.ErrOutOfDomain):
		return "out of domain"
	case errors.Is(err, multires.ErrIncompleteResolutionSet):
		return "incomplete layers"
	case errors.Is(err, samples.ErrInsufficientSamples):
		return "too few samples"
	case errors.Is(err, estimate.ErrUnstableDomain):
		return "unstable domain"
	default:
		return "failed"
	}
}

func centerText(text string, width int) string {
	if len(text) >= width {
		return text
	}
	left := (width - len(text)) / 2
	right := width - len(text) - left
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", right)
}

func cellText(m *metric.Matrix, ref, cand string) string {
	if r, ok := m.Results[metric.Pair{Reference: ref, Candidate: cand}]; ok {
		cell := fmt.Sprintf("%+6.1f%%, %+7.1f%%", r.DeltaRate, r.DeltaRuntime)
		if r.RangeNarrowed {
			cell += " *"
		}
		return cell
	}
	if err, ok := m.Failures[metric.Pair{Reference: ref, Candidate: cand}]; ok {
		return "N/A (" + reasonFor(err) + ")"
	}
	return ""
}

// WriteComparisonTable prints one pairwise delta table: rows are
// candidates, columns are references, each entry is the candidate's delta
// rate and delta runtime against that reference. Entries computed over a
// narrowed quality range are marked with an asterisk.
func WriteComparisonTable(w io.Writer, title string, m *metric.Matrix) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n\n", title, strings.Repeat("=", len(title))); err != nil {
		return err
	}

	rowWidth := 0
	for _, label := range m.Labels {
		if len(label) > rowWidth {
			rowWidth = len(label)
		}
	}

	// Column widths stretch to fit failure reasons.
	colWidths := make([]int, len(m.Labels))
	for i, ref := range m.Labels {
		colWidths[i] = max(len(ref), minCellWidth)
		for _, cand := range m.Labels {
			if n := len(cellText(m, ref, cand)); n > colWidths[i] {
				colWidths[i] = n
			}
		}
	}

	header := strings.Repeat(" ", rowWidth)
	divider := strings.Repeat("-", rowWidth)
	for i, ref := range m.Labels {
		header += " | " + centerText(ref, colWidths[i])
		divider += "-+-" + strings.Repeat("-", colWidths[i])
	}
	if _, err := fmt.Fprintf(w, "%s\n%s\n", header, divider); err != nil {
		return err
	}

	for _, cand := range m.Labels {
		line := centerText(cand, rowWidth)
		for i, ref := range m.Labels {
			line += " | " + centerText(cellText(m, ref, cand), colWidths[i])
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// WriteSummary prints one line per (label, resolution) curve: the quality
// domain and the curve's size and runtime at the domain midpoint.
func WriteSummary(w io.Writer, result *analysis.Result) error {
	labels := make([]string, 0, len(result.Labels))
	for label := range result.Labels {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		lc := result.Labels[label]
		if _, err := fmt.Fprintf(w, "%s (%d sources):\n", label, lc.Contributing); err != nil {
			return err
		}

		for _, resIdx := range sortedResolutions(lc.ByResolution) {
			c := lc.ByResolution[resIdx]
			lo, hi := c.Domain()
			mid := (lo + hi) / 2

			size, err := c.SizeAt(mid)
			if err != nil {
				return err
			}
			rt, err := c.RuntimeAt(mid)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "  %-14s quality [%.1f, %.1f], %s and %.3fs at quality %.1f\n",
				ResolutionName(resIdx), lo, hi, humanize.IBytes(uint64(size)), rt, mid); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// WriteFailures lists every tuple that failed to contribute to the run.
func WriteFailures(w io.Writer, failures []analysis.Failure) error {
	if len(failures) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Skipped %d item(s):\n", len(failures)); err != nil {
		return err
	}
	for _, f := range failures {
		where := ResolutionName(f.ResolutionIndex)
		if f.ResolutionIndex < analysis.MultiresIndex {
			where = "all resolutions"
		}
		if _, err := fmt.Fprintf(w, "  %s / %s / %s: %v\n", f.Label, f.Source, where, f.Err); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// WriteEstimate prints a jackknifed delta rate with its standard error.
func WriteEstimate(w io.Writer, refLabel, candLabel string, r *estimate.Result) error {
	_, err := fmt.Fprintf(w, "%s vs %s: delta rate %+.2f%% +/- %.2f%% (stderr over %d rounds)\n",
		candLabel, refLabel, r.Estimate, r.StdErr, r.Rounds)
	return err
}

// WriteCurvesCSV exports every averaged curve sampled on the run's grid,
// one row per (label, resolution, quality) point.
func WriteCurvesCSV(w io.Writer, result *analysis.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "resolution", "quality", "size_bytes", "runtime_secs"}); err != nil {
		return err
	}

	labels := make([]string, 0, len(result.Labels))
	for label := range result.Labels {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		lc := result.Labels[label]
		for _, resIdx := range sortedResolutions(lc.ByResolution) {
			c := lc.ByResolution[resIdx]
			for _, q := range result.Grid {
				size, err := c.SizeAt(q)
				if err != nil {
					return err
				}
				rt, err := c.RuntimeAt(q)
				if err != nil {
					return err
				}
				row := []string{
					label,
					ResolutionName(resIdx),
					strconv.FormatFloat(q, 'f', 2, 64),
					strconv.FormatFloat(size, 'f', 1, 64),
					strconv.FormatFloat(rt, 'f', 6, 64),
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// sortedResolutions orders curve keys with real resolutions first and the
// multires curve last.
func sortedResolutions(byRes map[int]*curve.Curve) []int {
	out := make([]int, 0, len(byRes))
	for idx := range byRes {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if (x == analysis.MultiresIndex) != (y == analysis.MultiresIndex) {
			return y == analysis.MultiresIndex
		}
		return x < y
	})
	return out
}
