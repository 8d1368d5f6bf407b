// Package store persists raw encode results in SQLite, keyed by encoder
// label, source identity, and resolution. Aggregated data (curves, delta
// rates) is never stored: it is cheap to recompute and storing it would
// invite synchronization bugs with the raw results.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/rachelplusplus/image-encoder-comparison/internal/samples"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	basename TEXT NOT NULL,
	resolution_index INTEGER NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS sources_index
	ON sources(basename, resolution_index);

CREATE TABLE IF NOT EXISTS results (
	label TEXT NOT NULL,
	source TEXT NOT NULL,
	resolution_index INTEGER NOT NULL,
	quality INTEGER NOT NULL,
	size INTEGER NOT NULL,
	runtime REAL NOT NULL,
	ssimu2 REAL NOT NULL,
	fullres_ssimu2 REAL NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS results_index
	ON results(label, source, resolution_index, quality);
`

// Store is a SQLite-backed sample store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the results database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode lets concurrent curve builds read while results are being
	// written by an encode run.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddSource records one resolution variant of a source image.
// Re-inserting the same (source, resolution) is an error, matching the
// unique index: resolution metadata must not silently change under
// existing results.
func (s *Store) AddSource(basename string, res samples.Resolution) error {
	_, err := s.db.Exec(
		"INSERT INTO sources (basename, resolution_index, width, height) VALUES (?, ?, ?, ?)",
		basename, res.Index, res.Width, res.Height)
	if err != nil {
		return fmt.Errorf("insert source %s/%d: %w", basename, res.Index, err)
	}
	return nil
}

// AddResult records one encode measurement. An existing result for the
// same (label, source, resolution, quality) is replaced, so re-running an
// encode set refreshes stale measurements.
func (s *Store) AddResult(label, source string, resolutionIndex, qualityParam int, r samples.Sample) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO results
			(label, source, resolution_index, quality, size, runtime, ssimu2, fullres_ssimu2)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		label, source, resolutionIndex, qualityParam,
		r.SizeBytes, r.RuntimeSecs, r.QualityScore, r.FullresScore)
	if err != nil {
		return fmt.Errorf("insert result (label=%s, source=%s, resolution=%d, quality=%d): %w",
			label, source, resolutionIndex, qualityParam, err)
	}
	return nil
}

// Resolutions returns the resolution variants of a source in ascending
// index order, full resolution first.
func (s *Store) Resolutions(source string) ([]samples.Resolution, error) {
	rows, err := s.db.Query(
		"SELECT resolution_index, width, height FROM sources WHERE basename = ? ORDER BY resolution_index",
		source)
	if err != nil {
		return nil, fmt.Errorf("query resolutions for %s: %w", source, err)
	}
	defer rows.Close()

	var out []samples.Resolution
	for rows.Next() {
		var r samples.Resolution
		if err := rows.Scan(&r.Index, &r.Width, &r.Height); err != nil {
			return nil, fmt.Errorf("scan resolution for %s: %w", source, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no resolutions recorded for source %s", source)
	}
	return out, nil
}

// Labels returns all encoder labels with recorded results.
func (s *Store) Labels() ([]string, error) {
	return s.stringColumn("SELECT DISTINCT label FROM results ORDER BY label")
}

// Sources returns all source identities recorded under a label.
func (s *Store) Sources(label string) ([]string, error) {
	return s.stringColumn("SELECT DISTINCT source FROM results WHERE label = ? ORDER BY source", label)
}

// SharedSources returns the sources encoded under every one of the given
// labels. Comparisons are only meaningful over a shared source list.
func (s *Store) SharedSources(labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels given")
	}

	shared := make(map[string]int)
	for _, label := range labels {
		sources, err := s.Sources(label)
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			shared[src]++
		}
	}

	var out []string
	for src, n := range shared {
		if n == len(labels) {
			out = append(out, src)
		}
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, fmt.Errorf("no shared sources between labels %v", labels)
	}
	return out, nil
}

// stringColumn runs a query returning a single text column.
func (s *Store) stringColumn(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Samples returns the validated sample set for one (label, source,
// resolution) tuple. An empty result surfaces as
// samples.ErrInsufficientSamples, attached to this tuple only.
func (s *Store) Samples(label, source string, resolutionIndex int) (*samples.Set, error) {
	var res samples.Resolution
	err := s.db.QueryRow(
		"SELECT resolution_index, width, height FROM sources WHERE basename = ? AND resolution_index = ?",
		source, resolutionIndex).Scan(&res.Index, &res.Width, &res.Height)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no resolution %d recorded for source %s", resolutionIndex, source)
	} else if err != nil {
		return nil, fmt.Errorf("query resolution %s/%d: %w", source, resolutionIndex, err)
	}

	rows, err := s.db.Query(
		`SELECT quality, size, runtime, ssimu2, fullres_ssimu2 FROM results
		 WHERE label = ? AND source = ? AND resolution_index = ?`,
		label, source, resolutionIndex)
	if err != nil {
		return nil, fmt.Errorf("query results (label=%s, source=%s, resolution=%d): %w",
			label, source, resolutionIndex, err)
	}
	defer rows.Close()

	var raw []samples.Sample
	for rows.Next() {
		var smp samples.Sample
		if err := rows.Scan(&smp.QualityParam, &smp.SizeBytes, &smp.RuntimeSecs,
			&smp.QualityScore, &smp.FullresScore); err != nil {
			return nil, fmt.Errorf("scan result (label=%s, source=%s, resolution=%d): %w",
				label, source, resolutionIndex, err)
		}
		raw = append(raw, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples.New(label, source, res, raw)
}
