package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "results.sqlite", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultQualityLo, cfg.QualityLo)
	assert.Equal(t, DefaultQualityHi, cfg.QualityHi)
	assert.Equal(t, DefaultGridPoints, cfg.GridPoints)
}

func TestLoadAppliesPartialOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"database_path: /data/encodes.sqlite\nquality_lo: 40\nquality_hi: 95\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/encodes.sqlite", cfg.DatabasePath)
	assert.Equal(t, 40.0, cfg.QualityLo)
	assert.Equal(t, 95.0, cfg.QualityHi)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultGridPoints, cfg.GridPoints)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsEmptyQualityRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quality_lo: 90\nquality_hi: 30\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.QualityLo = 35
	cfg.Workers = 4
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 35.0, loaded.QualityLo)
	assert.Equal(t, 4, loaded.Workers)
}

func TestBuildCalibrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
calibrations:
  - resolution_index: 1
    points:
      - {fullres: 70, native: 80}
      - {fullres: 85, native: 90}
      - {fullres: 95, native: 98}
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	cals, err := cfg.BuildCalibrations()
	require.NoError(t, err)
	require.Contains(t, cals, 1)

	nq, err := cals[1].Native(85)
	require.NoError(t, err)
	assert.InDelta(t, 90.0, nq, 1e-9)
}

func TestBuildCalibrationsRejectsBadTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calibrations = []CalibrationConfig{{
		ResolutionIndex: 1,
		Points:          []CalibrationPoint{{Fullres: 70, Native: 80}},
	}}

	_, err := cfg.BuildCalibrations()
	require.Error(t, err)
}
