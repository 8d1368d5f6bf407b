package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rachelplusplus/image-encoder-comparison/internal/multires"
)

// Default quality grid: SSIMULACRA2 scores from 30 ("low quality") to 90
// ("visually lossless") at integer steps.
const (
	DefaultQualityLo  = 30.0
	DefaultQualityHi  = 90.0
	DefaultGridPoints = 61
)

type Config struct {
	// DatabasePath is the results database to read samples from
	DatabasePath string `yaml:"database_path"`

	// LogLevel controls log verbosity: debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// QualityLo/QualityHi is the target quality-score range curves are
	// compared over
	QualityLo float64 `yaml:"quality_lo"`
	QualityHi float64 `yaml:"quality_hi"`

	// GridPoints is the number of evenly spaced quality scores used for
	// curve averaging and delta-rate integration
	GridPoints int `yaml:"grid_points"`

	// Workers is the number of concurrent curve builds (0 = number of CPUs)
	Workers int `yaml:"workers"`

	// Calibrations optionally overrides the per-resolution quality remap.
	// When absent for a resolution, the remap is derived from the samples'
	// own measured full-resolution scores.
	Calibrations []CalibrationConfig `yaml:"calibrations"`
}

// CalibrationConfig maps one resolution's native quality scale onto the
// full-resolution scale via measured points.
type CalibrationConfig struct {
	ResolutionIndex int                `yaml:"resolution_index"`
	Points          []CalibrationPoint `yaml:"points"`
}

// CalibrationPoint equates one full-resolution score with the native
// score at matching visual fidelity.
type CalibrationPoint struct {
	Fullres float64 `yaml:"fullres"`
	Native  float64 `yaml:"native"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "results.sqlite",
		LogLevel:     "info",
		QualityLo:    DefaultQualityLo,
		QualityHi:    DefaultQualityHi,
		GridPoints:   DefaultGridPoints,
		Workers:      0, // number of CPUs
	}
}

// Load reads config from a YAML file, applying defaults for missing values
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file - use defaults
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Apply defaults for empty values
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "results.sqlite"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.QualityLo == 0 && cfg.QualityHi == 0 {
		cfg.QualityLo = DefaultQualityLo
		cfg.QualityHi = DefaultQualityHi
	}
	if cfg.GridPoints < 2 {
		cfg.GridPoints = DefaultGridPoints
	}
	if cfg.Workers < 0 {
		cfg.Workers = 0
	}

	if cfg.QualityLo >= cfg.QualityHi {
		return nil, fmt.Errorf("quality range [%g, %g] is empty", cfg.QualityLo, cfg.QualityHi)
	}

	return cfg, nil
}

// Save writes the config to a YAML file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// BuildCalibrations converts the configured calibration tables into remap
// functions, keyed by resolution index.
func (c *Config) BuildCalibrations() (map[int]multires.Calibration, error) {
	out := make(map[int]multires.Calibration, len(c.Calibrations))
	for _, cc := range c.Calibrations {
		fullres := make([]float64, len(cc.Points))
		native := make([]float64, len(cc.Points))
		for i, p := range cc.Points {
			fullres[i] = p.Fullres
			native[i] = p.Native
		}
		cal, err := multires.FromPairs(fullres, native)
		if err != nil {
			return nil, fmt.Errorf("calibration for resolution %d: %w", cc.ResolutionIndex, err)
		}
		out[cc.ResolutionIndex] = cal
	}
	return out, nil
}
