// Package config loads pipeline configuration from JSON. Every field is a
// pointer so partial configs are safe: omitted fields fall back to the
// pipeline defaults, and the same file schema works for full and
// incremental setups.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gwpop/gwdet/internal/detect"
)

// maxFileSize bounds config reads (the file is tiny; anything bigger is a
// mistake).
const maxFileSize = 1 * 1024 * 1024

// PipelineConfig is the JSON schema for the detection pipeline.
type PipelineConfig struct {
	Approximant  *string  `json:"approximant,omitempty"`
	PSD          *string  `json:"psd,omitempty"`
	FLow         *float64 `json:"flow,omitempty"`
	DeltaF       *float64 `json:"deltaf,omitempty"`
	SNRThreshold *float64 `json:"snr_threshold,omitempty"`

	MassMin *float64 `json:"mass_min,omitempty"`
	MassMax *float64 `json:"mass_max,omitempty"`
	ZMin    *float64 `json:"z_min,omitempty"`
	ZMax    *float64 `json:"z_max,omitempty"`
	Grid1D  *int     `json:"grid_1d,omitempty"`

	MCSamples *int   `json:"mc_samples,omitempty"`
	MCBins    *int   `json:"mc_bins,omitempty"`
	Seed      *int64 `json:"seed,omitempty"`

	CacheDir *string `json:"cache_dir,omitempty"`
	Workers  *int    `json:"workers,omitempty"`
	Parallel *bool   `json:"parallel,omitempty"`
}

// Load reads a PipelineConfig from a JSON file.
func Load(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg PipelineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// Apply overlays the set fields onto a detect.Config and validates the
// result.
func (c *PipelineConfig) Apply(base detect.Config) (detect.Config, error) {
	if c.Approximant != nil {
		base.Approximant = *c.Approximant
	}
	if c.PSD != nil {
		base.PSD = *c.PSD
	}
	if c.FLow != nil {
		base.FLow = *c.FLow
	}
	if c.DeltaF != nil {
		base.DeltaF = *c.DeltaF
	}
	if c.SNRThreshold != nil {
		base.SNRThreshold = *c.SNRThreshold
	}
	if c.MassMin != nil {
		base.MassMin = *c.MassMin
	}
	if c.MassMax != nil {
		base.MassMax = *c.MassMax
	}
	if c.ZMin != nil {
		base.ZMin = *c.ZMin
	}
	if c.ZMax != nil {
		base.ZMax = *c.ZMax
	}
	if c.Grid1D != nil {
		base.Grid1D = *c.Grid1D
	}
	if c.MCSamples != nil {
		base.MCSamples = *c.MCSamples
	}
	if c.MCBins != nil {
		base.MCBins = *c.MCBins
	}
	if c.Seed != nil {
		base.Seed = *c.Seed
	}
	if c.CacheDir != nil {
		base.CacheDir = *c.CacheDir
	}
	if c.Workers != nil {
		base.Workers = *c.Workers
	}
	if c.Parallel != nil {
		base.Parallel = *c.Parallel
	}
	if err := base.Validate(); err != nil {
		return detect.Config{}, err
	}
	return base, nil
}
