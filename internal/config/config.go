// Copyright (C) 2024 The hsp authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config loads the YAML processing configuration that tunes the
// pipeline independently of per-batch order files.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hspdev/hsp/internal/raster"
)

// Config tunes the correction pipeline.
type Config struct {
	// Workers caps concurrent input files; 0 means one per CPU.
	Workers int `yaml:"workers"`
	// Inpaint selects the defective-pixel algorithm: "idw" (default),
	// "telea" or "neighborhood".
	Inpaint string `yaml:"inpaint"`
	// InpaintRadius is the Telea neighbourhood radius.
	InpaintRadius float64 `yaml:"inpaint_radius"`
	// Fused enables the pre-combined VNIR coefficient path.
	Fused bool `yaml:"fused"`
	// Gaussian appends a 3x3 smoothing step after the corrections.
	Gaussian bool `yaml:"gaussian"`
	// Preview renders a quicklook JPEG next to each output.
	Preview bool `yaml:"preview"`
	// PreviewBand selects the band rendered into the quicklook.
	PreviewBand int `yaml:"preview_band"`
	// Pseudocolor switches the quicklook from grayscale to a color ramp.
	Pseudocolor bool `yaml:"pseudocolor"`
	// DumpLabels writes the IDW row/column run-length label matrices next
	// to the output, for calibration diagnostics.
	DumpLabels bool `yaml:"dump_labels"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Inpaint:       "idw",
		InpaintRadius: 3,
	}
}

// Load reads a YAML configuration file, filling unset fields with defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.WithMessagef(raster.ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithMessagef(raster.ErrParseFailed, "%s: %s", filename, err.Error())
	}
	if cfg.InpaintRadius <= 0 {
		cfg.InpaintRadius = 3
	}
	return cfg, nil
}
