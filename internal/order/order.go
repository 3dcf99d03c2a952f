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

// Package order parses processing-order files: JSON with line comments and
// trailing commas permitted, listing inputs, coefficient paths and outputs.
package order

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/tailscale/hujson"

	"github.com/hspdev/hsp/internal/raster"
)

// Input names one product to correct. Raw marks Level-0 telemetry that
// must go through the frame decoder instead of the raster adapter.
type Input struct {
	Filename string `json:"filename"`
	Raw      bool   `json:"raw"`
}

// Coeff holds the calibration coefficient paths of one order. Empty paths
// disable the corresponding correction.
type Coeff struct {
	DarkA    string `json:"dark_a"`
	DarkB    string `json:"dark_b"`
	RelA     string `json:"rel_a"`
	RelB     string `json:"rel_b"`
	EtalonA  string `json:"etalon_a"`
	EtalonB  string `json:"etalon_b"`
	Badpixel string `json:"badpixel"`
}

// Order is one batch: outputs are positionally aligned to inputs.
type Order struct {
	Inputs  []Input  `json:"input"`
	Coeff   Coeff    `json:"coeff"`
	Outputs []string `json:"output"`
}

// Parse decodes an order document. Line comments and trailing commas are
// standardised away before strict JSON decoding.
func Parse(data []byte) (*Order, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, errors.WithMessagef(raster.ErrParseFailed, "order: %s", err.Error())
	}
	var o Order
	if err := json.Unmarshal(std, &o); err != nil {
		return nil, errors.WithMessagef(raster.ErrParseFailed, "order: %s", err.Error())
	}
	if len(o.Inputs) == 0 {
		return nil, errors.WithMessagef(raster.ErrParseFailed, "order: no inputs")
	}
	if len(o.Outputs) != len(o.Inputs) {
		return nil, errors.WithMessagef(raster.ErrParseFailed,
			"order: %d outputs for %d inputs", len(o.Outputs), len(o.Inputs))
	}
	return &o, nil
}

// Load reads and parses an order file.
func Load(filename string) (*Order, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.WithMessagef(raster.ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	return Parse(data)
}
