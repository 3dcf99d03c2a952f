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

// Package pipeline drives a correction batch: one worker per input file,
// frames streamed through the composed operators in emission order, output
// written line by line so the product raster mirrors the input layout.
package pipeline

import (
	"fmt"
	"path"

	"github.com/pkg/errors"

	"github.com/hspdev/hsp/internal/ahsi"
	"github.com/hspdev/hsp/internal/config"
	"github.com/hspdev/hsp/internal/hsiter"
	"github.com/hspdev/hsp/internal/ops"
	"github.com/hspdev/hsp/internal/order"
	"github.com/hspdev/hsp/internal/radiometric"
	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

// Result reports the outcome for one input of a batch.
type Result struct {
	Input  string
	Output string
	Err    error
}

// Run processes every input of an order. Inputs fail independently; the
// returned error joins the per-input failures.
func Run(o *order.Order, cfg *config.Config, c *ops.Context) ([]Result, error) {
	raster.Register()
	workers := cfg.Workers
	if workers <= 0 {
		workers = c.MaxThreads
	}
	if workers > len(o.Inputs) {
		workers = len(o.Inputs)
	}

	results := make([]Result, len(o.Inputs))
	limiter := make(chan bool, workers)
	for i := range o.Inputs {
		limiter <- true
		go func(i int) {
			defer func() { <-limiter }()
			in, out := o.Inputs[i], o.Outputs[i]
			err := processOne(in, out, &o.Coeff, cfg, c)
			results[i] = Result{Input: in.Filename, Output: out, Err: err}
			if err != nil {
				fmt.Fprintf(c.Log, "%d: error processing %s: %s\n", i, in.Filename, err.Error())
			} else {
				fmt.Fprintf(c.Log, "%d: wrote %s\n", i, out)
			}
		}(i)
	}
	for i := 0; i < cap(limiter); i++ { // wait for workers to finish
		limiter <- true
	}

	var err error
	for _, r := range results {
		if r.Err != nil {
			if err == nil {
				err = r.Err
			} else {
				err = errors.New(err.Error() + "; " + r.Err.Error())
			}
		}
	}
	return results, err
}

func processOne(in order.Input, out string, cf *order.Coeff, cfg *config.Config, c *ops.Context) error {
	if in.Raw {
		return processRaw(in.Filename, out, cf, cfg, c)
	}
	return processRaster(in.Filename, out, cf, cfg, c)
}

// buildCombo assembles the unary corrections applied to every line tile:
// frame-independent dark subtraction (dark_a without dark_b), etalon, then
// relative non-uniformity, then defective-pixel repair, then optional
// Gaussian smoothing.
func buildCombo(cf *order.Coeff, cfg *config.Config, skipNUC bool) (*ops.Combo[*tile.Tile[uint16]], *radiometric.DefectivePixelCorrectionIDW[uint16], error) {
	combo := ops.NewCombo[*tile.Tile[uint16]]()
	if !skipNUC {
		// a dark matrix without an index-gain companion is frame-independent
		// and subtracts directly in the line domain
		if cf.DarkA != "" && cf.DarkB == "" {
			dbc, err := radiometric.NewDarkBackgroundCorrection[uint16](cf.DarkA)
			if err != nil {
				return nil, nil, err
			}
			combo.Add(ops.OpFunc[*tile.Tile[uint16]](dbc.Apply))
		}
		if cf.EtalonA != "" && cf.EtalonB != "" {
			etalon, err := radiometric.NewEtalonCorrection[uint16](cf.EtalonA, cf.EtalonB)
			if err != nil {
				return nil, nil, err
			}
			combo.Add(ops.OpFunc[*tile.Tile[uint16]](etalon.Apply))
		}
		if cf.RelA != "" && cf.RelB != "" {
			nuc, err := radiometric.NewNonUniformityCorrection[uint16](cf.RelA, cf.RelB)
			if err != nil {
				return nil, nil, err
			}
			combo.Add(ops.OpFunc[*tile.Tile[uint16]](nuc.Apply))
		}
	}

	var idw *radiometric.DefectivePixelCorrectionIDW[uint16]
	if cf.Badpixel != "" {
		switch cfg.Inpaint {
		case "telea", "neighborhood":
			dpc, err := radiometric.NewDefectivePixelCorrectionSpectral[uint16](cf.Badpixel)
			if err != nil {
				return nil, nil, err
			}
			dpc.Radius = cfg.InpaintRadius
			if cfg.Inpaint == "neighborhood" {
				dpc.SetInpaint(radiometric.InpaintNeighborhoodAveraging)
			}
			combo.Add(ops.OpFunc[*tile.Tile[uint16]](dpc.Apply))
		default: // idw
			var err error
			idw, err = radiometric.NewDefectivePixelCorrectionIDW[uint16](cf.Badpixel)
			if err != nil {
				return nil, nil, err
			}
			combo.Add(ops.OpFunc[*tile.Tile[uint16]](idw.Apply))
		}
	}
	if cfg.Gaussian {
		combo.Add(ops.OpFunc[*tile.Tile[uint16]](radiometric.NewGaussianFilter[uint16]().Apply))
	}
	return combo, idw, nil
}

// processRaw decodes Level-0 telemetry and streams corrected frames out.
func processRaw(filename, out string, cf *order.Coeff, cfg *config.Config, c *ops.Context) error {
	data, err := ahsi.Open(filename)
	if err != nil {
		return err
	}
	defer data.Close()
	if err := data.Traverse(); err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "Decoded %s: %s %s, %dx%dx%d\n", filename,
		data.Sensor(), compressName(data.CompressMode()), data.Samples(), data.Lines(), data.Bands())

	// per-frame dark model: fused if requested and fully calibrated
	var frameOp func(ahsi.Frame) (*tile.Tile[uint16], error)
	fused := cfg.Fused && cf.DarkA != "" && cf.DarkB != "" &&
		cf.EtalonA != "" && cf.EtalonB != "" && cf.RelA != "" && cf.RelB != ""
	if fused {
		proc, err := ahsi.NewGF501AVNIRProcess(cf.DarkA, cf.DarkB, cf.EtalonA, cf.EtalonB, cf.RelA, cf.RelB)
		if err != nil {
			return err
		}
		frameOp = proc.Apply
	} else if cf.DarkA != "" && cf.DarkB != "" {
		dbc, err := ahsi.NewGF501ADarkCorrection(cf.DarkA, cf.DarkB)
		if err != nil {
			return err
		}
		frameOp = dbc.Apply
	} else {
		frameOp = func(f ahsi.Frame) (*tile.Tile[uint16], error) { return f.Data, nil }
	}

	combo, idw, err := buildCombo(cf, cfg, fused)
	if err != nil {
		return err
	}

	dst, err := raster.Create(out, raster.Info{
		Samples: data.Samples(), Lines: data.Lines(), Bands: data.Bands(), Type: raster.U16,
	})
	if err != nil {
		return err
	}
	defer dst.Close()

	it, err := ahsi.NewFrameIterator(data, 0)
	if err != nil {
		return err
	}
	outIt, err := hsiter.NewLineOutput[uint16](dst, 0)
	if err != nil {
		return err
	}
	for ; !it.Done(); it.Next() {
		if c.Cancelled() {
			return errors.New("cancelled")
		}
		frame, err := it.Value()
		if err != nil {
			return err
		}
		t, err := frameOp(frame)
		if err != nil {
			return err
		}
		if t, err = combo.Apply(t); err != nil {
			return err
		}
		if err := outIt.WriteNext(t); err != nil {
			return err
		}
	}
	return finishOutput(dst, out, idw, cfg, c)
}

// processRaster corrects a decoded multi-band raster line by line.
func processRaster(filename, out string, cf *order.Coeff, cfg *config.Config, c *ops.Context) error {
	src, err := raster.Open(filename, false)
	if err != nil {
		return err
	}
	defer src.Close()
	info := src.Info()
	fmt.Fprintf(c.Log, "Opened %s: %dx%dx%d %s\n", filename,
		info.Samples, info.Lines, info.Bands, info.Type)

	combo, idw, err := buildCombo(cf, cfg, false)
	if err != nil {
		return err
	}

	dst, err := raster.Create(out, raster.Info{
		Samples: info.Samples, Lines: info.Lines, Bands: info.Bands, Type: raster.U16,
	})
	if err != nil {
		return err
	}
	defer dst.Close()

	inIt, err := hsiter.NewLineInput[uint16](src, 0)
	if err != nil {
		return err
	}
	outIt, err := hsiter.NewLineOutput[uint16](dst, 0)
	if err != nil {
		return err
	}
	err = hsiter.Transform(inIt, outIt, func(t *tile.Tile[uint16]) (*tile.Tile[uint16], error) {
		if c.Cancelled() {
			return nil, errors.New("cancelled")
		}
		return combo.Apply(t)
	})
	if err != nil {
		return err
	}
	return finishOutput(dst, out, idw, cfg, c)
}

// finishOutput renders the optional quicklook and label diagnostics.
func finishOutput(dst raster.Dataset, out string, idw *radiometric.DefectivePixelCorrectionIDW[uint16], cfg *config.Config, c *ops.Context) error {
	if cfg.Preview {
		preview := replaceExt(out, ".jpg")
		if err := raster.WriteQuicklook(dst, cfg.PreviewBand, preview, cfg.Pseudocolor); err != nil {
			return err
		}
		fmt.Fprintf(c.Log, "Wrote quicklook %s\n", preview)
	}
	if cfg.DumpLabels && idw != nil {
		for _, lbl := range []struct {
			name string
			m    *tile.Tile[uint16]
		}{
			{replaceExt(out, "_row_labeled.tif"), idw.RowLabel()},
			{replaceExt(out, "_col_labeled.tif"), idw.ColLabel()},
		} {
			if err := writeLabel(lbl.name, lbl.m); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLabel(filename string, m *tile.Tile[uint16]) error {
	ds, err := raster.Create(filename, raster.Info{
		Samples: m.Cols, Lines: m.Rows, Bands: 1, Type: raster.U16,
	})
	if err != nil {
		return err
	}
	defer ds.Close()
	return raster.WriteWindow(ds, []int{0}, 0, 0, m.Cols, m.Rows, m.Data)
}

func replaceExt(filename, newExt string) string {
	ext := path.Ext(filename)
	return filename[:len(filename)-len(ext)] + newExt
}

func compressName(m ahsi.Compress) string {
	switch m {
	case ahsi.Lossy8:
		return "lossy 8:1"
	case ahsi.Lossy4:
		return "lossy 4:1"
	case ahsi.Direct:
		return "direct"
	}
	return "lossless"
}

