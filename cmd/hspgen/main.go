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

// hspgen writes synthetic random test rasters for exercising the pipeline
// without sensor data.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/valyala/fastrand"

	"github.com/hspdev/hsp/internal/hsiter"
	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

var out = flag.String("out", "random.dat", "write the raster to `file`")
var samples = flag.Int("samples", 2048, "sample count")
var lines = flag.Int("lines", 512, "line count")
var bands = flag.Int("bands", 150, "band count")
var maxDN = flag.Int("max", 4095, "upper bound of the uniform DN distribution")

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(-1)
	}
}

func run() error {
	ds, err := raster.Create(*out, raster.Info{
		Samples: *samples, Lines: *lines, Bands: *bands, Type: raster.U16,
	})
	if err != nil {
		return err
	}
	defer ds.Close()

	var rng fastrand.RNG
	it, err := hsiter.NewLineOutput[uint16](ds, 0)
	if err != nil {
		return err
	}
	t := tile.New[uint16](*bands, *samples)
	for !it.Done() {
		for i := range t.Data {
			t.Data[i] = uint16(rng.Uint32n(uint32(*maxDN + 1)))
		}
		if err := it.WriteNext(t); err != nil {
			return err
		}
	}
	fmt.Printf("Wrote %dx%dx%d uint16 raster to %s\n", *samples, *lines, *bands, *out)
	return nil
}
