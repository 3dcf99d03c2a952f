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

// Package coeff loads calibration coefficient matrices from raster files or
// whitespace-separated text files. Multi-band rasters contribute band 1 only.
package coeff

import (
	"bufio"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

// ErrShapeInvalid flags a text coefficient file with ragged rows.
var ErrShapeInvalid = errors.New("shape invalid")

// Load reads a coefficient matrix with element type T. Raster formats are
// detected by sidecar header or extension; everything else parses as text.
func Load[T tile.Pixel](filename string) (*tile.Tile[T], error) {
	if isRaster(filename) {
		return loadRaster[T](filename)
	}
	return LoadText[T](filename)
}

func isRaster(filename string) bool {
	if raster.HasHeader(filename) {
		return true
	}
	lower := strings.ToLower(filename)
	for _, ext := range []string{".tif", ".tiff", ".dat", ".raw", ".img", ".bmp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// loadRaster reads band 1 of a raster coefficient file, falling back to the
// generic image decoder for profiles the native drivers reject.
func loadRaster[T tile.Pixel](filename string) (*tile.Tile[T], error) {
	ds, err := raster.Open(filename, false)
	if err == nil {
		defer ds.Close()
		info := ds.Info()
		data, err := raster.ReadWindow[T](ds, []int{0}, 0, 0, info.Samples, info.Lines)
		if err != nil {
			return nil, err
		}
		return tile.NewFromData(info.Lines, info.Samples, data), nil
	}
	if errors.Is(err, raster.ErrParseFailed) || errors.Is(err, raster.ErrFormatUnknown) {
		return loadImage[T](filename)
	}
	return nil, err
}

// loadImage decodes a single-band coefficient image with x/image/tiff or
// the stdlib decoders, taking the first channel.
func loadImage[T tile.Pixel](filename string) (*tile.Tile[T], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithMessagef(raster.ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		if _, err2 := f.Seek(0, 0); err2 == nil {
			img, _, err = image.Decode(f)
		}
		if err != nil {
			return nil, errors.WithMessagef(raster.ErrParseFailed, "%s: %s", filename, err.Error())
		}
	}
	b := img.Bounds()
	t := tile.New[T](b.Dy(), b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA() // 16-bit channel
			switch any(t).(type) {
			case *tile.Tile[uint8]:
				t.Set(y-b.Min.Y, x-b.Min.X, tile.SatCast[T](float64(r>>8)))
			default:
				t.Set(y-b.Min.Y, x-b.Min.X, tile.SatCast[T](float64(r)))
			}
		}
	}
	return t, nil
}

// LoadText parses a whitespace-separated numeric matrix. Line breaks start
// a new row; all rows must have the same column count.
func LoadText[T tile.Pixel](filename string) (*tile.Tile[T], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithMessagef(raster.ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	defer f.Close()

	var data []T
	rows, cols := 0, -1
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if cols < 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, errors.WithMessagef(ErrShapeInvalid,
				"%s: row %d has %d columns, want %d", filename, rows, len(fields), cols)
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.WithMessagef(raster.ErrParseFailed,
					"%s: bad token %q in row %d", filename, field, rows)
			}
			data = append(data, tile.SatCast[T](v))
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WithMessagef(raster.ErrIoFailed, "%s: %s", filename, err.Error())
	}
	if rows == 0 {
		return nil, errors.WithMessagef(raster.ErrParseFailed, "%s: no numeric data", filename)
	}
	return tile.NewFromData(rows, cols, data), nil
}
