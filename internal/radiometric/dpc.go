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

package radiometric

import (
	"github.com/hspdev/hsp/internal/coeff"
	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

// loadDefectMask reads a bands x samples 0/1 defect list raster.
func loadDefectMask(filename string) (*tile.Tile[uint8], error) {
	return coeff.Load[uint8](filename)
}

// DefectivePixelCorrectionSpatial repairs defective detector cells in a
// band-axis tile (lines x samples). Row b of the defect list applies to
// every line of band b, so the operator needs the band number alongside
// the tile: it is a binary operator and cannot join a unary combo.
type DefectivePixelCorrectionSpatial[T tile.Pixel] struct {
	// Radius is the neighbourhood radius of the fast-marching inpainting.
	Radius float64

	dpm     *tile.Tile[uint8]
	inpaint Inpaint
}

func NewDefectivePixelCorrectionSpatial[T tile.Pixel](filename string) (*DefectivePixelCorrectionSpatial[T], error) {
	dpm, err := loadDefectMask(filename)
	if err != nil {
		return nil, err
	}
	return &DefectivePixelCorrectionSpatial[T]{Radius: 3, dpm: dpm}, nil
}

func NewDefectivePixelCorrectionSpatialFrom[T tile.Pixel](dpm *tile.Tile[uint8]) *DefectivePixelCorrectionSpatial[T] {
	return &DefectivePixelCorrectionSpatial[T]{Radius: 3, dpm: dpm}
}

// SetInpaint selects the repair algorithm; Telea is the default.
func (op *DefectivePixelCorrectionSpatial[T]) SetInpaint(v Inpaint) { op.inpaint = v }

// ApplyIndexed repairs one band tile. The band's defect row is virtually
// tiled to the tile's row count.
func (op *DefectivePixelCorrectionSpatial[T]) ApplyIndexed(img *tile.Tile[T], band int) (*tile.Tile[T], error) {
	if band < 0 || band >= op.dpm.Rows {
		return nil, raster.ErrOutOfRange
	}
	if img.Cols != op.dpm.Cols {
		return nil, raster.ErrTypeMismatch
	}
	row := op.dpm.Row(band)
	mask := func(y, x int) bool { return row[x] != 0 }
	if op.inpaint == InpaintNeighborhoodAveraging {
		return neighborhoodAveraging(img, mask), nil
	}
	return inpaintTelea(img, mask, op.Radius), nil
}

// DefectivePixelCorrectionSpectral repairs defective cells in a line-axis
// tile (bands x samples), where the defect list has the operand's shape.
// A unary operator, composable through a combo.
type DefectivePixelCorrectionSpectral[T tile.Pixel] struct {
	// Radius is the neighbourhood radius of the fast-marching inpainting.
	Radius float64

	dpm     *tile.Tile[uint8]
	inpaint Inpaint
}

func NewDefectivePixelCorrectionSpectral[T tile.Pixel](filename string) (*DefectivePixelCorrectionSpectral[T], error) {
	dpm, err := loadDefectMask(filename)
	if err != nil {
		return nil, err
	}
	return &DefectivePixelCorrectionSpectral[T]{Radius: 3, dpm: dpm}, nil
}

func NewDefectivePixelCorrectionSpectralFrom[T tile.Pixel](dpm *tile.Tile[uint8]) *DefectivePixelCorrectionSpectral[T] {
	return &DefectivePixelCorrectionSpectral[T]{Radius: 3, dpm: dpm}
}

func (op *DefectivePixelCorrectionSpectral[T]) SetInpaint(v Inpaint) { op.inpaint = v }

func (op *DefectivePixelCorrectionSpectral[T]) Apply(img *tile.Tile[T]) (*tile.Tile[T], error) {
	if img.Rows != op.dpm.Rows || img.Cols != op.dpm.Cols {
		return nil, raster.ErrTypeMismatch
	}
	mask := func(y, x int) bool { return op.dpm.At(y, x) != 0 }
	if op.inpaint == InpaintNeighborhoodAveraging {
		return neighborhoodAveraging(img, mask), nil
	}
	return inpaintTelea(img, mask, op.Radius), nil
}
