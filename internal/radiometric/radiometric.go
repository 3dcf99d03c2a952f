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

// Package radiometric implements the per-frame correction operators: dark
// subtraction, etalon and non-uniformity gain-offset linearisation,
// Gaussian smoothing, and defective-pixel repair. Operators load their
// coefficients once at construction and are safe to share across frames.
package radiometric

import (
	"math"

	"github.com/hspdev/hsp/internal/coeff"
	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

// coefAt reads a coefficient with row-vector broadcast: a 1 x cols matrix
// is virtually tiled to all rows of the operand.
func coefAt(c *tile.Tile[float64], y, x int) float64 {
	if c.Rows == 1 {
		return c.Data[x]
	}
	return c.At(y, x)
}

// checkShape verifies a coefficient broadcasts against an operand tile.
func checkShape(c *tile.Tile[float64], rows, cols int) error {
	if c.Cols == cols && (c.Rows == rows || c.Rows == 1) {
		return nil
	}
	return raster.ErrTypeMismatch
}

// DarkBackgroundCorrection subtracts a per-cell dark level: out = in - dark.
// The element type is preserved and no clamping is applied; integer types
// wrap like ordinary integer arithmetic.
type DarkBackgroundCorrection[T tile.Pixel] struct {
	dark *tile.Tile[float64]
}

// NewDarkBackgroundCorrection loads the dark coefficient file, raster or text.
func NewDarkBackgroundCorrection[T tile.Pixel](filename string) (*DarkBackgroundCorrection[T], error) {
	m, err := coeff.Load[float64](filename)
	if err != nil {
		return nil, err
	}
	return &DarkBackgroundCorrection[T]{dark: m}, nil
}

// NewDarkBackgroundCorrectionFrom wraps an already loaded coefficient tile.
func NewDarkBackgroundCorrectionFrom[T tile.Pixel](dark *tile.Tile[float64]) *DarkBackgroundCorrection[T] {
	return &DarkBackgroundCorrection[T]{dark: dark}
}

func (op *DarkBackgroundCorrection[T]) Apply(m *tile.Tile[T]) (*tile.Tile[T], error) {
	if err := checkShape(op.dark, m.Rows, m.Cols); err != nil {
		return nil, err
	}
	out := tile.New[T](m.Rows, m.Cols)
	var z T
	_, isFloat := any(z).(float32)
	if !isFloat {
		_, isFloat = any(z).(float64)
	}
	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			d := coefAt(op.dark, y, x)
			if isFloat {
				out.Set(y, x, T(float64(m.At(y, x))-d))
			} else {
				out.Set(y, x, T(int64(m.At(y, x))-int64(math.Round(d))))
			}
		}
	}
	return out, nil
}

// NonUniformityCorrection linearises the detector response per cell:
// out = in*a + b, computed in float64, rounded and saturated back to T.
type NonUniformityCorrection[T tile.Pixel] struct {
	a *tile.Tile[float64]
	b *tile.Tile[float64]
}

// NewNonUniformityCorrection loads the gain and offset coefficient files.
func NewNonUniformityCorrection[T tile.Pixel](coeffA, coeffB string) (*NonUniformityCorrection[T], error) {
	a, err := coeff.Load[float64](coeffA)
	if err != nil {
		return nil, err
	}
	b, err := coeff.Load[float64](coeffB)
	if err != nil {
		return nil, err
	}
	return &NonUniformityCorrection[T]{a: a, b: b}, nil
}

func NewNonUniformityCorrectionFrom[T tile.Pixel](a, b *tile.Tile[float64]) *NonUniformityCorrection[T] {
	return &NonUniformityCorrection[T]{a: a, b: b}
}

func (op *NonUniformityCorrection[T]) Apply(m *tile.Tile[T]) (*tile.Tile[T], error) {
	if err := checkShape(op.a, m.Rows, m.Cols); err != nil {
		return nil, err
	}
	if err := checkShape(op.b, m.Rows, m.Cols); err != nil {
		return nil, err
	}
	out := tile.New[T](m.Rows, m.Cols)
	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			v := float64(m.At(y, x))*coefAt(op.a, y, x) + coefAt(op.b, y, x)
			out.Set(y, x, tile.SatCast[T](v))
		}
	}
	return out, nil
}

// EtalonCorrection removes interference fringes with the same per-cell
// gain-offset model as NonUniformityCorrection. It is a distinct physical
// effect with its own coefficient files, chained before non-uniformity.
type EtalonCorrection[T tile.Pixel] struct {
	NonUniformityCorrection[T]
}

func NewEtalonCorrection[T tile.Pixel](coeffA, coeffB string) (*EtalonCorrection[T], error) {
	nuc, err := NewNonUniformityCorrection[T](coeffA, coeffB)
	if err != nil {
		return nil, err
	}
	return &EtalonCorrection[T]{NonUniformityCorrection: *nuc}, nil
}

func NewEtalonCorrectionFrom[T tile.Pixel](a, b *tile.Tile[float64]) *EtalonCorrection[T] {
	return &EtalonCorrection[T]{NonUniformityCorrection: *NewNonUniformityCorrectionFrom[T](a, b)}
}

// AbsoluteRadiometricCorrection converts DN to radiance. The gain model is
// not calibrated yet; the operator currently passes values through the
// computation type unchanged.
// TODO: load absolute gain coefficients once calibration files are delivered.
type AbsoluteRadiometricCorrection[T tile.Pixel] struct{}

func NewAbsoluteRadiometricCorrection[T tile.Pixel]() *AbsoluteRadiometricCorrection[T] {
	return &AbsoluteRadiometricCorrection[T]{}
}

func (op *AbsoluteRadiometricCorrection[T]) Apply(m *tile.Tile[T]) (*tile.Tile[T], error) {
	out := tile.New[T](m.Rows, m.Cols)
	for i, v := range m.Data {
		out.Data[i] = tile.SatCast[T](float64(v))
	}
	return out, nil
}

// GaussianFilter smooths with a 3x3 Gaussian kernel, sigma 1 in both axes,
// reflect-101 borders. Element type preserved.
type GaussianFilter[T tile.Pixel] struct{}

func NewGaussianFilter[T tile.Pixel]() *GaussianFilter[T] { return &GaussianFilter[T]{} }

// gauss3 is the separable sigma=1 kernel, normalized.
var gauss3 = func() [3]float64 {
	k := [3]float64{math.Exp(-0.5), 1, math.Exp(-0.5)}
	sum := k[0] + k[1] + k[2]
	for i := range k {
		k[i] /= sum
	}
	return k
}()

func (op *GaussianFilter[T]) Apply(m *tile.Tile[T]) (*tile.Tile[T], error) {
	rows, cols := m.Rows, m.Cols
	tmp := make([]float64, rows*cols)
	// horizontal pass
	for y := 0; y < rows; y++ {
		row := m.Row(y)
		for x := 0; x < cols; x++ {
			var s float64
			for k := -1; k <= 1; k++ {
				s += gauss3[k+1] * float64(row[reflect101(x+k, cols)])
			}
			tmp[y*cols+x] = s
		}
	}
	// vertical pass
	out := tile.New[T](rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var s float64
			for k := -1; k <= 1; k++ {
				s += gauss3[k+1] * tmp[reflect101(y+k, rows)*cols+x]
			}
			out.Set(y, x, tile.SatCast[T](s))
		}
	}
	return out, nil
}

// reflect101 mirrors an index across the border without repeating the edge
// sample, OpenCV's default border mode.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
