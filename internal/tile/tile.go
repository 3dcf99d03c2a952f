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

// Package tile provides the value-typed rectangular pixel array that flows
// through iterators and correction operators.
package tile

import (
	"fmt"
	"math"
)

// Pixel enumerates the element types a raster cell may have.
type Pixel interface {
	~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

// A Tile is an owning rows x cols pixel array in row-major order.
// Tiles are plain values: copying the struct aliases Data, Clone does not.
type Tile[T Pixel] struct {
	Rows int
	Cols int
	Data []T
}

// New allocates a zeroed tile of the given shape.
func New[T Pixel](rows, cols int) *Tile[T] {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("tile: negative shape %dx%d", rows, cols))
	}
	return &Tile[T]{Rows: rows, Cols: cols, Data: make([]T, rows*cols)}
}

// NewFromData wraps an existing backing slice. len(data) must be rows*cols.
func NewFromData[T Pixel](rows, cols int, data []T) *Tile[T] {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("tile: data length %d does not match %dx%d", len(data), rows, cols))
	}
	return &Tile[T]{Rows: rows, Cols: cols, Data: data}
}

func (t *Tile[T]) At(y, x int) T     { return t.Data[y*t.Cols+x] }
func (t *Tile[T]) Set(y, x int, v T) { t.Data[y*t.Cols+x] = v }

// Row returns the backing slice of row y, not a copy.
func (t *Tile[T]) Row(y int) []T { return t.Data[y*t.Cols : (y+1)*t.Cols] }

// Clone returns a deep copy.
func (t *Tile[T]) Clone() *Tile[T] {
	d := make([]T, len(t.Data))
	copy(d, t.Data)
	return &Tile[T]{Rows: t.Rows, Cols: t.Cols, Data: d}
}

// Fill sets every cell to v.
func (t *Tile[T]) Fill(v T) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// Equal tells whether two tiles have the same shape and elements.
func (t *Tile[T]) Equal(o *Tile[T]) bool {
	if t.Rows != o.Rows || t.Cols != o.Cols {
		return false
	}
	for i, v := range t.Data {
		if v != o.Data[i] {
			return false
		}
	}
	return true
}

// Transpose returns a new cols x rows tile.
func (t *Tile[T]) Transpose() *Tile[T] {
	r := New[T](t.Cols, t.Rows)
	for y := 0; y < t.Rows; y++ {
		row := t.Row(y)
		for x, v := range row {
			r.Data[x*r.Cols+y] = v
		}
	}
	return r
}

// SubTile copies the rectangle [y0,y1) x [x0,x1) into a new tile.
func (t *Tile[T]) SubTile(y0, x0, y1, x1 int) *Tile[T] {
	r := New[T](y1-y0, x1-x0)
	for y := y0; y < y1; y++ {
		copy(r.Row(y-y0), t.Row(y)[x0:x1])
	}
	return r
}

// Limits returns the representable range of T. Floats report the full
// float64 range as they never saturate on conversion here.
func Limits[T Pixel]() (min, max float64) {
	var z T
	switch any(z).(type) {
	case uint8:
		return 0, math.MaxUint8
	case int16:
		return math.MinInt16, math.MaxInt16
	case uint16:
		return 0, math.MaxUint16
	case int32:
		return math.MinInt32, math.MaxInt32
	case uint32:
		return 0, math.MaxUint32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// SatCast rounds v to the nearest integer and clamps it to the range of T.
// Float destinations pass through unrounded.
func SatCast[T Pixel](v float64) T {
	var z T
	switch any(z).(type) {
	case float32, float64:
		return T(v)
	}
	min, max := Limits[T]()
	v = math.Round(v)
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return T(v)
}

// Convert produces a tile of a different element type, saturating and
// rounding on narrowing conversions the way cv::Mat::convertTo does.
func Convert[Dst, Src Pixel](src *Tile[Src]) *Tile[Dst] {
	dst := New[Dst](src.Rows, src.Cols)
	for i, v := range src.Data {
		dst.Data[i] = SatCast[Dst](float64(v))
	}
	return dst
}
