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

package hsiter

import (
	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

// Output writes tiles through a dataset window along one axis. Write
// commits at the current position; Next advances. The write always commits
// before the position can move, mirroring the write-on-assign idiom.
type Output[T tile.Pixel] struct {
	ds   raster.Dataset
	axis Axis
	cur  int
	max  int
}

// NewOutput constructs an output iterator at position start.
func NewOutput[T tile.Pixel](ds raster.Dataset, axis Axis, start int) (*Output[T], error) {
	if ds == nil {
		return nil, raster.ErrInvalidArgument
	}
	info := ds.Info()
	it := &Output[T]{ds: ds, axis: axis, cur: start, max: axis.length(info)}
	if start < 0 || start > it.max {
		return nil, raster.ErrOutOfRange
	}
	return it, nil
}

func NewSampleOutput[T tile.Pixel](ds raster.Dataset, start int) (*Output[T], error) {
	return NewOutput[T](ds, BySample, start)
}

func NewLineOutput[T tile.Pixel](ds raster.Dataset, start int) (*Output[T], error) {
	return NewOutput[T](ds, ByLine, start)
}

func NewBandOutput[T tile.Pixel](ds raster.Dataset, start int) (*Output[T], error) {
	return NewOutput[T](ds, ByBand, start)
}

func (it *Output[T]) Pos() int   { return it.cur }
func (it *Output[T]) Len() int   { return it.max }
func (it *Output[T]) Done() bool { return it.cur >= it.max }

// Write commits a tile at the current position. The tile shape must match
// the axis shape of the dataset.
func (it *Output[T]) Write(t *tile.Tile[T]) error {
	if it.Done() {
		return raster.ErrOutOfRange
	}
	info := it.ds.Info()
	rows, cols := it.axis.shape(info)
	if t == nil || t.Rows != rows || t.Cols != cols {
		return raster.ErrTypeMismatch
	}
	switch it.axis {
	case BySample:
		return raster.WriteWindow(it.ds, raster.AllBands(info.Bands), it.cur, 0, 1, info.Lines, t.Data)
	case ByLine:
		return raster.WriteWindow(it.ds, raster.AllBands(info.Bands), 0, it.cur, info.Samples, 1, t.Data)
	default:
		return raster.WriteWindow(it.ds, []int{it.cur}, 0, 0, info.Samples, info.Lines, t.Data)
	}
}

// Next advances to the next position.
func (it *Output[T]) Next() error {
	if it.Done() {
		return raster.ErrOutOfRange
	}
	it.cur++
	return nil
}

// WriteNext commits a tile and advances, the *it++ = tile idiom.
func (it *Output[T]) WriteNext(t *tile.Tile[T]) error {
	if err := it.Write(t); err != nil {
		return err
	}
	return it.Next()
}
