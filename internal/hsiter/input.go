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

// Package hsiter exposes a raster as a lazy, single-pass sequence of tiles
// along one of three axes: sample, line, or band. Input iterators can read
// one position ahead (Prefetch); the read is synchronous. Output iterators
// commit each tile on Write before advancing.
package hsiter

import (
	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

// Axis selects the traversal direction of an iterator.
type Axis int

const (
	BySample Axis = iota // x = 0..S, tile is bands x lines
	ByLine               // y = 0..L, tile is bands x samples
	ByBand               // b = 0..B, tile is lines x samples
)

func (a Axis) length(info raster.Info) int {
	switch a {
	case BySample:
		return info.Samples
	case ByLine:
		return info.Lines
	}
	return info.Bands
}

func (a Axis) shape(info raster.Info) (rows, cols int) {
	switch a {
	case BySample:
		return info.Bands, info.Lines
	case ByLine:
		return info.Bands, info.Samples
	}
	return info.Lines, info.Samples
}

// Input walks a dataset along one axis, yielding one tile per position.
// Each position's tile is freshly allocated when it is read; Next does not
// modify tiles already returned.
type Input[T tile.Pixel] struct {
	ds    raster.Dataset
	axis  Axis
	cur   int
	max   int
	tile  *tile.Tile[T]
	ahead *tile.Tile[T] // prefetched tile for position cur+1, nil if none
}

// NewInput constructs an input iterator positioned at start and reads the
// tile there. A nil dataset fails with InvalidArgument; start beyond the
// axis length fails with OutOfRange.
func NewInput[T tile.Pixel](ds raster.Dataset, axis Axis, start int) (*Input[T], error) {
	if ds == nil {
		return nil, raster.ErrInvalidArgument
	}
	info := ds.Info()
	it := &Input[T]{ds: ds, axis: axis, cur: start, max: axis.length(info)}
	if start < 0 || start > it.max {
		return nil, raster.ErrOutOfRange
	}
	if start < it.max {
		t, err := it.readAt(start)
		if err != nil {
			return nil, err
		}
		it.tile = t
	}
	return it, nil
}

// NewSampleInput yields bands x lines tiles for x = start..S.
func NewSampleInput[T tile.Pixel](ds raster.Dataset, start int) (*Input[T], error) {
	return NewInput[T](ds, BySample, start)
}

// NewLineInput yields bands x samples tiles for y = start..L.
func NewLineInput[T tile.Pixel](ds raster.Dataset, start int) (*Input[T], error) {
	return NewInput[T](ds, ByLine, start)
}

// NewBandInput yields lines x samples tiles for b = start..B.
func NewBandInput[T tile.Pixel](ds raster.Dataset, start int) (*Input[T], error) {
	return NewInput[T](ds, ByBand, start)
}

func (it *Input[T]) readAt(idx int) (*tile.Tile[T], error) {
	info := it.ds.Info()
	rows, cols := it.axis.shape(info)
	var data []T
	var err error
	switch it.axis {
	case BySample:
		data, err = raster.ReadWindow[T](it.ds, raster.AllBands(info.Bands), idx, 0, 1, info.Lines)
	case ByLine:
		data, err = raster.ReadWindow[T](it.ds, raster.AllBands(info.Bands), 0, idx, info.Samples, 1)
	default:
		data, err = raster.ReadWindow[T](it.ds, []int{idx}, 0, 0, info.Samples, info.Lines)
	}
	if err != nil {
		return nil, err
	}
	return tile.NewFromData(rows, cols, data), nil
}

// Pos returns the current position on the axis.
func (it *Input[T]) Pos() int { return it.cur }

// Len returns the axis length (the past-the-end sentinel position).
func (it *Input[T]) Len() int { return it.max }

// Done reports whether the iterator is at the end sentinel.
func (it *Input[T]) Done() bool { return it.cur >= it.max }

// Value returns the tile at the current position. Repeated calls yield the
// same tile. Calling Value at the end sentinel returns nil.
func (it *Input[T]) Value() *tile.Tile[T] {
	if it.Done() {
		return nil
	}
	return it.tile
}

// Next advances to the next position. If another position remains, its tile
// is fetched immediately so the subsequent Value incurs no I/O wait.
func (it *Input[T]) Next() error {
	if it.Done() {
		return raster.ErrOutOfRange
	}
	it.cur++
	if it.cur >= it.max {
		it.tile, it.ahead = nil, nil
		return nil
	}
	if it.ahead != nil {
		it.tile, it.ahead = it.ahead, nil
		return nil
	}
	t, err := it.readAt(it.cur)
	if err != nil {
		return err
	}
	it.tile = t
	return nil
}

// Prefetch reads the tile at cur+1 ahead of time. Optional; Next falls back
// to a synchronous read when no prefetch happened.
func (it *Input[T]) Prefetch() error {
	if it.ahead != nil || it.cur+1 >= it.max {
		return nil
	}
	t, err := it.readAt(it.cur + 1)
	if err != nil {
		return err
	}
	it.ahead = t
	return nil
}
