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
	"github.com/hspdev/hsp/internal/tile"
)

// Copy streams every remaining input tile to the output unchanged.
func Copy[T tile.Pixel](in *Input[T], out *Output[T]) error {
	return Transform(in, out, func(t *tile.Tile[T]) (*tile.Tile[T], error) {
		return t, nil
	})
}

// Transform applies a unary operation to every remaining input tile and
// writes the results in order. The input prefetches the next position's
// tile before the current tile is processed.
func Transform[T tile.Pixel](in *Input[T], out *Output[T], f func(*tile.Tile[T]) (*tile.Tile[T], error)) error {
	for !in.Done() {
		if err := in.Prefetch(); err != nil {
			return err
		}
		res, err := f(in.Value())
		if err != nil {
			return err
		}
		if err := out.WriteNext(res); err != nil {
			return err
		}
		if err := in.Next(); err != nil {
			return err
		}
	}
	return nil
}

// Transform2 applies a binary operation that also receives the position
// index (the band number for band-axis traversals), the counting-iterator
// companion of Transform.
func Transform2[T tile.Pixel](in *Input[T], out *Output[T], f func(*tile.Tile[T], int) (*tile.Tile[T], error)) error {
	for !in.Done() {
		if err := in.Prefetch(); err != nil {
			return err
		}
		res, err := f(in.Value(), in.Pos())
		if err != nil {
			return err
		}
		if err := out.WriteNext(res); err != nil {
			return err
		}
		if err := in.Next(); err != nil {
			return err
		}
	}
	return nil
}
