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
	"testing"

	"github.com/hspdev/hsp/internal/tile"
)

func TestNeighborhoodAveragingRepairsOnlyMasked(t *testing.T) {
	in := tile.New[uint16](3, 3)
	in.Fill(100)
	in.Set(1, 1, 0)
	mask := func(y, x int) bool { return y == 1 && x == 1 }
	out := neighborhoodAveraging(in, mask)
	if out.At(1, 1) != 100 {
		t.Errorf("repaired value %d; want 100", out.At(1, 1))
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if y == 1 && x == 1 {
				continue
			}
			if out.At(y, x) != 100 {
				t.Errorf("unmasked (%d,%d)=%d; want 100", y, x, out.At(y, x))
			}
		}
	}
}

func TestNeighborhoodAveragingKernel(t *testing.T) {
	// 8 neighbours summing to 80 -> masked centre becomes 10
	in := tile.NewFromData(3, 3, []uint16{10, 10, 10, 10, 999, 10, 10, 10, 10})
	mask := func(y, x int) bool { return y == 1 && x == 1 }
	out := neighborhoodAveraging(in, mask)
	if out.At(1, 1) != 10 {
		t.Errorf("centre=%d; want 10", out.At(1, 1))
	}
}

func TestTeleaLeavesUnmaskedUntouched(t *testing.T) {
	in := tile.New[uint16](5, 5)
	for i := range in.Data {
		in.Data[i] = uint16(100 + i)
	}
	orig := in.Clone()
	mask := func(y, x int) bool { return y == 2 && x == 2 }
	out := inpaintTelea(in, mask, 3)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			if y == 2 && x == 2 {
				continue
			}
			if out.At(y, x) != orig.At(y, x) {
				t.Errorf("unmasked (%d,%d) changed: %d -> %d", y, x, orig.At(y, x), out.At(y, x))
			}
		}
	}
}

func TestTeleaRepairsFlatRegion(t *testing.T) {
	in := tile.New[uint16](7, 7)
	in.Fill(500)
	in.Set(3, 3, 0)
	mask := func(y, x int) bool { return y == 3 && x == 3 }
	out := inpaintTelea(in, mask, 3)
	if out.At(3, 3) != 500 {
		t.Errorf("repaired value %d; want 500 in a flat region", out.At(3, 3))
	}
}

func TestTeleaRepairsBlock(t *testing.T) {
	in := tile.New[uint16](9, 9)
	in.Fill(1000)
	for y := 3; y <= 5; y++ {
		for x := 3; x <= 5; x++ {
			in.Set(y, x, 0)
		}
	}
	mask := func(y, x int) bool { return y >= 3 && y <= 5 && x >= 3 && x <= 5 }
	out := inpaintTelea(in, mask, 3)
	for y := 3; y <= 5; y++ {
		for x := 3; x <= 5; x++ {
			v := out.At(y, x)
			if v < 900 || v > 1100 {
				t.Errorf("block (%d,%d)=%d; want near 1000", y, x, v)
			}
		}
	}
}
