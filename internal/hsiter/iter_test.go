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
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

const (
	tS = 4
	tL = 4
	tB = 3
)

// newTestRaster creates a tB x tL x tS uint16 raster with
// v[b,y,x] = 1000*b + 100*y + x.
func newTestRaster(t *testing.T, dir, name string) raster.Dataset {
	t.Helper()
	ds, err := raster.CreateENVI(filepath.Join(dir, name), raster.Info{
		Samples: tS, Lines: tL, Bands: tB, Type: raster.U16,
	}, raster.BSQ)
	if err != nil {
		t.Fatalf("CreateENVI: %s", err.Error())
	}
	data := make([]uint16, tS*tL*tB)
	i := 0
	for b := 0; b < tB; b++ {
		for y := 0; y < tL; y++ {
			for x := 0; x < tS; x++ {
				data[i] = uint16(1000*b + 100*y + x)
				i++
			}
		}
	}
	if err := raster.WriteWindow(ds, raster.AllBands(tB), 0, 0, tS, tL, data); err != nil {
		t.Fatalf("WriteWindow: %s", err.Error())
	}
	return ds
}

func TestIteratorCounts(t *testing.T) {
	dir := t.TempDir()
	ds := newTestRaster(t, dir, "counts.dat")
	defer ds.Close()

	for _, tc := range []struct {
		axis Axis
		want int
	}{
		{BySample, tS}, {ByLine, tL}, {ByBand, tB},
	} {
		it, err := NewInput[uint16](ds, tc.axis, 0)
		if err != nil {
			t.Fatalf("NewInput(%d): %s", tc.axis, err.Error())
		}
		n := 0
		for ; !it.Done(); n++ {
			if it.Value() == nil {
				t.Fatalf("axis %d: nil tile at %d", tc.axis, n)
			}
			if err := it.Next(); err != nil {
				t.Fatalf("axis %d: Next: %s", tc.axis, err.Error())
			}
		}
		if n != tc.want {
			t.Errorf("axis %d: %d dereferences; want %d", tc.axis, n, tc.want)
		}
	}
}

func TestLineTileContents(t *testing.T) {
	dir := t.TempDir()
	ds := newTestRaster(t, dir, "line.dat")
	defer ds.Close()

	it, err := NewLineInput[uint16](ds, 2)
	if err != nil {
		t.Fatalf("NewLineInput: %s", err.Error())
	}
	tl := it.Value()
	if tl.Rows != tB || tl.Cols != tS {
		t.Fatalf("line tile %dx%d; want %dx%d", tl.Rows, tl.Cols, tB, tS)
	}
	for b := 0; b < tB; b++ {
		for x := 0; x < tS; x++ {
			if want := uint16(1000*b + 200 + x); tl.At(b, x) != want {
				t.Errorf("tile[%d,%d]=%d; want %d", b, x, tl.At(b, x), want)
			}
		}
	}
}

func TestSampleTileContents(t *testing.T) {
	dir := t.TempDir()
	ds := newTestRaster(t, dir, "sample.dat")
	defer ds.Close()

	it, err := NewSampleInput[uint16](ds, 3)
	if err != nil {
		t.Fatalf("NewSampleInput: %s", err.Error())
	}
	tl := it.Value()
	if tl.Rows != tB || tl.Cols != tL {
		t.Fatalf("sample tile %dx%d; want %dx%d", tl.Rows, tl.Cols, tB, tL)
	}
	for b := 0; b < tB; b++ {
		for y := 0; y < tL; y++ {
			if want := uint16(1000*b + 100*y + 3); tl.At(b, y) != want {
				t.Errorf("tile[%d,%d]=%d; want %d", b, y, tl.At(b, y), want)
			}
		}
	}
}

func TestRepeatedDereferenceStable(t *testing.T) {
	dir := t.TempDir()
	ds := newTestRaster(t, dir, "deref.dat")
	defer ds.Close()

	it, err := NewBandInput[uint16](ds, 1)
	if err != nil {
		t.Fatalf("NewBandInput: %s", err.Error())
	}
	a := it.Value().Clone()
	if err := it.Prefetch(); err != nil {
		t.Fatalf("Prefetch: %s", err.Error())
	}
	b := it.Value()
	if !a.Equal(b) {
		t.Errorf("dereference changed value after prefetch")
	}
}

func TestCopyThroughLineIdentity(t *testing.T) {
	dir := t.TempDir()
	src := newTestRaster(t, dir, "src.dat")
	defer src.Close()
	dst, err := raster.CreateENVI(filepath.Join(dir, "dst.dat"), raster.Info{
		Samples: tS, Lines: tL, Bands: tB, Type: raster.U16,
	}, raster.BSQ)
	if err != nil {
		t.Fatalf("CreateENVI: %s", err.Error())
	}
	defer dst.Close()

	in, err := NewLineInput[uint16](src, 0)
	if err != nil {
		t.Fatalf("NewLineInput: %s", err.Error())
	}
	out, err := NewLineOutput[uint16](dst, 0)
	if err != nil {
		t.Fatalf("NewLineOutput: %s", err.Error())
	}
	if err := Copy(in, out); err != nil {
		t.Fatalf("Copy: %s", err.Error())
	}

	a, err := os.ReadFile(filepath.Join(dir, "src.dat"))
	if err != nil {
		t.Fatalf("read src: %s", err.Error())
	}
	b, err := os.ReadFile(filepath.Join(dir, "dst.dat"))
	if err != nil {
		t.Fatalf("read dst: %s", err.Error())
	}
	if len(a) != len(b) {
		t.Fatalf("file sizes differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("files differ at byte %d", i)
		}
	}
}

func TestNilDatasetRejected(t *testing.T) {
	if _, err := NewLineInput[uint16](nil, 0); !errors.Is(err, raster.ErrInvalidArgument) {
		t.Errorf("nil input: %v; want InvalidArgument", err)
	}
	if _, err := NewLineOutput[uint16](nil, 0); !errors.Is(err, raster.ErrInvalidArgument) {
		t.Errorf("nil output: %v; want InvalidArgument", err)
	}
}

func TestPastTheEndRejected(t *testing.T) {
	dir := t.TempDir()
	ds := newTestRaster(t, dir, "end.dat")
	defer ds.Close()

	it, err := NewLineInput[uint16](ds, tL) // end sentinel
	if err != nil {
		t.Fatalf("NewLineInput(end): %s", err.Error())
	}
	if !it.Done() {
		t.Errorf("iterator at end not Done")
	}
	if it.Value() != nil {
		t.Errorf("dereference at end returned a tile")
	}
	if err := it.Next(); !errors.Is(err, raster.ErrOutOfRange) {
		t.Errorf("Next at end: %v; want OutOfRange", err)
	}

	out, err := NewLineOutput[uint16](ds, tL)
	if err != nil {
		t.Fatalf("NewLineOutput(end): %s", err.Error())
	}
	if err := out.Write(tile.New[uint16](tB, tS)); !errors.Is(err, raster.ErrOutOfRange) {
		t.Errorf("Write at end: %v; want OutOfRange", err)
	}
}

func TestOutputShapeChecked(t *testing.T) {
	dir := t.TempDir()
	ds := newTestRaster(t, dir, "shape.dat")
	defer ds.Close()

	out, err := NewLineOutput[uint16](ds, 0)
	if err != nil {
		t.Fatalf("NewLineOutput: %s", err.Error())
	}
	if err := out.Write(tile.New[uint16](1, 1)); !errors.Is(err, raster.ErrTypeMismatch) {
		t.Errorf("bad shape write: %v; want TypeMismatch", err)
	}
}
