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

package raster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

// deterministic test pattern v[b,y,x] = 1000*b + 100*y + x
func fillPattern(t *testing.T, ds Dataset) {
	t.Helper()
	info := ds.Info()
	data := make([]uint16, info.Samples*info.Lines*info.Bands)
	i := 0
	for b := 0; b < info.Bands; b++ {
		for y := 0; y < info.Lines; y++ {
			for x := 0; x < info.Samples; x++ {
				data[i] = uint16(1000*b + 100*y + x)
				i++
			}
		}
	}
	if err := WriteWindow(ds, AllBands(info.Bands), 0, 0, info.Samples, info.Lines, data); err != nil {
		t.Fatalf("WriteWindow: %s", err.Error())
	}
}

func checkPattern(t *testing.T, ds Dataset) {
	t.Helper()
	info := ds.Info()
	data, err := ReadWindow[uint16](ds, AllBands(info.Bands), 0, 0, info.Samples, info.Lines)
	if err != nil {
		t.Fatalf("ReadWindow: %s", err.Error())
	}
	i := 0
	for b := 0; b < info.Bands; b++ {
		for y := 0; y < info.Lines; y++ {
			for x := 0; x < info.Samples; x++ {
				if want := uint16(1000*b + 100*y + x); data[i] != want {
					t.Fatalf("data[%d,%d,%d]=%d; want %d", b, y, x, data[i], want)
				}
				i++
			}
		}
	}
}

func TestENVIRoundTripInterleaves(t *testing.T) {
	dir := t.TempDir()
	for _, il := range []Interleave{BSQ, BIL, BIP} {
		name := filepath.Join(dir, "rt_"+il.String()+".dat")
		ds, err := CreateENVI(name, Info{Samples: 5, Lines: 4, Bands: 3, Type: U16}, il)
		if err != nil {
			t.Fatalf("CreateENVI(%s): %s", il, err.Error())
		}
		fillPattern(t, ds)
		checkPattern(t, ds)
		if err := ds.Close(); err != nil {
			t.Fatalf("Close: %s", err.Error())
		}

		ds, err = OpenENVI(name, false)
		if err != nil {
			t.Fatalf("OpenENVI(%s): %s", il, err.Error())
		}
		checkPattern(t, ds)
		ds.Close()
	}
}

func TestENVIReadConverts(t *testing.T) {
	name := filepath.Join(t.TempDir(), "conv.dat")
	ds, err := CreateENVI(name, Info{Samples: 2, Lines: 1, Bands: 1, Type: U16}, BSQ)
	if err != nil {
		t.Fatalf("CreateENVI: %s", err.Error())
	}
	defer ds.Close()
	if err := WriteWindow(ds, []int{0}, 0, 0, 2, 1, []uint16{7, 300}); err != nil {
		t.Fatalf("WriteWindow: %s", err.Error())
	}
	got, err := ReadWindow[float64](ds, []int{0}, 0, 0, 2, 1)
	if err != nil {
		t.Fatalf("ReadWindow: %s", err.Error())
	}
	if got[0] != 7 || got[1] != 300 {
		t.Errorf("converted read=%v; want [7 300]", got)
	}
}

func TestENVIWriteConvertsAndSaturates(t *testing.T) {
	name := filepath.Join(t.TempDir(), "sat.dat")
	ds, err := CreateENVI(name, Info{Samples: 2, Lines: 1, Bands: 1, Type: U8}, BSQ)
	if err != nil {
		t.Fatalf("CreateENVI: %s", err.Error())
	}
	defer ds.Close()
	if err := WriteWindow(ds, []int{0}, 0, 0, 2, 1, []float64{-5, 300}); err != nil {
		t.Fatalf("WriteWindow: %s", err.Error())
	}
	got, err := ReadWindow[uint8](ds, []int{0}, 0, 0, 2, 1)
	if err != nil {
		t.Fatalf("ReadWindow: %s", err.Error())
	}
	if got[0] != 0 || got[1] != 255 {
		t.Errorf("saturated write=%v; want [0 255]", got)
	}
}

func TestTIFFRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "rt.tif")
	ds, err := CreateTIFF(name, Info{Samples: 6, Lines: 3, Bands: 4, Type: U16})
	if err != nil {
		t.Fatalf("CreateTIFF: %s", err.Error())
	}
	fillPattern(t, ds)
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %s", err.Error())
	}

	ds, err = OpenTIFF(name, false)
	if err != nil {
		t.Fatalf("OpenTIFF: %s", err.Error())
	}
	defer ds.Close()
	info := ds.Info()
	if info.Samples != 6 || info.Lines != 3 || info.Bands != 4 || info.Type != U16 {
		t.Fatalf("reopened info %+v", info)
	}
	checkPattern(t, ds)
}

func TestTIFFFloatRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "f32.tif")
	ds, err := CreateTIFF(name, Info{Samples: 3, Lines: 2, Bands: 1, Type: F32})
	if err != nil {
		t.Fatalf("CreateTIFF: %s", err.Error())
	}
	want := []float32{0.5, -1.25, 3e6, 7, 8, 9}
	if err := WriteWindow(ds, []int{0}, 0, 0, 3, 2, want); err != nil {
		t.Fatalf("WriteWindow: %s", err.Error())
	}
	ds.Close()

	ds, err = Open(name, false) // magic sniffing path
	if err != nil {
		t.Fatalf("Open: %s", err.Error())
	}
	defer ds.Close()
	got, err := ReadWindow[float32](ds, []int{0}, 0, 0, 3, 2)
	if err != nil {
		t.Fatalf("ReadWindow: %s", err.Error())
	}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("got[%d]=%f; want %f", i, got[i], v)
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.dat"), false)
	if !errors.Is(err, ErrOpenFailed) {
		t.Errorf("Open missing file: %v; want OpenFailed", err)
	}
}

func TestCreateUnknownExtension(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "x.xyz"), Info{Samples: 1, Lines: 1, Bands: 1, Type: U16})
	if !errors.Is(err, ErrFormatUnknown) {
		t.Errorf("Create .xyz: %v; want FormatUnknown", err)
	}
}

func TestWindowBoundsChecked(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bounds.dat")
	ds, err := CreateENVI(name, Info{Samples: 4, Lines: 4, Bands: 2, Type: U16}, BIL)
	if err != nil {
		t.Fatalf("CreateENVI: %s", err.Error())
	}
	defer ds.Close()
	if _, err := ReadWindow[uint16](ds, []int{0}, 2, 2, 4, 4); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("out-of-bounds read: %v; want InvalidArgument", err)
	}
	if _, err := ReadWindow[uint16](ds, []int{5}, 0, 0, 1, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad band read: %v; want InvalidArgument", err)
	}
}

func TestPreviewWriteOnce(t *testing.T) {
	name := filepath.Join(t.TempDir(), "p.bmp")
	ds, err := Create(name, Info{Samples: 8, Lines: 4, Bands: 1, Type: U8})
	if err != nil {
		t.Fatalf("Create: %s", err.Error())
	}
	data := make([]uint8, 32)
	for i := range data {
		data[i] = uint8(8 * i)
	}
	if err := WriteWindow(ds, []int{0}, 0, 0, 8, 4, data); err != nil {
		t.Fatalf("WriteWindow: %s", err.Error())
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %s", err.Error())
	}
	if fi, err := os.Stat(name); err != nil || fi.Size() == 0 {
		t.Errorf("preview not written: %v", err)
	}
}
