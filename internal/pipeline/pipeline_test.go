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

package pipeline

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/hspdev/hsp/internal/config"
	"github.com/hspdev/hsp/internal/ops"
	"github.com/hspdev/hsp/internal/order"
	"github.com/hspdev/hsp/internal/raster"
)

const (
	pS = 6
	pL = 4
	pB = 3
)

func makeInputRaster(t *testing.T, dir string) string {
	t.Helper()
	name := filepath.Join(dir, "in.dat")
	ds, err := raster.CreateENVI(name, raster.Info{
		Samples: pS, Lines: pL, Bands: pB, Type: raster.U16,
	}, raster.BIL)
	if err != nil {
		t.Fatalf("CreateENVI: %s", err.Error())
	}
	defer ds.Close()
	data := make([]uint16, pS*pL*pB)
	for i := range data {
		data[i] = uint16(100 + i)
	}
	if err := raster.WriteWindow(ds, raster.AllBands(pB), 0, 0, pS, pL, data); err != nil {
		t.Fatalf("WriteWindow: %s", err.Error())
	}
	return name
}

// coeffText writes a pB x pS constant text coefficient file.
func coeffText(t *testing.T, dir, name string, v float64) string {
	t.Helper()
	var sb strings.Builder
	for b := 0; b < pB; b++ {
		for x := 0; x < pS; x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		}
		sb.WriteByte('\n')
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("WriteFile: %s", err.Error())
	}
	return p
}

func readAll(t *testing.T, name string) []uint16 {
	t.Helper()
	ds, err := raster.Open(name, false)
	if err != nil {
		t.Fatalf("Open(%s): %s", name, err.Error())
	}
	defer ds.Close()
	info := ds.Info()
	data, err := raster.ReadWindow[uint16](ds, raster.AllBands(info.Bands), 0, 0, info.Samples, info.Lines)
	if err != nil {
		t.Fatalf("ReadWindow: %s", err.Error())
	}
	return data
}

func TestCopyThroughBatch(t *testing.T) {
	dir := t.TempDir()
	in := makeInputRaster(t, dir)
	out := filepath.Join(dir, "out.tif")
	o := &order.Order{
		Inputs:  []order.Input{{Filename: in}},
		Outputs: []string{out},
	}
	c := ops.NewContext(io.Discard)
	results, err := Run(o, config.Default(), c)
	if err != nil {
		t.Fatalf("Run: %s", err.Error())
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results: %+v", results)
	}
	got := readAll(t, out)
	for i, v := range got {
		if want := uint16(100 + i); v != want {
			t.Fatalf("out[%d]=%d; want %d", i, v, want)
		}
	}
}

func TestDarkCorrectedBatch(t *testing.T) {
	dir := t.TempDir()
	in := makeInputRaster(t, dir)
	dark := coeffText(t, dir, "dark.txt", 10)
	out := filepath.Join(dir, "out.dat")
	o := &order.Order{
		Inputs:  []order.Input{{Filename: in}},
		Coeff:   order.Coeff{DarkA: dark},
		Outputs: []string{out},
	}
	c := ops.NewContext(io.Discard)
	if _, err := Run(o, config.Default(), c); err != nil {
		t.Fatalf("Run: %s", err.Error())
	}
	got := readAll(t, out)
	for i, v := range got {
		if want := uint16(90 + i); v != want {
			t.Fatalf("out[%d]=%d; want %d", i, v, want)
		}
	}
}

func TestBatchContinuesPastFailedInput(t *testing.T) {
	dir := t.TempDir()
	in := makeInputRaster(t, dir)
	o := &order.Order{
		Inputs: []order.Input{
			{Filename: filepath.Join(dir, "missing.dat")},
			{Filename: in},
		},
		Outputs: []string{
			filepath.Join(dir, "bad.tif"),
			filepath.Join(dir, "good.tif"),
		},
	}
	c := ops.NewContext(io.Discard)
	results, err := Run(o, config.Default(), c)
	if err == nil {
		t.Fatalf("Run with missing input succeeded")
	}
	if results[0].Err == nil {
		t.Errorf("missing input did not fail")
	}
	if results[1].Err != nil {
		t.Errorf("healthy input failed: %s", results[1].Err.Error())
	}
	if _, err := os.Stat(filepath.Join(dir, "good.tif")); err != nil {
		t.Errorf("good output missing: %s", err.Error())
	}
}

func buildRawVNIR(t *testing.T, filename string, samples, frames int) {
	t.Helper()
	bands := 150
	stride := 12 + 2*samples
	marker := []byte{0x09, 0x15, 0xC0, 0x00}
	var buf []byte
	for f := 0; f < frames; f++ {
		buf = append(buf, make([]byte, 8)...)
		payload := make([]byte, bands*stride)
		copy(payload[0:4], marker)
		binary.BigEndian.PutUint16(payload[4:6], uint16(samples))
		payload[6] = 2<<4 | 0x07
		payload[7] = 0
		payload[11] = byte(f) // sequence number
		for b := 0; b < bands; b++ {
			for x := 0; x < samples; x++ {
				binary.LittleEndian.PutUint16(payload[b*stride+12+2*x:], uint16(200+b+x))
			}
		}
		buf = append(buf, payload...)
	}
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		t.Fatalf("WriteFile: %s", err.Error())
	}
}

func TestRawDecodedBatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "l0.dat")
	buildRawVNIR(t, in, 4, 2)

	// index-coupled dark: a=1, b=0 -> dark = frame index
	var a, b strings.Builder
	for band := 0; band < 150; band++ {
		for x := 0; x < 4; x++ {
			if x > 0 {
				a.WriteByte(' ')
				b.WriteByte(' ')
			}
			a.WriteByte('1')
			b.WriteByte('0')
		}
		a.WriteByte('\n')
		b.WriteByte('\n')
	}
	darkA := filepath.Join(dir, "dark_a.txt")
	darkB := filepath.Join(dir, "dark_b.txt")
	if err := os.WriteFile(darkA, []byte(a.String()), 0644); err != nil {
		t.Fatalf("WriteFile: %s", err.Error())
	}
	if err := os.WriteFile(darkB, []byte(b.String()), 0644); err != nil {
		t.Fatalf("WriteFile: %s", err.Error())
	}

	out := filepath.Join(dir, "l0_rad.tif")
	o := &order.Order{
		Inputs:  []order.Input{{Filename: in, Raw: true}},
		Coeff:   order.Coeff{DarkA: darkA, DarkB: darkB},
		Outputs: []string{out},
	}
	c := ops.NewContext(io.Discard)
	if _, err := Run(o, config.Default(), c); err != nil {
		t.Fatalf("Run: %s", err.Error())
	}

	ds, err := raster.Open(out, false)
	if err != nil {
		t.Fatalf("Open: %s", err.Error())
	}
	defer ds.Close()
	info := ds.Info()
	if info.Samples != 4 || info.Lines != 2 || info.Bands != 150 {
		t.Fatalf("output dims %+v", info)
	}
	// line y corresponds to frame y; DN' = (200+b+x) - y
	for _, y := range []int{0, 1} {
		line, err := raster.ReadWindow[uint16](ds, raster.AllBands(150), 0, y, 4, 1)
		if err != nil {
			t.Fatalf("ReadWindow: %s", err.Error())
		}
		i := 0
		for b := 0; b < 150; b++ {
			for x := 0; x < 4; x++ {
				if want := uint16(200 + b + x - y); line[i] != want {
					t.Fatalf("line %d [%d,%d]=%d; want %d", y, b, x, line[i], want)
				}
				i++
			}
		}
	}
}

func TestCancelledBatchStops(t *testing.T) {
	dir := t.TempDir()
	in := makeInputRaster(t, dir)
	o := &order.Order{
		Inputs:  []order.Input{{Filename: in}},
		Outputs: []string{filepath.Join(dir, "out.tif")},
	}
	c := ops.NewContext(io.Discard)
	c.Cancel()
	if _, err := Run(o, config.Default(), c); err == nil {
		t.Errorf("cancelled batch succeeded")
	}
}

func TestPreviewSidecar(t *testing.T) {
	dir := t.TempDir()
	in := makeInputRaster(t, dir)
	out := filepath.Join(dir, "out.tif")
	cfg := config.Default()
	cfg.Preview = true
	o := &order.Order{
		Inputs:  []order.Input{{Filename: in}},
		Outputs: []string{out},
	}
	if _, err := Run(o, cfg, ops.NewContext(io.Discard)); err != nil {
		t.Fatalf("Run: %s", err.Error())
	}
	if fi, err := os.Stat(filepath.Join(dir, "out.jpg")); err != nil || fi.Size() == 0 {
		t.Errorf("quicklook sidecar missing: %v", err)
	}
}
