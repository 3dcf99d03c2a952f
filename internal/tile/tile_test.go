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

package tile

import (
	"testing"
)

func TestSatCastSaturates(t *testing.T) {
	if got := SatCast[uint16](70000.0); got != 65535 {
		t.Errorf("SatCast(70000)=%d; want 65535", got)
	}
	if got := SatCast[uint16](-3.0); got != 0 {
		t.Errorf("SatCast(-3)=%d; want 0", got)
	}
	if got := SatCast[int16](40000.0); got != 32767 {
		t.Errorf("SatCast(40000)=%d; want 32767", got)
	}
	if got := SatCast[uint8](255.4); got != 255 {
		t.Errorf("SatCast(255.4)=%d; want 255", got)
	}
}

func TestSatCastRounds(t *testing.T) {
	if got := SatCast[uint16](99.5); got != 100 {
		t.Errorf("SatCast(99.5)=%d; want 100", got)
	}
	if got := SatCast[uint16](99.4); got != 99 {
		t.Errorf("SatCast(99.4)=%d; want 99", got)
	}
	if got := SatCast[float32](99.4); got != 99.4 {
		t.Errorf("SatCast[float32](99.4)=%f; want 99.4", got)
	}
}

func TestTranspose(t *testing.T) {
	m := NewFromData(2, 3, []uint16{1, 2, 3, 4, 5, 6})
	tr := m.Transpose()
	if tr.Rows != 3 || tr.Cols != 2 {
		t.Fatalf("transpose shape %dx%d; want 3x2", tr.Rows, tr.Cols)
	}
	want := []uint16{1, 4, 2, 5, 3, 6}
	for i, v := range want {
		if tr.Data[i] != v {
			t.Errorf("tr.Data[%d]=%d; want %d", i, tr.Data[i], v)
		}
	}
}

func TestSubTile(t *testing.T) {
	m := New[int32](4, 4)
	for i := range m.Data {
		m.Data[i] = int32(i)
	}
	s := m.SubTile(1, 1, 3, 3)
	want := []int32{5, 6, 9, 10}
	for i, v := range want {
		if s.Data[i] != v {
			t.Errorf("s.Data[%d]=%d; want %d", i, s.Data[i], v)
		}
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	m := NewFromData(1, 2, []float32{1, 2})
	c := m.Clone()
	c.Data[0] = 9
	if m.Data[0] != 1 {
		t.Errorf("clone aliases original: m.Data[0]=%f", m.Data[0])
	}
}

func TestConvert(t *testing.T) {
	m := NewFromData(1, 3, []float64{-1, 0.6, 70000})
	c := Convert[uint16](m)
	want := []uint16{0, 1, 65535}
	for i, v := range want {
		if c.Data[i] != v {
			t.Errorf("c.Data[%d]=%d; want %d", i, c.Data[i], v)
		}
	}
}
