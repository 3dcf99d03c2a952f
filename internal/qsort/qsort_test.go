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

package qsort

import (
	"testing"
)

func TestQSortFloat32(t *testing.T) {
	a := []float32{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	QSortFloat32(a)
	for i := 1; i < len(a); i++ {
		if a[i-1] > a[i] {
			t.Fatalf("not sorted at %d: %v", i, a)
		}
	}
}

func TestQSelectFloat32(t *testing.T) {
	for k := 1; k <= 7; k++ {
		a := []float32{4, 7, 1, 6, 2, 5, 3}
		if got := QSelectFloat32(a, k); got != float32(k) {
			t.Errorf("QSelect(k=%d)=%f; want %d", k, got, k)
		}
	}
}

func TestMedianFloat32Odd(t *testing.T) {
	if got := MedianFloat32([]float32{9, 1, 5}); got != 5 {
		t.Errorf("median=%f; want 5", got)
	}
	if got := MedianFloat32([]float32{7}); got != 7 {
		t.Errorf("median=%f; want 7", got)
	}
}

func TestMedianFloat32Even(t *testing.T) {
	if got := MedianFloat32([]float32{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("median=%f; want 2.5", got)
	}
	if got := MedianFloat32(nil); got != 0 {
		t.Errorf("median(nil)=%f; want 0", got)
	}
}
