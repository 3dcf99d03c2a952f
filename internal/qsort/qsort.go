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

// Package qsort provides in-place quickselect on float32 slices, the
// workhorse behind the robust statistics of the defective-pixel repair.
package qsort

// QSortFloat32 sorts ascending. The slice must not contain IEEE NaN.
func QSortFloat32(a []float32) {
	if len(a) > 1 {
		index := qPartitionFloat32(a)
		QSortFloat32(a[:index+1])
		QSortFloat32(a[index+1:])
	}
}

// qPartitionFloat32 partitions around the value of the middle element
// (Hoare scheme) and returns a split index r: a[:r+1] holds values <= the
// pivot and a[r+1:] values >= it. The pivot itself need not end up at r.
func qPartitionFloat32(a []float32) int {
	left, right := 0, len(a)-1
	mid := (left + right) >> 1
	pivot := a[mid]
	l := left - 1
	r := right + 1
	for {
		for {
			l++
			if a[l] >= pivot {
				break
			}
		}
		for {
			r--
			if a[r] <= pivot {
				break
			}
		}
		if l >= r {
			return r
		}
		a[l], a[r] = a[r], a[l]
	}
}

// QSelectFloat32 selects the kth lowest element (1-based), partially
// reordering the slice. The slice must not contain IEEE NaN.
func QSelectFloat32(a []float32, k int) float32 {
	left, right := 0, len(a)-1
	for left < right {
		mid := (left + right) >> 1
		pivot := a[mid]
		l, r := left-1, right+1
		for {
			for {
				l++
				if a[l] >= pivot {
					break
				}
			}
			for {
				r--
				if a[r] <= pivot {
					break
				}
			}
			if l >= r {
				break // index in r
			}
			a[l], a[r] = a[r], a[l]
		}
		index := r

		offset := index - left + 1
		if k <= offset {
			right = index
		} else {
			left = index + 1
			k = k - offset
		}
	}
	return a[left]
}

// MedianFloat32 computes the median, averaging the middle pair on even
// lengths. Partially reorders the slice; zero for an empty slice.
func MedianFloat32(a []float32) float32 {
	n := len(a)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return QSelectFloat32(a, n/2+1)
	}
	hi := QSelectFloat32(a, n/2+1)
	lo := QSelectFloat32(a[:n/2+1], n/2) // left partition holds the lower half
	return (lo + hi) / 2
}
