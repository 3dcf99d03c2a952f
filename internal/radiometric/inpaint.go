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
	"container/heap"
	"math"

	"github.com/hspdev/hsp/internal/tile"
)

// Inpaint selects the defective-pixel repair algorithm.
type Inpaint int

const (
	// InpaintTelea is Telea's fast-marching inpainting.
	InpaintTelea Inpaint = iota
	// InpaintNeighborhoodAveraging replaces masked pixels with the mean of
	// their 8 neighbours.
	InpaintNeighborhoodAveraging
)

// neighborhoodAveraging convolves with [[1,1,1],[1,0,1],[1,1,1]]/8 and
// replaces only the pixels where mask(y,x) is set.
func neighborhoodAveraging[T tile.Pixel](img *tile.Tile[T], mask func(y, x int) bool) *tile.Tile[T] {
	rows, cols := img.Rows, img.Cols
	out := img.Clone()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if !mask(y, x) {
				continue
			}
			var s float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dy == 0 && dx == 0 {
						continue
					}
					s += float64(img.At(reflect101(y+dy, rows), reflect101(x+dx, cols)))
				}
			}
			out.Set(y, x, tile.SatCast[T](s/8))
		}
	}
	return out
}

// Fast-marching inpainting after Telea (2004). Pixels are repaired in
// order of increasing distance from the mask boundary; each is estimated
// from the known pixels in a radius-sized disc, weighted by
// direction, geometric distance and level-set proximity.

const (
	fmKnown = iota
	fmBand
	fmInside
)

type fmPixel struct {
	dist float64
	y, x int
}

type fmHeap []fmPixel

func (h fmHeap) Len() int            { return len(h) }
func (h fmHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h fmHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *fmHeap) Push(x interface{}) { *h = append(*h, x.(fmPixel)) }
func (h *fmHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// fmSolve solves the discrete eikonal step for one neighbour pair.
func fmSolve(d1, d2 float64, known1, known2 bool) float64 {
	sol := 1e6
	if known1 {
		if known2 {
			if diff := d1 - d2; math.Abs(diff) < 1 {
				s := (d1 + d2 + math.Sqrt(2-diff*diff)) / 2
				if s > d1 && s > d2 {
					return s
				}
			}
			sol = math.Min(d1, d2) + 1
		} else {
			sol = d1 + 1
		}
	} else if known2 {
		sol = d2 + 1
	}
	return sol
}

// inpaintTelea repairs every masked pixel of img in place-order, using the
// given neighbourhood radius.
func inpaintTelea[T tile.Pixel](img *tile.Tile[T], mask func(y, x int) bool, radius float64) *tile.Tile[T] {
	rows, cols := img.Rows, img.Cols
	flags := make([]int, rows*cols)
	dist := make([]float64, rows*cols)
	vals := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := y*cols + x
			vals[i] = float64(img.At(y, x))
			if mask(y, x) {
				flags[i] = fmInside
				dist[i] = 1e6
			}
		}
	}

	// seed the narrow band with the known pixels bordering the mask
	band := &fmHeap{}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := y*cols + x
			if flags[i] != fmInside {
				continue
			}
			for _, d := range [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}} {
				ny, nx := y+d[0], x+d[1]
				if ny < 0 || ny >= rows || nx < 0 || nx >= cols {
					continue
				}
				j := ny*cols + nx
				if flags[j] == fmKnown {
					flags[j] = fmBand
					dist[j] = 0
					heap.Push(band, fmPixel{0, ny, nx})
				}
			}
		}
	}

	at := func(y, x int) int { return y*cols + x }
	inRange := func(y, x int) bool { return y >= 0 && y < rows && x >= 0 && x < cols }

	estimate := func(y, x int) float64 {
		// gradient of the distance map at (y,x), central differences on
		// known cells where possible
		grad := func(m []float64, y, x int) (gy, gx float64) {
			if inRange(y+1, x) && flags[at(y+1, x)] != fmInside &&
				inRange(y-1, x) && flags[at(y-1, x)] != fmInside {
				gy = (m[at(y+1, x)] - m[at(y-1, x)]) / 2
			}
			if inRange(y, x+1) && flags[at(y, x+1)] != fmInside &&
				inRange(y, x-1) && flags[at(y, x-1)] != fmInside {
				gx = (m[at(y, x+1)] - m[at(y, x-1)]) / 2
			}
			return gy, gx
		}
		dgy, dgx := grad(dist, y, x)
		r := int(math.Ceil(radius))
		var num, den float64
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				ny, nx := y+dy, x+dx
				if (dy == 0 && dx == 0) || !inRange(ny, nx) {
					continue
				}
				j := at(ny, nx)
				if flags[j] == fmInside {
					continue
				}
				lenSq := float64(dy*dy + dx*dx)
				if lenSq > radius*radius {
					continue
				}
				// direction component
				dir := (float64(dy)*dgy + float64(dx)*dgx) / math.Sqrt(lenSq)
				if math.Abs(dir) <= 0.01 {
					dir = 1e-6
				}
				// geometric and level-set components
				dst := 1 / (lenSq * math.Sqrt(lenSq))
				lev := 1 / (1 + math.Abs(dist[j]-dist[at(y, x)]))
				w := math.Abs(dir * dst * lev)
				num += w * vals[j]
				den += w
			}
		}
		if den == 0 {
			return vals[at(y, x)]
		}
		return num / den
	}

	for band.Len() > 0 {
		p := heap.Pop(band).(fmPixel)
		i := at(p.y, p.x)
		flags[i] = fmKnown
		for _, d := range [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}} {
			ny, nx := p.y+d[0], p.x+d[1]
			if !inRange(ny, nx) {
				continue
			}
			j := at(ny, nx)
			if flags[j] != fmInside {
				continue
			}
			sol := math.Min(
				fmSolve(distAt(dist, flags, cols, ny, nx-1), distAt(dist, flags, cols, ny-1, nx),
					knownAt(flags, rows, cols, ny, nx-1), knownAt(flags, rows, cols, ny-1, nx)),
				math.Min(
					fmSolve(distAt(dist, flags, cols, ny, nx+1), distAt(dist, flags, cols, ny-1, nx),
						knownAt(flags, rows, cols, ny, nx+1), knownAt(flags, rows, cols, ny-1, nx)),
					math.Min(
						fmSolve(distAt(dist, flags, cols, ny, nx-1), distAt(dist, flags, cols, ny+1, nx),
							knownAt(flags, rows, cols, ny, nx-1), knownAt(flags, rows, cols, ny+1, nx)),
						fmSolve(distAt(dist, flags, cols, ny, nx+1), distAt(dist, flags, cols, ny+1, nx),
							knownAt(flags, rows, cols, ny, nx+1), knownAt(flags, rows, cols, ny+1, nx)))))
			dist[j] = sol
			vals[j] = estimate(ny, nx)
			flags[j] = fmBand
			heap.Push(band, fmPixel{sol, ny, nx})
		}
	}

	out := tile.New[T](rows, cols)
	for i, v := range vals {
		out.Data[i] = tile.SatCast[T](v)
	}
	return out
}

func distAt(dist []float64, flags []int, cols, y, x int) float64 {
	if y < 0 || x < 0 || y*cols+x >= len(dist) || x >= cols {
		return 1e6
	}
	return dist[y*cols+x]
}

func knownAt(flags []int, rows, cols, y, x int) bool {
	if y < 0 || y >= rows || x < 0 || x >= cols {
		return false
	}
	return flags[y*cols+x] == fmKnown
}
