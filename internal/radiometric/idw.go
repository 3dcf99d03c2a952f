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
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/hspdev/hsp/internal/qsort"
	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

// Invalid is the sentinel for cells that must not contribute to any
// statistic. Detector counts are physically non-negative, so a cell is
// invalid iff it is strictly negative. IEEE NaN is never introduced: the
// algorithm relies on ordinary comparisons treating the sentinel as a
// magnitude.
const Invalid float32 = -1.0

func isInvalid(v float32) bool { return v < 0 }

type point struct{ Y, X int }

// DefectivePixelCorrectionIDW repairs defective cells by inverse-distance
// weighting over a per-defect window, with special handling of consecutive
// defect runs and an outlier-guarded ratio fallback. Used with the line
// iterator: each bands x samples tile is treated as an independent frame.
type DefectivePixelCorrectionIDW[T tile.Pixel] struct {
	// MaxThreads bounds the worker count across defect positions.
	// Defects write disjoint cells, and every window is copied out of the
	// shared padded tile, so workers never observe partial corrections.
	MaxThreads int

	dpm            *tile.Tile[uint8]
	rowLabel       *tile.Tile[uint16]
	colLabel       *tile.Tile[uint16]
	weights        *tile.Tile[float32]
	dpList         []point
	maxWinSpatial  int
	maxWinSpectral int
}

func NewDefectivePixelCorrectionIDW[T tile.Pixel](filename string) (*DefectivePixelCorrectionIDW[T], error) {
	dpm, err := loadDefectMask(filename)
	if err != nil {
		return nil, err
	}
	return NewDefectivePixelCorrectionIDWFrom[T](dpm), nil
}

func NewDefectivePixelCorrectionIDWFrom[T tile.Pixel](dpm *tile.Tile[uint8]) *DefectivePixelCorrectionIDW[T] {
	op := &DefectivePixelCorrectionIDW[T]{
		MaxThreads: runtime.GOMAXPROCS(0),
		dpm:        dpm,
	}
	op.constructDpList()
	op.findConsecutive()
	op.maxWinSpatial, op.maxWinSpectral = 1, 1
	for _, v := range op.rowLabel.Data {
		if int(v) > op.maxWinSpatial {
			op.maxWinSpatial = int(v)
		}
	}
	for _, v := range op.colLabel.Data {
		if int(v) > op.maxWinSpectral {
			op.maxWinSpectral = int(v)
		}
	}
	op.weights = inverseWeightsTable(2*op.maxWinSpectral+1, 2*op.maxWinSpatial+1)
	return op
}

// RowLabel returns the matrix of horizontal consecutive-defect run lengths:
// zero outside defects, n for a defect inside a run of n contiguous defects
// along its row.
func (op *DefectivePixelCorrectionIDW[T]) RowLabel() *tile.Tile[uint16] { return op.rowLabel }

// ColLabel is the vertical counterpart of RowLabel.
func (op *DefectivePixelCorrectionIDW[T]) ColLabel() *tile.Tile[uint16] { return op.colLabel }

func (op *DefectivePixelCorrectionIDW[T]) constructDpList() {
	for y := 0; y < op.dpm.Rows; y++ {
		for x := 0; x < op.dpm.Cols; x++ {
			if op.dpm.At(y, x) == 1 {
				op.dpList = append(op.dpList, point{Y: y, X: x})
			}
		}
	}
}

// findConsecutive builds the run-length label matrices with a forward
// counting pass and a backward propagation pass per axis.
func (op *DefectivePixelCorrectionIDW[T]) findConsecutive() {
	rows, cols := op.dpm.Rows, op.dpm.Cols
	op.rowLabel = tile.New[uint16](rows, cols)
	op.colLabel = tile.New[uint16](rows, cols)

	for y := 0; y < rows; y++ {
		op.rowLabel.Set(y, 0, uint16(op.dpm.At(y, 0)))
		for x := 1; x < cols; x++ {
			if op.dpm.At(y, x) == 1 {
				op.rowLabel.Set(y, x, op.rowLabel.At(y, x-1)+1)
			}
		}
	}
	for y := rows - 1; y >= 0; y-- {
		for x := cols - 2; x >= 0; x-- {
			if op.rowLabel.At(y, x) != 0 && op.rowLabel.At(y, x+1) != 0 {
				op.rowLabel.Set(y, x, op.rowLabel.At(y, x+1))
			}
		}
	}

	for x := 0; x < cols; x++ {
		op.colLabel.Set(0, x, uint16(op.dpm.At(0, x)))
		for y := 1; y < rows; y++ {
			if op.dpm.At(y, x) == 1 {
				op.colLabel.Set(y, x, op.colLabel.At(y-1, x)+1)
			}
		}
	}
	for x := cols - 1; x >= 0; x-- {
		for y := rows - 2; y >= 0; y-- {
			if op.colLabel.At(y, x) != 0 && op.colLabel.At(y+1, x) != 0 {
				op.colLabel.Set(y, x, op.colLabel.At(y+1, x))
			}
		}
	}
}

// inverseWeightsTable builds the 1/distance table with a zero centre.
func inverseWeightsTable(rows, cols int) *tile.Tile[float32] {
	cy, cx := rows/2, cols/2
	w := tile.New[float32](rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if i == cy && j == cx {
				continue
			}
			w.Set(i, j, float32(1/math.Hypot(float64(cy-i), float64(cx-j))))
		}
	}
	return w
}

// Apply repairs every listed defect in the tile in place and returns it.
func (op *DefectivePixelCorrectionIDW[T]) Apply(img *tile.Tile[T]) (*tile.Tile[T], error) {
	if img.Rows != op.dpm.Rows || img.Cols != op.dpm.Cols {
		return nil, raster.ErrTypeMismatch
	}
	if len(op.dpList) == 0 {
		return img, nil
	}

	// promote to the computing type, mark defects, pad with Invalid
	wy, wx := op.maxWinSpectral, op.maxWinSpatial
	padded := tile.New[float32](img.Rows+2*wy, img.Cols+2*wx)
	padded.Fill(Invalid)
	for y := 0; y < img.Rows; y++ {
		dst := padded.Row(y + wy)[wx : wx+img.Cols]
		for x := 0; x < img.Cols; x++ {
			dst[x] = float32(img.At(y, x))
		}
	}
	for _, p := range op.dpList {
		padded.Set(p.Y+wy, p.X+wx, Invalid)
	}

	workers := op.MaxThreads
	if workers < 1 {
		workers = 1
	}
	if workers > len(op.dpList) {
		workers = len(op.dpList)
	}
	var wg sync.WaitGroup
	chunk := (len(op.dpList) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if hi > len(op.dpList) {
			hi = len(op.dpList)
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for _, p := range op.dpList[lo:hi] {
				patch := op.repairOne(padded, img.Rows, img.Cols, p)
				img.Set(p.Y, p.X, tile.SatCast[T](float64(patch)))
			}
		}(lo, hi)
	}
	wg.Wait()
	return img, nil
}

// repairOne computes the replacement value for one defect. All reads come
// from the shared pre-correction padded tile; the window is a private copy.
func (op *DefectivePixelCorrectionIDW[T]) repairOne(padded *tile.Tile[float32], imgRows, imgCols int, p point) uint16 {
	Wy, Wx := op.maxWinSpectral, op.maxWinSpatial
	winSpatial := int(op.rowLabel.At(p.Y, p.X))
	winSpectral := int(op.colLabel.At(p.Y, p.X))

	idwT := op.weights.SubTile(Wy-winSpectral, Wx-winSpatial, Wy+winSpectral+1, Wx+winSpatial+1)
	windowT := padded.SubTile(Wy+p.Y-winSpectral, Wx+p.X-winSpatial,
		Wy+p.Y+winSpectral+1, Wx+p.X+winSpatial+1)

	// transpose so the spectral axis runs across columns
	window := windowT.Transpose()
	idw := idwT.Transpose()
	centerRow, centerCol := window.Rows/2, window.Cols/2

	// guarded extreme replacement when any spectral column is noisy
	meanWindow := meanValid(window)
	stddevs := colStdDevs(window)
	noisy := false
	for _, s := range stddevs {
		if !isInvalid(s) && float64(s) > 0.1*meanWindow {
			noisy = true
			break
		}
	}
	if noisy {
		minDN, maxDN, minLoc, maxLoc := minMaxLoc(window)
		window0 := window.Clone()
		for i, v := range window0.Data {
			if v == minDN || v == maxDN {
				window0.Data[i] = Invalid
			}
		}
		med := colMedians(window0)
		if altMax := med[maxLoc.X]; !isInvalid(altMax) {
			for i, v := range window.Data {
				if v == maxDN {
					window.Data[i] = altMax
				}
			}
		}
		if altMin := med[minLoc.X]; !isInvalid(altMin) {
			for i, v := range window.Data {
				if v == minDN {
					window.Data[i] = altMin
				}
			}
		}
	}

	patch := getPatch(window.Data, idw.Data)
	window.Set(centerRow, centerCol, float32(patch))

	// ratio of each cell to its row's centre-column value
	spb := ratioMat(window, centerCol)
	Tpb := append([]float32(nil), spb.Row(centerRow)...)
	for x := 0; x < spb.Cols; x++ {
		spb.Set(centerRow, x, Invalid)
	}
	for i, v := range spb.Data {
		if isInvalid(v) {
			window.Data[i] = Invalid
		}
	}

	// column-wise outlier flags on the ratios, the window, and the ratios
	// flattened into one population
	ta1 := isOutlierCols(spb)
	ta2 := isOutlierCols(window)
	ta3 := isOutlierFlat(spb)
	for i := range spb.Data {
		if ta1[i] || ta2[i] || ta3[i] {
			spb.Data[i] = Invalid
			window.Data[i] = Invalid
		}
	}
	for i, v := range spb.Data {
		if v == 0 {
			spb.Data[i] = Invalid
		}
	}

	meanSpb, stdSpb := colMeanStd(spb)

	// pick the reference spectrum: the defect's own spatial row if it has a
	// clean column, otherwise the column means
	var window2 []float32
	clean := false
	for x := 0; x < window.Cols; x++ {
		i := centerRow*window.Cols + x
		if !ta1[i] && !ta2[i] && !isInvalid(window.At(centerRow, x)) && !isInvalid(meanSpb[x]) {
			clean = true
			break
		}
	}
	if clean {
		window2 = append([]float32(nil), window.Row(centerRow)...)
	} else {
		window2 = colMeans(window)
	}

	// ratio-corrected fallback patch for windows that are small relative to
	// the frame and whose centre-row ratios stray outside one sigma
	if float64(winSpectral) < 0.8*float64(imgRows) && float64(winSpatial) < 0.8*float64(imgCols) {
		outside, allInvalidSum := false, true
		for x := range Tpb {
			if Tpb[x]+meanSpb[x] >= 0 {
				allInvalidSum = false
			}
			if Tpb[x] <= meanSpb[x]-stdSpb[x] || Tpb[x] >= meanSpb[x]+stdSpb[x] {
				outside = true
			}
		}
		if outside || allInvalidSum {
			idwMid := append([]float32(nil), idw.Row(centerRow)...)
			prod := make([]float32, len(window2))
			for x := range idwMid {
				if isInvalid(window2[x]) || isInvalid(meanSpb[x]) {
					idwMid[x] = 0
				}
				prod[x] = window2[x] * meanSpb[x]
			}
			if patchAlt := getPatch(prod, idwMid); patchAlt != 0 {
				patch = patchAlt
			}
		}
	}
	return patch
}

// getPatch computes the weighted estimate round(sum(w*v)/sum(w)) over the
// valid cells, or zero when no valid cell carries weight.
func getPatch(window, idw []float32) uint16 {
	var wsum float64
	for i, v := range window {
		if !isInvalid(v) {
			wsum += float64(idw[i])
		}
	}
	if wsum == 0 {
		return 0
	}
	var acc float64
	for i, v := range window {
		if !isInvalid(v) {
			acc += float64(v) * float64(idw[i]) / wsum
		}
	}
	return tile.SatCast[uint16](acc)
}

// ratioMat divides the centre column, repeated across all columns, by the
// matrix itself. Division by zero or invalid denominators yields Invalid.
func ratioMat(m *tile.Tile[float32], centerCol int) *tile.Tile[float32] {
	res := tile.New[float32](m.Rows, m.Cols)
	for y := 0; y < m.Rows; y++ {
		num := m.At(y, centerCol)
		for x := 0; x < m.Cols; x++ {
			den := m.At(y, x)
			if isInvalid(den) || den == 0 {
				res.Set(y, x, Invalid)
				continue
			}
			r := num / den
			if math.IsNaN(float64(r)) || math.IsInf(float64(r), 0) {
				r = Invalid
			}
			res.Set(y, x, r)
		}
	}
	return res
}

type loc struct{ Y, X int }

// minMaxLoc scans row-major for the global extremes, sentinel included,
// reporting the first location of each.
func minMaxLoc(m *tile.Tile[float32]) (minV, maxV float32, minLoc, maxLoc loc) {
	minV, maxV = m.Data[0], m.Data[0]
	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			v := m.At(y, x)
			if v < minV {
				minV, minLoc = v, loc{y, x}
			}
			if v > maxV {
				maxV, maxLoc = v, loc{y, x}
			}
		}
	}
	return
}

// meanValid averages all valid cells.
func meanValid(m *tile.Tile[float32]) float64 {
	var sum float64
	var n int
	for _, v := range m.Data {
		if !isInvalid(v) {
			sum += float64(v)
			n++
		}
	}
	if n == 0 {
		return float64(Invalid)
	}
	return sum / float64(n)
}

// colGather collects the valid cells of column x into dst.
func colGather(m *tile.Tile[float32], x int, dst []float64) []float64 {
	dst = dst[:0]
	for y := 0; y < m.Rows; y++ {
		if v := m.At(y, x); !isInvalid(v) {
			dst = append(dst, float64(v))
		}
	}
	return dst
}

// colStdDevs returns the per-column sample standard deviation of the valid
// cells, Invalid where a column has no valid cell.
func colStdDevs(m *tile.Tile[float32]) []float32 {
	out := make([]float32, m.Cols)
	scratch := make([]float64, 0, m.Rows)
	for x := 0; x < m.Cols; x++ {
		vals := colGather(m, x, scratch)
		switch len(vals) {
		case 0:
			out[x] = Invalid
		case 1:
			out[x] = 0
		default:
			out[x] = float32(stat.StdDev(vals, nil))
		}
	}
	return out
}

// colMeanStd returns per-column mean and sample standard deviation over the
// valid cells, Invalid where a column has no valid cell.
func colMeanStd(m *tile.Tile[float32]) (means, stds []float32) {
	means = make([]float32, m.Cols)
	stds = make([]float32, m.Cols)
	scratch := make([]float64, 0, m.Rows)
	for x := 0; x < m.Cols; x++ {
		vals := colGather(m, x, scratch)
		switch len(vals) {
		case 0:
			means[x], stds[x] = Invalid, Invalid
		case 1:
			means[x], stds[x] = float32(vals[0]), 0
		default:
			means[x] = float32(stat.Mean(vals, nil))
			stds[x] = float32(stat.StdDev(vals, nil))
		}
	}
	return means, stds
}

// colMeans returns the per-column mean of the valid cells.
func colMeans(m *tile.Tile[float32]) []float32 {
	out := make([]float32, m.Cols)
	scratch := make([]float64, 0, m.Rows)
	for x := 0; x < m.Cols; x++ {
		vals := colGather(m, x, scratch)
		if len(vals) == 0 {
			out[x] = Invalid
			continue
		}
		out[x] = float32(stat.Mean(vals, nil))
	}
	return out
}

// colGather32 collects the valid cells of column x into dst.
func colGather32(m *tile.Tile[float32], x int, dst []float32) []float32 {
	dst = dst[:0]
	for y := 0; y < m.Rows; y++ {
		if v := m.At(y, x); !isInvalid(v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// colMedians returns the per-column median of the valid cells.
func colMedians(m *tile.Tile[float32]) []float32 {
	out := make([]float32, m.Cols)
	scratch := make([]float32, 0, m.Rows)
	for x := 0; x < m.Cols; x++ {
		vals := colGather32(m, x, scratch)
		if len(vals) == 0 {
			out[x] = Invalid
			continue
		}
		out[x] = qsort.MedianFloat32(vals)
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// isOutlier flags values more than three scaled median absolute deviations
// from the median, the robust default threshold. vals may be reordered.
func isOutlier(vals []float32, flags func(i int, outlier bool), at func(i int) (float32, bool), n int) {
	const madScale = 1.4826 // -1/(sqrt(2)*erfcinv(1.5))
	if len(vals) == 0 {
		for i := 0; i < n; i++ {
			flags(i, false)
		}
		return
	}
	med := qsort.MedianFloat32(vals)
	devs := make([]float32, len(vals))
	for i, v := range vals {
		devs[i] = abs32(v - med)
	}
	thresh := 3 * madScale * qsort.MedianFloat32(devs)
	for i := 0; i < n; i++ {
		v, ok := at(i)
		flags(i, ok && abs32(v-med) > thresh)
	}
}

// isOutlierCols builds a per-cell outlier mask, column by column.
func isOutlierCols(m *tile.Tile[float32]) []bool {
	out := make([]bool, len(m.Data))
	scratch := make([]float32, 0, m.Rows)
	for x := 0; x < m.Cols; x++ {
		vals := colGather32(m, x, scratch)
		isOutlier(vals,
			func(y int, o bool) { out[y*m.Cols+x] = o },
			func(y int) (float32, bool) {
				v := m.At(y, x)
				return v, !isInvalid(v)
			},
			m.Rows)
	}
	return out
}

// isOutlierFlat treats the whole matrix as one population.
func isOutlierFlat(m *tile.Tile[float32]) []bool {
	out := make([]bool, len(m.Data))
	vals := make([]float32, 0, len(m.Data))
	for _, v := range m.Data {
		if !isInvalid(v) {
			vals = append(vals, v)
		}
	}
	isOutlier(vals,
		func(i int, o bool) { out[i] = o },
		func(i int) (float32, bool) {
			v := m.Data[i]
			return v, !isInvalid(v)
		},
		len(m.Data))
	return out
}
