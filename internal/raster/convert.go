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
	"encoding/binary"
	"math"

	"github.com/hspdev/hsp/internal/tile"
)

// All on-disk formats handled here are little-endian (ENVI byte order 0,
// TIFF "II"). Conversion between element types goes through float64 with
// rounding and saturation on integer destinations.

// decodeFloat64 decodes n elements of type t from src into dst.
func decodeFloat64(src []byte, t ElemType, dst []float64) {
	n := len(dst)
	switch t {
	case U8:
		for i := 0; i < n; i++ {
			dst[i] = float64(src[i])
		}
	case I16:
		for i := 0; i < n; i++ {
			dst[i] = float64(int16(binary.LittleEndian.Uint16(src[2*i:])))
		}
	case U16:
		for i := 0; i < n; i++ {
			dst[i] = float64(binary.LittleEndian.Uint16(src[2*i:]))
		}
	case I32:
		for i := 0; i < n; i++ {
			dst[i] = float64(int32(binary.LittleEndian.Uint32(src[4*i:])))
		}
	case U32:
		for i := 0; i < n; i++ {
			dst[i] = float64(binary.LittleEndian.Uint32(src[4*i:]))
		}
	case F32:
		for i := 0; i < n; i++ {
			dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:])))
		}
	case F64:
		for i := 0; i < n; i++ {
			dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[8*i:]))
		}
	}
}

// encodeFloat64 encodes n elements into dst as type t, saturating integers.
func encodeFloat64(src []float64, t ElemType, dst []byte) {
	clamp := func(v, lo, hi float64) float64 {
		v = math.Round(v)
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	for i, v := range src {
		switch t {
		case U8:
			dst[i] = uint8(clamp(v, 0, math.MaxUint8))
		case I16:
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(int16(clamp(v, math.MinInt16, math.MaxInt16))))
		case U16:
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(clamp(v, 0, math.MaxUint16)))
		case I32:
			binary.LittleEndian.PutUint32(dst[4*i:], uint32(int32(clamp(v, math.MinInt32, math.MaxInt32))))
		case U32:
			binary.LittleEndian.PutUint32(dst[4*i:], uint32(clamp(v, 0, math.MaxUint32)))
		case F32:
			binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(float32(v)))
		case F64:
			binary.LittleEndian.PutUint64(dst[8*i:], math.Float64bits(v))
		}
	}
}

// convertBytes converts a raw element buffer between two element types.
// Identical types are a plain copy; complex types only copy, never convert.
func convertBytes(src []byte, srcType ElemType, dst []byte, dstType ElemType) error {
	if srcType == dstType {
		copy(dst, src)
		return nil
	}
	if srcType.IsComplex() || dstType.IsComplex() {
		return wrapf(ErrTypeMismatch, "cannot convert %s to %s", srcType, dstType)
	}
	n := len(src) / srcType.Size()
	tmp := make([]float64, n)
	decodeFloat64(src, srcType, tmp)
	encodeFloat64(tmp, dstType, dst)
	return nil
}

// decodeSlice decodes little-endian bytes of the matching element type into
// a typed slice.
func decodeSlice[T tile.Pixel](src []byte, dst []T) {
	switch d := any(dst).(type) {
	case []uint8:
		copy(d, src)
	case []int16:
		for i := range d {
			d[i] = int16(binary.LittleEndian.Uint16(src[2*i:]))
		}
	case []uint16:
		for i := range d {
			d[i] = binary.LittleEndian.Uint16(src[2*i:])
		}
	case []int32:
		for i := range d {
			d[i] = int32(binary.LittleEndian.Uint32(src[4*i:]))
		}
	case []uint32:
		for i := range d {
			d[i] = binary.LittleEndian.Uint32(src[4*i:])
		}
	case []float32:
		for i := range d {
			d[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
		}
	case []float64:
		for i := range d {
			d[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[8*i:]))
		}
	}
}

// encodeSlice encodes a typed slice as little-endian bytes.
func encodeSlice[T tile.Pixel](src []T, dst []byte) {
	switch s := any(src).(type) {
	case []uint8:
		copy(dst, s)
	case []int16:
		for i, v := range s {
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(v))
		}
	case []uint16:
		for i, v := range s {
			binary.LittleEndian.PutUint16(dst[2*i:], v)
		}
	case []int32:
		for i, v := range s {
			binary.LittleEndian.PutUint32(dst[4*i:], uint32(v))
		}
	case []uint32:
		for i, v := range s {
			binary.LittleEndian.PutUint32(dst[4*i:], v)
		}
	case []float32:
		for i, v := range s {
			binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
		}
	case []float64:
		for i, v := range s {
			binary.LittleEndian.PutUint64(dst[8*i:], math.Float64bits(v))
		}
	}
}
