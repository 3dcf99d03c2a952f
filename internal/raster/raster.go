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

// Package raster is the multi-band raster I/O adapter. It opens or creates
// datasets with a known sample count, line count, band count and element
// type, and reads or writes rectangular windows of one or more bands,
// converting element types on the fly when requested.
package raster

import (
	"github.com/hspdev/hsp/internal/tile"
)

// ElemType identifies the on-disk element type of a raster cell.
type ElemType int

const (
	U8 ElemType = iota + 1
	I16
	U16
	I32
	U32
	F32
	F64
	CF32
	CF64
)

// Size returns the element size in bytes.
func (t ElemType) Size() int {
	switch t {
	case U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case F64, CF32:
		return 8
	case CF64:
		return 16
	}
	return 0
}

func (t ElemType) String() string {
	switch t {
	case U8:
		return "uint8"
	case I16:
		return "int16"
	case U16:
		return "uint16"
	case I32:
		return "int32"
	case U32:
		return "uint32"
	case F32:
		return "float32"
	case F64:
		return "float64"
	case CF32:
		return "complex64"
	case CF64:
		return "complex128"
	}
	return "unknown"
}

// IsComplex reports whether the type has a complex representation. Complex
// cells pass through untyped copies but do not convert to scalars.
func (t ElemType) IsComplex() bool { return t == CF32 || t == CF64 }

// Interleave is the layout of a multi-band flat raster on disk.
type Interleave int

const (
	BSQ Interleave = iota // band sequential
	BIL                   // band interleaved by line
	BIP                   // band interleaved by pixel
)

func (il Interleave) String() string {
	switch il {
	case BIL:
		return "bil"
	case BIP:
		return "bip"
	}
	return "bsq"
}

// Info describes a dataset layout. Immutable after creation.
type Info struct {
	Samples int
	Lines   int
	Bands   int
	Type    ElemType
}

// Dataset is an open multi-band raster. Window buffers are raw bytes in the
// requested element type, laid out band-sequentially: for each band in the
// band list, ySize rows of xSize samples.
type Dataset interface {
	Info() Info
	// Read fills dst with the window (xOff,yOff,xSize,ySize) of the listed
	// bands (0-based), converting from the native type to dstType if needed.
	Read(bands []int, xOff, yOff, xSize, ySize int, dst []byte, dstType ElemType) error
	// Write stores src, given in srcType, into the window of the listed bands.
	Write(bands []int, xOff, yOff, xSize, ySize int, src []byte, srcType ElemType) error
	Close() error
}

// AllBands returns the 0-based band list [0, n).
func AllBands(n int) []int {
	b := make([]int, n)
	for i := range b {
		b[i] = i
	}
	return b
}

// ElemTypeOf maps a Go pixel type onto its ElemType tag.
func ElemTypeOf[T tile.Pixel]() ElemType {
	var z T
	switch any(z).(type) {
	case uint8:
		return U8
	case int16:
		return I16
	case uint16:
		return U16
	case int32:
		return I32
	case uint32:
		return U32
	case float32:
		return F32
	default:
		return F64
	}
}

// ReadWindow reads a window into a freshly allocated flat slice of T,
// band-sequential as per Dataset.Read.
func ReadWindow[T tile.Pixel](ds Dataset, bands []int, xOff, yOff, xSize, ySize int) ([]T, error) {
	et := ElemTypeOf[T]()
	n := len(bands) * xSize * ySize
	buf := make([]byte, n*et.Size())
	if err := ds.Read(bands, xOff, yOff, xSize, ySize, buf, et); err != nil {
		return nil, err
	}
	out := make([]T, n)
	decodeSlice(buf, out)
	return out, nil
}

// WriteWindow writes a flat band-sequential slice of T through the window.
func WriteWindow[T tile.Pixel](ds Dataset, bands []int, xOff, yOff, xSize, ySize int, data []T) error {
	et := ElemTypeOf[T]()
	n := len(bands) * xSize * ySize
	if len(data) != n {
		return wrapf(ErrTypeMismatch, "window %dx%dx%d needs %d elements, have %d",
			len(bands), ySize, xSize, n, len(data))
	}
	buf := make([]byte, n*et.Size())
	encodeSlice(data, buf)
	return ds.Write(bands, xOff, yOff, xSize, ySize, buf, et)
}
