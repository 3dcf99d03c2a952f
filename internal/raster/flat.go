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
)

// flatFile implements windowed access to an uncompressed raster stored as a
// flat little-endian array at a fixed offset in a file. Both the ENVI driver
// and the native TIFF driver reduce to this layout.
type flatFile struct {
	f          *os.File
	info       Info
	interleave Interleave
	base       int64 // byte offset of the first sample
	writable   bool
	addr       func(b, y, x int) (off int64, stride int) // overrides the interleave layout (TIFF strips)
}

func (d *flatFile) Info() Info { return d.info }

func (d *flatFile) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	if err != nil {
		return wrapf(ErrIoFailed, "close: %s", err.Error())
	}
	return nil
}

// rowOffset returns the byte offset of sample (b, y, x) and the stride in
// bytes between consecutive samples of the same band along x.
func (d *flatFile) rowOffset(b, y, x int) (off int64, stride int) {
	if d.addr != nil {
		return d.addr(b, y, x)
	}
	size := d.info.Type.Size()
	S, L, B := int64(d.info.Samples), int64(d.info.Lines), int64(d.info.Bands)
	switch d.interleave {
	case BIL:
		off = ((int64(y)*B+int64(b))*S + int64(x)) * int64(size)
		stride = size
	case BIP:
		off = ((int64(y)*S+int64(x))*B + int64(b)) * int64(size)
		stride = size * int(B)
	default: // BSQ
		off = ((int64(b)*L+int64(y))*S + int64(x)) * int64(size)
		stride = size
	}
	return d.base + off, stride
}

func (d *flatFile) checkWindow(bands []int, xOff, yOff, xSize, ySize int) error {
	if xOff < 0 || yOff < 0 || xSize <= 0 || ySize <= 0 ||
		xOff+xSize > d.info.Samples || yOff+ySize > d.info.Lines {
		return wrapf(ErrInvalidArgument, "window %d,%d %dx%d outside %dx%d raster",
			xOff, yOff, xSize, ySize, d.info.Samples, d.info.Lines)
	}
	for _, b := range bands {
		if b < 0 || b >= d.info.Bands {
			return wrapf(ErrInvalidArgument, "band %d outside [0,%d)", b, d.info.Bands)
		}
	}
	return nil
}

func (d *flatFile) Read(bands []int, xOff, yOff, xSize, ySize int, dst []byte, dstType ElemType) error {
	if d.f == nil {
		return wrapf(ErrInvalidArgument, "read on closed dataset")
	}
	if err := d.checkWindow(bands, xOff, yOff, xSize, ySize); err != nil {
		return err
	}
	size := d.info.Type.Size()
	if want := len(bands) * xSize * ySize * dstType.Size(); len(dst) < want {
		return wrapf(ErrTypeMismatch, "buffer %d bytes, window needs %d", len(dst), want)
	}
	rowNative := make([]byte, xSize*size)
	native := dstType == d.info.Type
	var scratch []byte
	if !native {
		scratch = make([]byte, xSize*dstType.Size())
	}
	di := 0
	for _, b := range bands {
		for y := yOff; y < yOff+ySize; y++ {
			off, stride := d.rowOffset(b, y, xOff)
			if stride == size { // contiguous run
				if _, err := d.f.ReadAt(rowNative, off); err != nil {
					return wrapf(ErrIoFailed, "read band %d line %d: %s", b, y, err.Error())
				}
			} else { // BIP: read the pixel-interleaved run, then gather
				run := make([]byte, (xSize-1)*stride+size)
				if _, err := d.f.ReadAt(run, off); err != nil {
					return wrapf(ErrIoFailed, "read band %d line %d: %s", b, y, err.Error())
				}
				for i := 0; i < xSize; i++ {
					copy(rowNative[i*size:(i+1)*size], run[i*stride:])
				}
			}
			if native {
				copy(dst[di:], rowNative)
				di += len(rowNative)
			} else {
				if err := convertBytes(rowNative, d.info.Type, scratch, dstType); err != nil {
					return err
				}
				copy(dst[di:], scratch)
				di += len(scratch)
			}
		}
	}
	return nil
}

func (d *flatFile) Write(bands []int, xOff, yOff, xSize, ySize int, src []byte, srcType ElemType) error {
	if d.f == nil {
		return wrapf(ErrInvalidArgument, "write on closed dataset")
	}
	if !d.writable {
		return wrapf(ErrInvalidArgument, "dataset opened read-only")
	}
	if err := d.checkWindow(bands, xOff, yOff, xSize, ySize); err != nil {
		return err
	}
	size := d.info.Type.Size()
	if want := len(bands) * xSize * ySize * srcType.Size(); len(src) < want {
		return wrapf(ErrTypeMismatch, "buffer %d bytes, window needs %d", len(src), want)
	}
	rowNative := make([]byte, xSize*size)
	native := srcType == d.info.Type
	si := 0
	for _, b := range bands {
		for y := yOff; y < yOff+ySize; y++ {
			rowSrc := src[si : si+xSize*srcType.Size()]
			si += xSize * srcType.Size()
			if native {
				copy(rowNative, rowSrc)
			} else if err := convertBytes(rowSrc, srcType, rowNative, d.info.Type); err != nil {
				return err
			}
			off, stride := d.rowOffset(b, y, xOff)
			if stride == size {
				if _, err := d.f.WriteAt(rowNative, off); err != nil {
					return wrapf(ErrIoFailed, "write band %d line %d: %s", b, y, err.Error())
				}
			} else { // BIP: read-modify-write the interleaved run
				run := make([]byte, (xSize-1)*stride+size)
				if _, err := d.f.ReadAt(run, off); err != nil {
					return wrapf(ErrIoFailed, "write band %d line %d: %s", b, y, err.Error())
				}
				for i := 0; i < xSize; i++ {
					copy(run[i*stride:i*stride+size], rowNative[i*size:])
				}
				if _, err := d.f.WriteAt(run, off); err != nil {
					return wrapf(ErrIoFailed, "write band %d line %d: %s", b, y, err.Error())
				}
			}
		}
	}
	return nil
}
