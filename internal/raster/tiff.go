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
	"os"
)

// Native TIFF driver for the narrow profile scientific rasters use:
// little-endian, uncompressed, planar (band-sequential) sample layout.
// Anything outside the profile is left to the x/image/tiff fallback in the
// coefficient loader.

const (
	tagImageWidth    = 256
	tagImageLength   = 257
	tagBitsPerSample = 258
	tagCompression   = 259
	tagPhotometric   = 262
	tagStripOffsets  = 273
	tagSamplesPerPix = 277
	tagRowsPerStrip  = 278
	tagStripCounts   = 279
	tagPlanarConfig  = 284
	tagSampleFormat  = 339

	fmtUint  = 1
	fmtInt   = 2
	fmtFloat = 3
)

func tiffElemType(bits, format int) (ElemType, bool) {
	switch {
	case bits == 8 && format == fmtUint:
		return U8, true
	case bits == 16 && format == fmtUint:
		return U16, true
	case bits == 16 && format == fmtInt:
		return I16, true
	case bits == 32 && format == fmtUint:
		return U32, true
	case bits == 32 && format == fmtInt:
		return I32, true
	case bits == 32 && format == fmtFloat:
		return F32, true
	case bits == 64 && format == fmtFloat:
		return F64, true
	}
	return 0, false
}

func tiffFormatOf(t ElemType) (bits, format int) {
	switch t {
	case U8:
		return 8, fmtUint
	case I16:
		return 16, fmtInt
	case U16:
		return 16, fmtUint
	case I32:
		return 32, fmtInt
	case U32:
		return 32, fmtUint
	case F32:
		return 32, fmtFloat
	default:
		return 64, fmtFloat
	}
}

type ifdEntry struct {
	tag    uint16
	typ    uint16 // 3=SHORT, 4=LONG
	count  uint32
	values []uint32
}

// readIFD parses the first IFD of a little-endian TIFF.
func readIFD(f *os.File) (map[uint16]ifdEntry, error) {
	hdr := make([]byte, 8)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		return nil, wrapf(ErrIoFailed, "tiff header: %s", err.Error())
	}
	if hdr[0] != 'I' || hdr[1] != 'I' || binary.LittleEndian.Uint16(hdr[2:]) != 42 {
		return nil, wrapf(ErrParseFailed, "not a little-endian tiff")
	}
	ifdOff := int64(binary.LittleEndian.Uint32(hdr[4:]))
	cntBuf := make([]byte, 2)
	if _, err := f.ReadAt(cntBuf, ifdOff); err != nil {
		return nil, wrapf(ErrIoFailed, "tiff ifd: %s", err.Error())
	}
	n := int(binary.LittleEndian.Uint16(cntBuf))
	raw := make([]byte, n*12)
	if _, err := f.ReadAt(raw, ifdOff+2); err != nil {
		return nil, wrapf(ErrIoFailed, "tiff ifd: %s", err.Error())
	}

	entries := map[uint16]ifdEntry{}
	for i := 0; i < n; i++ {
		e := raw[i*12 : (i+1)*12]
		ent := ifdEntry{
			tag:   binary.LittleEndian.Uint16(e[0:]),
			typ:   binary.LittleEndian.Uint16(e[2:]),
			count: binary.LittleEndian.Uint32(e[4:]),
		}
		var elemSize int
		switch ent.typ {
		case 3:
			elemSize = 2
		case 4:
			elemSize = 4
		default:
			continue // types we never emit; skip
		}
		vals := make([]uint32, ent.count)
		total := int(ent.count) * elemSize
		var src []byte
		if total <= 4 {
			src = e[8:12]
		} else {
			src = make([]byte, total)
			off := int64(binary.LittleEndian.Uint32(e[8:]))
			if _, err := f.ReadAt(src, off); err != nil {
				return nil, wrapf(ErrIoFailed, "tiff tag %d values: %s", ent.tag, err.Error())
			}
		}
		for j := range vals {
			if ent.typ == 3 {
				vals[j] = uint32(binary.LittleEndian.Uint16(src[j*2:]))
			} else {
				vals[j] = binary.LittleEndian.Uint32(src[j*4:])
			}
		}
		ent.values = vals
		entries[ent.tag] = ent
	}
	return entries, nil
}

func ifdScalar(entries map[uint16]ifdEntry, tag uint16, def uint32) uint32 {
	if e, ok := entries[tag]; ok && len(e.values) > 0 {
		return e.values[0]
	}
	return def
}

// OpenTIFF opens an uncompressed planar little-endian TIFF for windowed access.
func OpenTIFF(filename string, update bool) (Dataset, error) {
	flags := os.O_RDONLY
	if update {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(filename, flags, 0)
	if err != nil {
		return nil, wrapf(ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	entries, err := readIFD(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if c := ifdScalar(entries, tagCompression, 1); c != 1 {
		f.Close()
		return nil, wrapf(ErrParseFailed, "%s: compressed tiff (mode %d) unsupported", filename, c)
	}
	width := int(ifdScalar(entries, tagImageWidth, 0))
	length := int(ifdScalar(entries, tagImageLength, 0))
	spp := int(ifdScalar(entries, tagSamplesPerPix, 1))
	planar := int(ifdScalar(entries, tagPlanarConfig, 1))
	bits := int(ifdScalar(entries, tagBitsPerSample, 1))
	format := int(ifdScalar(entries, tagSampleFormat, fmtUint))
	rps := int(ifdScalar(entries, tagRowsPerStrip, uint32(length)))
	if width <= 0 || length <= 0 {
		f.Close()
		return nil, wrapf(ErrParseFailed, "%s: missing image dimensions", filename)
	}
	if planar != 2 && spp != 1 {
		f.Close()
		return nil, wrapf(ErrParseFailed, "%s: chunky multi-sample tiff unsupported", filename)
	}
	et, ok := tiffElemType(bits, format)
	if !ok {
		f.Close()
		return nil, wrapf(ErrParseFailed, "%s: unsupported sample type %d/%d", filename, bits, format)
	}
	offsets, ok := entries[tagStripOffsets]
	if !ok {
		f.Close()
		return nil, wrapf(ErrParseFailed, "%s: missing strip offsets", filename)
	}

	info := Info{Samples: width, Lines: length, Bands: spp, Type: et}
	stripsPerPlane := (length + rps - 1) / rps
	size := et.Size()
	strips := offsets.values
	addr := func(b, y, x int) (int64, int) {
		strip := b*stripsPerPlane + y/rps
		off := int64(strips[strip]) + int64((y%rps)*width+x)*int64(size)
		return off, size
	}
	return &flatFile{f: f, info: info, writable: update, addr: addr}, nil
}

// CreateTIFF creates an uncompressed planar TIFF with one strip per band.
func CreateTIFF(filename string, info Info) (Dataset, error) {
	if info.Samples <= 0 || info.Lines <= 0 || info.Bands <= 0 || info.Type.IsComplex() {
		return nil, wrapf(ErrInvalidArgument, "create %s: bad shape %+v", filename, info)
	}
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, wrapf(ErrOpenFailed, "%s: %s", filename, err.Error())
	}

	bits, format := tiffFormatOf(info.Type)
	size := info.Type.Size()
	B := info.Bands
	planeBytes := int64(info.Samples) * int64(info.Lines) * int64(size)

	type entrySpec struct {
		tag    uint16
		typ    uint16
		values []uint32
	}
	short := func(tag uint16, vs ...uint32) entrySpec { return entrySpec{tag, 3, vs} }
	long := func(tag uint16, vs ...uint32) entrySpec { return entrySpec{tag, 4, vs} }

	bitsVals := make([]uint32, B)
	fmtVals := make([]uint32, B)
	for i := 0; i < B; i++ {
		bitsVals[i], fmtVals[i] = uint32(bits), uint32(format)
	}
	stripOffsets := make([]uint32, B) // patched below once the layout is known
	stripCounts := make([]uint32, B)
	for i := 0; i < B; i++ {
		stripCounts[i] = uint32(planeBytes)
	}

	specs := []entrySpec{
		long(tagImageWidth, uint32(info.Samples)),
		long(tagImageLength, uint32(info.Lines)),
		short(tagBitsPerSample, bitsVals...),
		short(tagCompression, 1),
		short(tagPhotometric, 1),
		long(tagStripOffsets, stripOffsets...),
		short(tagSamplesPerPix, uint32(B)),
		long(tagRowsPerStrip, uint32(info.Lines)),
		long(tagStripCounts, stripCounts...),
		short(tagPlanarConfig, 2),
		short(tagSampleFormat, fmtVals...),
	}

	// layout: 8-byte header, IFD, out-of-line value arrays, sample data
	ifdOff := int64(8)
	ifdBytes := int64(2 + len(specs)*12 + 4)
	auxOff := ifdOff + ifdBytes
	aux := []byte{}
	for _, s := range specs {
		elemSize := 2
		if s.typ == 4 {
			elemSize = 4
		}
		total := len(s.values) * elemSize
		if total <= 4 {
			continue
		}
		aux = append(aux, make([]byte, total)...)
	}
	dataOff := auxOff + int64(len(aux))
	if rem := dataOff % int64(size); rem != 0 { // keep samples aligned
		pad := int64(size) - rem
		aux = append(aux, make([]byte, pad)...)
		dataOff += pad
	}
	for i := 0; i < B; i++ {
		stripOffsets[i] = uint32(dataOff + int64(i)*planeBytes)
	}

	// serialize
	buf := make([]byte, dataOff)
	buf[0], buf[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(buf[2:], 42)
	binary.LittleEndian.PutUint32(buf[4:], uint32(ifdOff))
	binary.LittleEndian.PutUint16(buf[8:], uint16(len(specs)))
	auxCursor := auxOff
	for i, s := range specs {
		e := buf[10+i*12:]
		binary.LittleEndian.PutUint16(e[0:], s.tag)
		binary.LittleEndian.PutUint16(e[2:], s.typ)
		binary.LittleEndian.PutUint32(e[4:], uint32(len(s.values)))
		elemSize := 2
		if s.typ == 4 {
			elemSize = 4
		}
		total := len(s.values) * elemSize
		var dst []byte
		if total <= 4 {
			dst = e[8:12]
		} else {
			binary.LittleEndian.PutUint32(e[8:], uint32(auxCursor))
			dst = buf[auxCursor : auxCursor+int64(total)]
			auxCursor += int64(total)
		}
		for j, v := range s.values {
			if s.typ == 3 {
				binary.LittleEndian.PutUint16(dst[j*2:], uint16(v))
			} else {
				binary.LittleEndian.PutUint32(dst[j*4:], v)
			}
		}
	}
	// next-IFD pointer stays zero
	if _, err := f.WriteAt(buf, 0); err != nil {
		f.Close()
		return nil, wrapf(ErrIoFailed, "%s: %s", filename, err.Error())
	}
	if err := f.Truncate(dataOff + planeBytes*int64(B)); err != nil {
		f.Close()
		return nil, wrapf(ErrIoFailed, "%s: %s", filename, err.Error())
	}

	addr := func(b, y, x int) (int64, int) {
		return dataOff + int64(b)*planeBytes + int64(y*info.Samples+x)*int64(size), size
	}
	return &flatFile{f: f, info: info, writable: true, addr: addr}, nil
}
