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

// Package ahsi decodes GF5-01A AHSI Level-0 telemetry: framed packets with
// synchronisation bytes, per-frame sequence numbers and per-band
// sub-headers, exposed as a forward frame iterator.
package ahsi

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/tile"
)

// SensorType identifies the AHSI focal plane a Level-0 file comes from.
type SensorType int

const (
	SWIR SensorType = 1 // shortwave infrared, 180 bands
	VNIR SensorType = 2 // visible / near infrared, 150 bands
)

func (t SensorType) String() string {
	if t == VNIR {
		return "VNIR"
	}
	return "SWIR"
}

// Compress is the on-board compression mode tag. Lossless and Direct share
// the straight-copy decode path; no decoder exists for the lossy modes.
type Compress int

const (
	Lossless Compress = 0
	Lossy8   Compress = 1
	Lossy4   Compress = 2
	Direct   Compress = 3
)

// leadingBytes is the frame synchronisation marker.
var leadingBytes = []byte{0x09, 0x15, 0xC0, 0x00}

// LeadingBytes returns the frame synchronisation marker, for callers that
// sniff files before deciding on the decode path.
func LeadingBytes() []byte { return leadingBytes }

const (
	probeSize     = 5 * 1024 // first-frame scan window
	frameHeadSize = 8        // opaque pre-header before each frame's marker
	subHeadSize   = 12       // per-band sub-header
	seqNumOffset  = 9        // 24-bit big-endian sequence number in the payload
)

// Frame is one decoded cross-track line: a bands x samples tile of raw DN
// values plus the frame sequence number from the telemetry header.
// The tile aliases a buffer reused by the next GetFrame call.
type Frame struct {
	Data  *tile.Tile[uint16]
	Index uint32
}

// Data is an opened Level-0 file. Traverse must run once before frames or
// dimensions are read; the frame iterator does this implicitly.
type Data struct {
	Filename string

	f         *os.File
	traversed bool
	samples   int
	lines     int
	bands     int
	sensor    SensorType
	compress  Compress
	img       *tile.Tile[uint16] // reusable frame buffer
	raw       []byte             // reusable payload buffer
}

// Open opens a Level-0 file. The file is not parsed until Traverse.
func Open(filename string) (*Data, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithMessagef(raster.ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	return &Data{Filename: filename, f: f}, nil
}

func (d *Data) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

func (d *Data) Samples() int           { return d.samples }
func (d *Data) Lines() int             { return d.lines }
func (d *Data) Bands() int             { return d.bands }
func (d *Data) Sensor() SensorType     { return d.sensor }
func (d *Data) CompressMode() Compress { return d.compress }

// bandStride is the per-band byte stride inside a frame payload.
func (d *Data) bandStride() int { return subHeadSize + 2*d.samples }

// frameSize is the payload size of one frame.
func (d *Data) frameSize() int { return d.bands * d.bandStride() }

// Traverse scans the first frame header for the sensor and compression
// tags and the sample count, then walks the file counting frames until the
// synchronisation test fails. Idempotent.
func (d *Data) Traverse() error {
	if d.traversed {
		return nil
	}
	buf := make([]byte, probeSize)
	n, err := d.f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return errors.WithMessagef(raster.ErrIoFailed, "%s: %s", d.Filename, err.Error())
	}
	buf = buf[:n]

	head := bytes.Index(buf, leadingBytes)
	if head < 0 || head+8 > len(buf) {
		return errors.WithMessagef(raster.ErrMalformedFrame, "%s: unable to find leading bytes", d.Filename)
	}
	d.samples = int(binary.BigEndian.Uint16(buf[head+4 : head+6]))
	if buf[head+6]&0x0F != 0x07 {
		return errors.WithMessagef(raster.ErrMalformedFrame, "%s: frame is not a data frame", d.Filename)
	}
	d.sensor = SensorType(buf[head+6] >> 4)
	d.compress = Compress(buf[head+7] & 0x03)
	// band count depends on the sensor only, regardless of compress mode
	if d.sensor == SWIR {
		d.bands = 180
	} else {
		d.bands = 150
	}

	// count frames: the marker must reappear right after each 8-byte
	// pre-header, one frame stride apart
	stride := int64(frameHeadSize + d.frameSize())
	probe := make([]byte, 100)
	d.lines = 0
	for off := int64(0); ; off += stride {
		if _, err := d.f.ReadAt(probe, off); err != nil {
			break
		}
		if !bytes.Equal(probe[frameHeadSize:frameHeadSize+4], leadingBytes) {
			break
		}
		d.lines++
	}

	d.img = tile.New[uint16](d.bands, d.samples)
	d.raw = make([]byte, d.frameSize())
	d.traversed = true
	return nil
}

// GetFrame reads frame i. The returned tile reuses an internal buffer that
// the next GetFrame overwrites; clone it to retain.
func (d *Data) GetFrame(i int) (Frame, error) {
	if !d.traversed {
		return Frame{}, errors.WithMessagef(raster.ErrNotTraversed, "%s: GetFrame before Traverse", d.Filename)
	}
	if i < 0 || i >= d.lines {
		return Frame{}, errors.WithMessagef(raster.ErrOutOfRange, "%s: frame %d of %d", d.Filename, i, d.lines)
	}

	stride := d.bandStride()
	off := int64(frameHeadSize) + int64(i)*int64(frameHeadSize+d.frameSize())
	if _, err := d.f.ReadAt(d.raw, off); err != nil {
		return Frame{}, errors.WithMessagef(raster.ErrIoFailed, "%s: frame %d: %s", d.Filename, i, err.Error())
	}

	index := uint32(d.raw[seqNumOffset])<<16 | uint32(d.raw[seqNumOffset+1])<<8 | uint32(d.raw[seqNumOffset+2])

	for b := 0; b < d.bands; b++ {
		src := d.raw[b*stride+subHeadSize : b*stride+subHeadSize+2*d.samples]
		row := d.img.Row(b)
		for x := 0; x < d.samples; x++ {
			row[x] = binary.LittleEndian.Uint16(src[2*x:])
		}
	}
	return Frame{Data: d.img, Index: index}, nil
}

// FrameIterator walks the frames of a Level-0 file, half-open [0, Lines).
type FrameIterator struct {
	data *Data
	cur  int
}

// NewFrameIterator constructs an iterator at frame start, traversing the
// file first if needed.
func NewFrameIterator(data *Data, start int) (*FrameIterator, error) {
	if err := data.Traverse(); err != nil {
		return nil, err
	}
	return &FrameIterator{data: data, cur: start}, nil
}

func (it *FrameIterator) Pos() int   { return it.cur }
func (it *FrameIterator) Done() bool { return it.cur >= it.data.lines }

// Value decodes and returns the frame at the current position.
func (it *FrameIterator) Value() (Frame, error) { return it.data.GetFrame(it.cur) }

// At returns the frame at position cur+k without moving the iterator.
func (it *FrameIterator) At(k int) (Frame, error) { return it.data.GetFrame(it.cur + k) }

// Next advances to the next frame.
func (it *FrameIterator) Next() { it.cur++ }
