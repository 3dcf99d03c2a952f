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
	"bufio"
	"image"
	"image/jpeg"
	"os"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/bmp"
)

// Preview formats (.bmp, .jpg) are 8-bit write-once rasters: windows are
// buffered in memory and encoded when the dataset is closed. Bands must be
// 1 (grayscale) or 3 (RGB).

type memDataset struct {
	info     Info
	filename string
	data     []byte // band-sequential u8
	encode   func(f *os.File, img image.Image) error
	closed   bool
}

func newMemDataset(filename string, info Info, encode func(*os.File, image.Image) error) (Dataset, error) {
	if info.Bands != 1 && info.Bands != 3 {
		return nil, wrapf(ErrInvalidArgument, "preview %s: %d bands, want 1 or 3", filename, info.Bands)
	}
	info.Type = U8
	return &memDataset{
		info:     info,
		filename: filename,
		data:     make([]byte, info.Samples*info.Lines*info.Bands),
		encode:   encode,
	}, nil
}

func createBMPPreview(filename string, info Info) (Dataset, error) {
	return newMemDataset(filename, info, func(f *os.File, img image.Image) error {
		return bmp.Encode(f, img)
	})
}

func createJPEGPreview(filename string, info Info) (Dataset, error) {
	return newMemDataset(filename, info, func(f *os.File, img image.Image) error {
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	})
}

func (d *memDataset) Info() Info { return d.info }

func (d *memDataset) plane(b int) []byte {
	n := d.info.Samples * d.info.Lines
	return d.data[b*n : (b+1)*n]
}

func (d *memDataset) Read(bands []int, xOff, yOff, xSize, ySize int, dst []byte, dstType ElemType) error {
	di := 0
	row := make([]byte, xSize)
	out := make([]byte, xSize*dstType.Size())
	for _, b := range bands {
		if b < 0 || b >= d.info.Bands {
			return wrapf(ErrInvalidArgument, "band %d outside [0,%d)", b, d.info.Bands)
		}
		p := d.plane(b)
		for y := yOff; y < yOff+ySize; y++ {
			copy(row, p[y*d.info.Samples+xOff:])
			if err := convertBytes(row, U8, out, dstType); err != nil {
				return err
			}
			copy(dst[di:], out)
			di += len(out)
		}
	}
	return nil
}

func (d *memDataset) Write(bands []int, xOff, yOff, xSize, ySize int, src []byte, srcType ElemType) error {
	si := 0
	row := make([]byte, xSize)
	for _, b := range bands {
		if b < 0 || b >= d.info.Bands {
			return wrapf(ErrInvalidArgument, "band %d outside [0,%d)", b, d.info.Bands)
		}
		p := d.plane(b)
		for y := yOff; y < yOff+ySize; y++ {
			in := src[si : si+xSize*srcType.Size()]
			si += xSize * srcType.Size()
			if err := convertBytes(in, srcType, row, U8); err != nil {
				return err
			}
			copy(p[y*d.info.Samples+xOff:], row)
		}
	}
	return nil
}

func (d *memDataset) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var img image.Image
	w, h := d.info.Samples, d.info.Lines
	if d.info.Bands == 1 {
		g := image.NewGray(image.Rect(0, 0, w, h))
		copy(g.Pix, d.plane(0))
		img = g
	} else {
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		r, g, b := d.plane(0), d.plane(1), d.plane(2)
		for i := 0; i < w*h; i++ {
			rgba.Pix[4*i+0] = r[i]
			rgba.Pix[4*i+1] = g[i]
			rgba.Pix[4*i+2] = b[i]
			rgba.Pix[4*i+3] = 255
		}
		img = rgba
	}
	f, err := os.Create(d.filename)
	if err != nil {
		return wrapf(ErrOpenFailed, "%s: %s", d.filename, err.Error())
	}
	defer f.Close()
	if err := d.encode(f, img); err != nil {
		return wrapf(ErrIoFailed, "%s: %s", d.filename, err.Error())
	}
	return nil
}

// quicklookLow and quicklookHigh are the ends of the pseudocolor ramp, deep
// blue to warm white, blended in Lab space, which keeps the perceived
// lightness monotone.
var quicklookLow, quicklookHigh = colorful.Color{R: 0.05, G: 0.05, B: 0.25}, colorful.Color{R: 1.0, G: 0.95, B: 0.75}

// WriteQuicklook renders one band of a dataset to an 8-bit preview image,
// grayscale or pseudocolor, normalizing to the band's min/max.
func WriteQuicklook(ds Dataset, band int, filename string, pseudocolor bool) error {
	info := ds.Info()
	vals, err := ReadWindow[float64](ds, []int{band}, 0, 0, info.Samples, info.Lines)
	if err != nil {
		return err
	}
	min, max := vals[0], vals[0]
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	scale := 0.0
	if max > min {
		scale = 1 / (max - min)
	}

	w, h := info.Samples, info.Lines
	var img image.Image
	if pseudocolor {
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		for i, v := range vals {
			c := quicklookLow.BlendLab(quicklookHigh, (v-min)*scale).Clamped()
			r, g, b := c.RGB255()
			rgba.Pix[4*i+0], rgba.Pix[4*i+1], rgba.Pix[4*i+2], rgba.Pix[4*i+3] = r, g, b, 255
		}
		img = rgba
	} else {
		gray := image.NewGray(image.Rect(0, 0, w, h))
		for i, v := range vals {
			gray.Pix[i] = uint8((v-min)*scale*255 + 0.5)
		}
		img = gray
	}

	f, err := os.Create(filename)
	if err != nil {
		return wrapf(ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	defer f.Close()
	wr := bufio.NewWriter(f)
	defer wr.Flush()
	if strings.HasSuffix(strings.ToLower(filename), ".bmp") {
		err = bmp.Encode(wr, img)
	} else {
		err = jpeg.Encode(wr, img, &jpeg.Options{Quality: 95})
	}
	if err != nil {
		return wrapf(ErrIoFailed, "%s: %s", filename, err.Error())
	}
	return nil
}
