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
	"path"
	"strings"
	"sync"
)

// driver bundles the open/create entry points of one raster format.
type driver struct {
	name   string
	open   func(filename string, update bool) (Dataset, error)
	create func(filename string, info Info) (Dataset, error)
}

var (
	registerOnce sync.Once
	formats      map[string]*driver // keyed by lower-case extension
)

// Register performs the one-time driver registration. Called implicitly by
// Open and Create; safe to call from multiple goroutines.
func Register() {
	registerOnce.Do(func() {
		envi := &driver{
			name: "ENVI",
			open: OpenENVI,
			create: func(filename string, info Info) (Dataset, error) {
				return CreateENVI(filename, info, BIL)
			},
		}
		tiff := &driver{name: "GTiff", open: OpenTIFF, create: CreateTIFF}
		formats = map[string]*driver{
			".dat":  envi,
			".raw":  envi,
			".img":  envi,
			".tif":  tiff,
			".tiff": tiff,
			".bmp":  {name: "BMP", create: createBMPPreview},
			".jpg":  {name: "JPEG", create: createJPEGPreview},
			".jpeg": {name: "JPEG", create: createJPEGPreview},
		}
	})
}

func driverFor(filename string) (*driver, error) {
	Register()
	ext := strings.ToLower(path.Ext(filename))
	d, ok := formats[ext]
	if !ok {
		return nil, wrapf(ErrFormatUnknown, "no driver for extension %q", ext)
	}
	return d, nil
}

// Open opens an existing raster, detecting the format from the sidecar
// header, the file magic, or the extension.
func Open(filename string, update bool) (Dataset, error) {
	Register()
	if _, err := os.Stat(filename); err != nil {
		return nil, wrapf(ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	if HasHeader(filename) {
		return OpenENVI(filename, update)
	}
	if magic := sniff(filename); magic == "II" {
		return OpenTIFF(filename, update)
	}
	d, err := driverFor(filename)
	if err != nil {
		return nil, err
	}
	if d.open == nil {
		return nil, wrapf(ErrFormatUnknown, "%s driver cannot open %s", d.name, filename)
	}
	return d.open(filename, update)
}

// Create creates a raster of the given shape; format from the extension.
func Create(filename string, info Info) (Dataset, error) {
	d, err := driverFor(filename)
	if err != nil {
		return nil, err
	}
	if d.create == nil {
		return nil, wrapf(ErrFormatUnknown, "%s driver cannot create %s", d.name, filename)
	}
	return d.create(filename, info)
}

func sniff(filename string) string {
	f, err := os.Open(filename)
	if err != nil {
		return ""
	}
	defer f.Close()
	magic := make([]byte, 2)
	if _, err := f.Read(magic); err != nil {
		return ""
	}
	return string(magic)
}
