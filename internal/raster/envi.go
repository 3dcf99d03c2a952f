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
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
)

// ENVI flat-binary driver: a headerless sample array next to a text .hdr
// sidecar. This is the native multi-band format of the pipeline.

// enviTypeCodes maps ENVI "data type" codes onto element types.
var enviTypeCodes = map[int]ElemType{
	1: U8, 2: I16, 3: I32, 4: F32, 5: F64, 6: CF32, 9: CF64, 12: U16, 13: U32,
}

func enviCodeOf(t ElemType) int {
	for code, et := range enviTypeCodes {
		if et == t {
			return code
		}
	}
	return 0
}

// HeaderPath returns the sidecar header path for a data file.
func HeaderPath(datafile string) string {
	ext := path.Ext(datafile)
	return datafile[:len(datafile)-len(ext)] + ".hdr"
}

// HasHeader reports whether an ENVI sidecar exists for the data file.
func HasHeader(datafile string) bool {
	_, err := os.Stat(HeaderPath(datafile))
	return err == nil
}

type enviHeader struct {
	info       Info
	interleave Interleave
	offset     int64
}

func parseENVIHeader(filename string) (h enviHeader, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return h, wrapf(ErrOpenFailed, "header %s: %s", filename, err.Error())
	}
	defer f.Close()

	fields := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:eq]))
		val := strings.TrimSpace(line[eq+1:])
		if strings.HasPrefix(val, "{") { // brace lists may span lines; join them
			for !strings.HasSuffix(val, "}") && sc.Scan() {
				val += " " + strings.TrimSpace(sc.Text())
			}
			val = strings.Trim(val, "{} ")
		}
		fields[key] = val
	}
	if err := sc.Err(); err != nil {
		return h, wrapf(ErrIoFailed, "header %s: %s", filename, err.Error())
	}

	geti := func(key string) (int, error) {
		s, ok := fields[key]
		if !ok {
			return 0, wrapf(ErrParseFailed, "header %s: missing %q", filename, key)
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, wrapf(ErrParseFailed, "header %s: bad %q value %q", filename, key, s)
		}
		return v, nil
	}

	if h.info.Samples, err = geti("samples"); err != nil {
		return h, err
	}
	if h.info.Lines, err = geti("lines"); err != nil {
		return h, err
	}
	if h.info.Bands, err = geti("bands"); err != nil {
		return h, err
	}
	code, err := geti("data type")
	if err != nil {
		return h, err
	}
	et, ok := enviTypeCodes[code]
	if !ok {
		return h, wrapf(ErrParseFailed, "header %s: unsupported data type %d", filename, code)
	}
	h.info.Type = et
	if off, err := geti("header offset"); err == nil {
		h.offset = int64(off)
	}
	if bo, err := geti("byte order"); err == nil && bo != 0 {
		return h, wrapf(ErrParseFailed, "header %s: big-endian rasters unsupported", filename)
	}
	switch strings.ToLower(fields["interleave"]) {
	case "bil":
		h.interleave = BIL
	case "bip":
		h.interleave = BIP
	default:
		h.interleave = BSQ
	}
	return h, nil
}

func writeENVIHeader(filename string, info Info, il Interleave) error {
	f, err := os.Create(filename)
	if err != nil {
		return wrapf(ErrOpenFailed, "header %s: %s", filename, err.Error())
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "ENVI\n"+
		"samples = %d\n"+
		"lines = %d\n"+
		"bands = %d\n"+
		"header offset = 0\n"+
		"file type = ENVI Standard\n"+
		"data type = %d\n"+
		"interleave = %s\n"+
		"byte order = 0\n",
		info.Samples, info.Lines, info.Bands, enviCodeOf(info.Type), il)
	if err != nil {
		return wrapf(ErrIoFailed, "header %s: %s", filename, err.Error())
	}
	return nil
}

// OpenENVI opens an ENVI .dat file through its sidecar header.
func OpenENVI(filename string, update bool) (Dataset, error) {
	h, err := parseENVIHeader(HeaderPath(filename))
	if err != nil {
		return nil, err
	}
	flags := os.O_RDONLY
	if update {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(filename, flags, 0)
	if err != nil {
		return nil, wrapf(ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	return &flatFile{f: f, info: h.info, interleave: h.interleave, base: h.offset, writable: update}, nil
}

// CreateENVI creates a zero-filled ENVI raster and its sidecar header.
func CreateENVI(filename string, info Info, il Interleave) (Dataset, error) {
	if info.Samples <= 0 || info.Lines <= 0 || info.Bands <= 0 || info.Type.Size() == 0 {
		return nil, wrapf(ErrInvalidArgument, "create %s: bad shape %+v", filename, info)
	}
	if err := writeENVIHeader(HeaderPath(filename), info, il); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, wrapf(ErrOpenFailed, "%s: %s", filename, err.Error())
	}
	total := int64(info.Samples) * int64(info.Lines) * int64(info.Bands) * int64(info.Type.Size())
	if err := f.Truncate(total); err != nil {
		f.Close()
		return nil, wrapf(ErrIoFailed, "%s: %s", filename, err.Error())
	}
	return &flatFile{f: f, info: info, interleave: il, writable: true}, nil
}
