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

// hsp is the batch driver of the radiometric-correction pipeline: it takes
// raw Level-0 telemetry or decoded rasters plus calibration coefficients,
// and writes corrected rasters.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"

	"github.com/hspdev/hsp/internal/ahsi"
	"github.com/hspdev/hsp/internal/config"
	"github.com/hspdev/hsp/internal/ops"
	"github.com/hspdev/hsp/internal/order"
	"github.com/hspdev/hsp/internal/pipeline"
	"github.com/hspdev/hsp/internal/raster"
	"github.com/hspdev/hsp/internal/rest"
)

const version = "0.3.1"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var configFile = flag.String("config", "", "read processing order from JSON `file` (comments and trailing commas permitted)")
var paramsFile = flag.String("params", "", "read pipeline parameters from YAML `file`")
var outputDir = flag.String("output-dir", ".", "write corrected products into `dir`")

var gain = flag.String("gain", "", "relative-correction gain coefficients from `path`")
var offset = flag.String("offset", "", "relative-correction offset coefficients from `path`")
var dark = flag.String("dark", "", "dark background coefficients from `path`")
var darkB = flag.String("dark-b", "", "index-coupled dark offset coefficients from `path`")
var etalonA = flag.String("etalon-a", "", "etalon gain coefficients from `path`")
var etalonB = flag.String("etalon-b", "", "etalon offset coefficients from `path`")
var dp = flag.String("dp", "", "defective pixel list from `path`")

var serveAddr = flag.String("serve", "", "serve the order API on `addr` instead of processing, e.g. :8080")
var chroot = flag.String("chroot", "", "serve mode: chroot into `dir` (requires root)")
var setuid = flag.Int("setuid", -1, "serve mode: drop privileges to `uid`")

var showVersion = flag.Bool("version", false, "show version information")

func main() {
	logWriter := os.Stdout
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `hsp radiometric correction pipeline
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (input0 ... inputn)

Inputs are raw AHSI Level-0 files or decoded rasters; raw files are
detected by their frame synchronisation marker. Alternatively, pass a
processing order with -config.

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Fprintf(logWriter, "hsp version %s\n", version)
		return
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer pprof.StopCPUProfile()
	}

	cfg := config.Default()
	if *paramsFile != "" {
		var err error
		if cfg, err = config.Load(*paramsFile); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
			os.Exit(-1)
		}
	}

	if *serveAddr != "" {
		rest.MakeSandbox(*chroot, *setuid)
		if err := rest.Serve(cfg, *serveAddr); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
			os.Exit(-1)
		}
		return
	}

	o, err := assembleOrder(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(-1)
	}

	c := ops.NewContext(logWriter)
	results, err := pipeline.Run(o, cfg, c)
	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	fmt.Fprintf(logWriter, "%d/%d inputs succeeded\n", succeeded, len(results))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(-1)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
	}
}

// assembleOrder builds the processing order from -config or from the
// positional inputs plus the coefficient flags.
func assembleOrder(args []string) (*order.Order, error) {
	if *configFile != "" {
		return order.Load(*configFile)
	}
	if len(args) == 0 {
		flag.Usage()
		return nil, fmt.Errorf("no inputs given")
	}
	o := &order.Order{
		Coeff: order.Coeff{
			DarkA:    *dark,
			DarkB:    *darkB,
			RelA:     *gain,
			RelB:     *offset,
			EtalonA:  *etalonA,
			EtalonB:  *etalonB,
			Badpixel: *dp,
		},
	}
	for _, in := range args {
		o.Inputs = append(o.Inputs, order.Input{Filename: in, Raw: isRawFile(in)})
		base := filepath.Base(in)
		base = strings.TrimSuffix(base, filepath.Ext(base)) + "_rad.tif"
		o.Outputs = append(o.Outputs, filepath.Join(*outputDir, base))
	}
	return o, nil
}

// isRawFile sniffs the first few KiB for the AHSI frame marker; decoded
// rasters carry a sidecar header or a format magic instead.
func isRawFile(filename string) bool {
	if raster.HasHeader(filename) {
		return false
	}
	f, err := os.Open(filename)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 5*1024)
	n, _ := f.Read(buf)
	return bytes.Contains(buf[:n], ahsi.LeadingBytes())
}
