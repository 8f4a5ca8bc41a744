// Copyright (C) 2021 the ccd authors
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

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"

	"github.com/eoe-scrad/ccd/internal/ccd"
	"github.com/eoe-scrad/ccd/internal/ops"
	"github.com/eoe-scrad/ccd/internal/ops/denoise"
	"github.com/eoe-scrad/ccd/internal/rest"
)

const version = "0.1.2"

var totalMiBs = memory.TotalMemory()/1024/1024

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "out.png", "save output to `file`, with %d expansion for multiple inputs")
var jpg = flag.String("jpg", "", "additionally save 8bit preview of output as JPEG to `file`")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var threshold = flag.Float64("threshold", float64(ccd.DefaultThreshold), "color distance threshold, >=0, useful range 4-10")
var window    = flag.Int("window", ccd.DefaultWindow, "search window size, odd, >=3")
var windowY   = flag.Int("windowY", 0, "search window size along y, 0=same as -window")
var step      = flag.Int("step", ccd.DefaultStep, "sampling step, must evenly divide window size minus one")
var stepY     = flag.Int("stepY", 0, "sampling step along y, 0=same as -step")
var luma      = flag.Int("luma", 1, "1=keep input luminance and denoise chroma only, 0=denoise all channels")
var matrix    = flag.String("matrix", "", "YUV matrix for luma extraction, one of 709, 170m, 470bg, 240m, 2020ncl, blank=by resolution")
var sat       = flag.Float64("sat", 1.0, "scale output saturation by given factor, 1=no op")

var chroot = flag.String("chroot", "", "serve: change filesystem root to `dir` before serving (requires root)")
var setuid = flag.Int("setuid", -1, "serve: change user id before serving, -1=no op")

func main() {
	start:=time.Now()
	flag.Usage=func() {
		fmt.Fprintf(os.Stdout, `ccd %s - camera chroma denoise

Usage: %s [-flag value] (denoise|serve|version|legal) (img0.png ... imgn.png)

Commands:
  denoise Denoise input images
  serve   Offer processing via restful web interface
  legal   Show license and attribution information
  version Show version information

Flags:
`, version, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Auto-select log output target from the output filename
	if *log=="%auto" {
		if *out!="" {
			*log=strings.TrimSuffix(*out, filepath.Ext(*out))+".log"
		} else {
			*log=""
		}
	}
	logWriter:=io.Writer(os.Stdout)
	var logFile *os.File
	if *log!="" {
		var err error
		logFile, err=os.OpenFile(*log, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err!=nil {
			fmt.Fprintf(os.Stderr, "Unable to open logfile '%s'\n", *log)
			os.Exit(-1)
		}
		defer logFile.Close()
		logWriter=io.MultiWriter(os.Stdout, logFile)
	}

	// Enable CPU profiling if flagged
	if *cpuprofile!="" {
		f, err := os.Create(*cpuprofile)
		if err!=nil {
			fmt.Fprintf(logWriter, "Could not create CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err!=nil {
			fmt.Fprintf(logWriter, "Could not start CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer pprof.StopCPUProfile()
	}

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		return
	}

	switch args[0] {
	case "serve":
		if err:=rest.MakeSandbox(*chroot, *setuid); err!=nil {
			fmt.Fprintf(logWriter, "Error sandboxing: %s\n", err.Error())
			os.Exit(-1)
		}
		fmt.Fprintf(logWriter, "ccd %s on %s with %d MiB RAM, serving\n", version, cpuid.CPU.BrandName, totalMiBs)
		rest.Serve()

	case "denoise":
		if len(args)<2 {
			fmt.Fprintf(logWriter, "No input files given\n")
			os.Exit(-1)
		}
		fmt.Fprintf(logWriter, "ccd %s on %s with %d MiB RAM\n", version, cpuid.CPU.BrandName, totalMiBs)
		if err:=runDenoise(args[1:], logWriter); err!=nil {
			fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
			os.Exit(-1)
		}
		fmt.Fprintf(logWriter, "Done after %v\n", time.Since(start))

	case "legal":
		fmt.Fprintf(logWriter, "%s\n", legal)

	case "version":
		fmt.Fprintf(logWriter, "ccd version %s\n%s %s on %s/%s with %d MiB RAM\n",
			version, cpuid.CPU.BrandName, runtime.Version(), runtime.GOOS, runtime.GOARCH, totalMiBs)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n", args[0])
		flag.Usage()
		os.Exit(-1)
	}

	// Write memory profile if flagged
	if *memprofile!="" {
		f, err := os.Create(*memprofile)
		if err!=nil {
			fmt.Fprintf(logWriter, "Could not create memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err!=nil {
			fmt.Fprintf(logWriter, "Could not write memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
	}
}

// Assembles the denoising pipeline from the parsed flags and runs it over
// all files matching the given patterns
func runDenoise(filePatterns []string, logWriter io.Writer) error {
	wy, sy:=*windowY, *stepY
	if wy==0 { wy=*window }
	if sy==0 { sy=*step }

	opCCD:=denoise.NewOpCCD(float32(*threshold), *window, wy, *step, sy, *luma!=0, *matrix)
	opSat:=denoise.NewOpSaturation(float32(*sat))

	seq:=ops.NewOpSequence(ops.NewOpLoadMany(filePatterns), opCCD)
	if opSat.IsActive() { seq.Append(opSat) }
	seq.Append(ops.NewOpSave(*out))
	if *jpg!="" { seq.Append(ops.NewOpSave(*jpg)) }

	ctx:=ops.NewContext(logWriter)
	promises, err:=seq.MakePromises(nil, ctx)
	if err!=nil { return err }

	_, err=ops.MaterializeAll(promises, ctx.MaxThreads, true)
	return err
}
