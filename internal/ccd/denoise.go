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


// Package ccd implements the camera chroma denoise kernel: every pixel is
// averaged with the spatially nearby pixels whose color lies within a
// squared Euclidean distance threshold.
package ccd

import (
	"fmt"
	"math"
	"runtime"

	"github.com/eoe-scrad/ccd/internal/frame"
)

const (
	DefaultThreshold float32 = 4.0 // user-facing threshold, useful range 4-10
	DefaultWindow    int     = 25  // search window size per axis, radius 12
	DefaultStep      int     = 8   // sampling step within the search window
)

// Scale from the user-facing threshold to normalized color space: samples are
// in [0,1] rather than 8-bit, and distances span a 3-channel Euclidean norm.
// Must stay exactly (1 / (255 * sqrt(3))) for output compatibility
var thresholdScale = float32(1.0 / (255.0 * math.Sqrt(3.0)))

// Precomputed reciprocals, replacing division by the neighbor count in the
// hot loop. Built once before main runs, read-only afterwards
var recip = func() (t [256]float32) {
	for n:=1; n<len(t); n++ { t[n]=1.0/float32(n) }
	return t
}()

// Denoising parameters. The zero value is invalid, use NewParams for defaults
type Params struct {
	Threshold float32 `json:"threshold"` // user-facing color distance threshold, >= 0
	WindowX   int     `json:"windowX"`   // search window size along x, odd, >= 3
	WindowY   int     `json:"windowY"`   // search window size along y, odd, >= 3
	StepX     int     `json:"stepX"`     // sampling step along x, divides windowX-1
	StepY     int     `json:"stepY"`     // sampling step along y, divides windowY-1
}

// Returns denoising parameters with the reference defaults: threshold 4,
// a 25x25 search window sampled every 8 pixels (16 neighbor samples)
func NewParams() Params {
	return Params{
		Threshold: DefaultThreshold,
		WindowX:   DefaultWindow,
		WindowY:   DefaultWindow,
		StepX:     DefaultStep,
		StepY:     DefaultStep,
	}
}

// Returns the internal squared threshold for the user-facing threshold,
// (threshold / (255*sqrt(3)))^2
func (p *Params) ThresholdSq() float32 {
	t:=p.Threshold*thresholdScale
	return t*t
}

// Returns the search radii along x and y
func (p *Params) Radius() (rx, ry int) { return (p.WindowX-1)/2, (p.WindowY-1)/2 }

// Returns the largest possible neighbor count per pixel, including the
// reference pixel itself
func (p *Params) MaxWeight() int {
	mx:=(p.WindowX-1)/p.StepX + 1
	my:=(p.WindowY-1)/p.StepY + 1
	w:=mx*my + 1
	rx, ry:=p.Radius()
	if rx%p.StepX==0 && ry%p.StepY==0 { w-- } // (0,0) lies on the offset grid and is skipped
	return w
}

// Checks parameters against an image of the given dimensions. Returns a
// single descriptive error for the first violation found. Must pass before
// Denoise is invoked; the kernel itself performs no validation
func (p *Params) Validate(width, height int) error {
	if p.Threshold<0 {
		return fmt.Errorf("threshold must be >= 0, got %g", p.Threshold)
	}
	if err:=validateAxis("x", p.WindowX, p.StepX, width);  err!=nil { return err }
	if err:=validateAxis("y", p.WindowY, p.StepY, height); err!=nil { return err }
	if p.MaxWeight()>=len(recip) {
		return fmt.Errorf("window %dx%d with steps %d/%d exceeds the supported weight of %d",
			p.WindowX, p.WindowY, p.StepX, p.StepY, len(recip)-1)
	}
	return nil
}

func validateAxis(axis string, window, step, size int) error {
	if window<3 || (window&1)==0 {
		return fmt.Errorf("window size along %s must be an odd integer >= 3, got %d", axis, window)
	}
	if step<1 || (window-1)%step!=0 {
		return fmt.Errorf("step along %s must evenly divide the window size minus one (%d), got %d", axis, window-1, step)
	}
	if radius:=(window-1)/2; size<radius {
		return fmt.Errorf("image dimension along %s is %d, smaller than the search radius %d", axis, size, radius)
	}
	return nil
}

// Maps an out-of-range coordinate back into [0, size) by mirror reflection:
// about zero below the range, about the last valid index above it. With the
// validated minimum image size a single reflection lands in range; the loop
// only repeats in the degenerate case of a dimension equal to the radius.
// A single-pixel dimension has only one place to land; its fold would
// oscillate between -x and x forever
func Reflect(x, size int) int {
	if size==1 { return 0 }
	for x<0 || x>=size {
		if x<0 {
			x=-x
		} else {
			x=2*(size-1) - x
		}
	}
	return x
}

// Denoises src into dst, which must have identical dimensions. Pure function
// of src and p: no history across pixels, reads only from src and writes only
// to dst, so rows are processed in parallel across all available CPUs.
// Parameters must have been validated beforehand
func Denoise(dst, src *frame.Frame, p Params) {
	thSq:=p.ThresholdSq()
	offsX:=offsets(p.WindowX, p.StepX)
	offsY:=offsets(p.WindowY, p.StepY)

	// split rows into 8*NumCPU() work packages, limit parallelism to NumCPUs()
	numBatches:=8*runtime.NumCPU()
	batchSize :=(src.Height+numBatches-1)/numBatches
	if batchSize<1 { batchSize=1 }
	sem:=make(chan bool, runtime.NumCPU())
	for lower:=0; lower<src.Height; lower+=batchSize {
		upper:=lower+batchSize
		if upper>src.Height { upper=src.Height }

		sem <- true
		go func(yLo, yHi int) {
			denoiseRows(dst, src, thSq, offsX, offsY, yLo, yHi)
			<-sem
		}(lower, upper)
	}

	for i:=0; i<cap(sem); i++ {  // wait for goroutines to finish
		sem <- true
	}
}

// Returns the symmetric offset pattern -radius, -radius+step, ..., radius
func offsets(window, step int) []int {
	radius:=(window-1)/2
	offs:=make([]int, 0, (window-1)/step+1)
	for o:=-radius; o<=radius; o+=step {
		offs=append(offs, o)
	}
	return offs
}

// Processes output rows [yLo, yHi). Each channel is addressed through its
// own stride; planes need not be contiguous or identically padded
func denoiseRows(dst, src *frame.Frame, thSq float32, offsX, offsY []int, yLo, yHi int) {
	width, height:=src.Width, src.Height
	srcR, srcG, srcB:=src.R.Pix, src.G.Pix, src.B.Pix
	strR, strG, strB:=src.R.Stride, src.G.Stride, src.B.Stride

	for y:=yLo; y<yHi; y++ {
		rowR:=srcR[y*strR:]
		rowG:=srcG[y*strG:]
		rowB:=srcB[y*strB:]
		outR, outG, outB:=dst.R.Row(y), dst.G.Row(y), dst.B.Row(y)

		for x:=0; x<width; x++ {
			r, g, b:=rowR[x], rowG[x], rowB[x]
			totalR, totalG, totalB:=r, g, b
			n:=1 // the reference pixel always counts itself

			for _,dy:=range offsY {
				yy:=y+dy
				if yy<0 || yy>=height { yy=Reflect(yy, height) }
				offR, offG, offB:=yy*strR, yy*strG, yy*strB

				for _,dx:=range offsX {
					if dx==0 && dy==0 { continue }
					xx:=x+dx
					if xx<0 || xx>=width { xx=Reflect(xx, width) }

					cr, cg, cb:=srcR[offR+xx], srcG[offG+xx], srcB[offB+xx]
					dr, dg, db:=cr-r, cg-g, cb-b
					dSq:=dr*dr + dg*dg + db*db
					if thSq>dSq { // candidates exactly at the threshold are excluded
						totalR+=cr
						totalG+=cg
						totalB+=cb
						n++
					}
				}
			}

			w:=recip[n]
			outR[x]=clamp01(totalR*w)
			outG[x]=clamp01(totalG*w)
			outB[x]=clamp01(totalB*w)
		}
	}
}

// Saturating clamp to [0,1]. Out-of-range input is truncated, not rejected
func clamp01(v float32) float32 {
	if v<0 { return 0 }
	if v>1 { return 1 }
	return v
}
