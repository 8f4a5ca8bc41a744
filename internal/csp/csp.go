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


// Package csp converts frames between RGB and YUV color representations.
// Y stays in [0,1], U and V are centered on zero in [-0.5,0.5].
package csp

import (
	"fmt"
	"runtime"
	"sort"

	"gonum.org/v1/gonum/mat"
	"github.com/eoe-scrad/ccd/internal/frame"
)

// A YUV conversion matrix pair: the forward RGB to YUV coefficients and
// their inverse. Immutable after construction
type Matrix struct {
	Name string
	fwd  [3][3]float32
	inv  [3][3]float32
}

// Supported matrices, by the names the reference tool uses
var matrices = map[string]*Matrix{
	"709":     newMatrix("709",     0.2126, 0.0722),
	"170m":    newMatrix("170m",    0.299,  0.114),
	"470bg":   newMatrix("470bg",   0.299,  0.114),
	"240m":    newMatrix("240m",    0.212,  0.087),
	"2020ncl": newMatrix("2020ncl", 0.2627, 0.0593),
}

// Builds a matrix pair from the red and blue luma coefficients:
// Y = Kr*R + Kg*G + Kb*B, U = (B-Y)/(2*(1-Kb)), V = (R-Y)/(2*(1-Kr)).
// The inverse is computed numerically rather than hand-derived
func newMatrix(name string, kr, kb float64) *Matrix {
	kg:=1.0 - kr - kb
	su:=1.0/(2.0*(1.0-kb))
	sv:=1.0/(2.0*(1.0-kr))
	fwd:=mat.NewDense(3, 3, []float64{
		kr,          kg,          kb,
		-kr*su,      -kg*su,      (1.0-kb)*su,
		(1.0-kr)*sv, -kg*sv,      -kb*sv,
	})
	var inv mat.Dense
	if err:=inv.Inverse(fwd); err!=nil {
		panic(fmt.Sprintf("singular YUV matrix %s: %s", name, err.Error()))
	}

	m:=&Matrix{Name: name}
	for i:=0; i<3; i++ {
		for j:=0; j<3; j++ {
			m.fwd[i][j]=float32(fwd.At(i, j))
			m.inv[i][j]=float32(inv.At(i, j))
		}
	}
	return m
}

// Returns the conversion matrix with the given name, or a descriptive error
func ForName(name string) (*Matrix, error) {
	if m:=matrices[name]; m!=nil { return m, nil }
	return nil, fmt.Errorf("unrecognised matrix %q, expected one of %v", name, Names())
}

// Returns the supported matrix names in sorted order
func Names() []string {
	names:=make([]string, 0, len(matrices))
	for name,_:=range matrices { names=append(names, name) }
	sort.Strings(names)
	return names
}

// Picks a conversion matrix from the frame dimensions when none is tagged:
// 709 for HD-sized material, 170m below that
func Guess(width, height int) *Matrix {
	if width>=1280 || height>=720 { return matrices["709"] }
	return matrices["170m"]
}

func (m *Matrix) RGBToYUV(r, g, b float32) (y, u, v float32) {
	y=m.fwd[0][0]*r + m.fwd[0][1]*g + m.fwd[0][2]*b
	u=m.fwd[1][0]*r + m.fwd[1][1]*g + m.fwd[1][2]*b
	v=m.fwd[2][0]*r + m.fwd[2][1]*g + m.fwd[2][2]*b
	return y, u, v
}

func (m *Matrix) YUVToRGB(y, u, v float32) (r, g, b float32) {
	r=m.inv[0][0]*y + m.inv[0][1]*u + m.inv[0][2]*v
	g=m.inv[1][0]*y + m.inv[1][1]*u + m.inv[1][2]*v
	b=m.inv[2][0]*y + m.inv[2][1]*u + m.inv[2][2]*v
	return r, g, b
}

// Converts an RGB frame to YUV planes. Returns a new frame
func ToYUV(src *frame.Frame, m *Matrix) *frame.Frame {
	dst:=frame.NewFrameLike(src)
	applyRows(src.Height, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			rRow, gRow, bRow:=src.R.Row(y), src.G.Row(y), src.B.Row(y)
			yRow, uRow, vRow:=dst.R.Row(y), dst.G.Row(y), dst.B.Row(y)
			for x:=0; x<src.Width; x++ {
				yRow[x], uRow[x], vRow[x]=m.RGBToYUV(rRow[x], gRow[x], bRow[x])
			}
		}
	})
	return dst
}

// Converts a YUV frame back to RGB planes, clamped to [0,1]. Returns a new frame
func ToRGB(src *frame.Frame, m *Matrix) *frame.Frame {
	dst:=frame.NewFrameLike(src)
	applyRows(src.Height, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			yRow, uRow, vRow:=src.R.Row(y), src.G.Row(y), src.B.Row(y)
			rRow, gRow, bRow:=dst.R.Row(y), dst.G.Row(y), dst.B.Row(y)
			for x:=0; x<src.Width; x++ {
				r, g, b:=m.YUVToRGB(yRow[x], uRow[x], vRow[x])
				rRow[x], gRow[x], bRow[x]=clamp01(r), clamp01(g), clamp01(b)
			}
		}
	})
	return dst
}

// Combines the luma of orig with the chroma of denoised, both RGB frames of
// identical dimensions. This keeps a chroma denoiser from touching luminance
// detail. Returns a new RGB frame clamped to [0,1]
func MergeLuma(denoised, orig *frame.Frame, m *Matrix) *frame.Frame {
	dst:=frame.NewFrameLike(denoised)
	applyRows(denoised.Height, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			rRow, gRow, bRow:=denoised.R.Row(y), denoised.G.Row(y), denoised.B.Row(y)
			oR, oG, oB      :=orig.R.Row(y), orig.G.Row(y), orig.B.Row(y)
			dR, dG, dB      :=dst.R.Row(y), dst.G.Row(y), dst.B.Row(y)
			for x:=0; x<denoised.Width; x++ {
				luma, _, _:=m.RGBToYUV(oR[x], oG[x], oB[x])
				_, u, v   :=m.RGBToYUV(rRow[x], gRow[x], bRow[x])
				r, g, b   :=m.YUVToRGB(luma, u, v)
				dR[x], dG[x], dB[x]=clamp01(r), clamp01(g), clamp01(b)
			}
		}
	})
	return dst
}

// Runs fn over row ranges in parallel, limited to the number of CPUs
func applyRows(height int, fn func(yLo, yHi int)) {
	numBatches:=8*runtime.NumCPU()
	batchSize :=(height+numBatches-1)/numBatches
	if batchSize<1 { batchSize=1 }
	sem:=make(chan bool, runtime.NumCPU())
	for lower:=0; lower<height; lower+=batchSize {
		upper:=lower+batchSize
		if upper>height { upper=height }

		sem <- true
		go func(yLo, yHi int) {
			fn(yLo, yHi)
			<-sem
		}(lower, upper)
	}

	for i:=0; i<cap(sem); i++ {  // wait for goroutines to finish
		sem <- true
	}
}

func clamp01(v float32) float32 {
	if v<0 { return 0 }
	if v>1 { return 1 }
	return v
}
