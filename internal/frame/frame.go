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


package frame

import (
	"fmt"
	"github.com/eoe-scrad/ccd/internal/stats"
)

// A single color channel's 2D grid of float32 samples, nominally in [0,1].
// Rows are Stride samples apart in Pix. Stride may exceed Width due to padding,
// and is independent per plane. All addressing must go through the plane's
// own stride.
type Plane struct {
	Pix    []float32 // samples, row-major with padding
	Width  int       // logical row length in samples
	Height int       // number of rows
	Stride int       // distance between row starts in samples, >= Width
}

// Creates a contiguous plane with stride equal to width
func NewPlane(width, height int) Plane {
	return Plane{
		Pix:    make([]float32, width*height),
		Width:  width,
		Height: height,
		Stride: width,
	}
}

// Creates a plane with padded rows of the given stride
func NewPlaneWithStride(width, height, stride int) Plane {
	if stride<width { stride=width }
	return Plane{
		Pix:    make([]float32, stride*height),
		Width:  width,
		Height: height,
		Stride: stride,
	}
}

// Returns the sample at the given coordinate
func (p *Plane) At(x, y int) float32 { return p.Pix[y*p.Stride+x] }

// Sets the sample at the given coordinate
func (p *Plane) Set(x, y int, v float32) { p.Pix[y*p.Stride+x]=v }

// Returns row y without padding
func (p *Plane) Row(y int) []float32 { return p.Pix[y*p.Stride : y*p.Stride+p.Width] }

// Fills the entire plane with the given value
func (p *Plane) Fill(v float32) {
	for y:=0; y<p.Height; y++ {
		row:=p.Row(y)
		for x,_:=range row { row[x]=v }
	}
}

// Returns the logical samples of the plane as one contiguous array,
// avoiding a copy where the plane carries no padding
func (p *Plane) Contiguous() []float32 {
	if p.Stride==p.Width { return p.Pix[:p.Width*p.Height] }
	data:=make([]float32, p.Width*p.Height)
	for y:=0; y<p.Height; y++ {
		copy(data[y*p.Width:], p.Row(y))
	}
	return data
}

// A single RGB frame with channels separated into three independent planes
// of identical logical dimensions
type Frame struct {
	ID       int    // Sequential ID number, for log output. Counted upwards from 0
	FileName string // Original file name, if any, for log output

	Width  int
	Height int

	R Plane
	G Plane
	B Plane

	Stats *stats.Stats // Basic image statistics: min, mean, max, over all channels
}

// Creates a frame of the given dimensions with contiguous planes
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		R:      NewPlane(width, height),
		G:      NewPlane(width, height),
		B:      NewPlane(width, height),
	}
}

// Creates an empty frame with the dimensions and bookkeeping of the given
// frame. Planes are freshly allocated and contiguous
func NewFrameLike(src *Frame) *Frame {
	f:=NewFrame(src.Width, src.Height)
	f.ID, f.FileName=src.ID, src.FileName
	return f
}

// Returns the three channel planes in R, G, B order
func (f *Frame) Planes() [3]*Plane { return [3]*Plane{&f.R, &f.G, &f.B} }

func (f *Frame) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// Checks that all three planes are allocated and share the frame dimensions
func (f *Frame) Valid() bool {
	for _,p:=range f.Planes() {
		if p.Pix==nil { return false }
		if p.Width!=f.Width || p.Height!=f.Height { return false }
		if p.Stride<p.Width { return false }
		if len(p.Pix)<p.Stride*p.Height { return false }
	}
	return f.Width>0 && f.Height>0
}

// Recomputes f.Stats across all three channels
func (f *Frame) UpdateStats() {
	data:=make([]float32, 0, 3*f.Width*f.Height)
	for _,p:=range f.Planes() {
		data=append(data, p.Contiguous()...)
	}
	f.Stats=stats.Calc(data)
}
