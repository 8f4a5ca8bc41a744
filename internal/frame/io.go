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
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/gif" // register decoders
	"image/png"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/image/tiff"
)

// Reads a frame from a PNG, JPEG, GIF or TIFF file, converting samples into
// float32 planes in [0,1]
func NewFrameFromFile(fileName string, id int) (f *Frame, err error) {
	file, err:=os.Open(fileName)
	if err!=nil { return nil, err }
	defer file.Close()

	f, err=ReadFrame(bufio.NewReader(file))
	if err!=nil { return nil, fmt.Errorf("%s: %s", fileName, err.Error()) }
	f.ID, f.FileName=id, fileName
	return f, nil
}

// Reads a frame from a reader holding any registered image format
func ReadFrame(reader io.Reader) (f *Frame, err error) {
	img, _, err:=image.Decode(reader)
	if err!=nil { return nil, err }

	bounds:=img.Bounds()
	width, height:=bounds.Dx(), bounds.Dy()
	f=NewFrame(width, height)
	for y:=0; y<height; y++ {
		rRow, gRow, bRow:=f.R.Row(y), f.G.Row(y), f.B.Row(y)
		for x:=0; x<width; x++ {
			r, g, b, _:=img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rRow[x]=float32(r)*(1.0/65535.0)
			gRow[x]=float32(g)*(1.0/65535.0)
			bRow[x]=float32(b)*(1.0/65535.0)
		}
	}
	f.UpdateStats()
	return f, nil
}

// Writes a frame to a file, choosing the format from the filename suffix.
// Supports .png, .jpg/.jpeg and .tif/.tiff
func (f *Frame) WriteFile(fileName string) error {
	file, err:=os.Create(fileName)
	if err!=nil { return err }
	defer file.Close()

	writer:=bufio.NewWriter(file)
	defer writer.Flush()

	fnLower:=strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(fnLower, ".png"):
		return f.WritePNG(writer)
	case strings.HasSuffix(fnLower, ".jpg"), strings.HasSuffix(fnLower, ".jpeg"):
		return f.WriteJPG(writer, 95)
	case strings.HasSuffix(fnLower, ".tif"), strings.HasSuffix(fnLower, ".tiff"):
		return f.WriteTIFF16(writer)
	}
	return fmt.Errorf("unknown suffix in output filename %s", fileName)
}

// Writes a frame to 8-bit PNG
func (f *Frame) WritePNG(writer io.Writer) error {
	return png.Encode(writer, f.toRGBA64())
}

// Writes a frame to JPEG with the given quality
func (f *Frame) WriteJPG(writer io.Writer, quality int) error {
	return jpeg.Encode(writer, f.toRGBA64(), &jpeg.Options{Quality: quality})
}

// Writes a frame to 16-bit TIFF with deflate compression
func (f *Frame) WriteTIFF16(writer io.Writer) error {
	return tiff.Encode(writer, f.toRGBA64(), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Converts float32 planes into a 16-bit Golang image, clamping to [0,1].
// NaNs are replaced with zeros for export, else encoder output breaks
func (f *Frame) toRGBA64() *image.RGBA64 {
	img:=image.NewRGBA64(image.Rectangle{image.Point{0, 0}, image.Point{f.Width, f.Height}})
	for y:=0; y<f.Height; y++ {
		rRow, gRow, bRow:=f.R.Row(y), f.G.Row(y), f.B.Row(y)
		for x:=0; x<f.Width; x++ {
			r, g, b:=rRow[x], gRow[x], bRow[x]
			if math.IsNaN(float64(r)) || r<0 { r=0 }
			if math.IsNaN(float64(g)) || g<0 { g=0 }
			if math.IsNaN(float64(b)) || b<0 { b=0 }
			if r>1 { r=1 }
			if g>1 { g=1 }
			if b>1 { b=1 }
			c:=color.RGBA64{uint16(r*65535), uint16(g*65535), uint16(b*65535), 65535}
			img.SetRGBA64(x, y, c)
		}
	}
	return img
}
