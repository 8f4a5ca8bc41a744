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


package csp

import (
	"math"
	"testing"

	"github.com/eoe-scrad/ccd/internal/frame"
)

func TestForName(t *testing.T) {
	for _,name:=range []string{"709", "170m", "470bg", "240m", "2020ncl"} {
		m, err:=ForName(name)
		if err!=nil { t.Fatalf("%s: %s", name, err.Error()) }
		if m.Name!=name { t.Errorf("name=%s; want %s", m.Name, name) }
	}
	if _, err:=ForName("ycocg"); err==nil { t.Errorf("expected error for unsupported matrix") }
	if _, err:=ForName("");      err==nil { t.Errorf("expected error for empty matrix name") }
}

func TestGuess(t *testing.T) {
	if m:=Guess(1920, 1080); m.Name!="709" { t.Errorf("1920x1080 matrix=%s; want 709", m.Name) }
	if m:=Guess(1280, 536);  m.Name!="709" { t.Errorf("1280x536 matrix=%s; want 709", m.Name) }
	if m:=Guess(640, 480);   m.Name!="170m" { t.Errorf("640x480 matrix=%s; want 170m", m.Name) }
	if m:=Guess(720, 576);   m.Name!="170m" { t.Errorf("720x576 matrix=%s; want 170m", m.Name) }
}

func TestRoundTrip(t *testing.T) {
	epsilon:=1e-5
	colors:=[][3]float32{
		{0, 0, 0}, {1, 1, 1}, {0.5, 0.5, 0.5},
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{0.25, 0.5, 0.75}, {0.9, 0.1, 0.4},
	}
	for _,name:=range Names() {
		m, err:=ForName(name)
		if err!=nil { t.Fatal(err) }
		for _,c:=range colors {
			y, u, v:=m.RGBToYUV(c[0], c[1], c[2])
			r, g, b:=m.YUVToRGB(y, u, v)
			if math.Abs(float64(r-c[0]))>epsilon || math.Abs(float64(g-c[1]))>epsilon || math.Abs(float64(b-c[2]))>epsilon {
				t.Errorf("%s: roundtrip of %v gave (%f,%f,%f)", name, c, r, g, b)
			}
		}
	}
}

func TestLumaRange(t *testing.T) {
	for _,name:=range Names() {
		m, _:=ForName(name)
		yBlack, uBlack, vBlack:=m.RGBToYUV(0, 0, 0)
		yWhite, uWhite, vWhite:=m.RGBToYUV(1, 1, 1)
		if yBlack!=0 { t.Errorf("%s: y(black)=%f; want 0", name, yBlack) }
		if math.Abs(float64(yWhite-1))>1e-6 { t.Errorf("%s: y(white)=%f; want 1", name, yWhite) }
		for _,c:=range []float32{uBlack, vBlack, uWhite, vWhite} {
			if math.Abs(float64(c))>1e-6 { t.Errorf("%s: chroma of neutral=%f; want 0", name, c) }
		}
	}
}

func TestMergeLuma(t *testing.T) {
	m, _:=ForName("709")
	epsilon:=1e-5

	orig:=frame.NewFrame(16, 16)
	orig.R.Fill(0.8)
	orig.G.Fill(0.4)
	orig.B.Fill(0.2)

	denoised:=frame.NewFrame(16, 16)
	denoised.R.Fill(0.5)
	denoised.G.Fill(0.5)
	denoised.B.Fill(0.6)

	merged:=MergeLuma(denoised, orig, m)

	wantY, _, _  :=m.RGBToYUV(0.8, 0.4, 0.2)
	_, wantU, wantV:=m.RGBToYUV(0.5, 0.5, 0.6)
	gotY, gotU, gotV:=m.RGBToYUV(merged.R.At(8, 8), merged.G.At(8, 8), merged.B.At(8, 8))

	if math.Abs(float64(gotY-wantY))>epsilon { t.Errorf("merged y=%f; want %f from original", gotY, wantY) }
	if math.Abs(float64(gotU-wantU))>epsilon { t.Errorf("merged u=%f; want %f from denoised", gotU, wantU) }
	if math.Abs(float64(gotV-wantV))>epsilon { t.Errorf("merged v=%f; want %f from denoised", gotV, wantV) }
}

func TestToYUVToRGBFrames(t *testing.T) {
	m, _:=ForName("170m")
	epsilon:=1e-5

	src:=frame.NewFrame(16, 16)
	src.R.Fill(0.25)
	src.G.Fill(0.5)
	src.B.Fill(0.75)

	back:=ToRGB(ToYUV(src, m), m)
	for c,p:=range back.Planes() {
		want:=src.Planes()[c].At(0, 0)
		for y:=0; y<16; y++ {
			for x:=0; x<16; x++ {
				if math.Abs(float64(p.At(x, y)-want))>epsilon {
					t.Fatalf("channel %d pixel (%d,%d)=%f; want %f", c, x, y, p.At(x, y), want)
				}
			}
		}
	}
}
