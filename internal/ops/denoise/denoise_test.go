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


package denoise

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/eoe-scrad/ccd/internal/frame"
	"github.com/eoe-scrad/ccd/internal/ops"
)

func testContext() *ops.Context { return ops.NewContext(ioutil.Discard) }

func TestOpCCDRejectsInvalid(t *testing.T) {
	c:=testContext()

	// dimensions below the search radius
	small:=frame.NewFrame(8, 8)
	if _, err:=NewOpCCDDefault().Apply(small, c); err==nil {
		t.Errorf("expected rejection of 8x8 frame")
	}

	// negative threshold
	op:=NewOpCCDDefault()
	op.Threshold=-1
	if _, err:=op.Apply(frame.NewFrame(64, 64), c); err==nil {
		t.Errorf("expected rejection of negative threshold")
	}

	// missing plane
	broken:=frame.NewFrame(64, 64)
	broken.G.Pix=nil
	if _, err:=NewOpCCDDefault().Apply(broken, c); err==nil {
		t.Errorf("expected rejection of frame with missing plane")
	}

	// unknown matrix name
	op=NewOpCCDDefault()
	op.Matrix="ycocg"
	if _, err:=op.Apply(frame.NewFrame(64, 64), c); err==nil {
		t.Errorf("expected rejection of unknown matrix")
	}

	// bad window configuration
	op=NewOpCCDDefault()
	op.WindowX=24
	_, err:=op.Apply(frame.NewFrame(64, 64), c)
	if err==nil { t.Fatalf("expected rejection of even window") }
	if !strings.Contains(err.Error(), "CCD") { t.Errorf("error %q lacks CCD prefix", err.Error()) }
}

func TestOpCCDDimensions(t *testing.T) {
	c:=testContext()
	src:=frame.NewFrame(32, 16)
	for _,p:=range src.Planes() { p.Fill(0.5) }

	dst, err:=NewOpCCDDefault().Apply(src, c)
	if err!=nil { t.Fatal(err) }
	if dst.Width!=32 || dst.Height!=16 {
		t.Errorf("output dimensions %dx%d; want 32x16", dst.Width, dst.Height)
	}
	if dst==src { t.Errorf("operator returned the input frame instead of a new one") }
}

// A uniform frame passes through the whole operator unchanged, including
// the luma merge
func TestOpCCDUniformPassthrough(t *testing.T) {
	c:=testContext()
	src:=frame.NewFrame(16, 16)
	src.R.Fill(0.25)
	src.G.Fill(0.5)
	src.B.Fill(0.75)

	dst, err:=NewOpCCDDefault().Apply(src, c)
	if err!=nil { t.Fatal(err) }
	for ch,p:=range dst.Planes() {
		want:=src.Planes()[ch].At(0, 0)
		for i,v:=range p.Pix {
			if diff:=v-want; diff>1e-5 || diff< -1e-5 {
				t.Fatalf("channel %d sample %d=%f; want %f", ch, i, v, want)
			}
		}
	}
}

// The operator logs what it is about to do before running the kernel, then
// the result stats after; a streamed log must carry both, in that order
func TestOpCCDLogOrder(t *testing.T) {
	var buf bytes.Buffer
	c:=ops.NewContext(&buf)
	src:=frame.NewFrame(16, 16)
	for _,p:=range src.Planes() { p.Fill(0.5) }

	if _, err:=NewOpCCDDefault().Apply(src, c); err!=nil { t.Fatal(err) }

	log:=buf.String()
	before:=strings.Index(log, "Denoising")
	after :=strings.Index(log, "Denoised frame has")
	if before<0 || after<0 { t.Fatalf("log %q lacks the progress lines", log) }
	if before>after { t.Errorf("progress line logged after the result line") }
}

func TestOpCCDUnmarshalDefaults(t *testing.T) {
	var op OpCCD
	if err:=json.Unmarshal([]byte(`{"type":"ccd","active":true,"threshold":6}`), &op); err!=nil {
		t.Fatal(err)
	}
	if op.Threshold!=6 { t.Errorf("threshold=%f; want 6", op.Threshold) }
	if op.WindowX!=25 || op.WindowY!=25 { t.Errorf("window %dx%d; want 25x25 defaults", op.WindowX, op.WindowY) }
	if op.StepX!=8 || op.StepY!=8 { t.Errorf("step %d/%d; want 8/8 defaults", op.StepX, op.StepY) }
	if !op.KeepLuma { t.Errorf("keepLuma=false; want default true") }
	if op.OpUnaryBase.Apply==nil { t.Errorf("unmarshaled operator has no Apply method bound") }
}

func TestOpSaturationNoOp(t *testing.T) {
	c:=testContext()
	src:=frame.NewFrame(16, 16)
	src.R.Fill(0.6)
	src.G.Fill(0.3)
	src.B.Fill(0.2)

	dst, err:=NewOpSaturation(1).Apply(src, c)
	if err!=nil { t.Fatal(err) }
	if dst!=src { t.Errorf("gain 1 should pass the frame through") }
}

func TestOpSaturationDesaturates(t *testing.T) {
	c:=testContext()
	src:=frame.NewFrame(16, 16)
	src.R.Fill(0.8)
	src.G.Fill(0.2)
	src.B.Fill(0.2)

	dst, err:=NewOpSaturation(0).Apply(src, c)
	if err!=nil { t.Fatal(err) }
	// fully desaturated pixels are gray
	r, g, b:=dst.R.At(4, 4), dst.G.At(4, 4), dst.B.At(4, 4)
	if diff:=r-g; diff>1e-5 || diff< -1e-5 { t.Errorf("r=%f g=%f; want equal after desaturation", r, g) }
	if diff:=g-b; diff>1e-5 || diff< -1e-5 { t.Errorf("g=%f b=%f; want equal after desaturation", g, b) }
}
