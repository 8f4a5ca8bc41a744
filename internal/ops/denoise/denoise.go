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
	"encoding/json"
	"errors"
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/eoe-scrad/ccd/internal/ccd"
	"github.com/eoe-scrad/ccd/internal/csp"
	"github.com/eoe-scrad/ccd/internal/frame"
	"github.com/eoe-scrad/ccd/internal/ops"
)

// Chroma denoise operator. Validates the frame and parameters, runs the
// neighborhood averaging kernel, and optionally restores the original
// luminance so only chroma is touched. Takes one input, produces one output
type OpCCD struct {
	ops.OpUnaryBase
	Threshold float32 `json:"threshold"` // color distance threshold, >= 0, useful range 4-10
	WindowX   int     `json:"windowX"`
	WindowY   int     `json:"windowY"`
	StepX     int     `json:"stepX"`
	StepY     int     `json:"stepY"`
	KeepLuma  bool    `json:"keepLuma"` // keep the input frame's luminance
	Matrix    string  `json:"matrix"`   // YUV matrix for luma extraction, "" selects by resolution
}

var _ ops.OperatorUnary = (*OpCCD)(nil) // this type is a unary operator
func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpCCDDefault() }) } // register the operator for JSON decoding

func NewOpCCDDefault() *OpCCD {
	p:=ccd.NewParams()
	return NewOpCCD(p.Threshold, p.WindowX, p.WindowY, p.StepX, p.StepY, true, "")
}

func NewOpCCD(threshold float32, windowX, windowY, stepX, stepY int, keepLuma bool, matrix string) *OpCCD {
	op:=OpCCD{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "ccd", Active: true}},
		Threshold:   threshold,
		WindowX:     windowX,
		WindowY:     windowY,
		StepX:       stepX,
		StepY:       stepY,
		KeepLuma:    keepLuma,
		Matrix:      matrix,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpCCD) UnmarshalJSON(data []byte) error {
	type defaults OpCCD
	def:=defaults( *NewOpCCDDefault() )
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	*op=OpCCD(def)
	op.OpUnaryBase.Apply=op.Apply
	return nil
}

func (op *OpCCD) Params() ccd.Params {
	return ccd.Params{
		Threshold: op.Threshold,
		WindowX:   op.WindowX,
		WindowY:   op.WindowY,
		StepX:     op.StepX,
		StepY:     op.StepY,
	}
}

func (op *OpCCD) Apply(f *frame.Frame, c *ops.Context) (result *frame.Frame, err error) {
	if !op.Active { return f, nil }
	if !f.Valid() {
		return nil, errors.New("CCD: unsupported format, expected three non-subsampled float32 color planes of matching dimensions")
	}

	params:=op.Params()
	if err:=params.Validate(f.Width, f.Height); err!=nil {
		return nil, fmt.Errorf("CCD: %s", err.Error())
	}

	var matrix *csp.Matrix
	if op.KeepLuma {
		if op.Matrix=="" {
			matrix=csp.Guess(f.Width, f.Height)
		} else if matrix, err=csp.ForName(op.Matrix); err!=nil {
			return nil, fmt.Errorf("CCD: %s", err.Error())
		}
	}

	// log before the kernel runs, so a streamed log shows progress in order
	if op.KeepLuma {
		fmt.Fprintf(c.Log, "%d: Denoising %s frame with threshold %.4g, window %dx%d step %d/%d, keeping %s luma\n",
			f.ID, f.DimensionsToString(), op.Threshold, op.WindowX, op.WindowY, op.StepX, op.StepY, matrix.Name)
	} else {
		fmt.Fprintf(c.Log, "%d: Denoising %s frame with threshold %.4g, window %dx%d step %d/%d\n",
			f.ID, f.DimensionsToString(), op.Threshold, op.WindowX, op.WindowY, op.StepX, op.StepY)
	}

	dst:=frame.NewFrameLike(f)
	ccd.Denoise(dst, f, params)
	if op.KeepLuma { dst=csp.MergeLuma(dst, f, matrix) }

	dst.UpdateStats()
	fmt.Fprintf(c.Log, "%d: Denoised frame has %v\n", dst.ID, dst.Stats)
	return dst, nil
}


// Scales color saturation to compensate for the slight desaturation a chroma
// denoiser leaves behind. Takes one input, produces one output
type OpSaturation struct {
	ops.OpUnaryBase
	Gain float32 `json:"gain"` // saturation multiplier, 1=no op
}

var _ ops.OperatorUnary = (*OpSaturation)(nil) // this type is a unary operator
func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpSaturationDefault() }) } // register the operator for JSON decoding

func NewOpSaturationDefault() *OpSaturation { return NewOpSaturation(1) }

func NewOpSaturation(gain float32) *OpSaturation {
	op:=OpSaturation{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "saturation", Active: gain>=0 && gain!=1}},
		Gain:        gain,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSaturation) UnmarshalJSON(data []byte) error {
	type defaults OpSaturation
	def:=defaults( *NewOpSaturationDefault() )
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	*op=OpSaturation(def)
	op.OpUnaryBase.Apply=op.Apply
	return nil
}

func (op *OpSaturation) Apply(f *frame.Frame, c *ops.Context) (result *frame.Frame, err error) {
	if !op.Active || op.Gain==1 { return f, nil }
	fmt.Fprintf(c.Log, "%d: Scaling saturation by %.4g\n", f.ID, op.Gain)

	gain:=float64(op.Gain)
	for y:=0; y<f.Height; y++ {
		rRow, gRow, bRow:=f.R.Row(y), f.G.Row(y), f.B.Row(y)
		for x:=0; x<f.Width; x++ {
			col:=colorful.Color{R: float64(rRow[x]), G: float64(gRow[x]), B: float64(bRow[x])}
			h, s, l:=col.Hsl()
			s*=gain
			if s>1 { s=1 }
			col=colorful.Hsl(h, s, l).Clamped()
			rRow[x], gRow[x], bRow[x]=float32(col.R), float32(col.G), float32(col.B)
		}
	}
	return f, nil
}
