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


package ops

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"testing"

	"github.com/eoe-scrad/ccd/internal/frame"
)

func TestRemoveNils(t *testing.T) {
	a, b:=frame.NewFrame(4, 4), frame.NewFrame(4, 4)
	frames:=[]*frame.Frame{nil, a, nil, b, nil}
	got:=RemoveNils(frames)
	if len(got)!=2 || got[0]!=a || got[1]!=b {
		t.Errorf("removeNils returned %d frames; want [a b]", len(got))
	}
}

func TestMaterializeAll(t *testing.T) {
	ins:=make([]Promise, 8)
	for i,_:=range ins {
		ins[i]=func() (*frame.Frame, error) { return frame.NewFrame(4, 4), nil }
	}
	outs, err:=MaterializeAll(ins, 4, false)
	if err!=nil { t.Fatal(err) }
	if len(outs)!=8 { t.Errorf("materialized %d frames; want 8", len(outs)) }
}

func TestMaterializeAllCollectsErrors(t *testing.T) {
	ins:=[]Promise{
		func() (*frame.Frame, error) { return frame.NewFrame(4, 4), nil },
		func() (*frame.Frame, error) { return nil, errors.New("boom") },
	}
	outs, err:=MaterializeAll(ins, 2, false)
	if err==nil { t.Fatal("expected error from failing promise") }
	if len(outs)!=1 { t.Errorf("materialized %d frames; want the 1 success", len(outs)) }
}

func TestIsPathAllowed(t *testing.T) {
	if !isPathAllowed("img.png")      { t.Errorf("relative path should be allowed") }
	if !isPathAllowed("sub/img.png")  { t.Errorf("relative subdirectory path should be allowed") }
	if isPathAllowed("/etc/passwd")   { t.Errorf("absolute path should be rejected") }
	if isPathAllowed("../img.png")    { t.Errorf("parent directory path should be rejected") }
	if isPathAllowed("a/../../b.png") { t.Errorf("embedded parent directory path should be rejected") }
}

func TestOpLoadRejectsUnsafePath(t *testing.T) {
	c:=NewContext(ioutil.Discard)
	op:=NewOpLoad(0, "../outside.png")
	if _, err:=op.MakePromises(nil, c); err==nil {
		t.Errorf("expected rejection of path outside the working directory")
	}
}

func TestOpSaveInactiveWithoutPattern(t *testing.T) {
	c:=NewContext(ioutil.Discard)
	op:=NewOpSaveDefault()
	if op.Active { t.Errorf("save operator without pattern should be inactive") }

	f:=frame.NewFrame(4, 4)
	got, err:=op.Apply(f, c)
	if err!=nil { t.Fatal(err) }
	if got!=f { t.Errorf("inactive save should pass the frame through") }
}

func TestOpSequenceUnmarshal(t *testing.T) {
	data:=`{"type":"seq","active":true,"steps":[
		{"type":"loadMany","active":true,"filePatterns":["*.png"]},
		{"type":"save","active":true,"filePattern":"out%d.png"}
	]}`
	var seq OpSequence
	if err:=json.Unmarshal([]byte(data), &seq); err!=nil { t.Fatal(err) }
	if len(seq.Steps)!=2 { t.Fatalf("decoded %d steps; want 2", len(seq.Steps)) }
	if seq.Steps[0].GetType()!="loadMany" { t.Errorf("step 0 type=%s; want loadMany", seq.Steps[0].GetType()) }
	if seq.Steps[1].GetType()!="save"     { t.Errorf("step 1 type=%s; want save", seq.Steps[1].GetType()) }
	if save,ok:=seq.Steps[1].(*OpSave); !ok || save.FilePattern!="out%d.png" {
		t.Errorf("step 1 did not decode into a save operator with its pattern")
	}
}

func TestOpSequenceUnmarshalUnknownType(t *testing.T) {
	data:=`{"type":"seq","active":true,"steps":[{"type":"warpdrive","active":true}]}`
	var seq OpSequence
	if err:=json.Unmarshal([]byte(data), &seq); err==nil {
		t.Errorf("expected error for unknown operator type")
	}
}

func TestOpSequenceMarshal(t *testing.T) {
	seq:=NewOpSequence(NewOpLoadMany([]string{"*.png"}), NewOpSave("out.png"))
	data, err:=json.Marshal(seq)
	if err!=nil { t.Fatal(err) }

	var decoded OpSequence
	if err:=json.Unmarshal(data, &decoded); err!=nil { t.Fatal(err) }
	if len(decoded.Steps)!=2 { t.Errorf("round trip decoded %d steps; want 2", len(decoded.Steps)) }
}
