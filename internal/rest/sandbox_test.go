// +build linux darwin

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


package rest

import (
	"testing"
)

func TestMakeSandboxNoOp(t *testing.T) {
	if err:=MakeSandbox("", -1); err!=nil {
		t.Errorf("no-op sandbox returned error: %s", err.Error())
	}
}

func TestMakeSandboxBadChroot(t *testing.T) {
	// fails with ENOENT for everyone, EPERM for non-root; an error either way
	if err:=MakeSandbox("/nonexistent-sandbox-root", -1); err==nil {
		t.Errorf("expected error for chroot into a nonexistent directory")
	}
}
