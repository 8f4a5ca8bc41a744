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
	"fmt"
	"os"
	"syscall"
)


// Confines the serving process before it accepts requests: optionally
// changes the filesystem root to the given directory (requires root, and
// pins the served file patterns inside it) and drops to the given user id.
// An empty chroot and a negative setuid each skip their step. Must run
// before Serve; a failed step leaves the process too privileged or half
// confined, so the caller is expected to abort on error
func MakeSandbox(chroot string, setuid int) error {
	if chroot!="" {
		if err:=syscall.Chroot(chroot); err!=nil {
			return fmt.Errorf("chroot(%s): %s", chroot, err.Error())
		}
		if err:=os.Chdir("/"); err!=nil { // paths are relative to the new root from here on
			return fmt.Errorf("chdir into new root: %s", err.Error())
		}
	}
	if setuid>=0 {
		if err:=syscall.Setuid(setuid); err!=nil {
			return fmt.Errorf("setuid(%d) from %d/%d: %s", setuid, syscall.Getuid(), syscall.Geteuid(), err.Error())
		}
	}
	return nil
}
