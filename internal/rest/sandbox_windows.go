// +build windows

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
	"errors"
)


// Sandboxing with chroot and setuid does not exist on windows; requesting
// either is an error rather than a silently unconfined server
func MakeSandbox(chroot string, setuid int) error {
	if chroot!="" || setuid>=0 {
		return errors.New("sandboxing with chroot and setuid is not supported on windows")
	}
	return nil
}
