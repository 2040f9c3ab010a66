// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"fmt"

	"github.com/linuxboot/s2l/pkg/status"
)

// ErrElementNotFound is returned by Locate when the end marker is reached
// without a match.
type ErrElementNotFound struct {
	Type ElementType
}

func (e *ErrElementNotFound) Error() string {
	return fmt.Sprintf("no %s element in the flash directory", e.Type)
}

// Code implements status.Coder.
func (e *ErrElementNotFound) Code() status.Code {
	return status.CodeElementNotFound
}

// ErrDirectoryCorrupt is returned when no usable header copy exists or when
// an element would read outside the flash.
type ErrDirectoryCorrupt struct {
	Offset int64
	Reason string
}

func (e *ErrDirectoryCorrupt) Error() string {
	return fmt.Sprintf("flash directory at %#x is corrupt: %s", e.Offset, e.Reason)
}

// Code implements status.Coder.
func (e *ErrDirectoryCorrupt) Code() status.Code {
	return status.CodeDirectoryCorrupt
}
