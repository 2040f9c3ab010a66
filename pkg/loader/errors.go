// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"fmt"

	"github.com/linuxboot/s2l/pkg/status"
)

// ErrDecompressionFailed is returned when a compressed section does not
// expand to its declared length.
type ErrDecompressionFailed struct {
	Index int
	Err   error
}

func (e *ErrDecompressionFailed) Error() string {
	return fmt.Sprintf("section %d: unable to decompress: %v", e.Index, e.Err)
}

func (e *ErrDecompressionFailed) Unwrap() error {
	return e.Err
}

// Code implements status.Coder.
func (e *ErrDecompressionFailed) Code() status.Code {
	return status.CodeDecompressionFailed
}

// ErrSectionCollision is returned when two placed sections overlap.
type ErrSectionCollision struct {
	First  int
	Second int
}

func (e *ErrSectionCollision) Error() string {
	return fmt.Sprintf("sections %d and %d overlap in memory", e.First, e.Second)
}

// Code implements status.Coder.
func (e *ErrSectionCollision) Code() status.Code {
	return status.CodeSectionCollision
}

// ErrLoadAddressInvalid is returned when a placed section falls outside the
// RAM window.
type ErrLoadAddressInvalid struct {
	Index   int
	Address uint32
	Length  uint32
	Window  string
}

func (e *ErrLoadAddressInvalid) Error() string {
	return fmt.Sprintf("section %d at %#x+%#x lies outside %s", e.Index, e.Address, e.Length, e.Window)
}

// Code implements status.Coder.
func (e *ErrLoadAddressInvalid) Code() status.Code {
	return status.CodeLoadAddressInvalid
}

// ErrInvalidStartAddress is returned when the entry point is not inside a
// placed code section.
type ErrInvalidStartAddress struct {
	Address uint32
}

func (e *ErrInvalidStartAddress) Error() string {
	return fmt.Sprintf("start address %#x is not inside a placed code section", e.Address)
}

// Code implements status.Coder.
func (e *ErrInvalidStartAddress) Code() status.Code {
	return status.CodeInvalidStartAddress
}
