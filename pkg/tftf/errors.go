// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"fmt"

	"github.com/linuxboot/s2l/pkg/status"
)

// ErrSentinelMismatch is returned when a header does not start with Sentinel.
type ErrSentinelMismatch struct {
	Got []byte
}

func (e *ErrSentinelMismatch) Error() string {
	return fmt.Sprintf("TFTF sentinel mismatch: got %q", e.Got)
}

// Code implements status.Coder.
func (e *ErrSentinelMismatch) Code() status.Code {
	return status.CodeSentinelMismatch
}

// ErrHeaderSizeOutOfRange is returned when header_size is outside
// [HeaderSizeMin, HeaderSizeMax] or larger than the buffer holding it.
type ErrHeaderSizeOutOfRange struct {
	Size   uint32
	Buffer int
}

func (e *ErrHeaderSizeOutOfRange) Error() string {
	if e.Buffer >= 0 && uint64(e.Size) > uint64(e.Buffer) {
		return fmt.Sprintf("TFTF header size %d exceeds the %d byte buffer", e.Size, e.Buffer)
	}
	return fmt.Sprintf("TFTF header size %d outside [%d, %d]", e.Size, HeaderSizeMin, HeaderSizeMax)
}

// Code implements status.Coder.
func (e *ErrHeaderSizeOutOfRange) Code() status.Code {
	return status.CodeHeaderSizeOutOfRange
}

// ErrIdentityMismatch is returned when an identity field of the image does
// not match the running hardware.
type ErrIdentityMismatch struct {
	Field    string
	Image    uint32
	Hardware uint32
}

func (e *ErrIdentityMismatch) Error() string {
	return fmt.Sprintf("%s mismatch: image %#x, hardware %#x", e.Field, e.Image, e.Hardware)
}

// Code implements status.Coder.
func (e *ErrIdentityMismatch) Code() status.Code {
	return status.CodeIdentityMismatch
}

// ErrPackageTypeMismatch is returned when the package type differs from the
// element type the image was located as.
type ErrPackageTypeMismatch struct {
	Expected uint32
	Actual   uint32
}

func (e *ErrPackageTypeMismatch) Error() string {
	return fmt.Sprintf("package type %#x, expected %#x", e.Actual, e.Expected)
}

// Code implements status.Coder.
func (e *ErrPackageTypeMismatch) Code() status.Code {
	return status.CodePackageTypeMismatch
}

// ErrSectionOutOfRange is returned for a descriptor which does not fit its
// bounds: the header, the payload or the address space.
type ErrSectionOutOfRange struct {
	Index  int
	Reason string
}

func (e *ErrSectionOutOfRange) Error() string {
	return fmt.Sprintf("section %d out of range: %s", e.Index, e.Reason)
}

// Code implements status.Coder.
func (e *ErrSectionOutOfRange) Code() status.Code {
	return status.CodeSectionOutOfRange
}

// ErrUnknownSectionType is returned for a descriptor with an undefined type.
type ErrUnknownSectionType struct {
	Index int
	Type  SectionType
}

func (e *ErrUnknownSectionType) Error() string {
	return fmt.Sprintf("section %d has unknown type %#02x", e.Index, uint8(e.Type))
}

// Code implements status.Coder.
func (e *ErrUnknownSectionType) Code() status.Code {
	return status.CodeUnknownSectionType
}

// ErrSectionOrder is returned when a hashed section follows a signature or
// certificate section.
type ErrSectionOrder struct {
	Index int
	Type  SectionType
}

func (e *ErrSectionOrder) Error() string {
	return fmt.Sprintf("hashed section %d (%s) follows the signature sections", e.Index, e.Type)
}

// Code implements status.Coder.
func (e *ErrSectionOrder) Code() status.Code {
	return status.CodeSectionOrder
}
