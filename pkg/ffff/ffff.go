// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ffff parses the Flash Format For Firmware element directory which
// maps element types to their location in SPI flash.
//
// A flash holds up to two copies of the directory header. The first lives at
// offset zero, the second at the first erase block boundary past the first
// header. The valid copy with the highest generation wins.
package ffff

import (
	"fmt"
	"strconv"

	"github.com/linuxboot/s2l/pkg/tftf"
)

// Sentinel starts and ends every FFFF header.
var Sentinel = [SentinelSize]byte{
	'F', 'l', 'a', 's', 'h', 'F', 'o', 'r', 'm', 'a', 't', 'F', 'o', 'r', 'F', 'W',
}

// Header geometry.
const (
	SentinelSize  = 16
	TimestampSize = 16
	NameSize      = 48
	NumReserved   = 4

	HeaderSizeMin = 512
	HeaderSizeMax = 32768

	// FixedSize is the size of the header up to the element table.
	FixedSize = 116

	// ElementSize is the size of one element descriptor.
	ElementSize = 20

	// maxEraseBlockSize bounds the search for a second header when the first
	// one is unusable.
	maxEraseBlockSize = 256 << 10
)

// MaxElements returns how many descriptors, end marker included, fit between
// the fixed header and the trailing sentinel.
func MaxElements(headerSize uint32) int {
	if headerSize < FixedSize+SentinelSize {
		return 0
	}
	return int(headerSize-FixedSize-SentinelSize) / ElementSize
}

// ElementType is the tag of an element descriptor. TFTF package types use
// the same values.
type ElementType uint8

// Element types.
const (
	ElementStage2Firmware ElementType = 0x01
	ElementStage3Firmware ElementType = 0x02
	ElementIMSCertificate ElementType = 0x03
	ElementCMSCertificate ElementType = 0x04
	ElementData           ElementType = 0x05
	ElementEnd            ElementType = 0xFE
)

func (t ElementType) String() string {
	switch t {
	case ElementStage2Firmware:
		return "Stage2Firmware"
	case ElementStage3Firmware:
		return "Stage3Firmware"
	case ElementIMSCertificate:
		return "IMSCertificate"
	case ElementCMSCertificate:
		return "CMSCertificate"
	case ElementData:
		return "Data"
	case ElementEnd:
		return "End"
	}
	return fmt.Sprintf("ElementType(%#02x)", uint8(t))
}

// ParseElementType accepts a name as printed by String or a number.
func ParseElementType(s string) (ElementType, error) {
	for t := ElementStage2Firmware; t <= ElementData; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown element type %q", s)
	}
	return ElementType(v), nil
}

// Element is an element descriptor as stored in the header.
type Element struct {
	Type       ElementType
	Class      tftf.Uint24
	ID         uint32
	Length     uint32
	Location   uint32
	Generation uint32
}

// End returns the first flash offset past the element.
func (e *Element) End() uint64 {
	return uint64(e.Location) + uint64(e.Length)
}

// Fixed is the binary layout of the header up to the element table.
type Fixed struct {
	Sentinel         [SentinelSize]byte
	Timestamp        [TimestampSize]byte
	Name             [NameSize]byte
	FlashCapacity    uint32
	EraseBlockSize   uint32
	HeaderSize       uint32
	FlashImageLength uint32
	Generation       uint32
	Reserved         [NumReserved]uint32
}

// Header is one decoded copy of the directory. Elements never includes the
// end marker.
type Header struct {
	Fixed
	Elements []Element

	// Offset is where in flash this copy was found.
	Offset int64
}

// NameString returns the flash image name.
func (h *Header) NameString() string {
	return tftf.CString(h.Name[:])
}

// TimestampString returns the build timestamp.
func (h *Header) TimestampString() string {
	return tftf.CString(h.Timestamp[:])
}

// SecondCopyOffset returns where the redundant header copy is expected.
func (h *Header) SecondCopyOffset() int64 {
	eb := int64(h.EraseBlockSize)
	size := int64(h.HeaderSize)
	if eb == 0 {
		return size
	}
	return (size + eb - 1) / eb * eb
}
