// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tftf implements the Trusted Firmware Transfer Format, the image
// container loaded by the second stage: a fixed header, a table of typed
// section descriptors and the section payloads which follow it.
package tftf

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Sentinel starts every TFTF header.
var Sentinel = [SentinelSize]byte{'T', 'F', 'T', 'F'}

// Header geometry.
const (
	SentinelSize  = 4
	TimestampSize = 16
	NameSize      = 48
	NumReserved   = 4

	HeaderSizeMin     = 512
	HeaderSizeMax     = 32768
	HeaderSizeDefault = HeaderSizeMin

	// PrefixSize is the sentinel plus the header_size field, which is
	// everything needed to learn the full header size.
	PrefixSize = SentinelSize + 4

	// FixedSize is the size of the header up to the section table.
	FixedSize = 112

	// SectionSize is the size of one section descriptor.
	SectionSize = 20

	// IgnoreAddress as a load address means the section is read but not
	// placed in memory.
	IgnoreAddress = 0xFFFFFFFF
)

// MaxSections returns how many descriptors, end marker included, a header of
// the given size holds. A descriptor must end before the last header byte, so
// a table filling the header exactly loses its last slot.
func MaxSections(headerSize uint32) int {
	if headerSize <= FixedSize {
		return 0
	}
	return int(headerSize-FixedSize-1) / SectionSize
}

// SectionType is the tag of a section descriptor.
type SectionType uint8

// Section types. Types with the high bit set are not hashed.
const (
	SectionRawCode        SectionType = 0x01
	SectionRawData        SectionType = 0x02
	SectionCompressedCode SectionType = 0x03
	SectionCompressedData SectionType = 0x04
	SectionManifest       SectionType = 0x05
	SectionSignature      SectionType = 0x80
	SectionCertificate    SectionType = 0x81
	SectionEnd            SectionType = 0xFE
)

var sectionTypeNames = map[SectionType]string{
	SectionRawCode:        "RawCode",
	SectionRawData:        "RawData",
	SectionCompressedCode: "CompressedCode",
	SectionCompressedData: "CompressedData",
	SectionManifest:       "Manifest",
	SectionSignature:      "Signature",
	SectionCertificate:    "Certificate",
	SectionEnd:            "End",
}

func (t SectionType) String() string {
	if name, ok := sectionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SectionType(%#02x)", uint8(t))
}

// ParseSectionType is the inverse of SectionType.String.
func ParseSectionType(s string) (SectionType, error) {
	for t, name := range sectionTypeNames {
		if name == s && t != SectionEnd {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown section type %q", s)
}

// Known reports whether t is a defined section type.
func (t SectionType) Known() bool {
	_, ok := sectionTypeNames[t]
	return ok
}

// Hashed reports whether the section contributes to the image digest.
func (t SectionType) Hashed() bool {
	return t&0x80 == 0
}

// Compressed reports whether the payload must be expanded before use.
func (t SectionType) Compressed() bool {
	return t == SectionCompressedCode || t == SectionCompressedData
}

// Code reports whether the section holds executable code.
func (t SectionType) Code() bool {
	return t == SectionRawCode || t == SectionCompressedCode
}

// Uint24 is a 24 bit unsigned little-endian integer value.
type Uint24 struct {
	Value [3]byte
}

// Uint32 returns the value as parsed uint32.
func (v Uint24) Uint32() uint32 {
	return uint32(v.Value[0]) | uint32(v.Value[1])<<8 | uint32(v.Value[2])<<16
}

// SetUint32 sets the value, dropping bits above 24.
func (v *Uint24) SetUint32(newValue uint32) {
	v.Value[0] = byte(newValue)
	v.Value[1] = byte(newValue >> 8)
	v.Value[2] = byte(newValue >> 16)
}

// Section is a section descriptor as stored in the header.
type Section struct {
	Type           SectionType
	Class          Uint24
	ID             uint32
	Length         uint32
	LoadAddress    uint32
	ExpandedLength uint32
}

// Placed reports whether the section is copied to its load address.
func (s *Section) Placed() bool {
	return s.LoadAddress != IgnoreAddress
}

// End returns the first address past the placed section.
func (s *Section) End() uint64 {
	return uint64(s.LoadAddress) + uint64(s.ExpandedLength)
}

// Contains reports whether addr lies inside the placed section.
func (s *Section) Contains(addr uint32) bool {
	return s.Placed() && addr >= s.LoadAddress && uint64(addr) < s.End()
}

// Identity holds the fields cross-checked against the running hardware.
// A zero field in an image matches any hardware value.
type Identity struct {
	UniproMID uint32
	UniproPID uint32
	AraVID    uint32
	AraPID    uint32
}

// Match checks the image identity id against the hardware identity hw.
func (id Identity) Match(hw Identity) error {
	for _, f := range []struct {
		name      string
		image, hw uint32
	}{
		{"UniproMID", id.UniproMID, hw.UniproMID},
		{"UniproPID", id.UniproPID, hw.UniproPID},
		{"AraVID", id.AraVID, hw.AraVID},
		{"AraPID", id.AraPID, hw.AraPID},
	} {
		if f.image != 0 && f.image != f.hw {
			return &ErrIdentityMismatch{Field: f.name, Image: f.image, Hardware: f.hw}
		}
	}
	return nil
}

// Fixed is the binary layout of the header up to the section table.
type Fixed struct {
	Sentinel     [SentinelSize]byte
	HeaderSize   uint32
	Timestamp    [TimestampSize]byte
	Name         [NameSize]byte
	PackageType  uint32
	StartAddress uint32
	Identity     Identity
	Reserved     [NumReserved]uint32
}

// Header is a decoded TFTF header. Sections never includes the end marker.
type Header struct {
	Fixed
	Sections []Section
}

// NewHeader returns an empty header of the default size.
func NewHeader(packageType uint32, name string) (*Header, error) {
	h := &Header{}
	h.Sentinel = Sentinel
	h.HeaderSize = HeaderSizeDefault
	h.PackageType = packageType
	if err := SetCString(h.Name[:], name); err != nil {
		return nil, err
	}
	return h, nil
}

// NameString returns the package name.
func (h *Header) NameString() string {
	return CString(h.Name[:])
}

// TimestampString returns the build timestamp.
func (h *Header) TimestampString() string {
	return CString(h.Timestamp[:])
}

// PayloadLength is the number of bytes following the header.
func (h *Header) PayloadLength() uint64 {
	var n uint64
	for _, s := range h.Sections {
		n += uint64(s.Length)
	}
	return n
}

// PayloadOffset returns the offset of section i relative to the start of the
// header.
func (h *Header) PayloadOffset(i int) uint64 {
	off := uint64(h.HeaderSize)
	for _, s := range h.Sections[:i] {
		off += uint64(s.Length)
	}
	return off
}

var printable = runes.Remove(runes.Predicate(func(r rune) bool {
	return !unicode.IsPrint(r)
}))

// CString returns the NUL terminated text held in a fixed size field, with
// non-printable characters dropped.
func CString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	s, _, err := transform.String(printable, string(b))
	if err != nil {
		return ""
	}
	return s
}

// SetCString stores s NUL padded in the fixed size field dst.
func SetCString(dst []byte, s string) error {
	if len(s) > len(dst) {
		return fmt.Errorf("%q is longer than %d bytes", s, len(dst))
	}
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}
