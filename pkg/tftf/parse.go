// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/bytesextra"
)

// HeaderSize checks the sentinel at the start of prefix and returns the
// declared header size once it is known to lie within range. prefix needs at
// least PrefixSize bytes.
func HeaderSize(prefix []byte) (uint32, error) {
	if len(prefix) < PrefixSize {
		return 0, &ErrHeaderSizeOutOfRange{Size: uint32(len(prefix)), Buffer: len(prefix)}
	}
	if !bytes.Equal(prefix[:SentinelSize], Sentinel[:]) {
		return 0, &ErrSentinelMismatch{Got: append([]byte{}, prefix[:SentinelSize]...)}
	}
	size := binary.LittleEndian.Uint32(prefix[SentinelSize:PrefixSize])
	if size < HeaderSizeMin || size > HeaderSizeMax {
		return 0, &ErrHeaderSizeOutOfRange{Size: size, Buffer: -1}
	}
	return size, nil
}

// Parse decodes the header at the start of b. b must hold at least the
// declared header size; anything after it is ignored.
//
// The section table is walked until the end marker. A table which reaches
// the end of the header without one is rejected.
func Parse(b []byte) (*Header, error) {
	size, err := HeaderSize(b)
	if err != nil {
		return nil, err
	}
	if uint64(size) > uint64(len(b)) {
		return nil, &ErrHeaderSizeOutOfRange{Size: size, Buffer: len(b)}
	}

	r := bytesextra.NewReadWriteSeeker(b[:size])
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.Fixed); err != nil {
		return nil, fmt.Errorf("unable to read the fixed header: %w", err)
	}

	limit := MaxSections(size)
	for i := 0; ; i++ {
		if i >= limit {
			return nil, &ErrSectionOutOfRange{Index: i, Reason: "section table is not terminated inside the header"}
		}
		var s Section
		if err := binary.Read(r, binary.LittleEndian, &s); err != nil {
			return nil, fmt.Errorf("unable to read section descriptor %d: %w", i, err)
		}
		if s.Type == SectionEnd {
			break
		}
		h.Sections = append(h.Sections, s)
	}
	return &h, nil
}

// CheckPackageType checks the header against the element type it was located
// as.
func (h *Header) CheckPackageType(expected uint32) error {
	if h.PackageType != expected {
		return &ErrPackageTypeMismatch{Expected: expected, Actual: h.PackageType}
	}
	return nil
}

// Validate checks the section table for structural faults and returns all of
// them. It does not look at payloads or identity fields.
func (h *Header) Validate() error {
	var result *multierror.Error
	signed := false
	for i := range h.Sections {
		s := &h.Sections[i]
		if !s.Type.Known() || s.Type == SectionEnd {
			result = multierror.Append(result, &ErrUnknownSectionType{Index: i, Type: s.Type})
			continue
		}
		if !s.Type.Hashed() {
			signed = true
		} else if signed {
			result = multierror.Append(result, &ErrSectionOrder{Index: i, Type: s.Type})
		}
		if !s.Type.Compressed() && s.ExpandedLength != s.Length {
			result = multierror.Append(result, &ErrSectionOutOfRange{
				Index:  i,
				Reason: fmt.Sprintf("expanded length %#x differs from length %#x", s.ExpandedLength, s.Length),
			})
		}
		if s.Type == SectionSignature && s.Length < SignatureBlockSize {
			result = multierror.Append(result, &ErrSectionOutOfRange{
				Index:  i,
				Reason: fmt.Sprintf("signature section of %d bytes is shorter than %d", s.Length, SignatureBlockSize),
			})
		}
		if s.Placed() && s.End() > math.MaxUint32+1 {
			result = multierror.Append(result, &ErrSectionOutOfRange{
				Index:  i,
				Reason: fmt.Sprintf("load range %#x+%#x wraps the address space", s.LoadAddress, s.ExpandedLength),
			})
		}
	}
	return result.ErrorOrNil()
}
