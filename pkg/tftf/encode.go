// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"encoding/binary"
	"fmt"

	"github.com/xaionaro-go/bytesextra"
)

// MarshalBinary encodes the header into exactly HeaderSize bytes, end marker
// included. The unused tail of the header is zero.
func (h *Header) MarshalBinary() ([]byte, error) {
	if h.HeaderSize < HeaderSizeMin || h.HeaderSize > HeaderSizeMax {
		return nil, &ErrHeaderSizeOutOfRange{Size: h.HeaderSize, Buffer: -1}
	}
	if limit := MaxSections(h.HeaderSize); len(h.Sections)+1 > limit {
		return nil, fmt.Errorf("%d sections and an end marker do not fit a %d byte header (max %d)",
			len(h.Sections), h.HeaderSize, limit)
	}

	b := make([]byte, h.HeaderSize)
	w := bytesextra.NewReadWriteSeeker(b)
	if err := binary.Write(w, binary.LittleEndian, &h.Fixed); err != nil {
		return nil, err
	}
	for i := range h.Sections {
		if h.Sections[i].Type == SectionEnd {
			return nil, fmt.Errorf("section %d is an end marker", i)
		}
		if err := binary.Write(w, binary.LittleEndian, &h.Sections[i]); err != nil {
			return nil, err
		}
	}
	end := Section{Type: SectionEnd}
	if err := binary.Write(w, binary.LittleEndian, &end); err != nil {
		return nil, err
	}
	return b, nil
}

// Image is a header together with the on-disk bytes of every section, in
// table order.
type Image struct {
	Header   *Header
	Payloads [][]byte
}

// AddSection appends a section and its payload, setting the on-disk length.
func (img *Image) AddSection(s Section, payload []byte) {
	s.Length = uint32(len(payload))
	img.Header.Sections = append(img.Header.Sections, s)
	img.Payloads = append(img.Payloads, payload)
}

// MarshalBinary encodes the header followed by the payloads.
func (img *Image) MarshalBinary() ([]byte, error) {
	if len(img.Payloads) != len(img.Header.Sections) {
		return nil, fmt.Errorf("%d payloads for %d sections", len(img.Payloads), len(img.Header.Sections))
	}
	hdr, err := img.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, uint64(len(hdr))+img.Header.PayloadLength())
	out = append(out, hdr...)
	for i, p := range img.Payloads {
		if uint64(len(p)) != uint64(img.Header.Sections[i].Length) {
			return nil, &ErrSectionOutOfRange{
				Index:  i,
				Reason: fmt.Sprintf("payload is %d bytes, descriptor says %d", len(p), img.Header.Sections[i].Length),
			}
		}
		out = append(out, p...)
	}
	return out, nil
}

// ParseImage decodes a complete image held in memory.
func ParseImage(b []byte) (*Image, error) {
	h, err := Parse(b)
	if err != nil {
		return nil, err
	}
	img := &Image{Header: h}
	off := uint64(h.HeaderSize)
	for i, s := range h.Sections {
		end := off + uint64(s.Length)
		if end > uint64(len(b)) {
			return nil, &ErrSectionOutOfRange{
				Index:  i,
				Reason: fmt.Sprintf("payload %#x..%#x past the end of the %#x byte image", off, end, len(b)),
			}
		}
		img.Payloads = append(img.Payloads, b[off:end])
		off = end
	}
	return img, nil
}
