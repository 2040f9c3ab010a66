// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// Locate returns the first element of type t in the directory of a flash
// device of the given size. It only reads.
func Locate(r io.ReaderAt, size int64, t ElementType) (*Element, error) {
	h, err := Read(r, size)
	if err != nil {
		return nil, err
	}
	return h.Locate(size, t)
}

// Locate scans the elements in stored order and returns a copy of the first
// one of type t. Every element scanned must lie inside the flash.
func (h *Header) Locate(size int64, t ElementType) (*Element, error) {
	limit := uint64(size)
	if h.FlashCapacity != 0 && uint64(h.FlashCapacity) < limit {
		limit = uint64(h.FlashCapacity)
	}
	for i := range h.Elements {
		e := h.Elements[i]
		if e.End() > limit {
			return nil, &ErrDirectoryCorrupt{
				Offset: h.Offset,
				Reason: fmt.Sprintf("element %d (%s) spans %#x..%#x, flash ends at %#x", i, e.Type, e.Location, e.End(), limit),
			}
		}
		if e.Type == t {
			return &e, nil
		}
	}
	return nil, &ErrElementNotFound{Type: t}
}

// Read returns the directory copy to use: the valid copy with the highest
// generation. If the first copy is unusable the power of two offsets up to
// the largest supported erase block are tried for the second one.
func Read(r io.ReaderAt, size int64) (*Header, error) {
	best, err := readCopy(r, size, 0)
	var corrupt *ErrDirectoryCorrupt
	if err != nil && !errors.As(err, &corrupt) {
		return nil, err
	}

	var candidates []int64
	if best != nil {
		candidates = append(candidates, best.SecondCopyOffset())
	} else {
		for off := int64(HeaderSizeMin); off <= maxEraseBlockSize && off < size; off <<= 1 {
			candidates = append(candidates, off)
		}
	}
	for _, off := range candidates {
		h, cerr := readCopy(r, size, off)
		if cerr != nil {
			continue
		}
		if best == nil || h.Generation > best.Generation {
			best = h
		}
		break
	}
	if best == nil {
		return nil, err
	}
	return best, nil
}

func readCopy(r io.ReaderAt, size int64, off int64) (*Header, error) {
	if off+HeaderSizeMin > size {
		return nil, &ErrDirectoryCorrupt{Offset: off, Reason: fmt.Sprintf("flash of %#x bytes is too small", size)}
	}
	prefix := make([]byte, FixedSize)
	if _, err := r.ReadAt(prefix, off); err != nil {
		return nil, fmt.Errorf("unable to read the flash directory at %#x: %w", off, err)
	}
	var fixed Fixed
	if err := binary.Read(bytes.NewReader(prefix), binary.LittleEndian, &fixed); err != nil {
		return nil, err
	}
	if fixed.Sentinel != Sentinel {
		return nil, &ErrDirectoryCorrupt{Offset: off, Reason: "bad leading sentinel"}
	}
	if fixed.HeaderSize < HeaderSizeMin || fixed.HeaderSize > HeaderSizeMax {
		return nil, &ErrDirectoryCorrupt{Offset: off, Reason: fmt.Sprintf("header size %d out of range", fixed.HeaderSize)}
	}
	if off+int64(fixed.HeaderSize) > size {
		return nil, &ErrDirectoryCorrupt{Offset: off, Reason: fmt.Sprintf("header size %d runs past the flash", fixed.HeaderSize)}
	}

	buf := make([]byte, fixed.HeaderSize)
	if _, err := r.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("unable to read the flash directory at %#x: %w", off, err)
	}
	if !bytes.Equal(buf[len(buf)-SentinelSize:], Sentinel[:]) {
		return nil, &ErrDirectoryCorrupt{Offset: off, Reason: "bad trailing sentinel"}
	}

	h := &Header{Fixed: fixed, Offset: off}
	er := bytesextra.NewReadWriteSeeker(buf[FixedSize : len(buf)-SentinelSize])
	limit := MaxElements(fixed.HeaderSize)
	for i := 0; ; i++ {
		if i >= limit {
			return nil, &ErrDirectoryCorrupt{Offset: off, Reason: "element table has no end marker"}
		}
		var e Element
		if err := binary.Read(er, binary.LittleEndian, &e); err != nil {
			return nil, err
		}
		if e.Type == ElementEnd {
			break
		}
		h.Elements = append(h.Elements, e)
	}
	return h, nil
}

// MarshalBinary encodes the header into exactly HeaderSize bytes.
func (h *Header) MarshalBinary() ([]byte, error) {
	if h.HeaderSize < HeaderSizeMin || h.HeaderSize > HeaderSizeMax {
		return nil, fmt.Errorf("header size %d out of range", h.HeaderSize)
	}
	if len(h.Elements)+1 > MaxElements(h.HeaderSize) {
		return nil, fmt.Errorf("%d elements do not fit a %d byte header", len(h.Elements), h.HeaderSize)
	}
	b := make([]byte, h.HeaderSize)
	w := bytesextra.NewReadWriteSeeker(b)
	fixed := h.Fixed
	fixed.Sentinel = Sentinel
	if err := binary.Write(w, binary.LittleEndian, &fixed); err != nil {
		return nil, err
	}
	for i := range h.Elements {
		if err := binary.Write(w, binary.LittleEndian, &h.Elements[i]); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, &Element{Type: ElementEnd}); err != nil {
		return nil, err
	}
	copy(b[len(b)-SentinelSize:], Sentinel[:])
	return b, nil
}
