// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compression implements the codecs of compressed TFTF sections.
//
// The 24-bit class of a compressed section descriptor selects the codec.
package compression

import (
	"bytes"
	"fmt"
	"io"
)

// Compressor defines a single compression scheme (such as LZMA).
type Compressor interface {
	// Name is typically the name of a class.
	Name() string

	// Decode and Encode obey "x == Decode(Encode(x))".
	Decode(encodedData []byte) ([]byte, error)
	Encode(decodedData []byte) ([]byte, error)

	// NewReader returns a streaming decoder over r. limit is a hint of the
	// most bytes the caller will read; decoders which allocate up front
	// bound their memory by it.
	NewReader(r io.Reader, limit uint64) (io.ReadCloser, error)
}

// Class is the section class of a compressed section.
type Class uint32

// Known classes.
const (
	ClassLZMA Class = 0
	ClassLZ4  Class = 1
	ClassZSTD Class = 2
	ClassZLIB Class = 3
)

func (c Class) String() string {
	if comp := CompressorFromClass(c); comp != nil {
		return comp.Name()
	}
	return fmt.Sprintf("Class(%d)", uint32(c))
}

// ParseClass is the inverse of Class.String.
func ParseClass(s string) (Class, error) {
	for _, c := range []Class{ClassLZMA, ClassLZ4, ClassZSTD, ClassZLIB} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

// CompressorFromClass returns the Compressor for a section class, or nil.
func CompressorFromClass(c Class) Compressor {
	switch c {
	case ClassLZMA:
		return &LZMA{}
	case ClassLZ4:
		return &LZ4{}
	case ClassZSTD:
		return &ZSTD{}
	case ClassZLIB:
		return &ZLIB{}
	}
	return nil
}

// Expand decodes a section of class c which must expand to exactly size
// bytes. Decoding stops one byte past size, so a section claiming a small
// expanded length never inflates further than that.
func Expand(c Class, encodedData []byte, size uint32) ([]byte, error) {
	comp := CompressorFromClass(c)
	if comp == nil {
		return nil, fmt.Errorf("unknown compression class %d", uint32(c))
	}
	limit := uint64(size) + 1
	r, err := comp.NewReader(bytes.NewReader(encodedData), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", comp.Name(), err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", comp.Name(), err)
	}
	if uint64(len(out)) > uint64(size) {
		return nil, fmt.Errorf("%s: expands past the expected %d bytes", comp.Name(), size)
	}
	if uint64(len(out)) != uint64(size) {
		return nil, fmt.Errorf("%s: expanded to %d bytes, expected %d", comp.Name(), len(out), size)
	}
	return out, nil
}
