// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"bytes"
	"fmt"

	"github.com/linuxboot/s2l/pkg/tftf"
)

// Builder lays out a flash image: the directory, its optional second copy
// and the element payloads, each element starting on an erase block.
type Builder struct {
	header    Header
	payloads  [][]byte
	next      uint64
	redundant bool
	optErr    error
}

// Option configures a Builder.
type Option func(*Builder)

// WithEraseBlockSize sets the erase block size, 4 KiB by default.
func WithEraseBlockSize(n uint32) Option {
	return func(b *Builder) { b.header.EraseBlockSize = n }
}

// WithHeaderSize sets the directory header size, HeaderSizeMin by default.
func WithHeaderSize(n uint32) Option {
	return func(b *Builder) { b.header.HeaderSize = n }
}

// WithGeneration sets the header generation number.
func WithGeneration(g uint32) Option {
	return func(b *Builder) { b.header.Generation = g }
}

// WithTimestamp sets the build timestamp.
func WithTimestamp(ts string) Option {
	return func(b *Builder) {
		if err := tftf.SetCString(b.header.Timestamp[:], ts); err != nil {
			b.optErr = fmt.Errorf("timestamp: %w", err)
		}
	}
}

// WithRedundantCopy also writes the second header copy.
func WithRedundantCopy() Option {
	return func(b *Builder) { b.redundant = true }
}

// NewBuilder returns a Builder for a flash of the given capacity.
func NewBuilder(name string, capacity uint32, opts ...Option) (*Builder, error) {
	b := &Builder{}
	b.header.FlashCapacity = capacity
	b.header.EraseBlockSize = 4096
	b.header.HeaderSize = HeaderSizeMin
	for _, opt := range opts {
		opt(b)
	}
	if b.optErr != nil {
		return nil, b.optErr
	}
	if err := tftf.SetCString(b.header.Name[:], name); err != nil {
		return nil, err
	}
	eb := b.header.EraseBlockSize
	if eb == 0 || eb&(eb-1) != 0 {
		return nil, fmt.Errorf("erase block size %#x is not a power of two", eb)
	}
	if b.header.HeaderSize < HeaderSizeMin || b.header.HeaderSize > HeaderSizeMax {
		return nil, fmt.Errorf("header size %d out of range", b.header.HeaderSize)
	}
	b.next = 2 * uint64(b.header.SecondCopyOffset())
	return b, nil
}

// Add places data at the next free erase block.
func (b *Builder) Add(t ElementType, id uint32, data []byte) (*Element, error) {
	return b.AddAt(t, id, uint32(b.next), data)
}

// AddAt places data at a fixed location.
func (b *Builder) AddAt(t ElementType, id uint32, location uint32, data []byte) (*Element, error) {
	if t == ElementEnd {
		return nil, fmt.Errorf("cannot add an end marker")
	}
	e := Element{Type: t, ID: id, Location: location, Length: uint32(len(data))}
	if uint64(location) < 2*uint64(b.header.SecondCopyOffset()) {
		return nil, fmt.Errorf("location %#x overlaps the directory", location)
	}
	if e.End() > uint64(b.header.FlashCapacity) {
		return nil, fmt.Errorf("element %#x..%#x exceeds the %#x byte flash", e.Location, e.End(), b.header.FlashCapacity)
	}
	for _, other := range b.header.Elements {
		if uint64(e.Location) < other.End() && uint64(other.Location) < e.End() {
			return nil, fmt.Errorf("element at %#x overlaps the %s element at %#x", location, other.Type, other.Location)
		}
	}
	b.header.Elements = append(b.header.Elements, e)
	b.payloads = append(b.payloads, data)

	eb := uint64(b.header.EraseBlockSize)
	if end := (e.End() + eb - 1) / eb * eb; end > b.next {
		b.next = end
	}
	return &e, nil
}

// Build returns the flash image, erased bytes set to 0xFF.
func (b *Builder) Build() ([]byte, error) {
	out := bytes.Repeat([]byte{0xFF}, int(b.header.FlashCapacity))
	h := b.header
	h.FlashImageLength = uint32(b.next)
	if uint64(h.FlashImageLength) > uint64(h.FlashCapacity) {
		h.FlashImageLength = h.FlashCapacity
	}
	hdr, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if len(hdr) > len(out) {
		return nil, fmt.Errorf("flash of %#x bytes cannot hold the directory", len(out))
	}
	copy(out, hdr)
	if b.redundant {
		second := h.SecondCopyOffset()
		if second+int64(len(hdr)) > int64(len(out)) {
			return nil, fmt.Errorf("flash of %#x bytes cannot hold the second directory", len(out))
		}
		copy(out[second:], hdr)
	}
	for i, e := range h.Elements {
		copy(out[e.Location:], b.payloads[i])
	}
	return out, nil
}
