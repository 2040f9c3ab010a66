// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memory models the RAM window images are loaded into.
package memory

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/linuxboot/s2l/pkg/bytes"
)

// Window is a contiguous RAM region at a fixed base address. Every write is
// bounds checked against the window.
type Window struct {
	base   uint32
	data   []byte
	writes int
}

// NewWindow returns a zeroed window of size bytes at base.
func NewWindow(base uint32, size uint32) (*Window, error) {
	if uint64(base)+uint64(size) > 1<<32 {
		return nil, fmt.Errorf("window %#x+%#x wraps the address space", base, size)
	}
	return &Window{base: base, data: make([]byte, size)}, nil
}

// Base returns the first address of the window.
func (w *Window) Base() uint32 {
	return w.base
}

// Size returns the window size in bytes.
func (w *Window) Size() uint32 {
	return uint32(len(w.data))
}

// Range returns the addresses covered by the window.
func (w *Window) Range() bytes.Range {
	return bytes.Range{Offset: uint64(w.base), Length: uint64(len(w.data))}
}

// Contains reports whether [addr, addr+length) lies inside the window.
func (w *Window) Contains(addr uint32, length uint32) bool {
	return w.Range().Contains(bytes.Range{Offset: uint64(addr), Length: uint64(length)})
}

// WriteAt copies p to addr.
func (w *Window) WriteAt(addr uint32, p []byte) error {
	if !w.Contains(addr, uint32(len(p))) || uint64(len(p)) > uint64(len(w.data)) {
		return fmt.Errorf("write of %s at %#x outside RAM window %#x..%#x",
			humanize.IBytes(uint64(len(p))), addr, w.base, uint64(w.base)+uint64(len(w.data)))
	}
	copy(w.data[addr-w.base:], p)
	w.writes++
	return nil
}

// ReadAt returns a copy of length bytes at addr.
func (w *Window) ReadAt(addr uint32, length uint32) ([]byte, error) {
	if !w.Contains(addr, length) {
		return nil, fmt.Errorf("read of %#x bytes at %#x outside RAM window", length, addr)
	}
	out := make([]byte, length)
	copy(out, w.data[addr-w.base:])
	return out, nil
}

// Cleared reports whether the window holds only zeros.
func (w *Window) Cleared() bool {
	return bytes.IsZeroFilled(w.data)
}

// Writes returns how many writes reached the window since the last Clear.
func (w *Window) Writes() int {
	return w.writes
}

// Clear zeroes the window, discarding a partially loaded image.
func (w *Window) Clear() {
	for i := range w.data {
		w.data[i] = 0
	}
	w.writes = 0
}

func (w *Window) String() string {
	return fmt.Sprintf("RAM %s (%s)", w.Range(), humanize.IBytes(uint64(len(w.data))))
}
