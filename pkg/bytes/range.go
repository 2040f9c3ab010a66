// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bytes has helpers for address ranges and raw byte buffers.
package bytes

import (
	"fmt"
	"sort"
	"strings"
)

// Range is a half open address range [Offset, Offset+Length).
type Range struct {
	Offset uint64
	Length uint64
}

func (r Range) String() string {
	return fmt.Sprintf("0x%x..0x%x", r.Offset, r.End())
}

// End returns the first offset past the range.
func (r Range) End() uint64 {
	return r.Offset + r.Length
}

// Intersect returns true if ranges "r" and "cmp" share at least one byte.
// Empty ranges intersect nothing.
func (r Range) Intersect(cmp Range) bool {
	if r.Length == 0 || cmp.Length == 0 {
		return false
	}
	return r.Offset < cmp.End() && cmp.Offset < r.End()
}

// Contains returns true if "inner" lies entirely inside "r".
func (r Range) Contains(inner Range) bool {
	return inner.Offset >= r.Offset && inner.End() <= r.End()
}

// Ranges is a helper to manipulate multiple `Range`-s at once
type Ranges []Range

func (s Ranges) String() string {
	r := make([]string, 0, len(s))
	for _, oneRange := range s {
		r = append(r, oneRange.String())
	}
	return `[` + strings.Join(r, `, `) + `]`
}

// FirstOverlap finds two ranges sharing a byte. It returns their indices
// in s, the one starting first (or appearing first for equal offsets)
// as a. s itself is not reordered.
func (s Ranges) FirstOverlap() (a, b int, found bool) {
	order := make([]int, 0, len(s))
	for i := range s {
		if s[i].Length != 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return s[order[i]].Offset < s[order[j]].Offset
	})

	// widest is the range reaching furthest so far.
	widest := -1
	for _, i := range order {
		if widest >= 0 && s[widest].End() > s[i].Offset {
			return widest, i, true
		}
		if widest < 0 || s[i].End() > s[widest].End() {
			widest = i
		}
	}
	return 0, 0, false
}
