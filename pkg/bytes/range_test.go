// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytes

import (
	"testing"
)

func TestRangeIntersect(t *testing.T) {
	for _, tt := range []struct {
		name string
		a, b Range
		want bool
	}{
		{"disjoint", Range{0, 4}, Range{8, 4}, false},
		{"adjacent", Range{0, 4}, Range{4, 4}, false},
		{"overlap", Range{0, 5}, Range{4, 4}, true},
		{"inside", Range{0, 16}, Range{4, 4}, true},
		{"empty", Range{4, 0}, Range{0, 16}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersect(tt.b); got != tt.want {
				t.Errorf("%s.Intersect(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Intersect(tt.a); got != tt.want {
				t.Errorf("%s.Intersect(%s) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestRangeContains(t *testing.T) {
	window := Range{Offset: 0x1000, Length: 0x1000}
	if !window.Contains(Range{0x1000, 0x1000}) {
		t.Error("the window must contain itself")
	}
	if window.Contains(Range{0x1ff0, 0x11}) {
		t.Error("range past the end is contained")
	}
	if window.Contains(Range{0xfff, 1}) {
		t.Error("range before the start is contained")
	}
}

func TestRangesFirstOverlap(t *testing.T) {
	for _, tt := range []struct {
		name   string
		ranges Ranges
		a, b   int
		found  bool
	}{
		{"none", Ranges{{0x2000, 0x100}, {0x1000, 0x100}}, 0, 0, false},
		{"adjacent", Ranges{{0x1000, 0x100}, {0x1100, 0x100}}, 0, 0, false},
		{"unsorted", Ranges{{0x1080, 0x100}, {0x1000, 0x100}}, 1, 0, true},
		{"long range over a short one", Ranges{{0x1000, 0x1000}, {0x1100, 0x10}, {0x1800, 0x10}}, 0, 1, true},
		{"hidden behind a short one", Ranges{{0x1000, 0x10}, {0x0, 0x2000}}, 1, 0, true},
		{"empty ranges ignored", Ranges{{0x1000, 0}, {0x1000, 0x10}}, 0, 0, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			a, b, found := tt.ranges.FirstOverlap()
			if found != tt.found || a != tt.a || b != tt.b {
				t.Errorf("%s.FirstOverlap() = %d, %d, %v; want %d, %d, %v",
					tt.ranges, a, b, found, tt.a, tt.b, tt.found)
			}
		})
	}
}

func TestIsZeroFilled(t *testing.T) {
	b := make([]byte, 37)
	if !IsZeroFilled(b) || !IsZeroFilled(nil) {
		t.Fatal("zero buffer reported as non zero")
	}
	b[36] = 1
	if IsZeroFilled(b) {
		t.Fatal("non zero buffer reported as zero")
	}
}
