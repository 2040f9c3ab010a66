// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"bytes"
	"math/rand"
	"reflect"
	"runtime"
	"testing"
)

func testData() []byte {
	r := rand.New(rand.NewSource(1))
	data := make([]byte, 64<<10)
	r.Read(data[:16<<10])
	copy(data[16<<10:], bytes.Repeat([]byte("second stage "), 2000))
	return data
}

var classes = []struct {
	class Class
	name  string
}{
	{ClassLZMA, "LZMA"},
	{ClassLZ4, "LZ4"},
	{ClassZSTD, "ZSTD"},
	{ClassZLIB, "ZLIB"},
}

func TestEncodeDecode(t *testing.T) {
	want := testData()
	for _, tt := range classes {
		t.Run(tt.name, func(t *testing.T) {
			compressor := CompressorFromClass(tt.class)
			if compressor == nil {
				t.Fatalf("no compressor for class %d", tt.class)
			}
			if compressor.Name() != tt.name {
				t.Fatalf("compressor name %q, want %q", compressor.Name(), tt.name)
			}

			encoded, err := compressor.Encode(want)
			if err != nil {
				t.Fatal(err)
			}
			if len(encoded) >= len(want) {
				t.Errorf("encoded %d bytes into %d", len(want), len(encoded))
			}
			got, err := compressor.Decode(encoded)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("decompressed image did not match, (got: %d bytes, want: %d bytes)", len(got), len(want))
			}
		})
	}
}

func TestExpand(t *testing.T) {
	want := testData()
	for _, tt := range classes {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := CompressorFromClass(tt.class).Encode(want)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Expand(tt.class, encoded, uint32(len(want)))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, want) {
				t.Fatal("expanded data did not match")
			}
			if _, err := Expand(tt.class, encoded, uint32(len(want)-1)); err == nil {
				t.Error("expected a size mismatch error")
			}
			if _, err := Expand(tt.class, []byte("definitely not compressed"), uint32(len(want))); err == nil {
				t.Error("expected a decode error")
			}
		})
	}
}

func TestExpandStopsPastSize(t *testing.T) {
	const inflated = 40 << 20
	for _, tt := range classes {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := CompressorFromClass(tt.class).Encode(make([]byte, inflated))
			if err != nil {
				t.Fatal(err)
			}

			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err = Expand(tt.class, encoded, 256)
			runtime.ReadMemStats(&after)

			if err == nil {
				t.Fatal("expected an error for a section expanding past its size")
			}
			if grew := after.TotalAlloc - before.TotalAlloc; grew >= inflated/2 {
				t.Errorf("allocated %d bytes to reject a 256 byte section", grew)
			}
		})
	}
}

func TestUnknownClass(t *testing.T) {
	if c := CompressorFromClass(Class(9)); c != nil {
		t.Errorf("got compressor %s for an unknown class", c.Name())
	}
	if _, err := Expand(Class(9), nil, 0); err == nil {
		t.Error("expected an error for an unknown class")
	}
	if s := Class(9).String(); s != "Class(9)" {
		t.Errorf("got %q", s)
	}
}

func TestParseClass(t *testing.T) {
	for _, tt := range classes {
		c, err := ParseClass(tt.name)
		if err != nil {
			t.Fatal(err)
		}
		if c != tt.class {
			t.Errorf("ParseClass(%q) = %d, want %d", tt.name, c, tt.class)
		}
	}
	if _, err := ParseClass("brotli"); err == nil {
		t.Error("expected an error")
	}
}
