// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/s2l/pkg/status"
)

const testCapacity = 64 << 10

// readRecorder is an io.ReaderAt which remembers the furthest byte read.
type readRecorder struct {
	*bytes.Reader
	furthest int64
}

func (r *readRecorder) ReadAt(p []byte, off int64) (int, error) {
	if end := off + int64(len(p)); end > r.furthest {
		r.furthest = end
	}
	return r.Reader.ReadAt(p, off)
}

func buildFlash(t *testing.T, types []ElementType, opts ...Option) []byte {
	b, err := NewBuilder("test-flash", testCapacity, opts...)
	require.NoError(t, err)
	for i, typ := range types {
		_, err := b.Add(typ, uint32(i), bytes.Repeat([]byte{byte(i + 1)}, 100))
		require.NoError(t, err)
	}
	img, err := b.Build()
	require.NoError(t, err)
	return img
}

func TestLayoutSizes(t *testing.T) {
	assert.Equal(t, FixedSize, binary.Size(Fixed{}))
	assert.Equal(t, ElementSize, binary.Size(Element{}))
	assert.Equal(t, 19, MaxElements(512))
}

func TestLocateNth(t *testing.T) {
	others := []ElementType{ElementIMSCertificate, ElementCMSCertificate, ElementData, ElementStage2Firmware}
	for n := 0; n <= len(others); n++ {
		order := append(append(append([]ElementType{}, others[:n]...), ElementStage3Firmware), others[n:]...)
		flash := buildFlash(t, order)
		e, err := Locate(bytes.NewReader(flash), int64(len(flash)), ElementStage3Firmware)
		require.NoError(t, err, "entry %d", n)
		assert.Equal(t, ElementStage3Firmware, e.Type)
		assert.Equal(t, uint32(n), e.ID)
		assert.Equal(t, uint32(100), e.Length)
		assert.Equal(t, bytes.Repeat([]byte{byte(n + 1)}, 100), flash[e.Location:e.End()])
	}
}

func TestLocateFirstMatch(t *testing.T) {
	flash := buildFlash(t, []ElementType{ElementData, ElementData})
	e, err := Locate(bytes.NewReader(flash), int64(len(flash)), ElementData)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), e.ID)
}

func TestLocateAbsent(t *testing.T) {
	flash := buildFlash(t, []ElementType{ElementStage2Firmware, ElementData})

	// A stage 3 descriptor after the end marker must not be seen.
	off := FixedSize + 3*ElementSize
	flash[off] = byte(ElementStage3Firmware)
	binary.LittleEndian.PutUint32(flash[off+8:], 100)
	binary.LittleEndian.PutUint32(flash[off+12:], 0x8000)

	r := &readRecorder{Reader: bytes.NewReader(flash)}
	_, err := Locate(r, int64(len(flash)), ElementStage3Firmware)
	var nf *ErrElementNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ElementStage3Firmware, nf.Type)
	assert.Equal(t, status.CodeElementNotFound, status.CodeOf(err))
	assert.LessOrEqual(t, r.furthest, int64(2*4096), "read an element payload")
}

func TestLocateCorrupt(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(b []byte)
		size   int64
	}{
		{
			name:   "leading_sentinel",
			mutate: func(b []byte) { b[0] = 'X' },
		},
		{
			name:   "trailing_sentinel",
			mutate: func(b []byte) { b[HeaderSizeMin-1] = 'X' },
		},
		{
			name:   "header_size",
			mutate: func(b []byte) { binary.LittleEndian.PutUint32(b[88:], 100) },
		},
		{
			name: "no_end_marker",
			mutate: func(b []byte) {
				for off := FixedSize; off+ElementSize <= HeaderSizeMin-SentinelSize; off += ElementSize {
					b[off] = byte(ElementData)
				}
			},
		},
		{
			name: "element_past_flash",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint32(b[FixedSize+12:], testCapacity-10)
			},
		},
		{
			name: "element_past_capacity",
			mutate: func(b []byte) {
				binary.LittleEndian.PutUint32(b[80:], 0x2000)
			},
		},
		{
			name:   "flash_too_small",
			mutate: func(b []byte) {},
			size:   100,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			flash := buildFlash(t, []ElementType{ElementStage3Firmware})
			tt.mutate(flash)
			size := int64(len(flash))
			if tt.size != 0 {
				size = tt.size
			}
			_, err := Locate(bytes.NewReader(flash), size, ElementStage3Firmware)
			var corrupt *ErrDirectoryCorrupt
			require.True(t, errors.As(err, &corrupt), "got %v", err)
			assert.Equal(t, status.CodeDirectoryCorrupt, status.CodeOf(err))
		})
	}
}

func TestRedundantCopy(t *testing.T) {
	flash := buildFlash(t, []ElementType{ElementStage3Firmware}, WithRedundantCopy(), WithGeneration(1))
	second := int64(4096)

	h, err := Read(bytes.NewReader(flash), int64(len(flash)))
	require.NoError(t, err)
	assert.Equal(t, int64(0), h.Offset)

	// A newer second copy wins.
	binary.LittleEndian.PutUint32(flash[second+96:], 2)
	h, err = Read(bytes.NewReader(flash), int64(len(flash)))
	require.NoError(t, err)
	assert.Equal(t, second, h.Offset)
	assert.Equal(t, uint32(2), h.Generation)

	// A broken first copy falls back to the second.
	flash[0] = 0
	h, err = Read(bytes.NewReader(flash), int64(len(flash)))
	require.NoError(t, err)
	assert.Equal(t, second, h.Offset)

	e, err := h.Locate(int64(len(flash)), ElementStage3Firmware)
	require.NoError(t, err)
	assert.Equal(t, uint32(8192), e.Location)

	// Both broken.
	flash[second] = 0
	_, err = Read(bytes.NewReader(flash), int64(len(flash)))
	assert.Equal(t, status.CodeDirectoryCorrupt, status.CodeOf(err))
}

func TestHeaderRoundTrip(t *testing.T) {
	flash := buildFlash(t, []ElementType{ElementStage2Firmware, ElementStage3Firmware},
		WithTimestamp("20260101"), WithEraseBlockSize(8192), WithHeaderSize(1024))
	h, err := Read(bytes.NewReader(flash), int64(len(flash)))
	require.NoError(t, err)
	assert.Equal(t, "test-flash", h.NameString())
	assert.Equal(t, "20260101", h.TimestampString())
	assert.Equal(t, uint32(testCapacity), h.FlashCapacity)
	assert.Equal(t, uint32(8192), h.EraseBlockSize)
	assert.Equal(t, uint32(1024), h.HeaderSize)
	require.Len(t, h.Elements, 2)
	assert.Equal(t, uint32(16384), h.Elements[0].Location)
	assert.Equal(t, uint32(24576), h.Elements[1].Location)
	assert.Equal(t, uint32(32768), h.FlashImageLength)

	b, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, flash[:1024], b)
}

func TestBuilderErrors(t *testing.T) {
	_, err := NewBuilder("x", testCapacity, WithEraseBlockSize(3000))
	assert.Error(t, err)
	_, err = NewBuilder("x", testCapacity, WithHeaderSize(100))
	assert.Error(t, err)
	_, err = NewBuilder("x", testCapacity, WithTimestamp("2026-01-01T00:00:00Z"))
	assert.ErrorContains(t, err, "timestamp")
	b, err := NewBuilder("x", testCapacity, WithTimestamp("20260101-120000"))
	require.NoError(t, err)
	assert.Equal(t, "20260101-120000", b.header.TimestampString())

	b, err = NewBuilder("x", testCapacity)
	require.NoError(t, err)
	_, err = b.AddAt(ElementData, 0, 0x100, []byte{1})
	assert.Error(t, err, "overlaps the directory")
	_, err = b.AddAt(ElementData, 0, testCapacity-1, []byte{1, 2})
	assert.Error(t, err, "past the flash")
	_, err = b.AddAt(ElementData, 0, 0x4000, make([]byte, 0x100))
	require.NoError(t, err)
	_, err = b.AddAt(ElementData, 1, 0x40ff, []byte{1})
	assert.Error(t, err, "overlap")
	_, err = b.Add(ElementEnd, 0, nil)
	assert.Error(t, err)
}

func TestParseElementType(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want ElementType
	}{
		{"Stage3Firmware", ElementStage3Firmware},
		{"Data", ElementData},
		{"2", ElementStage3Firmware},
		{"0x04", ElementCMSCertificate},
	} {
		got, err := ParseElementType(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseElementType("bogus")
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	flash := buildFlash(t, []ElementType{ElementStage2Firmware, ElementStage3Firmware})
	h, err := Read(bytes.NewReader(flash), int64(len(flash)))
	require.NoError(t, err)

	out := h.Table().Render()
	assert.Contains(t, out, `"test-flash"`)
	assert.Contains(t, out, "64 KiB")
	assert.Contains(t, out, "Stage3Firmware")
	assert.Contains(t, out, "100 B")
	assert.Contains(t, out, "0x00002000")
}
