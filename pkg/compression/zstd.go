// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdMinMemory keeps the decoder memory bound above the smallest window a
// frame may declare.
const zstdMinMemory = 1 << 20

// ZSTD implements Compressor with Zstandard frames.
type ZSTD struct{}

// Name returns the type of compression employed.
func (c *ZSTD) Name() string {
	return "ZSTD"
}

// Decode decodes a byte slice of ZSTD data.
func (c *ZSTD) Decode(encodedData []byte) ([]byte, error) {
	d, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.DecodeAll(encodedData, nil)
}

// NewReader implements Compressor. Frames declaring more content or a
// larger window than limit, or zstdMinMemory if that is larger, are refused
// before anything is decoded.
func (c *ZSTD) NewReader(r io.Reader, limit uint64) (io.ReadCloser, error) {
	if limit < zstdMinMemory {
		limit = zstdMinMemory
	}
	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(limit))
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

// Encode encodes a byte slice with ZSTD.
func (c *ZSTD) Encode(decodedData []byte) ([]byte, error) {
	e, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer e.Close()
	return e.EncodeAll(decodedData, nil), nil
}
