// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

const zlibCompressionLevel = 9

// ZLIB implements Compressor with zlib streams.
type ZLIB struct{}

// Name returns the type of compression employed.
func (c *ZLIB) Name() string {
	return "ZLIB"
}

// Decode decodes a byte slice of ZLIB data.
func (c *ZLIB) Decode(encodedData []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(encodedData))
	if err != nil {
		return nil, err
	}
	decodedData, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return nil, err
	}
	return decodedData, nil
}

// NewReader implements Compressor.
func (c *ZLIB) NewReader(r io.Reader, limit uint64) (io.ReadCloser, error) {
	return zlib.NewReader(r)
}

// Encode encodes a byte slice with ZLIB.
func (c *ZLIB) Encode(decodedData []byte) ([]byte, error) {
	var encodedData bytes.Buffer
	w, err := zlib.NewWriterLevel(&encodedData, zlibCompressionLevel)
	if err != nil {
		return nil, err
	}
	_, err = w.Write(decodedData)
	w.Close()
	if err != nil {
		return nil, err
	}
	return encodedData.Bytes(), nil
}
