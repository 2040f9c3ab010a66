// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fabric

import (
	"fmt"
	"io"

	"github.com/linuxboot/s2l/pkg/ffff"
)

// DefaultChunkSize is the DATA payload size used by Serve.
const DefaultChunkSize = 4096

// Serve is the peer side of the exchange. It waits for READY, pushes image
// in chunks of chunkSize bytes and returns the Result reported by the
// loader along with the package type it asked for.
//
// A loader may report its result before taking the whole image. The caller
// closes conn to release an unfinished push.
func Serve(conn io.ReadWriter, image []byte, chunkSize int) (Result, ffff.ElementType, error) {
	if chunkSize <= 0 || chunkSize > MaxPayload {
		chunkSize = DefaultChunkSize
	}
	op, err := ReadOperation(conn)
	if err != nil {
		return ResultFailed, 0, fmt.Errorf("waiting for READY: %w", err)
	}
	if op.Type != TypeReady || len(op.Payload) < 1 {
		return ResultFailed, 0, fmt.Errorf("expected READY, got operation %#02x", op.Type)
	}
	requested := ffff.ElementType(op.Payload[0])

	go func() {
		var id uint16
		for off := 0; off < len(image); off += chunkSize {
			end := off + chunkSize
			if end > len(image) {
				end = len(image)
			}
			id++
			if err := WriteOperation(conn, &Operation{ID: id, Type: TypeData, Payload: image[off:end]}); err != nil {
				return
			}
		}
	}()

	op, err = ReadOperation(conn)
	if err != nil {
		return ResultFailed, requested, fmt.Errorf("waiting for RESULT: %w", err)
	}
	if op.Type != TypeResult || len(op.Payload) < 1 {
		return ResultFailed, requested, fmt.Errorf("expected RESULT, got operation %#02x", op.Type)
	}
	return Result(op.Payload[0]), requested, nil
}
