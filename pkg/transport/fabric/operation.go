// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fabric

import (
	"encoding/binary"
	"fmt"
	"io"
)

// OperationHeaderSize is the size of the header in front of every
// operation on the link.
const OperationHeaderSize = 8

// MaxPayload is the largest operation payload.
const MaxPayload = 0xFFFF - OperationHeaderSize

// Operation is one framed message on the fabric link. Responses set the high
// bit of Type.
type Operation struct {
	ID      uint16
	Type    uint8
	Result  uint8
	Payload []byte
}

// ResponseFlag marks a response operation type.
const ResponseFlag = 0x80

type operationHeader struct {
	Size   uint16
	ID     uint16
	Type   uint8
	Result uint8
	Pad    uint16
}

// ReadOperation reads one operation from r.
func ReadOperation(r io.Reader) (*Operation, error) {
	var hdr operationHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Size < OperationHeaderSize {
		return nil, fmt.Errorf("operation size %d is smaller than its header", hdr.Size)
	}
	op := &Operation{
		ID:      hdr.ID,
		Type:    hdr.Type,
		Result:  hdr.Result,
		Payload: make([]byte, hdr.Size-OperationHeaderSize),
	}
	if _, err := io.ReadFull(r, op.Payload); err != nil {
		return nil, fmt.Errorf("operation %#02x payload: %w", op.Type, err)
	}
	return op, nil
}

// WriteOperation writes op to w as a single Write call.
func WriteOperation(w io.Writer, op *Operation) error {
	if len(op.Payload) > MaxPayload {
		return fmt.Errorf("operation payload of %d bytes exceeds %d", len(op.Payload), MaxPayload)
	}
	b := make([]byte, OperationHeaderSize+len(op.Payload))
	binary.LittleEndian.PutUint16(b[0:], uint16(len(b)))
	binary.LittleEndian.PutUint16(b[2:], op.ID)
	b[4] = op.Type
	b[5] = op.Result
	copy(b[OperationHeaderSize:], op.Payload)
	_, err := w.Write(b)
	return err
}
