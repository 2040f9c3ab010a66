// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bridge serves a SPI master over the fabric link, letting a peer
// inspect and read the local flash without booting.
//
// Bridge mode replaces the boot. Serve never launches anything.
package bridge

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/linuxboot/s2l/pkg/log"
	"github.com/linuxboot/s2l/pkg/transport/fabric"
)

// Device is a SPI master with its attached devices.
type Device interface {
	MasterConfig() (MasterConfig, error)
	DeviceConfig(cs uint8) (DeviceConfig, error)
	SetMode(cs uint8, mode uint8) error
	SetBitsPerWord(cs uint8, bpw uint8) error
	// SetFrequency returns the frequency actually used.
	SetFrequency(cs uint8, hz uint32) (uint32, error)
	Select(cs uint8) error
	Deselect(cs uint8) error
	// Exchange clocks n words. tx or rx may be nil.
	Exchange(tx, rx []byte, n int) error
}

var errInvalid = errors.New("invalid request")

// Serve answers operations from conn until it is closed.
func Serve(conn io.ReadWriter, dev Device) error {
	log.Infof("SPI bridge %d.%d serving", VersionMajor, VersionMinor)
	for {
		op, err := fabric.ReadOperation(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		payload, result := handle(dev, op)
		resp := &fabric.Operation{
			ID:      op.ID,
			Type:    op.Type | fabric.ResponseFlag,
			Result:  uint8(result),
			Payload: payload,
		}
		if err := fabric.WriteOperation(conn, resp); err != nil {
			return err
		}
	}
}

func handle(dev Device, op *fabric.Operation) ([]byte, Result) {
	var (
		resp interface{}
		raw  []byte
		err  error
	)
	switch op.Type {
	case TypeProtocolVersion:
		resp = VersionResponse{Major: VersionMajor, Minor: VersionMinor}
	case TypeMasterConfig:
		resp, err = dev.MasterConfig()
	case TypeDeviceConfig:
		var req DeviceConfigRequest
		if err = decode(op.Payload, &req); err == nil {
			resp, err = dev.DeviceConfig(req.ChipSelect)
		}
	case TypeTransfer:
		raw, err = transfer(dev, op.Payload)
	default:
		log.Warnf("bridge: unsupported operation %#02x", op.Type)
		return nil, ResultProtocolBad
	}
	if err != nil {
		log.Warnf("bridge: operation %#02x: %v", op.Type, err)
		if errors.Is(err, errInvalid) {
			return nil, ResultInvalid
		}
		return nil, ResultUnknownError
	}
	if resp == nil {
		return raw, ResultSuccess
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, resp); err != nil {
		return nil, ResultUnknownError
	}
	return buf.Bytes(), ResultSuccess
}

func decode(b []byte, v interface{}) error {
	if len(b) < binary.Size(v) {
		return fmt.Errorf("%w: %d bytes, need %d", errInvalid, len(b), binary.Size(v))
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, v)
}

// transfer runs the segments of one request with the chip select asserted
// until a segment asks for a change, and returns the bytes read.
func transfer(dev Device, payload []byte) (_ []byte, err error) {
	var req TransferRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	r := bytes.NewReader(payload[binary.Size(req):])
	descs := make([]TransferDesc, req.Count)
	if r.Len() < len(descs)*binary.Size(TransferDesc{}) {
		return nil, fmt.Errorf("%w: %d descriptors do not fit", errInvalid, req.Count)
	}
	if err := binary.Read(r, binary.LittleEndian, descs); err != nil {
		return nil, err
	}
	writeData := payload[len(payload)-r.Len():]

	var readSize, writeSize uint64
	for _, d := range descs {
		if d.RdWr&XferRead != 0 {
			readSize += uint64(d.Len)
		}
		if d.RdWr&XferWrite != 0 {
			writeSize += uint64(d.Len)
		}
	}
	if writeSize > uint64(len(writeData)) {
		return nil, fmt.Errorf("%w: %d write bytes, have %d", errInvalid, writeSize, len(writeData))
	}
	if readSize > fabric.MaxPayload {
		return nil, fmt.Errorf("%w: %d read bytes exceed a response", errInvalid, readSize)
	}

	if err := dev.SetMode(req.ChipSelect, req.Mode); err != nil {
		return nil, err
	}
	selected := false
	defer func() {
		if selected {
			if derr := dev.Deselect(req.ChipSelect); derr != nil && err == nil {
				err = derr
			}
		}
	}()

	read := make([]byte, readSize)
	rx := read
	for _, d := range descs {
		if err := dev.SetBitsPerWord(req.ChipSelect, d.BitsPerWord); err != nil {
			return nil, err
		}
		if _, err := dev.SetFrequency(req.ChipSelect, d.SpeedHz); err != nil {
			return nil, err
		}
		if !selected {
			if err := dev.Select(req.ChipSelect); err != nil {
				return nil, err
			}
			selected = true
		}

		var tx, rxSeg []byte
		if d.RdWr&XferWrite != 0 {
			tx, writeData = writeData[:d.Len], writeData[d.Len:]
		}
		if d.RdWr&XferRead != 0 {
			rxSeg, rx = rx[:d.Len], rx[d.Len:]
		}
		if err := dev.Exchange(tx, rxSeg, int(d.Len)); err != nil {
			return nil, err
		}

		if d.CSChange != 0 {
			if err := dev.Deselect(req.ChipSelect); err != nil {
				return nil, err
			}
			selected = false
		}
		if d.DelayUsecs > 0 {
			time.Sleep(time.Duration(d.DelayUsecs) * time.Microsecond)
		}
	}
	return read, nil
}
