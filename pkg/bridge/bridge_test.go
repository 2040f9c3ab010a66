// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bridge

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/s2l/pkg/tftf"
	"github.com/linuxboot/s2l/pkg/transport/fabric"
)

type client struct {
	t    *testing.T
	conn net.Conn
	id   uint16
}

func startBridge(t *testing.T, content []byte) *client {
	local, remote := net.Pipe()
	dev := NewFlashDevice(bytes.NewReader(content), int64(len(content)), [3]byte{0xef, 0x40, 0x18})
	done := make(chan error, 1)
	go func() { done <- Serve(local, dev) }()
	t.Cleanup(func() {
		remote.Close()
		assert.NoError(t, <-done)
		local.Close()
	})
	return &client{t: t, conn: remote}
}

func (c *client) call(typ uint8, payload []byte) *fabric.Operation {
	c.id++
	require.NoError(c.t, fabric.WriteOperation(c.conn, &fabric.Operation{ID: c.id, Type: typ, Payload: payload}))
	resp, err := fabric.ReadOperation(c.conn)
	require.NoError(c.t, err)
	require.Equal(c.t, c.id, resp.ID)
	require.Equal(c.t, typ|fabric.ResponseFlag, resp.Type)
	return resp
}

func encodeAll(t *testing.T, vs ...interface{}) []byte {
	var buf bytes.Buffer
	for _, v := range vs {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	return buf.Bytes()
}

func TestVersionAndConfig(t *testing.T) {
	c := startBridge(t, nil)

	resp := c.call(TypeProtocolVersion, nil)
	assert.Equal(t, uint8(ResultSuccess), resp.Result)
	assert.Equal(t, []byte{VersionMajor, VersionMinor}, resp.Payload)

	resp = c.call(TypeMasterConfig, nil)
	require.Equal(t, uint8(ResultSuccess), resp.Result)
	var master MasterConfig
	require.NoError(t, binary.Read(bytes.NewReader(resp.Payload), binary.LittleEndian, &master))
	assert.Equal(t, uint16(1), master.NumChipSelect)
	assert.Equal(t, uint32(FlashMaxSpeedHz), master.MaxSpeedHz)

	resp = c.call(TypeDeviceConfig, []byte{0})
	require.Equal(t, uint8(ResultSuccess), resp.Result)
	var dev DeviceConfig
	require.NoError(t, binary.Read(bytes.NewReader(resp.Payload), binary.LittleEndian, &dev))
	assert.Equal(t, "spi-nor", tftf.CString(dev.Name[:]))
	assert.Equal(t, uint32(8), dev.BitsPerWord)

	resp = c.call(TypeDeviceConfig, []byte{3})
	assert.Equal(t, uint8(ResultInvalid), resp.Result)
	resp = c.call(TypeDeviceConfig, nil)
	assert.Equal(t, uint8(ResultInvalid), resp.Result)
	resp = c.call(0x42, nil)
	assert.Equal(t, uint8(ResultProtocolBad), resp.Result)
}

func TestTransferJEDEC(t *testing.T) {
	c := startBridge(t, nil)
	req := encodeAll(t,
		TransferRequest{Count: 2},
		TransferDesc{Len: 1, BitsPerWord: 8, RdWr: XferWrite},
		TransferDesc{Len: 3, BitsPerWord: 8, RdWr: XferRead, CSChange: 1},
		[]byte{CmdReadJEDEC},
	)
	resp := c.call(TypeTransfer, req)
	require.Equal(t, uint8(ResultSuccess), resp.Result)
	assert.Equal(t, []byte{0xef, 0x40, 0x18}, resp.Payload)
}

func TestTransferRead(t *testing.T) {
	content := make([]byte, 0x20000)
	for i := range content {
		content[i] = byte(i * 7)
	}
	c := startBridge(t, content)

	req := encodeAll(t,
		TransferRequest{Count: 2},
		TransferDesc{Len: 4, RdWr: XferWrite},
		TransferDesc{Len: 64, RdWr: XferRead},
		[]byte{CmdRead, 0x01, 0x00, 0x10},
	)
	resp := c.call(TypeTransfer, req)
	require.Equal(t, uint8(ResultSuccess), resp.Result)
	assert.Equal(t, content[0x10010:0x10050], resp.Payload)

	// reads past the end of the flash return erased bytes
	req = encodeAll(t,
		TransferRequest{Count: 1},
		TransferDesc{Len: 8, RdWr: XferWrite | XferRead},
		[]byte{CmdRead, 0x01, 0xff, 0xff, 0, 0, 0, 0},
	)
	resp = c.call(TypeTransfer, req)
	require.Equal(t, uint8(ResultSuccess), resp.Result)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, content[0x1ffff], 0xff, 0xff, 0xff}, resp.Payload)
}

func TestTransferInvalid(t *testing.T) {
	c := startBridge(t, nil)
	for name, req := range map[string][]byte{
		"short":             {0},
		"missing desc":      encodeAll(t, TransferRequest{Count: 2}, TransferDesc{Len: 1, RdWr: XferWrite}),
		"missing data":      encodeAll(t, TransferRequest{Count: 1}, TransferDesc{Len: 4, RdWr: XferWrite}, []byte{1}),
		"bad chip select":   encodeAll(t, TransferRequest{ChipSelect: 1, Count: 1}, TransferDesc{Len: 1, RdWr: XferRead}),
		"bad bits per word": encodeAll(t, TransferRequest{Count: 1}, TransferDesc{Len: 1, BitsPerWord: 16, RdWr: XferRead}),
	} {
		resp := c.call(TypeTransfer, req)
		assert.Equal(t, uint8(ResultInvalid), resp.Result, name)
	}
}
