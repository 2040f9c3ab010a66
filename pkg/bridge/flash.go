// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bridge

import (
	"fmt"
	"io"

	"github.com/linuxboot/s2l/pkg/tftf"
)

// SPI NOR commands understood by FlashDevice.
const (
	CmdRead       = 0x03
	CmdReadStatus = 0x05
	CmdReadJEDEC  = 0x9f
)

// FlashDevice is a Device with one read-only SPI NOR flash on chip select 0,
// backed by an io.ReaderAt.
type FlashDevice struct {
	dev   io.ReaderAt
	size  int64
	jedec [3]byte
	name  string

	selected bool
	// clocked counts bytes since the last select, cmd holds the opcode
	// and address.
	clocked int
	cmd     [4]byte
	mode    uint8
	bpw     uint8
	hz      uint32
}

var _ Device = (*FlashDevice)(nil)

// Default master properties of FlashDevice.
const (
	FlashMaxSpeedHz = 48000000
	FlashMinSpeedHz = 375000
)

// NewFlashDevice returns a FlashDevice reading size bytes from dev and
// answering jedec to a JEDEC ID read.
func NewFlashDevice(dev io.ReaderAt, size int64, jedec [3]byte) *FlashDevice {
	return &FlashDevice{dev: dev, size: size, jedec: jedec, name: "spi-nor", bpw: 8, hz: FlashMaxSpeedHz}
}

func (f *FlashDevice) checkCS(cs uint8) error {
	if cs != 0 {
		return fmt.Errorf("%w: no device on chip select %d", errInvalid, cs)
	}
	return nil
}

// MasterConfig implements Device.
func (f *FlashDevice) MasterConfig() (MasterConfig, error) {
	return MasterConfig{
		BitsPerWordMask: 1 << (8 - 1),
		MinSpeedHz:      FlashMinSpeedHz,
		MaxSpeedHz:      FlashMaxSpeedHz,
		NumChipSelect:   1,
	}, nil
}

// DeviceConfig implements Device.
func (f *FlashDevice) DeviceConfig(cs uint8) (DeviceConfig, error) {
	if err := f.checkCS(cs); err != nil {
		return DeviceConfig{}, err
	}
	c := DeviceConfig{Mode: uint16(f.mode), BitsPerWord: uint32(f.bpw), MaxSpeedHz: FlashMaxSpeedHz, DeviceType: 1}
	if err := tftf.SetCString(c.Name[:], f.name); err != nil {
		return DeviceConfig{}, err
	}
	return c, nil
}

// SetMode implements Device.
func (f *FlashDevice) SetMode(cs uint8, mode uint8) error {
	if err := f.checkCS(cs); err != nil {
		return err
	}
	f.mode = mode
	return nil
}

// SetBitsPerWord implements Device. Only 8 bit words are supported.
func (f *FlashDevice) SetBitsPerWord(cs uint8, bpw uint8) error {
	if err := f.checkCS(cs); err != nil {
		return err
	}
	if bpw != 8 && bpw != 0 {
		return fmt.Errorf("%w: %d bits per word", errInvalid, bpw)
	}
	f.bpw = 8
	return nil
}

// SetFrequency implements Device. Requests are clamped to the supported
// range, zero selects the maximum.
func (f *FlashDevice) SetFrequency(cs uint8, hz uint32) (uint32, error) {
	if err := f.checkCS(cs); err != nil {
		return 0, err
	}
	switch {
	case hz == 0 || hz > FlashMaxSpeedHz:
		hz = FlashMaxSpeedHz
	case hz < FlashMinSpeedHz:
		hz = FlashMinSpeedHz
	}
	f.hz = hz
	return hz, nil
}

// Select implements Device.
func (f *FlashDevice) Select(cs uint8) error {
	if err := f.checkCS(cs); err != nil {
		return err
	}
	f.selected = true
	f.clocked = 0
	return nil
}

// Deselect implements Device.
func (f *FlashDevice) Deselect(cs uint8) error {
	if err := f.checkCS(cs); err != nil {
		return err
	}
	f.selected = false
	return nil
}

// Exchange implements Device.
func (f *FlashDevice) Exchange(tx, rx []byte, n int) error {
	if !f.selected {
		return fmt.Errorf("exchange without chip select")
	}
	for i := 0; i < n; i++ {
		var in byte
		if tx != nil {
			in = tx[i]
		}
		out, err := f.clock(in)
		if err != nil {
			return err
		}
		if rx != nil {
			rx[i] = out
		}
	}
	return nil
}

// clock shifts one byte in and returns the byte shifted out.
func (f *FlashDevice) clock(in byte) (byte, error) {
	pos := f.clocked
	f.clocked++
	if pos < len(f.cmd) {
		f.cmd[pos] = in
	}
	if pos == 0 {
		return 0xff, nil
	}
	switch f.cmd[0] {
	case CmdReadJEDEC:
		return f.jedec[(pos-1)%len(f.jedec)], nil
	case CmdReadStatus:
		// never busy, never write enabled
		return 0x00, nil
	case CmdRead:
		if pos < 4 {
			return 0xff, nil
		}
		addr := int64(f.cmd[1])<<16 | int64(f.cmd[2])<<8 | int64(f.cmd[3])
		addr += int64(pos - 4)
		if addr >= f.size {
			return 0xff, nil
		}
		var b [1]byte
		if _, err := f.dev.ReadAt(b[:], addr); err != nil && err != io.EOF {
			return 0, err
		}
		return b[0], nil
	}
	return 0xff, nil
}
