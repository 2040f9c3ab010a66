// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bridge

import "fmt"

// Protocol version served.
const (
	VersionMajor = 0
	VersionMinor = 1
)

// Operation types.
const (
	TypeProtocolVersion = 0x01
	TypeMasterConfig    = 0x08
	TypeDeviceConfig    = 0x09
	TypeTransfer        = 0x0a
)

// Result is the status of a response operation.
type Result uint8

// Results.
const (
	ResultSuccess      Result = 0x00
	ResultProtocolBad  Result = 0x04
	ResultInvalid      Result = 0x06
	ResultUnknownError Result = 0xfe
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultProtocolBad:
		return "protocol bad"
	case ResultInvalid:
		return "invalid"
	case ResultUnknownError:
		return "unknown error"
	}
	return fmt.Sprintf("Result(%#02x)", uint8(r))
}

// Transfer direction flags.
const (
	XferRead  = 0x01
	XferWrite = 0x02
)

// DeviceNameSize is the size of the device name in a device config response.
const DeviceNameSize = 32

// VersionResponse is the payload of a protocol version response.
type VersionResponse struct {
	Major uint8
	Minor uint8
}

// MasterConfig describes the SPI master.
type MasterConfig struct {
	BitsPerWordMask uint32
	MinSpeedHz      uint32
	MaxSpeedHz      uint32
	Mode            uint16
	Flags           uint16
	NumChipSelect   uint16
}

// DeviceConfigRequest selects the device a config is requested for.
type DeviceConfigRequest struct {
	ChipSelect uint8
}

// DeviceConfig describes one SPI device.
type DeviceConfig struct {
	Mode        uint16
	BitsPerWord uint32
	MaxSpeedHz  uint32
	DeviceType  uint8
	Name        [DeviceNameSize]byte
}

// TransferRequest is the fixed part of a transfer request. Count
// TransferDesc follow it, then the write data of every writing descriptor.
type TransferRequest struct {
	ChipSelect uint8
	Mode       uint8
	Count      uint16
}

// TransferDesc is one segment of a transfer.
type TransferDesc struct {
	SpeedHz     uint32
	Len         uint32
	DelayUsecs  uint16
	CSChange    uint8
	BitsPerWord uint8
	RdWr        uint8
}
