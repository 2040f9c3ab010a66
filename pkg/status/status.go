// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package status encodes and publishes the boot status word.
//
// The word is the only record of what happened during a boot. Its top byte is
// a coarse Outcome, its low 24 bits hold the last error Code.
package status

import (
	"fmt"
)

// Outcome is the coarse boot progress stored in bits 31..24 of a Word.
//
// Numeric order follows boot progress, a boot never moves to a lower value.
type Outcome uint8

// Known outcomes.
const (
	Operating                       Outcome = 0x01
	SPIBootStarted                  Outcome = 0x02
	TrustedSPIFinished              Outcome = 0x03
	UntrustedSPIFinished            Outcome = 0x04
	FabricBootStarted               Outcome = 0x06
	TrustedFabricFinished           Outcome = 0x07
	UntrustedFabricFinished         Outcome = 0x08
	FallbackFabricStarted           Outcome = 0x09
	FallbackTrustedFabricFinished   Outcome = 0x0a
	FallbackUntrustedFabricFinished Outcome = 0x0b
	Failed                          Outcome = 0x80
)

func (o Outcome) String() string {
	switch o {
	case Operating:
		return "OPERATING"
	case SPIBootStarted:
		return "SPI_BOOT_STARTED"
	case TrustedSPIFinished:
		return "TRUSTED_SPI_FLASH_BOOT_FINISHED"
	case UntrustedSPIFinished:
		return "UNTRUSTED_SPI_FLASH_BOOT_FINISHED"
	case FabricBootStarted:
		return "FABRIC_BOOT_STARTED"
	case TrustedFabricFinished:
		return "TRUSTED_FABRIC_BOOT_FINISHED"
	case UntrustedFabricFinished:
		return "UNTRUSTED_FABRIC_BOOT_FINISHED"
	case FallbackFabricStarted:
		return "FALLBACK_FABRIC_BOOT_STARTED"
	case FallbackTrustedFabricFinished:
		return "FALLBACK_TRUSTED_FABRIC_BOOT_FINISHED"
	case FallbackUntrustedFabricFinished:
		return "FALLBACK_UNTRUSTED_FABRIC_BOOT_FINISHED"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("OUTCOME_%#02x", uint8(o))
}

// FinishedSPI reports whether the outcome is a completed flash boot,
// trusted or not.
func (o Outcome) FinishedSPI() bool {
	return o == TrustedSPIFinished || o == UntrustedSPIFinished
}

const (
	outcomeShift = 24
	codeMask     = 1<<outcomeShift - 1
)

// Word is the 32-bit boot status value.
type Word uint32

// New returns a Word holding o and no error code.
func New(o Outcome) Word {
	return Word(uint32(o) << outcomeShift)
}

// Outcome returns the coarse outcome held in the high byte.
func (w Word) Outcome() Outcome {
	return Outcome(uint32(w) >> outcomeShift)
}

// Code returns the error code held in the low bits.
func (w Word) Code() Code {
	return Code(uint32(w) & codeMask)
}

func (w Word) String() string {
	if w.Code() == 0 {
		return fmt.Sprintf("%#08x (%s)", uint32(w), w.Outcome())
	}
	return fmt.Sprintf("%#08x (%s, %s)", uint32(w), w.Outcome(), w.Code())
}

// Merge folds code into the low bits of w. The outcome is kept.
func Merge(w Word, code Code) Word {
	return Word(uint32(w)&^codeMask | uint32(code)&codeMask)
}
