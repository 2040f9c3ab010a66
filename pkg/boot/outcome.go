// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"fmt"

	"github.com/linuxboot/s2l/pkg/loader"
	"github.com/linuxboot/s2l/pkg/status"
)

// Medium is a boot medium.
type Medium int

// Media.
const (
	MediumSPI Medium = iota
	MediumFabric
)

func (m Medium) String() string {
	switch m {
	case MediumSPI:
		return "spi"
	case MediumFabric:
		return "fabric"
	}
	return fmt.Sprintf("Medium(%d)", int(m))
}

// Outcome is the terminal result of Run: *Launched or *Halted.
type Outcome interface {
	// Status is the last status word advertised.
	Status() status.Word
	isOutcome()
}

// Launched is returned when control was handed to an image.
type Launched struct {
	Medium   Medium
	Fallback bool
	Image    *loader.Image
	Word     status.Word
}

// Status implements Outcome.
func (l *Launched) Status() status.Word { return l.Word }

func (*Launched) isOutcome() {}

func (l *Launched) String() string {
	trust := "trusted"
	if !l.Image.Trusted {
		trust = "untrusted"
	}
	return fmt.Sprintf("launched %s image from %s, status %s", trust, l.Medium, l.Word)
}

// Halted is returned when no image can run. The platform must idle forever.
type Halted struct {
	Err  error
	Word status.Word
}

// Status implements Outcome.
func (h *Halted) Status() status.Word { return h.Word }

func (*Halted) isOutcome() {}

func (h *Halted) String() string {
	return fmt.Sprintf("halted with status %s: %v", h.Word, h.Err)
}

// finished returns the terminal outcome of a successful attempt.
func finished(m Medium, fallback, trusted bool) status.Outcome {
	switch {
	case m == MediumSPI && trusted:
		return status.TrustedSPIFinished
	case m == MediumSPI:
		return status.UntrustedSPIFinished
	case fallback && trusted:
		return status.FallbackTrustedFabricFinished
	case fallback:
		return status.FallbackUntrustedFabricFinished
	case trusted:
		return status.TrustedFabricFinished
	}
	return status.UntrustedFabricFinished
}
