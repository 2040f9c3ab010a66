// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && !bridge

package main

import (
	"fmt"

	"github.com/u-root/u-root/pkg/boot/kexec"

	"github.com/linuxboot/s2l/pkg/boot"
	"github.com/linuxboot/s2l/pkg/loader"
	"github.com/linuxboot/s2l/pkg/memory"
	"github.com/linuxboot/s2l/pkg/trust"
)

// kexecLauncher loads the RAM window as one kexec segment and reboots into
// the image entry point.
type kexecLauncher struct{}

func newKexecLauncher() (boot.Launcher, error) {
	return kexecLauncher{}, nil
}

func (kexecLauncher) Launch(img *loader.Image, mem *memory.Window, keys *trust.Keys) error {
	ram, err := mem.ReadAt(mem.Base(), mem.Size())
	if err != nil {
		return err
	}
	seg := kexec.NewSegment(ram, kexec.Range{Start: uintptr(mem.Base()), Size: uint(mem.Size())})
	if err := kexec.Load(uintptr(img.Header.StartAddress), kexec.Segments{seg}, 0); err != nil {
		return fmt.Errorf("kexec load: %w", err)
	}
	return kexec.Reboot()
}
