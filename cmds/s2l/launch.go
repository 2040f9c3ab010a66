// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !bridge

package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/linuxboot/s2l/pkg/loader"
	"github.com/linuxboot/s2l/pkg/log"
	"github.com/linuxboot/s2l/pkg/memory"
	"github.com/linuxboot/s2l/pkg/trust"
)

// fileLauncher writes the RAM window to a file instead of jumping.
type fileLauncher struct {
	Path string
}

func (l *fileLauncher) Launch(img *loader.Image, mem *memory.Window, keys *trust.Keys) error {
	ram, err := mem.ReadAt(mem.Base(), mem.Size())
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.Path, ram, 0o644); err != nil {
		return fmt.Errorf("unable to write the RAM image: %w", err)
	}
	log.Infof("dry run: %s written to %s, entry %#x, keys handed over: %v",
		humanize.IBytes(uint64(len(ram))), l.Path, img.Header.StartAddress, keys != nil)
	return nil
}
