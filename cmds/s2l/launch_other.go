// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !bridge

package main

import (
	"fmt"
	"runtime"

	"github.com/linuxboot/s2l/pkg/boot"
)

func newKexecLauncher() (boot.Launcher, error) {
	return nil, fmt.Errorf("launching is not supported on %s, use --dry-run", runtime.GOOS)
}
