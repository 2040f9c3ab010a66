// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !bridge

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/s2l/pkg/loader"
	"github.com/linuxboot/s2l/pkg/memory"
	"github.com/linuxboot/s2l/pkg/tftf"
)

func TestSplitAddr(t *testing.T) {
	network, address, err := splitAddr("tcp:10.0.0.2:7000")
	require.NoError(t, err)
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "10.0.0.2:7000", address)

	network, address, err = splitAddr("unix:/run/fabric.sock")
	require.NoError(t, err)
	assert.Equal(t, "unix", network)
	assert.Equal(t, "/run/fabric.sock", address)

	for _, s := range []string{"", "tcp", "tcp:"} {
		_, _, err := splitAddr(s)
		assert.Error(t, err, s)
	}
}

func TestFileLauncher(t *testing.T) {
	mem, err := memory.NewWindow(0x1000, 0x100)
	require.NoError(t, err)
	require.NoError(t, mem.WriteAt(0x1010, []byte{0xde, 0xad}))

	h, err := tftf.NewHeader(2, "s3fw")
	require.NoError(t, err)
	h.StartAddress = 0x1010

	path := filepath.Join(t.TempDir(), "ram.bin")
	l := &fileLauncher{Path: path}
	require.NoError(t, l.Launch(&loader.Image{Header: h}, mem, nil))

	ram, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, ram, 0x100)
	assert.Equal(t, []byte{0xde, 0xad}, ram[0x10:0x12])
}

func TestLazyFabricBeforeInit(t *testing.T) {
	l := &lazyFabric{}
	assert.Error(t, l.Load(make([]byte, 1)))
	assert.NoError(t, l.Finish(false, false))
}
