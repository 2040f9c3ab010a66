// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spiflash

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/status"
)

type fakeController struct {
	initErr, closeErr error
	inits, closes     int
}

func (c *fakeController) Init() error {
	c.inits++
	return c.initErr
}

func (c *fakeController) Close() error {
	c.closes++
	return c.closeErr
}

func testFlash(t *testing.T) []byte {
	b, err := ffff.NewBuilder("flash", 64<<10)
	require.NoError(t, err)
	_, err = b.AddAt(ffff.ElementStage3Firmware, 0, 0x8000, bytes.Repeat([]byte{0x5a}, 1000))
	require.NoError(t, err)
	img, err := b.Build()
	require.NoError(t, err)
	return img
}

func TestLocateAndLoad(t *testing.T) {
	img := testFlash(t)
	ctrl := &fakeController{}
	f := New(bytes.NewReader(img), int64(len(img)), WithController(ctrl))
	assert.Equal(t, "spi", f.Name())

	require.NoError(t, f.Init())
	e, err := f.Locate(ffff.ElementStage3Firmware)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x8000), e.Location)

	head := make([]byte, 10)
	require.NoError(t, f.Load(head))
	rest := make([]byte, 990)
	require.NoError(t, f.Load(rest))
	assert.Equal(t, bytes.Repeat([]byte{0x5a}, 10), head)
	assert.Equal(t, bytes.Repeat([]byte{0x5a}, 990), rest)

	err = f.Load(make([]byte, 1))
	assert.Equal(t, status.CodeTransportRead, status.CodeOf(err), "read past the element")

	require.NoError(t, f.Finish(true, true))
	assert.Equal(t, 1, ctrl.inits)
	assert.Equal(t, 1, ctrl.closes)
}

func TestLocateErrorsKeepTheirCode(t *testing.T) {
	img := testFlash(t)
	f := New(bytes.NewReader(img), int64(len(img)))
	require.NoError(t, f.Init())
	_, err := f.Locate(ffff.ElementData)
	assert.Equal(t, status.CodeElementNotFound, status.CodeOf(err))

	img[0] = 0
	_, err = f.Locate(ffff.ElementStage3Firmware)
	assert.Equal(t, status.CodeDirectoryCorrupt, status.CodeOf(err))
}

func TestInitFailure(t *testing.T) {
	ctrl := &fakeController{initErr: errors.New("controller stuck")}
	f := New(bytes.NewReader(nil), 64<<10, WithController(ctrl))
	err := f.Init()
	assert.Equal(t, status.CodeTransportInit, status.CodeOf(err))

	_, err = f.Locate(ffff.ElementStage3Firmware)
	assert.Error(t, err)

	assert.Equal(t, status.CodeTransportInit, status.CodeOf(New(bytes.NewReader(nil), 0).Init()))
}

func TestLoadBeforeLocate(t *testing.T) {
	f := New(bytes.NewReader(make([]byte, 1024)), 1024)
	require.NoError(t, f.Init())
	assert.Error(t, f.Load(make([]byte, 1)))
}

func TestFinishFailure(t *testing.T) {
	ctrl := &fakeController{closeErr: errors.New("busy")}
	f := New(bytes.NewReader(nil), 1, WithController(ctrl))
	assert.Equal(t, status.CodeTransportFinish, status.CodeOf(f.Finish(false, false)))
}
