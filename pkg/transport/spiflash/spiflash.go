// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spiflash implements the flash boot medium: an FFFF directory and
// its elements on a random access device.
package spiflash

import (
	"errors"
	"fmt"
	"io"

	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/log"
	"github.com/linuxboot/s2l/pkg/transport"
)

// Name of the medium.
const Name = "spi"

// Controller is the flash controller bring-up and shutdown.
type Controller interface {
	Init() error
	Close() error
}

// Flash is a transport.Locator over a flash device.
type Flash struct {
	dev        io.ReaderAt
	size       int64
	controller Controller

	ready   bool
	element *ffff.Element
	cursor  int64
}

var _ transport.Locator = (*Flash)(nil)

// Option configures a Flash.
type Option func(*Flash)

// WithController sets the controller brought up by Init and shut down by
// Finish.
func WithController(c Controller) Option {
	return func(f *Flash) { f.controller = c }
}

// New returns a Flash reading a device of size bytes.
func New(dev io.ReaderAt, size int64, opts ...Option) *Flash {
	f := &Flash{dev: dev, size: size}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements transport.Transport.
func (f *Flash) Name() string {
	return Name
}

// Init implements transport.Transport.
func (f *Flash) Init() error {
	if f.size <= 0 {
		return transport.Errorf(Name, transport.OpInit, "flash device has no capacity")
	}
	if f.controller != nil {
		if err := f.controller.Init(); err != nil {
			return &transport.Error{Transport: Name, Op: transport.OpInit, Err: err}
		}
	}
	f.ready = true
	return nil
}

// Locate implements transport.Locator. Directory errors are returned as is.
func (f *Flash) Locate(t ffff.ElementType) (*ffff.Element, error) {
	if !f.ready {
		return nil, transport.Errorf(Name, transport.OpLoad, "locate before init")
	}
	e, err := ffff.Locate(f.dev, f.size, t)
	if err != nil {
		return nil, err
	}
	log.Infof("%s element at %#x, %d bytes", e.Type, e.Location, e.Length)
	f.element = e
	f.cursor = int64(e.Location)
	return e, nil
}

// Load implements transport.Transport. Reads never leave the located
// element.
func (f *Flash) Load(dst []byte) error {
	if f.element == nil {
		return transport.Errorf(Name, transport.OpLoad, "load before locate")
	}
	if end := f.cursor + int64(len(dst)); uint64(end) > f.element.End() {
		return transport.Errorf(Name, transport.OpLoad, "read of %d bytes at %#x runs past the element end %#x",
			len(dst), f.cursor, f.element.End())
	}
	n, err := f.dev.ReadAt(dst, f.cursor)
	if n == len(dst) && errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return &transport.Error{Transport: Name, Op: transport.OpLoad, Err: fmt.Errorf("at %#x: %w", f.cursor, err)}
	}
	f.cursor += int64(n)
	return nil
}

// Finish implements transport.Transport. Flash has nobody to report to, it
// only shuts the controller down.
func (f *Flash) Finish(success, trusted bool) error {
	f.ready = false
	f.element = nil
	if f.controller != nil {
		if err := f.controller.Close(); err != nil {
			return &transport.Error{Transport: Name, Op: transport.OpFinish, Err: err}
		}
	}
	return nil
}
