// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transport defines how the loader receives an image, independent of
// the boot medium.
package transport

import (
	"errors"
	"fmt"
	"os"

	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/status"
)

// Transport delivers one image as a sequential byte stream.
type Transport interface {
	// Name identifies the medium in logs.
	Name() string

	// Init brings the medium up. A failure ends the attempt on this medium.
	Init() error

	// Load fills dst with the next len(dst) bytes of the image.
	Load(dst []byte) error

	// Finish ends the attempt. success and trusted describe the loaded
	// image; both are false when loading failed.
	Finish(success, trusted bool) error
}

// Locator is a Transport with random access storage, where the image must be
// located before it can be loaded.
type Locator interface {
	Transport

	// Locate positions the stream at the start of the first element of
	// type t.
	Locate(t ffff.ElementType) (*ffff.Element, error)
}

// Op names the transport operation which failed.
type Op string

// Operations.
const (
	OpInit   Op = "init"
	OpLoad   Op = "load"
	OpFinish Op = "finish"
)

// ErrTimeout is wrapped by transport errors caused by a peer which stopped
// responding.
var ErrTimeout = errors.New("timed out")

// Error is a failed transport operation.
type Error struct {
	Transport string
	Op        Op
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Transport, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code implements status.Coder.
func (e *Error) Code() status.Code {
	if errors.Is(e.Err, ErrTimeout) || errors.Is(e.Err, os.ErrDeadlineExceeded) {
		return status.CodeTransportTimeout
	}
	switch e.Op {
	case OpInit:
		return status.CodeTransportInit
	case OpFinish:
		return status.CodeTransportFinish
	}
	return status.CodeTransportRead
}

// Errorf returns an *Error for transport name and op.
func Errorf(name string, op Op, format string, args ...interface{}) error {
	return &Error{Transport: name, Op: op, Err: fmt.Errorf(format, args...)}
}
