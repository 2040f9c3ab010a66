// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fabric implements the fabric boot medium: a peer pushes the image
// over a point to point link once the loader reports it is ready.
//
// The exchange is
//
//	loader -> peer  READY  (payload: requested package type)
//	peer -> loader  DATA   (payload: next chunk of the image), repeated
//	peer -> loader  ABORT  (optional, ends the transfer)
//	loader -> peer  RESULT (payload: one Result byte)
package fabric

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/transport"
)

// Name of the medium.
const Name = "fabric"

// Operation types of the boot protocol.
const (
	TypeReady  = 0x01
	TypeData   = 0x02
	TypeResult = 0x03
	TypeAbort  = 0x04
)

// Result is the outcome reported to the peer by Finish.
type Result uint8

// Results.
const (
	ResultFailed    Result = 0
	ResultUntrusted Result = 1
	ResultTrusted   Result = 2
)

func (r Result) String() string {
	switch r {
	case ResultFailed:
		return "failed"
	case ResultUntrusted:
		return "untrusted"
	case ResultTrusted:
		return "trusted"
	}
	return fmt.Sprintf("Result(%d)", uint8(r))
}

// DefaultTimeout bounds the wait for each operation from the peer.
const DefaultTimeout = 5 * time.Second

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Link is a transport.Transport receiving an image pushed over conn.
type Link struct {
	conn        io.ReadWriter
	timeout     time.Duration
	packageType ffff.ElementType

	nextID  uint16
	ready   bool
	pending []byte
}

var _ transport.Transport = (*Link)(nil)

// Option configures a Link.
type Option func(*Link)

// WithTimeout sets the per operation receive timeout. Zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(l *Link) { l.timeout = d }
}

// WithPackageType sets the package type requested from the peer.
func WithPackageType(t ffff.ElementType) Option {
	return func(l *Link) { l.packageType = t }
}

// ErrNoDeadline is returned by Init when a receive timeout is configured but
// conn has no SetReadDeadline method.
var ErrNoDeadline = errors.New("connection does not support read deadlines")

// New returns a Link over conn. The receive timeout is enforced with
// SetReadDeadline; when conn lacks it, Init fails with ErrNoDeadline unless
// the timeout is zero, which waits forever.
func New(conn io.ReadWriter, opts ...Option) *Link {
	l := &Link{
		conn:        conn,
		timeout:     DefaultTimeout,
		packageType: ffff.ElementStage3Firmware,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements transport.Transport.
func (l *Link) Name() string {
	return Name
}

func (l *Link) send(typ uint8, payload []byte) error {
	l.nextID++
	return WriteOperation(l.conn, &Operation{ID: l.nextID, Type: typ, Payload: payload})
}

func (l *Link) receive() (*Operation, error) {
	if d, ok := l.conn.(readDeadliner); ok {
		var deadline time.Time
		if l.timeout > 0 {
			deadline = time.Now().Add(l.timeout)
		}
		if err := d.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return ReadOperation(l.conn)
}

// Init implements transport.Transport.
func (l *Link) Init() error {
	l.pending = nil
	if _, ok := l.conn.(readDeadliner); !ok && l.timeout > 0 {
		return &transport.Error{Transport: Name, Op: transport.OpInit, Err: ErrNoDeadline}
	}
	if err := l.send(TypeReady, []byte{byte(l.packageType)}); err != nil {
		return &transport.Error{Transport: Name, Op: transport.OpInit, Err: err}
	}
	l.ready = true
	return nil
}

// Load implements transport.Transport.
func (l *Link) Load(dst []byte) error {
	if !l.ready {
		return transport.Errorf(Name, transport.OpLoad, "load before init")
	}
	for n := 0; ; {
		c := copy(dst[n:], l.pending)
		l.pending = l.pending[c:]
		n += c
		if n == len(dst) {
			return nil
		}

		op, err := l.receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return &transport.Error{Transport: Name, Op: transport.OpLoad, Err: err}
		}
		switch op.Type {
		case TypeData:
			l.pending = op.Payload
		case TypeAbort:
			return transport.Errorf(Name, transport.OpLoad, "peer aborted the transfer")
		default:
			return transport.Errorf(Name, transport.OpLoad, "unexpected operation %#02x", op.Type)
		}
	}
}

// Finish implements transport.Transport. It reports the result to the peer.
func (l *Link) Finish(success, trusted bool) error {
	l.ready = false
	l.pending = nil
	r := ResultFailed
	switch {
	case success && trusted:
		r = ResultTrusted
	case success:
		r = ResultUntrusted
	}
	if err := l.send(TypeResult, []byte{byte(r)}); err != nil {
		return &transport.Error{Transport: Name, Op: transport.OpFinish, Err: err}
	}
	return nil
}
