// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loader reads one TFTF image from a transport, places its sections
// in RAM and classifies it as trusted or untrusted.
//
// The loader never transfers control to the image. Structural faults reject
// the image; signature faults only demote it.
package loader

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/linuxboot/s2l/pkg/bytes"
	"github.com/linuxboot/s2l/pkg/compression"
	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/log"
	"github.com/linuxboot/s2l/pkg/memory"
	"github.com/linuxboot/s2l/pkg/tftf"
	"github.com/linuxboot/s2l/pkg/transport"
	"github.com/linuxboot/s2l/pkg/trust"
)

// DefaultMaxSectionSize bounds the on-disk and expanded size of a section.
const DefaultMaxSectionSize = 64 << 20

// Verifier checks a signature block against the image digests and reports
// whether the signing key is a production trust anchor.
type Verifier interface {
	Verify(d trust.Digests, sig *tftf.Signature) (bool, error)
}

// Image is a loaded image.
type Image struct {
	Header  *tftf.Header
	Digests trust.Digests

	// HashedBytes is the number of bytes fed to the digests.
	HashedBytes uint64

	// Signatures is the number of signature sections found.
	Signatures int

	// Trusted is set when a signature verified with a production key.
	Trusted bool
}

// Loader loads images into a memory window.
type Loader struct {
	mem            *memory.Window
	packageType    ffff.ElementType
	identity       tftf.Identity
	verifier       Verifier
	maxSectionSize uint32
}

// Option configures a Loader.
type Option func(*Loader)

// WithPackageType sets the package type images must declare. The default is
// stage 3 firmware.
func WithPackageType(t ffff.ElementType) Option {
	return func(l *Loader) { l.packageType = t }
}

// WithIdentity sets the identity of the running hardware.
func WithIdentity(id tftf.Identity) Option {
	return func(l *Loader) { l.identity = id }
}

// WithVerifier sets the signature verifier. Without one every image is
// untrusted.
func WithVerifier(v Verifier) Option {
	return func(l *Loader) { l.verifier = v }
}

// WithMaxSectionSize bounds the size of a single section.
func WithMaxSectionSize(n uint32) Option {
	return func(l *Loader) { l.maxSectionSize = n }
}

// New returns a Loader placing sections in mem.
func New(mem *memory.Window, opts ...Option) *Loader {
	l := &Loader{
		mem:            mem,
		packageType:    ffff.ElementStage3Firmware,
		maxSectionSize: DefaultMaxSectionSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Memory returns the window images are placed in.
func (l *Loader) Memory() *memory.Window {
	return l.mem
}

// PackageType returns the package type images must declare.
func (l *Loader) PackageType() ffff.ElementType {
	return l.packageType
}

// Load reads an image from t, which must already be initialized and
// positioned at the image start.
func (l *Loader) Load(t transport.Transport) (*Image, error) {
	h, err := l.readHeader(t)
	if err != nil {
		return nil, err
	}
	if err := l.check(h); err != nil {
		return nil, err
	}
	log.Infof("loading %q (%s) from %s, %d sections, %s payload",
		h.NameString(), h.TimestampString(), t.Name(), len(h.Sections), humanize.IBytes(h.PayloadLength()))

	img := &Image{Header: h}
	hasher := trust.NewHasher()
	var sigs []*tftf.Signature
	for i := range h.Sections {
		s := &h.Sections[i]
		raw := make([]byte, s.Length)
		if err := t.Load(raw); err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}

		data := raw
		if s.Type.Compressed() {
			data, err = compression.Expand(compression.Class(s.Class.Uint32()), raw, s.ExpandedLength)
			if err != nil {
				return nil, &ErrDecompressionFailed{Index: i, Err: err}
			}
		}
		if s.Type.Hashed() {
			_, _ = hasher.Write(data)
		}
		if s.Placed() {
			if err := l.mem.WriteAt(s.LoadAddress, data); err != nil {
				return nil, &ErrLoadAddressInvalid{Index: i, Address: s.LoadAddress, Length: s.ExpandedLength, Window: l.mem.String()}
			}
		}
		if s.Type == tftf.SectionSignature {
			sig, err := tftf.ParseSignature(data)
			if err != nil {
				log.Warnf("section %d: %v", i, err)
				continue
			}
			sigs = append(sigs, sig)
		}
	}

	img.Digests = hasher.Sum()
	img.HashedBytes = hasher.Len()
	img.Signatures = len(sigs)
	img.Trusted = l.classify(img.Digests, sigs)
	return img, nil
}

func (l *Loader) readHeader(t transport.Transport) (*tftf.Header, error) {
	prefix := make([]byte, tftf.PrefixSize)
	if err := t.Load(prefix); err != nil {
		return nil, fmt.Errorf("header prefix: %w", err)
	}
	size, err := tftf.HeaderSize(prefix)
	if err != nil {
		return nil, err
	}
	b := make([]byte, size)
	copy(b, prefix)
	if err := t.Load(b[tftf.PrefixSize:]); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	return tftf.Parse(b)
}

// check applies every header check which does not need the payload.
func (l *Loader) check(h *tftf.Header) error {
	if err := h.CheckPackageType(uint32(l.packageType)); err != nil {
		return err
	}
	if err := h.Identity.Match(l.identity); err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}

	var (
		placed []int
		ranges bytes.Ranges
	)
	for i := range h.Sections {
		s := &h.Sections[i]
		if s.Length > l.maxSectionSize || s.ExpandedLength > l.maxSectionSize {
			return &tftf.ErrSectionOutOfRange{
				Index:  i,
				Reason: fmt.Sprintf("section is larger than %s", humanize.IBytes(uint64(l.maxSectionSize))),
			}
		}
		if !s.Placed() {
			continue
		}
		if !l.mem.Contains(s.LoadAddress, s.ExpandedLength) {
			return &ErrLoadAddressInvalid{Index: i, Address: s.LoadAddress, Length: s.ExpandedLength, Window: l.mem.String()}
		}
		placed = append(placed, i)
		ranges = append(ranges, bytes.Range{Offset: uint64(s.LoadAddress), Length: uint64(s.ExpandedLength)})
	}

	if a, b, found := ranges.FirstOverlap(); found {
		return &ErrSectionCollision{First: placed[a], Second: placed[b]}
	}

	for _, i := range placed {
		s := &h.Sections[i]
		if s.Type.Code() && s.Contains(h.StartAddress) {
			return nil
		}
	}
	return &ErrInvalidStartAddress{Address: h.StartAddress}
}

// classify returns whether any signature verifies with a production key.
// Unknown keys, bad signatures and development keys leave the image
// untrusted.
func (l *Loader) classify(d trust.Digests, sigs []*tftf.Signature) bool {
	if len(sigs) == 0 {
		log.Warnf("image carries no signature, it runs untrusted")
		return false
	}
	if l.verifier == nil {
		log.Warnf("no verifier configured, image runs untrusted")
		return false
	}
	for _, sig := range sigs {
		production, err := l.verifier.Verify(d, sig)
		switch {
		case err != nil:
			log.Warnf("%v", err)
		case production:
			log.Infof("image verified with production key %q (%s)", sig.KeyNameString(), sig.Algorithm)
			return true
		default:
			log.Warnf("image verified with development key %q", sig.KeyNameString())
		}
	}
	return false
}

// Digest computes the digests a loader would accumulate for img.
func Digest(img *tftf.Image) (trust.Digests, error) {
	hasher := trust.NewHasher()
	for i, s := range img.Header.Sections {
		if !s.Type.Hashed() {
			continue
		}
		if i >= len(img.Payloads) {
			return trust.Digests{}, &tftf.ErrSectionOutOfRange{Index: i, Reason: "missing payload"}
		}
		data := img.Payloads[i]
		if s.Type.Compressed() {
			var err error
			data, err = compression.Expand(compression.Class(s.Class.Uint32()), data, s.ExpandedLength)
			if err != nil {
				return trust.Digests{}, &ErrDecompressionFailed{Index: i, Err: err}
			}
		}
		_, _ = hasher.Write(data)
	}
	return hasher.Sum(), nil
}
