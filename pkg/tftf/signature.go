// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Signature block geometry.
const (
	KeyNameSize        = 96
	SignatureDataSize  = 256
	SignatureBlockSize = 4 + 4 + KeyNameSize + SignatureDataSize
)

// Algorithm identifies the signature scheme of a signature block.
type Algorithm uint32

// Supported algorithms.
const (
	// AlgorithmRSA2048SHA256 is RSASSA-PKCS1-v1_5 with a 2048 bit key over
	// a SHA-256 digest.
	AlgorithmRSA2048SHA256 Algorithm = 1
	// AlgorithmSM2SM3 is SM2 over an SM3 digest. R and S are stored big
	// endian, 32 bytes each, at the start of the signature field.
	AlgorithmSM2SM3 Algorithm = 2
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmRSA2048SHA256:
		return "RSA2048-SHA256"
	case AlgorithmSM2SM3:
		return "SM2-SM3"
	}
	return fmt.Sprintf("Algorithm(%d)", uint32(a))
}

// ParseAlgorithm is the inverse of Algorithm.String.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range []Algorithm{AlgorithmRSA2048SHA256, AlgorithmSM2SM3} {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown signature algorithm %q", s)
}

// Signature is the payload of a signature section.
type Signature struct {
	Length    uint32
	Algorithm Algorithm
	KeyName   [KeyNameSize]byte
	Data      [SignatureDataSize]byte
}

// NewSignature builds a signature block for a key name and raw signature
// bytes.
func NewSignature(alg Algorithm, keyName string, sig []byte) (*Signature, error) {
	if len(sig) > SignatureDataSize {
		return nil, fmt.Errorf("signature is %d bytes, at most %d fit", len(sig), SignatureDataSize)
	}
	s := &Signature{Length: SignatureBlockSize, Algorithm: alg}
	if err := SetCString(s.KeyName[:], keyName); err != nil {
		return nil, fmt.Errorf("key name: %w", err)
	}
	copy(s.Data[:], sig)
	return s, nil
}

// ParseSignature decodes a signature block from a signature section payload.
func ParseSignature(b []byte) (*Signature, error) {
	if len(b) < SignatureBlockSize {
		return nil, fmt.Errorf("signature block is %d bytes, need %d", len(b), SignatureBlockSize)
	}
	var s Signature
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &s); err != nil {
		return nil, err
	}
	if s.Length < SignatureBlockSize || uint64(s.Length) > uint64(len(b)) {
		return nil, fmt.Errorf("signature block declares %d bytes, have %d", s.Length, len(b))
	}
	return &s, nil
}

// KeyNameString returns the name of the key which signed the image.
func (s *Signature) KeyNameString() string {
	return CString(s.KeyName[:])
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Signature) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(SignatureBlockSize)
	if err := binary.Write(&buf, binary.LittleEndian, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
