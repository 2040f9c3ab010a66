// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trust

import (
	"crypto/rsa"
	"crypto/sha256"
	"math/big"
	"math/bits"
)

// Key material sizes.
const (
	IMSSize        = 35
	imsMeaningful  = 32
	EPUIDSize      = 8
	EPSKSize       = 56
	ESSKSize       = 32
	ERGSSize       = 32
	EPCKSize       = 32
	ERRKModulusLen = 256
	ERRKExponent   = 65537
)

// Keys are the working keys derived from the IMS.
type Keys struct {
	// EPUID is the endpoint unique ID. It is zero for an unprogrammed IMS.
	EPUID [EPUIDSize]byte
	EPSK  [EPSKSize]byte
	ESSK  [ESSKSize]byte
	ERGS  [ERGSSize]byte
	EPCK  [EPCKSize]byte
	// ERRKModulus is the ERRK RSA modulus, little endian.
	ERRKModulus [ERRKModulusLen]byte
}

// ERRKPublicKey returns the public half of the ERRK.
func (k *Keys) ERRKPublicKey() *rsa.PublicKey {
	return &rsa.PublicKey{N: leToInt(k.ERRKModulus[:]), E: ERRKExponent}
}

// Zero wipes all key material.
func (k *Keys) Zero() {
	*k = Keys{}
}

// ValidIMS checks the Hamming weight of the meaningful part of an IMS. It
// returns whether the IMS is unprogrammed (all zero).
func ValidIMS(ims []byte) (allZero bool, err error) {
	if len(ims) < IMSSize {
		return false, &ErrBadSecret{Length: len(ims), Ones: -1}
	}
	ones := 0
	for _, b := range ims[:imsMeaningful] {
		ones += bits.OnesCount8(b)
	}
	if ones != 0 && ones != imsMeaningful*8/2 {
		return false, &ErrBadSecret{Length: imsMeaningful, Ones: ones}
	}
	return ones == 0, nil
}

// Derive computes the working keys from an IMS.
func Derive(ims []byte) (*Keys, error) {
	allZero, err := ValidIMS(ims)
	if err != nil {
		return nil, err
	}

	var k Keys
	y2 := xorDigest(ims[:32], 0x5a)

	z1 := concat(y2, 0x01)
	epsk0 := concat(z1, 0x01)
	epsk1 := concat(z1, 0x02)
	copy(k.EPSK[:32], epsk0[:])
	copy(k.EPSK[32:], epsk1[:24])

	z2 := concat(y2, 0x02)
	k.ESSK = concat(z2, 0x01)

	k.ERRKModulus = errkModulus(y2, ims)

	z4 := concat(y2, 0x04)
	k.EPCK = concat(z4, 0x01)

	z5 := concat(y2, 0x05)
	k.ERGS = concat(z5, 0x01)

	if !allZero {
		k.EPUID = EPUID(ims)
	}
	return &k, nil
}

// EPUID computes the endpoint unique ID from an IMS.
func EPUID(ims []byte) [EPUIDSize]byte {
	y1 := xorDigest(ims[:16], 0x3d)
	z0 := concat(y1, 0x01)
	t := sha256.Sum256(z0[:])
	var id [EPUIDSize]byte
	copy(id[:], t[:])
	return id
}

func errkModulus(y2 [32]byte, ims []byte) [ERRKModulusLen]byte {
	z3 := concat(y2, 0x03)

	half := func(first byte) *big.Int {
		var buf [ERRKModulusLen / 2]byte
		for i := 0; i < 4; i++ {
			d := concat(z3, first+byte(i))
			copy(buf[32*i:], d[:])
		}
		buf[0] |= 0x03
		return leToInt(buf[:])
	}
	p := half(0x01)
	q := half(0x05)

	alias := uint32(ims[32]) | uint32(ims[33])<<8 | uint32(ims[34])<<16
	p.Add(p, big.NewInt(int64(alias>>12)<<2))
	q.Add(q, big.NewInt(int64(alias&0xFFF)<<2))

	n := new(big.Int).Mul(p, q)
	var out [ERRKModulusLen]byte
	be := n.FillBytes(make([]byte, ERRKModulusLen))
	for i := range out {
		out[i] = be[len(be)-1-i]
	}
	return out
}

// xorDigest is sha256 over in with every byte XORed with mask.
func xorDigest(in []byte, mask byte) [32]byte {
	buf := make([]byte, len(in))
	for i, b := range in {
		buf[i] = b ^ mask
	}
	return sha256.Sum256(buf)
}

// concat is sha256(in || 32 copies of val).
func concat(in [32]byte, val byte) [32]byte {
	h := sha256.New()
	h.Write(in[:])
	for i := 0; i < 32; i++ {
		h.Write([]byte{val})
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

func leToInt(le []byte) *big.Int {
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}
