// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trust

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"hash"
	"math/big"

	"github.com/tjfoc/gmsm/sm2"
	"github.com/tjfoc/gmsm/sm3"

	"github.com/linuxboot/s2l/pkg/tftf"
)

// RandReader is the entropy source used for signing.
var RandReader = rand.Reader

var sm2UID = []byte{0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38}

// Digests are the image digests, one per supported signature algorithm.
type Digests struct {
	SHA256 [sha256.Size]byte
	SM3    [32]byte
}

// Hasher accumulates the digests over the hashed bytes of an image.
type Hasher struct {
	sha256 hash.Hash
	sm3    hash.Hash
	n      uint64
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{sha256: sha256.New(), sm3: sm3.New()}
}

// Write implements io.Writer.
func (h *Hasher) Write(p []byte) (int, error) {
	h.sha256.Write(p)
	h.sm3.Write(p)
	h.n += uint64(len(p))
	return len(p), nil
}

// Len returns how many bytes were hashed.
func (h *Hasher) Len() uint64 {
	return h.n
}

// Sum returns the digests.
func (h *Hasher) Sum() Digests {
	var d Digests
	h.sha256.Sum(d.SHA256[:0])
	h.sm3.Sum(d.SM3[:0])
	return d
}

// VerifyWith checks sig against d with key. It reports nothing about whether
// the key is a trust anchor.
func VerifyWith(key *Key, d Digests, sig *tftf.Signature) error {
	if sig.Algorithm != key.Algorithm {
		return &ErrSignatureUnverifiable{
			KeyName: key.Name,
			Reason:  fmt.Sprintf("signature is %s, key is %s", sig.Algorithm, key.Algorithm),
		}
	}
	switch pub := key.PublicKey.(type) {
	case *rsa.PublicKey:
		if pub.Size() > len(sig.Data) {
			return &ErrSignatureUnverifiable{KeyName: key.Name, Reason: fmt.Sprintf("%d bit RSA key", pub.N.BitLen())}
		}
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, d.SHA256[:], sig.Data[:pub.Size()]); err != nil {
			return &ErrSignatureUnverifiable{KeyName: key.Name, Reason: err.Error()}
		}
		return nil
	case *sm2.PublicKey:
		r := new(big.Int).SetBytes(sig.Data[:32])
		s := new(big.Int).SetBytes(sig.Data[32:64])
		if !sm2.Sm2Verify(pub, d.SM3[:], sm2UID, r, s) {
			return &ErrSignatureUnverifiable{KeyName: key.Name, Reason: "SM2 verification failed"}
		}
		return nil
	}
	return &ErrSignatureUnverifiable{KeyName: key.Name, Reason: fmt.Sprintf("unsupported key type %T", key.PublicKey)}
}

// Sign produces the signature field contents for digests d.
func Sign(alg tftf.Algorithm, priv crypto.Signer, d Digests) ([]byte, error) {
	switch alg {
	case tftf.AlgorithmRSA2048SHA256:
		rsaPriv, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("expected private RSA key, but received %T", priv)
		}
		return rsa.SignPKCS1v15(RandReader, rsaPriv, crypto.SHA256, d.SHA256[:])
	case tftf.AlgorithmSM2SM3:
		sm2Priv, ok := priv.(*sm2.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("expected private SM2 key, but received %T", priv)
		}
		r, s, err := sm2.Sm2Sign(sm2Priv, d.SM3[:], sm2UID, RandReader)
		if err != nil {
			return nil, fmt.Errorf("unable to sign with SM2: %w", err)
		}
		out := make([]byte, 64)
		r.FillBytes(out[:32])
		s.FillBytes(out[32:])
		return out, nil
	}
	return nil, fmt.Errorf("signing algorithm %s is not implemented", alg)
}
