// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trust

import (
	"crypto"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/tjfoc/gmsm/sm2"

	"github.com/linuxboot/s2l/pkg/tftf"
)

// PEM block types.
const (
	pemPublicKey     = "PUBLIC KEY"
	pemPrivateKey    = "PRIVATE KEY"
	pemSM2PublicKey  = "SM2 PUBLIC KEY"
	pemSM2PrivateKey = "SM2 PRIVATE KEY"
)

// Key is a named public key images may be signed with.
type Key struct {
	Name      string
	Algorithm tftf.Algorithm
	// Production marks a trust anchor. Images verified with any other key
	// run untrusted.
	Production bool
	PublicKey  crypto.PublicKey
}

// Keyring holds the keys known to the running boot loader.
type Keyring struct {
	keys  []Key
	index map[string]int
}

// NewKeyring returns a keyring holding keys.
func NewKeyring(keys ...Key) (*Keyring, error) {
	k := &Keyring{index: map[string]int{}}
	for _, key := range keys {
		if err := k.Add(key); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Add adds a key. Names are unique.
func (k *Keyring) Add(key Key) error {
	if key.Name == "" || len(key.Name) > tftf.KeyNameSize {
		return fmt.Errorf("invalid key name %q", key.Name)
	}
	if _, ok := k.index[key.Name]; ok {
		return fmt.Errorf("duplicate key %q", key.Name)
	}
	switch key.PublicKey.(type) {
	case *rsa.PublicKey:
		if key.Algorithm != tftf.AlgorithmRSA2048SHA256 {
			return fmt.Errorf("key %q: RSA key for %s", key.Name, key.Algorithm)
		}
	case *sm2.PublicKey:
		if key.Algorithm != tftf.AlgorithmSM2SM3 {
			return fmt.Errorf("key %q: SM2 key for %s", key.Name, key.Algorithm)
		}
	default:
		return fmt.Errorf("key %q: unsupported public key type %T", key.Name, key.PublicKey)
	}
	k.index[key.Name] = len(k.keys)
	k.keys = append(k.keys, key)
	return nil
}

// Lookup returns the key with the given name.
func (k *Keyring) Lookup(name string) (*Key, bool) {
	if k == nil {
		return nil, false
	}
	i, ok := k.index[name]
	if !ok {
		return nil, false
	}
	key := k.keys[i]
	return &key, true
}

// Keys returns all keys in insertion order.
func (k *Keyring) Keys() []Key {
	if k == nil {
		return nil
	}
	return append([]Key{}, k.keys...)
}

type keyJSON struct {
	Name         string `json:"name"`
	Algorithm    string `json:"algorithm"`
	Production   bool   `json:"production"`
	PublicKeyPEM string `json:"public_key_pem"`
}

// MarshalJSON implements json.Marshaler.
func (k *Keyring) MarshalJSON() ([]byte, error) {
	out := make([]keyJSON, 0, len(k.keys))
	for _, key := range k.keys {
		p, err := EncodePublicKey(key.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key.Name, err)
		}
		out = append(out, keyJSON{
			Name:         key.Name,
			Algorithm:    key.Algorithm.String(),
			Production:   key.Production,
			PublicKeyPEM: string(p),
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Keyring) UnmarshalJSON(b []byte) error {
	var in []keyJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*k = Keyring{index: map[string]int{}}
	for _, j := range in {
		alg, err := tftf.ParseAlgorithm(j.Algorithm)
		if err != nil {
			return fmt.Errorf("key %q: %w", j.Name, err)
		}
		pub, err := ParsePublicKey([]byte(j.PublicKeyPEM))
		if err != nil {
			return fmt.Errorf("key %q: %w", j.Name, err)
		}
		if err := k.Add(Key{Name: j.Name, Algorithm: alg, Production: j.Production, PublicKey: pub}); err != nil {
			return err
		}
	}
	return nil
}

// LoadKeyring reads a JSON keyring.
func LoadKeyring(r io.Reader) (*Keyring, error) {
	var k Keyring
	if err := json.NewDecoder(r).Decode(&k); err != nil {
		return nil, fmt.Errorf("unable to parse keyring: %w", err)
	}
	return &k, nil
}

// LoadKeyringFile reads a JSON keyring from path.
func LoadKeyringFile(path string) (*Keyring, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadKeyring(f)
}

// EncodePublicKey returns the PEM encoding of an RSA or SM2 public key. SM2
// keys are stored as an uncompressed curve point.
func EncodePublicKey(pub crypto.PublicKey) ([]byte, error) {
	switch pub := pub.(type) {
	case *rsa.PublicKey:
		der, err := x509.MarshalPKIXPublicKey(pub)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der}), nil
	case *sm2.PublicKey:
		point := elliptic.Marshal(sm2.P256Sm2(), pub.X, pub.Y)
		return pem.EncodeToMemory(&pem.Block{Type: pemSM2PublicKey, Bytes: point}), nil
	}
	return nil, fmt.Errorf("unsupported public key type %T", pub)
}

// ParsePublicKey is the inverse of EncodePublicKey.
func ParsePublicKey(b []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	switch block.Type {
	case pemPublicKey:
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("unsupported public key type %T", pub)
		}
		if rsaPub.N.BitLen() != 2048 {
			return nil, fmt.Errorf("RSA key has %d bits, expected 2048", rsaPub.N.BitLen())
		}
		return rsaPub, nil
	case pemSM2PublicKey:
		curve := sm2.P256Sm2()
		x, y := elliptic.Unmarshal(curve, block.Bytes)
		if x == nil {
			return nil, fmt.Errorf("invalid SM2 public key point")
		}
		return &sm2.PublicKey{Curve: curve, X: x, Y: y}, nil
	}
	return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
}

// EncodePrivateKey returns the PEM encoding of an RSA or SM2 private key.
func EncodePrivateKey(priv crypto.Signer) ([]byte, error) {
	switch priv := priv.(type) {
	case *rsa.PrivateKey:
		der, err := x509.MarshalPKCS8PrivateKey(priv)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
	case *sm2.PrivateKey:
		return pem.EncodeToMemory(&pem.Block{Type: pemSM2PrivateKey, Bytes: priv.D.FillBytes(make([]byte, 32))}), nil
	}
	return nil, fmt.Errorf("unsupported private key type %T", priv)
}

// ParsePrivateKey is the inverse of EncodePrivateKey.
func ParsePrivateKey(b []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	switch block.Type {
	case pemPrivateKey:
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaPriv, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", priv)
		}
		return rsaPriv, nil
	case pemSM2PrivateKey:
		curve := sm2.P256Sm2()
		d := new(big.Int).SetBytes(block.Bytes)
		if d.Sign() <= 0 || d.Cmp(curve.Params().N) >= 0 {
			return nil, fmt.Errorf("invalid SM2 private scalar")
		}
		priv := &sm2.PrivateKey{D: d}
		priv.Curve = curve
		priv.X, priv.Y = curve.ScalarBaseMult(d.Bytes())
		return priv, nil
	}
	return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
}
