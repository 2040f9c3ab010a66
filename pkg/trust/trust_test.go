// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trust

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tjfoc/gmsm/sm2"

	"github.com/linuxboot/s2l/pkg/status"
	"github.com/linuxboot/s2l/pkg/tftf"
)

func programmedIMS() []byte {
	ims := make([]byte, IMSSize)
	for i := 0; i < 16; i++ {
		ims[i] = 0xff
	}
	ims[32], ims[33], ims[34] = 0x21, 0x43, 0x05
	return ims
}

type testKeys struct {
	rsa     *rsa.PrivateKey
	sm2     *sm2.PrivateKey
	keyring *Keyring
}

func newTestKeys(t *testing.T) testKeys {
	rsaPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	sm2Priv, err := sm2.GenerateKey(rand.Reader)
	require.NoError(t, err)
	devPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keyring, err := NewKeyring(
		Key{Name: "prod-rsa", Algorithm: tftf.AlgorithmRSA2048SHA256, Production: true, PublicKey: &rsaPriv.PublicKey},
		Key{Name: "prod-sm2", Algorithm: tftf.AlgorithmSM2SM3, Production: true, PublicKey: &sm2Priv.PublicKey},
		Key{Name: "dev-rsa", Algorithm: tftf.AlgorithmRSA2048SHA256, PublicKey: &devPriv.PublicKey},
	)
	require.NoError(t, err)
	return testKeys{rsa: rsaPriv, sm2: sm2Priv, keyring: keyring}
}

func digestsOf(b []byte) Digests {
	h := NewHasher()
	_, _ = h.Write(b)
	return h.Sum()
}

func signed(t *testing.T, alg tftf.Algorithm, priv crypto.Signer, name string, d Digests) *tftf.Signature {
	raw, err := Sign(alg, priv, d)
	require.NoError(t, err)
	sig, err := tftf.NewSignature(alg, name, raw)
	require.NoError(t, err)
	return sig
}

func TestDerive(t *testing.T) {
	ims := programmedIMS()
	k1, err := Derive(ims)
	require.NoError(t, err)
	k2, err := Derive(ims)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, [EPUIDSize]byte{}, k1.EPUID)
	assert.Equal(t, EPUID(ims), k1.EPUID)

	y2 := xorDigest(ims[:32], 0x5a)
	z1 := concat(y2, 1)
	first := concat(z1, 1)
	second := concat(z1, 2)
	assert.Equal(t, first[:], k1.EPSK[:32])
	assert.Equal(t, second[:24], k1.EPSK[32:])
	assert.Equal(t, concat(concat(y2, 2), 1), k1.ESSK)

	// p and q are both 3 mod 4.
	n := k1.ERRKPublicKey().N
	assert.Equal(t, int64(1), new(big.Int).Mod(n, big.NewInt(4)).Int64())
	assert.Equal(t, ERRKExponent, k1.ERRKPublicKey().E)

	other := programmedIMS()
	other[34] = 0x06
	k3, err := Derive(other)
	require.NoError(t, err)
	assert.NotEqual(t, k1.ERRKModulus, k3.ERRKModulus)
	assert.Equal(t, k1.ESSK, k3.ESSK)
}

func TestConcat(t *testing.T) {
	var in [32]byte
	in[0] = 0x42
	want := sha256.Sum256(append(in[:], bytes.Repeat([]byte{7}, 32)...))
	assert.Equal(t, want, concat(in, 7))
}

func TestDeriveUnprogrammed(t *testing.T) {
	k, err := Derive(make([]byte, IMSSize))
	require.NoError(t, err)
	assert.Equal(t, [EPUIDSize]byte{}, k.EPUID)
	assert.NotEqual(t, [ESSKSize]byte{}, k.ESSK)
}

func TestValidIMS(t *testing.T) {
	for name, tc := range map[string]struct {
		ims     []byte
		allZero bool
		ones    int
	}{
		"zero":       {ims: make([]byte, IMSSize), allZero: true},
		"programmed": {ims: programmedIMS()},
		"one bit":    {ims: append([]byte{1}, make([]byte, IMSSize-1)...), ones: 1},
		"all ones":   {ims: bytes.Repeat([]byte{0xff}, IMSSize), ones: 256},
		"short":      {ims: make([]byte, 10), ones: -1},
	} {
		t.Run(name, func(t *testing.T) {
			allZero, err := ValidIMS(tc.ims)
			if tc.ones == 0 {
				require.NoError(t, err)
				assert.Equal(t, tc.allZero, allZero)
				return
			}
			var bad *ErrBadSecret
			require.ErrorAs(t, err, &bad)
			assert.Equal(t, tc.ones, bad.Ones)
			assert.Equal(t, status.CodeBadSecret, status.CodeOf(err))
		})
	}
}

func TestKeysZero(t *testing.T) {
	k, err := Derive(programmedIMS())
	require.NoError(t, err)
	k.Zero()
	assert.Equal(t, Keys{}, *k)
}

func TestHasher(t *testing.T) {
	h := NewHasher()
	_, _ = h.Write([]byte("abc"))
	_, _ = h.Write([]byte("def"))
	assert.Equal(t, uint64(6), h.Len())
	d := h.Sum()
	assert.Equal(t, sha256.Sum256([]byte("abcdef")), d.SHA256)
	assert.Equal(t, digestsOf([]byte("abcdef")), d)
	assert.NotEqual(t, d.SHA256, d.SM3)
}

func TestKeyringJSON(t *testing.T) {
	keys := newTestKeys(t)
	b, err := json.Marshal(keys.keyring)
	require.NoError(t, err)

	var got Keyring
	require.NoError(t, json.Unmarshal(b, &got))
	require.Len(t, got.Keys(), 3)
	for _, want := range keys.keyring.Keys() {
		k, ok := got.Lookup(want.Name)
		require.True(t, ok, want.Name)
		assert.Equal(t, want.Algorithm, k.Algorithm)
		assert.Equal(t, want.Production, k.Production)
		switch pub := want.PublicKey.(type) {
		case *rsa.PublicKey:
			assert.True(t, pub.Equal(k.PublicKey))
		case *sm2.PublicKey:
			gotPub := k.PublicKey.(*sm2.PublicKey)
			assert.Equal(t, 0, pub.X.Cmp(gotPub.X))
			assert.Equal(t, 0, pub.Y.Cmp(gotPub.Y))
		}
	}

	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	fromFile, err := LoadKeyringFile(path)
	require.NoError(t, err)
	assert.Len(t, fromFile.Keys(), 3)
}

func TestKeyringAdd(t *testing.T) {
	priv, err := sm2.GenerateKey(rand.Reader)
	require.NoError(t, err)
	k, err := NewKeyring()
	require.NoError(t, err)
	assert.Error(t, k.Add(Key{Name: "", Algorithm: tftf.AlgorithmSM2SM3, PublicKey: &priv.PublicKey}))
	assert.Error(t, k.Add(Key{Name: "x", Algorithm: tftf.AlgorithmRSA2048SHA256, PublicKey: &priv.PublicKey}))
	require.NoError(t, k.Add(Key{Name: "x", Algorithm: tftf.AlgorithmSM2SM3, PublicKey: &priv.PublicKey}))
	assert.Error(t, k.Add(Key{Name: "x", Algorithm: tftf.AlgorithmSM2SM3, PublicKey: &priv.PublicKey}))
}

func TestPrivateKeyPEM(t *testing.T) {
	priv, err := sm2.GenerateKey(rand.Reader)
	require.NoError(t, err)
	b, err := EncodePrivateKey(priv)
	require.NoError(t, err)
	got, err := ParsePrivateKey(b)
	require.NoError(t, err)
	gotPriv := got.(*sm2.PrivateKey)
	assert.Equal(t, 0, priv.D.Cmp(gotPriv.D))
	assert.Equal(t, 0, priv.X.Cmp(gotPriv.X))
	assert.Equal(t, 0, priv.Y.Cmp(gotPriv.Y))
}

func TestManagerVerify(t *testing.T) {
	keys := newTestKeys(t)
	m := NewManager(&MemoryStore{IMS: programmedIMS()}, keys.keyring)

	d := digestsOf([]byte("stage three firmware"))
	rsaSig := signed(t, tftf.AlgorithmRSA2048SHA256, keys.rsa, "prod-rsa", d)

	_, err := m.Verify(d, rsaSig)
	assert.ErrorIs(t, err, ErrKeysNotDerived)
	require.NoError(t, m.DeriveKeys())
	assert.ErrorIs(t, m.DeriveKeys(), ErrKeysAlreadyDerived)

	production, err := m.Verify(d, rsaSig)
	require.NoError(t, err)
	assert.True(t, production)

	sm2Sig := signed(t, tftf.AlgorithmSM2SM3, keys.sm2, "prod-sm2", d)
	production, err = m.Verify(d, sm2Sig)
	require.NoError(t, err)
	assert.True(t, production)

	t.Run("one bit flipped", func(t *testing.T) {
		flipped := digestsOf([]byte("stage three firmwarf"))
		for _, sig := range []*tftf.Signature{rsaSig, sm2Sig} {
			_, err := m.Verify(flipped, sig)
			var unverifiable *ErrSignatureUnverifiable
			require.ErrorAs(t, err, &unverifiable)
			assert.Equal(t, status.CodeSignatureUnverifiable, status.CodeOf(err))
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		sig := signed(t, tftf.AlgorithmRSA2048SHA256, keys.rsa, "nobody", d)
		_, err := m.Verify(d, sig)
		var unverifiable *ErrSignatureUnverifiable
		require.ErrorAs(t, err, &unverifiable)
		assert.Equal(t, "nobody", unverifiable.KeyName)
	})

	t.Run("algorithm mismatch", func(t *testing.T) {
		sig := signed(t, tftf.AlgorithmSM2SM3, keys.sm2, "prod-rsa", d)
		_, err := m.Verify(d, sig)
		assert.Error(t, err)
	})

	t.Run("development key", func(t *testing.T) {
		devKey, _ := keys.keyring.Lookup("dev-rsa")
		require.NotNil(t, devKey)
		assert.False(t, devKey.Production)
	})
}

func TestSignWrongKeyType(t *testing.T) {
	keys := newTestKeys(t)
	_, err := Sign(tftf.AlgorithmSM2SM3, keys.rsa, Digests{})
	assert.Error(t, err)
	_, err = Sign(tftf.AlgorithmRSA2048SHA256, keys.sm2, Digests{})
	assert.Error(t, err)
	_, err = Sign(tftf.Algorithm(9), keys.sm2, Digests{})
	assert.Error(t, err)
}

func TestDemoteToUntrusted(t *testing.T) {
	store := &MemoryStore{IMS: programmedIMS()}
	m := NewManager(store, nil)
	require.NoError(t, m.DeriveKeys())
	require.NotNil(t, m.Keys())
	assert.False(t, m.Demoted())

	require.NoError(t, m.DemoteToUntrusted())
	assert.True(t, m.Demoted())
	assert.Nil(t, m.Keys())
	assert.Equal(t, 1, store.Revocations)
	_, err := store.ReadIMS()
	assert.ErrorIs(t, err, ErrRevoked)

	assert.ErrorIs(t, m.DemoteToUntrusted(), ErrAlreadyDemoted)
	assert.Equal(t, 1, store.Revocations)
}

func TestDeriveKeysStoreFailure(t *testing.T) {
	m := NewManager(&MemoryStore{ReadErr: errors.New("fuse read failed")}, nil)
	err := m.DeriveKeys()
	assert.Equal(t, status.CodeBadSecret, status.CodeOf(err))
	assert.Nil(t, m.Keys())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ims")
	require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(programmedIMS())+"\n"), 0o600))
	s := &FileStore{Path: path}
	ims, err := s.ReadIMS()
	require.NoError(t, err)
	assert.Equal(t, programmedIMS(), ims)

	require.NoError(t, s.RevokeAccess())
	_, err = s.ReadIMS()
	assert.ErrorIs(t, err, ErrRevoked)
}
