// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trust derives the device working keys, verifies image signatures
// and narrows secret access before untrusted code runs.
//
// Demotion is one way: once DemoteToUntrusted returns, secrets stay
// unreadable and derived keys are gone until the next power cycle.
package trust

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/linuxboot/s2l/pkg/log"
	"github.com/linuxboot/s2l/pkg/status"
	"github.com/linuxboot/s2l/pkg/tftf"
)

// SecretStore gates access to the device secrets.
type SecretStore interface {
	// ReadIMS returns the internal master secret.
	ReadIMS() ([]byte, error)

	// RevokeAccess disables secret access until the next power cycle.
	RevokeAccess() error
}

// Manager owns the trust state of one boot.
type Manager struct {
	store   SecretStore
	keyring *Keyring

	keys    *Keys
	derived bool
	demoted bool
}

// NewManager returns a Manager. keyring may be nil, in which case no
// signature verifies.
func NewManager(store SecretStore, keyring *Keyring) *Manager {
	return &Manager{store: store, keyring: keyring}
}

// DeriveKeys derives the working keys. It must be called exactly once, before
// any image is validated.
func (m *Manager) DeriveKeys() error {
	if m.derived {
		return ErrKeysAlreadyDerived
	}
	m.derived = true
	ims, err := m.store.ReadIMS()
	if err != nil {
		return &status.Error{C: status.CodeBadSecret, Err: err}
	}
	defer func() {
		for i := range ims {
			ims[i] = 0
		}
	}()
	keys, err := Derive(ims)
	if err != nil {
		return err
	}
	m.keys = keys
	log.Infof("keys derived, EPUID %x", keys.EPUID)
	return nil
}

// Keys returns the derived keys, or nil before DeriveKeys and after
// DemoteToUntrusted.
func (m *Manager) Keys() *Keys {
	return m.keys
}

// Verify checks sig against the image digests. It returns whether the
// signing key is a production trust anchor; a signature which does not
// verify returns an *ErrSignatureUnverifiable.
func (m *Manager) Verify(d Digests, sig *tftf.Signature) (bool, error) {
	if !m.derived {
		return false, ErrKeysNotDerived
	}
	name := sig.KeyNameString()
	key, ok := m.keyring.Lookup(name)
	if !ok {
		return false, &ErrSignatureUnverifiable{KeyName: name, Reason: "unknown key"}
	}
	if err := VerifyWith(key, d, sig); err != nil {
		return false, err
	}
	return key.Production, nil
}

// DemoteToUntrusted revokes secret access and wipes the derived keys. It can
// only be called once.
func (m *Manager) DemoteToUntrusted() error {
	if m.demoted {
		return ErrAlreadyDemoted
	}
	m.demoted = true
	if m.keys != nil {
		m.keys.Zero()
		m.keys = nil
	}
	if err := m.store.RevokeAccess(); err != nil {
		return &status.Error{C: status.CodeSecretsRevoked, Err: err}
	}
	log.Warnf("secret access revoked")
	return nil
}

// Demoted reports whether DemoteToUntrusted was called.
func (m *Manager) Demoted() bool {
	return m.demoted
}

// ErrRevoked is returned by a SecretStore after RevokeAccess.
var ErrRevoked = errors.New("secret access revoked")

// MemoryStore is a SecretStore holding the IMS in memory.
type MemoryStore struct {
	IMS         []byte
	Revocations int
	ReadErr     error
	RevokeErr   error
}

// ReadIMS implements SecretStore.
func (s *MemoryStore) ReadIMS() ([]byte, error) {
	if s.Revocations > 0 {
		return nil, ErrRevoked
	}
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return append([]byte{}, s.IMS...), nil
}

// RevokeAccess implements SecretStore.
func (s *MemoryStore) RevokeAccess() error {
	s.Revocations++
	return s.RevokeErr
}

// FileStore is a SecretStore reading a hex encoded IMS from a file.
// Revocation only affects this FileStore.
type FileStore struct {
	Path    string
	revoked bool
}

// ReadIMS implements SecretStore.
func (s *FileStore) ReadIMS() ([]byte, error) {
	if s.revoked {
		return nil, ErrRevoked
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	ims, err := hex.DecodeString(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return ims, nil
}

// RevokeAccess implements SecretStore.
func (s *FileStore) RevokeAccess() error {
	s.revoked = true
	return nil
}
