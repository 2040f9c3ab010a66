// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"crypto"

	"github.com/linuxboot/s2l/pkg/tftf"
	"github.com/linuxboot/s2l/pkg/trust"
)

// Sign appends a signature section over the hashed sections of img.
func Sign(img *tftf.Image, alg tftf.Algorithm, keyName string, priv crypto.Signer) (*tftf.Signature, error) {
	d, err := Digest(img)
	if err != nil {
		return nil, err
	}
	raw, err := trust.Sign(alg, priv, d)
	if err != nil {
		return nil, err
	}
	sig, err := tftf.NewSignature(alg, keyName, raw)
	if err != nil {
		return nil, err
	}
	b, err := sig.MarshalBinary()
	if err != nil {
		return nil, err
	}
	img.AddSection(tftf.Section{
		Type:           tftf.SectionSignature,
		LoadAddress:    tftf.IgnoreAddress,
		ExpandedLength: uint32(len(b)),
	}, b)
	return sig, nil
}
