// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trust

import (
	"fmt"

	"github.com/linuxboot/s2l/pkg/status"
)

// ErrBadSecret is returned when the IMS read from the secret store is not a
// programmed value: its Hamming weight must be zero or exactly half its bits.
type ErrBadSecret struct {
	Length int
	Ones   int
}

func (e *ErrBadSecret) Error() string {
	if e.Ones < 0 {
		return fmt.Sprintf("IMS is %d bytes, need %d", e.Length, IMSSize)
	}
	return fmt.Sprintf("IMS of %d bytes has %d bits set", e.Length, e.Ones)
}

// Code implements status.Coder.
func (e *ErrBadSecret) Code() status.Code {
	return status.CodeBadSecret
}

// ErrSignatureUnverifiable is returned when a signature cannot be verified.
// It demotes the image rather than rejecting it.
type ErrSignatureUnverifiable struct {
	KeyName string
	Reason  string
}

func (e *ErrSignatureUnverifiable) Error() string {
	return fmt.Sprintf("signature by %q is unverifiable: %s", e.KeyName, e.Reason)
}

// Code implements status.Coder.
func (e *ErrSignatureUnverifiable) Code() status.Code {
	return status.CodeSignatureUnverifiable
}

// Errors of the Manager state machine.
var (
	ErrKeysAlreadyDerived = &status.Error{C: status.CodeKeysAlreadyDerived}
	ErrKeysNotDerived     = &status.Error{C: status.CodeKeysNotDerived}
	ErrAlreadyDemoted     = &status.Error{C: status.CodeSecretsRevoked}
)
