// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keygen

import (
	"crypto"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tjfoc/gmsm/sm2"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/pkg/tftf"
	"github.com/linuxboot/s2l/pkg/trust"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	Algorithm   string `description:"signature algorithm: RSA2048-SHA256 or SM2-SM3" default:"RSA2048-SHA256" long:"algorithm"`
	Name        string `description:"key name, stored in signatures and in the keyring" required:"true" long:"name"`
	PrivatePath string `description:"where to write the PEM encoded private key" required:"true" long:"private"`
	KeyringPath string `description:"JSON keyring to add the public key to, created if missing" long:"keyring"`
	Production  bool   `description:"mark the key as a production key in the keyring" long:"production"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "generate a signing key pair"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "Images signed only with keys not marked as production boot untrusted."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}
	if len(cmd.Name) >= tftf.KeyNameSize {
		return commands.ErrArgs{Err: fmt.Errorf("key name is longer than %d bytes", tftf.KeyNameSize-1)}
	}

	alg, err := tftf.ParseAlgorithm(cmd.Algorithm)
	if err != nil {
		return commands.ErrArgs{Err: err}
	}

	var keyring *trust.Keyring
	if cmd.KeyringPath != "" {
		keyring, err = trust.LoadKeyringFile(cmd.KeyringPath)
		if errors.Is(err, fs.ErrNotExist) {
			keyring, err = trust.NewKeyring()
		}
		if err != nil {
			return fmt.Errorf("unable to load the keyring: %w", err)
		}
		if _, ok := keyring.Lookup(cmd.Name); ok {
			return commands.ErrArgs{Err: fmt.Errorf("key '%s' is already in the keyring", cmd.Name)}
		}
	}

	var priv crypto.Signer
	switch alg {
	case tftf.AlgorithmRSA2048SHA256:
		priv, err = rsa.GenerateKey(trust.RandReader, 2048)
	case tftf.AlgorithmSM2SM3:
		priv, err = sm2.GenerateKey(trust.RandReader)
	}
	if err != nil {
		return fmt.Errorf("unable to generate a %s key: %w", alg, err)
	}

	pemBytes, err := trust.EncodePrivateKey(priv)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cmd.PrivatePath, pemBytes, 0o600); err != nil {
		return fmt.Errorf("unable to write the private key: %w", err)
	}

	if keyring == nil {
		return nil
	}
	if err := keyring.Add(trust.Key{
		Name:       cmd.Name,
		Algorithm:  alg,
		Production: cmd.Production,
		PublicKey:  priv.Public(),
	}); err != nil {
		return err
	}
	b, err := json.MarshalIndent(keyring, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to serialize the keyring: %w", err)
	}
	return os.WriteFile(cmd.KeyringPath, b, 0o644)
}
