// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sign

import (
	"fmt"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/pkg/loader"
	"github.com/linuxboot/s2l/pkg/tftf"
	"github.com/linuxboot/s2l/pkg/trust"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	ImagePath  string `description:"path to the TFTF image" required:"true" short:"f" long:"image"`
	OutputPath string `description:"where to write the signed image, the input is overwritten if empty" short:"o" long:"output"`
	KeyPath    string `description:"PEM encoded private key" required:"true" short:"k" long:"key"`
	KeyName    string `description:"key name stored in the signature, as listed in the keyring" required:"true" long:"key-name"`
	Algorithm  string `description:"signature algorithm: RSA2048-SHA256 or SM2-SM3" default:"RSA2048-SHA256" long:"algorithm"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "append a signature section to a TFTF image"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "The signature covers the expanded contents of every hashed section. An image may carry several signatures."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	alg, err := tftf.ParseAlgorithm(cmd.Algorithm)
	if err != nil {
		return commands.ErrArgs{Err: err}
	}
	pemBytes, err := commands.ReadFile(cmd.KeyPath)
	if err != nil {
		return err
	}
	priv, err := trust.ParsePrivateKey(pemBytes)
	if err != nil {
		return fmt.Errorf("unable to parse the private key '%s': %w", cmd.KeyPath, err)
	}

	img, err := commands.ReadImage(cmd.ImagePath)
	if err != nil {
		return err
	}
	if _, err := loader.Sign(img, alg, cmd.KeyName, priv); err != nil {
		return fmt.Errorf("unable to sign: %w", err)
	}

	outputPath := cmd.OutputPath
	if outputPath == "" {
		outputPath = cmd.ImagePath
	}
	return commands.WriteImage(outputPath, img)
}
