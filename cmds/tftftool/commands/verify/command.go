// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/pkg/loader"
	"github.com/linuxboot/s2l/pkg/tftf"
	"github.com/linuxboot/s2l/pkg/trust"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	ImagePath   string `description:"path to the TFTF image" required:"true" short:"f" long:"image"`
	KeyringPath string `description:"JSON keyring, as written by 'tftftool keygen'" required:"true" short:"k" long:"keyring"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "check the signatures of a TFTF image against a keyring"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return `Every signature is checked. The command fails unless at least one signature
verifies with a production key, which is the condition for a trusted boot.`
}

// ErrUntrusted means no signature verifies with a production key.
type ErrUntrusted struct{}

func (ErrUntrusted) Error() string {
	return "no signature verifies with a production key, the image would boot untrusted"
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	keyring, err := trust.LoadKeyringFile(cmd.KeyringPath)
	if err != nil {
		return fmt.Errorf("unable to load the keyring: %w", err)
	}
	img, err := commands.ReadImage(cmd.ImagePath)
	if err != nil {
		return err
	}
	if err := img.Header.Validate(); err != nil {
		return fmt.Errorf("the image is malformed: %w", err)
	}
	d, err := loader.Digest(img)
	if err != nil {
		return fmt.Errorf("unable to compute the image digest: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("SHA-256 %x", d.SHA256))
	t.AppendHeader(table.Row{"Section", "Key Name", "Algorithm", "Production", "Result"})
	trusted := false
	for i, s := range img.Header.Sections {
		if s.Type != tftf.SectionSignature {
			continue
		}
		sig, err := tftf.ParseSignature(img.Payloads[i])
		if err != nil {
			t.AppendRow(table.Row{i, "", "", "", err})
			continue
		}
		key, ok := keyring.Lookup(sig.KeyNameString())
		if !ok {
			t.AppendRow(table.Row{i, sig.KeyNameString(), sig.Algorithm, "", "unknown key"})
			continue
		}
		result := "verified"
		if err := trust.VerifyWith(key, d, sig); err != nil {
			result = err.Error()
		} else if key.Production {
			trusted = true
		}
		t.AppendRow(table.Row{i, key.Name, sig.Algorithm, key.Production, result})
	}
	t.Render()

	if !trusted {
		return ErrUntrusted{}
	}
	return nil
}
