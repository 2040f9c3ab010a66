// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package show

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/tftf"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	ImagePath string `description:"path to the TFTF image" required:"true" short:"f" long:"image"`
	Format    string `description:"output format" choice:"text" choice:"json" default:"text" long:"format"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "print the header, sections and signatures of a TFTF image"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return ""
}

type signature struct {
	Section   int
	Algorithm string
	KeyName   string
	Error     string `json:",omitempty"`
}

type image struct {
	Name         string
	Timestamp    string
	HeaderSize   uint32
	PackageType  string
	StartAddress uint32
	Identity     tftf.Identity
	Sections     []tftf.Section
	Signatures   []signature
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	img, err := commands.ReadImage(cmd.ImagePath)
	if err != nil {
		return err
	}
	h := img.Header

	var sigs []signature
	for i, s := range h.Sections {
		if s.Type != tftf.SectionSignature {
			continue
		}
		entry := signature{Section: i}
		sig, err := tftf.ParseSignature(img.Payloads[i])
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Algorithm = sig.Algorithm.String()
			entry.KeyName = sig.KeyNameString()
		}
		sigs = append(sigs, entry)
	}

	if cmd.Format == "json" {
		b, err := json.MarshalIndent(image{
			Name:         h.NameString(),
			Timestamp:    h.TimestampString(),
			HeaderSize:   h.HeaderSize,
			PackageType:  ffff.ElementType(h.PackageType).String(),
			StartAddress: h.StartAddress,
			Identity:     h.Identity,
			Sections:     h.Sections,
			Signatures:   sigs,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("unable to serialize: %w", err)
		}
		fmt.Println(string(b))
		return nil
	}

	for _, t := range []table.Writer{h.Table(), h.SectionTable()} {
		t.SetOutputMirror(os.Stdout)
		t.Render()
	}
	if len(sigs) == 0 {
		fmt.Println("the image is not signed")
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Signatures")
	t.AppendHeader(table.Row{"Section", "Algorithm", "Key Name", "Error"})
	for _, s := range sigs {
		t.AppendRow(table.Row{s.Section, s.Algorithm, s.KeyName, s.Error})
	}
	t.Render()
	return nil
}
