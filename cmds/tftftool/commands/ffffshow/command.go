// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffffshow

import (
	"bytes"
	"fmt"
	"os"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/pkg/ffff"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	FlashPath string `description:"path to the flash image" required:"true" short:"f" long:"flash"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "print the element directory of a flash image"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return ""
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	b, err := commands.ReadFile(cmd.FlashPath)
	if err != nil {
		return err
	}
	h, err := ffff.Read(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return fmt.Errorf("unable to read the element directory: %w", err)
	}
	t := h.Table()
	t.SetOutputMirror(os.Stdout)
	t.Render()
	return nil
}
