// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffffcreate

import (
	"fmt"
	"os"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/pkg/ffff"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	OutputPath     string   `description:"path of the flash image to write" required:"true" short:"o" long:"output"`
	Name           string   `description:"flash image name" default:"s2l" long:"name"`
	Capacity       string   `description:"flash capacity in bytes" required:"true" long:"capacity"`
	EraseBlockSize uint32   `description:"erase block size, a power of two" default:"4096" long:"erase-block-size"`
	HeaderSize     uint32   `description:"header size in bytes" default:"512" long:"header-size"`
	Generation     uint32   `description:"header generation" long:"generation"`
	Redundant      bool     `description:"also write the second header copy" long:"redundant"`
	Elements       []string `description:"element as TYPE:FILE[:LOCATION], repeatable; elements without a location go to the next free erase block" required:"true" long:"element"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "build a flash image holding an element directory"
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
	capacity, err := commands.ParseUint32(cmd.Capacity)
	if err != nil {
		return err
	}

	opts := []ffff.Option{
		ffff.WithEraseBlockSize(cmd.EraseBlockSize),
		ffff.WithHeaderSize(cmd.HeaderSize),
		ffff.WithGeneration(cmd.Generation),
	}
	if cmd.Redundant {
		opts = append(opts, ffff.WithRedundantCopy())
	}
	b, err := ffff.NewBuilder(cmd.Name, capacity, opts...)
	if err != nil {
		return commands.ErrArgs{Err: err}
	}

	for i, arg := range cmd.Elements {
		fields, err := commands.SplitFields(arg, 2, 3)
		if err != nil {
			return err
		}
		t, err := ffff.ParseElementType(fields[0])
		if err != nil {
			return commands.ErrArgs{Err: err}
		}
		data, err := commands.ReadFile(fields[1])
		if err != nil {
			return err
		}
		var e *ffff.Element
		if len(fields) == 3 {
			location, err := commands.ParseUint32(fields[2])
			if err != nil {
				return err
			}
			e, err = b.AddAt(t, uint32(i+1), location, data)
			if err != nil {
				return fmt.Errorf("unable to place '%s': %w", arg, err)
			}
		} else {
			e, err = b.Add(t, uint32(i+1), data)
			if err != nil {
				return fmt.Errorf("unable to place '%s': %w", arg, err)
			}
		}
		fmt.Printf("%s at 0x%08x, %d bytes\n", e.Type, e.Location, e.Length)
	}

	out, err := b.Build()
	if err != nil {
		return err
	}
	return os.WriteFile(cmd.OutputPath, out, 0o644)
}
