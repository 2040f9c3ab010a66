// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package create

import (
	"fmt"
	"strings"
	"time"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/pkg/compression"
	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/tftf"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	OutputPath   string   `description:"path of the TFTF image to write" required:"true" short:"o" long:"output"`
	Name         string   `description:"package name" required:"true" long:"name"`
	PackageType  string   `description:"package type, e.g. Stage3Firmware" default:"Stage3Firmware" long:"package-type"`
	StartAddress string   `description:"entry point, 0 for a data only image" default:"0" long:"start"`
	HeaderSize   uint32   `description:"header size in bytes" default:"512" long:"header-size"`
	Timestamp    string   `description:"build timestamp, the current UTC time if empty" long:"timestamp"`
	UniproMID    uint32   `description:"UniPro manufacturer ID, 0 matches any" long:"unipro-mid"`
	UniproPID    uint32   `description:"UniPro product ID, 0 matches any" long:"unipro-pid"`
	AraVID       uint32   `description:"Ara vendor ID, 0 matches any" long:"ara-vid"`
	AraPID       uint32   `description:"Ara product ID, 0 matches any" long:"ara-pid"`
	Sections     []string `description:"section as TYPE:FILE[:LOAD_ADDRESS[:COMPRESSION]], repeatable; LOAD_ADDRESS 'none' keeps the section unplaced" required:"true" long:"section"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "build an unsigned TFTF image from section files"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return `Compressed section types (CompressedCode, CompressedData) are encoded with
the given compression (LZMA, LZ4, ZSTD or ZLIB; LZMA if omitted). Sign the result
with "tftftool sign".`
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	packageType, err := ffff.ParseElementType(cmd.PackageType)
	if err != nil {
		return commands.ErrArgs{Err: err}
	}
	start, err := commands.ParseUint32(cmd.StartAddress)
	if err != nil {
		return err
	}

	h, err := tftf.NewHeader(uint32(packageType), cmd.Name)
	if err != nil {
		return commands.ErrArgs{Err: fmt.Errorf("invalid name: %w", err)}
	}
	h.HeaderSize = cmd.HeaderSize
	h.StartAddress = start
	h.Identity = tftf.Identity{
		UniproMID: cmd.UniproMID,
		UniproPID: cmd.UniproPID,
		AraVID:    cmd.AraVID,
		AraPID:    cmd.AraPID,
	}
	timestamp := cmd.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format("20060102150405")
	}
	if err := tftf.SetCString(h.Timestamp[:], timestamp); err != nil {
		return commands.ErrArgs{Err: fmt.Errorf("invalid timestamp: %w", err)}
	}

	img := &tftf.Image{Header: h}
	for i, arg := range cmd.Sections {
		section, payload, err := readSection(arg)
		if err != nil {
			return err
		}
		section.ID = uint32(i + 1)
		img.AddSection(section, payload)
	}

	if err := h.Validate(); err != nil {
		return fmt.Errorf("the resulting image is invalid: %w", err)
	}
	if err := commands.WriteImage(cmd.OutputPath, img); err != nil {
		return fmt.Errorf("unable to write the image to '%s': %w", cmd.OutputPath, err)
	}
	return nil
}

func readSection(arg string) (tftf.Section, []byte, error) {
	var s tftf.Section
	fields, err := commands.SplitFields(arg, 2, 4)
	if err != nil {
		return s, nil, err
	}
	if s.Type, err = tftf.ParseSectionType(fields[0]); err != nil {
		return s, nil, commands.ErrArgs{Err: err}
	}

	s.LoadAddress = tftf.IgnoreAddress
	if len(fields) > 2 && !strings.EqualFold(fields[2], "none") && fields[2] != "" {
		if s.LoadAddress, err = commands.ParseUint32(fields[2]); err != nil {
			return s, nil, err
		}
	}

	data, err := commands.ReadFile(fields[1])
	if err != nil {
		return s, nil, err
	}
	s.ExpandedLength = uint32(len(data))
	if !s.Type.Compressed() {
		if len(fields) > 3 {
			return s, nil, commands.ErrArgs{Err: fmt.Errorf("'%s': %s sections take no compression", arg, s.Type)}
		}
		return s, data, nil
	}

	class := compression.ClassLZMA
	if len(fields) > 3 {
		if class, err = compression.ParseClass(fields[3]); err != nil {
			return s, nil, commands.ErrArgs{Err: err}
		}
	}
	s.Class.SetUint32(uint32(class))
	encoded, err := compression.CompressorFromClass(class).Encode(data)
	if err != nil {
		return s, nil, fmt.Errorf("unable to compress '%s' with %s: %w", fields[1], class, err)
	}
	return s, encoded, nil
}
