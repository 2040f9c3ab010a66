// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package push

import (
	"fmt"
	"net"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/tftf"
	"github.com/linuxboot/s2l/pkg/transport/fabric"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	ImagePath string `description:"path to the TFTF image to push" required:"true" short:"f" long:"image"`
	Listen    string `description:"address to accept the loader on, as network:address" default:"tcp:127.0.0.1:7000" short:"l" long:"listen"`
	ChunkSize int    `description:"DATA payload size in bytes" default:"4096" long:"chunk-size"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "serve a TFTF image to one loader booting from the fabric"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return `Accepts a single connection from "s2l --fabric", pushes the image and prints the
result the loader reports.`
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}
	network, address, ok := strings.Cut(cmd.Listen, ":")
	if !ok || address == "" {
		return commands.ErrArgs{Err: fmt.Errorf("'%s' is not network:address", cmd.Listen)}
	}

	image, err := commands.ReadFile(cmd.ImagePath)
	if err != nil {
		return err
	}
	h, err := tftf.Parse(image)
	if err != nil {
		return fmt.Errorf("'%s' is not a TFTF image: %w", cmd.ImagePath, err)
	}

	l, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	defer l.Close()
	fmt.Printf("serving %s (%s) on %s\n", h.NameString(), humanize.IBytes(uint64(len(image))), l.Addr())

	conn, err := l.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()

	result, requested, err := fabric.Serve(conn, image, cmd.ChunkSize)
	if err != nil {
		return fmt.Errorf("push to %s failed: %w", conn.RemoteAddr(), err)
	}
	if uint32(requested) != h.PackageType {
		fmt.Printf("the loader asked for %s, the image is %s\n", requested, ffff.ElementType(h.PackageType))
	}
	fmt.Printf("%s: %s\n", conn.RemoteAddr(), result)
	if result == fabric.ResultFailed {
		return fmt.Errorf("the loader rejected the image")
	}
	return nil
}
