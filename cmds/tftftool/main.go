// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// tftftool builds, signs and inspects TFTF images and FFFF flash images.
//
// Synopsis:
//
//	tftftool create -o IMAGE --name NAME --start ADDR --section TYPE:FILE[:LOAD[:CLASS]]...
//	tftftool sign -f IMAGE --key KEY.pem --key-name NAME [--algorithm ALG]
//	tftftool show -f IMAGE [--format text|json]
//	tftftool verify -f IMAGE --keyring KEYS.json
//	tftftool keygen --algorithm ALG --name NAME --private KEY.pem [--keyring KEYS.json] [--production]
//	tftftool ffff_create -o FLASH --capacity SIZE --element TYPE:FILE[:LOCATION]...
//	tftftool ffff_show -f FLASH
//	tftftool push -f IMAGE --listen tcp:ADDR
//
// An example:
//
//	tftftool keygen --algorithm RSA2048-SHA256 --name s3fw-prod --private prod.pem --keyring keys.json --production
//	tftftool create -o s3fw.tftf --name s3fw --start 0x10000000 --section RawCode:s3fw.bin:0x10000000
//	tftftool sign -f s3fw.tftf --key prod.pem --key-name s3fw-prod
//	tftftool ffff_create -o flash.bin --capacity 0x200000 --element Stage3Firmware:s3fw.tftf
//	tftftool show -f s3fw.tftf
package main

import (
	"log"

	"github.com/jessevdk/go-flags"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/create"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/ffffcreate"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/ffffshow"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/keygen"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/push"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/show"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/sign"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/verify"
)

var (
	knownCommands = map[string]commands.Command{
		"create":      &create.Command{},
		"sign":        &sign.Command{},
		"show":        &show.Command{},
		"verify":      &verify.Command{},
		"keygen":      &keygen.Command{},
		"ffff_create": &ffffcreate.Command{},
		"ffff_show":   &ffffshow.Command{},
		"push":        &push.Command{},
	}
)

func main() {
	flagsParser := flags.NewParser(nil, flags.Default)
	for commandName, command := range knownCommands {
		_, err := flagsParser.AddCommand(commandName, command.ShortDescription(), command.LongDescription(), command)
		if err != nil {
			panic(err)
		}
	}

	if _, err := flagsParser.Parse(); err != nil {
		log.Fatal(err)
	}
}
