// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build bridge

// s2l built with the bridge tag serves the local flash to the fabric peer
// over the SPI bridge protocol instead of booting.
//
// Synopsis:
//
//	s2l -f flash.bin -F tcp:10.0.0.2:7000 [--jedec 0xef4018]
package main

import (
	"os"

	flag "github.com/spf13/pflag"

	"github.com/linuxboot/s2l/pkg/bridge"
	"github.com/linuxboot/s2l/pkg/log"
)

var jedec = flag.Uint32("jedec", 0xef4018, "JEDEC ID reported by the flash")

func main() {
	flag.Parse()
	setupLogging()

	if *flashPath == "" || *fabricAddr == "" {
		log.Fatalf("bridge mode needs --flash and --fabric")
	}
	f, err := os.Open(*flashPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		log.Fatalf("%v", err)
	}

	conn, err := dialFabric()
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer conn.Close()

	id := [3]byte{byte(*jedec >> 16), byte(*jedec >> 8), byte(*jedec)}
	if err := bridge.Serve(conn, bridge.NewFlashDevice(f, fi.Size(), id)); err != nil {
		log.Fatalf("%v", err)
	}
}
