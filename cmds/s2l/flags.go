// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/linuxboot/s2l/pkg/log"
	"github.com/linuxboot/s2l/pkg/transport/spiflash"
)

var (
	flashPath  = flag.StringP("flash", "f", "", "flash device or image file")
	fabricAddr = flag.StringP("fabric", "F", "", "fabric peer as network:address, e.g. tcp:10.0.0.2:7000 or unix:/run/fabric.sock")
	timeout    = flag.Duration("timeout", 5*time.Second, "per operation fabric receive timeout, 0 waits forever")
	quiet      = flag.BoolP("quiet", "q", false, "only log errors")
)

// splitAddr parses network:address.
func splitAddr(s string) (string, string, error) {
	network, address, ok := strings.Cut(s, ":")
	if !ok || address == "" {
		return "", "", fmt.Errorf("fabric address %q is not network:address", s)
	}
	return network, address, nil
}

func dialFabric() (net.Conn, error) {
	network, address, err := splitAddr(*fabricAddr)
	if err != nil {
		return nil, err
	}
	return net.DialTimeout(network, address, *timeout)
}

// openFlash returns the flash medium, or nil when no flash was given.
func openFlash() (*spiflash.Flash, *os.File, error) {
	if *flashPath == "" {
		return nil, nil, nil
	}
	f, err := os.Open(*flashPath)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	log.Infof("flash %s, %d bytes", *flashPath, fi.Size())
	return spiflash.New(f, fi.Size()), f, nil
}

type errorsOnly struct {
	log.Logger
}

func (errorsOnly) Infof(string, ...interface{}) {}
func (errorsOnly) Warnf(string, ...interface{}) {}

func setupLogging() {
	if *quiet {
		log.DefaultLogger = errorsOnly{log.DefaultLogger}
	}
}
