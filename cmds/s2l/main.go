// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !bridge

// s2l is the second stage loader. It picks flash or fabric, loads and
// authenticates the stage 3 image and hands over control.
//
// Synopsis:
//
//	s2l [options]
//
// An example:
//
//	s2l -f flash.bin -F tcp:10.0.0.2:7000 --keyring keys.json --ims ims.hex \
//	    --status /var/lib/s2l/status --dry-run ram.bin
//
// The previous boot status is read from --status (or --previous) and the new
// one is latched there after every milestone. Without --status every word is
// printed to stdout.
//
// On a halt s2l idles forever, unless --exit-on-halt is given.
package main

import (
	"io"
	"math"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/linuxboot/s2l/pkg/boot"
	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/loader"
	"github.com/linuxboot/s2l/pkg/log"
	"github.com/linuxboot/s2l/pkg/memory"
	"github.com/linuxboot/s2l/pkg/status"
	"github.com/linuxboot/s2l/pkg/tftf"
	"github.com/linuxboot/s2l/pkg/transport"
	"github.com/linuxboot/s2l/pkg/transport/fabric"
	"github.com/linuxboot/s2l/pkg/trust"
)

var (
	keyringPath = flag.StringP("keyring", "k", "", "JSON keyring of image signing keys")
	imsPath     = flag.String("ims", "", "file holding the hex encoded internal master secret")
	statusPath  = flag.StringP("status", "s", "", "file latching the boot status word")
	previous    = flag.String("previous", "", "previous boot status word, overrides the latched one")
	forceFabric = flag.Bool("force-fabric", false, "boot from the fabric regardless of the previous status")
	packageType = flag.String("package-type", ffff.ElementStage3Firmware.String(), "element type to boot")
	ramBase     = flag.Uint32("ram-base", 0x10000000, "load window base address")
	ramSize     = flag.Uint32("ram-size", 64<<20, "load window size")
	uniproMID   = flag.Uint32("unipro-mid", 0, "hardware UniPro manufacturer ID")
	uniproPID   = flag.Uint32("unipro-pid", 0, "hardware UniPro product ID")
	araVID      = flag.Uint32("ara-vid", 0, "hardware vendor ID")
	araPID      = flag.Uint32("ara-pid", 0, "hardware product ID")
	dryRun      = flag.String("dry-run", "", "write the loaded RAM window to this file instead of launching")
	exitOnHalt  = flag.Bool("exit-on-halt", false, "exit with status 1 instead of idling on a halt")
)

func main() {
	flag.Parse()
	setupLogging()

	if flag.NArg() != 0 {
		log.Fatalf("unexpected arguments %v", flag.Args())
	}

	out := run()
	switch o := out.(type) {
	case *boot.Launched:
		log.Infof("%s", o)
	case *boot.Halted:
		log.Errorf("%s", o)
		halt()
	}
}

func run() boot.Outcome {
	pt, err := ffff.ParseElementType(*packageType)
	if err != nil {
		log.Fatalf("%v", err)
	}
	mem, err := memory.NewWindow(*ramBase, *ramSize)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var keyring *trust.Keyring
	if *keyringPath != "" {
		if keyring, err = trust.LoadKeyringFile(*keyringPath); err != nil {
			log.Fatalf("%v", err)
		}
	} else {
		log.Warnf("no keyring, every image runs untrusted")
	}
	var store trust.SecretStore = &trust.MemoryStore{IMS: make([]byte, trust.IMSSize)}
	if *imsPath != "" {
		store = &trust.FileStore{Path: *imsPath}
	}
	manager := trust.NewManager(store, keyring)

	var reporter status.Reporter = status.Writer{W: os.Stdout}
	var prev status.Word
	if *statusPath != "" {
		reporter = status.File{Path: *statusPath}
		if prev, err = status.ReadLatched(*statusPath); err != nil {
			log.Warnf("unable to read the latched status: %v", err)
		}
	}
	if *previous != "" {
		if prev, err = status.ParseWord(*previous); err != nil {
			log.Fatalf("%v", err)
		}
	}

	cfg := boot.Config{
		Loader: loader.New(mem,
			loader.WithPackageType(pt),
			loader.WithVerifier(manager),
			loader.WithIdentity(tftf.Identity{
				UniproMID: *uniproMID,
				UniproPID: *uniproPID,
				AraVID:    *araVID,
				AraPID:    *araPID,
			}),
		),
		Trust:       manager,
		Tracker:     status.NewTracker(reporter),
		Previous:    prev,
		ForceFabric: *forceFabric,
	}

	flash, flashFile, err := openFlash()
	if err != nil {
		log.Errorf("flash unavailable: %v", err)
	}
	if flash != nil {
		defer flashFile.Close()
		cfg.Flash = flash
	}

	if *fabricAddr != "" {
		link := &lazyFabric{packageType: pt}
		defer link.Close()
		cfg.Fabric = link
	}

	if *dryRun != "" {
		cfg.Launcher = &fileLauncher{Path: *dryRun}
	} else if cfg.Launcher, err = newKexecLauncher(); err != nil {
		log.Fatalf("%v", err)
	}

	o, err := boot.New(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return o.Run()
}

// lazyFabric dials the peer on Init, so a flash boot never touches the
// network.
type lazyFabric struct {
	packageType ffff.ElementType
	conn        io.Closer
	*fabric.Link
}

var _ transport.Transport = (*lazyFabric)(nil)

func (l *lazyFabric) Name() string {
	return fabric.Name
}

func (l *lazyFabric) Init() error {
	if l.Link == nil {
		conn, err := dialFabric()
		if err != nil {
			return &transport.Error{Transport: fabric.Name, Op: transport.OpInit, Err: err}
		}
		l.conn = conn
		l.Link = fabric.New(conn, fabric.WithTimeout(*timeout), fabric.WithPackageType(l.packageType))
	}
	return l.Link.Init()
}

func (l *lazyFabric) Load(dst []byte) error {
	if l.Link == nil {
		return transport.Errorf(fabric.Name, transport.OpLoad, "load before init")
	}
	return l.Link.Load(dst)
}

func (l *lazyFabric) Finish(success, trusted bool) error {
	if l.Link == nil {
		return nil
	}
	return l.Link.Finish(success, trusted)
}

func (l *lazyFabric) Close() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}

func halt() {
	if *exitOnHalt {
		os.Exit(1)
	}
	for {
		time.Sleep(math.MaxInt64)
	}
}
