// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package boot sequences one boot attempt: medium selection, image load,
// fallback from flash to fabric, trust demotion and launch.
//
// Flash failures fall back to the fabric once. Fabric failures, key
// derivation failures and status reporting failures halt.
package boot

import (
	"errors"
	"fmt"

	"github.com/linuxboot/s2l/pkg/loader"
	"github.com/linuxboot/s2l/pkg/log"
	"github.com/linuxboot/s2l/pkg/memory"
	"github.com/linuxboot/s2l/pkg/status"
	"github.com/linuxboot/s2l/pkg/transport"
	"github.com/linuxboot/s2l/pkg/trust"
)

// Launcher transfers control to a loaded image. On real hardware Launch
// does not return; a nil return means control was handed over.
type Launcher interface {
	// Launch jumps to the image. keys is nil when the image is untrusted.
	Launch(img *loader.Image, mem *memory.Window, keys *trust.Keys) error
}

// Config holds the collaborators of one boot.
type Config struct {
	// Flash is the flash medium. It may be nil on boards without one.
	Flash transport.Locator
	// Fabric is the fabric medium.
	Fabric transport.Transport

	Loader   *loader.Loader
	Trust    *trust.Manager
	Tracker  *status.Tracker
	Launcher Launcher

	// Previous is the status latched by the previous power cycle.
	Previous status.Word
	// ForceFabric selects the fabric regardless of Previous.
	ForceFabric bool
}

// Orchestrator runs the boot state machine.
type Orchestrator struct {
	cfg Config
}

// New returns an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Loader == nil:
		return nil, fmt.Errorf("no loader")
	case cfg.Trust == nil:
		return nil, fmt.Errorf("no trust manager")
	case cfg.Tracker == nil:
		return nil, fmt.Errorf("no status tracker")
	case cfg.Launcher == nil:
		return nil, fmt.Errorf("no launcher")
	}
	return &Orchestrator{cfg: cfg}, nil
}

// fatalError marks an error which bypasses fallback.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

var errNoMedium = &status.Error{C: status.CodeTransportInit, Err: errors.New("medium not present")}

// SelectMedium chooses the medium for this boot. Flash is chosen only when
// the previous cycle finished a flash boot and the fabric is not forced.
func SelectMedium(previous status.Word, forceFabric bool) Medium {
	if !forceFabric && previous.Outcome().FinishedSPI() {
		return MediumSPI
	}
	return MediumFabric
}

// Run performs the boot. It returns once the image was launched or the boot
// halted; there is no other exit.
func (o *Orchestrator) Run() Outcome {
	if err := o.cfg.Trust.DeriveKeys(); err != nil {
		return o.halt(err)
	}
	if err := o.cfg.Tracker.Advance(status.Operating, status.CodeNone); err != nil {
		return o.halt(err)
	}

	medium := SelectMedium(o.cfg.Previous, o.cfg.ForceFabric)
	log.Infof("previous status %s, booting from %s", o.cfg.Previous, medium)

	lastCode := status.CodeNone
	if o.cfg.Previous.Outcome() == status.Failed {
		// SelectMedium never picks flash here, the fabric is the recovery path.
		log.Warnf("previous boot ended with %s, recovering over the fabric", o.cfg.Previous)
		lastCode = status.CodePreviousBootFail
	}
	if medium == MediumSPI {
		img, err := o.attemptFlash()
		if err == nil {
			return o.launch(img, MediumSPI, false)
		}
		var fatal *fatalError
		if errors.As(err, &fatal) {
			return o.halt(err)
		}
		log.Errorf("flash boot failed: %v", err)
		lastCode = status.CodeOf(err)
	}

	fallback := medium == MediumSPI
	img, err := o.attemptFabric(fallback, lastCode)
	if err != nil {
		log.Errorf("fabric boot failed: %v", err)
		return o.halt(err)
	}
	return o.launch(img, MediumFabric, fallback)
}

func (o *Orchestrator) attemptFlash() (*loader.Image, error) {
	if err := o.cfg.Tracker.Advance(status.SPIBootStarted, status.CodeNone); err != nil {
		return nil, &fatalError{err}
	}
	flash := o.cfg.Flash
	if flash == nil {
		return nil, errNoMedium
	}

	img, err := o.loadFlash(flash)
	if err != nil {
		if ferr := flash.Finish(false, false); ferr != nil {
			log.Warnf("%v", ferr)
		}
		o.cfg.Loader.Memory().Clear()
		return nil, err
	}
	if err := flash.Finish(true, img.Trusted); err != nil {
		o.cfg.Loader.Memory().Clear()
		return nil, err
	}
	return img, nil
}

func (o *Orchestrator) loadFlash(flash transport.Locator) (*loader.Image, error) {
	if err := flash.Init(); err != nil {
		return nil, err
	}
	if _, err := flash.Locate(o.cfg.Loader.PackageType()); err != nil {
		return nil, err
	}
	return o.cfg.Loader.Load(flash)
}

func (o *Orchestrator) attemptFabric(fallback bool, lastCode status.Code) (*loader.Image, error) {
	started := status.FabricBootStarted
	if fallback {
		started = status.FallbackFabricStarted
	}
	if err := o.cfg.Tracker.Advance(started, lastCode); err != nil {
		return nil, err
	}
	fabric := o.cfg.Fabric
	if fabric == nil {
		return nil, errNoMedium
	}
	if err := fabric.Init(); err != nil {
		return nil, err
	}
	img, err := o.cfg.Loader.Load(fabric)
	if err != nil {
		if ferr := fabric.Finish(false, false); ferr != nil {
			log.Warnf("%v", ferr)
		}
		return nil, err
	}
	if err := fabric.Finish(true, img.Trusted); err != nil {
		return nil, err
	}
	return img, nil
}

// launch demotes an untrusted image, advertises the terminal status and
// hands over control, in that order.
func (o *Orchestrator) launch(img *loader.Image, m Medium, fallback bool) Outcome {
	if !img.Trusted {
		if err := o.cfg.Trust.DemoteToUntrusted(); err != nil {
			return o.halt(err)
		}
	}
	if err := o.cfg.Tracker.Advance(finished(m, fallback, img.Trusted), status.CodeNone); err != nil {
		return o.halt(err)
	}
	word := o.cfg.Tracker.Word()
	log.Infof("starting %q at %#x, status %s", img.Header.NameString(), img.Header.StartAddress, word)

	if err := o.cfg.Launcher.Launch(img, o.cfg.Loader.Memory(), o.cfg.Trust.Keys()); err != nil {
		return o.halt(&status.Error{C: status.CodeLaunchFailed, Err: err})
	}
	return &Launched{Medium: m, Fallback: fallback, Image: img, Word: word}
}

// halt advertises the failure and returns the terminal Halted outcome. A
// failing reporter still halts.
func (o *Orchestrator) halt(err error) Outcome {
	code := status.CodeOf(err)
	word := status.Merge(status.New(status.Failed), code)
	if aerr := o.cfg.Tracker.Advance(status.Failed, code); aerr != nil {
		log.Errorf("unable to advertise %s: %v", word, aerr)
	}
	log.Errorf("halting: %v", err)
	return &Halted{Err: err, Word: word}
}
