// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/u-root/u-root/pkg/uio"

	"github.com/linuxboot/s2l/pkg/tftf"
)

// ReadFile reads a whole file.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := uio.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read '%s': %w", path, err)
	}
	return b, nil
}

// ReadImage reads and decodes a TFTF image file.
func ReadImage(path string) (*tftf.Image, error) {
	b, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := tftf.ParseImage(b)
	if err != nil {
		return nil, fmt.Errorf("unable to parse the TFTF image '%s': %w", path, err)
	}
	return img, nil
}

// WriteImage encodes img to path.
func WriteImage(path string, img *tftf.Image) error {
	b, err := img.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// SplitFields splits a colon separated argument into at least minFields and
// at most maxFields fields.
func SplitFields(arg string, minFields, maxFields int) ([]string, error) {
	fields := strings.Split(arg, ":")
	if len(fields) < minFields || len(fields) > maxFields {
		return nil, ErrArgs{Err: fmt.Errorf("'%s' must have %d to %d colon separated fields", arg, minFields, maxFields)}
	}
	return fields, nil
}

// ParseUint32 parses a number in any base strconv accepts.
func ParseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, ErrArgs{Err: fmt.Errorf("'%s' is not a 32 bit number", s)}
	}
	return uint32(v), nil
}
