// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/s2l/cmds/tftftool/commands"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/create"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/ffffcreate"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/ffffshow"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/keygen"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/show"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/sign"
	"github.com/linuxboot/s2l/cmds/tftftool/commands/verify"
	"github.com/linuxboot/s2l/pkg/ffff"
	"github.com/linuxboot/s2l/pkg/tftf"
)

func TestKnownCommands(t *testing.T) {
	for name, cmd := range knownCommands {
		assert.NotEmpty(t, cmd.ShortDescription(), name)
		err := cmd.Execute([]string{"extra"})
		var argsErr commands.ErrArgs
		assert.True(t, errors.As(err, &argsErr), name)
	}
}

func TestCreateSignVerify(t *testing.T) {
	dir := t.TempDir()
	path := func(name string) string { return filepath.Join(dir, name) }

	code := bytes.Repeat([]byte{0x90}, 1024)
	require.NoError(t, os.WriteFile(path("code.bin"), code, 0o644))
	require.NoError(t, os.WriteFile(path("data.bin"), bytes.Repeat([]byte("s2l"), 300), 0o644))

	for _, k := range []*keygen.Command{
		{Algorithm: "RSA2048-SHA256", Name: "prod-rsa", PrivatePath: path("prod.pem"), KeyringPath: path("keys.json"), Production: true},
		{Algorithm: "SM2-SM3", Name: "dev-sm2", PrivatePath: path("dev.pem"), KeyringPath: path("keys.json")},
	} {
		require.NoError(t, k.Execute(nil), k.Name)
	}
	dup := &keygen.Command{Algorithm: "RSA2048-SHA256", Name: "prod-rsa", PrivatePath: path("x.pem"), KeyringPath: path("keys.json")}
	assert.Error(t, dup.Execute(nil))

	c := &create.Command{
		OutputPath:   path("s3fw.tftf"),
		Name:         "s3fw",
		PackageType:  "Stage3Firmware",
		StartAddress: "0x10000000",
		HeaderSize:   tftf.HeaderSizeDefault,
		Timestamp:    "20260101000000",
		Sections: []string{
			"RawCode:" + path("code.bin") + ":0x10000000",
			"CompressedData:" + path("data.bin") + ":0x10001000:ZSTD",
			"Manifest:" + path("data.bin"),
		},
	}
	require.NoError(t, c.Execute(nil))

	img, err := commands.ReadImage(path("s3fw.tftf"))
	require.NoError(t, err)
	require.Len(t, img.Header.Sections, 3)
	assert.Equal(t, "s3fw", img.Header.NameString())
	assert.Equal(t, uint32(0x10000000), img.Header.StartAddress)
	assert.Equal(t, uint32(tftf.IgnoreAddress), img.Header.Sections[2].LoadAddress)
	assert.Equal(t, uint32(900), img.Header.Sections[1].ExpandedLength)
	assert.Less(t, img.Header.Sections[1].Length, uint32(900))

	v := &verify.Command{ImagePath: path("s3fw.tftf"), KeyringPath: path("keys.json")}
	assert.ErrorIs(t, v.Execute(nil), verify.ErrUntrusted{})

	require.NoError(t, (&sign.Command{ImagePath: path("s3fw.tftf"), KeyPath: path("dev.pem"), KeyName: "dev-sm2", Algorithm: "SM2-SM3"}).Execute(nil))
	assert.ErrorIs(t, v.Execute(nil), verify.ErrUntrusted{})

	require.NoError(t, (&sign.Command{ImagePath: path("s3fw.tftf"), KeyPath: path("prod.pem"), KeyName: "prod-rsa", Algorithm: "RSA2048-SHA256"}).Execute(nil))
	assert.NoError(t, v.Execute(nil))

	img, err = commands.ReadImage(path("s3fw.tftf"))
	require.NoError(t, err)
	require.Len(t, img.Header.Sections, 5)
	assert.Equal(t, tftf.SectionSignature, img.Header.Sections[4].Type)

	for _, format := range []string{"text", "json"} {
		assert.NoError(t, (&show.Command{ImagePath: path("s3fw.tftf"), Format: format}).Execute(nil))
	}

	f := &ffffcreate.Command{
		OutputPath:     path("flash.bin"),
		Name:           "flash",
		Capacity:       "0x100000",
		EraseBlockSize: 4096,
		HeaderSize:     ffff.HeaderSizeMin,
		Redundant:      true,
		Elements:       []string{"Stage3Firmware:" + path("s3fw.tftf")},
	}
	require.NoError(t, f.Execute(nil))
	assert.NoError(t, (&ffffshow.Command{FlashPath: path("flash.bin")}).Execute(nil))

	flash, err := os.ReadFile(path("flash.bin"))
	require.NoError(t, err)
	e, err := ffff.Locate(bytes.NewReader(flash), int64(len(flash)), ffff.ElementStage3Firmware)
	require.NoError(t, err)
	signed, err := os.ReadFile(path("s3fw.tftf"))
	require.NoError(t, err)
	assert.Equal(t, signed, flash[e.Location:e.Location+e.Length])
}

func TestCreateRejects(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "code.bin")
	require.NoError(t, os.WriteFile(bin, []byte{1, 2, 3, 4}, 0o644))

	for name, sections := range map[string][]string{
		"unknown type":        {"Bogus:" + bin},
		"end marker":          {"End:" + bin},
		"missing file":        {"RawCode:" + filepath.Join(dir, "missing")},
		"class on raw":        {"RawCode:" + bin + ":0x1000:LZ4"},
		"unknown compression": {"CompressedCode:" + bin + ":0x1000:BZIP2"},
		"bad address":         {"RawCode:" + bin + ":0xzz"},
		"hashed after sig":    {"Signature:" + bin, "RawCode:" + bin},
	} {
		t.Run(name, func(t *testing.T) {
			c := &create.Command{
				OutputPath:   filepath.Join(dir, "out.tftf"),
				Name:         "bad",
				PackageType:  "Stage3Firmware",
				StartAddress: "0",
				HeaderSize:   tftf.HeaderSizeDefault,
				Sections:     sections,
			}
			assert.Error(t, c.Execute(nil))
		})
	}
}
