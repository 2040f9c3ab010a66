// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Table returns the element table of the directory.
func (h *Header) Table() table.Writer {
	t := table.NewWriter()
	t.SetTitle("FFFF %q at 0x%x, generation %d, %s flash", h.NameString(), h.Offset, h.Generation, humanize.IBytes(uint64(h.FlashCapacity)))
	t.AppendHeader(table.Row{"#", "Type", "Class", "ID", "Location", "Length", "Generation"})
	for i, e := range h.Elements {
		t.AppendRow(table.Row{
			i,
			e.Type,
			e.Class.Uint32(),
			e.ID,
			fmt.Sprintf("0x%08x", e.Location),
			humanize.IBytes(uint64(e.Length)),
			e.Generation,
		})
	}
	return t
}
