// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/camelcase"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Table returns the fixed header fields as a two column table.
func (h *Header) Table() table.Writer {
	t := table.NewWriter()
	t.SetTitle("TFTF header %q", h.NameString())
	t.AppendHeader(table.Row{"Field", "Value"})
	appendFields(t, reflect.ValueOf(h.Fixed))
	return t
}

// SectionTable returns the section table.
func (h *Header) SectionTable() table.Writer {
	t := table.NewWriter()
	t.SetTitle("Sections")
	t.AppendHeader(table.Row{"#", "Type", "Class", "ID", "Offset", "Length", "Load Address", "Expanded Length"})
	for i, s := range h.Sections {
		load := fmt.Sprintf("0x%08x", s.LoadAddress)
		if !s.Placed() {
			load = "not placed"
		}
		t.AppendRow(table.Row{
			i,
			s.Type,
			s.Class.Uint32(),
			s.ID,
			fmt.Sprintf("0x%x", h.PayloadOffset(i)),
			humanize.IBytes(uint64(s.Length)),
			load,
			humanize.IBytes(uint64(s.ExpandedLength)),
		})
	}
	return t
}

func appendFields(t table.Writer, v reflect.Value) {
	for i := 0; i < v.NumField(); i++ {
		field, value := v.Type().Field(i), v.Field(i)
		if value.Kind() == reflect.Struct {
			appendFields(t, value)
			continue
		}
		t.AppendRow(table.Row{strings.Join(camelcase.Split(field.Name), " "), formatField(value)})
	}
}

func formatField(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			for i := range b {
				b[i] = byte(v.Index(i).Uint())
			}
			return fmt.Sprintf("%q", CString(b))
		}
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = formatField(v.Index(i))
		}
		return strings.Join(parts, " ")
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("0x%x", v.Uint())
	}
	return fmt.Sprint(v.Interface())
}
