// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package block

import (
	"fmt"
	"io"
)

// PrintMapEntry is one (offset, length, label) record from a parse step.
// It is purely diagnostic and never affects output bytes.
type PrintMapEntry struct {
	Offset int64
	Length int
	Label  string
}

// PrintMap accumulates entries during parse for later hierarchical
// printing. The zero value is ready to use and records nothing until
// Enable is called, so normal parsing pays no cost.
type PrintMap struct {
	enabled bool
	entries []PrintMapEntry
}

// Enable turns on recording. Call before Parse.
func (m *PrintMap) Enable() { m.enabled = true }

// Record appends an entry if recording is enabled.
func (m *PrintMap) Record(offset int64, length int, label string) {
	if !m.enabled {
		return
	}
	m.entries = append(m.entries, PrintMapEntry{Offset: offset, Length: length, Label: label})
}

// Entries returns the recorded entries in parse order.
func (m *PrintMap) Entries() []PrintMapEntry { return m.entries }

// Fprint writes the recorded entries one per line (offset, length, label),
// in recording order; rsrc.File.PrintMap prints each block's lines under
// that block's identifier.
func (m *PrintMap) Fprint(w io.Writer) error {
	for _, e := range m.entries {
		if _, err := fmt.Fprintf(w, "%#08x +%-6d %s\n", e.Offset, e.Length, e.Label); err != nil {
			return err
		}
	}
	return nil
}
