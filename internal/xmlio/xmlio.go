// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xmlio moves an opened container to and from its XML surface:
// an RSRC root element holding one child element per block, each with one
// or more Section elements, plus an optional SpecialOrder element that
// reproduces a name pool written out of section order. Section content
// travels either inline (blocks implementing block.InlineXMLer) or as a
// sibling binary file referenced by relative name.
package xmlio

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Mode selects how much interpretation the export applies.
type Mode int

const (
	// Dump is the binary-faithful surface: every section is stored as a
	// side file of its on-wire bytes, no parsing required.
	Dump Mode = iota
	// Extract stores parsed content inline where the block implementation
	// supports it, falling back to side files elsewhere.
	Extract
)

// Options parameterizes an export.
type Options struct {
	Mode Mode
	// FileBase is the base name side files are derived from, typically
	// the XML file's name without extension.
	FileBase string
}

// Sidecar abstracts the directory side files are written to and read
// from, so round-trip tests can run against memory.
type Sidecar interface {
	Write(name string, data []byte) error
	Read(name string) ([]byte, error)
}

// DirSidecar stores side files in a directory, the CLI's configuration.
type DirSidecar string

// Write implements Sidecar.
func (d DirSidecar) Write(name string, data []byte) error {
	return os.WriteFile(filepath.Join(string(d), name), data, 0o644)
}

// Read implements Sidecar.
func (d DirSidecar) Read(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(string(d), name))
}

// MemSidecar stores side files in a map.
type MemSidecar map[string][]byte

// Write implements Sidecar.
func (m MemSidecar) Write(name string, data []byte) error {
	m[name] = append([]byte(nil), data...)
	return nil
}

// Read implements Sidecar.
func (m MemSidecar) Read(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, errors.Errorf("xmlio: no side file %q", name)
	}
	return data, nil
}

var identSanitize = regexp.MustCompile(`[^A-Za-z0-9_]`)

// prettyIdent turns a four-byte identifier into a usable XML tag,
// replacing characters XML names reject. The exact identifier is carried
// in an Ident attribute whenever the two differ.
func prettyIdent(ident string) string {
	out := identSanitize.ReplaceAllString(ident, "_")
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "X" + out
	}
	return out
}

// printable reports whether every byte is printable ASCII, the condition
// for using a Type/Ident attribute directly instead of a hex form.
func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}

// sideFileName builds the side-file name for one section:
// base_IDENT.bin for single-section blocks, base_IDENT<n>.bin (with m for
// negative indices) otherwise.
func sideFileName(base, ident string, index int32, multi bool, ext string) string {
	name := base + "_" + prettyIdent(strings.TrimRight(ident, " "))
	if multi {
		if index < 0 {
			name += "m" + itoa32(-index)
		} else {
			name += itoa32(index)
		}
	}
	return name + "." + ext
}

func itoa32(n int32) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
