// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rsrc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/registry"
	"github.com/lvrsrc/go-rsrc/internal/vers"
	"github.com/lvrsrc/go-rsrc/internal/xmlio"
)

// XMLMode selects the XML export depth: Dump is binary-faithful (every
// section a side file), Extract stores parsed content inline where a
// block supports it.
type XMLMode = xmlio.Mode

// The two export modes, re-exported for callers of ExportXML.
const (
	XMLDump    = xmlio.Dump
	XMLExtract = xmlio.Extract
)

// ExportXML writes the container's XML surface to xmlPath, with section
// side files placed next to it.
func (rf *File) ExportXML(xmlPath string, mode XMLMode) error {
	f, err := os.Create(xmlPath)
	if err != nil {
		return errors.Wrap(err, "rsrc: create xml")
	}
	defer f.Close()
	base := strings.TrimSuffix(filepath.Base(xmlPath), filepath.Ext(xmlPath))
	opts := xmlio.Options{Mode: mode, FileBase: base}
	if err := xmlio.Export(rf.C, f, xmlio.DirSidecar(filepath.Dir(xmlPath)), opts); err != nil {
		return err
	}
	return errors.Wrap(f.Close(), "rsrc: close xml")
}

// CreateFromXML rebuilds an RSRC file from the XML surface at xmlPath,
// resolving side files against the XML's directory, and writes it to
// rsrcPath.
func CreateFromXML(xmlPath, rsrcPath string) error {
	in, err := os.Open(xmlPath)
	if err != nil {
		return errors.Wrap(err, "rsrc: open xml")
	}
	defer in.Close()

	c, err := xmlio.Import(in, xmlio.DirSidecar(filepath.Dir(xmlPath)), registry.New)
	if err != nil {
		return err
	}

	out, err := os.Create(rsrcPath)
	if err != nil {
		return errors.Wrap(err, "rsrc: create output")
	}
	defer out.Close()
	before7 := !vers.GreaterOrEqual(c.Version(), 7, 0, 0)
	if err := c.Save(out, before7); err != nil {
		return err
	}
	return errors.Wrap(out.Close(), "rsrc: close output")
}

// SaveFile writes the container to path, the file-backed form of Save.
func (rf *File) SaveFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "rsrc: create output")
	}
	defer out.Close()
	if err := rf.Save(out); err != nil {
		return err
	}
	return errors.Wrap(out.Close(), "rsrc: close output")
}
