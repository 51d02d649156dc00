// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry maps four-byte block identifiers to constructors for
// this module's concrete block.Parser implementations, the single
// Constructor container.Open needs. Unknown
// idents fall through to a raw-passthrough block that round-trips its
// sections byte-for-byte without interpreting them.
package registry

import (
	"github.com/lvrsrc/go-rsrc/internal/bdpw"
	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/cpc2"
	"github.com/lvrsrc/go-rsrc/internal/dfds"
	"github.com/lvrsrc/go-rsrc/internal/dthp"
	"github.com/lvrsrc/go-rsrc/internal/libn"
	"github.com/lvrsrc/go-rsrc/internal/lvsr"
	"github.com/lvrsrc/go-rsrc/internal/typemap"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
	"github.com/lvrsrc/go-rsrc/internal/vers"
	"github.com/lvrsrc/go-rsrc/internal/versrec"
)

// builders is the fixed table of known four-byte idents this module
// understands. Unlike a plugin registry that concrete packages populate
// via init() (which would require them importing this package back and
// create a cycle, since registry already imports them to build the
// table), the set of supported idents is closed, so one static map built
// at package load is simpler and equally table-driven. It is never
// written to after init, so it needs no guarding mutex.
var builders = map[string]func() *block.Base{
	versrec.Ident:     func() *block.Base { return &versrec.New().Base },
	vctp.Ident:        func() *block.Base { return &vctp.New().Base },
	typemap.IdentTM80: func() *block.Base { return &typemap.New(typemap.IdentTM80).Base },
	typemap.IdentDSTM: func() *block.Base { return &typemap.New(typemap.IdentDSTM).Base },
	dfds.Ident:        func() *block.Base { return &dfds.New().Base },
	dthp.Ident:        func() *block.Base { return &dthp.New().Base },
	bdpw.Ident:        func() *block.Base { return &bdpw.New().Base },
	lvsr.Ident:        func() *block.Base { return &lvsr.New().Base },
	libn.Ident:        func() *block.Base { return &libn.New().Base },
	cpc2.IdentCPC2:    func() *block.Base { return &cpc2.New(cpc2.IdentCPC2).Base },
	cpc2.IdentCPCT:    func() *block.Base { return &cpc2.New(cpc2.IdentCPCT).Base },
}

// New builds the block.Base for ident, dispatching to the registered
// constructor or, for any unrecognized ident, to a raw passthrough block
// that preserves its sections verbatim.
func New(ident [4]byte) *block.Base {
	build, ok := builders[string(ident[:])]
	if !ok {
		return newRawPassthrough(string(ident[:]))
	}
	return build()
}

// rawPassthrough implements block.Parser as the identity function: its
// ParseRaw/PrepareRaw never touch the bytes, so every section round-trips
// unchanged regardless of content.
type rawPassthrough struct {
	block.Base
}

func newRawPassthrough(ident string) *block.Base {
	b := &rawPassthrough{Base: block.Base{IdentCode: ident, Sections: map[int32]*block.Section{}}}
	b.Impl = b
	return &b.Base
}

func (b *rawPassthrough) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	return append([]byte(nil), raw...), nil
}

func (b *rawPassthrough) PrepareRaw(parsed interface{}) ([]byte, error) {
	return append([]byte(nil), parsed.([]byte)...), nil
}

func (b *rawPassthrough) ExpectedSize(parsed interface{}) (int, bool) {
	return len(parsed.([]byte)), true
}

func (b *rawPassthrough) DefaultEncoding(_ *block.Section, _ vers.Tuple) codec.Tag {
	return codec.None
}
