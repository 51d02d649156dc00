// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfds

import (
	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
)

// Fill is one decoded default value, shaped by the TypeDesc it was filled
// from.
type Fill struct {
	// Scalar holds the raw big-endian bytes for any fixed-width leaf kind.
	Scalar []byte
	// Text holds the decoded bytes for String/Path kinds (4-byte length
	// prefix on the wire).
	Text []byte
	// Elements holds Array/RepeatedBlock/Cluster field fills, in order
	// (row-major for multi-dimensional arrays).
	Elements []*Fill
	// Dims holds the actual runtime per-dimension element counts an Array
	// fill is prefixed with on the wire — independent of the TypeDesc's
	// own declared ArrayDims, which may be 0 (run-time bound).
	Dims []uint32
	// VariantFlatIndex is the flat-indexed type id a Variant fill names
	// before its inner fill.
	VariantFlatIndex uint32
	Inner            *Fill

	// SpecialSelector is the variant selector word read before a special
	// DSTM cluster fill: the selector names one cluster field, whose fill
	// follows alone.
	SpecialSelector uint32
}

// parseFill decodes one default fill for td starting at off, dispatching
// on td's kind. It returns the fill and the offset immediately after it.
func parseFill(b []byte, off int, td *vctp.TypeDesc) (*Fill, int, error) {
	switch td.Kind {
	case vctp.KindString, vctp.KindPath:
		text, next, err := byteio.ReadLString(b, off)
		if err != nil {
			return nil, off, errors.Wrap(err, "dfds: string/path fill")
		}
		return &Fill{Text: append([]byte(nil), text...)}, next, nil

	case vctp.KindArray:
		ndims := len(td.ArrayDims)
		if ndims == 0 {
			ndims = 1
		}
		dims := make([]uint32, ndims)
		total := 1
		for i := range dims {
			v, err := byteio.ReadBEU32(b, off)
			if err != nil {
				return nil, off, errors.Wrapf(err, "dfds: array dim %d", i)
			}
			dims[i] = v
			off += 4
			total *= int(v)
		}
		elemType := arrayElementType(td)
		f := &Fill{Dims: dims}
		for i := 0; i < total; i++ {
			elem, next, err := parseFill(b, off, elemType)
			if err != nil {
				return nil, off, errors.Wrapf(err, "dfds: array element %d", i)
			}
			f.Elements = append(f.Elements, elem)
			off = next
		}
		return f, off, nil

	case vctp.KindRepeatedBlock:
		f := &Fill{}
		if len(td.Children) == 0 {
			return f, off, nil
		}
		for i := 0; i < int(td.NumRepeats); i++ {
			elem, next, err := parseFill(b, off, td.Children[0])
			if err != nil {
				return nil, off, errors.Wrapf(err, "dfds: repeated-block element %d", i)
			}
			f.Elements = append(f.Elements, elem)
			off = next
		}
		return f, off, nil

	case vctp.KindCluster, vctp.KindFunction:
		f := &Fill{}
		for i, child := range td.Children {
			elem, next, err := parseFill(b, off, child)
			if err != nil {
				return nil, off, errors.Wrapf(err, "dfds: cluster field %d", i)
			}
			f.Elements = append(f.Elements, elem)
			off = next
		}
		return f, off, nil

	case vctp.KindVariant:
		idx, err := byteio.ReadBEU32(b, off)
		if err != nil {
			return nil, off, errors.Wrap(err, "dfds: variant flat index")
		}
		off += 4
		inner := td
		if len(td.Children) > 0 {
			inner = td.Children[0]
		}
		fill, next, err := parseFill(b, off, inner)
		if err != nil {
			return nil, off, errors.Wrap(err, "dfds: variant inner fill")
		}
		return &Fill{VariantFlatIndex: idx, Inner: fill}, next, nil

	default:
		w := vctp.ScalarWidth(td.Kind)
		if w < 0 {
			w = 0
		}
		if off+w > len(b) {
			return nil, off, errors.Errorf("dfds: scalar fill needs %d bytes, %d remain", w, len(b)-off)
		}
		return &Fill{Scalar: append([]byte(nil), b[off:off+w]...)}, off + w, nil
	}
}

// prepareFill is the deterministic inverse of parseFill.
func prepareFill(f *Fill, td *vctp.TypeDesc) ([]byte, error) {
	switch td.Kind {
	case vctp.KindString, vctp.KindPath:
		return byteio.PutLString(f.Text), nil

	case vctp.KindArray:
		elemType := arrayElementType(td)
		var out []byte
		for _, d := range f.Dims {
			out = append(out, byteio.ToBigEndian32(d)...)
		}
		for i, elem := range f.Elements {
			b, err := prepareFill(elem, elemType)
			if err != nil {
				return nil, errors.Wrapf(err, "dfds: array element %d", i)
			}
			out = append(out, b...)
		}
		return out, nil

	case vctp.KindRepeatedBlock:
		if len(td.Children) == 0 {
			return nil, nil
		}
		var out []byte
		for i, elem := range f.Elements {
			b, err := prepareFill(elem, td.Children[0])
			if err != nil {
				return nil, errors.Wrapf(err, "dfds: repeated-block element %d", i)
			}
			out = append(out, b...)
		}
		return out, nil

	case vctp.KindCluster, vctp.KindFunction:
		var out []byte
		for i, child := range td.Children {
			if i >= len(f.Elements) {
				return nil, errors.Errorf("dfds: cluster field %d missing fill", i)
			}
			b, err := prepareFill(f.Elements[i], child)
			if err != nil {
				return nil, errors.Wrapf(err, "dfds: cluster field %d", i)
			}
			out = append(out, b...)
		}
		return out, nil

	case vctp.KindVariant:
		out := byteio.ToBigEndian32(f.VariantFlatIndex)
		inner := td
		if len(td.Children) > 0 {
			inner = td.Children[0]
		}
		b, err := prepareFill(f.Inner, inner)
		if err != nil {
			return nil, errors.Wrap(err, "dfds: variant inner fill")
		}
		return append(out, b...), nil

	default:
		return append([]byte(nil), f.Scalar...), nil
	}
}

// parseSpecialClusterFill reads a "special DSTM cluster" fill: a variant
// selector naming one of td's children, followed by that single variant's
// fill.
func parseSpecialClusterFill(b []byte, off int, td *vctp.TypeDesc) (*Fill, int, error) {
	sel, err := byteio.ReadBEU32(b, off)
	if err != nil {
		return nil, off, errors.Wrap(err, "dfds: special cluster selector")
	}
	off += 4
	if int(sel) >= len(td.Children) {
		return nil, off, errors.Errorf("dfds: special cluster selector %d out of range (%d children)", sel, len(td.Children))
	}
	inner, next, err := parseFill(b, off, td.Children[sel])
	if err != nil {
		return nil, off, errors.Wrap(err, "dfds: special cluster variant fill")
	}
	return &Fill{SpecialSelector: sel, Inner: inner}, next, nil
}

// prepareSpecialClusterFill is the deterministic inverse of
// parseSpecialClusterFill.
func prepareSpecialClusterFill(f *Fill, td *vctp.TypeDesc) ([]byte, error) {
	if int(f.SpecialSelector) >= len(td.Children) {
		return nil, errors.Errorf("dfds: special cluster selector %d out of range (%d children)", f.SpecialSelector, len(td.Children))
	}
	out := byteio.ToBigEndian32(f.SpecialSelector)
	inner, err := prepareFill(f.Inner, td.Children[f.SpecialSelector])
	if err != nil {
		return nil, errors.Wrap(err, "dfds: special cluster variant fill")
	}
	return append(out, inner...), nil
}

// arrayElementType returns td's element TypeDesc, falling back to td itself
// if the array somehow declares no element (malformed but kept
// self-consistent for round-trip).
func arrayElementType(td *vctp.TypeDesc) *vctp.TypeDesc {
	if len(td.Children) > 0 {
		return td.Children[0]
	}
	return td
}
