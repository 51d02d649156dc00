// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vctp implements the Consolidated Type Table: a flat
// array of TypeDescs plus a top-level index list that every other block
// identifies its data types through.
package vctp

import (
	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/byteio"
)

// Kind is the closed enum of TypeDesc kinds. The authoring tool's full
// type enum is not publicly documented, so the concrete byte values are
// this package's own assignment. Everything the rest of the module depends
// on (the BDPW salt's numeric/string/path classification, label presence,
// nesting) holds for any closed assignment, so byte-for-byte kind
// compatibility with the authoring tool is not assumed anywhere.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBoolean
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindSingle
	KindDouble
	KindExtended
	KindString
	KindPath
	KindArray
	KindCluster
	KindFunction
	KindRefnum
	KindRepeatedBlock
	KindVariant
	// KindUnknown is the catch-all for any on-wire kind byte this
	// implementation doesn't specially interpret; its body is carried
	// opaquely so parse/prepare symmetry still holds.
	KindUnknown Kind = 0xFF
)

// String implements fmt.Stringer for diagnostics and purpose comments.
func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "Void"
	case KindBoolean:
		return "Boolean"
	case KindI8, KindI16, KindI32, KindI64:
		return "Integer"
	case KindU8, KindU16, KindU32, KindU64:
		return "UnsignedInteger"
	case KindSingle, KindDouble, KindExtended:
		return "Float"
	case KindString:
		return "String"
	case KindPath:
		return "Path"
	case KindArray:
		return "Array"
	case KindCluster:
		return "Cluster"
	case KindFunction:
		return "Function"
	case KindRefnum:
		return "Refnum"
	case KindRepeatedBlock:
		return "RepeatedBlock"
	case KindVariant:
		return "Variant"
	default:
		return "Unknown"
	}
}

// IsNumeric, IsString and IsPath classify a TypeDesc's kind for the BDPW
// salt's terminal count.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindBoolean, KindI8, KindI16, KindI32, KindI64,
		KindU8, KindU16, KindU32, KindU64, KindSingle, KindDouble, KindExtended:
		return true
	default:
		return false
	}
}

func (k Kind) IsString() bool { return k == KindString }
func (k Kind) IsPath() bool   { return k == KindPath }

// scalarWidth returns the on-wire byte width of a leaf kind's body. Every
// leaf kind is fixed-width (even String/Path, which in this
// reconstruction carry no inline value — the actual string/path content
// lives in DFDS's default fill, not in the TypeDesc itself) so the parser
// never has to guess where a trailing label starts. -1 marks KindUnknown,
// the only kind whose body is genuinely opaque and therefore never paired
// with a label (see ParseTypeDesc).
// ScalarWidth exposes scalarWidth to other packages (internal/dfds uses it
// to size a leaf's default fill the same way ParseTypeDesc sizes its body).
func ScalarWidth(k Kind) int { return scalarWidth(k) }

func scalarWidth(k Kind) int {
	switch k {
	case KindVoid, KindString, KindPath:
		return 0
	case KindBoolean, KindI8, KindU8:
		return 1
	case KindI16, KindU16, KindRefnum:
		return 2
	case KindI32, KindU32, KindSingle:
		return 4
	case KindI64, KindU64, KindDouble:
		return 8
	case KindExtended:
		return 10
	default:
		return -1
	}
}

const (
	// extendedLengthMarker: when the 2-byte header length field reads this
	// value, the real length follows as a 32-bit field.
	extendedLengthMarker = 0x7FFF
	// flagHasLabel marks that a length-prefixed label follows the
	// kind-specific payload. Reconstructed alongside Kind's
	// byte values; see the package doc comment.
	flagHasLabel = 0x01
)

// TypeDesc is the recursive description of one data type. FlatIndex is this TypeDesc's position in VCTP's
// flat array, assigned by the container during parse.
type TypeDesc struct {
	FlatIndex int
	Flags     uint8
	Kind      Kind

	// Body holds the kind-specific payload for scalar and otherwise
	// unrecognized kinds, verbatim, so an unknown or not-specially-parsed
	// kind still round-trips exactly.
	Body []byte

	// Children holds nested TypeDescs for compound kinds (Array: exactly
	// one, the element type; Cluster/Function: one per field/terminal;
	// RepeatedBlock: one, repeated NumRepeats times; Variant: one, the
	// contained type).
	Children []*TypeDesc
	// ArrayDims holds per-dimension declared sizes for KindArray.
	ArrayDims []uint32
	// NumRepeats is the repeat count for KindRepeatedBlock (DSInit is the
	// fixed 51-slot instance).
	NumRepeats uint32

	// Label is the optional length-prefixed name attached after the
	// payload, present iff Flags&flagHasLabel != 0.
	Label []byte

	// Purpose is an XML-readability-only annotation attached by VCTP's
	// integration pass; never written to
	// the wire.
	Purpose string

	// FillComments labels individual fill slots (DSInit slot names, DCO
	// field names, probe-point pairs) for XML readability. Like Purpose,
	// it is attached during integration and never written to the wire.
	FillComments map[int]string
}

// ParseTypeDesc reads one TypeDesc starting at off in b, returning it and
// the offset immediately following it. flatIndex is recorded on the
// result for later cross-referencing.
func ParseTypeDesc(b []byte, off int, flatIndex int) (*TypeDesc, int, error) {
	start := off
	declLen, err := byteio.ReadBEU16(b, off)
	if err != nil {
		return nil, off, errors.Wrap(err, "typedesc length")
	}
	flags, err := byteio.ReadU8(b, off+2)
	if err != nil {
		return nil, off, errors.Wrap(err, "typedesc flags")
	}
	kindByte, err := byteio.ReadU8(b, off+3)
	if err != nil {
		return nil, off, errors.Wrap(err, "typedesc kind")
	}
	off += 4

	var total int
	if declLen == extendedLengthMarker {
		ext, err := byteio.ReadBEU32(b, off)
		if err != nil {
			return nil, off, errors.Wrap(err, "typedesc extended length")
		}
		off += 4
		total = int(ext)
	} else {
		total = int(declLen)
	}
	if total < 4 {
		return nil, off, errors.Errorf("typedesc declared length %d too small", total)
	}
	end := start + total
	if end > len(b) || end < start {
		return nil, off, errors.Errorf("typedesc declared length %d exceeds buffer", total)
	}

	td := &TypeDesc{FlatIndex: flatIndex, Flags: flags, Kind: Kind(kindByte)}

	bodyEnd := end
	// hasLabel gates reading a trailing label. Every leaf kind this
	// parser knows about is fixed-width (scalarWidth), so the label never
	// has to be located by guessing backward from bodyEnd; KindUnknown's
	// body is genuinely opaque, so it never carries a label — any trailing
	// bytes stay inside Body instead (see the default case below).
	hasLabel := flags&flagHasLabel != 0

	switch td.Kind {
	case KindArray:
		if off, err = parseArrayBody(b, off, bodyEnd, td, flatIndex); err != nil {
			return nil, off, err
		}
	case KindCluster, KindFunction:
		if off, err = parseChildListBody(b, off, bodyEnd, td, flatIndex); err != nil {
			return nil, off, err
		}
	case KindRepeatedBlock:
		if off, err = parseRepeatedBlockBody(b, off, bodyEnd, td, flatIndex); err != nil {
			return nil, off, err
		}
	case KindVariant:
		if off, err = parseChildListBody(b, off, bodyEnd, td, flatIndex); err != nil {
			return nil, off, err
		}
	default:
		w := scalarWidth(td.Kind)
		if w < 0 {
			hasLabel = false // KindUnknown: opaque tail, no label to extract.
			w = bodyEnd - off
		}
		if off+w > bodyEnd {
			w = bodyEnd - off
		}
		td.Body = append([]byte(nil), b[off:off+w]...)
		off += w
	}

	if hasLabel && off < bodyEnd {
		label, next, err := byteio.ReadPString(b, off)
		if err != nil {
			return nil, off, errors.Wrap(err, "typedesc label")
		}
		td.Label = append([]byte(nil), label...)
		off = next
	}

	return td, end, nil
}

func parseArrayBody(b []byte, off, bodyEnd int, td *TypeDesc, flatIndex int) (int, error) {
	ndims, err := byteio.ReadBEU32(b, off)
	if err != nil {
		return off, errors.Wrap(err, "array ndims")
	}
	off += 4
	td.ArrayDims = make([]uint32, ndims)
	for i := range td.ArrayDims {
		v, err := byteio.ReadBEU32(b, off)
		if err != nil {
			return off, errors.Wrapf(err, "array dim %d", i)
		}
		td.ArrayDims[i] = v
		off += 4
	}
	if off >= bodyEnd {
		return off, nil
	}
	child, next, err := ParseTypeDesc(b, off, flatIndex)
	if err != nil {
		return off, errors.Wrap(err, "array element type")
	}
	td.Children = []*TypeDesc{child}
	return next, nil
}

func parseChildListBody(b []byte, off, bodyEnd int, td *TypeDesc, flatIndex int) (int, error) {
	count, err := byteio.ReadBEU16(b, off)
	if err != nil {
		return off, errors.Wrap(err, "child count")
	}
	off += 2
	for i := 0; i < int(count); i++ {
		if off >= bodyEnd {
			return off, errors.Errorf("child %d starts past declared length", i)
		}
		child, next, err := ParseTypeDesc(b, off, flatIndex)
		if err != nil {
			return off, errors.Wrapf(err, "child %d", i)
		}
		td.Children = append(td.Children, child)
		off = next
	}
	return off, nil
}

func parseRepeatedBlockBody(b []byte, off, bodyEnd int, td *TypeDesc, flatIndex int) (int, error) {
	n, err := byteio.ReadBEU32(b, off)
	if err != nil {
		return off, errors.Wrap(err, "repeat count")
	}
	off += 4
	td.NumRepeats = n
	if off >= bodyEnd {
		return off, nil
	}
	child, next, err := ParseTypeDesc(b, off, flatIndex)
	if err != nil {
		return off, errors.Wrap(err, "repeated-block element type")
	}
	td.Children = []*TypeDesc{child}
	return next, nil
}

// PrepareTypeDesc is the deterministic inverse of ParseTypeDesc: it
// re-serializes td, recomputing the header length (using the extension
// field when the payload exceeds extendedLengthMarker).
func PrepareTypeDesc(td *TypeDesc) ([]byte, error) {
	var body []byte
	switch td.Kind {
	case KindArray:
		body = append(body, byteio.ToBigEndian32(uint32(len(td.ArrayDims)))...)
		for _, d := range td.ArrayDims {
			body = append(body, byteio.ToBigEndian32(d)...)
		}
		if len(td.Children) > 0 {
			childBytes, err := PrepareTypeDesc(td.Children[0])
			if err != nil {
				return nil, err
			}
			body = append(body, childBytes...)
		}
	case KindCluster, KindFunction, KindVariant:
		body = append(body, byte(len(td.Children)>>8), byte(len(td.Children)))
		for i, c := range td.Children {
			childBytes, err := PrepareTypeDesc(c)
			if err != nil {
				return nil, errors.Wrapf(err, "child %d", i)
			}
			body = append(body, childBytes...)
		}
	case KindRepeatedBlock:
		body = append(body, byteio.ToBigEndian32(td.NumRepeats)...)
		if len(td.Children) > 0 {
			childBytes, err := PrepareTypeDesc(td.Children[0])
			if err != nil {
				return nil, err
			}
			body = append(body, childBytes...)
		}
	default:
		body = append(body, td.Body...)
	}

	if td.Flags&flagHasLabel != 0 {
		body = append(body, byteio.PutPString(td.Label)...)
	}

	shortTotal := 4 + len(body)
	out := make([]byte, 0, shortTotal+4)
	if shortTotal >= extendedLengthMarker {
		longTotal := 8 + len(body)
		out = append(out, byte(extendedLengthMarker>>8), byte(extendedLengthMarker&0xFF))
		out = append(out, td.Flags, byte(td.Kind))
		out = append(out, byteio.ToBigEndian32(uint32(longTotal))...)
	} else {
		out = append(out, byte(shortTotal>>8), byte(shortTotal))
		out = append(out, td.Flags, byte(td.Kind))
	}
	out = append(out, body...)
	return out, nil
}
