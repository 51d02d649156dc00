// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec implements the four section encodings a block may carry:
// none, zlib, the LabVIEW run-mask-8 compressor, and a fixed-keystream XOR
// cipher.
package codec

import "github.com/pkg/errors"

// Tag identifies a section's encoding.
type Tag int

const (
	// None stores the payload as-is.
	None Tag = iota
	// RunMask8 is LabVIEW's proprietary zero-mask compressor.
	RunMask8
	// Zlib is the standard DEFLATE-based zlib stream.
	Zlib
	// Xor is the fixed 8320-byte keystream cipher.
	Xor
)

// String implements fmt.Stringer for diagnostics and print-map labels.
func (t Tag) String() string {
	switch t {
	case None:
		return "none"
	case RunMask8:
		return "run-mask-8"
	case Zlib:
		return "zlib"
	case Xor:
		return "xor"
	default:
		return "unknown"
	}
}

// ErrBounds is returned when a decompressed payload violates the codec's
// allowed expansion ratio. The section carrying it must be degraded
// to raw-only by the caller, not propagated as a fatal container error.
var ErrBounds = errors.New("codec: bounds check failed")

// Decode inverts Encode for the given tag. For None and Xor the size prefix
// rules differ from Zlib/RunMask8: Xor carries no size prefix, while the
// other compressed tags are prefixed with a 4-byte big-endian uncompressed
// size.
func Decode(tag Tag, raw []byte) ([]byte, error) {
	switch tag {
	case None:
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	case Zlib:
		return decodeZlib(raw)
	case RunMask8:
		return decodeRunMask8(raw)
	case Xor:
		return decodeXor(raw), nil
	default:
		return nil, errors.Errorf("codec: unknown tag %v", tag)
	}
}

// Encode inverts Decode; it is the deterministic inverse used by prepare.
func Encode(tag Tag, plain []byte) ([]byte, error) {
	switch tag {
	case None:
		out := make([]byte, len(plain))
		copy(out, plain)
		return out, nil
	case Zlib:
		return encodeZlib(plain), nil
	case RunMask8:
		return encodeRunMask8(plain), nil
	case Xor:
		return encodeXor(plain), nil
	default:
		return nil, errors.Errorf("codec: unknown tag %v", tag)
	}
}
