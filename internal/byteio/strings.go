// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package byteio

import "github.com/pkg/errors"

// ReadPString reads a 1-byte-length-prefixed ("Pascal") string starting at
// off. It returns the string bytes and the offset immediately following it.
func ReadPString(b []byte, off int) ([]byte, int, error) {
	n, err := ReadU8(b, off)
	if err != nil {
		return nil, off, errors.Wrap(err, "pstring length")
	}
	start := off + 1
	end := start + int(n)
	if end > len(b) {
		return nil, off, errors.Wrapf(ErrShortRead, "pstring body at %d len %d", start, n)
	}
	return b[start:end], end, nil
}

// PutPString serializes s as a 1-byte-length-prefixed string. The caller is
// responsible for ensuring len(s) <= 255; LabVIEW never emits longer names.
func PutPString(s []byte) []byte {
	out := make([]byte, 1+len(s))
	out[0] = byte(len(s))
	copy(out[1:], s)
	return out
}

// ReadLString reads a 4-byte-length-prefixed ("Long") string starting at
// off. Used for in-content strings, as opposed to the 1-byte name-pool form.
func ReadLString(b []byte, off int) ([]byte, int, error) {
	n, err := ReadBEU32(b, off)
	if err != nil {
		return nil, off, errors.Wrap(err, "lstring length")
	}
	start := off + 4
	end := start + int(n)
	if end > len(b) || end < start {
		return nil, off, errors.Wrapf(ErrShortRead, "lstring body at %d len %d", start, n)
	}
	return b[start:end], end, nil
}

// PutLString serializes s as a 4-byte-length-prefixed string.
func PutLString(s []byte) []byte {
	out := make([]byte, 4+len(s))
	copy(out, ToBigEndian32(uint32(len(s))))
	copy(out[4:], s)
	return out
}
