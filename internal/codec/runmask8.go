// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/pkg/errors"
)

// Run-mask-8 (also called zero-mask-8) groups the plaintext into
// runs of up to 8 bytes. Each run is preceded by one mask byte whose bit i
// is set iff byte i of the run is non-zero; zero bytes are then omitted from
// the stream entirely, since the mask already says they were zero.
const runMaskGroupSize = 8

func decodeRunMask8(raw []byte) ([]byte, error) {
	usize, err := byteio.ReadBEU32(raw, 0)
	if err != nil {
		return nil, errors.Wrap(err, "run-mask-8 uncompressed-size prefix")
	}
	body := raw[4:]
	if err := checkRunMaskBounds(len(body), int(usize)); err != nil {
		return nil, err
	}

	out := make([]byte, 0, usize)
	pos := 0
	for len(out) < int(usize) {
		if pos >= len(body) {
			return nil, errors.Wrapf(ErrBounds, "run-mask-8 truncated stream: have %d bytes, want %d", len(out), usize)
		}
		mask := body[pos]
		pos++
		groupLen := runMaskGroupSize
		if remaining := int(usize) - len(out); remaining < groupLen {
			groupLen = remaining
		}
		for i := 0; i < groupLen; i++ {
			if mask&(1<<uint(i)) != 0 {
				if pos >= len(body) {
					return nil, errors.Wrap(ErrBounds, "run-mask-8 truncated literal")
				}
				out = append(out, body[pos])
				pos++
			} else {
				out = append(out, 0)
			}
		}
	}
	return out, nil
}

func encodeRunMask8(plain []byte) []byte {
	body := make([]byte, 0, len(plain))
	for off := 0; off < len(plain); off += runMaskGroupSize {
		end := off + runMaskGroupSize
		if end > len(plain) {
			end = len(plain)
		}
		group := plain[off:end]
		var mask byte
		literals := make([]byte, 0, len(group))
		for i, b := range group {
			if b != 0 {
				mask |= 1 << uint(i)
				literals = append(literals, b)
			}
		}
		body = append(body, mask)
		body = append(body, literals...)
	}

	out := make([]byte, 4+len(body))
	copy(out, byteio.ToBigEndian32(uint32(len(plain))))
	copy(out[4:], body)
	return out
}

// checkRunMaskBounds enforces the codec's allowed expansion ratio:
// (compressedMinusHeader*8/9) - 7 <= uncompressed <= compressedMinusHeader*8.
func checkRunMaskBounds(compressedMinusHeader, uncompressed int) error {
	upper := compressedMinusHeader * 8
	lower := (compressedMinusHeader*8)/9 - 7
	if uncompressed > upper {
		return errors.Wrapf(ErrBounds, "run-mask-8 ratio: uncompressed %d exceeds upper bound %d", uncompressed, upper)
	}
	if uncompressed < lower {
		return errors.Wrapf(ErrBounds, "run-mask-8 ratio: uncompressed %d below lower bound %d", uncompressed, lower)
	}
	return nil
}
