// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package block

import "github.com/pkg/errors"

// The shared error taxonomy. Per-section errors (ParseExceeded,
// ParseShort, CodecBounds surfacing from codec) degrade that section to
// raw-only and must never abort the container; PrepareSizeMismatch and
// CrossReferenceMissing are fatal to the operation that raised them.
var (
	// ErrParseExceeded means ParseRaw consumed more bytes than the section
	// holds.
	ErrParseExceeded = errors.New("block: parser consumed more than the section payload")
	// ErrParseShort means ParseRaw left bytes unconsumed.
	ErrParseShort = errors.New("block: parser left bytes unconsumed")
	// ErrPrepareSizeMismatch means PrepareRaw's result length disagreed
	// with ExpectedSize. Fatal on write.
	ErrPrepareSizeMismatch = errors.New("block: prepare_raw result disagrees with expected_size")
	// ErrCrossReferenceMissing means an Integrate pass needed a peer block
	// that the container does not have.
	ErrCrossReferenceMissing = errors.New("block: required peer block is missing")
	// ErrXMLSchemaViolation means an XML import saw an unexpected tag or
	// attribute for this block.
	ErrXMLSchemaViolation = errors.New("block: unexpected XML schema")
)
