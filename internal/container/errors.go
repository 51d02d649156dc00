// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package container

import "github.com/pkg/errors"

// ErrMalformed covers bad magic, out-of-range offsets, and impossible
// counts. It is fatal: read aborts.
var ErrMalformed = errors.New("container: malformed RSRC container")

// ErrSectionOverflow means a section's declared payload exceeds the data
// region.
var ErrSectionOverflow = errors.New("container: section payload exceeds data region")

// maxBlockCount bounds the block-info-header count to guard against a
// corrupt file driving an unbounded allocation.
const maxBlockCount = 4096
