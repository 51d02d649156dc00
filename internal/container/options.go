// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package container

// Options carries caller-supplied, non-wire-affecting behavior: verbosity
// for the print-map diagnostic and whether Open records the name-pool
// order as a names-order hint even when it matches the section walk. Threaded explicitly through
// Open/Save rather than held in a package global.
type Options struct {
	// Verbose, when > 0, enables each block's print-map recording during
	// parse. Save does not read it.
	Verbose int
	// KeepNames makes Open record NamesOrder even when the name pool
	// already follows the section walk order; Save follows any recorded
	// NamesOrder verbatim (useful for round-trip tests that must not
	// silently "normalize" a file's name-pool layout).
	KeepNames bool
}
