// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package container

import "sort"

// anonymousName is the name_offset value marking a section with no entry in
// the name pool.
const anonymousName = 0xFFFFFFFF

// namedSectionRefs walks blocks in the given order and returns a ref for
// every section that points into the name pool.
func (c *Container) namedSectionRefs(order []string) []SectionRef {
	var refs []SectionRef
	for _, ident := range order {
		b := c.Blocks[ident]
		for _, idx := range b.SortedIndices() {
			if b.Sections[idx].Name != nil {
				refs = append(refs, SectionRef{Ident: ident, Index: idx})
			}
		}
	}
	return refs
}

// rememberNamesOrder compares the order names sit in the pool (by
// name_offset) against the section walk order and, when they differ,
// records the pool order so Save can reproduce it. With Options.KeepNames
// set the pool order is recorded unconditionally.
func (c *Container) rememberNamesOrder(before7 bool) {
	walk := c.namedSectionRefs(c.saveOrder(before7))
	if len(walk) == 0 {
		c.NamesOrder = nil
		return
	}

	type offRef struct {
		off uint32
		ref SectionRef
	}
	byOff := make([]offRef, 0, len(walk))
	for _, ref := range walk {
		sec := c.Blocks[ref.Ident].Sections[ref.Index]
		byOff = append(byOff, offRef{off: sec.NameOffset, ref: ref})
	}
	sort.SliceStable(byOff, func(i, j int) bool { return byOff[i].off < byOff[j].off })

	sorted := true
	for i := range byOff {
		if byOff[i].ref != walk[i] {
			sorted = false
			break
		}
	}
	if sorted && !c.Options.KeepNames {
		c.NamesOrder = nil
		return
	}
	refs := make([]SectionRef, 0, len(byOff))
	for _, or := range byOff {
		refs = append(refs, or.ref)
	}
	c.NamesOrder = refs
}

// nameOrderRefs returns the per-section order the name pool is built in on
// Save: the remembered NamesOrder hint when present (skipping refs that no
// longer resolve, appending named sections the hint does not cover), else
// the plain section walk.
func (c *Container) nameOrderRefs(saveOrder []string) []SectionRef {
	def := c.namedSectionRefs(saveOrder)
	if len(c.NamesOrder) == 0 {
		return def
	}
	seen := make(map[SectionRef]bool, len(c.NamesOrder))
	out := make([]SectionRef, 0, len(def))
	for _, ref := range c.NamesOrder {
		b, ok := c.Blocks[ref.Ident]
		if !ok {
			continue
		}
		sec, ok := b.Sections[ref.Index]
		if !ok || sec.Name == nil {
			continue
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	for _, ref := range def {
		if !seen[ref] {
			out = append(out, ref)
		}
	}
	return out
}
