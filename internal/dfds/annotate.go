// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfds

import (
	"fmt"

	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/typemap"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
)

// annotateDSInitTables resolves the tables whose identity is only encoded
// inside the DSInit default fill: each TMI slot carries a type-map index
// (low 24 bits) naming the table's TypeDesc. VCTP's own integration
// cannot reach these — it has no fill values — so the annotation happens
// here, once the fills are decoded. Purpose/FillComments are metadata for
// XML readability and never change wire bytes.
func annotateDSInitTables(info *Info, vinfo *vctp.Info, tinfo *typemap.Info) {
	dsInit := vinfo.FindDSInit()
	if dsInit == nil {
		return
	}
	fill := findFillForTD(info.Entries, dsInit)
	if fill == nil {
		return
	}

	slot := func(i int) (uint32, bool) {
		if i < 0 || i >= len(fill.Elements) {
			return 0, false
		}
		el := fill.Elements[i]
		if len(el.Scalar) != 4 {
			return 0, false
		}
		v, err := byteio.ReadBEU32(el.Scalar, 0)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	annotate := func(slotIdx int, purpose string) *vctp.TypeDesc {
		tmi, ok := slot(slotIdx)
		if !ok {
			return nil
		}
		td := vinfo.GetTopType(int(tinfo.MinTypeID() + vctp.TMITypeIndex(tmi)))
		if td == nil {
			return nil
		}
		if td.Purpose == "" {
			td.Purpose = purpose
		}
		return td
	}

	if td := annotate(vctp.DSInitProbeTableTMI, "Table of Probe Points"); td != nil && td.Kind == vctp.KindRepeatedBlock {
		td.FillComments = make(map[int]string, td.NumRepeats)
		for i := 0; i < int(td.NumRepeats)/2; i++ {
			td.FillComments[2*i] = fmt.Sprintf("ProbePoint%d.DSOffset", i)
			td.FillComments[2*i+1] = fmt.Sprintf("ProbePoint%d.TMI", i)
		}
	}
	annotate(vctp.DSInitHiliteIdxTableTMI, "Table of Hilite Index values")
	annotate(vctp.DSInitClumpQEAllocTMI, "Clump QE Alloc")
	annotate(vctp.DSInitInternalHiliteTableHandleAndPtrTMI, "Internal Hilite Table Handle And Ptr")
	annotate(vctp.DSInitSubVIPatchTMI, "SubVI Patch")
	annotate(vctp.DSInitSubVIPatchTagsTMI, "Table of SubVI Patch Tags")
	annotate(vctp.DSInitLocalInputConnIdxTMI, "Tables of Connector Idx values (multiple consecutive tables)")
}

// findFillForTD locates the decoded fill belonging to td: either a fill
// entry's own TypeDesc, or a field of a cluster entry (DSInit sometimes
// sits inside a cluster with other data).
func findFillForTD(entries []FillEntry, td *vctp.TypeDesc) *Fill {
	for _, e := range entries {
		if e.Fill == nil {
			continue
		}
		if e.TD == td {
			return e.Fill
		}
		if e.TD != nil && e.TD.Kind == vctp.KindCluster {
			for i, child := range e.TD.Children {
				if child == td && i < len(e.Fill.Elements) {
					return e.Fill.Elements[i]
				}
			}
		}
	}
	return nil
}
