// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vctp

// DSInit slot indices. The DSInit repeated-block carries 51 I32 slots of
// data-space initialization metadata: table sizes, offsets into the
// invariant data space, and TMI values (a type-map index in the low 24
// bits with flag bits above).
const (
	DSInitNHiliteTableEntries = iota
	DSInitHiliteTableOffset
	DSInitHiliteTableTMI
	DSInitNProbeTableEntries
	DSInitProbeTableOffset
	DSInitProbeTableTMI
	DSInitNDCOs
	DSInitFpdcoTableOfst
	DSInitFpdcoTableTMI
	DSInitNClumpQEs
	DSInitClumpQEAllocOffset
	DSInitClumpQEAllocTMI
	DSInitNConnections
	DSInitViParamTableOffset
	DSInitViParamTableTMI
	DSInitNExtraDCOInfoEntries
	DSInitExtraDCOInfoOffset
	DSInitExtraDCOInfoTMI
	DSInitNLocalInputConnections
	DSInitLocalInputConnIdxOffset
	DSInitLocalInputConnIdxTMI
	DSInitNNonLocalInputConnections
	DSInitNonLocalInputConnIdxOffset
	DSInitNCondIndicators
	DSInitCondIndIdxOffset
	DSInitNOutputConnections
	DSInitNOutPutLocalGlobals
	DSInitOutputConnIdxOffset
	DSInitNInputConnections
	DSInitInputConnIdxOffset
	DSInitNumInternalHiliteTableEntries
	DSInitInternalHiliteTableHandleAndPtrTMI
	DSInitNSyncDisplays
	DSInitSyncDisplayIdxOffset
	DSInitNSubVIPatches
	DSInitSubVIPatchTagsTMI
	DSInitSubVIPatchTMI
	DSInitEnpdTdOffsetsDso
	DSInitEnpdTdOffsetsTMI
	DSInitNDDOs
	DSInitSpDDOTableOffset
	DSInitSpDDOTableTMI
	DSInitNStepIntoNodes
	DSInitStepIntoNodeIdxTableOffset
	DSInitStepIntoNodeIdxTableTMI
	DSInitHiliteIdxTableTMI
	DSInitNumGeneratedCodeProfileResultTableEntries
	DSInitGeneratedCodeProfileResultTableTMI
	DSInitLReRunPCOffset
	DSInitLResumePCOffset
	DSInitLRetryPCOffset
)

// dsInitSlotNames labels each DSInit slot for the data-fill comments
// attached during integration.
var dsInitSlotNames = [dsInitRepeats]string{
	"nHiliteTableEntries", "hiliteTableOffset", "hiliteTableTMI",
	"nProbeTableEntries", "probeTableOffset", "probeTableTMI",
	"nDCOs", "fpdcoTableOfst", "fpdcoTableTMI",
	"nClumpQEs", "clumpQEAllocOffset", "clumpQEAllocTMI",
	"nConnections", "viParamTableOffset", "viParamTableTMI",
	"nExtraDCOInfoEntries", "extraDCOInfoOffset", "extraDCOInfoTMI",
	"nLocalInputConnections", "localInputConnIdxOffset", "localInputConnIdxTMI",
	"nNonLocalInputConnections", "nonLocalInputConnIdxOffset",
	"nCondIndicators", "condIndIdxOffset",
	"nOutputConnections", "nOutPutLocalGlobals", "outputConnIdxOffset",
	"nInputConnections", "inputConnIdxOffset",
	"numInternalHiliteTableEntries", "internalHiliteTableHandleAndPtrTMI",
	"nSyncDisplays", "syncDisplayIdxOffset",
	"nSubVIPatches", "subVIPatchTagsTMI", "subVIPatchTMI",
	"enpdTdOffsetsDso", "enpdTdOffsetsTMI",
	"nDDOs", "spDDOTableOffset", "spDDOTableTMI",
	"nStepIntoNodes", "stepIntoNodeIdxTableOffset", "stepIntoNodeIdxTableTMI",
	"hiliteIdxTableTMI",
	"numGeneratedCodeProfileResultTableEntries", "generatedCodeProfileResultTableTMI",
	"lReRunPCOffset", "lResumePCOffset", "lRetryPCOffset",
}

// TMITypeIndex extracts the type-map index from a DSInit TMI slot value:
// the low 24 bits, with flag bits above them masked off.
func TMITypeIndex(tmi uint32) uint32 { return tmi & 0xFFFFFF }

// dcoFieldKinds is the field-by-field kind layout of a Data Controller
// Object cluster. A zero Kind entry matches any child (the trailing
// custom-copy offset fields have no scalar kind equivalent).
var dcoFieldKinds = []struct {
	name string
	kind Kind
	any  bool
}{
	{name: "dcoIndex", kind: KindI16},
	{name: "ipCon", kind: KindU16},
	{name: "syncDisplay", kind: KindU8},
	{name: "extraUsed", kind: KindU8},
	{name: "flat", kind: KindU8},
	{name: "conNum", kind: KindI8},
	{name: "flagDSO", kind: KindI32},
	{name: "flagTMI", kind: KindI32},
	{name: "defaultDataTMI", kind: KindI32},
	{name: "extraDataTMI", kind: KindI32},
	{name: "dsSz", kind: KindI32},
	{name: "ddoWriteCode", kind: KindU8},
	{name: "ddoNeedsSubVIStartup", kind: KindU8},
	{name: "isIndicator", kind: KindU8},
	{name: "isScalar", kind: KindU8},
	{name: "defaultDataOffset", kind: KindI32},
	{name: "transferDataOffset", kind: KindI32},
	{name: "extraDataOffset", kind: KindI32},
	{name: "execDataPtrOffset", kind: KindI32},
	{name: "eltDsSz", kind: KindI32},
	{name: "copyReq", kind: KindU8},
	{name: "local", kind: KindU8},
	{name: "feo", kind: KindU8},
	{name: "nDims", kind: KindU8},
	{name: "copyProcIdx", kind: KindU8},
	{name: "copyFromRtnIdx", kind: KindU8},
	{name: "misclFlags", kind: KindU8},
	{name: "unusedFillerByte", kind: KindU8},
	{name: "subTypeDSO", kind: KindI32},
	{name: "customCopyFromOffset", any: true},
	{name: "customCopyToOffset", any: true},
	{name: "customCopyOffset", any: true},
}

// FindDSInit returns the DSInit repeated-block among info's top-level
// types, searching direct top-level entries first and then one level into
// clusters (some files wrap DSInit inside a cluster with other data).
// Returns nil if none is present.
func (info *Info) FindDSInit() *TypeDesc {
	for _, flatIdx := range info.TopLevel {
		td := info.GetFlatType(int(flatIdx))
		if td == nil {
			continue
		}
		if td.Kind == KindRepeatedBlock && td.NumRepeats == dsInitRepeats {
			return td
		}
		if td.Kind == KindCluster {
			for _, child := range td.Children {
				if child.Kind == KindRepeatedBlock && child.NumRepeats == dsInitRepeats {
					return child
				}
			}
		}
	}
	return nil
}

// matchDCOCluster reports whether td's children match the DCO field
// layout. A cluster with more fields than a DCO never matches; a shorter
// cluster matches as long as every present field agrees.
func matchDCOCluster(td *TypeDesc) bool {
	if td.Kind != KindCluster || len(td.Children) == 0 {
		return false
	}
	if len(td.Children) > len(dcoFieldKinds) {
		return false
	}
	for i, child := range td.Children {
		want := dcoFieldKinds[i]
		if want.any {
			continue
		}
		if child.Kind != want.kind {
			return false
		}
	}
	return true
}

// findDCOTable returns the repeated-block whose element cluster matches
// the DCO layout, plus that element cluster, searching info's top-level
// types. Both are nil if no DCO table is present.
func (info *Info) findDCOTable() (table, element *TypeDesc) {
	for _, flatIdx := range info.TopLevel {
		td := info.GetFlatType(int(flatIdx))
		if td == nil || td.Kind != KindRepeatedBlock || len(td.Children) == 0 {
			continue
		}
		elem := td.Children[len(td.Children)-1]
		if matchDCOCluster(elem) {
			return td, elem
		}
	}
	return nil, nil
}
