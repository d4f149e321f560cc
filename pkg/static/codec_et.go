// Codecs specific to the first-generation (E/T) table layouts
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package static

import "sja1105-go/pkg/packing"

// AVBParamsEntryPackingET codes the E/T AVB parameters singleton.
func AVBParamsEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeAVBParamsEntryET
	entry := entryPtr.(*AVBParamsEntry)

	packField(buf, &entry.Destmeta, 95, 48, op)
	packField(buf, &entry.Srcmeta, 47, 0, op)
	return size
}

// GeneralParamsEntryPackingET codes the E/T general parameters singleton.
func GeneralParamsEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeGeneralParamsEntryET
	entry := entryPtr.(*GeneralParamsEntry)

	packField(buf, &entry.Vllupformat, 319, 319, op)
	packField(buf, &entry.MirrPtacu, 318, 318, op)
	packField(buf, &entry.Switchid, 317, 315, op)
	packField(buf, &entry.Hostprio, 314, 312, op)
	packField(buf, &entry.MacFltres1, 311, 264, op)
	packField(buf, &entry.MacFltres0, 263, 216, op)
	packField(buf, &entry.MacFlt1, 215, 168, op)
	packField(buf, &entry.MacFlt0, 167, 120, op)
	packField(buf, &entry.InclSrcpt1, 119, 119, op)
	packField(buf, &entry.InclSrcpt0, 118, 118, op)
	packField(buf, &entry.SendMeta1, 117, 117, op)
	packField(buf, &entry.SendMeta0, 116, 116, op)
	packField(buf, &entry.CascPort, 115, 113, op)
	packField(buf, &entry.HostPort, 112, 110, op)
	packField(buf, &entry.MirrPort, 109, 107, op)
	packField(buf, &entry.Vlmarker, 106, 75, op)
	packField(buf, &entry.Vlmask, 74, 43, op)
	packField(buf, &entry.Tpid, 42, 27, op)
	packField(buf, &entry.Ignore2stf, 26, 26, op)
	packField(buf, &entry.Tpid2, 25, 10, op)
	return size
}

// L2LookupParamsEntryPackingET codes the E/T FDB parameters singleton.
func L2LookupParamsEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeL2LookupParamsEntryET
	entry := entryPtr.(*L2LookupParamsEntry)

	packField(buf, &entry.Maxage, 31, 17, op)
	packField(buf, &entry.DynTbsz, 16, 14, op)
	packField(buf, &entry.Poly, 13, 6, op)
	packField(buf, &entry.SharedLearn, 5, 5, op)
	packField(buf, &entry.NoEnfHostprt, 4, 4, op)
	packField(buf, &entry.NoMgmtLearn, 3, 3, op)
	return size
}

// L2LookupEntryPackingET codes one E/T FDB entry.
func L2LookupEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeL2LookupEntryET
	entry := entryPtr.(*L2LookupEntry)

	packField(buf, &entry.Vlanid, 95, 84, op)
	packField(buf, &entry.Macaddr, 83, 36, op)
	packField(buf, &entry.Destports, 35, 31, op)
	packField(buf, &entry.Enfport, 30, 30, op)
	packField(buf, &entry.Index, 29, 20, op)
	return size
}

// MACConfigEntryPackingET codes one E/T per-port MAC configuration.
func MACConfigEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeMACConfigEntryET
	entry := entryPtr.(*MACConfigEntry)

	for i, offset := 0, 72; i < 8; i, offset = i+1, offset+19 {
		packField(buf, &entry.Enabled[i], offset+0, offset+0, op)
		packField(buf, &entry.Base[i], offset+9, offset+1, op)
		packField(buf, &entry.Top[i], offset+18, offset+10, op)
	}
	packField(buf, &entry.Ifg, 71, 67, op)
	packField(buf, &entry.Speed, 66, 65, op)
	packField(buf, &entry.TpDelin, 64, 49, op)
	packField(buf, &entry.TpDelout, 48, 33, op)
	packField(buf, &entry.Maxage, 32, 25, op)
	packField(buf, &entry.Vlanprio, 24, 22, op)
	packField(buf, &entry.Vlanid, 21, 10, op)
	packField(buf, &entry.IngMirr, 9, 9, op)
	packField(buf, &entry.EgrMirr, 8, 8, op)
	packField(buf, &entry.Drpnona664, 7, 7, op)
	packField(buf, &entry.Drpdtag, 6, 6, op)
	packField(buf, &entry.Drpuntag, 5, 5, op)
	packField(buf, &entry.Retag, 4, 4, op)
	packField(buf, &entry.DynLearn, 3, 3, op)
	packField(buf, &entry.Egress, 2, 2, op)
	packField(buf, &entry.Ingress, 1, 1, op)
	return size
}
