// Codecs specific to the second-generation (P/Q/R/S) table layouts
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package static

import "sja1105-go/pkg/packing"

// AVBParamsEntryPackingPQRS codes the P/Q/R/S AVB parameters singleton.
func AVBParamsEntryPackingPQRS(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeAVBParamsEntryPQRS
	entry := entryPtr.(*AVBParamsEntry)

	packField(buf, &entry.L2cbs, 127, 127, op)
	packField(buf, &entry.CasMaster, 126, 126, op)
	packField(buf, &entry.Destmeta, 125, 78, op)
	packField(buf, &entry.Srcmeta, 77, 33, op)
	return size
}

// GeneralParamsEntryPackingPQRS codes the P/Q/R/S general parameters
// singleton.
func GeneralParamsEntryPackingPQRS(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeGeneralParamsEntryPQRS
	entry := entryPtr.(*GeneralParamsEntry)

	packField(buf, &entry.Vllupformat, 351, 351, op)
	packField(buf, &entry.MirrPtacu, 350, 350, op)
	packField(buf, &entry.Switchid, 349, 347, op)
	packField(buf, &entry.Hostprio, 346, 344, op)
	packField(buf, &entry.MacFltres1, 343, 296, op)
	packField(buf, &entry.MacFltres0, 295, 248, op)
	packField(buf, &entry.MacFlt1, 247, 200, op)
	packField(buf, &entry.MacFlt0, 199, 152, op)
	packField(buf, &entry.InclSrcpt1, 151, 151, op)
	packField(buf, &entry.InclSrcpt0, 150, 150, op)
	packField(buf, &entry.SendMeta1, 149, 149, op)
	packField(buf, &entry.SendMeta0, 148, 148, op)
	packField(buf, &entry.CascPort, 147, 145, op)
	packField(buf, &entry.HostPort, 144, 142, op)
	packField(buf, &entry.MirrPort, 141, 139, op)
	packField(buf, &entry.Vlmarker, 138, 107, op)
	packField(buf, &entry.Vlmask, 106, 75, op)
	packField(buf, &entry.Tpid, 74, 59, op)
	packField(buf, &entry.Ignore2stf, 58, 58, op)
	packField(buf, &entry.Tpid2, 57, 42, op)
	packField(buf, &entry.QueueTs, 41, 41, op)
	packField(buf, &entry.Egrmirrvid, 40, 29, op)
	packField(buf, &entry.Egrmirrpcp, 28, 26, op)
	packField(buf, &entry.Egrmirrdei, 25, 25, op)
	packField(buf, &entry.ReplayPort, 24, 22, op)
	return size
}

// L2LookupParamsEntryPackingPQRS codes the P/Q/R/S FDB parameters
// singleton.
func L2LookupParamsEntryPackingPQRS(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeL2LookupParamsEntryPQRS
	entry := entryPtr.(*L2LookupParamsEntry)

	packField(buf, &entry.Drpbc, 127, 123, op)
	packField(buf, &entry.Drpmc, 122, 118, op)
	packField(buf, &entry.Drpuni, 117, 113, op)
	for i, offset := 0, 58; i < 5; i, offset = i+1, offset+11 {
		packField(buf, &entry.Maxaddrp[i], offset+10, offset+0, op)
	}
	packField(buf, &entry.Maxage, 57, 43, op)
	packField(buf, &entry.StartDynspc, 42, 33, op)
	packField(buf, &entry.Drpnolearn, 32, 28, op)
	packField(buf, &entry.SharedLearn, 27, 27, op)
	packField(buf, &entry.NoEnfHostprt, 26, 26, op)
	packField(buf, &entry.NoMgmtLearn, 25, 25, op)
	packField(buf, &entry.UseStatic, 24, 24, op)
	packField(buf, &entry.OwrDyn, 23, 23, op)
	packField(buf, &entry.LearnOnce, 22, 22, op)
	return size
}

// L2LookupEntryPackingPQRS codes one P/Q/R/S FDB entry. The layout matches
// UM11040 Table 16/17 with LOCKEDS set, which is what static entries are.
func L2LookupEntryPackingPQRS(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeL2LookupEntryPQRS
	entry := entryPtr.(*L2LookupEntry)

	packField(buf, &entry.Mirrvlan, 158, 147, op)
	packField(buf, &entry.Mirr, 145, 145, op)
	packField(buf, &entry.Retag, 144, 144, op)
	packField(buf, &entry.MaskIotag, 143, 143, op)
	packField(buf, &entry.MaskVlanid, 142, 131, op)
	packField(buf, &entry.MaskMacaddr, 130, 83, op)
	packField(buf, &entry.Iotag, 82, 82, op)
	packField(buf, &entry.Vlanid, 81, 70, op)
	packField(buf, &entry.Macaddr, 69, 22, op)
	packField(buf, &entry.Destports, 21, 17, op)
	packField(buf, &entry.Enfport, 16, 16, op)
	packField(buf, &entry.Index, 15, 6, op)
	return size
}

// MACConfigEntryPackingPQRS codes one P/Q/R/S per-port MAC configuration.
func MACConfigEntryPackingPQRS(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeMACConfigEntryPQRS
	entry := entryPtr.(*MACConfigEntry)

	for i, offset := 0, 104; i < 8; i, offset = i+1, offset+19 {
		packField(buf, &entry.Enabled[i], offset+0, offset+0, op)
		packField(buf, &entry.Base[i], offset+9, offset+1, op)
		packField(buf, &entry.Top[i], offset+18, offset+10, op)
	}
	packField(buf, &entry.Ifg, 103, 99, op)
	packField(buf, &entry.Speed, 98, 97, op)
	packField(buf, &entry.TpDelin, 96, 81, op)
	packField(buf, &entry.TpDelout, 80, 65, op)
	packField(buf, &entry.Maxage, 64, 57, op)
	packField(buf, &entry.Vlanprio, 56, 54, op)
	packField(buf, &entry.Vlanid, 53, 42, op)
	packField(buf, &entry.IngMirr, 41, 41, op)
	packField(buf, &entry.EgrMirr, 40, 40, op)
	packField(buf, &entry.Drpnona664, 39, 39, op)
	packField(buf, &entry.Drpdtag, 38, 38, op)
	packField(buf, &entry.Drpsotag, 37, 37, op)
	packField(buf, &entry.Drpsitag, 36, 36, op)
	packField(buf, &entry.Drpuntag, 35, 35, op)
	packField(buf, &entry.Retag, 34, 34, op)
	packField(buf, &entry.DynLearn, 33, 33, op)
	packField(buf, &entry.Egress, 32, 32, op)
	packField(buf, &entry.Ingress, 31, 31, op)
	packField(buf, &entry.Mirrcie, 30, 30, op)
	packField(buf, &entry.Mirrcetag, 29, 29, op)
	packField(buf, &entry.Ingmirrvid, 28, 17, op)
	packField(buf, &entry.Ingmirrpcp, 16, 14, op)
	packField(buf, &entry.Ingmirrdei, 13, 13, op)
	return size
}
