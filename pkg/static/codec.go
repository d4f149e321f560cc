// Bit-exact codecs for the tables shared by both switch generations
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package static

import "sja1105-go/pkg/packing"

// An EntryPacking function transfers one unpacked record to or from its
// packed representation and returns the packed size in bytes. The bit
// windows below come from the UM10944/UM11040 register tables and must not
// be derived or reordered.
type EntryPacking func(buf []byte, entryPtr any, op packing.Op) int

// ScheduleEntryPacking codes one slot of the global gate schedule.
func ScheduleEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeScheduleEntry
	entry := entryPtr.(*ScheduleEntry)

	packField(buf, &entry.Winstindex, 63, 54, op)
	packField(buf, &entry.Winend, 53, 53, op)
	packField(buf, &entry.Winst, 52, 52, op)
	packField(buf, &entry.Destports, 51, 47, op)
	packField(buf, &entry.Setvalid, 46, 46, op)
	packField(buf, &entry.Txen, 45, 45, op)
	packField(buf, &entry.ResmediaEn, 44, 44, op)
	packField(buf, &entry.Resmedia, 43, 36, op)
	packField(buf, &entry.Vlindex, 35, 26, op)
	packField(buf, &entry.Delta, 25, 8, op)
	return size
}

// ScheduleEntryPointsEntryPacking codes one thread's schedule entry point.
func ScheduleEntryPointsEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeScheduleEntryPointsEntry
	entry := entryPtr.(*ScheduleEntryPointsEntry)

	packField(buf, &entry.Subschindx, 31, 29, op)
	packField(buf, &entry.Delta, 28, 11, op)
	packField(buf, &entry.Address, 10, 1, op)
	return size
}

// ScheduleParamsEntryPacking codes the sub-schedule end indices.
func ScheduleParamsEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeScheduleParamsEntry
	entry := entryPtr.(*ScheduleParamsEntry)

	for i, offset := 0, 16; i < 8; i, offset = i+1, offset+10 {
		packField(buf, &entry.Subscheind[i], offset+9, offset+0, op)
	}
	return size
}

// ScheduleEntryPointsParamsEntryPacking codes the schedule clock source.
func ScheduleEntryPointsParamsEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeScheduleEntryPointsParamsEntry
	entry := entryPtr.(*ScheduleEntryPointsParamsEntry)

	packField(buf, &entry.Clksrc, 31, 30, op)
	packField(buf, &entry.Actsubsch, 29, 27, op)
	return size
}

// VLLookupEntryPacking codes a virtual link classification entry. The two
// layouts are selected by the Format discriminant, which is carried in the
// record itself (see (*Config).patchVllupformat).
func VLLookupEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeVLLookupEntry
	entry := entryPtr.(*VLLookupEntry)

	if entry.Format == 0 {
		packField(buf, &entry.Destports, 95, 91, op)
		packField(buf, &entry.Iscritical, 90, 90, op)
		packField(buf, &entry.Macaddr, 89, 42, op)
		packField(buf, &entry.Vlanid, 41, 30, op)
		packField(buf, &entry.Port, 29, 27, op)
		packField(buf, &entry.Vlanprior, 26, 24, op)
	} else {
		packField(buf, &entry.Egrmirr, 95, 91, op)
		packField(buf, &entry.Ingrmirr, 90, 90, op)
		packField(buf, &entry.Vlid, 57, 42, op)
		packField(buf, &entry.Port, 29, 27, op)
	}
	return size
}

// VLPolicingEntryPacking codes a virtual link policer. The bandwidth
// allocation gap and jitter only exist for rate-constrained links.
func VLPolicingEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeVLPolicingEntry
	entry := entryPtr.(*VLPolicingEntry)

	packField(buf, &entry.Type, 63, 63, op)
	packField(buf, &entry.Maxlen, 62, 52, op)
	packField(buf, &entry.Sharindx, 51, 42, op)
	if entry.Type == 0 {
		packField(buf, &entry.Bag, 41, 28, op)
		packField(buf, &entry.Jitter, 27, 18, op)
	}
	return size
}

// VLForwardingEntryPacking codes a virtual link forwarding rule.
func VLForwardingEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeVLForwardingEntry
	entry := entryPtr.(*VLForwardingEntry)

	packField(buf, &entry.Type, 31, 31, op)
	packField(buf, &entry.Priority, 30, 28, op)
	packField(buf, &entry.Partition, 27, 25, op)
	packField(buf, &entry.Destports, 24, 20, op)
	return size
}

// VLForwardingParamsEntryPacking codes the VL memory partition sizes.
func VLForwardingParamsEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeVLForwardingParamsEntry
	entry := entryPtr.(*VLForwardingParamsEntry)

	for i, offset := 0, 16; i < 8; i, offset = i+1, offset+10 {
		packField(buf, &entry.Partspc[i], offset+9, offset+0, op)
	}
	packField(buf, &entry.Debugen, 15, 15, op)
	return size
}

// L2PolicingEntryPacking codes one ingress policer.
func L2PolicingEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeL2PolicingEntry
	entry := entryPtr.(*L2PolicingEntry)

	packField(buf, &entry.Sharindx, 63, 58, op)
	packField(buf, &entry.Smax, 57, 42, op)
	packField(buf, &entry.Rate, 41, 26, op)
	packField(buf, &entry.Maxlen, 25, 15, op)
	packField(buf, &entry.Partition, 14, 12, op)
	return size
}

// VlanLookupEntryPacking codes one VLAN's port membership.
func VlanLookupEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeVlanLookupEntry
	entry := entryPtr.(*VlanLookupEntry)

	packField(buf, &entry.VingMirr, 63, 59, op)
	packField(buf, &entry.VegrMirr, 58, 54, op)
	packField(buf, &entry.VmembPort, 53, 49, op)
	packField(buf, &entry.VlanBc, 48, 44, op)
	packField(buf, &entry.TagPort, 43, 39, op)
	packField(buf, &entry.Vlanid, 38, 27, op)
	return size
}

// L2ForwardingEntryPacking codes port reachability and priority remapping.
func L2ForwardingEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeL2ForwardingEntry
	entry := entryPtr.(*L2ForwardingEntry)

	packField(buf, &entry.BcDomain, 63, 59, op)
	packField(buf, &entry.ReachPort, 58, 54, op)
	packField(buf, &entry.FlDomain, 53, 49, op)
	for i, offset := 0, 25; i < 8; i, offset = i+1, offset+3 {
		packField(buf, &entry.VlanPmap[i], offset+2, offset+0, op)
	}
	return size
}

// L2ForwardingParamsEntryPacking codes the L2 memory partition sizes.
func L2ForwardingParamsEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeL2ForwardingParamsEntry
	entry := entryPtr.(*L2ForwardingParamsEntry)

	packField(buf, &entry.MaxDynp, 95, 93, op)
	for i, offset := 0, 13; i < 8; i, offset = i+1, offset+10 {
		packField(buf, &entry.PartSpc[i], offset+9, offset+0, op)
	}
	return size
}

// ClkSyncParamsEntryPacking is a placeholder; the clock synchronization
// parameters table is carried at its fixed size but its field layout is not
// implemented.
func ClkSyncParamsEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	// TODO: pack the clock sync parameter fields (UM10944 chapter 4.2.6)
	return SizeClkSyncParamsEntry
}

// RetaggingEntryPacking codes one retagging rule.
func RetaggingEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeRetaggingEntry
	entry := entryPtr.(*RetaggingEntry)

	packField(buf, &entry.EgrPort, 63, 59, op)
	packField(buf, &entry.IngPort, 58, 54, op)
	packField(buf, &entry.VlanIng, 53, 42, op)
	packField(buf, &entry.VlanEgr, 41, 30, op)
	packField(buf, &entry.DoNotLearn, 29, 29, op)
	packField(buf, &entry.Destports, 27, 23, op)
	return size
}

// XMIIParamsEntryPacking codes each port's MII protocol selection.
func XMIIParamsEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeXMIIParamsEntry
	entry := entryPtr.(*XMIIParamsEntry)

	for i, offset := 0, 17; i < 5; i, offset = i+1, offset+3 {
		packField(buf, &entry.XMIIMode[i], offset+1, offset+0, op)
		packField(buf, &entry.PhyMac[i], offset+2, offset+2, op)
	}
	return size
}

// SGMIIEntryPacking codes the SGMII PCS register block of port 4 on R/S.
// Besides the documented registers, the block carries fixed reserved words
// that the chip expects verbatim.
func SGMIIEntryPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeSGMIIEntry
	entry := entryPtr.(*SGMIIEntry)

	packField(buf, &entry.DigitalErrorCnt, 1151, 1120, op)
	packField(buf, &entry.DigitalControl2, 1119, 1088, op)
	packField(buf, &entry.DebugControl, 383, 352, op)
	packField(buf, &entry.TestControl, 351, 320, op)
	packField(buf, &entry.AutonegControl, 287, 256, op)
	packField(buf, &entry.DigitalControl1, 255, 224, op)
	packField(buf, &entry.AutonegAdv, 223, 192, op)
	packField(buf, &entry.BasicControl, 191, 160, op)

	if op == packing.Pack {
		reserved := []struct {
			val        uint64
			start, end int
		}{
			{0x0000, 1087, 1056},
			{0x0000, 1055, 1024},
			{0x0000, 1023, 992},
			{0x0100, 991, 960},
			{0x023F, 959, 928},
			{0x000A, 927, 896},
			{0x1C22, 895, 864},
			{0x0001, 863, 832},
			{0x0003, 831, 800},
			{0x0000, 799, 768},
			{0x0001, 767, 736},
			{0x0005, 735, 704},
			{0x0101, 703, 672},
			{0x0000, 671, 640},
			{0x0001, 639, 608},
			{0x0000, 607, 576},
			{0x000A, 575, 544},
			{0x0000, 543, 512},
			{0x0000, 511, 480},
			{0x0000, 479, 448},
			{0x0000, 447, 416},
			{0x899C, 415, 384},
			{0x000A, 319, 288},
			{0x0004, 159, 128},
			{0x0000, 127, 96},
			{0x0000, 95, 64},
			{0x0000, 63, 32},
			{0x0000, 31, 0},
		}
		for _, r := range reserved {
			pack(buf, r.val, r.start, r.end)
		}
	}
	return size
}

// TableHeaderPacking codes the 12-byte header that precedes each table.
func TableHeaderPacking(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeTableHeader
	entry := entryPtr.(*TableHeader)

	packField(buf, &entry.BlockID, 31, 24, op)
	packField(buf, &entry.Len, 55, 32, op)
	packField(buf, &entry.CRC, 95, 64, op)
	return size
}
