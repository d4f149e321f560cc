// Per-kind table storage and the per-variant compatibility matrices
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package static

import (
	"errors"

	"sja1105-go/pkg/packing"
)

// Errors reported by table mutation.
var (
	// ErrOutOfRange means an entry index or count exceeds the table's
	// hardware limit.
	ErrOutOfRange = errors.New("static: entry index or count out of range")
	// ErrUnknownDevice means the device ID / part number pair does not
	// name a supported variant.
	ErrUnknownDevice = errors.New("static: unknown device ID")
)

// TableOps binds one table kind to its codec and limits for a particular
// hardware variant. A zero TableOps marks a table the variant lacks.
type TableOps struct {
	Packing         EntryPacking
	NewEntry        func() any
	PackedEntrySize int
	MaxEntryCount   int
}

// Table holds the unpacked entries of one configuration table. Entries are
// pointers to the kind's record type (e.g. *VlanLookupEntry).
type Table struct {
	Entries []any
	ops     *TableOps
}

// Ops exposes the codec/limits binding of this table.
func (t *Table) Ops() *TableOps { return t.ops }

// EntryCount returns the number of entries currently in the table.
func (t *Table) EntryCount() int { return len(t.Entries) }

// Resize grows or shrinks the table to count entries. New slots are
// zero-valued records. The entry slice is reallocated, so callers must not
// retain references into the old storage.
func (t *Table) Resize(count int) error {
	if count > t.ops.MaxEntryCount {
		return ErrOutOfRange
	}
	entries := make([]any, count)
	n := copy(entries, t.Entries)
	for i := n; i < count; i++ {
		entries[i] = t.ops.NewEntry()
	}
	t.Entries = entries
	return nil
}

// DeleteEntry removes the entry at index i, shifting later entries down.
func (t *Table) DeleteEntry(i int) error {
	if i < 0 || i >= len(t.Entries) {
		return ErrOutOfRange
	}
	t.Entries = append(t.Entries[:i], t.Entries[i+1:]...)
	return nil
}

// AppendEntry adds one entry, which must be a pointer to the kind's record
// type.
func (t *Table) AppendEntry(entry any) error {
	if len(t.Entries) >= t.ops.MaxEntryCount {
		return ErrOutOfRange
	}
	t.Entries = append(t.Entries, entry)
	return nil
}

// addPackedEntry unpacks one entry from buf and appends it, returning the
// number of bytes consumed.
func (t *Table) addPackedEntry(buf []byte) (int, error) {
	if len(t.Entries) >= t.ops.MaxEntryCount {
		return 0, ErrOutOfRange
	}
	entry := t.ops.NewEntry()
	n := t.ops.Packing(buf[:t.ops.PackedEntrySize], entry, packing.Unpack)
	t.Entries = append(t.Entries, entry)
	return n, nil
}

// Compatibility matrices. One ops table per variant; zero rows mark tables
// the variant does not implement.

// SJA1105E: first generation, no TTEthernet.
var sja1105eTableOps = [BlkIdxMax]TableOps{
	BlkIdxL2Lookup: {
		Packing:         L2LookupEntryPackingET,
		NewEntry:        func() any { return new(L2LookupEntry) },
		PackedEntrySize: SizeL2LookupEntryET,
		MaxEntryCount:   MaxL2LookupCount,
	},
	BlkIdxL2Policing: {
		Packing:         L2PolicingEntryPacking,
		NewEntry:        func() any { return new(L2PolicingEntry) },
		PackedEntrySize: SizeL2PolicingEntry,
		MaxEntryCount:   MaxL2PolicingCount,
	},
	BlkIdxVlanLookup: {
		Packing:         VlanLookupEntryPacking,
		NewEntry:        func() any { return new(VlanLookupEntry) },
		PackedEntrySize: SizeVlanLookupEntry,
		MaxEntryCount:   MaxVlanLookupCount,
	},
	BlkIdxL2Forwarding: {
		Packing:         L2ForwardingEntryPacking,
		NewEntry:        func() any { return new(L2ForwardingEntry) },
		PackedEntrySize: SizeL2ForwardingEntry,
		MaxEntryCount:   MaxL2ForwardingCount,
	},
	BlkIdxMACConfig: {
		Packing:         MACConfigEntryPackingET,
		NewEntry:        func() any { return new(MACConfigEntry) },
		PackedEntrySize: SizeMACConfigEntryET,
		MaxEntryCount:   MaxMACConfigCount,
	},
	BlkIdxL2LookupParams: {
		Packing:         L2LookupParamsEntryPackingET,
		NewEntry:        func() any { return new(L2LookupParamsEntry) },
		PackedEntrySize: SizeL2LookupParamsEntryET,
		MaxEntryCount:   MaxL2LookupParamsCount,
	},
	BlkIdxL2ForwardingParams: {
		Packing:         L2ForwardingParamsEntryPacking,
		NewEntry:        func() any { return new(L2ForwardingParamsEntry) },
		PackedEntrySize: SizeL2ForwardingParamsEntry,
		MaxEntryCount:   MaxL2ForwardingParamsCount,
	},
	BlkIdxAVBParams: {
		Packing:         AVBParamsEntryPackingET,
		NewEntry:        func() any { return new(AVBParamsEntry) },
		PackedEntrySize: SizeAVBParamsEntryET,
		MaxEntryCount:   MaxAVBParamsCount,
	},
	BlkIdxGeneralParams: {
		Packing:         GeneralParamsEntryPackingET,
		NewEntry:        func() any { return new(GeneralParamsEntry) },
		PackedEntrySize: SizeGeneralParamsEntryET,
		MaxEntryCount:   MaxGeneralParamsCount,
	},
	BlkIdxRetagging: {
		Packing:         RetaggingEntryPacking,
		NewEntry:        func() any { return new(RetaggingEntry) },
		PackedEntrySize: SizeRetaggingEntry,
		MaxEntryCount:   MaxRetaggingCount,
	},
	BlkIdxXMIIParams: {
		Packing:         XMIIParamsEntryPacking,
		NewEntry:        func() any { return new(XMIIParamsEntry) },
		PackedEntrySize: SizeXMIIParamsEntry,
		MaxEntryCount:   MaxXMIIParamsCount,
	},
}

// SJA1105T: first generation, TTEthernet.
var sja1105tTableOps = [BlkIdxMax]TableOps{
	BlkIdxSchedule: {
		Packing:         ScheduleEntryPacking,
		NewEntry:        func() any { return new(ScheduleEntry) },
		PackedEntrySize: SizeScheduleEntry,
		MaxEntryCount:   MaxScheduleCount,
	},
	BlkIdxScheduleEntryPoints: {
		Packing:         ScheduleEntryPointsEntryPacking,
		NewEntry:        func() any { return new(ScheduleEntryPointsEntry) },
		PackedEntrySize: SizeScheduleEntryPointsEntry,
		MaxEntryCount:   MaxScheduleEntryPointsCount,
	},
	BlkIdxVLLookup: {
		Packing:         VLLookupEntryPacking,
		NewEntry:        func() any { return new(VLLookupEntry) },
		PackedEntrySize: SizeVLLookupEntry,
		MaxEntryCount:   MaxVLLookupCount,
	},
	BlkIdxVLPolicing: {
		Packing:         VLPolicingEntryPacking,
		NewEntry:        func() any { return new(VLPolicingEntry) },
		PackedEntrySize: SizeVLPolicingEntry,
		MaxEntryCount:   MaxVLPolicingCount,
	},
	BlkIdxVLForwarding: {
		Packing:         VLForwardingEntryPacking,
		NewEntry:        func() any { return new(VLForwardingEntry) },
		PackedEntrySize: SizeVLForwardingEntry,
		MaxEntryCount:   MaxVLForwardingCount,
	},
	BlkIdxL2Lookup: {
		Packing:         L2LookupEntryPackingET,
		NewEntry:        func() any { return new(L2LookupEntry) },
		PackedEntrySize: SizeL2LookupEntryET,
		MaxEntryCount:   MaxL2LookupCount,
	},
	BlkIdxL2Policing: {
		Packing:         L2PolicingEntryPacking,
		NewEntry:        func() any { return new(L2PolicingEntry) },
		PackedEntrySize: SizeL2PolicingEntry,
		MaxEntryCount:   MaxL2PolicingCount,
	},
	BlkIdxVlanLookup: {
		Packing:         VlanLookupEntryPacking,
		NewEntry:        func() any { return new(VlanLookupEntry) },
		PackedEntrySize: SizeVlanLookupEntry,
		MaxEntryCount:   MaxVlanLookupCount,
	},
	BlkIdxL2Forwarding: {
		Packing:         L2ForwardingEntryPacking,
		NewEntry:        func() any { return new(L2ForwardingEntry) },
		PackedEntrySize: SizeL2ForwardingEntry,
		MaxEntryCount:   MaxL2ForwardingCount,
	},
	BlkIdxMACConfig: {
		Packing:         MACConfigEntryPackingET,
		NewEntry:        func() any { return new(MACConfigEntry) },
		PackedEntrySize: SizeMACConfigEntryET,
		MaxEntryCount:   MaxMACConfigCount,
	},
	BlkIdxScheduleParams: {
		Packing:         ScheduleParamsEntryPacking,
		NewEntry:        func() any { return new(ScheduleParamsEntry) },
		PackedEntrySize: SizeScheduleParamsEntry,
		MaxEntryCount:   MaxScheduleParamsCount,
	},
	BlkIdxScheduleEntryPointsParams: {
		Packing:         ScheduleEntryPointsParamsEntryPacking,
		NewEntry:        func() any { return new(ScheduleEntryPointsParamsEntry) },
		PackedEntrySize: SizeScheduleEntryPointsParamsEntry,
		MaxEntryCount:   MaxScheduleEntryPointsParamsCount,
	},
	BlkIdxVLForwardingParams: {
		Packing:         VLForwardingParamsEntryPacking,
		NewEntry:        func() any { return new(VLForwardingParamsEntry) },
		PackedEntrySize: SizeVLForwardingParamsEntry,
		MaxEntryCount:   MaxVLForwardingParamsCount,
	},
	BlkIdxL2LookupParams: {
		Packing:         L2LookupParamsEntryPackingET,
		NewEntry:        func() any { return new(L2LookupParamsEntry) },
		PackedEntrySize: SizeL2LookupParamsEntryET,
		MaxEntryCount:   MaxL2LookupParamsCount,
	},
	BlkIdxL2ForwardingParams: {
		Packing:         L2ForwardingParamsEntryPacking,
		NewEntry:        func() any { return new(L2ForwardingParamsEntry) },
		PackedEntrySize: SizeL2ForwardingParamsEntry,
		MaxEntryCount:   MaxL2ForwardingParamsCount,
	},
	BlkIdxClkSyncParams: {
		Packing:         ClkSyncParamsEntryPacking,
		NewEntry:        func() any { return new(ClkSyncParamsEntry) },
		PackedEntrySize: SizeClkSyncParamsEntry,
		MaxEntryCount:   MaxClkSyncCount,
	},
	BlkIdxAVBParams: {
		Packing:         AVBParamsEntryPackingET,
		NewEntry:        func() any { return new(AVBParamsEntry) },
		PackedEntrySize: SizeAVBParamsEntryET,
		MaxEntryCount:   MaxAVBParamsCount,
	},
	BlkIdxGeneralParams: {
		Packing:         GeneralParamsEntryPackingET,
		NewEntry:        func() any { return new(GeneralParamsEntry) },
		PackedEntrySize: SizeGeneralParamsEntryET,
		MaxEntryCount:   MaxGeneralParamsCount,
	},
	BlkIdxRetagging: {
		Packing:         RetaggingEntryPacking,
		NewEntry:        func() any { return new(RetaggingEntry) },
		PackedEntrySize: SizeRetaggingEntry,
		MaxEntryCount:   MaxRetaggingCount,
	},
	BlkIdxXMIIParams: {
		Packing:         XMIIParamsEntryPacking,
		NewEntry:        func() any { return new(XMIIParamsEntry) },
		PackedEntrySize: SizeXMIIParamsEntry,
		MaxEntryCount:   MaxXMIIParamsCount,
	},
}

// SJA1105P: second generation, no TTEthernet, no SGMII.
var sja1105pTableOps = [BlkIdxMax]TableOps{
	BlkIdxL2Lookup: {
		Packing:         L2LookupEntryPackingPQRS,
		NewEntry:        func() any { return new(L2LookupEntry) },
		PackedEntrySize: SizeL2LookupEntryPQRS,
		MaxEntryCount:   MaxL2LookupCount,
	},
	BlkIdxL2Policing: {
		Packing:         L2PolicingEntryPacking,
		NewEntry:        func() any { return new(L2PolicingEntry) },
		PackedEntrySize: SizeL2PolicingEntry,
		MaxEntryCount:   MaxL2PolicingCount,
	},
	BlkIdxVlanLookup: {
		Packing:         VlanLookupEntryPacking,
		NewEntry:        func() any { return new(VlanLookupEntry) },
		PackedEntrySize: SizeVlanLookupEntry,
		MaxEntryCount:   MaxVlanLookupCount,
	},
	BlkIdxL2Forwarding: {
		Packing:         L2ForwardingEntryPacking,
		NewEntry:        func() any { return new(L2ForwardingEntry) },
		PackedEntrySize: SizeL2ForwardingEntry,
		MaxEntryCount:   MaxL2ForwardingCount,
	},
	BlkIdxMACConfig: {
		Packing:         MACConfigEntryPackingPQRS,
		NewEntry:        func() any { return new(MACConfigEntry) },
		PackedEntrySize: SizeMACConfigEntryPQRS,
		MaxEntryCount:   MaxMACConfigCount,
	},
	BlkIdxL2LookupParams: {
		Packing:         L2LookupParamsEntryPackingPQRS,
		NewEntry:        func() any { return new(L2LookupParamsEntry) },
		PackedEntrySize: SizeL2LookupParamsEntryPQRS,
		MaxEntryCount:   MaxL2LookupParamsCount,
	},
	BlkIdxL2ForwardingParams: {
		Packing:         L2ForwardingParamsEntryPacking,
		NewEntry:        func() any { return new(L2ForwardingParamsEntry) },
		PackedEntrySize: SizeL2ForwardingParamsEntry,
		MaxEntryCount:   MaxL2ForwardingParamsCount,
	},
	BlkIdxAVBParams: {
		Packing:         AVBParamsEntryPackingPQRS,
		NewEntry:        func() any { return new(AVBParamsEntry) },
		PackedEntrySize: SizeAVBParamsEntryPQRS,
		MaxEntryCount:   MaxAVBParamsCount,
	},
	BlkIdxGeneralParams: {
		Packing:         GeneralParamsEntryPackingPQRS,
		NewEntry:        func() any { return new(GeneralParamsEntry) },
		PackedEntrySize: SizeGeneralParamsEntryPQRS,
		MaxEntryCount:   MaxGeneralParamsCount,
	},
	BlkIdxRetagging: {
		Packing:         RetaggingEntryPacking,
		NewEntry:        func() any { return new(RetaggingEntry) },
		PackedEntrySize: SizeRetaggingEntry,
		MaxEntryCount:   MaxRetaggingCount,
	},
	BlkIdxXMIIParams: {
		Packing:         XMIIParamsEntryPacking,
		NewEntry:        func() any { return new(XMIIParamsEntry) },
		PackedEntrySize: SizeXMIIParamsEntry,
		MaxEntryCount:   MaxXMIIParamsCount,
	},
}

// SJA1105R: second generation, no TTEthernet, SGMII.
var sja1105rTableOps = func() [BlkIdxMax]TableOps {
	ops := sja1105pTableOps
	ops[BlkIdxSGMII] = TableOps{
		Packing:         SGMIIEntryPacking,
		NewEntry:        func() any { return new(SGMIIEntry) },
		PackedEntrySize: SizeSGMIIEntry,
		MaxEntryCount:   MaxSGMIICount,
	}
	return ops
}()

// SJA1105Q: second generation, TTEthernet, no SGMII.
var sja1105qTableOps = func() [BlkIdxMax]TableOps {
	ops := sja1105pTableOps
	ops[BlkIdxSchedule] = sja1105tTableOps[BlkIdxSchedule]
	ops[BlkIdxScheduleEntryPoints] = sja1105tTableOps[BlkIdxScheduleEntryPoints]
	ops[BlkIdxVLLookup] = sja1105tTableOps[BlkIdxVLLookup]
	ops[BlkIdxVLPolicing] = sja1105tTableOps[BlkIdxVLPolicing]
	ops[BlkIdxVLForwarding] = sja1105tTableOps[BlkIdxVLForwarding]
	ops[BlkIdxScheduleParams] = sja1105tTableOps[BlkIdxScheduleParams]
	ops[BlkIdxScheduleEntryPointsParams] = sja1105tTableOps[BlkIdxScheduleEntryPointsParams]
	ops[BlkIdxVLForwardingParams] = sja1105tTableOps[BlkIdxVLForwardingParams]
	ops[BlkIdxClkSyncParams] = sja1105tTableOps[BlkIdxClkSyncParams]
	return ops
}()

// SJA1105S: second generation, TTEthernet, SGMII.
var sja1105sTableOps = func() [BlkIdxMax]TableOps {
	ops := sja1105qTableOps
	ops[BlkIdxSGMII] = sja1105rTableOps[BlkIdxSGMII]
	return ops
}()

// tableOpsFor resolves the compatibility matrix for a probed identity.
func tableOpsFor(deviceID, partNr uint64) (*[BlkIdxMax]TableOps, error) {
	switch {
	case deviceID == DeviceIDE:
		return &sja1105eTableOps, nil
	case deviceID == DeviceIDT:
		return &sja1105tTableOps, nil
	case deviceID == DeviceIDPR && partNr == PartNrP:
		return &sja1105pTableOps, nil
	case deviceID == DeviceIDQS && partNr == PartNrQ:
		return &sja1105qTableOps, nil
	case deviceID == DeviceIDPR && partNr == PartNrR:
		return &sja1105rTableOps, nil
	case deviceID == DeviceIDQS && partNr == PartNrS:
		return &sja1105sTableOps, nil
	}
	return nil, ErrUnknownDevice
}
