// Cross-table validity rules enforced before upload
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package static

// Validity classifies a static configuration. ConfigOK means the chip will
// accept it; everything else names the first rule it breaks. The container
// codes (UnexpectedEndOfBuffer onward) are only produced by Unpack.
type Validity int

const (
	ConfigOK Validity = iota
	DeviceIDInvalid
	TTEthernetNotSupported
	IncorrectTTEthernetConfiguration
	IncorrectVirtualLinkConfiguration
	MissingL2PolicingTable
	MissingL2ForwardingTable
	MissingL2ForwardingParamsTable
	MissingGeneralParamsTable
	MissingVlanTable
	MissingXMIITable
	MissingMACTable
	OvercommittedFrameMemory
	UnexpectedEndOfBuffer
	InvalidDeviceID
	InvalidTableHeaderCRC
	InvalidTableHeader
	IncorrectTableLength
	DataCRCInvalid
	ExtraBytesAtEndOfBuffer
)

var validityMsg = map[Validity]string{
	ConfigOK:         "",
	DeviceIDInvalid:  "device ID present in the static config is invalid",
	TTEthernetNotSupported: "schedule table present, but TTEthernet is " +
		"only supported on T and Q/S",
	IncorrectTTEthernetConfiguration: "schedule table present, but one of " +
		"schedule-entry-points, schedule-parameters or " +
		"schedule-entry-points-parameters is empty",
	IncorrectVirtualLinkConfiguration: "vl-lookup table present, but one of " +
		"vl-policing, vl-forwarding or vl-forwarding-parameters is empty",
	MissingL2PolicingTable:         "l2-policing table needs at least one entry",
	MissingL2ForwardingTable:       "l2-forwarding table is missing or incomplete",
	MissingL2ForwardingParamsTable: "l2-forwarding-parameters table is missing",
	MissingGeneralParamsTable:      "general-parameters table is missing",
	MissingVlanTable: "vlan-lookup table needs at least the default " +
		"untagged VLAN",
	MissingXMIITable: "xmii table is missing",
	MissingMACTable: "mac-configuration table needs an entry for each " +
		"port",
	OvercommittedFrameMemory: "not allowed to overcommit frame memory: the " +
		"L2 and VL memory partitions share one pool, whose sum may not " +
		"exceed 929 128-byte blocks (910 with retagging)",
	UnexpectedEndOfBuffer: "unexpected end of buffer",
	InvalidDeviceID:       "invalid device ID present in static config",
	InvalidTableHeaderCRC: "one of the table headers has an incorrect CRC",
	InvalidTableHeader: "one of the table headers contains an invalid " +
		"block ID",
	IncorrectTableLength: "the data length in one of the table headers " +
		"does not match the entries that were parsed",
	DataCRCInvalid: "one of the tables has an incorrect CRC over the " +
		"data area",
	ExtraBytesAtEndOfBuffer: "extra bytes found at the end of buffer " +
		"after parsing it",
}

func (v Validity) String() string {
	if msg, ok := validityMsg[v]; ok {
		return msg
	}
	return "unknown validity code"
}

// checkMemorySize enforces the shared frame memory budget across the L2 and
// VL partitions.
func checkMemorySize(tables *[BlkIdxMax]Table) Validity {
	mem := uint64(0)

	l2fwdParams := tables[BlkIdxL2ForwardingParams].Entries[0].(*L2ForwardingParamsEntry)
	for i := 0; i < 8; i++ {
		mem += l2fwdParams.PartSpc[i]
	}

	if len(tables[BlkIdxVLForwardingParams].Entries) > 0 {
		vlFwdParams := tables[BlkIdxVLForwardingParams].Entries[0].(*VLForwardingParamsEntry)
		for i := 0; i < 8; i++ {
			mem += vlFwdParams.Partspc[i]
		}
	}

	maxMem := uint64(MaxFrameMemory)
	if len(tables[BlkIdxRetagging].Entries) > 0 {
		maxMem = MaxFrameMemoryRetagging
	}

	if mem > maxMem {
		return OvercommittedFrameMemory
	}
	return ConfigOK
}

// CheckValid reports whether the configuration satisfies every rule the
// chip enforces at load time. The checks run in a fixed order and the first
// violation wins.
func (c *Config) CheckValid() Validity {
	tables := &c.Tables

	if !DeviceIDValid(c.DeviceID) {
		return DeviceIDInvalid
	}

	if tables[BlkIdxSchedule].EntryCount() > 0 {
		if !SupportsTTEthernet(c.DeviceID) {
			return TTEthernetNotSupported
		}
		// One entry point per active cycle is enough; the chip does
		// not require the table to be filled to capacity.
		if tables[BlkIdxScheduleEntryPoints].EntryCount() == 0 {
			return IncorrectTTEthernetConfiguration
		}
		if tables[BlkIdxScheduleParams].EntryCount() !=
			tables[BlkIdxScheduleParams].ops.MaxEntryCount {
			return IncorrectTTEthernetConfiguration
		}
		if tables[BlkIdxScheduleEntryPointsParams].EntryCount() !=
			tables[BlkIdxScheduleEntryPointsParams].ops.MaxEntryCount {
			return IncorrectTTEthernetConfiguration
		}
	}
	if tables[BlkIdxVLLookup].EntryCount() > 0 {
		if tables[BlkIdxVLPolicing].EntryCount() == 0 {
			return IncorrectVirtualLinkConfiguration
		}
		if tables[BlkIdxVLForwarding].EntryCount() == 0 {
			return IncorrectVirtualLinkConfiguration
		}
		if tables[BlkIdxVLForwardingParams].EntryCount() !=
			tables[BlkIdxVLForwardingParams].ops.MaxEntryCount {
			return IncorrectVirtualLinkConfiguration
		}
	}
	if tables[BlkIdxL2Policing].EntryCount() == 0 {
		return MissingL2PolicingTable
	}
	if tables[BlkIdxVlanLookup].EntryCount() == 0 {
		return MissingVlanTable
	}
	if tables[BlkIdxL2Forwarding].EntryCount() !=
		tables[BlkIdxL2Forwarding].ops.MaxEntryCount {
		return MissingL2ForwardingTable
	}
	if tables[BlkIdxMACConfig].EntryCount() !=
		tables[BlkIdxMACConfig].ops.MaxEntryCount {
		return MissingMACTable
	}
	if tables[BlkIdxL2ForwardingParams].EntryCount() !=
		tables[BlkIdxL2ForwardingParams].ops.MaxEntryCount {
		return MissingL2ForwardingParamsTable
	}
	if tables[BlkIdxGeneralParams].EntryCount() !=
		tables[BlkIdxGeneralParams].ops.MaxEntryCount {
		return MissingGeneralParamsTable
	}
	if tables[BlkIdxXMIIParams].EntryCount() !=
		tables[BlkIdxXMIIParams].ops.MaxEntryCount {
		return MissingXMIITable
	}
	return checkMemorySize(tables)
}
