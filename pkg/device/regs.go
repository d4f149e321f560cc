// Per-generation register maps
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package device

import "sja1105-go/pkg/static"

// Probe addresses. These cannot live in the Regs map: the map is only
// known once the device ID has been read.
const (
	deviceIDAddr = 0x0
	prodIDAddr   = 0x100BC3
)

// Regs maps the register blocks whose addresses differ between the two
// generations. Addresses are in words, as the SPI header wants them.
type Regs struct {
	RGU    uint64
	Config uint64

	// The general status base skips the device ID word at address 0, so
	// it is off by one against the user manual's table.
	GeneralStatus uint64

	PTPControl uint64
	PTPClk     uint64
	PTPClkRate uint64
	PTPTSClk   uint64
	PTPEgrTS   uint64
	// Valid bits of an egress timestamp readout (24 on E/T, 32 on
	// P/Q/R/S).
	PTPEgrTSMask uint64

	MAC    [5]uint64
	MACHL1 [5]uint64
	MACHL2 [5]uint64
	// P/Q/R/S only
	QLevel [5]uint64

	// CGU per-port clock registers
	RMIIPLL1     uint64
	CGUIdiv      [5]uint64
	MIITxClk     [5]uint64
	MIIRxClk     [5]uint64
	MIIExtTxClk  [5]uint64
	MIIExtRxClk  [5]uint64
	RGMIITxc     [5]uint64
	RMIIRefClk   [5]uint64
	RMIIExtTxClk [5]uint64

	// ACU pad configuration
	PadMIITx [5]uint64
}

// UM10944 Tables 78 and 86.
var etRegs = Regs{
	RGU:           0x100440,
	Config:        0x020000,
	GeneralStatus: 0x1,
	PTPControl:    0x17,
	PTPClk:        0x18,
	PTPClkRate:    0x1A,
	PTPTSClk:      0x1B,
	PTPEgrTS:      0xC0,
	PTPEgrTSMask:  (1 << 24) - 1,
	MAC:           [5]uint64{0x200, 0x202, 0x204, 0x206, 0x208},
	MACHL1:        [5]uint64{0x400, 0x410, 0x420, 0x430, 0x440},
	MACHL2:        [5]uint64{0x600, 0x610, 0x620, 0x630, 0x640},
	RMIIPLL1:      0x10000A,
	CGUIdiv:       [5]uint64{0x10000B, 0x10000C, 0x10000D, 0x10000E, 0x10000F},
	MIITxClk:      [5]uint64{0x100013, 0x10001A, 0x100021, 0x100028, 0x10002F},
	MIIRxClk:      [5]uint64{0x100014, 0x10001B, 0x100022, 0x100029, 0x100030},
	MIIExtTxClk:   [5]uint64{0x100018, 0x10001F, 0x100026, 0x10002D, 0x100034},
	MIIExtRxClk:   [5]uint64{0x100019, 0x100020, 0x100027, 0x10002E, 0x100035},
	RGMIITxc:      [5]uint64{0x100016, 0x10001D, 0x100024, 0x10002B, 0x100032},
	RMIIRefClk:    [5]uint64{0x100015, 0x10001C, 0x100023, 0x10002A, 0x100031},
	RMIIExtTxClk:  [5]uint64{0x100018, 0x10001F, 0x100026, 0x10002D, 0x100034},
	PadMIITx:      [5]uint64{0x100800, 0x100802, 0x100804, 0x100806, 0x100808},
}

// UM11040 Table 114.
var pqrsRegs = Regs{
	RGU:           0x100440,
	Config:        0x020000,
	GeneralStatus: 0x1,
	PTPControl:    0x18,
	PTPClk:        0x19,
	PTPClkRate:    0x1B,
	PTPTSClk:      0x1C,
	PTPEgrTS:      0xC0,
	PTPEgrTSMask:  (1 << 32) - 1,
	MAC:           [5]uint64{0x200, 0x202, 0x204, 0x206, 0x208},
	MACHL1:        [5]uint64{0x400, 0x410, 0x420, 0x430, 0x440},
	MACHL2:        [5]uint64{0x600, 0x610, 0x620, 0x630, 0x640},
	QLevel:        [5]uint64{0x604, 0x614, 0x624, 0x634, 0x644},
	RMIIPLL1:      0x10000A,
	CGUIdiv:       [5]uint64{0x10000B, 0x10000C, 0x10000D, 0x10000E, 0x10000F},
	MIITxClk:      [5]uint64{0x100013, 0x100019, 0x10001F, 0x100025, 0x10002B},
	MIIRxClk:      [5]uint64{0x100014, 0x10001A, 0x100020, 0x100026, 0x10002C},
	MIIExtTxClk:   [5]uint64{0x100017, 0x10001D, 0x100023, 0x100029, 0x10002F},
	MIIExtRxClk:   [5]uint64{0x100018, 0x10001E, 0x100024, 0x10002A, 0x100030},
	RGMIITxc:      [5]uint64{0x100016, 0x10001C, 0x100022, 0x100028, 0x10002E},
	RMIIRefClk:    [5]uint64{0x100015, 0x10001B, 0x100021, 0x100027, 0x10002D},
	RMIIExtTxClk:  [5]uint64{0x100017, 0x10001D, 0x100023, 0x100029, 0x10002F},
	PadMIITx:      [5]uint64{0x100800, 0x100802, 0x100804, 0x100806, 0x100808},
}

// RegsFor returns the register map for a device ID, or nil for an
// unknown one.
func RegsFor(deviceID uint64) *Regs {
	switch {
	case static.IsET(deviceID):
		return &etRegs
	case static.IsPQRS(deviceID):
		return &pqrsRegs
	}
	return nil
}

// DeviceIDString names a device ID / part number pair. P and R share a
// device ID and differ only by part number, as do Q and S; with
// PartNrDontCare the ambiguous pair is named instead.
func DeviceIDString(deviceID, partNr uint64) string {
	switch deviceID {
	case static.DeviceIDE:
		return "SJA1105E"
	case static.DeviceIDT:
		return "SJA1105T"
	case static.DeviceIDPR:
		switch partNr {
		case static.PartNrP:
			return "SJA1105P"
		case static.PartNrR:
			return "SJA1105R"
		}
		return "SJA1105P or SJA1105R"
	case static.DeviceIDQS:
		switch partNr {
		case static.PartNrQ:
			return "SJA1105Q"
		case static.PartNrS:
			return "SJA1105S"
		}
		return "SJA1105Q or SJA1105S"
	}
	return "None"
}
