// Per-kind command codecs and the per-generation dynamic ops tables
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package dynamic

import (
	"sja1105-go/pkg/log"
	"sja1105-go/pkg/packing"
	"sja1105-go/pkg/static"
)

// Packed sizes of the per-kind register windows, in bytes.
const (
	SizeVLLookupCmdET       = SizeCmd
	SizeVLLookupCmdPQRS     = SizeCmd + static.SizeVLLookupEntry
	SizeL2LookupCmdET       = SizeCmd + static.SizeL2LookupEntryET
	SizeL2LookupCmdPQRS     = SizeCmd + static.SizeL2LookupEntryPQRS
	SizeVlanLookupCmd       = SizeCmd + 4 + static.SizeVlanLookupEntry
	SizeL2ForwardingCmd     = SizeCmd + static.SizeL2ForwardingEntry
	SizeMACConfigCmdET      = SizeCmd + 4
	SizeMACConfigCmdPQRS    = SizeCmd + static.SizeMACConfigEntryPQRS
	SizeL2LookupParamsCmdET = SizeCmd
	SizeGeneralParamsCmdET  = SizeCmd
	SizeRetaggingCmd        = SizeCmd + static.SizeRetaggingEntry

	// MaxMgmtSlots is the number of management route slots kept free at
	// the low end of the FDB.
	MaxMgmtSlots = 4
)

var logger = log.GetLogger("dynamic")

// Local wrappers in the style of the static codecs: the errors cannot
// occur with correct bit windows, so they are logged and swallowed.

func packField(buf []byte, val *uint64, start, end int, op packing.Op) {
	if err := packing.Transfer(buf, val, start, end, packing.QuirkLSW32IsFirst, op); err != nil {
		logger.Error("cannot transfer bits %d-%d: %v", start, end, err)
	}
}

// The command word layouts below are irregular on purpose: each register
// window predates the others and the hardware never unified them. Several
// kinds also route the command's index through a field of the entry area
// rather than the command word.

func vlLookupCmdPackingET(buf []byte, cmd *Cmd, op packing.Op) {
	packField(buf[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(buf[:SizeCmd], &cmd.Errors, 30, 30, op)
	packField(buf[:SizeCmd], &cmd.Rdwrset, 29, 29, op)
	packField(buf[:SizeCmd], &cmd.Index, 9, 0, op)
}

func vlLookupCmdPackingPQRS(buf []byte, cmd *Cmd, op packing.Op) {
	p := buf[static.SizeVLLookupEntry:]

	packField(p[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(p[:SizeCmd], &cmd.Errors, 30, 30, op)
	packField(p[:SizeCmd], &cmd.Rdwrset, 29, 29, op)
	packField(p[:SizeCmd], &cmd.Index, 9, 0, op)
}

// VLLookupEntryPackingET codes the E/T runtime-patchable subset of a VL
// lookup entry. It shares the single register word with the command.
func VLLookupEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeVLLookupCmdET
	entry := entryPtr.(*static.VLLookupEntry)

	packField(buf[:size], &entry.Egrmirr, 21, 17, op)
	packField(buf[:size], &entry.Ingrmirr, 16, 16, op)
	return size
}

func l2LookupCmdPackingET(buf []byte, cmd *Cmd, op packing.Op) {
	p := buf[static.SizeL2LookupEntryET:]

	packField(p[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(p[:SizeCmd], &cmd.Rdwrset, 30, 30, op)
	packField(p[:SizeCmd], &cmd.Errors, 29, 29, op)
	packField(p[:SizeCmd], &cmd.Valident, 27, 27, op)
	// The hardware takes the index from the INDEX field of the entry
	// area, so the command routes it there. Deletes then need no entry
	// image at all.
	packField(buf[:static.SizeL2LookupEntryET], &cmd.Index, 29, 20, op)
}

func l2LookupCmdPackingPQRS(buf []byte, cmd *Cmd, op packing.Op) {
	p := buf[static.SizeL2LookupEntryPQRS:]

	packField(p[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(p[:SizeCmd], &cmd.Rdwrset, 30, 30, op)
	packField(p[:SizeCmd], &cmd.Errors, 29, 29, op)
	packField(p[:SizeCmd], &cmd.Valident, 27, 27, op)
	// Index lives in the entry area, same as on E/T.
	packField(buf[:static.SizeL2LookupEntryPQRS], &cmd.Index, 15, 6, op)
}

// In E/T the entry is at addresses 0x27-0x28, there is a 4-byte gap at
// 0x29, and the command word is at 0x2A. P/Q/R/S has the same shape one
// window further up.
func vlanLookupCmdPacking(buf []byte, cmd *Cmd, op packing.Op) {
	p := buf[static.SizeVlanLookupEntry+4:]

	packField(p[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(p[:SizeCmd], &cmd.Rdwrset, 30, 30, op)
	packField(p[:SizeCmd], &cmd.Valident, 27, 27, op)
	// Index rides in the VLANID field of the entry area.
	packField(buf[:static.SizeVlanLookupEntry], &cmd.Index, 38, 27, op)
}

func l2ForwardingCmdPacking(buf []byte, cmd *Cmd, op packing.Op) {
	p := buf[static.SizeL2ForwardingEntry:]

	packField(p[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(p[:SizeCmd], &cmd.Errors, 30, 30, op)
	packField(p[:SizeCmd], &cmd.Rdwrset, 29, 29, op)
	packField(p[:SizeCmd], &cmd.Index, 4, 0, op)
}

func macConfigCmdPackingET(buf []byte, cmd *Cmd, op packing.Op) {
	// The user manual's two registers are laid out in reverse order.
	reg1 := buf[4:]

	packField(reg1[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(reg1[:SizeCmd], &cmd.Index, 26, 24, op)
}

// MACConfigEntryPackingET codes the E/T runtime-patchable subset of a MAC
// configuration entry. Top, base, enabled, ifg, maxage and drpnona664
// cannot be reconfigured without a reset.
func MACConfigEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeMACConfigCmdET
	entry := entryPtr.(*static.MACConfigEntry)
	reg1 := buf[4:8]
	reg2 := buf[0:4]

	packField(reg1, &entry.Speed, 30, 29, op)
	packField(reg1, &entry.Drpdtag, 23, 23, op)
	packField(reg1, &entry.Drpuntag, 22, 22, op)
	packField(reg1, &entry.Retag, 21, 21, op)
	packField(reg1, &entry.DynLearn, 20, 20, op)
	packField(reg1, &entry.Egress, 19, 19, op)
	packField(reg1, &entry.Ingress, 18, 18, op)
	packField(reg1, &entry.IngMirr, 17, 17, op)
	packField(reg1, &entry.EgrMirr, 16, 16, op)
	packField(reg1, &entry.Vlanprio, 14, 12, op)
	packField(reg1, &entry.Vlanid, 11, 0, op)
	packField(reg2, &entry.TpDelin, 31, 16, op)
	packField(reg2, &entry.TpDelout, 15, 0, op)
	return size
}

func macConfigCmdPackingPQRS(buf []byte, cmd *Cmd, op packing.Op) {
	p := buf[static.SizeMACConfigEntryPQRS:]

	packField(p[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(p[:SizeCmd], &cmd.Errors, 30, 30, op)
	packField(p[:SizeCmd], &cmd.Rdwrset, 29, 29, op)
	packField(p[:SizeCmd], &cmd.Index, 2, 0, op)
}

func l2LookupParamsCmdPackingET(buf []byte, cmd *Cmd, op packing.Op) {
	packField(buf[:SizeCmd], &cmd.Valid, 31, 31, op)
}

// L2LookupParamsEntryPackingET codes the only FDB parameter that can be
// changed at runtime on E/T, the hash polynomial.
func L2LookupParamsEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeL2LookupParamsCmdET
	entry := entryPtr.(*static.L2LookupParamsEntry)

	packField(buf[:size], &entry.Poly, 7, 0, op)
	return size
}

func generalParamsCmdPackingET(buf []byte, cmd *Cmd, op packing.Op) {
	packField(buf[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(buf[:SizeCmd], &cmd.Errors, 30, 30, op)
}

// GeneralParamsEntryPackingET codes the only general parameter that can be
// changed at runtime on E/T, the mirror port.
func GeneralParamsEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = SizeGeneralParamsCmdET
	entry := entryPtr.(*static.GeneralParamsEntry)

	packField(buf[:size], &entry.MirrPort, 2, 0, op)
	return size
}

func retaggingCmdPacking(buf []byte, cmd *Cmd, op packing.Op) {
	p := buf[static.SizeRetaggingEntry:]

	packField(p[:SizeCmd], &cmd.Valid, 31, 31, op)
	packField(p[:SizeCmd], &cmd.Errors, 30, 30, op)
	packField(p[:SizeCmd], &cmd.Valident, 29, 29, op)
	packField(p[:SizeCmd], &cmd.Index, 5, 0, op)
}

// MgmtRouteEntry steers one management frame (identified by destination
// MAC) out of specific ports, bypassing the FDB. Management routes are a
// dynamic-only pseudo-kind living in the low slots of the L2 lookup
// window; they are never part of a static configuration.
type MgmtRouteEntry struct {
	Tsreg     uint64
	Takets    uint64
	Macaddr   uint64
	Destports uint64
	Enfport   uint64
}

// MgmtRouteEntryPackingET codes a management route in the E/T L2 lookup
// window.
func MgmtRouteEntryPackingET(buf []byte, entryPtr any, op packing.Op) int {
	const size = static.SizeL2LookupEntryET
	entry := entryPtr.(*MgmtRouteEntry)

	packField(buf, &entry.Tsreg, 85, 85, op)
	packField(buf, &entry.Takets, 84, 84, op)
	packField(buf, &entry.Macaddr, 83, 36, op)
	packField(buf, &entry.Destports, 35, 31, op)
	packField(buf, &entry.Enfport, 30, 30, op)
	return size
}

// MgmtRouteEntryPackingPQRS codes a management route in the P/Q/R/S L2
// lookup window.
func MgmtRouteEntryPackingPQRS(buf []byte, entryPtr any, op packing.Op) int {
	const size = static.SizeL2LookupEntryPQRS
	entry := entryPtr.(*MgmtRouteEntry)

	packField(buf, &entry.Tsreg, 71, 71, op)
	packField(buf, &entry.Takets, 70, 70, op)
	packField(buf, &entry.Macaddr, 69, 22, op)
	packField(buf, &entry.Destports, 21, 17, op)
	packField(buf, &entry.Enfport, 16, 16, op)
	return size
}

// SJA1105E/T: first generation.
var etTableOps = [static.BlkIdxMaxDyn]Ops{
	static.BlkIdxVLLookup: {
		EntryPacking:  VLLookupEntryPackingET,
		CmdPacking:    vlLookupCmdPackingET,
		Access:        OpWrite,
		MaxEntryCount: static.MaxVLLookupCount,
		PackedSize:    SizeVLLookupCmdET,
		EntrySize:     SizeVLLookupCmdET,
		Addr:          0x35,
	},
	static.BlkIdxL2Lookup: {
		EntryPacking:  static.L2LookupEntryPackingET,
		CmdPacking:    l2LookupCmdPackingET,
		Access:        OpRead | OpWrite | OpDel,
		MaxEntryCount: static.MaxL2LookupCount,
		PackedSize:    SizeL2LookupCmdET,
		EntrySize:     static.SizeL2LookupEntryET,
		Addr:          0x20,
	},
	static.BlkIdxVlanLookup: {
		EntryPacking:  static.VlanLookupEntryPacking,
		CmdPacking:    vlanLookupCmdPacking,
		Access:        OpWrite | OpDel,
		MaxEntryCount: static.MaxVlanLookupCount,
		PackedSize:    SizeVlanLookupCmd,
		EntrySize:     static.SizeVlanLookupEntry,
		Addr:          0x27,
	},
	static.BlkIdxL2Forwarding: {
		EntryPacking:  static.L2ForwardingEntryPacking,
		CmdPacking:    l2ForwardingCmdPacking,
		Access:        OpWrite,
		MaxEntryCount: static.MaxL2ForwardingCount,
		PackedSize:    SizeL2ForwardingCmd,
		EntrySize:     static.SizeL2ForwardingEntry,
		Addr:          0x24,
	},
	static.BlkIdxMACConfig: {
		EntryPacking:  MACConfigEntryPackingET,
		CmdPacking:    macConfigCmdPackingET,
		Access:        OpWrite,
		MaxEntryCount: static.MaxMACConfigCount,
		PackedSize:    SizeMACConfigCmdET,
		EntrySize:     SizeMACConfigCmdET,
		Addr:          0x36,
	},
	static.BlkIdxL2LookupParams: {
		EntryPacking:  L2LookupParamsEntryPackingET,
		CmdPacking:    l2LookupParamsCmdPackingET,
		Access:        OpWrite,
		MaxEntryCount: static.MaxL2LookupParamsCount,
		PackedSize:    SizeL2LookupParamsCmdET,
		EntrySize:     SizeL2LookupParamsCmdET,
		Addr:          0x38,
	},
	static.BlkIdxGeneralParams: {
		EntryPacking:  GeneralParamsEntryPackingET,
		CmdPacking:    generalParamsCmdPackingET,
		Access:        OpWrite,
		MaxEntryCount: static.MaxGeneralParamsCount,
		PackedSize:    SizeGeneralParamsCmdET,
		EntrySize:     SizeGeneralParamsCmdET,
		Addr:          0x34,
	},
	static.BlkIdxRetagging: {
		EntryPacking:  static.RetaggingEntryPacking,
		CmdPacking:    retaggingCmdPacking,
		Access:        OpWrite | OpDel,
		MaxEntryCount: static.MaxRetaggingCount,
		PackedSize:    SizeRetaggingCmd,
		EntrySize:     static.SizeRetaggingEntry,
		Addr:          0x31,
	},
	static.BlkIdxMgmtRoute: {
		EntryPacking:  MgmtRouteEntryPackingET,
		CmdPacking:    l2LookupCmdPackingET,
		Access:        OpRead | OpWrite,
		MaxEntryCount: MaxMgmtSlots,
		PackedSize:    SizeL2LookupCmdET,
		EntrySize:     static.SizeL2LookupEntryET,
		Addr:          0x20,
	},
}

// SJA1105P/Q/R/S: second generation.
var pqrsTableOps = [static.BlkIdxMaxDyn]Ops{
	static.BlkIdxVLLookup: {
		EntryPacking:  static.VLLookupEntryPacking,
		CmdPacking:    vlLookupCmdPackingPQRS,
		Access:        OpRead | OpWrite,
		MaxEntryCount: static.MaxVLLookupCount,
		PackedSize:    SizeVLLookupCmdPQRS,
		EntrySize:     static.SizeVLLookupEntry,
		Addr:          0x47,
	},
	static.BlkIdxL2Lookup: {
		EntryPacking:  static.L2LookupEntryPackingPQRS,
		CmdPacking:    l2LookupCmdPackingPQRS,
		Access:        OpRead | OpWrite | OpDel,
		MaxEntryCount: static.MaxL2LookupCount,
		PackedSize:    SizeL2LookupCmdPQRS,
		EntrySize:     static.SizeL2LookupEntryPQRS,
		Addr:          0x24,
	},
	static.BlkIdxVlanLookup: {
		EntryPacking:  static.VlanLookupEntryPacking,
		CmdPacking:    vlanLookupCmdPacking,
		Access:        OpRead | OpWrite | OpDel,
		MaxEntryCount: static.MaxVlanLookupCount,
		PackedSize:    SizeVlanLookupCmd,
		EntrySize:     static.SizeVlanLookupEntry,
		Addr:          0x2D,
	},
	static.BlkIdxL2Forwarding: {
		EntryPacking:  static.L2ForwardingEntryPacking,
		CmdPacking:    l2ForwardingCmdPacking,
		Access:        OpWrite,
		MaxEntryCount: static.MaxL2ForwardingCount,
		PackedSize:    SizeL2ForwardingCmd,
		EntrySize:     static.SizeL2ForwardingEntry,
		Addr:          0x2A,
	},
	static.BlkIdxMACConfig: {
		EntryPacking:  static.MACConfigEntryPackingPQRS,
		CmdPacking:    macConfigCmdPackingPQRS,
		Access:        OpRead | OpWrite,
		MaxEntryCount: static.MaxMACConfigCount,
		PackedSize:    SizeMACConfigCmdPQRS,
		EntrySize:     static.SizeMACConfigEntryPQRS,
		Addr:          0x4B,
	},
	static.BlkIdxL2LookupParams: {
		EntryPacking:  L2LookupParamsEntryPackingET,
		CmdPacking:    l2LookupParamsCmdPackingET,
		Access:        OpRead | OpWrite,
		MaxEntryCount: static.MaxL2LookupParamsCount,
		PackedSize:    SizeL2LookupParamsCmdET,
		EntrySize:     SizeL2LookupParamsCmdET,
		Addr:          0x38,
	},
	static.BlkIdxGeneralParams: {
		EntryPacking:  GeneralParamsEntryPackingET,
		CmdPacking:    generalParamsCmdPackingET,
		Access:        OpWrite,
		MaxEntryCount: static.MaxGeneralParamsCount,
		PackedSize:    SizeGeneralParamsCmdET,
		EntrySize:     SizeGeneralParamsCmdET,
		Addr:          0x34,
	},
	static.BlkIdxRetagging: {
		EntryPacking:  static.RetaggingEntryPacking,
		CmdPacking:    retaggingCmdPacking,
		Access:        OpWrite | OpDel,
		MaxEntryCount: static.MaxRetaggingCount,
		PackedSize:    SizeRetaggingCmd,
		EntrySize:     static.SizeRetaggingEntry,
		Addr:          0x31,
	},
	static.BlkIdxMgmtRoute: {
		EntryPacking:  MgmtRouteEntryPackingPQRS,
		CmdPacking:    l2LookupCmdPackingPQRS,
		Access:        OpRead | OpWrite,
		MaxEntryCount: MaxMgmtSlots,
		PackedSize:    SizeL2LookupCmdPQRS,
		EntrySize:     static.SizeL2LookupEntryPQRS,
		Addr:          0x24,
	},
}
