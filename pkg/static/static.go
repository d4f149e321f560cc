// Switch static configuration tables and container format
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package static models the switch's static configuration: the per-table
// unpacked entry records, the per-generation bit-exact codecs, and the
// CRC-protected container format the chip consumes at configuration time.
package static

import (
	"sja1105-go/pkg/log"
	"sja1105-go/pkg/packing"
)

// Packed sizes, in bytes.
const (
	SizeDeviceID                       = 4
	SizeTableHeader                    = 12
	SizeScheduleEntry                  = 8
	SizeScheduleEntryPointsEntry       = 4
	SizeVLLookupEntry                  = 12
	SizeVLPolicingEntry                = 8
	SizeVLForwardingEntry              = 4
	SizeL2LookupEntryET                = 12
	SizeL2LookupEntryPQRS              = 20
	SizeL2PolicingEntry                = 8
	SizeVlanLookupEntry                = 8
	SizeL2ForwardingEntry              = 8
	SizeMACConfigEntryET               = 28
	SizeMACConfigEntryPQRS             = 32
	SizeScheduleParamsEntry            = 12
	SizeScheduleEntryPointsParamsEntry = 4
	SizeVLForwardingParamsEntry        = 12
	SizeL2LookupParamsEntryET          = 4
	SizeL2LookupParamsEntryPQRS        = 16
	SizeL2ForwardingParamsEntry        = 12
	SizeClkSyncParamsEntry             = 52
	SizeAVBParamsEntryET               = 12
	SizeAVBParamsEntryPQRS             = 16
	SizeGeneralParamsEntryET           = 40
	SizeGeneralParamsEntryPQRS         = 44
	SizeRetaggingEntry                 = 8
	SizeXMIIParamsEntry                = 4
	SizeSGMIIEntry                     = 144
)

// On-wire configuration block IDs (UM10944 Table 2). Sparse on purpose.
const (
	BlockIDSchedule                  = 0x00
	BlockIDScheduleEntryPoints       = 0x01
	BlockIDVLLookup                  = 0x02
	BlockIDVLPolicing                = 0x03
	BlockIDVLForwarding              = 0x04
	BlockIDL2Lookup                  = 0x05
	BlockIDL2Policing                = 0x06
	BlockIDVlanLookup                = 0x07
	BlockIDL2Forwarding              = 0x08
	BlockIDMACConfig                 = 0x09
	BlockIDScheduleParams            = 0x0A
	BlockIDScheduleEntryPointsParams = 0x0B
	BlockIDVLForwardingParams        = 0x0C
	BlockIDL2LookupParams            = 0x0D
	BlockIDL2ForwardingParams        = 0x0E
	BlockIDClkSyncParams             = 0x0F
	BlockIDAVBParams                 = 0x10
	BlockIDGeneralParams             = 0x11
	BlockIDRetagging                 = 0x12
	BlockIDXMIIParams                = 0x4E
	BlockIDSGMII                     = 0xC8
	BlockIDMax                       = BlockIDSGMII
)

// BlkIdx is the dense in-memory index of a configuration table, distinct
// from its sparse on-wire block ID.
type BlkIdx int

const (
	BlkIdxSchedule BlkIdx = iota
	BlkIdxScheduleEntryPoints
	BlkIdxVLLookup
	BlkIdxVLPolicing
	BlkIdxVLForwarding
	BlkIdxL2Lookup
	BlkIdxL2Policing
	BlkIdxVlanLookup
	BlkIdxL2Forwarding
	BlkIdxMACConfig
	BlkIdxScheduleParams
	BlkIdxScheduleEntryPointsParams
	BlkIdxVLForwardingParams
	BlkIdxL2LookupParams
	BlkIdxL2ForwardingParams
	BlkIdxClkSyncParams
	BlkIdxAVBParams
	BlkIdxGeneralParams
	BlkIdxRetagging
	BlkIdxXMIIParams
	BlkIdxSGMII
	BlkIdxMax
	// Fake block indices that are only valid for dynamic access.
	BlkIdxMgmtRoute = BlkIdxMax
	BlkIdxMaxDyn    = BlkIdxMax + 1
	BlkIdxInval     = BlkIdx(-1)
)

var blkIdxNames = [BlkIdxMaxDyn]string{
	BlkIdxSchedule:                  "schedule",
	BlkIdxScheduleEntryPoints:       "schedule-entry-points",
	BlkIdxVLLookup:                  "vl-lookup",
	BlkIdxVLPolicing:                "vl-policing",
	BlkIdxVLForwarding:              "vl-forwarding",
	BlkIdxL2Lookup:                  "l2-lookup",
	BlkIdxL2Policing:                "l2-policing",
	BlkIdxVlanLookup:                "vlan-lookup",
	BlkIdxL2Forwarding:              "l2-forwarding",
	BlkIdxMACConfig:                 "mac-config",
	BlkIdxScheduleParams:            "schedule-params",
	BlkIdxScheduleEntryPointsParams: "schedule-entry-points-params",
	BlkIdxVLForwardingParams:        "vl-forwarding-params",
	BlkIdxL2LookupParams:            "l2-lookup-params",
	BlkIdxL2ForwardingParams:        "l2-forwarding-params",
	BlkIdxClkSyncParams:             "clock-sync-params",
	BlkIdxAVBParams:                 "avb-params",
	BlkIdxGeneralParams:             "general-params",
	BlkIdxRetagging:                 "retagging",
	BlkIdxXMIIParams:                "xmii-params",
	BlkIdxSGMII:                     "sgmii",
	BlkIdxMgmtRoute:                 "mgmt-route",
}

func (b BlkIdx) String() string {
	if b < 0 || b >= BlkIdxMaxDyn {
		return "invalid"
	}
	return blkIdxNames[b]
}

// Hardware limits on entry counts per table.
const (
	MaxScheduleCount                  = 1024
	MaxScheduleEntryPointsCount       = 2048
	MaxVLLookupCount                  = 1024
	MaxVLPolicingCount                = 1024
	MaxVLForwardingCount              = 1024
	MaxL2LookupCount                  = 1024
	MaxL2PolicingCount                = 45
	MaxVlanLookupCount                = 4096
	MaxL2ForwardingCount              = 13
	MaxMACConfigCount                 = 5
	MaxScheduleParamsCount            = 1
	MaxScheduleEntryPointsParamsCount = 1
	MaxVLForwardingParamsCount        = 1
	MaxL2LookupParamsCount            = 1
	MaxL2ForwardingParamsCount        = 1
	MaxGeneralParamsCount             = 1
	MaxRetaggingCount                 = 32
	MaxXMIIParamsCount                = 1
	MaxSGMIICount                     = 1
	MaxAVBParamsCount                 = 1
	MaxClkSyncCount                   = 1
)

// The L2 and VL memory partitions share one pool of 128-byte blocks. The
// retagging feature reserves part of it.
const (
	MaxFrameMemory          = 929
	MaxFrameMemoryRetagging = 910
)

// Device IDs, read from the chip's first register.
const (
	DeviceIDE    uint64 = 0x9C00000C
	DeviceIDT    uint64 = 0x9E00030E
	DeviceIDPR   uint64 = 0xAF00030E
	DeviceIDQS   uint64 = 0xAE00030E
	DeviceIDNone uint64 = 0x00000000
)

// Part numbers, needed to tell P from R and Q from S (same switch core).
const (
	PartNrP        uint64 = 0x9A84
	PartNrQ        uint64 = 0x9A85
	PartNrR        uint64 = 0x9A86
	PartNrS        uint64 = 0x9A87
	PartNrDontCare uint64 = 0xFFFF
)

// IsET reports whether the device is a first-generation switch.
func IsET(deviceID uint64) bool {
	return deviceID == DeviceIDE || deviceID == DeviceIDT
}

// IsPQRS reports whether the device is a second-generation switch.
func IsPQRS(deviceID uint64) bool {
	return deviceID == DeviceIDPR || deviceID == DeviceIDQS
}

// DeviceIDValid reports whether the device ID names a known variant.
func DeviceIDValid(deviceID uint64) bool {
	return IsET(deviceID) || IsPQRS(deviceID)
}

// SupportsTTEthernet reports whether the variant has the time-triggered
// scheduling engine (T and Q/S only).
func SupportsTTEthernet(deviceID uint64) bool {
	return deviceID == DeviceIDT || deviceID == DeviceIDQS
}

var logger = log.GetLogger("static")

// Convenience wrappers over the generic packing functions. These take the
// chip's memory layout quirk into account. The errors are not expected to
// occur during runtime with correct codec tables, so they are logged and
// swallowed here instead of cluttering up every codec.

func pack(buf []byte, val uint64, start, end int) {
	if err := packing.PackInto(buf, val, start, end, packing.QuirkLSW32IsFirst); err != nil {
		logger.Error("cannot pack %#x into bits %d-%d: %v", val, start, end, err)
	}
}

func unpack(buf []byte, val *uint64, start, end int) {
	if err := packing.UnpackFrom(buf, val, start, end, packing.QuirkLSW32IsFirst); err != nil {
		logger.Error("cannot unpack bits %d-%d: %v", start, end, err)
	}
}

func packField(buf []byte, val *uint64, start, end int, op packing.Op) {
	if err := packing.Transfer(buf, val, start, end, packing.QuirkLSW32IsFirst, op); err != nil {
		logger.Error("cannot transfer bits %d-%d: %v", start, end, err)
	}
}
