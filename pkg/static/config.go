// Static configuration container: pack, unpack, length accounting
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package static

import "sja1105-go/pkg/packing"

// Config is the complete unpacked static configuration of one switch. The
// tables array is indexed by BlkIdx; tables the variant lacks keep a zero
// ops row and can never hold entries.
type Config struct {
	DeviceID uint64
	Tables   [BlkIdxMax]Table
}

// The block IDs the chip understands are sparse, so the dense table array
// is translated back and forth through this map. Block IDs come from
// untrusted input when unpacking, hence the range check in blkIdxFromBlkID.
var blkIDMap = [BlkIdxMax]uint64{
	BlkIdxSchedule:                  BlockIDSchedule,
	BlkIdxScheduleEntryPoints:       BlockIDScheduleEntryPoints,
	BlkIdxVLLookup:                  BlockIDVLLookup,
	BlkIdxVLPolicing:                BlockIDVLPolicing,
	BlkIdxVLForwarding:              BlockIDVLForwarding,
	BlkIdxL2Lookup:                  BlockIDL2Lookup,
	BlkIdxL2Policing:                BlockIDL2Policing,
	BlkIdxVlanLookup:                BlockIDVlanLookup,
	BlkIdxL2Forwarding:              BlockIDL2Forwarding,
	BlkIdxMACConfig:                 BlockIDMACConfig,
	BlkIdxScheduleParams:            BlockIDScheduleParams,
	BlkIdxScheduleEntryPointsParams: BlockIDScheduleEntryPointsParams,
	BlkIdxVLForwardingParams:        BlockIDVLForwardingParams,
	BlkIdxL2LookupParams:            BlockIDL2LookupParams,
	BlkIdxL2ForwardingParams:        BlockIDL2ForwardingParams,
	BlkIdxClkSyncParams:             BlockIDClkSyncParams,
	BlkIdxAVBParams:                 BlockIDAVBParams,
	BlkIdxGeneralParams:             BlockIDGeneralParams,
	BlkIdxRetagging:                 BlockIDRetagging,
	BlkIdxXMIIParams:                BlockIDXMIIParams,
	BlkIdxSGMII:                     BlockIDSGMII,
}

func blkIdxFromBlkID(blockID uint64) BlkIdx {
	if blockID > BlockIDMax {
		return BlkIdxInval
	}
	for i := BlkIdx(0); i < BlkIdxMax; i++ {
		if blkIDMap[i] == blockID {
			return i
		}
	}
	return BlkIdxInval
}

// NewConfig binds an empty configuration to the variant named by the probed
// device ID and part number.
func NewConfig(deviceID, partNr uint64) (*Config, error) {
	ops, err := tableOpsFor(deviceID, partNr)
	if err != nil {
		return nil, err
	}
	config := &Config{DeviceID: deviceID}
	for i := BlkIdx(0); i < BlkIdxMax; i++ {
		config.Tables[i].ops = &ops[i]
	}
	return config, nil
}

// PackedLen returns the size in bytes of the packed representation of the
// configuration: the device ID word, one header and trailing data CRC per
// non-empty table, all the entries, and the final zero-length header which
// carries no data CRC of its own.
func (c *Config) PackedLen() int {
	headerCount := 1
	sum := SizeDeviceID

	for i := BlkIdx(0); i < BlkIdxMax; i++ {
		table := &c.Tables[i]
		if table.EntryCount() > 0 {
			headerCount++
		}
		sum += table.ops.PackedEntrySize * table.EntryCount()
	}
	sum += headerCount * (SizeTableHeader + 4)
	// The final header has no data area, so no trailing CRC either.
	sum -= 4
	return sum
}

// packTableHeaderWithCRC packs hdr into buf and then overwrites the CRC
// field with the checksum of the first 8 bytes. hdr.CRC is updated to the
// computed value.
func packTableHeaderWithCRC(buf []byte, hdr *TableHeader) {
	clear(buf[:SizeTableHeader])
	TableHeaderPacking(buf, hdr, packing.Pack)
	hdr.CRC = CRC32(buf[:SizeTableHeader-4])
	pack(buf[SizeTableHeader-4:SizeTableHeader], hdr.CRC, 31, 0)
}

// Pack serializes the configuration into buf, which must be at least
// PackedLen() bytes. The final header's CRC field is filled with a
// placeholder; the upload path recomputes it over the whole stream.
func (c *Config) Pack(buf []byte) {
	p := buf

	pack(p[:SizeDeviceID], c.DeviceID, 31, 0)
	p = p[SizeDeviceID:]

	for i := BlkIdx(0); i < BlkIdxMax; i++ {
		table := &c.Tables[i]
		if table.EntryCount() == 0 {
			continue
		}
		hdr := TableHeader{
			BlockID: blkIDMap[i],
			Len:     uint64(table.EntryCount() * table.ops.PackedEntrySize / 4),
		}
		packTableHeaderWithCRC(p, &hdr)
		p = p[SizeTableHeader:]

		dataLen := table.EntryCount() * table.ops.PackedEntrySize
		data := p[:dataLen]
		clear(data)
		for j, entry := range table.Entries {
			start := j * table.ops.PackedEntrySize
			table.ops.Packing(data[start:start+table.ops.PackedEntrySize], entry, packing.Pack)
		}
		p = p[dataLen:]
		pack(p[:4], CRC32(data), 31, 0)
		p = p[4:]
	}

	// Final header: block ID does not matter, a length of zero marks it
	// as final, and the CRC is replaced during upload preparation.
	hdr := TableHeader{BlockID: 0, Len: 0, CRC: 0xDEADBEEF}
	clear(p[:SizeTableHeader])
	TableHeaderPacking(p, &hdr, packing.Pack)
}

// Unpack parses a packed configuration stream into c. The config must have
// been initialized with NewConfig for the matching variant; all tables must
// be empty. The return value reports the first defect found, or ConfigOK.
// Unpack checks the container framing only, not the cross-table semantics;
// run CheckValid separately for those.
func (c *Config) Unpack(buf []byte) Validity {
	if len(buf) < SizeDeviceID {
		return UnexpectedEndOfBuffer
	}

	var deviceID uint64
	unpack(buf[:SizeDeviceID], &deviceID, 31, 0)
	if !DeviceIDValid(deviceID) {
		return InvalidDeviceID
	}
	c.DeviceID = deviceID
	p := buf[SizeDeviceID:]

	// The VL lookup codec needs the format discriminant from general
	// parameters, which may appear later in the stream. Retain the packed
	// region so the entries can be decoded again once it is known.
	var vlLookupData []byte

	for {
		if len(p) < SizeTableHeader {
			return UnexpectedEndOfBuffer
		}
		var hdr TableHeader
		TableHeaderPacking(p, &hdr, packing.Unpack)

		// The zero-length header terminates the stream.
		if hdr.Len == 0 {
			p = p[SizeTableHeader:]
			break
		}

		if CRC32(p[:SizeTableHeader-4])&0xFFFFFFFF != hdr.CRC&0xFFFFFFFF {
			return InvalidTableHeaderCRC
		}
		p = p[SizeTableHeader:]

		dataLen := int(hdr.Len) * 4
		if len(p) < dataLen+4 {
			return UnexpectedEndOfBuffer
		}
		data := p[:dataLen]
		computedCRC := CRC32(data)

		blkIdx := blkIdxFromBlkID(hdr.BlockID)
		if blkIdx == BlkIdxInval {
			return InvalidTableHeader
		}
		table := &c.Tables[blkIdx]
		if table.ops.PackedEntrySize == 0 {
			// Block ID valid in general but not for this variant.
			return InvalidTableHeader
		}
		if table.EntryCount() > 0 {
			// Duplicate table header with the same block ID.
			return InvalidTableHeader
		}
		if blkIdx == BlkIdxVLLookup {
			vlLookupData = data
		}

		for len(data) >= table.ops.PackedEntrySize {
			bytes, err := table.addPackedEntry(data)
			if err != nil {
				return InvalidTableHeader
			}
			data = data[bytes:]
		}
		if len(data) != 0 {
			// The data area is not a whole number of entries.
			return IncorrectTableLength
		}
		p = p[dataLen:]

		var readCRC uint64
		unpack(p[:4], &readCRC, 31, 0)
		p = p[4:]
		if computedCRC != readCRC {
			return DataCRCInvalid
		}
	}
	if len(p) != 0 {
		return ExtraBytesAtEndOfBuffer
	}

	c.patchVllupformat(vlLookupData)
	return ConfigOK
}

// patchVllupformat propagates the virtual link lookup format discriminant
// from the general parameters into each VL lookup record. The entries were
// decoded before the discriminant was known, through the format-0 arm of
// the codec, so for format 1 they are decoded again from their packed bytes
// with the format set.
func (c *Config) patchVllupformat(packed []byte) {
	generalParams := c.Tables[BlkIdxGeneralParams].Entries
	if len(generalParams) == 0 {
		return
	}
	vllupformat := generalParams[0].(*GeneralParamsEntry).Vllupformat
	if vllupformat == 0 {
		return
	}

	table := &c.Tables[BlkIdxVLLookup]
	for i, e := range table.Entries {
		entry := e.(*VLLookupEntry)
		*entry = VLLookupEntry{Format: vllupformat}
		start := i * table.ops.PackedEntrySize
		table.ops.Packing(packed[start:start+table.ops.PackedEntrySize], entry, packing.Unpack)
	}
}
