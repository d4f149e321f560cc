// FDB bin addressing for the first-generation hashed address table
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package dynamic

import "sja1105-go/pkg/static"

// FDBBinSize is the number of ways per hash bin on E/T. The address table
// is a 4-way hash: a MAC/VLAN pair may live in any of the 4 consecutive
// slots of its bin, and software picks the way.
const FDBBinSize = 4

// FDBIndex converts a bin/way pair into an address table index.
func FDBIndex(bin, way int) int {
	return bin*FDBBinSize + way
}

// crc8Add folds one byte into an 8-bit CRC, MSB first.
func crc8Add(crc, b, poly uint8) uint8 {
	for i := 0; i < 8; i++ {
		if (crc^b)&0x80 != 0 {
			crc = crc<<1 ^ poly
		} else {
			crc <<= 1
		}
		b <<= 1
	}
	return crc
}

// FDBHash computes the bin an address hashes to on E/T. The hardware runs
// a CRC-8 over the 16-bit VLAN ID concatenated with the 48-bit MAC
// address, using the polynomial programmed into the L2 lookup parameters
// table. That field stores the polynomial in Koopman notation (implicit
// low-order term); the CRC runs on the normal form. With shared VLAN
// learning the VLAN ID does not participate in the hash.
func FDBHash(params *static.L2LookupParamsEntry, macaddr uint64, vid uint16) uint8 {
	poly := uint8(1 + params.Poly<<1)

	vlanid := uint64(vid)
	if params.SharedLearn != 0 {
		vlanid = 0
	}
	input := vlanid<<48 | macaddr&0xFFFFFFFFFFFF

	var crc uint8
	for i := 56; i >= 0; i -= 8 {
		crc = crc8Add(crc, uint8(input>>i), poly)
	}
	return crc
}
