// Checksum convention of the static configuration stream
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package static

import (
	"encoding/binary"
	"hash/crc32"
)

// CRC32 computes the little-endian Ethernet CRC32 of buf, consumed as
// big-endian u32 words. This is the hardware's checksum convention for both
// the table headers and the table data areas; the word reordering is not a
// free choice.
func CRC32(buf []byte) uint64 {
	scratch := make([]byte, len(buf))
	var word uint64

	for i := 0; i+4 <= len(buf); i += 4 {
		unpack(buf[i:i+4], &word, 31, 0)
		binary.LittleEndian.PutUint32(scratch[i:], uint32(word))
	}
	return uint64(crc32.ChecksumIEEE(scratch))
}
