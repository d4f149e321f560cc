// Generic bit-field packing between u64 values and byte buffers
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package packing converts between native uint64 values and arbitrary bit
// windows of a byte-addressed buffer, under a composable set of hardware
// memory layout quirks.
//
// The default layout is "logical big-endian": bit 0 is the least significant
// bit of the last byte of the buffer, and bit 8*len-1 is the most significant
// bit of the first byte. Quirks describe how a device deviates from that
// layout. All transforms are bijections, so packing and then unpacking the
// same window with the same quirks is lossless.
package packing

import "errors"

// Op selects the transfer direction.
type Op int

const (
	// Pack writes a value into the buffer.
	Pack Op = iota
	// Unpack reads a value out of the buffer.
	Unpack
)

// Quirks is a bitmask of hardware memory layout deviations.
type Quirks uint8

const (
	// QuirkMSBOnTheRight mirrors the bit order within each byte.
	QuirkMSBOnTheRight Quirks = 1 << iota
	// QuirkLittleEndian mirrors the byte order within each 4-byte word.
	QuirkLittleEndian
	// QuirkLSW32IsFirst reverses the order of the 4-byte words in the
	// buffer, keeping the byte order within each word.
	QuirkLSW32IsFirst
)

// Errors reported for invalid bit windows.
var (
	// ErrInvalidRange means the start bit precedes the end bit.
	ErrInvalidRange = errors.New("packing: start bit must not precede end bit")
	// ErrOverflow means the window exceeds 64 bits, or the value to pack
	// does not fit in the window.
	ErrOverflow = errors.New("packing: value does not fit bit window")
)

// genmask returns a mask with bits high..low set, inclusive.
func genmask(high, low int) uint64 {
	if high-low+1 >= 64 {
		return ^uint64(0) << low
	}
	return ((uint64(1) << (high - low + 1)) - 1) << low
}

// leOffset mirrors a byte offset within its enclosing 4-byte word.
func leOffset(offset int) int {
	base := (offset / 4) * 4
	return base + (3 - (offset - base))
}

// reverseLSW32Offset moves a byte offset into the mirrored word of the
// buffer, preserving the position within the word.
func reverseLSW32Offset(offset, buflen int) int {
	word := offset / 4
	rem := offset - word*4
	word = buflen/4 - word - 1
	return word*4 + rem
}

// bitReverse reverses the low width bits of val.
func bitReverse(val uint64, width int) uint64 {
	var out uint64
	for i := 0; i < width; i++ {
		if val&(uint64(1)<<i) != 0 {
			out |= uint64(1) << (width - i - 1)
		}
	}
	return out
}

// mirrorForMSBRight mirrors an in-byte window across the byte, for devices
// that number bits within a byte from the left. The logical window [s, e]
// lands on physical bits [7-e, 7-s]; the mirror preserves the window width
// and is its own inverse. The value bits are reversed separately, on the
// zero-aligned side of the box shift.
func mirrorForMSBRight(startBit, endBit *int, mask *uint8) {
	*startBit, *endBit = 7-*endBit, 7-*startBit
	*mask = uint8(genmask(*startBit, *endBit))
}

// Transfer moves the bit window [endBit, startBit] (inclusive, startBit >=
// endBit) between *val and buf, in the direction given by op. The window is
// numbered logically over the whole buffer; quirks decide the physical byte
// placement. Buffers touched by QuirkLittleEndian or QuirkLSW32IsFirst must
// be a multiple of 4 bytes long.
func Transfer(buf []byte, val *uint64, startBit, endBit int, quirks Quirks, op Op) error {
	if startBit < endBit {
		return ErrInvalidRange
	}
	width := startBit - endBit + 1
	if width > 64 {
		return ErrOverflow
	}
	if op == Pack && width < 64 && *val >= uint64(1)<<width {
		return ErrOverflow
	}
	if op == Unpack {
		*val = 0
	}

	// Iterate the logical bytes ("boxes") touched by the window, from
	// most significant to least significant.
	firstBox := startBit / 8
	lastBox := endBit / 8

	for box := firstBox; box >= lastBox; box-- {
		boxStartBit := 7
		if box == firstBox {
			boxStartBit = startBit % 8
		}
		boxEndBit := 0
		if box == lastBox {
			boxEndBit = endBit % 8
		}

		// Projection of this box's sub-window onto the u64.
		projStartBit := box*8 + boxStartBit - endBit
		projEndBit := box*8 + boxEndBit - endBit
		projMask := genmask(projStartBit, projEndBit)
		boxMask := uint8(genmask(boxStartBit, boxEndBit))

		boxAddr := len(buf) - box - 1
		if quirks&QuirkLittleEndian != 0 {
			boxAddr = leOffset(boxAddr)
		}
		if quirks&QuirkLSW32IsFirst != 0 {
			boxAddr = reverseLSW32Offset(boxAddr, len(buf))
		}

		boxWidth := boxStartBit - boxEndBit + 1

		if op == Unpack {
			if quirks&QuirkMSBOnTheRight != 0 {
				mirrorForMSBRight(&boxStartBit, &boxEndBit, &boxMask)
			}
			pval := uint64(buf[boxAddr] & boxMask)
			pval >>= boxEndBit
			if quirks&QuirkMSBOnTheRight != 0 {
				pval = bitReverse(pval, boxWidth)
			}
			pval <<= projEndBit
			*val &^= projMask
			*val |= pval
		} else {
			pval := *val & projMask
			pval >>= projEndBit
			if quirks&QuirkMSBOnTheRight != 0 {
				pval = bitReverse(pval, boxWidth)
				mirrorForMSBRight(&boxStartBit, &boxEndBit, &boxMask)
			}
			pval <<= boxEndBit
			buf[boxAddr] &^= boxMask
			buf[boxAddr] |= uint8(pval)
		}
	}
	return nil
}

// PackInto writes val into the window [endBit, startBit] of buf.
func PackInto(buf []byte, val uint64, startBit, endBit int, quirks Quirks) error {
	return Transfer(buf, &val, startBit, endBit, quirks, Pack)
}

// UnpackFrom reads the window [endBit, startBit] of buf into *val.
func UnpackFrom(buf []byte, val *uint64, startBit, endBit int, quirks Quirks) error {
	return Transfer(buf, val, startBit, endBit, quirks, Unpack)
}
