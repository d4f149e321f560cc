// Tests for the generic bit-field packing engine
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package packing

import (
	"bytes"
	"errors"
	"testing"
)

func TestPackKnownLayouts(t *testing.T) {
	tests := []struct {
		name     string
		buflen   int
		val      uint64
		start    int
		end      int
		quirks   Quirks
		expected []byte
	}{
		{
			name:     "single byte no quirks",
			buflen:   4,
			val:      0xAB,
			start:    15,
			end:      8,
			quirks:   0,
			expected: []byte{0x00, 0x00, 0xAB, 0x00},
		},
		{
			name:     "two bytes no quirks",
			buflen:   4,
			val:      0x1234,
			start:    15,
			end:      0,
			quirks:   0,
			expected: []byte{0x00, 0x00, 0x12, 0x34},
		},
		{
			name:     "lsw32 swaps words",
			buflen:   8,
			val:      0xAB,
			start:    15,
			end:      8,
			quirks:   QuirkLSW32IsFirst,
			expected: []byte{0x00, 0x00, 0xAB, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name:     "little endian mirrors bytes in word",
			buflen:   4,
			val:      0xAB,
			start:    15,
			end:      8,
			quirks:   QuirkLittleEndian,
			expected: []byte{0x00, 0xAB, 0x00, 0x00},
		},
		{
			name:     "msb on the right mirrors bits",
			buflen:   4,
			val:      0xAB,
			start:    15,
			end:      8,
			quirks:   QuirkMSBOnTheRight,
			expected: []byte{0x00, 0x00, 0xD5, 0x00},
		},
		{
			name:     "sub-byte window preserves neighbours",
			buflen:   4,
			val:      0x3,
			start:    5,
			end:      4,
			quirks:   0,
			expected: []byte{0x00, 0x00, 0x00, 0x30},
		},
		{
			// Logical bit 0 sits at physical bit 7 of the last byte.
			name:     "msb on the right single bit",
			buflen:   4,
			val:      0x1,
			start:    0,
			end:      0,
			quirks:   QuirkMSBOnTheRight,
			expected: []byte{0x00, 0x00, 0x00, 0x80},
		},
		{
			// The partial low box (bits 7-4) mirrors onto physical
			// bits 3-0 with its value bits reversed.
			name:     "msb on the right partial box",
			buflen:   4,
			val:      0xABC,
			start:    15,
			end:      4,
			quirks:   QuirkMSBOnTheRight,
			expected: []byte{0x00, 0x00, 0xD5, 0x03},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.buflen)
			if err := PackInto(buf, tt.val, tt.start, tt.end, tt.quirks); err != nil {
				t.Fatalf("PackInto: %v", err)
			}
			if !bytes.Equal(buf, tt.expected) {
				t.Errorf("got % x, expected % x", buf, tt.expected)
			}

			var back uint64
			if err := UnpackFrom(buf, &back, tt.start, tt.end, tt.quirks); err != nil {
				t.Fatalf("UnpackFrom: %v", err)
			}
			if back != tt.val {
				t.Errorf("round trip: got %#x, expected %#x", back, tt.val)
			}
		})
	}
}

func TestPackPreservesUntouchedBits(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	if err := PackInto(buf, 0, 11, 4, 0); err != nil {
		t.Fatalf("PackInto: %v", err)
	}
	expected := []byte{0xFF, 0xFF, 0xF0, 0x0F}
	if !bytes.Equal(buf, expected) {
		t.Errorf("got % x, expected % x", buf, expected)
	}
}

func TestRoundTripAllQuirks(t *testing.T) {
	windows := []struct{ start, end int }{
		{0, 0}, {7, 0}, {8, 8}, {15, 4}, {31, 0}, {33, 30},
		{47, 16}, {63, 0}, {95, 32}, {127, 64}, {90, 27},
	}
	// Simple deterministic value generator, no rand dependency.
	next := uint64(0x2545F4914F6CDD1D)
	for quirks := Quirks(0); quirks <= QuirkMSBOnTheRight|QuirkLittleEndian|QuirkLSW32IsFirst; quirks++ {
		for _, w := range windows {
			width := w.start - w.end + 1
			next = next*6364136223846793005 + 1442695040888963407
			val := next
			if width < 64 {
				val &= (uint64(1) << width) - 1
			}

			buf := make([]byte, 16)
			if err := PackInto(buf, val, w.start, w.end, quirks); err != nil {
				t.Fatalf("quirks %d window %d-%d: PackInto: %v",
					quirks, w.start, w.end, err)
			}
			var back uint64
			if err := UnpackFrom(buf, &back, w.start, w.end, quirks); err != nil {
				t.Fatalf("quirks %d window %d-%d: UnpackFrom: %v",
					quirks, w.start, w.end, err)
			}
			if back != val {
				t.Errorf("quirks %d window %d-%d: got %#x, expected %#x",
					quirks, w.start, w.end, back, val)
			}
		}
	}
}

func TestTransferErrors(t *testing.T) {
	buf := make([]byte, 16)

	if err := PackInto(buf, 0, 3, 4, 0); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("reversed window: got %v, expected ErrInvalidRange", err)
	}
	if err := PackInto(buf, 0, 64, 0, 0); !errors.Is(err, ErrOverflow) {
		t.Errorf("window wider than 64: got %v, expected ErrOverflow", err)
	}
	if err := PackInto(buf, 0x100, 7, 0, 0); !errors.Is(err, ErrOverflow) {
		t.Errorf("value too wide: got %v, expected ErrOverflow", err)
	}
	var val uint64
	if err := UnpackFrom(buf, &val, 64, 0, 0); !errors.Is(err, ErrOverflow) {
		t.Errorf("unpack window wider than 64: got %v, expected ErrOverflow", err)
	}
	// Unpack has no value-width restriction.
	if err := UnpackFrom(buf, &val, 7, 0, 0); err != nil {
		t.Errorf("valid unpack: %v", err)
	}
}
