// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package ptp

import (
	"testing"
	"time"

	"sja1105-go/pkg/sim"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
)

func newSimClock(t *testing.T, deviceID uint64) *Clock {
	t.Helper()
	chip, err := sim.NewChip(deviceID, static.PartNrDontCare)
	if err != nil {
		t.Fatalf("NewChip: %v", err)
	}
	conn := spi.NewConn(&sim.Loopback{Chip: chip})
	t.Cleanup(func() { conn.Close() })

	clock, err := NewClock(conn, deviceID)
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	return clock
}

func TestClkValConversion(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
	}{
		{"epoch", time.Unix(0, 0)},
		{"aligned", time.Unix(1700000000, 0)},
		{"sub-second", time.Unix(1700000000, 123456784)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			val := TimeToClkVal(tc.t)
			back := ClkValToTime(val)
			if !back.Equal(tc.t) {
				t.Errorf("round trip: got %v, want %v", back, tc.t)
			}
		})
	}

	// Nanoseconds below the 8 ns resolution are truncated.
	truncated := ClkValToTime(TimeToClkVal(time.Unix(100, 15)))
	if want := time.Unix(100, 8); !truncated.Equal(want) {
		t.Errorf("truncation: got %v, want %v", truncated, want)
	}
}

func TestPackCmdGenerations(t *testing.T) {
	cmd := Cmd{Resptp: 1, Corrclk4ts: 1}

	var et, pqrs [SizeCmd]byte
	PackCmd(et[:], &cmd, static.DeviceIDE)
	PackCmd(pqrs[:], &cmd, static.DeviceIDPR)

	// valid=1 at bit 31; resptp/corrclk4ts at 2/1 on E/T and 3/2 on
	// P/Q/R/S.
	if et != [SizeCmd]byte{0x80, 0, 0, 0x06} {
		t.Errorf("E/T cmd image: got %#v", et)
	}
	if pqrs != [SizeCmd]byte{0x80, 0, 0, 0x0C} {
		t.Errorf("P/Q/R/S cmd image: got %#v", pqrs)
	}

	sched := Cmd{Ptpstrtsch: 1}
	var buf [SizeCmd]byte
	PackCmd(buf[:], &sched, static.DeviceIDT)
	if buf != [SizeCmd]byte{0xC0, 0, 0, 0} {
		t.Errorf("schedule start image: got %#v", buf)
	}
}

func TestClockSetAndRead(t *testing.T) {
	clock := newSimClock(t, static.DeviceIDT)

	want := time.Unix(1700000000, 123456784)
	if err := clock.SetTime(want); err != nil {
		t.Fatalf("SetTime: %v", err)
	}
	got, err := clock.Time()
	if err != nil {
		t.Fatalf("Time: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("clock: got %v, want %v", got, want)
	}
}

func TestAdjustTime(t *testing.T) {
	clock := newSimClock(t, static.DeviceIDT)

	base := time.Unix(1000, 0)
	if err := clock.SetTime(base); err != nil {
		t.Fatalf("SetTime: %v", err)
	}
	if err := clock.AdjustTime(-8 * time.Second); err != nil {
		t.Fatalf("AdjustTime: %v", err)
	}
	got, err := clock.Time()
	if err != nil {
		t.Fatalf("Time: %v", err)
	}
	if want := time.Unix(992, 0); !got.Equal(want) {
		t.Errorf("adjusted clock: got %v, want %v", got, want)
	}
}

func TestAdjustFineWritesCenteredRate(t *testing.T) {
	clock := newSimClock(t, static.DeviceIDT)

	// A zero correction is the center value.
	if err := clock.AdjustFine(0); err != nil {
		t.Fatalf("AdjustFine: %v", err)
	}
	var rate uint64
	if err := clock.bus.SendInt(spi.Read, clock.regs.PTPClkRate, &rate, 4); err != nil {
		t.Fatalf("rate read: %v", err)
	}
	if rate != rateCenter {
		t.Errorf("zero correction: got %#x, want %#x", rate, uint64(rateCenter))
	}

	// 1 ppm = 65536 scaled ppm; the register moves by 2^31 / 10^6.
	if err := clock.AdjustFine(65536); err != nil {
		t.Fatalf("AdjustFine: %v", err)
	}
	if err := clock.bus.SendInt(spi.Read, clock.regs.PTPClkRate, &rate, 4); err != nil {
		t.Fatalf("rate read: %v", err)
	}
	if want := uint64(rateCenter + 65536*512/15625); rate != want {
		t.Errorf("1 ppm correction: got %#x, want %#x", rate, want)
	}

	// Negative corrections land below the center.
	if err := clock.AdjustFine(-65536); err != nil {
		t.Fatalf("AdjustFine: %v", err)
	}
	if err := clock.bus.SendInt(spi.Read, clock.regs.PTPClkRate, &rate, 4); err != nil {
		t.Fatalf("rate read: %v", err)
	}
	if rate >= rateCenter {
		t.Errorf("negative correction should be below center, got %#x", rate)
	}
}

func TestResetForgetsClkMode(t *testing.T) {
	clock := newSimClock(t, static.DeviceIDT)

	if err := clock.SetTime(time.Unix(1, 0)); err != nil {
		t.Fatalf("SetTime: %v", err)
	}
	if clock.mode != ModeSet {
		t.Fatalf("mode after SetTime: got %v, want ModeSet", clock.mode)
	}
	if err := clock.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if clock.mode != modeUnknown {
		t.Errorf("mode after reset: got %v, want unknown", clock.mode)
	}
}
