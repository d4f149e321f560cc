// PTP hardware clock control
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package ptp drives the switch's PTP hardware clock: reading and
// stepping the time-of-day counter, fine rate correction for a software
// servo, and the start/stop commands for the time-aware scheduler that
// runs in the PTP time domain.
//
// The clock counts in units of 8 ns. Rate correction is expressed
// against PTPCLKRATE's center value of 0x80000000: at full swing the
// corrected clock runs at double or half the free-running oscillator,
// but the hardware only guarantees adjustments up to MaxAdjPPB.
package ptp

import (
	"time"

	"sja1105-go/pkg/device"
	"sja1105-go/pkg/log"
	"sja1105-go/pkg/packing"
	"sja1105-go/pkg/sjaerr"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
)

var logger = log.GetLogger("ptp")

func packField(buf []byte, val uint64, start, end int) {
	if err := packing.PackInto(buf, val, start, end, packing.QuirkLSW32IsFirst); err != nil {
		logger.Error("cannot pack %#x into bits %d-%d: %v", val, start, end, err)
	}
}

const (
	// MaxAdjPPB is the most the clock rate may be skewed, in parts per
	// billion.
	MaxAdjPPB = 32000000

	// SizeCmd is the packed size of the PTP control command.
	SizeCmd = 4

	// The clock counts in 8 ns units.
	tickNS = 8

	rateCenter = 0x80000000
)

// ClkMode selects what a write to the clock value register does.
type ClkMode int

const (
	// ModeSet overwrites the clock with the written value.
	ModeSet ClkMode = 0
	// ModeAdd adds the written value to the clock.
	ModeAdd ClkMode = 1

	modeUnknown ClkMode = -1
)

// Cmd is the unpacked PTP control command. All fields are one-bit
// triggers except Ptpclkadd, which latches the clock write mode.
type Cmd struct {
	Ptpstrtsch uint64
	Ptpstopsch uint64
	Startptpcp uint64
	Stopptpcp  uint64
	Resptp     uint64
	Corrclk4ts uint64
	Ptpclkadd  uint64
}

// PackCmd packs a control command for the given device generation. The
// reset and timestamp-source bits moved between generations.
func PackCmd(buf []byte, cmd *Cmd, deviceID uint64) {
	clear(buf[:SizeCmd])
	packField(buf[:SizeCmd], 1, 31, 31) // valid
	packField(buf[:SizeCmd], cmd.Ptpstrtsch, 30, 30)
	packField(buf[:SizeCmd], cmd.Ptpstopsch, 29, 29)
	packField(buf[:SizeCmd], cmd.Startptpcp, 28, 28)
	packField(buf[:SizeCmd], cmd.Stopptpcp, 27, 27)
	if static.IsET(deviceID) {
		packField(buf[:SizeCmd], cmd.Resptp, 2, 2)
		packField(buf[:SizeCmd], cmd.Corrclk4ts, 1, 1)
	} else {
		packField(buf[:SizeCmd], cmd.Resptp, 3, 3)
		packField(buf[:SizeCmd], cmd.Corrclk4ts, 2, 2)
	}
	packField(buf[:SizeCmd], cmd.Ptpclkadd, 0, 0)
}

// Bus is the register access surface the clock needs. *spi.Conn
// implements it.
type Bus interface {
	SendPackedBuf(mode spi.AccessMode, addr uint64, buf []byte) error
	SendInt(mode spi.AccessMode, addr uint64, value *uint64, size int) error
}

// Clock is the PTP hardware clock of one chip. It is not safe for
// concurrent use; the servo loop owns it.
type Clock struct {
	bus      Bus
	deviceID uint64
	regs     *device.Regs
	mode     ClkMode
}

// NewClock binds the clock registers of a probed chip.
func NewClock(bus Bus, deviceID uint64) (*Clock, error) {
	regs := device.RegsFor(deviceID)
	if regs == nil {
		return nil, sjaerr.DeviceUnknownError(deviceID)
	}
	return &Clock{bus: bus, deviceID: deviceID, regs: regs, mode: modeUnknown}, nil
}

func (c *Clock) sendCmd(cmd *Cmd) error {
	var buf [SizeCmd]byte
	PackCmd(buf[:], cmd, c.deviceID)
	if err := c.bus.SendPackedBuf(spi.Write, c.regs.PTPControl, buf[:]); err != nil {
		return sjaerr.Wrap(err, sjaerr.ErrTransport, "ptp command")
	}
	return nil
}

// Reset resets the PTP clock logic. The latched write mode is forgotten
// with it.
func (c *Clock) Reset() error {
	c.mode = modeUnknown
	return c.sendCmd(&Cmd{Resptp: 1})
}

// StartSchedule starts the time-aware scheduler.
func (c *Clock) StartSchedule() error {
	return c.sendCmd(&Cmd{Ptpstrtsch: 1})
}

// StopSchedule stops the time-aware scheduler.
func (c *Clock) StopSchedule() error {
	return c.sendCmd(&Cmd{Ptpstopsch: 1})
}

// CorrectedTimestamps selects whether frame timestamps are taken from
// the corrected clock or the free-running one.
func (c *Clock) CorrectedTimestamps(enable bool) error {
	cmd := Cmd{}
	if enable {
		cmd.Corrclk4ts = 1
	}
	return c.sendCmd(&cmd)
}

func (c *Clock) setMode(mode ClkMode) error {
	if c.mode == mode {
		return nil
	}
	if err := c.sendCmd(&Cmd{Ptpclkadd: uint64(mode)}); err != nil {
		return err
	}
	c.mode = mode
	return nil
}

// TimeToClkVal converts a wall time to the clock's 8 ns representation.
func TimeToClkVal(t time.Time) uint64 {
	return uint64(t.UnixNano()) / tickNS
}

// ClkValToTime converts the clock's 8 ns representation to a wall time.
func ClkValToTime(val uint64) time.Time {
	ns := val * tickNS
	return time.Unix(int64(ns/1e9), int64(ns%1e9)).UTC()
}

// Time reads the corrected clock.
func (c *Clock) Time() (time.Time, error) {
	var val uint64
	if err := c.bus.SendInt(spi.Read, c.regs.PTPClk, &val, 8); err != nil {
		return time.Time{}, sjaerr.Wrap(err, sjaerr.ErrTransport, "ptp clock read")
	}
	return ClkValToTime(val), nil
}

// SetTime steps the clock to an absolute time. Never do this while the
// scheduler is running; it can only follow rate corrections.
func (c *Clock) SetTime(t time.Time) error {
	if err := c.setMode(ModeSet); err != nil {
		return err
	}
	val := TimeToClkVal(t)
	if err := c.bus.SendInt(spi.Write, c.regs.PTPClk, &val, 8); err != nil {
		return sjaerr.Wrap(err, sjaerr.ErrTransport, "ptp clock write")
	}
	return nil
}

// AdjustTime shifts the clock by a signed offset.
func (c *Clock) AdjustTime(delta time.Duration) error {
	now, err := c.Time()
	if err != nil {
		return err
	}
	return c.SetTime(now.Add(delta))
}

// AdjustFine skews the clock rate. scaledPPM is parts per million with a
// 16-bit fractional part, the usual servo interface unit; 1 scaled ppm
// is 65.536 ppb.
//
// The register wants the ratio against the free-running clock, centered
// at 0x80000000:
//
//	PTPCLKRATE = 0x80000000 + scaledPPM * 2^31 / (10^6 * 2^16)
func (c *Clock) AdjustFine(scaledPPM int64) error {
	rate := scaledPPM << 9 / 15625
	val := uint64(rateCenter + rate)
	if err := c.bus.SendInt(spi.Write, c.regs.PTPClkRate, &val, 4); err != nil {
		return sjaerr.Wrap(err, sjaerr.ErrTransport, "ptp rate write")
	}
	return nil
}

// FreeRunningTime reads the free-running (uncorrected) clock.
func (c *Clock) FreeRunningTime() (time.Time, error) {
	var val uint64
	if err := c.bus.SendInt(spi.Read, c.regs.PTPTSClk, &val, 8); err != nil {
		return time.Time{}, sjaerr.Wrap(err, sjaerr.ErrTransport, "ptp ts clock read")
	}
	return ClkValToTime(val), nil
}

// EgressTimestamp reads one egress timestamp slot. The readout is
// partial (24 bits on E/T, 32 on P/Q/R/S) and in 8 ns units; the caller
// reconstructs the full time against a recent clock readout.
func (c *Clock) EgressTimestamp(slot int) (uint64, error) {
	var val uint64
	addr := c.regs.PTPEgrTS + uint64(slot)
	if err := c.bus.SendInt(spi.Read, addr, &val, 4); err != nil {
		return 0, sjaerr.Wrap(err, sjaerr.ErrTransport, "egress timestamp read")
	}
	return val & c.regs.PTPEgrTSMask, nil
}
