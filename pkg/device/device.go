// Chip probing, reset and static configuration upload
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package device drives the chip-level operations that sit above raw
// register access: identifying the switch, resetting it, reading its
// status registers and programming a static configuration into it.
package device

import (
	"sja1105-go/pkg/log"
	"sja1105-go/pkg/packing"
	"sja1105-go/pkg/sjaerr"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
)

var logger = log.GetLogger("device")

// Bus is the register access surface the device layer needs. *spi.Conn
// implements it.
type Bus interface {
	SendPackedBuf(mode spi.AccessMode, addr uint64, buf []byte) error
	SendInt(mode spi.AccessMode, addr uint64, value *uint64, size int) error
	SendLongPackedBuf(mode spi.AccessMode, addr uint64, buf []byte) error
}

// Device is one probed switch chip.
type Device struct {
	bus      Bus
	DeviceID uint64
	PartNr   uint64
	Regs     *Regs
}

// New binds a device of a known variant without touching the hardware.
func New(bus Bus, deviceID, partNr uint64) (*Device, error) {
	regs := RegsFor(deviceID)
	if regs == nil {
		return nil, sjaerr.DeviceUnknownError(deviceID)
	}
	return &Device{bus: bus, DeviceID: deviceID, PartNr: partNr, Regs: regs}, nil
}

// Probe reads the device ID register and, on the second generation, the
// part number from the ACU area (P and R, like Q and S, share a device ID
// and differ only there).
func Probe(bus Bus) (*Device, error) {
	var deviceID uint64
	if err := bus.SendInt(spi.Read, deviceIDAddr, &deviceID, static.SizeDeviceID); err != nil {
		return nil, sjaerr.Wrap(err, sjaerr.ErrDeviceProbe, "cannot read device id")
	}
	if !static.DeviceIDValid(deviceID) {
		return nil, sjaerr.DeviceUnknownError(deviceID)
	}

	device := &Device{
		bus:      bus,
		DeviceID: deviceID,
		PartNr:   static.PartNrDontCare,
		Regs:     RegsFor(deviceID),
	}
	if static.IsPQRS(deviceID) {
		var prodID uint64
		if err := bus.SendInt(spi.Read, prodIDAddr, &prodID, 4); err != nil {
			return nil, sjaerr.Wrap(err, sjaerr.ErrDeviceProbe, "cannot read part number")
		}
		device.PartNr = prodID >> 4 & 0xFFFF
	}

	logger.Chip(device.DeviceID).Info("probed %s",
		DeviceIDString(device.DeviceID, device.PartNr))
	return device, nil
}

// Name returns the human-readable chip name.
func (d *Device) Name() string {
	return DeviceIDString(d.DeviceID, d.PartNr)
}

// ResetCmd selects which reset domains of the reset generation unit to
// trigger. Only warm and cold reset exist on the first generation.
type ResetCmd struct {
	SwitchRst uint64
	CfgRst    uint64
	CarRst    uint64
	OtpRst    uint64
	WarmRst   uint64
	ColdRst   uint64
	PorRst    uint64
}

func (cmd *ResetCmd) packET(buf []byte) {
	clear(buf)
	packField(buf, cmd.ColdRst, 3, 3)
	packField(buf, cmd.WarmRst, 2, 2)
}

func (cmd *ResetCmd) packPQRS(buf []byte) {
	clear(buf)
	packField(buf, cmd.SwitchRst, 8, 8)
	packField(buf, cmd.CfgRst, 7, 7)
	packField(buf, cmd.CarRst, 5, 5)
	packField(buf, cmd.OtpRst, 4, 4)
	packField(buf, cmd.WarmRst, 3, 3)
	packField(buf, cmd.ColdRst, 2, 2)
	packField(buf, cmd.PorRst, 1, 1)
}

func packField(buf []byte, val uint64, start, end int) {
	if err := packing.PackInto(buf, val, start, end, packing.QuirkLSW32IsFirst); err != nil {
		logger.Error("cannot pack %#x into bits %d-%d: %v", val, start, end, err)
	}
}

func unpackField(buf []byte, val *uint64, start, end int) {
	if err := packing.UnpackFrom(buf, val, start, end, packing.QuirkLSW32IsFirst); err != nil {
		logger.Error("cannot unpack bits %d-%d: %v", start, end, err)
	}
}

// Reset writes a reset command to the reset generation unit.
func (d *Device) Reset(cmd *ResetCmd) error {
	if static.IsET(d.DeviceID) &&
		(cmd.SwitchRst != 0 || cmd.CfgRst != 0 || cmd.CarRst != 0 ||
			cmd.OtpRst != 0 || cmd.PorRst != 0) {
		return sjaerr.New(sjaerr.ErrDeviceReset,
			"only warm and cold reset are supported on SJA1105 E/T")
	}

	var buf [4]byte
	if static.IsET(d.DeviceID) {
		cmd.packET(buf[:])
	} else {
		cmd.packPQRS(buf[:])
	}
	if err := d.bus.SendPackedBuf(spi.Write, d.Regs.RGU, buf[:]); err != nil {
		return sjaerr.DeviceResetError(err)
	}
	return nil
}

// ColdReset resets the whole chip, dropping it back into its
// configuration-loading state.
func (d *Device) ColdReset() error {
	return d.Reset(&ResetCmd{ColdRst: 1})
}

// WarmReset resets the switch core but keeps the chip configuration.
func (d *Device) WarmReset() error {
	return d.Reset(&ResetCmd{WarmRst: 1})
}
