// General status register area readout
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package device

import (
	"sja1105-go/pkg/sjaerr"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
)

// The readout starts at word 1, skipping the device ID, and covers words
// 0x01..0x0C on E/T and 0x01..0x0D on P/Q/R/S.
const (
	sizeGeneralStatusET   = 0x0C * 4
	sizeGeneralStatusPQRS = 0x0D * 4
)

// GeneralStatus is the unpacked general status register area. The
// configuration fields (Configs, Crcchkl, Ids, Crcchkg) report the fate
// of the last static configuration upload; the rest are interrupt-style
// diagnostics that keep the port or address of the last offending frame.
type GeneralStatus struct {
	Configs    uint64
	Crcchkl    uint64
	Ids        uint64
	Crcchkg    uint64
	Nslot      uint64
	Vlind      uint64
	Vlparind   uint64
	Vlroutes   uint64
	Vlparts    uint64
	Macaddl    uint64
	Portenf    uint64
	Fwds03h    uint64
	Macfds     uint64
	Enffds     uint64
	L2busyfds  uint64
	L2busys    uint64
	Macaddu    uint64
	Macaddhcl  uint64
	Vlanidhc   uint64
	Hashconfs  uint64
	Macaddhcu  uint64
	Wpvlanid   uint64
	Port07h    uint64
	Vlanbusys  uint64
	Wrongports uint64
	Vnotfounds uint64
	Vlid       uint64
	Portvl     uint64
	Vlnotfound uint64
	Emptys     uint64
	Buffers    uint64
	// P/Q/R/S only
	Buflwmark  uint64
	Port0ah    uint64
	Fwds0ah    uint64
	Parts      uint64
	Ramparerrl uint64
	Ramparerru uint64
}

// ConfigValid reports whether the chip accepted its static configuration.
func (s *GeneralStatus) ConfigValid() bool {
	return s.Configs == 1 && s.Crcchkl == 0 && s.Crcchkg == 0 && s.Ids == 0
}

func unpackGeneralStatus(buf []byte, status *GeneralStatus, deviceID uint64) {
	// The buffer starts at register word 1; word keeps the user manual's
	// register numbering.
	word := func(n int) []byte {
		return buf[(n-1)*4 : n*4]
	}

	*status = GeneralStatus{}
	unpackField(word(0x1), &status.Configs, 31, 31)
	unpackField(word(0x1), &status.Crcchkl, 30, 30)
	unpackField(word(0x1), &status.Ids, 29, 29)
	unpackField(word(0x1), &status.Crcchkg, 28, 28)
	unpackField(word(0x1), &status.Nslot, 3, 0)
	unpackField(word(0x2), &status.Vlind, 31, 16)
	unpackField(word(0x2), &status.Vlparind, 15, 8)
	unpackField(word(0x2), &status.Vlroutes, 1, 1)
	unpackField(word(0x2), &status.Vlparts, 0, 0)
	unpackField(word(0x3), &status.Macaddl, 31, 16)
	unpackField(word(0x3), &status.Portenf, 15, 8)
	unpackField(word(0x3), &status.Fwds03h, 4, 4)
	unpackField(word(0x3), &status.Macfds, 3, 3)
	unpackField(word(0x3), &status.Enffds, 2, 2)
	unpackField(word(0x3), &status.L2busyfds, 1, 1)
	unpackField(word(0x3), &status.L2busys, 0, 0)
	unpackField(word(0x4), &status.Macaddu, 31, 0)
	unpackField(word(0x5), &status.Macaddhcl, 31, 16)
	unpackField(word(0x5), &status.Vlanidhc, 15, 4)
	unpackField(word(0x5), &status.Hashconfs, 0, 0)
	unpackField(word(0x6), &status.Macaddhcu, 31, 0)
	unpackField(word(0x7), &status.Wpvlanid, 31, 16)
	unpackField(word(0x7), &status.Port07h, 15, 8)
	unpackField(word(0x7), &status.Vlanbusys, 4, 4)
	unpackField(word(0x7), &status.Wrongports, 3, 3)
	unpackField(word(0x7), &status.Vnotfounds, 2, 2)
	unpackField(word(0x8), &status.Vlid, 31, 16)
	unpackField(word(0x8), &status.Portvl, 15, 8)
	unpackField(word(0x8), &status.Vlnotfound, 0, 0)
	unpackField(word(0x9), &status.Emptys, 31, 31)
	unpackField(word(0x9), &status.Buffers, 30, 0)
	if static.IsET(deviceID) {
		unpackField(word(0xA), &status.Port0ah, 15, 8)
		unpackField(word(0xA), &status.Fwds0ah, 1, 1)
		unpackField(word(0xA), &status.Parts, 0, 0)
		unpackField(word(0xB), &status.Ramparerrl, 20, 0)
		unpackField(word(0xC), &status.Ramparerru, 4, 0)
	} else {
		unpackField(word(0xA), &status.Buflwmark, 30, 0)
		unpackField(word(0xB), &status.Port0ah, 15, 8)
		unpackField(word(0xB), &status.Fwds0ah, 1, 1)
		unpackField(word(0xB), &status.Parts, 0, 0)
		unpackField(word(0xC), &status.Ramparerrl, 22, 0)
		unpackField(word(0xD), &status.Ramparerru, 4, 0)
	}
}

// GeneralStatus reads and unpacks the general status area.
func (d *Device) GeneralStatus() (*GeneralStatus, error) {
	size := sizeGeneralStatusET
	if static.IsPQRS(d.DeviceID) {
		size = sizeGeneralStatusPQRS
	}

	buf := make([]byte, size)
	if err := d.bus.SendPackedBuf(spi.Read, d.Regs.GeneralStatus, buf); err != nil {
		return nil, sjaerr.Wrap(err, sjaerr.ErrDeviceStatus, "cannot read general status")
	}

	status := &GeneralStatus{}
	unpackGeneralStatus(buf, status, d.DeviceID)
	return status, nil
}
