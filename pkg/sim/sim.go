// Behavioral model of the switch's SPI register interface
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package sim models enough of the chip's register interface to exercise
// the driver without hardware: probing, reset, static configuration
// upload with the chip-side validity verdict, and the dynamic
// reconfiguration windows. The package tests and the mock-sja1105 daemon
// share it.
package sim

import (
	"sync"

	"sja1105-go/pkg/dynamic"
	"sja1105-go/pkg/log"
	"sja1105-go/pkg/packing"
	"sja1105-go/pkg/static"
)

var logger = log.GetLogger("sim")

// Chip-level addresses shared by both generations.
const (
	deviceIDAddr      = 0x0
	prodIDAddr        = 0x100BC3
	rguAddr           = 0x100440
	configAddr        = 0x020000
	generalStatusAddr = 0x1
)

// window is one dynamic reconfiguration register window and the table
// slots behind it.
type window struct {
	kind  static.BlkIdx
	ops   *dynamic.Ops
	image []byte
	slots map[int][]byte

	pending dynamic.Cmd
	found   bool
	reads   int
}

// Chip is one simulated switch. All access goes through Exchange, which
// decodes the same message format the real chip does.
type Chip struct {
	mu       sync.Mutex
	deviceID uint64
	partNr   uint64

	configStream []byte
	resets       int
	regfile      map[uint64]uint32
	windows      map[uint64]*window

	// PollCount is how many status polls a dynamic command stays
	// pending for before the chip clears VALID (default 1).
	PollCount int
	// FailUploads makes the next n configuration verdicts report a bad
	// global CRC, to exercise the driver's upload retry loop.
	FailUploads int
}

// NewChip builds a simulated chip of the given variant.
func NewChip(deviceID, partNr uint64) (*Chip, error) {
	if !static.DeviceIDValid(deviceID) {
		return nil, static.ErrUnknownDevice
	}

	chip := &Chip{
		deviceID:  deviceID,
		partNr:    partNr,
		regfile:   make(map[uint64]uint32),
		windows:   make(map[uint64]*window),
		PollCount: 1,
	}

	// The dynamic client is only borrowed for its window geometry.
	client, err := dynamic.NewClient(nil, deviceID)
	if err != nil {
		return nil, err
	}
	for kind := static.BlkIdx(0); kind < static.BlkIdxMaxDyn; kind++ {
		ops, err := client.Ops(kind)
		if err != nil || ops.CmdPacking == nil {
			continue
		}
		if _, taken := chip.windows[ops.Addr]; taken {
			// The management route pseudo-kind shares the L2 lookup
			// window, slots included.
			continue
		}
		chip.windows[ops.Addr] = &window{
			kind:  kind,
			ops:   ops,
			image: make([]byte, ops.PackedSize),
			slots: make(map[int][]byte),
		}
	}
	return chip, nil
}

// Resets reports how many cold resets the chip has seen.
func (c *Chip) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// Exchange decodes one SPI message and produces the reply image, which
// is always exactly as long as the tx image.
func (c *Chip) Exchange(tx []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	rx := make([]byte, len(tx))
	if len(tx) < 4 {
		return rx
	}

	var access, addr uint64
	unpackField(tx[:4], &access, 31, 31)
	unpackField(tx[:4], &addr, 24, 4)

	if access == 1 {
		c.handleWrite(addr, tx[4:])
	} else {
		c.handleRead(addr, rx[4:])
	}
	return rx
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

func (c *Chip) handleWrite(addr uint64, payload []byte) {
	switch {
	case addr == rguAddr:
		c.handleReset(payload)
	case addr >= configAddr && addr < configAddr+0x10000:
		c.appendConfig(addr, payload)
	default:
		if w, ok := c.windows[addr]; ok {
			c.handleWindowWrite(w, payload)
			return
		}
		for i := 0; i+4 <= len(payload); i += 4 {
			var word uint64
			unpackField(payload[i:i+4], &word, 31, 0)
			c.regfile[addr+uint64(i/4)] = uint32(word)
		}
	}
}

func (c *Chip) handleRead(addr uint64, payload []byte) {
	switch {
	case addr == deviceIDAddr:
		packField(payload[:4], c.deviceID, 31, 0)
	case addr == prodIDAddr:
		packField(payload[:4], c.partNr<<4, 31, 0)
	case addr >= generalStatusAddr && addr < generalStatusAddr+0x0D:
		c.readGeneralStatus(addr, payload)
	default:
		if w, ok := c.windows[addr]; ok {
			c.handleWindowRead(w, payload)
			return
		}
		for i := 0; i+4 <= len(payload); i += 4 {
			packField(payload[i:i+4], uint64(c.regfile[addr+uint64(i/4)]), 31, 0)
		}
	}
}

func (c *Chip) handleReset(payload []byte) {
	if len(payload) < 4 {
		return
	}
	var coldRst uint64
	if static.IsET(c.deviceID) {
		unpackField(payload[:4], &coldRst, 3, 3)
	} else {
		unpackField(payload[:4], &coldRst, 2, 2)
	}
	if coldRst != 0 {
		c.resets++
		c.configStream = nil
		logger.Debug("cold reset (%d so far)", c.resets)
	}
}

func (c *Chip) appendConfig(addr uint64, payload []byte) {
	offset := int(addr-configAddr) * 4
	if need := offset + len(payload); need > len(c.configStream) {
		c.configStream = append(c.configStream, make([]byte, need-len(c.configStream))...)
	}
	copy(c.configStream[offset:], payload)
}

// configVerdict evaluates the uploaded stream the way the chip's
// configuration loader does and returns the CONFIGS/CRCCHKL/IDS/CRCCHKG
// flags of general status word 1.
func (c *Chip) configVerdict() (configs, crcchkl, ids, crcchkg uint64) {
	if len(c.configStream) < static.SizeDeviceID+static.SizeTableHeader {
		return 0, 0, 0, 0
	}

	if c.FailUploads > 0 {
		c.FailUploads--
		return 0, 0, 0, 1
	}

	config, err := static.NewConfig(c.deviceID, c.partNr)
	if err != nil {
		return 0, 0, 0, 0
	}
	switch valid := config.Unpack(c.configStream); valid {
	case static.ConfigOK:
	case static.InvalidDeviceID:
		return 0, 0, 1, 0
	case static.InvalidTableHeaderCRC, static.DataCRCInvalid:
		return 0, 1, 0, 0
	default:
		return 0, 0, 0, 0
	}

	// The global CRC is the last word of the stream and covers
	// everything before it.
	var stored uint64
	unpackField(c.configStream[len(c.configStream)-4:], &stored, 31, 0)
	if stored != static.CRC32(c.configStream[:len(c.configStream)-4]) {
		return 0, 0, 0, 1
	}

	if config.CheckValid() != static.ConfigOK {
		return 0, 0, 0, 0
	}
	return 1, 0, 0, 0
}

func (c *Chip) readGeneralStatus(addr uint64, payload []byte) {
	configs, crcchkl, ids, crcchkg := c.configVerdict()

	var word1 [4]byte
	packField(word1[:], configs, 31, 31)
	packField(word1[:], crcchkl, 30, 30)
	packField(word1[:], ids, 29, 29)
	packField(word1[:], crcchkg, 28, 28)

	// The readout may start anywhere in the area; only word 1 carries
	// simulated state, the rest reads as zero.
	for i := 0; i+4 <= len(payload); i += 4 {
		if addr+uint64(i/4) == generalStatusAddr {
			copy(payload[i:i+4], word1[:])
		} else {
			clear(payload[i : i+4])
		}
	}
}

func (c *Chip) handleWindowWrite(w *window, payload []byte) {
	copy(w.image, payload)
	cmd := dynamic.Cmd{}
	w.ops.CmdPacking(w.image, &cmd, packing.Unpack)
	if cmd.Valid == 0 {
		return
	}

	w.pending = cmd
	w.reads = 0
	index := int(cmd.Index)
	if cmd.Rdwrset == 1 {
		if cmd.Valident != 0 {
			entry := make([]byte, w.ops.EntrySize)
			copy(entry, w.image[:w.ops.EntrySize])
			w.slots[index] = entry
			w.found = true
		} else {
			delete(w.slots, index)
			w.found = false
		}
	} else {
		entry, ok := w.slots[index]
		w.found = ok
		if ok {
			copy(w.image[:w.ops.EntrySize], entry)
		}
	}
}

func (c *Chip) handleWindowRead(w *window, payload []byte) {
	w.reads++
	cmd := w.pending
	if w.reads >= c.PollCount {
		cmd.Valid = 0
	}
	cmd.Valident = 0
	if w.found {
		cmd.Valident = 1
	}
	w.ops.CmdPacking(w.image, &cmd, packing.Pack)
	copy(payload, w.image)
}

// Loopback adapts a Chip into an in-process SPI transport.
type Loopback struct {
	Chip *Chip
}

// Transfer feeds tx through the chip model.
func (l *Loopback) Transfer(tx, rx []byte) error {
	copy(rx, l.Chip.Exchange(tx))
	return nil
}

// Close is a no-op; the chip has no resources to release.
func (l *Loopback) Close() error {
	return nil
}
