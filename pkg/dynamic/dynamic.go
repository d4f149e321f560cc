// Dynamic reconfiguration of table entries at runtime
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package dynamic patches individual table entries on a live switch,
// without the reset that a full static configuration upload requires. Only
// a hardware-defined subset of the table kinds supports this, each through
// its own register window with its own command word layout.
package dynamic

import (
	"errors"

	"sja1105-go/pkg/packing"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
)

const (
	// SizeCmd is the packed size of a dynamic command word.
	SizeCmd = 4
	// maxCmdSize is the largest command+entry buffer of any table kind.
	maxCmdSize = SizeCmd + static.SizeMACConfigEntryPQRS

	// readRetries bounds the poll loop on the command VALID bit.
	readRetries = 3
)

// Errors reported by dynamic table access. NotFound and Timeout are
// ordinary outcomes that callers handle as control flow.
var (
	// ErrOutOfRange means the kind is unknown or the index exceeds the
	// kind's entry count.
	ErrOutOfRange = errors.New("dynamic: kind or index out of range")
	// ErrUnsupported means the kind has no dynamic interface on this
	// chip, or its access rights exclude the requested operation.
	ErrUnsupported = errors.New("dynamic: operation not supported for this table")
	// ErrNotFound means the hardware reported that no entry exists at
	// the requested index.
	ErrNotFound = errors.New("dynamic: entry not found")
	// ErrTimeout means the hardware did not finish processing the
	// command within the retry budget.
	ErrTimeout = errors.New("dynamic: command still in progress after retries")
	// ErrInvalid means the hardware rejected the written entry.
	ErrInvalid = errors.New("dynamic: hardware rejected the entry")
)

// AccessOp is a bitmask of the operations a table kind's dynamic
// interface supports.
type AccessOp int

const (
	OpRead AccessOp = 1 << iota
	OpWrite
	OpDel
)

// Cmd is the unpacked command word shared by all dynamic interfaces. The
// bit positions differ per kind, so each kind carries its own codec.
type Cmd struct {
	Valid    uint64
	Errors   uint64
	Rdwrset  uint64
	Valident uint64
	Index    uint64
}

// CmdPacking transfers a command word to or from a kind's register window
// image.
type CmdPacking func(buf []byte, cmd *Cmd, op packing.Op)

// Ops binds one table kind to its dynamic register window. A zero Ops
// marks a kind without a dynamic interface on the generation.
// The entry image occupies the first EntrySize bytes of the window; the
// word-swapped bit addressing is relative to that length, so the entry
// codec is always handed exactly that slice.
type Ops struct {
	CmdPacking    CmdPacking
	EntryPacking  static.EntryPacking
	Access        AccessOp
	MaxEntryCount int
	PackedSize    int
	EntrySize     int
	Addr          uint64
}

// Bus is the register access surface the protocol needs. *spi.Conn
// implements it.
type Bus interface {
	SendPackedBuf(mode spi.AccessMode, addr uint64, buf []byte) error
}

// Client runs the dynamic reconfiguration protocol for one chip. Calls
// must not be interleaved with each other or with a static config upload;
// the register window is a chip-global state machine.
type Client struct {
	bus Bus
	ops *[static.BlkIdxMaxDyn]Ops
}

// NewClient binds the generation's ops table for the probed device ID.
func NewClient(bus Bus, deviceID uint64) (*Client, error) {
	switch {
	case static.IsET(deviceID):
		return &Client{bus: bus, ops: &etTableOps}, nil
	case static.IsPQRS(deviceID):
		return &Client{bus: bus, ops: &pqrsTableOps}, nil
	}
	return nil, static.ErrUnknownDevice
}

// Ops exposes the binding for one kind, for callers that need the window
// geometry (the chip simulator does).
func (c *Client) Ops(kind static.BlkIdx) (*Ops, error) {
	if kind < 0 || kind >= static.BlkIdxMaxDyn {
		return nil, ErrOutOfRange
	}
	return &c.ops[kind], nil
}

// Read fetches the entry at index from the kind's dynamic interface. It
// triggers a read command, then polls the command word until the hardware
// clears VALID, up to the retry budget. If entry is nil the caller only
// learns whether the entry exists.
func (c *Client) Read(kind static.BlkIdx, index int, entry any) error {
	if kind < 0 || kind >= static.BlkIdxMaxDyn {
		return ErrOutOfRange
	}
	ops := &c.ops[kind]

	if ops.Access&OpRead == 0 || ops.CmdPacking == nil || ops.EntryPacking == nil {
		return ErrUnsupported
	}
	if index < 0 || index >= ops.MaxEntryCount {
		return ErrOutOfRange
	}

	var packedBuf [maxCmdSize]byte
	buf := packedBuf[:ops.PackedSize]

	cmd := Cmd{Valid: 1, Rdwrset: uint64(spi.Read), Index: uint64(index)}
	ops.CmdPacking(buf, &cmd, packing.Pack)

	if err := c.bus.SendPackedBuf(spi.Write, ops.Addr, buf); err != nil {
		return err
	}

	// Loop until the hardware confirms it has finished processing the
	// command by clearing the VALID field.
	for retries := readRetries; ; retries-- {
		clear(buf)
		if err := c.bus.SendPackedBuf(spi.Read, ops.Addr, buf); err != nil {
			return err
		}
		cmd = Cmd{}
		ops.CmdPacking(buf, &cmd, packing.Unpack)
		if cmd.Valident == 0 {
			return ErrNotFound
		}
		if cmd.Valid == 0 {
			break
		}
		if retries <= 1 {
			return ErrTimeout
		}
	}

	if entry != nil {
		ops.EntryPacking(buf[:ops.EntrySize], entry, packing.Unpack)
	}
	return nil
}

// Write stores entry at index through the kind's dynamic interface, or
// deletes the slot when keep is false (entry may then be nil). The
// hardware's error flag in the readback command word reports rejection.
func (c *Client) Write(kind static.BlkIdx, index int, entry any, keep bool) error {
	if kind < 0 || kind >= static.BlkIdxMaxDyn {
		return ErrOutOfRange
	}
	ops := &c.ops[kind]

	if ops.Access&OpWrite == 0 || ops.CmdPacking == nil || ops.EntryPacking == nil {
		return ErrUnsupported
	}
	if !keep && ops.Access&OpDel == 0 {
		return ErrUnsupported
	}
	if index < 0 || index >= ops.MaxEntryCount {
		return ErrOutOfRange
	}

	var packedBuf [maxCmdSize]byte
	buf := packedBuf[:ops.PackedSize]

	cmd := Cmd{
		Valid:    1,
		Rdwrset:  uint64(spi.Write),
		Valident: boolToU64(keep),
		Index:    uint64(index),
	}
	ops.CmdPacking(buf, &cmd, packing.Pack)
	// Entries are only packed when kept; a delete needs just the command
	// word, with the index routed through the entry area where the
	// hardware demands it (the command codec handles that).
	if keep {
		ops.EntryPacking(buf[:ops.EntrySize], entry, packing.Pack)
	}

	if err := c.bus.SendPackedBuf(spi.Write, ops.Addr, buf); err != nil {
		return err
	}

	clear(buf)
	if err := c.bus.SendPackedBuf(spi.Read, ops.Addr, buf); err != nil {
		return err
	}
	cmd = Cmd{}
	ops.CmdPacking(buf, &cmd, packing.Unpack)
	if cmd.Errors != 0 {
		logger.Table(kind.String()).Error("chip flagged the dynamic write at index %d as invalid", index)
		return ErrInvalid
	}
	return nil
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
