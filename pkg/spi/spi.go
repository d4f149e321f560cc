// SPI message framing and register access
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package spi frames register reads and writes into the switch's SPI
// message format and moves them over a pluggable transport. A message is a
// 4-byte header (access bit, read word count, 21-bit register address)
// followed by up to 64 words of payload; larger buffers are chunked.
package spi

import (
	"errors"
	"sync"

	"sja1105-go/pkg/log"
	"sja1105-go/pkg/packing"
)

const (
	// SizeMsgHeader is the packed size of the message header.
	SizeMsgHeader = 4
	// SizeMsgMaxLen is the maximum payload of a single message, 64 words.
	SizeMsgMaxLen = 64 * 4
	// TransferSizeMax bounds one full transfer, header included.
	TransferSizeMax = SizeMsgHeader + SizeMsgMaxLen
)

// AccessMode selects the direction of a register access.
type AccessMode int

const (
	Read  AccessMode = 0
	Write AccessMode = 1
)

func (m AccessMode) String() string {
	if m == Read {
		return "read"
	}
	return "write"
}

// Common errors
var (
	ErrMsgTooLong = errors.New("spi: message longer than the transfer maximum")
	ErrBadAccess  = errors.New("spi: access mode is neither read nor write")
	ErrClosed     = errors.New("spi: connection closed")
)

// Transport performs one full-duplex SPI transfer: tx is shifted out while
// rx, of the same length, is shifted in.
type Transport interface {
	Transfer(tx, rx []byte) error
	Close() error
}

// message is the unpacked form of the 4-byte access header.
type message struct {
	Access    uint64
	ReadCount uint64
	Address   uint64
}

func (m *message) pack(buf []byte) {
	clear(buf[:SizeMsgHeader])
	// Header fields, UM10944 chapter 3.
	packLocal(buf, m.Access, 31, 31)
	packLocal(buf, m.ReadCount, 30, 25)
	packLocal(buf, m.Address, 24, 4)
}

func packLocal(buf []byte, val uint64, start, end int) {
	if err := packing.PackInto(buf[:SizeMsgHeader], val, start, end, packing.QuirkLSW32IsFirst); err != nil {
		logger.Error("cannot pack %#x into bits %d-%d: %v", val, start, end, err)
	}
}

var logger = log.GetLogger("spi")

// Conn serializes register accesses over one Transport. All methods are
// safe for concurrent use, but callers that need multi-message atomicity
// (e.g. the dynamic reconfiguration poll loop) must add their own locking.
type Conn struct {
	mu        sync.Mutex
	transport Transport
	closed    bool
}

// NewConn wraps a transport in a connection.
func NewConn(transport Transport) *Conn {
	return &Conn{transport: transport}
}

// Close releases the underlying transport.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.transport.Close()
}

// SendPackedBuf sends a single SPI message. For a Write, len(buf) bytes are
// written to registers starting at addr. For a Read, len(buf) bytes are
// read from addr into buf. len(buf) must not exceed SizeMsgMaxLen.
func (c *Conn) SendPackedBuf(mode AccessMode, addr uint64, buf []byte) error {
	msgLen := len(buf) + SizeMsgHeader
	if msgLen > TransferSizeMax {
		return ErrMsgTooLong
	}
	if mode != Read && mode != Write {
		return ErrBadAccess
	}

	var txBuf, rxBuf [TransferSizeMax]byte
	tx := txBuf[:msgLen]
	rx := rxBuf[:msgLen]

	msg := message{Access: uint64(mode), Address: addr}
	if mode == Read {
		msg.ReadCount = uint64(len(buf) / 4)
	}
	msg.pack(tx)
	if mode == Write {
		copy(tx[SizeMsgHeader:], buf)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.transport.Transfer(tx, rx); err != nil {
		return err
	}

	if mode == Read {
		copy(buf, rx[SizeMsgHeader:])
	}
	return nil
}

// SendInt transfers a single register value of size bytes (at most 8) in
// host representation, packing and unpacking around the raw transfer.
func (c *Conn) SendInt(mode AccessMode, addr uint64, value *uint64, size int) error {
	if size > 8 {
		return ErrMsgTooLong
	}
	var buf [8]byte

	if mode == Write {
		if err := packing.PackInto(buf[:size], *value, 8*size-1, 0, packing.QuirkLSW32IsFirst); err != nil {
			return err
		}
	}
	if err := c.SendPackedBuf(mode, addr, buf[:size]); err != nil {
		return err
	}
	if mode == Read {
		return packing.UnpackFrom(buf[:size], value, 8*size-1, 0, packing.QuirkLSW32IsFirst)
	}
	return nil
}

// SendLongPackedBuf transfers a buffer of any length by splitting it into
// maximum-sized messages. The register address advances by one word per 4
// payload bytes.
func (c *Conn) SendLongPackedBuf(mode AccessMode, addr uint64, buf []byte) error {
	for len(buf) > 0 {
		chunk := len(buf)
		if chunk > SizeMsgMaxLen {
			chunk = SizeMsgMaxLen
		}
		if err := c.SendPackedBuf(mode, addr, buf[:chunk]); err != nil {
			return err
		}
		buf = buf[chunk:]
		addr += uint64(chunk / 4)
	}
	return nil
}
