// Unix socket transport for the chip simulator
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package spi

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// Socket is a Transport over a Unix stream socket, used to talk to the
// chip simulator instead of real hardware. A stream has no chip select
// to delimit transfers, so each tx image is length-prefixed; the reply
// is exactly as long as the tx image, mimicking the full-duplex shift of
// a real SPI bus.
type Socket struct {
	conn net.Conn
}

// OpenSocket connects to a simulator listening at the given path.
func OpenSocket(path string, timeout time.Duration) (*Socket, error) {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, fmt.Errorf("spi: connect %s: %w", path, err)
	}
	return &Socket{conn: conn}, nil
}

// Transfer shifts tx out and reads len(rx) bytes back.
func (s *Socket) Transfer(tx, rx []byte) error {
	if len(tx) != len(rx) {
		return fmt.Errorf("spi: tx/rx length mismatch: %d != %d", len(tx), len(rx))
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(tx)))
	if _, err := s.conn.Write(append(prefix[:], tx...)); err != nil {
		return fmt.Errorf("spi: socket write: %w", err)
	}
	if _, err := io.ReadFull(s.conn, rx); err != nil {
		return fmt.Errorf("spi: socket read: %w", err)
	}
	return nil
}

// Close shuts the socket down.
func (s *Socket) Close() error {
	return s.conn.Close()
}
