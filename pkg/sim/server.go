// Socket server exposing a simulated chip
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"sja1105-go/pkg/spi"
)

// Serve accepts connections and answers length-prefixed SPI transfers
// against the chip model, the framing spi.Socket speaks. It returns when
// the listener is closed.
func (c *Chip) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go c.serveConn(conn)
	}
}

func (c *Chip) serveConn(conn net.Conn) {
	defer conn.Close()
	logger.Debug("client connected: %v", conn.RemoteAddr())

	var prefix [4]byte
	for {
		if _, err := io.ReadFull(conn, prefix[:]); err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error("frame header read: %v", err)
			}
			return
		}
		length := binary.BigEndian.Uint32(prefix[:])
		if length < spi.SizeMsgHeader || length > spi.TransferSizeMax {
			logger.Error("dropping client, bad frame length %d", length)
			return
		}

		tx := make([]byte, length)
		if _, err := io.ReadFull(conn, tx); err != nil {
			logger.Error("frame read: %v", err)
			return
		}
		if _, err := conn.Write(c.Exchange(tx)); err != nil {
			logger.Error("frame write: %v", err)
			return
		}
	}
}

// ListenAndServe listens on a Unix socket path and serves the chip model
// on it.
func (c *Chip) ListenAndServe(path string) error {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("sim: listen %s: %w", path, err)
	}
	logger.Info("simulated chip listening on %s", path)
	return c.Serve(listener)
}
