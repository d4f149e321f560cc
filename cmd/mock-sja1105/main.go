// mock-sja1105 serves a simulated SJA1105 chip on a Unix socket, for
// running sja1105d and sja1105ctl without hardware.
//
// Usage:
//
//	mock-sja1105 -listen /run/sja1105-sim.sock [-variant SJA1105T]
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sja1105-go/pkg/config"
	"sja1105-go/pkg/sim"
)

func main() {
	listen := flag.String("listen", "/run/sja1105-sim.sock", "Unix socket path to listen on")
	variant := flag.String("variant", "SJA1105T", "Chip variant to simulate")
	flag.Parse()

	deviceID, partNr, err := config.ParseVariant(*variant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mock-sja1105: %v\n", err)
		os.Exit(1)
	}
	chip, err := sim.NewChip(deviceID, partNr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mock-sja1105: %v\n", err)
		os.Exit(1)
	}

	// A stale socket from a previous run blocks the listener.
	_ = os.Remove(*listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		os.Remove(*listen)
		os.Exit(0)
	}()

	if err := chip.ListenAndServe(*listen); err != nil {
		fmt.Fprintf(os.Stderr, "mock-sja1105: %v\n", err)
		os.Exit(1)
	}
}
