// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package sim

import (
	"errors"
	"testing"

	"sja1105-go/pkg/dynamic"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
)

func newChipConn(t *testing.T, deviceID, partNr uint64) (*Chip, *spi.Conn) {
	t.Helper()
	chip, err := NewChip(deviceID, partNr)
	if err != nil {
		t.Fatalf("NewChip: %v", err)
	}
	conn := spi.NewConn(&Loopback{Chip: chip})
	t.Cleanup(func() { conn.Close() })
	return chip, conn
}

func TestIdentificationRegisters(t *testing.T) {
	_, conn := newChipConn(t, static.DeviceIDPR, static.PartNrR)

	var deviceID uint64
	if err := conn.SendInt(spi.Read, 0x0, &deviceID, 4); err != nil {
		t.Fatalf("device id read: %v", err)
	}
	if deviceID != static.DeviceIDPR {
		t.Errorf("device id: got %#x, want %#x", deviceID, static.DeviceIDPR)
	}

	var prodID uint64
	if err := conn.SendInt(spi.Read, 0x100BC3, &prodID, 4); err != nil {
		t.Fatalf("prod id read: %v", err)
	}
	if got := prodID >> 4 & 0xFFFF; got != static.PartNrR {
		t.Errorf("part nr: got %#x, want %#x", got, static.PartNrR)
	}
}

func TestScratchRegistersRoundTrip(t *testing.T) {
	_, conn := newChipConn(t, static.DeviceIDE, static.PartNrDontCare)

	var value uint64 = 0xCAFEBABE
	if err := conn.SendInt(spi.Write, 0x18, &value, 4); err != nil {
		t.Fatalf("write: %v", err)
	}
	var readback uint64
	if err := conn.SendInt(spi.Read, 0x18, &readback, 4); err != nil {
		t.Fatalf("read: %v", err)
	}
	if readback != value {
		t.Errorf("register round trip: got %#x, want %#x", readback, value)
	}
}

func TestDynamicWindowLifecycle(t *testing.T) {
	_, conn := newChipConn(t, static.DeviceIDT, static.PartNrDontCare)
	client, err := dynamic.NewClient(conn, static.DeviceIDT)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := client.Read(static.BlkIdxL2Lookup, 12, nil); !errors.Is(err, dynamic.ErrNotFound) {
		t.Fatalf("read of empty chip: got %v, want ErrNotFound", err)
	}

	entry := static.L2LookupEntry{
		Vlanid:    1,
		Macaddr:   0x001094000042,
		Destports: 0x10,
		Index:     12,
	}
	if err := client.Write(static.BlkIdxL2Lookup, 12, &entry, true); err != nil {
		t.Fatalf("write: %v", err)
	}

	var read static.L2LookupEntry
	if err := client.Read(static.BlkIdxL2Lookup, 12, &read); err != nil {
		t.Fatalf("read: %v", err)
	}
	if read.Macaddr != entry.Macaddr || read.Vlanid != entry.Vlanid ||
		read.Destports != entry.Destports {
		t.Errorf("round trip mismatch: got %+v, want %+v", read, entry)
	}

	if err := client.Write(static.BlkIdxL2Lookup, 12, nil, false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := client.Read(static.BlkIdxL2Lookup, 12, nil); !errors.Is(err, dynamic.ErrNotFound) {
		t.Errorf("read after delete: got %v, want ErrNotFound", err)
	}
}

func TestDynamicWindowPollBudget(t *testing.T) {
	chip, conn := newChipConn(t, static.DeviceIDT, static.PartNrDontCare)
	client, err := dynamic.NewClient(conn, static.DeviceIDT)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	entry := static.L2LookupEntry{Macaddr: 0x001094000042, Index: 3}
	if err := client.Write(static.BlkIdxL2Lookup, 3, &entry, true); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A command that completes exactly on the last allowed poll.
	chip.PollCount = 3
	if err := client.Read(static.BlkIdxL2Lookup, 3, nil); err != nil {
		t.Errorf("slow command: %v", err)
	}

	// One poll slower and the driver gives up.
	chip.PollCount = 4
	if err := client.Read(static.BlkIdxL2Lookup, 3, nil); !errors.Is(err, dynamic.ErrTimeout) {
		t.Errorf("stuck command: got %v, want ErrTimeout", err)
	}
}

func TestMgmtRouteSharesL2LookupWindow(t *testing.T) {
	_, conn := newChipConn(t, static.DeviceIDT, static.PartNrDontCare)
	client, err := dynamic.NewClient(conn, static.DeviceIDT)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	route := dynamic.MgmtRouteEntry{
		Macaddr:   0x0180C200000E,
		Destports: 0x01,
		Enfport:   1,
	}
	if err := client.Write(static.BlkIdxMgmtRoute, 2, &route, true); err != nil {
		t.Fatalf("route write: %v", err)
	}

	var read dynamic.MgmtRouteEntry
	if err := client.Read(static.BlkIdxMgmtRoute, 2, &read); err != nil {
		t.Fatalf("route read: %v", err)
	}
	if read.Macaddr != route.Macaddr || read.Destports != route.Destports {
		t.Errorf("route round trip mismatch: got %+v, want %+v", read, route)
	}
}

func TestColdResetDropsConfigStream(t *testing.T) {
	chip, conn := newChipConn(t, static.DeviceIDE, static.PartNrDontCare)

	payload := []byte{1, 2, 3, 4}
	if err := conn.SendPackedBuf(spi.Write, configAddr, payload); err != nil {
		t.Fatalf("config write: %v", err)
	}
	if len(chip.configStream) == 0 {
		t.Fatal("config stream not accumulated")
	}

	// Cold reset on E/T is bit 3 of the RGU word.
	reset := []byte{0, 0, 0, 0x08}
	if err := conn.SendPackedBuf(spi.Write, rguAddr, reset); err != nil {
		t.Fatalf("reset write: %v", err)
	}
	if chip.Resets() != 1 {
		t.Errorf("resets: got %d, want 1", chip.Resets())
	}
	if len(chip.configStream) != 0 {
		t.Error("cold reset should drop the config stream")
	}
}
