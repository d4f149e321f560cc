// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package device

import (
	"testing"

	"sja1105-go/pkg/sim"
	"sja1105-go/pkg/sjaerr"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
)

func newSimConn(t *testing.T, deviceID, partNr uint64) (*sim.Chip, *spi.Conn) {
	t.Helper()
	chip, err := sim.NewChip(deviceID, partNr)
	if err != nil {
		t.Fatalf("NewChip: %v", err)
	}
	conn := spi.NewConn(&sim.Loopback{Chip: chip})
	t.Cleanup(func() { conn.Close() })
	return chip, conn
}

// minimalConfig builds the smallest configuration the validity rules
// accept.
func minimalConfig(t *testing.T, deviceID, partNr uint64) *static.Config {
	t.Helper()
	config, err := static.NewConfig(deviceID, partNr)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}

	resize := func(idx static.BlkIdx, count int) {
		t.Helper()
		if err := config.Tables[idx].Resize(count); err != nil {
			t.Fatalf("Resize table %d to %d: %v", idx, count, err)
		}
	}

	resize(static.BlkIdxL2Policing, 1)
	policer := config.Tables[static.BlkIdxL2Policing].Entries[0].(*static.L2PolicingEntry)
	policer.Smax = 65535
	policer.Rate = 64000
	policer.Maxlen = 1518

	resize(static.BlkIdxVlanLookup, 1)
	vlan := config.Tables[static.BlkIdxVlanLookup].Entries[0].(*static.VlanLookupEntry)
	vlan.Vlanid = 1
	vlan.VmembPort = 0x1F
	vlan.VlanBc = 0x1F

	resize(static.BlkIdxL2Forwarding, static.MaxL2ForwardingCount)
	for i := 0; i < 5; i++ {
		fwd := config.Tables[static.BlkIdxL2Forwarding].Entries[i].(*static.L2ForwardingEntry)
		fwd.BcDomain = 0x1F &^ (1 << i)
		fwd.ReachPort = 0x1F &^ (1 << i)
		fwd.FlDomain = 0x1F &^ (1 << i)
	}

	resize(static.BlkIdxMACConfig, static.MaxMACConfigCount)
	for i := 0; i < static.MaxMACConfigCount; i++ {
		mac := config.Tables[static.BlkIdxMACConfig].Entries[i].(*static.MACConfigEntry)
		mac.Speed = 1
		mac.Vlanid = 1
		mac.Ingress = 1
		mac.Egress = 1
		for tc := 0; tc < 8; tc++ {
			mac.Enabled[tc] = 1
			mac.Base[tc] = uint64(tc * 64)
			mac.Top[tc] = uint64(tc*64 + 63)
		}
	}

	resize(static.BlkIdxL2ForwardingParams, 1)
	l2fwdParams := config.Tables[static.BlkIdxL2ForwardingParams].Entries[0].(*static.L2ForwardingParamsEntry)
	l2fwdParams.PartSpc[0] = 929

	resize(static.BlkIdxGeneralParams, 1)
	general := config.Tables[static.BlkIdxGeneralParams].Entries[0].(*static.GeneralParamsEntry)
	general.HostPort = 4
	general.MirrPort = 4
	general.CascPort = 6
	general.Tpid = 0x8100
	general.Tpid2 = 0x88A8

	resize(static.BlkIdxXMIIParams, 1)
	xmii := config.Tables[static.BlkIdxXMIIParams].Entries[0].(*static.XMIIParamsEntry)
	for i := 0; i < 5; i++ {
		xmii.XMIIMode[i] = 2
	}

	return config
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name     string
		deviceID uint64
		partNr   uint64
		want     string
	}{
		{"E", static.DeviceIDE, static.PartNrDontCare, "SJA1105E"},
		{"T", static.DeviceIDT, static.PartNrDontCare, "SJA1105T"},
		{"R", static.DeviceIDPR, static.PartNrR, "SJA1105R"},
		{"S", static.DeviceIDQS, static.PartNrS, "SJA1105S"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, conn := newSimConn(t, tc.deviceID, tc.partNr)
			device, err := Probe(conn)
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if device.DeviceID != tc.deviceID {
				t.Errorf("device id: got %#x, want %#x", device.DeviceID, tc.deviceID)
			}
			if got := device.Name(); got != tc.want {
				t.Errorf("name: got %q, want %q", got, tc.want)
			}
			if static.IsPQRS(tc.deviceID) && device.PartNr != tc.partNr {
				t.Errorf("part nr: got %#x, want %#x", device.PartNr, tc.partNr)
			}
		})
	}
}

// bogusBus answers every integer read with a fixed value.
type bogusBus struct {
	value uint64
}

func (b *bogusBus) SendPackedBuf(mode spi.AccessMode, addr uint64, buf []byte) error {
	return nil
}

func (b *bogusBus) SendInt(mode spi.AccessMode, addr uint64, value *uint64, size int) error {
	*value = b.value
	return nil
}

func (b *bogusBus) SendLongPackedBuf(mode spi.AccessMode, addr uint64, buf []byte) error {
	return nil
}

func TestProbeUnknownDevice(t *testing.T) {
	_, err := Probe(&bogusBus{value: 0x12345678})
	if !sjaerr.Is(err, sjaerr.ErrDeviceUnknown) {
		t.Errorf("probe of unknown chip: got %v, want ErrDeviceUnknown", err)
	}
}

func TestResetRestrictionsET(t *testing.T) {
	_, conn := newSimConn(t, static.DeviceIDE, static.PartNrDontCare)
	device, err := Probe(conn)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}

	if err := device.Reset(&ResetCmd{CarRst: 1}); err == nil {
		t.Error("E/T should reject resets other than warm and cold")
	}
	if err := device.WarmReset(); err != nil {
		t.Errorf("warm reset: %v", err)
	}
	if err := device.ColdReset(); err != nil {
		t.Errorf("cold reset: %v", err)
	}
}

func TestUploadStaticConfig(t *testing.T) {
	tests := []struct {
		name     string
		deviceID uint64
		partNr   uint64
	}{
		{"E", static.DeviceIDE, static.PartNrDontCare},
		{"S", static.DeviceIDQS, static.PartNrS},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chip, conn := newSimConn(t, tc.deviceID, tc.partNr)
			device, err := Probe(conn)
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}

			config := minimalConfig(t, tc.deviceID, tc.partNr)
			if err := device.UploadStaticConfig(config); err != nil {
				t.Fatalf("upload: %v", err)
			}
			if got := chip.Resets(); got != 1 {
				t.Errorf("resets: got %d, want 1", got)
			}

			status, err := device.GeneralStatus()
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if !status.ConfigValid() {
				t.Errorf("chip did not accept the configuration: %+v", status)
			}
		})
	}
}

func TestUploadRetriesOnBadGlobalCRC(t *testing.T) {
	chip, conn := newSimConn(t, static.DeviceIDE, static.PartNrDontCare)
	device, err := Probe(conn)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	chip.FailUploads = 3

	config := minimalConfig(t, static.DeviceIDE, static.PartNrDontCare)
	if err := device.UploadStaticConfig(config); err != nil {
		t.Fatalf("upload with transient failures: %v", err)
	}
	if got := chip.Resets(); got != 4 {
		t.Errorf("resets: got %d, want 4", got)
	}
}

func TestUploadGivesUpAfterRetries(t *testing.T) {
	chip, conn := newSimConn(t, static.DeviceIDE, static.PartNrDontCare)
	device, err := Probe(conn)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	chip.FailUploads = uploadRetries

	config := minimalConfig(t, static.DeviceIDE, static.PartNrDontCare)
	if err := device.UploadStaticConfig(config); !sjaerr.Is(err, sjaerr.ErrDeviceUpload) {
		t.Errorf("exhausted upload: got %v, want ErrDeviceUpload", err)
	}
	if got := chip.Resets(); got != uploadRetries {
		t.Errorf("resets: got %d, want %d", got, uploadRetries)
	}
}

func TestUploadRejectsInvalidConfig(t *testing.T) {
	chip, conn := newSimConn(t, static.DeviceIDE, static.PartNrDontCare)
	device, err := Probe(conn)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}

	// An empty configuration is missing every mandatory table; it must
	// be rejected before the chip is ever touched.
	config, err := static.NewConfig(static.DeviceIDE, static.PartNrDontCare)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if err := device.UploadStaticConfig(config); !sjaerr.Is(err, sjaerr.ErrStaticInvalid) {
		t.Errorf("invalid config: got %v, want ErrStaticInvalid", err)
	}
	if got := chip.Resets(); got != 0 {
		t.Errorf("chip was reset %d times for a rejected config", got)
	}
}

func TestUploadRejectsForeignDeviceID(t *testing.T) {
	_, conn := newSimConn(t, static.DeviceIDE, static.PartNrDontCare)
	device, err := Probe(conn)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}

	config := minimalConfig(t, static.DeviceIDT, static.PartNrDontCare)
	if err := device.UploadStaticConfig(config); !sjaerr.Is(err, sjaerr.ErrStaticDeviceID) {
		t.Errorf("foreign device id: got %v, want ErrStaticDeviceID", err)
	}
}

func TestPrepareUploadDoesNotMutateConfig(t *testing.T) {
	_, conn := newSimConn(t, static.DeviceIDE, static.PartNrDontCare)
	device, err := Probe(conn)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}

	config := minimalConfig(t, static.DeviceIDE, static.PartNrDontCare)
	first, err := device.PrepareUpload(config)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	second, err := device.PrepareUpload(config)
	if err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	if string(first) != string(second) {
		t.Error("prepare is not repeatable; the config was mutated")
	}
}

func TestDeviceIDString(t *testing.T) {
	tests := []struct {
		deviceID uint64
		partNr   uint64
		want     string
	}{
		{static.DeviceIDE, static.PartNrDontCare, "SJA1105E"},
		{static.DeviceIDT, static.PartNrDontCare, "SJA1105T"},
		{static.DeviceIDPR, static.PartNrP, "SJA1105P"},
		{static.DeviceIDPR, static.PartNrR, "SJA1105R"},
		{static.DeviceIDPR, static.PartNrDontCare, "SJA1105P or SJA1105R"},
		{static.DeviceIDQS, static.PartNrQ, "SJA1105Q"},
		{static.DeviceIDQS, static.PartNrS, "SJA1105S"},
		{static.DeviceIDQS, static.PartNrDontCare, "SJA1105Q or SJA1105S"},
		{0xDEADBEEF, static.PartNrDontCare, "None"},
	}
	for _, tc := range tests {
		if got := DeviceIDString(tc.deviceID, tc.partNr); got != tc.want {
			t.Errorf("DeviceIDString(%#x, %#x): got %q, want %q",
				tc.deviceID, tc.partNr, got, tc.want)
		}
	}
}
