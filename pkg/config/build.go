// Static configuration builder
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"fmt"

	"sja1105-go/pkg/dynamic"
	"sja1105-go/pkg/sjaerr"
	"sja1105-go/pkg/static"
	"sja1105-go/pkg/tas"
)

const (
	// frameMemory is the number of 128-byte frame buffers available for
	// the shared L2 memory partitions.
	frameMemory = 929

	// cascPortNone parks the cascade port setting on a port number the
	// chip does not have.
	cascPortNone = 6

	fdbPolyDefault = 0x97
)

// BuildStatic turns the switch section into a complete static
// configuration for the probed chip.
func (c *Config) BuildStatic(deviceID, partNr uint64) (*static.Config, error) {
	cfg, err := static.NewConfig(deviceID, partNr)
	if err != nil {
		return nil, err
	}

	if err := c.buildPolicing(cfg); err != nil {
		return nil, err
	}
	if err := c.buildVlans(cfg); err != nil {
		return nil, err
	}
	if err := c.buildForwarding(cfg); err != nil {
		return nil, err
	}
	if err := c.buildMACs(cfg); err != nil {
		return nil, err
	}
	if err := c.buildFDB(cfg); err != nil {
		return nil, err
	}
	if err := c.buildGeneral(cfg); err != nil {
		return nil, err
	}
	if err := c.buildXMII(cfg); err != nil {
		return nil, err
	}
	if err := c.buildSchedules(cfg); err != nil {
		return nil, err
	}

	if valid := cfg.CheckValid(); valid != static.ConfigOK {
		return nil, sjaerr.StaticInvalidError(valid.String())
	}
	return cfg, nil
}

func (c *Config) buildPolicing(cfg *static.Config) error {
	if err := cfg.Tables[static.BlkIdxL2Policing].Resize(1); err != nil {
		return err
	}
	policer := cfg.Tables[static.BlkIdxL2Policing].Entries[0].(*static.L2PolicingEntry)
	policer.Smax = 65535
	policer.Rate = 64000
	policer.Maxlen = 1518
	return nil
}

// buildVlans writes the VLAN lookup table. The default VLAN 1 always
// exists with full untagged membership so untagged traffic keeps
// flowing on ports no VLAN names.
func (c *Config) buildVlans(cfg *static.Config) error {
	vlans := c.Switch.Vlans
	haveDefault := false
	for _, v := range vlans {
		if v.VID == 1 {
			haveDefault = true
		}
	}
	if !haveDefault {
		vlans = append([]VlanConfig{{
			VID:   1,
			Ports: []int{0, 1, 2, 3, 4},
		}}, vlans...)
	}

	if err := cfg.Tables[static.BlkIdxVlanLookup].Resize(len(vlans)); err != nil {
		return err
	}
	for i, v := range vlans {
		members, err := portMask(v.Ports)
		if err != nil {
			return err
		}
		tagged, err := portMask(v.Tagged)
		if err != nil {
			return err
		}
		entry := cfg.Tables[static.BlkIdxVlanLookup].Entries[i].(*static.VlanLookupEntry)
		entry.Vlanid = uint64(v.VID)
		entry.VmembPort = members | tagged
		entry.VlanBc = members | tagged
		entry.TagPort = tagged
	}
	return nil
}

func (c *Config) buildForwarding(cfg *static.Config) error {
	if err := cfg.Tables[static.BlkIdxL2Forwarding].Resize(static.MaxL2ForwardingCount); err != nil {
		return err
	}
	table := cfg.Tables[static.BlkIdxL2Forwarding]

	// First 5 rows: per-port reachability, everything except the port
	// itself.
	for port := 0; port < numPorts; port++ {
		entry := table.Entries[port].(*static.L2ForwardingEntry)
		entry.BcDomain = 0x1F &^ (1 << port)
		entry.ReachPort = 0x1F &^ (1 << port)
		entry.FlDomain = 0x1F &^ (1 << port)
		for tc := 0; tc < 8; tc++ {
			entry.VlanPmap[tc] = uint64(tc)
		}
	}
	// Rows 5..12: per-priority traffic class selection, identity.
	for tc := 0; tc < 8; tc++ {
		entry := table.Entries[numPorts+tc].(*static.L2ForwardingEntry)
		for port := 0; port < numPorts; port++ {
			entry.VlanPmap[port] = uint64(tc)
		}
	}

	if err := cfg.Tables[static.BlkIdxL2ForwardingParams].Resize(1); err != nil {
		return err
	}
	params := cfg.Tables[static.BlkIdxL2ForwardingParams].Entries[0].(*static.L2ForwardingParamsEntry)
	params.PartSpc[0] = frameMemory
	return nil
}

func (c *Config) buildMACs(cfg *static.Config) error {
	if err := cfg.Tables[static.BlkIdxMACConfig].Resize(static.MaxMACConfigCount); err != nil {
		return err
	}

	for port := 0; port < numPorts; port++ {
		entry := cfg.Tables[static.BlkIdxMACConfig].Entries[port].(*static.MACConfigEntry)
		entry.Speed = 1
		entry.Vlanid = 1
		entry.Ingress = 1
		entry.Egress = 1
		entry.DynLearn = 1
		for tc := 0; tc < 8; tc++ {
			entry.Enabled[tc] = 1
			entry.Base[tc] = uint64(tc * 64)
			entry.Top[tc] = uint64(tc*64 + 63)
		}
	}

	for _, p := range c.Switch.Ports {
		entry := cfg.Tables[static.BlkIdxMACConfig].Entries[p.Index].(*static.MACConfigEntry)
		speed, err := macSpeed(p.Speed)
		if err != nil {
			return err
		}
		entry.Speed = speed
		if p.Learn != nil && !*p.Learn {
			entry.DynLearn = 0
		}
	}
	return nil
}

// buildFDB places the static forwarding entries. On E/T the FDB is a
// hash table and each entry must live in the 4-way bin its (VLAN, MAC)
// key hashes to; on P/Q/R/S entries are fully masked TCAM rows and any
// index works.
func (c *Config) buildFDB(cfg *static.Config) error {
	if err := cfg.Tables[static.BlkIdxL2LookupParams].Resize(1); err != nil {
		return err
	}
	params := cfg.Tables[static.BlkIdxL2LookupParams].Entries[0].(*static.L2LookupParamsEntry)
	if static.IsET(cfg.DeviceID) {
		params.DynTbsz = dynamic.FDBBinSize
		params.Poly = fdbPolyDefault
	} else {
		for i := range params.Maxaddrp {
			params.Maxaddrp[i] = static.MaxL2LookupCount / numPorts
		}
		if len(c.Switch.FDB) > 0 {
			params.UseStatic = 1
		}
	}

	if len(c.Switch.FDB) == 0 {
		return nil
	}

	if err := cfg.Tables[static.BlkIdxL2Lookup].Resize(len(c.Switch.FDB)); err != nil {
		return err
	}

	binUsed := make(map[uint8]int)
	for i, e := range c.Switch.FDB {
		mac, err := parseMAC(e.MAC)
		if err != nil {
			return err
		}
		ports, err := portMask(e.Ports)
		if err != nil {
			return err
		}

		entry := cfg.Tables[static.BlkIdxL2Lookup].Entries[i].(*static.L2LookupEntry)
		entry.Vlanid = uint64(e.VID)
		entry.Macaddr = mac
		entry.Destports = ports

		if static.IsET(cfg.DeviceID) {
			bin := dynamic.FDBHash(params, mac, e.VID)
			way := binUsed[bin]
			if way >= dynamic.FDBBinSize {
				return sjaerr.ConfigValidationError(
					fmt.Sprintf("more than %d static FDB entries hash to bin %d",
						dynamic.FDBBinSize, bin))
			}
			binUsed[bin]++
			entry.Index = uint64(dynamic.FDBIndex(int(bin), way))
		} else {
			entry.MaskMacaddr = 0xFFFFFFFFFFFF
			entry.MaskVlanid = 0xFFF
			entry.Index = uint64(i)
		}
	}
	return nil
}

func (c *Config) buildGeneral(cfg *static.Config) error {
	if err := cfg.Tables[static.BlkIdxGeneralParams].Resize(1); err != nil {
		return err
	}
	general := cfg.Tables[static.BlkIdxGeneralParams].Entries[0].(*static.GeneralParamsEntry)
	general.HostPort = uint64(c.Switch.HostPort)
	general.MirrPort = uint64(c.Switch.HostPort)
	if c.Switch.MirrorPort != nil {
		general.MirrPort = uint64(*c.Switch.MirrorPort)
	}
	general.CascPort = cascPortNone
	if c.Switch.CascadePort != nil {
		general.CascPort = uint64(*c.Switch.CascadePort)
	}
	general.Tpid = 0x8100
	general.Tpid2 = 0x88A8
	return nil
}

func (c *Config) buildXMII(cfg *static.Config) error {
	if err := cfg.Tables[static.BlkIdxXMIIParams].Resize(1); err != nil {
		return err
	}
	xmii := cfg.Tables[static.BlkIdxXMIIParams].Entries[0].(*static.XMIIParamsEntry)

	// RGMII in MAC role unless the port says otherwise.
	for port := 0; port < numPorts; port++ {
		xmii.XMIIMode[port] = 2
	}
	for _, p := range c.Switch.Ports {
		mode, err := xmiiMode(p.XMII)
		if err != nil {
			return err
		}
		xmii.XMIIMode[p.Index] = mode
		if p.Role == "phy" {
			xmii.PhyMac[p.Index] = 1
		}
	}
	return nil
}

func (c *Config) buildSchedules(cfg *static.Config) error {
	if len(c.Switch.Schedules) == 0 {
		return nil
	}
	_, err := c.BuildScheduler(cfg)
	return err
}

// BuildScheduler binds a gate scheduler to cfg and applies the
// configured per-port programs. The returned scheduler owns the four
// schedule tables from here on; callers that change programs at runtime
// keep it alongside the static configuration.
func (c *Config) BuildScheduler(cfg *static.Config) (*tas.Scheduler, error) {
	scheduler, err := tas.NewScheduler(cfg)
	if err != nil {
		return nil, err
	}
	for _, s := range c.Switch.Schedules {
		program := &tas.GateProgram{
			BaseTime:  s.BaseTimeNS,
			CycleTime: s.CycleTimeNS,
		}
		for _, e := range s.Entries {
			program.Entries = append(program.Entries, tas.GateEntry{
				Interval: e.IntervalNS,
				GateMask: e.GateMask,
			})
		}
		if err := scheduler.SetPortSchedule(s.Port, program); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}
