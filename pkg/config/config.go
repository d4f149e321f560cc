// Daemon configuration file handling
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package config loads the daemon's YAML configuration and turns the
// switch section into a static configuration stream for upload.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sja1105-go/pkg/sjaerr"
	"sja1105-go/pkg/static"
)

// Config is the top-level daemon configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Logs    LogConfig     `yaml:"logs"`
	Metrics MetricsConfig `yaml:"metrics"`
	Status  StatusConfig  `yaml:"status"`
	Switch  SwitchConfig  `yaml:"switch"`
}

// DeviceConfig selects how the chip is reached. Exactly one of Spidev
// and Socket must be set; Socket connects to a chip simulator instead
// of real hardware.
type DeviceConfig struct {
	Spidev  string `yaml:"spidev"`
	Socket  string `yaml:"socket"`
	Variant string `yaml:"variant"`
}

// LogConfig configures the daemon log file.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// StatusConfig configures the status API endpoint.
type StatusConfig struct {
	Listen string `yaml:"listen"`
}

// SwitchConfig describes the desired switch state.
type SwitchConfig struct {
	HostPort    int  `yaml:"hostPort"`
	MirrorPort  *int `yaml:"mirrorPort"`
	CascadePort *int `yaml:"cascadePort"`

	Ports     []PortConfig     `yaml:"ports"`
	Vlans     []VlanConfig     `yaml:"vlans"`
	FDB       []FDBConfig      `yaml:"fdb"`
	Schedules []ScheduleConfig `yaml:"schedules"`
}

// PortConfig configures one front port's MAC and xMII pins.
type PortConfig struct {
	Index int    `yaml:"index"`
	XMII  string `yaml:"xmii"`
	Role  string `yaml:"role"`
	Speed int    `yaml:"speed"`
	// Learn enables address learning; defaults to true.
	Learn *bool `yaml:"learn"`
}

// VlanConfig is one VLAN's port membership.
type VlanConfig struct {
	VID    uint16 `yaml:"vid"`
	Ports  []int  `yaml:"ports"`
	Tagged []int  `yaml:"tagged"`
}

// FDBConfig is one static forwarding database entry.
type FDBConfig struct {
	MAC   string `yaml:"mac"`
	VID   uint16 `yaml:"vid"`
	Ports []int  `yaml:"ports"`
}

// ScheduleConfig is one port's gate program for the time-aware shaper.
type ScheduleConfig struct {
	Port        int             `yaml:"port"`
	BaseTimeNS  uint64          `yaml:"baseTimeNs"`
	CycleTimeNS uint64          `yaml:"cycleTimeNs"`
	Entries     []GateEntryYAML `yaml:"entries"`
}

// GateEntryYAML is one timeslot of a gate program.
type GateEntryYAML struct {
	IntervalNS uint64 `yaml:"intervalNs"`
	GateMask   uint64 `yaml:"gateMask"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sjaerr.ConfigParseError(path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, sjaerr.ConfigParseError(path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logs.MaxSizeMB == 0 {
		c.Logs.MaxSizeMB = 10
	}
	if c.Logs.MaxBackups == 0 {
		c.Logs.MaxBackups = 5
	}
	if c.Logs.Level == "" {
		c.Logs.Level = "INFO"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9105"
	}
	if c.Status.Listen == "" {
		c.Status.Listen = ":8105"
	}
	for i := range c.Switch.Ports {
		p := &c.Switch.Ports[i]
		if p.Role == "" {
			p.Role = "mac"
		}
		if p.Speed == 0 {
			p.Speed = 1000
		}
	}
}

// Validate checks the configuration for consistency. The hardware-level
// validity of the resulting static configuration is checked separately
// when it is built.
func (c *Config) Validate() error {
	if c.Device.Spidev == "" && c.Device.Socket == "" {
		return sjaerr.ConfigOptionError("device", "one of spidev or socket is required")
	}
	if c.Device.Spidev != "" && c.Device.Socket != "" {
		return sjaerr.ConfigOptionError("device", "spidev and socket are mutually exclusive")
	}
	if c.Device.Variant != "" {
		if _, _, err := ParseVariant(c.Device.Variant); err != nil {
			return err
		}
	}

	if c.Switch.HostPort < 0 || c.Switch.HostPort >= numPorts {
		return sjaerr.ConfigOptionError("switch.hostPort", "must name one of the 5 ports")
	}
	if c.Switch.MirrorPort != nil && (*c.Switch.MirrorPort < 0 || *c.Switch.MirrorPort >= numPorts) {
		return sjaerr.ConfigOptionError("switch.mirrorPort", "must name one of the 5 ports")
	}

	seen := make(map[int]bool)
	for _, p := range c.Switch.Ports {
		if p.Index < 0 || p.Index >= numPorts {
			return sjaerr.ConfigOptionError("switch.ports.index", "must name one of the 5 ports")
		}
		if seen[p.Index] {
			return sjaerr.ConfigOptionError("switch.ports",
				fmt.Sprintf("port %d configured twice", p.Index))
		}
		seen[p.Index] = true
		if _, err := xmiiMode(p.XMII); err != nil {
			return err
		}
		if p.Role != "mac" && p.Role != "phy" {
			return sjaerr.ConfigOptionError("switch.ports.role", "must be 'mac' or 'phy'")
		}
		if _, err := macSpeed(p.Speed); err != nil {
			return err
		}
	}

	for _, v := range c.Switch.Vlans {
		if v.VID >= 4096 {
			return sjaerr.ConfigOptionError("switch.vlans.vid", "must be below 4096")
		}
		if _, err := portMask(v.Ports); err != nil {
			return err
		}
		if _, err := portMask(v.Tagged); err != nil {
			return err
		}
	}

	for _, e := range c.Switch.FDB {
		if _, err := parseMAC(e.MAC); err != nil {
			return err
		}
		if e.VID >= 4096 {
			return sjaerr.ConfigOptionError("switch.fdb.vid", "must be below 4096")
		}
		if _, err := portMask(e.Ports); err != nil {
			return err
		}
	}

	for _, s := range c.Switch.Schedules {
		if s.Port < 0 || s.Port >= numPorts {
			return sjaerr.ConfigOptionError("switch.schedules.port", "must name one of the 5 ports")
		}
	}

	return nil
}

const numPorts = 5

// ParseVariant maps a chip name like "SJA1105T" to its device and part
// identifiers.
func ParseVariant(name string) (deviceID, partNr uint64, err error) {
	switch strings.ToUpper(name) {
	case "SJA1105E":
		return static.DeviceIDE, static.PartNrDontCare, nil
	case "SJA1105T":
		return static.DeviceIDT, static.PartNrDontCare, nil
	case "SJA1105P":
		return static.DeviceIDPR, static.PartNrP, nil
	case "SJA1105R":
		return static.DeviceIDPR, static.PartNrR, nil
	case "SJA1105Q":
		return static.DeviceIDQS, static.PartNrQ, nil
	case "SJA1105S":
		return static.DeviceIDQS, static.PartNrS, nil
	default:
		return 0, 0, sjaerr.ConfigOptionError("device.variant",
			fmt.Sprintf("unknown chip variant '%s'", name))
	}
}

func xmiiMode(name string) (uint64, error) {
	switch strings.ToLower(name) {
	case "mii":
		return 0, nil
	case "rmii":
		return 1, nil
	case "rgmii":
		return 2, nil
	case "sgmii":
		return 3, nil
	default:
		return 0, sjaerr.ConfigOptionError("switch.ports.xmii",
			fmt.Sprintf("unknown xMII mode '%s'", name))
	}
}

// macSpeed maps Mbps to the MAC configuration speed encoding.
func macSpeed(mbps int) (uint64, error) {
	switch mbps {
	case 1000:
		return 1, nil
	case 100:
		return 2, nil
	case 10:
		return 3, nil
	default:
		return 0, sjaerr.ConfigOptionError("switch.ports.speed",
			fmt.Sprintf("unsupported speed %d, want 10, 100 or 1000", mbps))
	}
}

func portMask(ports []int) (uint64, error) {
	var mask uint64
	for _, p := range ports {
		if p < 0 || p >= numPorts {
			return 0, sjaerr.ConfigOptionError("ports",
				fmt.Sprintf("port %d out of range", p))
		}
		mask |= 1 << p
	}
	return mask, nil
}

func parseMAC(s string) (uint64, error) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return 0, sjaerr.ConfigOptionError("mac",
			fmt.Sprintf("invalid MAC address '%s'", s))
	}
	var mac uint64
	for _, b := range hw {
		mac = mac<<8 | uint64(b)
	}
	return mac, nil
}
