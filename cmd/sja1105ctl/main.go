// sja1105ctl inspects and pokes a live SJA1105 switch over SPI.
//
// Usage:
//
//	sja1105ctl [-spidev path | -socket path] <command> [args]
//
// Commands:
//
//	build -config file -o blob   Build a packed configuration blob offline
//	inspect <blob>               Dump the tables of a packed blob
//	validate <blob>              Check a packed blob's framing and semantics
//	probe                        Identify the chip
//	status                       Print the general status area
//	reset warm|cold              Trigger a switch core or chip reset
//	upload -config file          Build and upload a static configuration
//	fdb read <index>             Read an FDB entry by table index
//	fdb write <mac> <vid> <portmask> <index>
//	                             Install an FDB entry at a table index
//	fdb del <index>              Delete an FDB entry
//	fdb hash <mac> <vid>         Print the bin and candidate indices
//	ptp get                      Read the PTP clock
//	ptp set                      Set the PTP clock to the host clock
//	ptp adjust <duration>        Step the PTP clock by a signed duration
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"sja1105-go/pkg/config"
	"sja1105-go/pkg/device"
	"sja1105-go/pkg/dynamic"
	"sja1105-go/pkg/packing"
	"sja1105-go/pkg/ptp"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: sja1105ctl [-spidev path | -socket path] <command> [args]\n")
	fmt.Fprintf(os.Stderr, "commands: build, inspect, validate, probe, status, reset, upload, fdb, ptp\n")
	os.Exit(2)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sja1105ctl: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	spidev := flag.String("spidev", "", "spidev device path (e.g. /dev/spidev0.1)")
	socket := flag.String("socket", "", "Unix socket path of a simulated chip")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	// The blob commands work offline, without a transport.
	switch args[0] {
	case "build":
		if err := cmdBuild(args[1:]); err != nil {
			fatal("%v", err)
		}
		return
	case "inspect":
		if err := cmdInspect(args[1:]); err != nil {
			fatal("%v", err)
		}
		return
	case "validate":
		if err := cmdValidate(args[1:]); err != nil {
			fatal("%v", err)
		}
		return
	}

	conn := open(*spidev, *socket)
	defer conn.Close()

	var err error
	switch args[0] {
	case "probe":
		err = cmdProbe(conn)
	case "status":
		err = cmdStatus(conn)
	case "reset":
		err = cmdReset(conn, args[1:])
	case "upload":
		err = cmdUpload(conn, args[1:])
	case "fdb":
		err = cmdFDB(conn, args[1:])
	case "ptp":
		err = cmdPTP(conn, args[1:])
	default:
		usage()
	}
	if err != nil {
		fatal("%v", err)
	}
}

func open(spidev, socket string) *spi.Conn {
	var transport spi.Transport
	var err error
	switch {
	case spidev != "" && socket != "":
		fatal("-spidev and -socket are mutually exclusive")
	case spidev != "":
		cfg := spi.DefaultDeviceConfig()
		cfg.Device = spidev
		transport, err = spi.OpenDevice(cfg)
	case socket != "":
		transport, err = spi.OpenSocket(socket, 5*time.Second)
	default:
		fatal("one of -spidev or -socket is required")
	}
	if err != nil {
		fatal("%v", err)
	}
	return spi.NewConn(transport)
}

func cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configFile := fs.String("config", "", "Switch configuration file (required)")
	out := fs.String("o", "", "Output blob path (required)")
	fs.Parse(args)
	if *configFile == "" || *out == "" {
		return errors.New("build requires -config and -o")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	deviceID, partNr, err := config.ParseVariant(cfg.Device.Variant)
	if err != nil {
		return err
	}
	built, err := cfg.BuildStatic(deviceID, partNr)
	if err != nil {
		return err
	}

	// An unbound device packs and CRC-patches without touching a bus.
	dev, err := device.New(nil, deviceID, partNr)
	if err != nil {
		return err
	}
	blob, err := dev.PrepareUpload(built)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, blob, 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes for %s to %s\n", len(blob), dev.Name(), *out)
	return nil
}

// loadBlob unpacks a packed configuration stream. P/R and Q/S share a
// device id, so the variant flag disambiguates them.
func loadBlob(path, variant string) (*static.Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(blob) < 4 {
		return nil, errors.New("blob too short for a device id")
	}

	var deviceID, partNr uint64
	if err := packing.UnpackFrom(blob[:4], &deviceID, 31, 0, packing.QuirkLSW32IsFirst); err != nil {
		return nil, err
	}
	partNr = static.PartNrDontCare
	if variant != "" {
		var wantID uint64
		if wantID, partNr, err = config.ParseVariant(variant); err != nil {
			return nil, err
		}
		if wantID != deviceID {
			return nil, fmt.Errorf("blob device id %#x does not match variant %s", deviceID, variant)
		}
	} else if static.IsPQRS(deviceID) {
		return nil, errors.New("second-generation blobs need -variant (P/R and Q/S share a device id)")
	}

	cfg, err := static.NewConfig(deviceID, partNr)
	if err != nil {
		return nil, err
	}
	if v := cfg.Unpack(blob); v != static.ConfigOK {
		return nil, fmt.Errorf("blob does not parse: %s", v)
	}
	return cfg, nil
}

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	variant := fs.String("variant", "", "Chip variant (needed for P/Q/R/S blobs)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("inspect takes a blob path")
	}

	cfg, err := loadBlob(fs.Arg(0), *variant)
	if err != nil {
		return err
	}
	fmt.Printf("device id: %#x\n", cfg.DeviceID)
	for kind := static.BlkIdx(0); kind < static.BlkIdxMax; kind++ {
		table := &cfg.Tables[kind]
		if table.EntryCount() == 0 {
			continue
		}
		fmt.Printf("%-28s %4d entries\n", kind, table.EntryCount())
	}
	fmt.Printf("validity: %s\n", cfg.CheckValid())
	return nil
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	variant := fs.String("variant", "", "Chip variant (needed for P/Q/R/S blobs)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("validate takes a blob path")
	}

	cfg, err := loadBlob(fs.Arg(0), *variant)
	if err != nil {
		return err
	}
	if v := cfg.CheckValid(); v != static.ConfigOK {
		return fmt.Errorf("invalid configuration: %s", v)
	}
	fmt.Println("configuration is valid")
	return nil
}

func cmdProbe(conn *spi.Conn) error {
	dev, err := device.Probe(conn)
	if err != nil {
		return err
	}
	fmt.Printf("%s (device id %#x)\n", dev.Name(), dev.DeviceID)
	return nil
}

func cmdStatus(conn *spi.Conn) error {
	dev, err := device.Probe(conn)
	if err != nil {
		return err
	}
	st, err := dev.GeneralStatus()
	if err != nil {
		return err
	}
	fmt.Printf("device:       %s\n", dev.Name())
	fmt.Printf("config valid: %v (configs=%d crcchkl=%d crcchkg=%d ids=%d)\n",
		st.ConfigValid(), st.Configs, st.Crcchkl, st.Crcchkg, st.Ids)
	fmt.Printf("free buffers: %d (empty=%d)\n", st.Buffers, st.Emptys)
	if st.Hashconfs != 0 {
		fmt.Printf("fdb hash conflict: mac %012x vid %d\n",
			st.Macaddhcu<<16|st.Macaddhcl, st.Vlanidhc)
	}
	if st.Ramparerrl != 0 || st.Ramparerru != 0 {
		fmt.Printf("ram parity errors: %#x/%#x\n", st.Ramparerru, st.Ramparerrl)
	}
	return nil
}

func cmdReset(conn *spi.Conn, args []string) error {
	if len(args) != 1 {
		return errors.New("reset takes one argument: warm or cold")
	}
	dev, err := device.Probe(conn)
	if err != nil {
		return err
	}
	switch args[0] {
	case "warm":
		return dev.WarmReset()
	case "cold":
		return dev.ColdReset()
	}
	return fmt.Errorf("unknown reset kind %q", args[0])
}

func cmdUpload(conn *spi.Conn, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configFile := fs.String("config", "", "Switch configuration file (required)")
	fs.Parse(args)
	if *configFile == "" {
		return errors.New("upload requires -config")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	dev, err := device.Probe(conn)
	if err != nil {
		return err
	}
	built, err := cfg.BuildStatic(dev.DeviceID, dev.PartNr)
	if err != nil {
		return err
	}
	if err := dev.UploadStaticConfig(built); err != nil {
		return err
	}
	fmt.Printf("uploaded static configuration to %s\n", dev.Name())
	return nil
}

func cmdFDB(conn *spi.Conn, args []string) error {
	if len(args) == 0 {
		return errors.New("fdb takes a subcommand: read, write, del or hash")
	}
	dev, err := device.Probe(conn)
	if err != nil {
		return err
	}
	client, err := dynamic.NewClient(conn, dev.DeviceID)
	if err != nil {
		return err
	}

	switch args[0] {
	case "read":
		if len(args) != 2 {
			return errors.New("fdb read takes an index")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		entry := &static.L2LookupEntry{}
		if err := client.Read(static.BlkIdxL2Lookup, index, entry); err != nil {
			return err
		}
		fmt.Printf("index %d: mac %012x vid %d ports %#02x enfport %d\n",
			index, entry.Macaddr, entry.Vlanid, entry.Destports, entry.Enfport)
		return nil

	case "write":
		if len(args) != 5 {
			return errors.New("fdb write takes mac, vid, portmask and index")
		}
		mac, err := parseMAC(args[1])
		if err != nil {
			return err
		}
		vid, err := strconv.ParseUint(args[2], 0, 12)
		if err != nil {
			return err
		}
		ports, err := strconv.ParseUint(args[3], 0, 5)
		if err != nil {
			return err
		}
		index, err := strconv.Atoi(args[4])
		if err != nil {
			return err
		}
		entry := &static.L2LookupEntry{
			Macaddr:   mac,
			Vlanid:    vid,
			Destports: ports,
			Index:     uint64(index),
		}
		if static.IsPQRS(dev.DeviceID) {
			entry.MaskMacaddr = 0xFFFFFFFFFFFF
			entry.MaskVlanid = 0xFFF
		}
		return client.Write(static.BlkIdxL2Lookup, index, entry, true)

	case "del":
		if len(args) != 2 {
			return errors.New("fdb del takes an index")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return client.Write(static.BlkIdxL2Lookup, index, nil, false)

	case "hash":
		if len(args) != 3 {
			return errors.New("fdb hash takes a mac and a vid")
		}
		mac, err := parseMAC(args[1])
		if err != nil {
			return err
		}
		vid, err := strconv.ParseUint(args[2], 0, 12)
		if err != nil {
			return err
		}
		// The poly and the shared-learning flag come from the running
		// configuration; read them back through the dynamic interface.
		params := &static.L2LookupParamsEntry{}
		if err := client.Read(static.BlkIdxL2LookupParams, 0, params); err != nil {
			return fmt.Errorf("cannot read fdb parameters: %w", err)
		}
		bin := dynamic.FDBHash(params, mac, uint16(vid))
		fmt.Printf("bin %d, candidate indices:", bin)
		for way := 0; way < dynamic.FDBBinSize; way++ {
			fmt.Printf(" %d", dynamic.FDBIndex(int(bin), way))
		}
		fmt.Println()
		return nil
	}
	return fmt.Errorf("unknown fdb subcommand %q", args[0])
}

func cmdPTP(conn *spi.Conn, args []string) error {
	if len(args) == 0 {
		return errors.New("ptp takes a subcommand: get, set or adjust")
	}
	dev, err := device.Probe(conn)
	if err != nil {
		return err
	}
	clock, err := ptp.NewClock(conn, dev.DeviceID)
	if err != nil {
		return err
	}

	switch args[0] {
	case "get":
		t, err := clock.Time()
		if err != nil {
			return err
		}
		offset := time.Since(t)
		fmt.Printf("ptp clock: %s (host offset %v)\n", t.Format(time.RFC3339Nano), offset)
		return nil
	case "set":
		return clock.SetTime(time.Now())
	case "adjust":
		if len(args) != 2 {
			return errors.New("ptp adjust takes a signed duration (e.g. -1.5ms)")
		}
		delta, err := time.ParseDuration(args[1])
		if err != nil {
			return err
		}
		return clock.AdjustTime(delta)
	}
	return fmt.Errorf("unknown ptp subcommand %q", args[0])
}

func parseMAC(s string) (uint64, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return 0, err
	}
	if len(hw) != 6 {
		return 0, fmt.Errorf("%q is not a 48-bit mac address", s)
	}
	var mac uint64
	for _, b := range hw {
		mac = mac<<8 | uint64(b)
	}
	return mac, nil
}
