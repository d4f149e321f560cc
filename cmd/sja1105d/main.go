// sja1105d drives an NXP SJA1105 switch from a YAML configuration file.
// It probes the chip, builds and uploads the static configuration,
// keeps the chip's health visible over a metrics and a status endpoint
// and starts the per-port gate schedules if any are configured.
//
// Usage:
//
//	sja1105d -config /etc/sja1105d.yaml [options]
//
// Options:
//
//	-config string  Switch configuration file (required)
//	-dry-run        Build and validate the configuration, then exit
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sja1105-go/pkg/config"
	"sja1105-go/pkg/device"
	"sja1105-go/pkg/dynamic"
	"sja1105-go/pkg/log"
	"sja1105-go/pkg/metrics"
	"sja1105-go/pkg/ptp"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
	"sja1105-go/pkg/status"
	"sja1105-go/pkg/tas"
)

const statusPollInterval = 10 * time.Second

var logger = log.GetLogger("sja1105d")

// driver owns the chip and the state published over the status API.
// The mutex serializes everything that touches the bus: the poll loop,
// dynamic reads and schedule re-uploads all share one register window.
type driver struct {
	mu      sync.Mutex
	dev     *device.Device
	dyn     *dynamic.Client
	sched   *tas.Scheduler
	built   *static.Config
	metrics *metrics.Metrics

	variant     string
	configValid bool
	fdbEntries  int
}

func (d *driver) Snapshot() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]any{
		"device":         d.dev.Name(),
		"variant":        d.variant,
		"config_valid":   d.configValid,
		"fdb_entries":    d.fdbEntries,
		"schedule_slots": d.built.Tables[static.BlkIdxSchedule].EntryCount(),
	}
}

// The table names the /table endpoint accepts, with a factory for the
// unpacked entry each returns.
var readableTables = map[string]struct {
	kind  static.BlkIdx
	entry func() any
}{
	"l2-lookup":     {static.BlkIdxL2Lookup, func() any { return &static.L2LookupEntry{} }},
	"vlan-lookup":   {static.BlkIdxVlanLookup, func() any { return &static.VlanLookupEntry{} }},
	"l2-forwarding": {static.BlkIdxL2Forwarding, func() any { return &static.L2ForwardingEntry{} }},
	"mac-config":    {static.BlkIdxMACConfig, func() any { return &static.MACConfigEntry{} }},
}

func (d *driver) ReadTable(name string, index int) (any, error) {
	table, ok := readableTables[name]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	start := time.Now()
	entry := table.entry()
	err := d.dyn.Read(table.kind, index, entry)
	d.metrics.DynamicOpDuration.Observe(time.Since(start).Seconds())
	d.metrics.DynamicOps.WithLabelValues(name, "read").Inc()
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (d *driver) SetSchedule(port int, program *tas.GateProgram) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sched == nil {
		return fmt.Errorf("%s has no schedule engine", d.dev.Name())
	}

	if err := d.sched.SetPortSchedule(port, program); err != nil {
		return err
	}
	// The schedule tables only reach the chip through a full upload.
	if err := d.dev.UploadStaticConfig(d.built); err != nil {
		d.metrics.UploadFailures.Inc()
		return err
	}
	d.metrics.Uploads.Inc()
	d.metrics.ScheduleSlots.Set(float64(d.built.Tables[static.BlkIdxSchedule].EntryCount()))
	logger.Info("port %d schedule updated, configuration re-uploaded", port)
	return nil
}

func setupLogging(cfg *config.Config) (func(), error) {
	root := log.New("sja1105")
	root.SetLevel(log.ParseLevel(cfg.Logs.Level))
	if cfg.Logs.Format == "json" {
		root.SetFormat(log.FormatJSON)
	}

	closer := func() {}
	if cfg.Logs.File != "" {
		fileLogger, w, err := log.NewConsoleAndFileLogger("sja1105", log.RotationConfig{
			Filename:   cfg.Logs.File,
			MaxSize:    cfg.Logs.MaxSizeMB,
			MaxBackups: cfg.Logs.MaxBackups,
			MaxAge:     cfg.Logs.MaxAgeDays,
			Compress:   cfg.Logs.Compress,
		})
		if err != nil {
			return nil, err
		}
		fileLogger.SetLevel(log.ParseLevel(cfg.Logs.Level))
		if cfg.Logs.Format == "json" {
			fileLogger.SetFormat(log.FormatJSON)
		}
		root = fileLogger
		closer = func() { w.Close() }
	}

	log.ConfigureFromEnv(root)
	log.SetDefaultLogger(root)
	return closer, nil
}

func openTransport(cfg *config.Config) (spi.Transport, error) {
	if cfg.Device.Spidev != "" {
		devCfg := spi.DefaultDeviceConfig()
		devCfg.Device = cfg.Device.Spidev
		return spi.OpenDevice(devCfg)
	}
	return spi.OpenSocket(cfg.Device.Socket, 5*time.Second)
}

func run() error {
	configFile := flag.String("config", "", "Switch configuration file (required)")
	dryRun := flag.Bool("dry-run", false, "Build and validate the configuration, then exit")
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -config is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	wantID, wantPart, err := config.ParseVariant(cfg.Device.Variant)
	if err != nil {
		return err
	}

	if *dryRun {
		if _, err := cfg.BuildStatic(wantID, wantPart); err != nil {
			return err
		}
		logger.Info("configuration %s builds cleanly for %s", *configFile, cfg.Device.Variant)
		return nil
	}

	transport, err := openTransport(cfg)
	if err != nil {
		return err
	}
	conn := spi.NewConn(transport)
	defer conn.Close()

	dev, err := device.Probe(conn)
	if err != nil {
		return err
	}
	if dev.DeviceID != wantID {
		return fmt.Errorf("config is for %s but the probed chip is %s",
			cfg.Device.Variant, dev.Name())
	}

	built, err := cfg.BuildStatic(dev.DeviceID, dev.PartNr)
	if err != nil {
		return err
	}

	m := metrics.New()
	if err := dev.UploadStaticConfig(built); err != nil {
		m.UploadFailures.Inc()
		return err
	}
	m.Uploads.Inc()
	m.ConfigValid.Set(1)

	dyn, err := dynamic.NewClient(conn, dev.DeviceID)
	if err != nil {
		return err
	}

	// A scheduler bound to the uploaded configuration carries the gate
	// programs forward so the status API can change them at runtime.
	var sched *tas.Scheduler
	if static.SupportsTTEthernet(dev.DeviceID) {
		sched, err = cfg.BuildScheduler(built)
		if err != nil {
			return err
		}
	}

	drv := &driver{
		dev:         dev,
		dyn:         dyn,
		sched:       sched,
		built:       built,
		metrics:     m,
		variant:     cfg.Device.Variant,
		configValid: true,
		fdbEntries:  len(cfg.Switch.FDB),
	}
	m.FDBEntries.Set(float64(len(cfg.Switch.FDB)))
	m.ScheduleSlots.Set(float64(built.Tables[static.BlkIdxSchedule].EntryCount()))

	// The gate schedules run off the standalone clock; give it a base
	// and arm the engine.
	if len(cfg.Switch.Schedules) > 0 {
		clock, err := ptp.NewClock(conn, dev.DeviceID)
		if err != nil {
			return err
		}
		if err := clock.SetTime(time.Now()); err != nil {
			return err
		}
		if err := clock.StartSchedule(); err != nil {
			return err
		}
		logger.Info("gate schedules armed on %d port(s)", len(cfg.Switch.Schedules))
	}

	metricsServer := metrics.NewServer(m, cfg.Metrics.Listen)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.Error("metrics server: %v", err)
		}
	}()

	var updater status.ScheduleUpdater
	if sched != nil {
		updater = drv
	}
	statusServer := status.New(status.Config{
		Addr:      cfg.Status.Listen,
		Source:    drv,
		Tables:    drv,
		Schedules: updater,
	})
	go func() {
		if err := statusServer.Start(); err != nil {
			logger.Error("status server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("sja1105d ready: %s on %s", dev.Name(), transportName(cfg))

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			drv.mu.Lock()
			st, err := dev.GeneralStatus()
			if err != nil {
				drv.mu.Unlock()
				logger.Error("status poll: %v", err)
				continue
			}
			valid := st.ConfigValid()
			drv.configValid = valid
			drv.mu.Unlock()
			if valid {
				m.ConfigValid.Set(1)
			} else {
				m.ConfigValid.Set(0)
				logger.Warn("chip no longer reports a valid configuration")
			}
		case sig := <-sigCh:
			logger.Info("received %v, shutting down", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = metricsServer.Shutdown(ctx)
			cancel()
			_ = statusServer.Stop()
			return nil
		}
	}
}

func transportName(cfg *config.Config) string {
	if cfg.Device.Spidev != "" {
		return cfg.Device.Spidev
	}
	return cfg.Device.Socket
}

func main() {
	if err := run(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
