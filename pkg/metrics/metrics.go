// Prometheus instrumentation for the switch driver
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package metrics exposes the driver's operational counters in
// Prometheus format. Every instrument lives in a private registry so
// tests and multiple driver instances do not collide on the global one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the driver's Prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	// SPITransfers counts bus transfers by access mode ("read",
	// "write").
	SPITransfers *prometheus.CounterVec

	// SPIErrors counts failed bus transfers.
	SPIErrors prometheus.Counter

	// Uploads counts successful static configuration uploads.
	Uploads prometheus.Counter

	// UploadRetries counts upload attempts the chip rejected before a
	// later attempt succeeded or the driver gave up.
	UploadRetries prometheus.Counter

	// UploadFailures counts uploads abandoned after the retry budget.
	UploadFailures prometheus.Counter

	// Resets counts switch core resets by kind ("warm", "cold").
	Resets *prometheus.CounterVec

	// DynamicOps counts dynamic table operations by table and
	// operation ("read", "write", "delete").
	DynamicOps *prometheus.CounterVec

	// DynamicOpDuration observes the latency of dynamic table
	// operations, polling included.
	DynamicOpDuration prometheus.Histogram

	// ConfigValid reports whether the chip currently runs a valid
	// static configuration (1) or not (0).
	ConfigValid prometheus.Gauge

	// FDBEntries tracks the number of FDB entries the driver has
	// installed dynamically.
	FDBEntries prometheus.Gauge

	// ScheduleSlots tracks the number of active gate schedule
	// timeslots across all ports.
	ScheduleSlots prometheus.Gauge

	// PTPOffset reports the last measured offset between the PTP
	// clock and the host clock, in seconds.
	PTPOffset prometheus.Gauge
}

// New creates the driver instruments in a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.SPITransfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sja1105_spi_transfers_total",
		Help: "Total SPI transfers by access mode.",
	}, []string{"mode"})
	m.SPIErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sja1105_spi_errors_total",
		Help: "Total failed SPI transfers.",
	})
	m.Uploads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sja1105_config_uploads_total",
		Help: "Total successful static configuration uploads.",
	})
	m.UploadRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sja1105_config_upload_retries_total",
		Help: "Total static configuration upload attempts the chip rejected.",
	})
	m.UploadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sja1105_config_upload_failures_total",
		Help: "Total uploads abandoned after exhausting the retry budget.",
	})
	m.Resets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sja1105_resets_total",
		Help: "Total switch core resets by kind.",
	}, []string{"kind"})
	m.DynamicOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sja1105_dynamic_ops_total",
		Help: "Total dynamic table operations by table and operation.",
	}, []string{"table", "op"})
	m.DynamicOpDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sja1105_dynamic_op_duration_seconds",
		Help:    "Latency of dynamic table operations, polling included.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
	m.ConfigValid = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sja1105_config_valid",
		Help: "Whether the chip runs a valid static configuration.",
	})
	m.FDBEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sja1105_fdb_entries",
		Help: "FDB entries installed through dynamic reconfiguration.",
	})
	m.ScheduleSlots = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sja1105_schedule_slots",
		Help: "Active gate schedule timeslots across all ports.",
	})
	m.PTPOffset = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sja1105_ptp_offset_seconds",
		Help: "Last measured offset between the PTP clock and the host clock.",
	})

	m.registry.MustRegister(
		m.SPITransfers,
		m.SPIErrors,
		m.Uploads,
		m.UploadRetries,
		m.UploadFailures,
		m.Resets,
		m.DynamicOps,
		m.DynamicOpDuration,
		m.ConfigValid,
		m.FDBEntries,
		m.ScheduleSlots,
		m.PTPOffset,
	)
	return m
}

// Registry returns the registry holding the driver instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
