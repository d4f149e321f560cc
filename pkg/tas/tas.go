// Time-aware shaper: per-port gate programs merged into the shared
// schedule tables
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package tas builds the egress gate schedule. The hardware holds one
// global linear array of timeslots; up to 8 execution threads
// (sub-schedules) iterate contiguous ranges of it cyclically. Each port
// with a gate program gets one sub-schedule: an entry point naming where
// its range starts and a phase delta, and a per-thread end index in the
// schedule parameters. Every change to any port's program rebuilds the
// shared tables from scratch, because the slot addresses of every other
// port shift.
//
// The hardware performs no integrity checking across sub-schedules: two
// gate events landing on the same tick make the switch misbehave, so new
// programs are checked against every established one before they are
// accepted.
package tas

import (
	"sja1105-go/pkg/log"
	"sja1105-go/pkg/sjaerr"
	"sja1105-go/pkg/static"
)

const (
	// NumPorts is the switch port count.
	NumPorts = 5
	// NumTC is the number of traffic classes (egress queues) per port.
	NumTC = 8
	// GateMask covers all traffic classes.
	GateMask = 1<<NumTC - 1

	// TickNS is the schedule tick length: 25 oscillator cycles.
	TickNS = 200
	// MaxDelta is the first slot duration (in ticks) the hardware
	// cannot represent.
	MaxDelta = 1 << 19
)

// Schedule clock sources.
const (
	ClkSrcDisabled   = 0
	ClkSrcStandalone = 1
	ClkSrcAS6802     = 2
	ClkSrcPTP        = 3
)

var logger = log.GetLogger("tas")

// Ticks converts nanoseconds to schedule ticks, truncating.
func Ticks(ns uint64) uint64 {
	return ns / TickNS
}

// GateEntry is one timeslot of a port's gate program: for Interval
// nanoseconds, exactly the traffic classes in GateMask may transmit.
type GateEntry struct {
	Interval uint64
	GateMask uint64
}

// GateProgram is one port's cyclic gate schedule request. CycleTime may
// be zero, in which case it is derived as the sum of the intervals.
type GateProgram struct {
	BaseTime  uint64
	CycleTime uint64
	// Cycle time extension (IEEE 802.1Q annex Q) is not supported by
	// the hardware.
	CycleTimeExtension uint64
	Entries            []GateEntry
}

func (p *GateProgram) clone() *GateProgram {
	clone := *p
	clone.Entries = append([]GateEntry(nil), p.Entries...)
	return &clone
}

// Scheduler owns the per-port gate programs and keeps the schedule
// tables of one static configuration in sync with them. Callers
// redeploy the configuration after every successful change.
type Scheduler struct {
	config *static.Config
	ports  [NumPorts]*GateProgram
}

// NewScheduler binds a scheduler to a configuration. Only the T and Q/S
// variants carry the scheduling engine.
func NewScheduler(config *static.Config) (*Scheduler, error) {
	if !static.SupportsTTEthernet(config.DeviceID) {
		return nil, sjaerr.TASLimitsError("chip variant has no scheduling engine")
	}
	return &Scheduler{config: config}, nil
}

// PortSchedule returns the active program of a port, or nil.
func (s *Scheduler) PortSchedule(port int) *GateProgram {
	if port < 0 || port >= NumPorts {
		return nil
	}
	return s.ports[port]
}

// SetPortSchedule installs a gate program on a port, or removes the
// active one when program is nil. A configured port must be cleared
// before it can be reconfigured. The shared schedule tables are rebuilt
// on success.
func (s *Scheduler) SetPortSchedule(port int, program *GateProgram) error {
	if port < 0 || port >= NumPorts {
		return sjaerr.TASLimitsError("port out of range")
	}

	if program == nil {
		if s.ports[port] == nil {
			return sjaerr.TASLimitsError("port has no schedule to remove").SetPort(port)
		}
		s.ports[port] = nil
		return s.rebuild()
	}
	if s.ports[port] != nil {
		return sjaerr.TASLimitsError("port already has a schedule; remove it first").SetPort(port)
	}

	if program.CycleTimeExtension != 0 {
		return sjaerr.TASLimitsError("cycle time extension is not supported").SetPort(port)
	}
	// The schedule engine starts when the clock passes the base time; a
	// base time of zero ticks never triggers it.
	if Ticks(program.BaseTime) == 0 {
		return sjaerr.TASLimitsError("a base time of zero is not hardware-allowed").SetPort(port)
	}
	if len(program.Entries) == 0 {
		return sjaerr.TASLimitsError("a gate program needs at least one entry").SetPort(port)
	}

	candidate, err := normalize(program)
	if err != nil {
		return err
	}

	for other, established := range s.ports {
		if established == nil {
			continue
		}
		if CheckConflict(established, candidate) {
			return sjaerr.TASConflictError(port,
				"gate events collide with the schedule of another port").
				SetContext("other_port", other)
		}
	}

	s.ports[port] = candidate
	if err := s.rebuild(); err != nil {
		s.ports[port] = nil
		return err
	}
	logger.Port(port).Info("installed gate program: %d entries, cycle time %d ns",
		len(candidate.Entries), candidate.CycleTime)
	return nil
}

// normalize copies the program and derives a missing cycle time as the
// sum of the intervals, validating each interval's tick representation
// along the way.
func normalize(program *GateProgram) (*GateProgram, error) {
	clone := program.clone()
	if clone.CycleTime != 0 {
		return clone, nil
	}

	for i, entry := range clone.Entries {
		ticks := Ticks(entry.Interval)
		if ticks == 0 {
			return nil, sjaerr.TASLimitsError("gate interval too short").
				SetContext("entry", i)
		}
		if ticks >= MaxDelta {
			return nil, sjaerr.TASLimitsError("gate interval too long").
				SetContext("entry", i)
		}
		clone.CycleTime += entry.Interval
	}
	return clone, nil
}

// CheckConflict reports whether two gate programs can ever fire a gate
// event on the same tick. Programs whose cycle times are not integer
// multiples of one another always conflict eventually. Otherwise both
// base times are reduced modulo their own cycle time, and every periodic
// occurrence of every event boundary of one program is compared against
// every occurrence of the other within one common observation window.
// Exhaustive on purpose: entry and repetition counts are small, and the
// enumeration is trivially correct. The check is symmetric.
func CheckConflict(a, b *GateProgram) bool {
	maxCycle, minCycle := a.CycleTime, b.CycleTime
	if maxCycle < minCycle {
		maxCycle, minCycle = minCycle, maxCycle
	}
	if minCycle == 0 || maxCycle%minCycle != 0 {
		return true
	}

	rbt1 := a.BaseTime % a.CycleTime
	rbt2 := b.BaseTime % b.CycleTime
	stopTime := maxCycle + rbt1
	if rbt2 > rbt1 {
		stopTime = maxCycle + rbt2
	}

	delta1 := uint64(0)
	for i := range a.Entries {
		delta2 := uint64(0)
		for j := range b.Entries {
			for t1 := rbt1 + delta1; t1 <= stopTime; t1 += a.CycleTime {
				for t2 := rbt2 + delta2; t2 <= stopTime; t2 += b.CycleTime {
					if t1 == t2 {
						logger.Warn("gate entry %d collides with entry %d", j, i)
						return true
					}
				}
			}
			delta2 += b.Entries[j].Interval
		}
		delta1 += a.Entries[i].Interval
	}
	return false
}

// rebuild regenerates the four schedule tables from the active
// programs. With no active program all four end up empty.
func (s *Scheduler) rebuild() error {
	tables := []static.BlkIdx{
		static.BlkIdxSchedule,
		static.BlkIdxScheduleEntryPoints,
		static.BlkIdxScheduleParams,
		static.BlkIdxScheduleEntryPointsParams,
	}
	for _, idx := range tables {
		if err := s.config.Tables[idx].Resize(0); err != nil {
			return sjaerr.Wrap(err, sjaerr.ErrTASLimits, "cannot clear schedule tables")
		}
	}

	numEntries, numCycles := 0, 0
	for _, program := range s.ports {
		if program != nil {
			numEntries += len(program.Entries)
			numCycles++
		}
	}
	if numCycles == 0 {
		return nil
	}

	if err := s.config.Tables[static.BlkIdxSchedule].Resize(numEntries); err != nil {
		return sjaerr.Wrap(err, sjaerr.ErrTASLimits, "schedule table overflow")
	}
	if err := s.config.Tables[static.BlkIdxScheduleEntryPoints].Resize(numCycles); err != nil {
		return sjaerr.Wrap(err, sjaerr.ErrTASLimits, "entry points table overflow")
	}
	if err := s.config.Tables[static.BlkIdxScheduleParams].Resize(static.MaxScheduleParamsCount); err != nil {
		return sjaerr.Wrap(err, sjaerr.ErrTASLimits, "schedule params table overflow")
	}
	if err := s.config.Tables[static.BlkIdxScheduleEntryPointsParams].Resize(static.MaxScheduleEntryPointsParamsCount); err != nil {
		return sjaerr.Wrap(err, sjaerr.ErrTASLimits, "entry points params table overflow")
	}

	epParams := s.config.Tables[static.BlkIdxScheduleEntryPointsParams].
		Entries[0].(*static.ScheduleEntryPointsParamsEntry)
	epParams.Clksrc = ClkSrcStandalone
	epParams.Actsubsch = uint64(numCycles - 1)

	var subscheind [8]uint64
	cycle, k := 0, 0
	for port, program := range s.ports {
		if program == nil {
			continue
		}

		scheduleStart := k
		scheduleEnd := k + len(program.Entries) - 1

		entryPoint := s.config.Tables[static.BlkIdxScheduleEntryPoints].
			Entries[cycle].(*static.ScheduleEntryPointsEntry)
		entryPoint.Subschindx = uint64(cycle)
		entryPoint.Delta = Ticks(program.BaseTime)
		entryPoint.Address = uint64(scheduleStart)

		// Unused threads must point at the last valid end index, never
		// before it.
		for i := cycle; i < 8; i++ {
			subscheind[i] = uint64(scheduleEnd)
		}

		for _, entry := range program.Entries {
			slot := s.config.Tables[static.BlkIdxSchedule].Entries[k].(*static.ScheduleEntry)
			slot.Delta = Ticks(entry.Interval)
			slot.Destports = 1 << port
			slot.ResmediaEn = 1
			// The hardware wants the classes whose transmission is
			// blocked, not the open gates.
			slot.Resmedia = GateMask &^ entry.GateMask
			k++
		}
		cycle++
	}

	params := s.config.Tables[static.BlkIdxScheduleParams].
		Entries[0].(*static.ScheduleParamsEntry)
	params.Subscheind = subscheind

	return nil
}
