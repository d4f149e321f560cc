// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tas

import (
	"testing"

	"sja1105-go/pkg/sjaerr"
	"sja1105-go/pkg/static"
)

func newScheduler(t *testing.T) (*Scheduler, *static.Config) {
	t.Helper()
	config, err := static.NewConfig(static.DeviceIDT, static.PartNrDontCare)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	scheduler, err := NewScheduler(config)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return scheduler, config
}

func mustSet(t *testing.T, s *Scheduler, port int, program *GateProgram) {
	t.Helper()
	if err := s.SetPortSchedule(port, program); err != nil {
		t.Fatalf("SetPortSchedule(%d): %v", port, err)
	}
}

func TestSchedulerRejectsVariantsWithoutEngine(t *testing.T) {
	config, err := static.NewConfig(static.DeviceIDE, static.PartNrDontCare)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if _, err := NewScheduler(config); !sjaerr.Is(err, sjaerr.ErrTASLimits) {
		t.Errorf("scheduler on E: got %v, want ErrTASLimits", err)
	}
}

// Two active ports must end up as two sub-schedules slicing one linear
// slot array: contiguous, gap-free ranges in port order, one slot per
// gate entry.
func TestRebuildPartitionsSchedule(t *testing.T) {
	s, config := newScheduler(t)

	mustSet(t, s, 1, &GateProgram{
		BaseTime: 200000,
		Entries: []GateEntry{
			{Interval: 100000, GateMask: 0x01},
			{Interval: 100000, GateMask: 0x02},
			{Interval: 200000, GateMask: 0xFF},
		},
	})
	mustSet(t, s, 3, &GateProgram{
		BaseTime: 450000,
		Entries: []GateEntry{
			{Interval: 300000, GateMask: 0x80},
			{Interval: 100000, GateMask: 0x00},
		},
	})

	schedule := config.Tables[static.BlkIdxSchedule]
	if got := schedule.EntryCount(); got != 5 {
		t.Fatalf("schedule slots: got %d, want 5", got)
	}

	points := config.Tables[static.BlkIdxScheduleEntryPoints]
	if got := points.EntryCount(); got != 2 {
		t.Fatalf("entry points: got %d, want 2", got)
	}
	first := points.Entries[0].(*static.ScheduleEntryPointsEntry)
	second := points.Entries[1].(*static.ScheduleEntryPointsEntry)
	if first.Subschindx != 0 || first.Address != 0 || first.Delta != Ticks(200000) {
		t.Errorf("port 1 entry point: %+v", first)
	}
	if second.Subschindx != 1 || second.Address != 3 || second.Delta != Ticks(450000) {
		t.Errorf("port 3 entry point: %+v", second)
	}

	params := config.Tables[static.BlkIdxScheduleParams].
		Entries[0].(*static.ScheduleParamsEntry)
	want := [8]uint64{2, 4, 4, 4, 4, 4, 4, 4}
	if params.Subscheind != want {
		t.Errorf("subscheind: got %v, want %v", params.Subscheind, want)
	}

	epParams := config.Tables[static.BlkIdxScheduleEntryPointsParams].
		Entries[0].(*static.ScheduleEntryPointsParamsEntry)
	if epParams.Clksrc != ClkSrcStandalone {
		t.Errorf("clksrc: got %d, want standalone", epParams.Clksrc)
	}
	if epParams.Actsubsch != 1 {
		t.Errorf("actsubsch: got %d, want 1", epParams.Actsubsch)
	}

	for i, raw := range schedule.Entries {
		slot := raw.(*static.ScheduleEntry)
		wantPorts := uint64(1 << 1)
		if i >= 3 {
			wantPorts = 1 << 3
		}
		if slot.Destports != wantPorts {
			t.Errorf("slot %d destports: got %#x, want %#x", i, slot.Destports, wantPorts)
		}
		if slot.ResmediaEn != 1 {
			t.Errorf("slot %d resmedia not enabled", i)
		}
	}

	// The hardware gate field names the blocked classes.
	slot0 := schedule.Entries[0].(*static.ScheduleEntry)
	if slot0.Resmedia != GateMask&^0x01 {
		t.Errorf("slot 0 resmedia: got %#x, want %#x", slot0.Resmedia, uint64(GateMask&^0x01))
	}
	if slot0.Delta != Ticks(100000) {
		t.Errorf("slot 0 delta: got %d, want %d", slot0.Delta, Ticks(100000))
	}
}

func TestRemovingLastScheduleEmptiesTables(t *testing.T) {
	s, config := newScheduler(t)

	mustSet(t, s, 0, &GateProgram{
		BaseTime: 200000,
		Entries:  []GateEntry{{Interval: 100000, GateMask: 0xFF}},
	})
	mustSet(t, s, 0, nil)

	for _, idx := range []static.BlkIdx{
		static.BlkIdxSchedule,
		static.BlkIdxScheduleEntryPoints,
		static.BlkIdxScheduleParams,
		static.BlkIdxScheduleEntryPointsParams,
	} {
		if got := config.Tables[idx].EntryCount(); got != 0 {
			t.Errorf("table %d: got %d entries, want 0", idx, got)
		}
	}
}

// A deployed program produces companion tables the load-time rules accept:
// per-cycle entry points plus the two params singletons.
func TestScheduleTablesSatisfyLoadTimeRules(t *testing.T) {
	s, config := newScheduler(t)

	mustSet(t, s, 0, &GateProgram{
		BaseTime: 200000,
		Entries:  []GateEntry{{Interval: 100000, GateMask: 0x01}},
	})

	if got := config.Tables[static.BlkIdxScheduleEntryPoints].EntryCount(); got != 1 {
		t.Fatalf("entry points: got %d, want 1", got)
	}
	switch v := config.CheckValid(); v {
	case static.TTEthernetNotSupported, static.IncorrectTTEthernetConfiguration:
		t.Errorf("schedule tables rejected at load time: %s", v)
	}
}

func TestSetPortScheduleToggleRules(t *testing.T) {
	s, _ := newScheduler(t)

	if err := s.SetPortSchedule(2, nil); !sjaerr.Is(err, sjaerr.ErrTASLimits) {
		t.Errorf("removing an absent schedule: got %v, want ErrTASLimits", err)
	}

	program := &GateProgram{
		BaseTime: 200000,
		Entries:  []GateEntry{{Interval: 100000, GateMask: 0xFF}},
	}
	mustSet(t, s, 2, program)

	if err := s.SetPortSchedule(2, program); !sjaerr.Is(err, sjaerr.ErrTASLimits) {
		t.Errorf("reconfiguring a configured port: got %v, want ErrTASLimits", err)
	}

	mustSet(t, s, 2, nil)
	mustSet(t, s, 2, program)
}

func TestSetPortScheduleValidation(t *testing.T) {
	tests := []struct {
		name    string
		program GateProgram
	}{
		{
			"base time of zero ticks",
			GateProgram{
				BaseTime: 100,
				Entries:  []GateEntry{{Interval: 100000, GateMask: 0xFF}},
			},
		},
		{
			"cycle time extension",
			GateProgram{
				BaseTime:           200000,
				CycleTimeExtension: 1000,
				Entries:            []GateEntry{{Interval: 100000, GateMask: 0xFF}},
			},
		},
		{
			"no entries",
			GateProgram{BaseTime: 200000},
		},
		{
			"interval below one tick",
			GateProgram{
				BaseTime: 200000,
				Entries:  []GateEntry{{Interval: 199, GateMask: 0xFF}},
			},
		},
		{
			"interval beyond the delta field",
			GateProgram{
				BaseTime: 200000,
				Entries:  []GateEntry{{Interval: MaxDelta * TickNS, GateMask: 0xFF}},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newScheduler(t)
			program := tc.program
			if err := s.SetPortSchedule(0, &program); !sjaerr.Is(err, sjaerr.ErrTASLimits) {
				t.Errorf("got %v, want ErrTASLimits", err)
			}
			if s.PortSchedule(0) != nil {
				t.Error("rejected program must not be kept")
			}
		})
	}
}

func TestDerivedCycleTime(t *testing.T) {
	s, _ := newScheduler(t)

	mustSet(t, s, 0, &GateProgram{
		BaseTime: 200000,
		Entries: []GateEntry{
			{Interval: 100000, GateMask: 0x01},
			{Interval: 150000, GateMask: 0x02},
		},
	})
	if got := s.PortSchedule(0).CycleTime; got != 250000 {
		t.Errorf("derived cycle time: got %d, want 250000", got)
	}
}

func TestCheckConflict(t *testing.T) {
	tests := []struct {
		name string
		a, b GateProgram
		want bool
	}{
		{
			// Both cycles open a gate at t=0; the 500 ns cycle lands on
			// every boundary of the 1000 ns one.
			"harmonic cycles, aligned base times",
			GateProgram{CycleTime: 1000, Entries: []GateEntry{{Interval: 1000}}},
			GateProgram{CycleTime: 500, Entries: []GateEntry{{Interval: 500}}},
			true,
		},
		{
			// Offsetting one base time by a quarter cycle interleaves
			// the gate events.
			"harmonic cycles, offset base time",
			GateProgram{CycleTime: 1000, Entries: []GateEntry{{Interval: 1000}}},
			GateProgram{BaseTime: 250, CycleTime: 500, Entries: []GateEntry{{Interval: 500}}},
			false,
		},
		{
			"cycle times not integer multiples",
			GateProgram{CycleTime: 1000, Entries: []GateEntry{{Interval: 1000}}},
			GateProgram{CycleTime: 300, Entries: []GateEntry{{Interval: 300}}},
			true,
		},
		{
			"inner entry boundary collides",
			GateProgram{CycleTime: 1000, Entries: []GateEntry{
				{Interval: 400}, {Interval: 600},
			}},
			GateProgram{BaseTime: 400, CycleTime: 1000, Entries: []GateEntry{{Interval: 1000}}},
			true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckConflict(&tc.a, &tc.b); got != tc.want {
				t.Errorf("CheckConflict(a, b): got %v, want %v", got, tc.want)
			}
			if got := CheckConflict(&tc.b, &tc.a); got != tc.want {
				t.Errorf("CheckConflict(b, a): got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConflictingScheduleRejected(t *testing.T) {
	s, _ := newScheduler(t)

	mustSet(t, s, 0, &GateProgram{
		BaseTime: 1000,
		Entries:  []GateEntry{{Interval: 1000, GateMask: 0xFF}},
	})

	err := s.SetPortSchedule(1, &GateProgram{
		BaseTime: 1000,
		Entries:  []GateEntry{{Interval: 500, GateMask: 0xFF}},
	})
	if !sjaerr.Is(err, sjaerr.ErrTASConflict) {
		t.Fatalf("colliding schedule: got %v, want ErrTASConflict", err)
	}
	if s.PortSchedule(1) != nil {
		t.Error("rejected program must not be kept")
	}

	// The same cycle shifted by a quarter period interleaves cleanly.
	mustSet(t, s, 1, &GateProgram{
		BaseTime: 1250,
		Entries:  []GateEntry{{Interval: 500, GateMask: 0xFF}},
	})
}
