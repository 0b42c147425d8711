package flight

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"dronesim/internal/store"
	"dronesim/internal/telemetry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, st store.Store, rng Rand) *Engine {
	t.Helper()
	e, err := NewEngine("test-session", st, rng, testLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// seedEngine creates an engine whose persisted snapshot is tel.
func seedEngine(t *testing.T, tel telemetry.Telemetry, rng Rand) (*Engine, store.Store) {
	t.Helper()
	st := store.NewMemory()
	if err := st.Save("test-session", tel); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return newTestEngine(t, st, rng), st
}

func TestApplyPositionAndBattery(t *testing.T) {
	e := newTestEngine(t, store.NewMemory(), neutralRand())

	res, err := e.Apply(Command{Speed: 2, Altitude: 10, Movement: MoveForward})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Crashed {
		t.Fatalf("unexpected crash: %s", res.CrashReason)
	}
	if res.Telemetry.XPosition != 2 || res.Telemetry.YPosition != 10 {
		t.Errorf("position = (%d, %d), want (2, 10)", res.Telemetry.XPosition, res.Telemetry.YPosition)
	}
	if res.Distance != 2 {
		t.Errorf("distance = %v, want 2", res.Distance)
	}

	// base = 0.5*2 + 0.005*10, altitude factor evaluated at the new altitude
	base := 0.5*2 + 0.005*10
	factor := 0.6 + (1.8-0.6)*math.Exp(-0.03*10)
	want := 100 - base*factor
	if math.Abs(res.Telemetry.Battery-want) > 1e-12 {
		t.Errorf("battery = %v, want %v", res.Telemetry.Battery, want)
	}
}

func TestApplyReverseMovement(t *testing.T) {
	e := newTestEngine(t, store.NewMemory(), neutralRand())

	res, err := e.Apply(Command{Speed: 4, Altitude: 5, Movement: MoveReverse})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Telemetry.XPosition != -4 {
		t.Errorf("x = %d, want -4", res.Telemetry.XPosition)
	}
	if res.Distance != 4 {
		t.Errorf("distance = %v, want 4", res.Distance)
	}
}

func TestApplyHoverFloorDrain(t *testing.T) {
	e := newTestEngine(t, store.NewMemory(), neutralRand())

	res, err := e.Apply(Command{Speed: 0, Altitude: 0, Movement: MoveForward})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := res.Telemetry.Battery; math.Abs(got-99.9) > 1e-12 {
		t.Errorf("battery after hover = %v, want 99.9", got)
	}
}

func TestApplyInvalidCommandLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(t, store.NewMemory(), neutralRand())
	before := e.Telemetry()

	_, err := e.Apply(Command{Speed: 9, Altitude: 0, Movement: MoveForward})
	var invalid *InvalidCommandError
	if !errors.As(err, &invalid) {
		t.Fatalf("Apply = %v, want *InvalidCommandError", err)
	}
	if e.Telemetry() != before {
		t.Errorf("telemetry changed on invalid command")
	}
}

func TestBatteryDepletionCrash(t *testing.T) {
	tel := telemetry.Default()
	tel.Battery = 0.05
	e, st := seedEngine(t, tel, neutralRand())

	res, err := e.Apply(Command{Speed: 0, Altitude: 0, Movement: MoveForward})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Crashed || res.CrashReason != ReasonBatteryDepleted {
		t.Fatalf("result = %+v, want battery depletion crash", res)
	}
	if res.Telemetry.Battery != 0 {
		t.Errorf("battery = %v, want clamped 0", res.Telemetry.Battery)
	}

	// Frozen final state must be persisted.
	saved, ok, _ := st.Load("test-session")
	if !ok || saved.Battery != 0 {
		t.Errorf("persisted battery = %v (ok=%v), want 0", saved.Battery, ok)
	}
}

func TestNegativeAltitudeCrash(t *testing.T) {
	e := newTestEngine(t, store.NewMemory(), neutralRand())

	res, err := e.Apply(Command{Speed: 0, Altitude: -5, Movement: MoveForward})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Crashed || res.CrashReason != ReasonNegativeAlt {
		t.Fatalf("result = %+v, want negative altitude crash", res)
	}
	if res.Telemetry.YPosition != 0 {
		t.Errorf("y = %d, want clamped 0", res.Telemetry.YPosition)
	}
}

func TestMaxXPositionCrash(t *testing.T) {
	tel := telemetry.Default()
	tel.XPosition = 100000
	tel.YPosition = 10
	e, _ := seedEngine(t, tel, neutralRand())

	res, err := e.Apply(Command{Speed: 1, Altitude: 1, Movement: MoveForward})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Crashed || res.CrashReason != ReasonMaxXExceeded {
		t.Fatalf("result = %+v, want max x crash", res)
	}
	// No clamp for the x overflow.
	if res.Telemetry.XPosition != 100001 {
		t.Errorf("x = %d, want 100001", res.Telemetry.XPosition)
	}
}

func TestCrashCausePriority(t *testing.T) {
	// Battery empty and descending below ground in the same step: the
	// reported cause must be battery depletion, and the negative altitude
	// stays unclamped in the frozen telemetry.
	tel := telemetry.Default()
	tel.Battery = 0.05
	e, _ := seedEngine(t, tel, neutralRand())

	res, err := e.Apply(Command{Speed: 0, Altitude: -5, Movement: MoveForward})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.CrashReason != ReasonBatteryDepleted {
		t.Fatalf("crash reason = %q, want battery depletion first", res.CrashReason)
	}
	if res.Telemetry.YPosition != -5 {
		t.Errorf("y = %d, want -5 (no clamp when battery fired first)", res.Telemetry.YPosition)
	}
}

func TestRedStatusAltitudeCrash(t *testing.T) {
	// Wind pinned high: +15 delta keeps it above 90, forcing RED.
	tel := telemetry.Default()
	tel.WindSpeed = 99
	rng := &scriptRand{vals: []float64{1, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}}
	e, _ := seedEngine(t, tel, rng)

	res, err := e.Apply(Command{Speed: 0, Altitude: 10, Movement: MoveForward})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Crashed || res.CrashReason != ReasonRedAltitude {
		t.Fatalf("result = %+v, want RED altitude crash", res)
	}
}

func TestYellowStatusAltitudeCrash(t *testing.T) {
	tel := telemetry.Default()
	tel.WindSpeed = 70
	tel.YPosition = 995
	// Wind delta 0, no storm: stays at 70 (YELLOW).
	e, _ := seedEngine(t, tel, neutralRand())

	res, err := e.Apply(Command{Speed: 0, Altitude: 10, Movement: MoveForward})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Crashed || res.CrashReason != ReasonYellowAltitude {
		t.Fatalf("result = %+v, want YELLOW altitude crash", res)
	}
}

func TestRedStatusBoundaryAltitudeIsSafe(t *testing.T) {
	tel := telemetry.Default()
	tel.WindSpeed = 99
	rng := &scriptRand{vals: []float64{1, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}}
	e, _ := seedEngine(t, tel, rng)

	res, err := e.Apply(Command{Speed: 0, Altitude: 3, Movement: MoveForward})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Crashed {
		t.Fatalf("altitude 3 with RED status crashed: %s", res.CrashReason)
	}
}

func TestAlreadyCrashedRejectsFurtherCommands(t *testing.T) {
	tel := telemetry.Default()
	tel.Battery = 0.05
	e, _ := seedEngine(t, tel, neutralRand())

	res, err := e.Apply(Command{Speed: 0, Altitude: 0, Movement: MoveForward})
	if err != nil || !res.Crashed {
		t.Fatalf("expected crash, got res=%+v err=%v", res, err)
	}
	frozen := e.Telemetry()

	_, err = e.Apply(Command{Speed: 0, Altitude: 0, Movement: MoveForward})
	var already *AlreadyCrashedError
	if !errors.As(err, &already) {
		t.Fatalf("Apply after crash = %v, want *AlreadyCrashedError", err)
	}
	if !strings.Contains(already.Error(), ReasonBatteryDepleted) {
		t.Errorf("error %q does not carry the original crash reason", already.Error())
	}
	if e.Telemetry() != frozen {
		t.Errorf("telemetry mutated after terminal crash")
	}
}

func TestBatteryMonotonicNonIncrease(t *testing.T) {
	e := newTestEngine(t, store.NewMemory(), neutralRand())

	prev := e.Telemetry().Battery
	for i := 0; i < 100; i++ {
		res, err := e.Apply(Command{Speed: 5, Altitude: 0, Movement: MoveForward})
		if err != nil {
			t.Fatalf("Apply #%d: %v", i, err)
		}
		if res.Telemetry.Battery > prev {
			t.Fatalf("battery increased: %v -> %v", prev, res.Telemetry.Battery)
		}
		prev = res.Telemetry.Battery
		if res.Crashed {
			if res.CrashReason != ReasonBatteryDepleted {
				t.Fatalf("crash reason = %q, want battery depletion", res.CrashReason)
			}
			if res.Telemetry.Battery != 0 {
				t.Fatalf("battery at crash = %v, want 0", res.Telemetry.Battery)
			}
			return
		}
	}
	t.Fatalf("battery never depleted after 100 full-speed steps")
}

func TestEngineResumesFromSnapshot(t *testing.T) {
	st := store.NewMemory()
	tel := telemetry.Default()
	tel.XPosition = 77
	tel.Battery = 42.5
	if err := st.Save("test-session", tel); err != nil {
		t.Fatalf("seed: %v", err)
	}

	e := newTestEngine(t, st, neutralRand())
	got := e.Telemetry()
	if got.XPosition != 77 || got.Battery != 42.5 {
		t.Errorf("resumed telemetry = %+v, want seeded snapshot", got)
	}
}

func TestExcessiveTiltCrash(t *testing.T) {
	tel := telemetry.Default()
	tel.Gyroscope = [3]float64{1, 1, 1} // saturated, magnitude sqrt(3)
	tel.Battery = 0

	reason, crashed := evaluateCrash(&tel)
	if !crashed {
		t.Fatal("saturated gyroscope did not crash")
	}
	// Loss of stability is evaluated before battery depletion.
	if reason != ReasonExcessiveTilt {
		t.Errorf("reason = %q, want %q", reason, ReasonExcessiveTilt)
	}
}

func TestGyroMagnitudeBoundaryIsSafe(t *testing.T) {
	tel := telemetry.Default()
	tel.Gyroscope = [3]float64{maxGyroMagnitude, 0, 0}

	if reason, crashed := evaluateCrash(&tel); crashed {
		t.Errorf("magnitude exactly at the limit crashed: %q", reason)
	}
}
