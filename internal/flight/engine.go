// Flight state transition engine: position, battery, environment, crash
// detection.
package flight

import (
	"fmt"
	"log/slog"
	"math"

	"dronesim/internal/store"
	"dronesim/internal/telemetry"
)

// Crash reason strings reported to clients. Fixed wording; downstream
// tooling matches on substrings.
const (
	ReasonBatteryDepleted = "Drone has crashed due to battery depletion."
	ReasonNegativeAlt     = "Drone has crashed due to negative altitude."
	ReasonMaxXExceeded    = "Drone has crashed due to exceeding max x position."
	ReasonRedAltitude     = "Drone has crashed due to unsafe altitude with RED sensor status. Maximum safe altitude is 3."
	ReasonYellowAltitude  = "Drone has crashed due to unsafe altitude with YELLOW sensor status. Maximum safe altitude is 1000."
	ReasonExcessiveTilt   = "Drone has crashed due to excessive tilt and loss of stability."
)

// Flight envelope limits.
const (
	maxXPosition   = 100000
	maxRedAltitude = 3
	maxYlwAltitude = 1000

	// Combined gyro magnitude beyond which the craft has lost stability
	// (saturated axes give sqrt(3) ~ 1.73).
	maxGyroMagnitude = 1.7

	batteryDrainPerSpeed    = 0.5
	batteryDrainPerAltitude = 0.005
	minBatteryDrain         = 0.1
)

// AlreadyCrashedError reports a command issued against a crashed drone. The
// crash itself was reported exactly once, earlier; this is a distinct error.
type AlreadyCrashedError struct {
	Reason string
}

func (e *AlreadyCrashedError) Error() string {
	return fmt.Sprintf("Drone has crashed: %s Cannot accept new commands.", e.Reason)
}

// Result is the outcome of one applied command: either an updated telemetry
// with the horizontal distance covered, or a terminal crash with the frozen
// final telemetry.
type Result struct {
	Telemetry   telemetry.Telemetry
	Distance    float64
	Crashed     bool
	CrashReason string
}

// Engine owns the flight state of a single drone session and its snapshot
// record in the telemetry store. It is not safe for concurrent use; the
// owning session serializes access.
type Engine struct {
	id          string
	store       store.Store
	env         *Environment
	log         *slog.Logger
	tel         telemetry.Telemetry
	crashed     bool
	crashReason string
}

// NewEngine creates an engine for a session, loading the persisted snapshot
// if one exists or starting from the default telemetry.
func NewEngine(id string, st store.Store, rng Rand, log *slog.Logger) (*Engine, error) {
	tel, ok, err := st.Load(id)
	if err != nil {
		return nil, fmt.Errorf("load telemetry for %s: %w", id, err)
	}
	if !ok {
		tel = telemetry.Default()
		if err := st.Save(id, tel); err != nil {
			return nil, fmt.Errorf("save initial telemetry for %s: %w", id, err)
		}
	}
	return &Engine{
		id:    id,
		store: st,
		env:   NewEnvironment(rng),
		log:   log,
		tel:   tel,
	}, nil
}

// Telemetry returns the current (or, after a crash, frozen) telemetry.
func (e *Engine) Telemetry() telemetry.Telemetry {
	return e.tel
}

// Crashed reports whether the drone has crashed, and why.
func (e *Engine) Crashed() (bool, string) {
	return e.crashed, e.crashReason
}

// Apply runs one flight step. It returns an *AlreadyCrashedError after a
// terminal crash and an *InvalidCommandError for out-of-range commands; in
// both cases the telemetry is unchanged. A crash is not an error: it is a
// terminal Result with the frozen final telemetry and its cause.
func (e *Engine) Apply(cmd Command) (Result, error) {
	if e.crashed {
		return Result{}, &AlreadyCrashedError{Reason: e.crashReason}
	}
	if err := cmd.Validate(); err != nil {
		return Result{}, err
	}

	t := e.tel
	prevX := t.XPosition

	// Position
	switch cmd.Movement {
	case MoveForward:
		t.XPosition += cmd.Speed
	case MoveReverse:
		t.XPosition -= cmd.Speed
	}
	if cmd.Altitude != 0 {
		t.YPosition += cmd.Altitude
	}

	// Battery: drain scales with speed and climb, modulated by air density.
	// Thinner air at altitude means less resistance and less drain.
	baseDrain := batteryDrainPerSpeed*float64(cmd.Speed) + batteryDrainPerAltitude*math.Abs(float64(cmd.Altitude))
	altitudeFactor := 0.6 + (1.8-0.6)*math.Exp(-0.03*float64(t.YPosition))
	drain := math.Max(baseDrain*altitudeFactor, minBatteryDrain)
	t.Battery = math.Max(0, t.Battery-drain)

	// Environment
	t = e.env.Update(t, cmd)

	if reason, crashed := evaluateCrash(&t); crashed {
		return e.crash(t, reason), nil
	}

	e.tel = t
	e.persist(t)
	return Result{
		Telemetry: t,
		Distance:  math.Abs(float64(t.XPosition - prevX)),
	}, nil
}

// crash freezes the telemetry at its just-computed values and marks the
// engine terminal. Only read access is permitted afterwards.
func (e *Engine) crash(t telemetry.Telemetry, reason string) Result {
	e.tel = t
	e.crashed = true
	e.crashReason = reason
	e.persist(t)
	return Result{
		Telemetry:   t,
		Crashed:     true,
		CrashReason: reason,
	}
}

func (e *Engine) persist(t telemetry.Telemetry) {
	if err := e.store.Save(e.id, t); err != nil {
		e.log.Error("telemetry snapshot write failed", "session_id", e.id, "error", err)
	}
}

// evaluateCrash checks terminal conditions in fixed priority order; the
// first violated condition is the reported cause. Boundary values are safe
// (strict comparisons throughout). Clamps only apply for the condition that
// fired.
func evaluateCrash(t *telemetry.Telemetry) (string, bool) {
	gyroMagnitude := math.Sqrt(t.Gyroscope[0]*t.Gyroscope[0] +
		t.Gyroscope[1]*t.Gyroscope[1] +
		t.Gyroscope[2]*t.Gyroscope[2])
	if gyroMagnitude > maxGyroMagnitude {
		return ReasonExcessiveTilt, true
	}
	if t.Battery <= 0 {
		t.Battery = 0
		return ReasonBatteryDepleted, true
	}
	if t.YPosition < 0 {
		t.YPosition = 0
		return ReasonNegativeAlt, true
	}
	if t.XPosition > maxXPosition || t.XPosition < -maxXPosition {
		return ReasonMaxXExceeded, true
	}
	if t.SensorStatus == telemetry.SensorRed && t.YPosition > maxRedAltitude {
		return ReasonRedAltitude, true
	}
	if t.SensorStatus == telemetry.SensorYellow && t.YPosition > maxYlwAltitude {
		return ReasonYellowAltitude, true
	}
	return "", false
}
