package flight

import (
	"math"

	"dronesim/internal/telemetry"
)

// Rand is the randomness source for the environment model. *rand.Rand
// satisfies it; tests supply scripted sequences for determinism.
type Rand interface {
	Float64() float64
}

// Environment constants for the gyroscope model. Gyro values live on a
// [-1, 1] scale where 1.0 equals a 90 degree tilt.
const (
	maxWindTiltDegrees  = 40.0
	maxMovementTiltDegs = 20.0
	criticalTiltDegrees = 45.0
	degreesToGyro       = 1.0 / 90.0

	dustStormChance = 0.3
)

// Environment simulates ambient conditions: wind and dust random walks,
// dust storm events, gyroscope disturbance, and the derived sensor status.
type Environment struct {
	rng Rand
}

// NewEnvironment returns an environment model drawing from rng.
func NewEnvironment(rng Rand) *Environment {
	return &Environment{rng: rng}
}

// uniform samples U(min, max) from the environment's randomness source.
func (e *Environment) uniform(min, max float64) float64 {
	return min + e.rng.Float64()*(max-min)
}

// Update applies one environment step to t: wind/dust walk (with a possible
// dust storm), gyroscope recomputation, and sensor status classification.
//
// Draw order from the randomness source is fixed: wind delta, dust delta,
// storm probability, storm severity (if any), three gyro axis samples, wind
// heading. Tests depend on this ordering.
//
// The gyroscope wind contribution uses the pre-step wind value; the sensor
// status is derived from the post-step wind and dust.
func (e *Environment) Update(t telemetry.Telemetry, cmd Command) telemetry.Telemetry {
	wind := clamp(t.WindSpeed+e.uniform(-15, 15), 0, 100)
	dust := clamp(t.DustLevel+e.uniform(-10, 10), 0, 100)

	if e.rng.Float64() < dustStormChance {
		severity := e.uniform(30, 70)
		dust = math.Min(100, dust+severity)
		wind = math.Min(100, wind+severity)
	}

	t.Gyroscope = e.gyroscope(t, cmd)

	t.WindSpeed = wind
	t.DustLevel = dust
	t.SensorStatus = classifySensors(wind, dust)
	return t
}

// gyroscope combines base instability, wind tilt, and movement tilt into the
// three gyro axes. Only the movement component can saturate the gyroscope:
// wind is an environmental hazard, not pilot error, and never crashes the
// craft on its own.
func (e *Environment) gyroscope(t telemetry.Telemetry, cmd Command) [3]float64 {
	// Ground effect: turbulence fades with altitude, gone above 50.
	altitudeStability := math.Min(1, float64(t.YPosition)/50)
	instability := 0.1 * (1 - altitudeStability)

	gx := e.uniform(-instability, instability)
	gy := e.uniform(-instability, instability)
	gz := e.uniform(-instability, instability)

	// Wind tilts the craft along a random heading.
	windHeading := e.uniform(0, 2*math.Pi)
	windGyro := (t.WindSpeed / 100) * maxWindTiltDegrees * degreesToGyro
	windX := windGyro * math.Cos(windHeading)
	windY := windGyro * math.Sin(windHeading)

	// Forward/reverse movement tilts deterministically on X.
	moveGyro := (float64(cmd.Speed) / MaxSpeed) * maxMovementTiltDegs * degreesToGyro
	var moveX float64
	switch cmd.Movement {
	case MoveForward:
		moveX = moveGyro
	case MoveReverse:
		moveX = -moveGyro
	}

	fx := clamp(gx+windX+moveX, -1, 1)
	fy := clamp(gy+windY, -1, 1)
	fz := clamp(gz, -1, 1)

	// Movement-only tilt beyond the critical angle destabilizes the craft:
	// saturate every axis sign-preserving so the caller's magnitude check
	// trips the loss-of-stability crash.
	moveTiltDegrees := math.Abs(moveX) / degreesToGyro
	if moveTiltDegrees > criticalTiltDegrees {
		return [3]float64{saturate(fx), saturate(fy), saturate(fz)}
	}

	return [3]float64{fx, fy, fz}
}

// classifySensors derives the hazard status from wind and dust levels.
func classifySensors(wind, dust float64) telemetry.SensorStatus {
	switch {
	case dust > 90 || wind > 90:
		return telemetry.SensorRed
	case dust > 60 || wind > 60:
		return telemetry.SensorYellow
	default:
		return telemetry.SensorGreen
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func saturate(v float64) float64 {
	if v > 0 {
		return 1
	}
	return -1
}
