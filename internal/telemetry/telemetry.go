// Telemetry value type and wire encoding for simulated drones.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// SensorStatus classifies environmental hazard derived from wind and dust.
type SensorStatus string

// Sensor status values, ordered by severity.
const (
	SensorGreen  SensorStatus = "GREEN"
	SensorYellow SensorStatus = "YELLOW"
	SensorRed    SensorStatus = "RED"
)

// Telemetry is the complete instantaneous state of one simulated drone.
// It is treated as an immutable value: every flight step produces a new
// Telemetry rather than mutating the previous one in place.
type Telemetry struct {
	XPosition    int          `json:"x_position"`
	YPosition    int          `json:"y_position"`
	Battery      float64      `json:"battery"`
	Gyroscope    [3]float64   `json:"gyroscope"`
	WindSpeed    float64      `json:"wind_speed"`
	DustLevel    float64      `json:"dust_level"`
	SensorStatus SensorStatus `json:"sensor_status"`
}

// Default returns the initial telemetry for a freshly registered drone.
func Default() Telemetry {
	return Telemetry{
		Battery:      100,
		SensorStatus: SensorGreen,
	}
}

// Encode renders the telemetry in the delimiter-based wire format consumed
// by downstream clients:
//
//	X-<x>-Y-<y>-BAT-<battery>-GYR-<[g0, g1, g2]>-WIND-<wind>-DUST-<dust>-SENS-<status>
//
// Clients parse this at the string level, so field order, the dash
// delimiter, and the bracketed gyroscope list are fixed.
func (t Telemetry) Encode() string {
	return fmt.Sprintf("X-%d-Y-%d-BAT-%s-GYR-%s-WIND-%s-DUST-%s-SENS-%s",
		t.XPosition,
		t.YPosition,
		formatReading(t.Battery),
		formatGyro(t.Gyroscope),
		formatReading(t.WindSpeed),
		formatReading(t.DustLevel),
		t.SensorStatus,
	)
}

// formatReading renders battery/wind/dust values. A clamp pinning the value
// to either end of the [0, 100] range renders the bare integer ("0", "100");
// any other value is rendered as a float.
func formatReading(f float64) string {
	if f == 0 {
		return "0"
	}
	if f == 100 {
		return "100"
	}
	return formatFloat(f)
}

// formatGyro renders the gyroscope as a bracketed, comma-separated list of
// floats, e.g. "[0.1, -0.25, 0.0]".
func formatGyro(g [3]float64) string {
	parts := make([]string, len(g))
	for i, v := range g {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatFloat renders a float with a shortest round-trip representation,
// always keeping a decimal point for integral values ("99.0", not "99").
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
