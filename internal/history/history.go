// Flight history sinks: one row per applied flight transition.
package history

import (
	"os"
	"time"

	"dronesim/internal/telemetry"
)

// Transition outcomes recorded per row.
const (
	OutcomeSuccess = "success"
	OutcomeCrashed = "crashed"
)

// FlightRow is one recorded flight transition for a session.
type FlightRow struct {
	SessionID    string    `json:"session_id"` // TAG
	XPosition    int       `json:"x_position"`
	YPosition    int       `json:"y_position"`
	Battery      float64   `json:"battery"`
	WindSpeed    float64   `json:"wind_speed"`
	DustLevel    float64   `json:"dust_level"`
	SensorStatus string    `json:"sensor_status"`
	Outcome      string    `json:"outcome"`
	CrashReason  string    `json:"crash_reason,omitempty"`
	Timestamp    time.Time `json:"ts"` // TIME INDEX
}

// FlightTableName holds the table name used when writing to GreptimeDB.
// It defaults to "flight_history" but can be overridden via the
// FLIGHT_HISTORY_TABLE environment variable.
var FlightTableName = func() string {
	if env := os.Getenv("FLIGHT_HISTORY_TABLE"); env != "" {
		return env
	}
	return "flight_history"
}()

// NewRow builds a FlightRow from a session's post-step telemetry.
func NewRow(sessionID string, tel telemetry.Telemetry, outcome, crashReason string) FlightRow {
	return FlightRow{
		SessionID:    sessionID,
		XPosition:    tel.XPosition,
		YPosition:    tel.YPosition,
		Battery:      tel.Battery,
		WindSpeed:    tel.WindSpeed,
		DustLevel:    tel.DustLevel,
		SensorStatus: string(tel.SensorStatus),
		Outcome:      outcome,
		CrashReason:  crashReason,
		Timestamp:    time.Now().UTC(),
	}
}

// FlightWriter is an interface to support different history sinks.
type FlightWriter interface {
	Write(FlightRow) error
}

// Optional: writers can also support batch mode.
type batchWriter interface {
	WriteBatch([]FlightRow) error
}
