package history

import (
	"context"
	"log/slog"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// greptimeClient abstracts the ingester client for testing.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes flight history to GreptimeDB via the ingester
// client.
type GreptimeDBWriter struct {
	client greptimeClient
	table  string
	log    *slog.Logger
}

// NewGreptimeDBWriter connects to a GreptimeDB endpoint.
func NewGreptimeDBWriter(host, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(host).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client: client,
		table:  FlightTableName,
		log:    log,
	}, nil
}

// Write inserts a single flight row.
func (w *GreptimeDBWriter) Write(row FlightRow) error {
	return w.WriteBatch([]FlightRow{row})
}

// WriteBatch inserts multiple flight rows.
func (w *GreptimeDBWriter) WriteBatch(rows []FlightRow) error {
	if len(rows) == 0 {
		return nil
	}

	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("session_id", types.STRING)
	tbl.AddFieldColumn("x_position", types.INT64)
	tbl.AddFieldColumn("y_position", types.INT64)
	tbl.AddFieldColumn("battery", types.FLOAT64)
	tbl.AddFieldColumn("wind_speed", types.FLOAT64)
	tbl.AddFieldColumn("dust_level", types.FLOAT64)
	tbl.AddFieldColumn("sensor_status", types.STRING)
	tbl.AddFieldColumn("outcome", types.STRING)
	tbl.AddFieldColumn("crash_reason", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		if err := tbl.AddRow(
			r.SessionID,
			int64(r.XPosition),
			int64(r.YPosition),
			r.Battery,
			r.WindSpeed,
			r.DustLevel,
			r.SensorStatus,
			r.Outcome,
			r.CrashReason,
			r.Timestamp,
		); err != nil {
			return err
		}
	}

	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log.Error("flight history write failed", "rows", len(rows), "error", err)
		return err
	}
	return nil
}
