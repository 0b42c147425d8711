package main

import (
	"log/slog"

	"dronesim/internal/config"
	"dronesim/internal/history"
)

// newHistoryWriter sets up the flight history sink from config: GreptimeDB
// when an endpoint is configured, STDOUT otherwise, with an optional JSONL
// file fanned in. The returned cleanup closes any file resources.
func newHistoryWriter(cfg config.HistoryConfig, log *slog.Logger) (history.FlightWriter, func(), error) {
	cleanup := func() {}

	var base history.FlightWriter
	if cfg.Endpoint == "" {
		base = &history.StdoutWriter{}
	} else {
		gw, err := history.NewGreptimeDBWriter(cfg.Endpoint, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		base = gw
	}

	if cfg.LogFile == "" {
		return base, cleanup, nil
	}

	fw, err := history.NewFileWriter(cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() { fw.Close() }
	return history.NewMultiWriter(base, fw), cleanup, nil
}
