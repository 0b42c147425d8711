package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Register driver

	"dronesim/internal/telemetry"
)

// SQLiteStore persists telemetry snapshots in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if necessary) the snapshot database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// WAL mode for concurrent sessions, single connection to avoid SQLITE_BUSY
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS telemetry_snapshots (
		session_id TEXT PRIMARY KEY,
		snapshot TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

func (s *SQLiteStore) Load(sessionID string) (telemetry.Telemetry, bool, error) {
	var raw string
	err := s.db.QueryRow(
		"SELECT snapshot FROM telemetry_snapshots WHERE session_id = ?", sessionID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return telemetry.Telemetry{}, false, nil
	}
	if err != nil {
		return telemetry.Telemetry{}, false, err
	}
	var tel telemetry.Telemetry
	if err := json.Unmarshal([]byte(raw), &tel); err != nil {
		return telemetry.Telemetry{}, false, fmt.Errorf("corrupt snapshot for %s: %w", sessionID, err)
	}
	return tel, true, nil
}

func (s *SQLiteStore) Save(sessionID string, tel telemetry.Telemetry) error {
	raw, err := json.Marshal(tel)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO telemetry_snapshots (session_id, snapshot) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = CURRENT_TIMESTAMP`,
		sessionID, string(raw))
	return err
}

func (s *SQLiteStore) Delete(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM telemetry_snapshots WHERE session_id = ?", sessionID)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
