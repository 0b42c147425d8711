package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dronesim/internal/flight"
	"dronesim/internal/history"
	"dronesim/internal/logging"
	"dronesim/internal/metrics"
	"dronesim/internal/store"
	"dronesim/internal/telemetry"
)

// ErrSessionNotFound reports a command addressed to an unknown or already
// removed session. Recovered locally; the caller decides protocol handling.
var ErrSessionNotFound = errors.New("session not found")

// Config holds the heartbeat supervision timings. The defaults are tuned
// for interactive use; production deployments should raise the inactivity
// threshold well above 5s.
type Config struct {
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	InactivityTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 5 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = 5 * time.Second
	}
	return c
}

// CommandResult is the outcome of one dispatched command: the fresh
// telemetry snapshot with accumulated metrics, or a terminal crash report.
type CommandResult struct {
	Telemetry   telemetry.Telemetry
	Metrics     metrics.Counters
	Crashed     bool
	CrashReason string
}

// Manager owns the collection of active sessions. It mediates command
// intake, heartbeat supervision, and lifecycle termination. All methods are
// safe for concurrent use; per-session state is only ever touched by that
// session's own connection and heartbeat tasks.
type Manager struct {
	cfg     Config
	store   store.Store
	metrics *metrics.Registry
	history history.FlightWriter
	newRand func() flight.Rand
	started time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. history may be nil to disable
// flight history recording.
func NewManager(cfg Config, st store.Store, reg *metrics.Registry, hw history.FlightWriter) *Manager {
	return &Manager{
		cfg:     cfg.withDefaults(),
		store:   st,
		metrics: reg,
		history: hw,
		newRand: func() flight.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		started:  time.Now(),
		sessions: make(map[string]*Session),
	}
}

// Register allocates a session for a new connection: fresh id, flight
// engine with loaded-or-default telemetry, counters, and a heartbeat task
// supervising the transport.
func (m *Manager) Register(ctx context.Context, conn Conn) (*Session, error) {
	log := logging.FromContext(ctx)
	id := uuid.New().String()

	engine, err := flight.NewEngine(id, m.store, m.newRand(), log)
	if err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}

	hbCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:           id,
		engine:       engine,
		conn:         conn,
		cancel:       cancel,
		state:        StateActive,
		lastActivity: time.Now(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.Register(id)
	go m.heartbeat(hbCtx, s)

	log.Info("session registered", "session_id", id, "active_sessions", active)
	return s, nil
}

// HandleCommand looks up the session and applies one command to its flight
// engine. On success it returns the new telemetry and metrics; on crash it
// marks the session CRASHED and returns the terminal report, leaving the
// transport close to the caller. Flight errors (invalid command, already
// crashed) pass through unchanged with the session untouched.
func (m *Manager) HandleCommand(ctx context.Context, id string, cmd flight.Command) (CommandResult, error) {
	log := logging.FromContext(ctx)

	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s == nil {
		return CommandResult{}, ErrSessionNotFound
	}

	s.mu.Lock()
	s.lastActivity = time.Now()
	m.metrics.Command(id)

	res, err := s.engine.Apply(cmd)
	if err != nil {
		s.mu.Unlock()
		return CommandResult{}, err
	}

	if res.Crashed {
		if s.state == StateActive {
			s.state = StateCrashed
		}
		s.mu.Unlock()
		s.cancel()
		m.writeHistory(ctx, history.NewRow(id, res.Telemetry, history.OutcomeCrashed, res.CrashReason))
		counters, _ := m.metrics.Get(id)
		log.Warn("drone crashed", "session_id", id, "reason", res.CrashReason)
		return CommandResult{
			Telemetry:   res.Telemetry,
			Metrics:     counters,
			Crashed:     true,
			CrashReason: res.CrashReason,
		}, nil
	}
	s.mu.Unlock()

	// A step counts as a flight iteration only when the command moved the
	// drone both horizontally and vertically; distance accrues regardless.
	countIteration := cmd.Speed != 0 && cmd.Altitude != 0
	m.metrics.Record(id, res.Distance, countIteration)
	m.writeHistory(ctx, history.NewRow(id, res.Telemetry, history.OutcomeSuccess, ""))

	counters, _ := m.metrics.Get(id)
	if countIteration {
		log.Info("flight iteration", "session_id", id,
			"iteration", counters.Iterations, "distance", res.Distance, "total_distance", counters.TotalDistance)
	}
	return CommandResult{Telemetry: res.Telemetry, Metrics: counters}, nil
}

// Unregister removes a session and releases its resources: heartbeat task,
// flight engine, counters, stored telemetry snapshot. Idempotent; safe to
// call multiple times or concurrently with an in-flight HandleCommand.
func (m *Manager) Unregister(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	active := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.cancel()
	s.terminate(StateClosed)

	counters, _ := m.metrics.Get(id)
	m.metrics.Remove(id)

	log := logging.FromContext(ctx)
	// Session ids are per-connection; the snapshot has no future reader
	// once the flight history row is written.
	if err := m.store.Delete(id); err != nil {
		log.Error("telemetry snapshot delete failed", "session_id", id, "error", err)
	}
	log.Info("session unregistered", "session_id", id, "state", s.State().String(),
		"commands", counters.CommandsSent, "iterations", counters.Iterations,
		"total_distance", counters.TotalDistance, "active_sessions", active)
}

// Touch records activity for a session, if it still exists.
func (m *Manager) Touch(id string) {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s != nil {
		s.Touch()
	}
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Snapshot returns a stable view of all sessions for the admin layer.
func (m *Manager) Snapshot() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		_, reason := s.engine.Crashed()
		counters, _ := m.metrics.Get(s.ID)
		infos = append(infos, Info{
			ID:           s.ID,
			State:        s.state.String(),
			Telemetry:    s.engine.Telemetry(),
			Metrics:      counters,
			CrashReason:  reason,
			LastActivity: s.lastActivity,
		})
		s.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Totals aggregates metrics across all active sessions.
func (m *Manager) Totals() metrics.Totals {
	return m.metrics.Totals()
}

// Run logs aggregate server statistics on a fixed interval until ctx is
// done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	log := logging.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tot := m.Totals()
			log.Info("server stats",
				"uptime", time.Since(m.started).Round(time.Second),
				"active_sessions", m.Len(),
				"total_iterations", tot.Iterations,
				"total_distance", tot.TotalDistance,
				"total_commands", tot.CommandsSent)
		}
	}
}

func (m *Manager) writeHistory(ctx context.Context, row history.FlightRow) {
	if m.history == nil {
		return
	}
	if err := m.history.Write(row); err != nil {
		logging.FromContext(ctx).Error("flight history write failed",
			"session_id", row.SessionID, "error", err)
	}
}
