// Per-connection drone flight sessions: registration, command dispatch,
// heartbeat supervision, and lifecycle termination.
package session

import (
	"context"
	"sync"
	"time"

	"dronesim/internal/flight"
	"dronesim/internal/metrics"
	"dronesim/internal/telemetry"
)

// State is the lifecycle state of a session. Transitions are one-way:
// ACTIVE to exactly one of CRASHED or CLOSED.
type State int

const (
	StateActive State = iota
	StateCrashed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateCrashed:
		return "CRASHED"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Conn is the transport side of a session: an ordered, reliable,
// message-based channel to one client.
type Conn interface {
	// Send delivers a structured message to the client.
	Send(v any) error
	// Ping issues a liveness probe and waits up to timeout for the
	// acknowledgement.
	Ping(timeout time.Duration) error
	// Close terminates the transport, telling the client why.
	Close(reason string) error
}

// Session is the server-side lifetime of one client connection: one flight
// engine, one telemetry record, one heartbeat task.
type Session struct {
	ID     string
	engine *flight.Engine
	conn   Conn
	cancel context.CancelFunc

	mu           sync.Mutex
	state        State
	lastActivity time.Time
}

// Touch records client activity, deferring the inactivity timeout.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// terminate moves an ACTIVE session to the given terminal state. It reports
// whether this call performed the transition; concurrent crash- and
// heartbeat-triggered teardown race here and exactly one wins.
func (s *Session) terminate(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return false
	}
	s.state = to
	return true
}

// Info is a read-only view of a session for the admin layer.
type Info struct {
	ID           string              `json:"id"`
	State        string              `json:"state"`
	Telemetry    telemetry.Telemetry `json:"telemetry"`
	Metrics      metrics.Counters    `json:"metrics"`
	CrashReason  string              `json:"crash_reason,omitempty"`
	LastActivity time.Time           `json:"last_activity"`
}
