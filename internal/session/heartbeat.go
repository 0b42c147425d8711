package session

import (
	"context"
	"time"

	"dronesim/internal/logging"
)

// noticeMessage is pushed to the client before a server-initiated close.
type noticeMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Close reasons for heartbeat-triggered teardown.
const (
	ReasonPingTimeout       = "Ping timeout"
	ReasonInactivityTimeout = "Inactivity timeout"
)

// heartbeat supervises one session's transport: a periodic liveness probe
// with an acknowledgement deadline, and a wall-clock inactivity check. It
// runs until the session is torn down (ctx cancelled) or either check
// fails, in which case it performs the teardown itself.
func (m *Manager) heartbeat(ctx context.Context, s *Session) {
	log := logging.FromContext(ctx)
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.Ping(m.cfg.PingTimeout); err != nil {
				log.Warn("heartbeat probe failed", "session_id", s.ID, "error", err)
				m.closeSession(ctx, s, ReasonPingTimeout)
				return
			}

			s.mu.Lock()
			idle := time.Since(s.lastActivity)
			s.mu.Unlock()
			if idle > m.cfg.InactivityTimeout {
				log.Warn("closing inactive session", "session_id", s.ID, "idle", idle.Round(time.Millisecond))
				// Best effort: the client may already be gone.
				_ = s.conn.Send(noticeMessage{Status: "error", Message: "Connection closed due to inactivity"})
				m.closeSession(ctx, s, ReasonInactivityTimeout)
				return
			}
		}
	}
}

// closeSession performs heartbeat-triggered teardown: terminal transition,
// transport close, and registry cleanup. The transition guard makes the
// race against crash-triggered teardown resolve to exactly one winner.
func (m *Manager) closeSession(ctx context.Context, s *Session, reason string) {
	s.terminate(StateClosed)
	_ = s.conn.Close(reason)
	m.Unregister(ctx, s.ID)
}
