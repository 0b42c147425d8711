// Admin monitoring endpoints: session listing and aggregate statistics,
// guarded by a shared token.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"dronesim/internal/logging"
	"dronesim/internal/metrics"
	"dronesim/internal/session"
)

// TokenHeader carries the shared admin secret on every request.
const TokenHeader = "X-Admin-Token"

// Server exposes read-only monitoring endpoints over HTTP.
type Server struct {
	manager *session.Manager
	token   string
	started time.Time
}

func NewServer(mgr *session.Manager, token string) *Server {
	return &Server{manager: mgr, token: token, started: time.Now()}
}

// Handler returns the admin HTTP handler. /healthz is open; everything
// else requires the token.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/sessions", s.auth(s.handleSessions))
	mux.HandleFunc("/stats", s.auth(s.handleStats))
	return mux
}

// Start runs the admin listener until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("admin server listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" || r.Header.Get(TokenHeader) != s.token {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"status":  "error",
				"message": "Authentication failed",
			})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"sessions": s.manager.Snapshot(),
	})
}

type statsResponse struct {
	UptimeSeconds  float64        `json:"uptime_seconds"`
	ActiveSessions int            `json:"active_sessions"`
	Totals         metrics.Totals `json:"totals"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statsResponse{
		UptimeSeconds:  time.Since(s.started).Seconds(),
		ActiveSessions: s.manager.Len(),
		Totals:         s.manager.Totals(),
	})
}
