// WebSocket front end for the drone simulator: one session per connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"dronesim/internal/flight"
	"dronesim/internal/logging"
	"dronesim/internal/session"
)

const (
	welcomeText = "Welcome to the Drone Simulator! Send commands to control your drone."

	// Generous limit; commands are tiny but misbehaving clients get a
	// clear close instead of a protocol error mid-frame.
	maxMessageSize = 10 << 20
)

type welcomeMessage struct {
	Status       string `json:"status"`
	ConnectionID string `json:"connection_id"`
	Message      string `json:"message"`
}

type errorMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// wireMetrics is the metrics subset exposed to pilots.
type wireMetrics struct {
	Iterations    int     `json:"iterations"`
	TotalDistance float64 `json:"total_distance"`
}

type successResponse struct {
	Status    string      `json:"status"`
	Telemetry string      `json:"telemetry"`
	Metrics   wireMetrics `json:"metrics"`
}

type crashResponse struct {
	Status               string      `json:"status"`
	Message              string      `json:"message"`
	Metrics              wireMetrics `json:"metrics"`
	FinalTelemetry       string      `json:"final_telemetry"`
	ConnectionTerminated bool        `json:"connection_terminated"`
}

// Server accepts pilot connections and drives their sessions.
type Server struct {
	manager  *session.Manager
	upgrader websocket.Upgrader
}

func New(mgr *session.Manager) *Server {
	return &Server{
		manager:  mgr,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Handler returns the HTTP handler serving the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start runs the listener until ctx is cancelled, then shuts it down.
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

	log.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	ws.SetReadLimit(maxMessageSize)
	conn := newWSConn(ws)

	sess, err := s.manager.Register(ctx, conn)
	if err != nil {
		log.Error("session registration failed", "remote", r.RemoteAddr, "error", err)
		_ = conn.Close("Registration failed")
		return
	}
	defer s.manager.Unregister(ctx, sess.ID)

	log.Info("pilot connected", "session_id", sess.ID, "remote", r.RemoteAddr)
	if err := conn.Send(welcomeMessage{
		Status:       "connected",
		ConnectionID: sess.ID,
		Message:      welcomeText,
	}); err != nil {
		log.Warn("welcome send failed", "session_id", sess.ID, "error", err)
		return
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			log.Info("connection closed", "session_id", sess.ID, "error", err)
			return
		}
		s.manager.Touch(sess.ID)

		cmd, err := decodeCommand(data)
		if err != nil {
			var invalid *flight.InvalidCommandError
			msg := "Invalid JSON format"
			if errors.As(err, &invalid) {
				msg = invalid.Error()
			}
			log.Warn("rejected command", "session_id", sess.ID, "error", err)
			if err := conn.Send(errorMessage{Status: "error", Message: msg}); err != nil {
				return
			}
			continue
		}

		res, err := s.manager.HandleCommand(ctx, sess.ID, cmd)
		if err != nil {
			if !s.sendCommandError(conn, sess.ID, err, log) {
				return
			}
			continue
		}

		if res.Crashed {
			resp := crashResponse{
				Status:               "crashed",
				Message:              res.CrashReason,
				Metrics:              wireMetrics{res.Metrics.Iterations, res.Metrics.TotalDistance},
				FinalTelemetry:       res.Telemetry.Encode(),
				ConnectionTerminated: true,
			}
			if err := conn.Send(resp); err != nil {
				log.Warn("crash response send failed", "session_id", sess.ID, "error", err)
			}
			_ = conn.Close("Drone crashed")
			return
		}

		if err := conn.Send(successResponse{
			Status:    "success",
			Telemetry: res.Telemetry.Encode(),
			Metrics:   wireMetrics{res.Metrics.Iterations, res.Metrics.TotalDistance},
		}); err != nil {
			log.Warn("response send failed", "session_id", sess.ID, "error", err)
			return
		}
	}
}

// sendCommandError reports a recoverable command failure to the client. It
// returns false when the session is gone and the loop should stop.
func (s *Server) sendCommandError(conn *wsConn, id string, err error, log *slog.Logger) bool {
	var (
		invalid *flight.InvalidCommandError
		already *flight.AlreadyCrashedError
	)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		log.Warn("command for removed session", "session_id", id)
		_ = conn.Send(errorMessage{Status: "error", Message: "Connection no longer exists"})
		return false
	case errors.As(err, &invalid), errors.As(err, &already):
		log.Warn("rejected command", "session_id", id, "error", err)
		return conn.Send(errorMessage{Status: "error", Message: err.Error()}) == nil
	default:
		log.Warn("command failed", "session_id", id, "error", err)
		return conn.Send(errorMessage{Status: "error", Message: err.Error()}) == nil
	}
}

// commandMessage is the raw inbound shape. Pointers distinguish a missing
// key from a zero value.
type commandMessage struct {
	Speed    *int    `json:"speed"`
	Altitude *int    `json:"altitude"`
	Movement *string `json:"movement"`
}

// decodeCommand parses one inbound message. Malformed JSON is returned
// as-is; shape violations (wrong types, missing keys) come back as
// *flight.InvalidCommandError so the caller can answer with a structured
// error while keeping the connection open. Range checks happen later, in
// the flight engine.
func decodeCommand(data []byte) (flight.Command, error) {
	var msg commandMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			var reason string
			switch typeErr.Field {
			case "":
				reason = "Input must be a dictionary"
			case "movement":
				reason = "'movement' must be a string"
			default:
				reason = fmt.Sprintf("'%s' must be an integer", typeErr.Field)
			}
			return flight.Command{}, &flight.InvalidCommandError{Reason: reason}
		}
		return flight.Command{}, err
	}
	for _, k := range []struct {
		name    string
		present bool
	}{
		{"speed", msg.Speed != nil},
		{"altitude", msg.Altitude != nil},
		{"movement", msg.Movement != nil},
	} {
		if !k.present {
			return flight.Command{}, &flight.InvalidCommandError{
				Reason: fmt.Sprintf("Missing required key: %s", k.name),
			}
		}
	}
	return flight.Command{
		Speed:    *msg.Speed,
		Altitude: *msg.Altitude,
		Movement: flight.Movement(*msg.Movement),
	}, nil
}
