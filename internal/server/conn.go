package server

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a websocket connection to the session transport interface.
// The websocket package allows one concurrent writer; a mutex serializes
// message writes. Control frames go through WriteControl, which is safe to
// call alongside them.
type wsConn struct {
	mu   sync.Mutex
	ws   *websocket.Conn
	pong chan struct{}
}

func newWSConn(ws *websocket.Conn) *wsConn {
	c := &wsConn{ws: ws, pong: make(chan struct{}, 1)}
	ws.SetPongHandler(func(string) error {
		select {
		case c.pong <- struct{}{}:
		default:
		}
		return nil
	})
	return c
}

func (c *wsConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Ping sends a ping frame and waits for the pong. Pongs are surfaced by the
// read loop, so a dead or wedged peer shows up as a timeout here.
func (c *wsConn) Ping(timeout time.Duration) error {
	select {
	case <-c.pong: // drop a stale pong from a previous probe
	default:
	}
	deadline := time.Now().Add(timeout)
	if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return err
	}
	select {
	case <-c.pong:
		return nil
	case <-time.After(timeout):
		return errors.New("pong not received in time")
	}
}

// Close sends a close frame carrying the reason, then tears down the
// underlying connection.
func (c *wsConn) Close(reason string) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}
