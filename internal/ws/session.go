// Package ws is the realtime edge: it upgrades authenticated HTTP requests
// to WebSocket sessions, keeps the user-to-session registry, and routes
// inbound frames to the owning component.
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-platform/internal/config"
)

// transport is the subset of *websocket.Conn the session uses. Tests provide
// an in-memory implementation.
type transport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Session binds a user to one live connection. All writes to the connection
// go through the send queue and are performed by a single writer goroutine,
// so concurrent senders never interleave frames.
type Session struct {
	UserID      string
	ConnectedAt time.Time

	conn transport
	cfg  config.WSConfig
	log  *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(userID string, conn transport, cfg config.WSConfig, log *slog.Logger) *Session {
	return &Session{
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		conn:        conn,
		cfg:         cfg,
		log:         log,
		send:        make(chan []byte, cfg.SendBuffer),
		done:        make(chan struct{}),
	}
}

// enqueue hands a frame to the writer goroutine. It never blocks: a full
// queue or a closed session drops the frame and returns false.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// readPump delivers inbound frames to handle in receipt order. It returns on
// the first read error, which includes peer close and pong timeout.
func (s *Session) readPump(handle func(raw []byte)) {
	defer s.close()

	s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read failed", "userId", s.UserID, "error", err)
			}
			return
		}
		handle(raw)
	}
}

// writePump is the session's single writer. It also keeps the connection
// alive with periodic pings; a peer that stops answering times out in
// readPump via the read deadline.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
