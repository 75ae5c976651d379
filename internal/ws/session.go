package ws

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const statusPrefix = "Order status updated: "

type State int32

const (
	StateOpen State = iota
	StateReceiving
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateReceiving:
		return "receiving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one Status Channel connection. It answers every text frame
// with an annotated copy, one frame at a time, until either side closes.
type Session struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger
	grace  time.Duration

	state     atomic.Int32
	closeSent atomic.Bool
}

func newSession(id string, conn *websocket.Conn, log *slog.Logger, grace time.Duration) *Session {
	s := &Session{
		id:     id,
		conn:   conn,
		logger: log.With(slog.String("session_id", id)),
		grace:  grace,
	}
	s.state.Store(int32(StateOpen))
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

// serve runs the receive loop and returns once the session is closed.
func (s *Session) serve() {
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateReceiving)) {
		return
	}
	defer s.finish()

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Warn("read error", slog.Any("error", err))
			}
			return
		}

		if msgType != websocket.TextMessage {
			s.Close(websocket.CloseUnsupportedData, "text frames only")
			return
		}

		if err = s.conn.WriteMessage(websocket.TextMessage, []byte(statusPrefix+string(msg))); err != nil {
			s.logger.Warn("write error", slog.Any("error", err))
			return
		}
	}
}

// Close asks the peer to close. The receive loop ends when the peer answers
// or after the grace period.
func (s *Session) Close(code int, reason string) {
	if s.State() == StateClosed || !s.closeSent.CompareAndSwap(false, true) {
		return
	}

	deadline := time.Now().Add(s.grace)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		s.logger.Debug("write close", slog.Any("error", err))
	}
	_ = s.conn.SetReadDeadline(deadline)
}

func (s *Session) finish() {
	s.state.Store(int32(StateClosed))
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("close conn", slog.Any("error", err))
	}
}
