package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

const closeReasonShutdown = "server shutting down"

// Hub tracks open sessions so shutdown can close them. It never sends
// application data to sessions.
type Hub struct {
	logger   *slog.Logger
	mu       sync.Mutex
	sessions map[string]*Session
	closing  bool
	wg       sync.WaitGroup
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		logger:   log,
		sessions: make(map[string]*Session),
	}
}

// register adds s unless CloseAll has started, in which case the caller
// must close s itself.
func (h *Hub) register(s *Session) bool {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return false
	}
	h.sessions[s.id] = s
	h.wg.Add(1)
	n := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("status channel opened", slog.String("session_id", s.id), slog.Int("total", n))
	return true
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	n := len(h.sessions)
	h.mu.Unlock()
	h.wg.Done()

	h.logger.Info("status channel closed", slog.String("session_id", s.id), slog.Int("total", n))
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// CloseAll sends a going-away close to every session and waits for their
// receive loops to end or ctx to expire. Sessions arriving afterwards are
// refused.
func (h *Hub) CloseAll(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close(websocket.CloseGoingAway, closeReasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
