package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Config struct {
	MaxMessageBytes  int64
	CloseGracePeriod time.Duration
	// Empty allows every origin.
	AllowedOrigins []string
}

const defaultCloseGracePeriod = 5 * time.Second

func Handler(hub *Hub, cfg Config, log *slog.Logger) http.HandlerFunc {
	if cfg.CloseGracePeriod <= 0 {
		cfg.CloseGracePeriod = defaultCloseGracePeriod
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("status channel upgrade", slog.Any("error", err))
			return
		}

		// Hijacked connections keep the server's deadlines.
		_ = conn.SetReadDeadline(time.Time{})
		_ = conn.SetWriteDeadline(time.Time{})
		if cfg.MaxMessageBytes > 0 {
			conn.SetReadLimit(cfg.MaxMessageBytes)
		}

		s := newSession(uuid.NewString(), conn, log, cfg.CloseGracePeriod)
		if !hub.register(s) {
			s.Close(websocket.CloseGoingAway, closeReasonShutdown)
			s.finish()
			return
		}
		defer hub.unregister(s)

		s.serve()
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
