package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sanchey92/trade-orders/internal/http/lib/api/response"
)

const welcomeMessage = "Welcome to the Trade Orders API"

type welcomeResponse struct {
	Message string `json:"message"`
}

func Root() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, welcomeResponse{Message: welcomeMessage})
	}
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func Health(store Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			writeError(w, log, err)
			return
		}
		response.OK(w, map[string]string{"status": "ok"})
	}
}
