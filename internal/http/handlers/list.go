package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sanchey92/trade-orders/internal/domain/model"
	"github.com/sanchey92/trade-orders/internal/http/lib/api/response"
)

type OrderLister interface {
	List(ctx context.Context) ([]model.Order, error)
}

func List(service OrderLister, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := service.List(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}

		response.OK(w, orders)
	}
}
